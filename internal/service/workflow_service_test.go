package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/events"
)

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.file(t, f.citizen, "Water")
	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Equal(t, f.water.ID, c.DepartmentID)

	progressed, err := f.workflow.MarkInProgress(ctx, f.waterAdmin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, progressed.Status)
	require.NotNil(t, progressed.UpdatedBy)
	assert.Equal(t, f.waterAdmin.ID, *progressed.UpdatedBy)

	history, err := f.workflow.ListHistory(ctx, f.intake, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].OldStatus, "creation entry")
	require.NotNil(t, history[1].OldStatus)
	assert.Equal(t, domain.StatusPending, *history[1].OldStatus)
	assert.Equal(t, domain.StatusInProgress, history[1].NewStatus)
	assert.Equal(t, f.waterAdmin.ID, history[1].ChangedBy)

	_, err = f.workflow.MarkInProgress(ctx, f.roadAdmin, c.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	solved, err := f.workflow.Resolve(ctx, f.intake, c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSolved, solved.Status)

	history, err = f.workflow.ListHistory(ctx, f.intake, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.StatusInProgress, *history[2].OldStatus)
	assert.Equal(t, domain.StatusSolved, history[2].NewStatus)
	assert.Equal(t, "Marked solved by C-Admin", history[2].Note)

	_, err = f.workflow.MarkInProgress(ctx, f.waterAdmin, c.ID)
	assert.Equal(t, "ALREADY_SOLVED", errCode(t, err))

	history, _ = f.workflow.ListHistory(ctx, f.intake, c.ID)
	assert.Len(t, history, 3, "failed transitions leave no audit entry")

	assert.Contains(t, f.published.types(), events.EventComplaintStatusChanged)
}

func TestConcurrentResolveOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	c := f.file(t, f.citizen, "Water")

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.Resolve(context.Background(), f.intake, c.ID, strPtr("closing"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.Equal(t, "ALREADY_SOLVED", errCode(t, err))
	}

	history, err := f.workflow.ListHistory(context.Background(), f.intake, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stored, err := f.workflow.GetComplaint(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(*stored.AdminResponse, "[C-Admin]: closing"))
}

func TestDepartmentAdminCannotReachSolved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.file(t, f.citizen, "Water")

	_, err := f.workflow.Resolve(ctx, f.waterAdmin, c.ID, nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.workflow.AdminUpdate(ctx, f.waterAdmin, c.ID, AdminUpdateInput{Status: strPtr("solved")})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.workflow.AdminUpdate(ctx, f.waterAdmin, c.ID, AdminUpdateInput{Status: strPtr("pending")})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	stored, _ := f.workflow.GetComplaint(ctx, c.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)

	denials := f.logs.FilterMessage("authorization denied").All()
	require.NotEmpty(t, denials)
	assert.Equal(t, "solved_forbidden", denials[0].ContextMap()["reason"])
}

func TestIntakeAdminGeneralUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.file(t, f.citizen, "Roads")

	_, err := f.workflow.AdminUpdate(ctx, f.intake, c.ID, AdminUpdateInput{Status: strPtr("solved")})
	assert.Equal(t, "FORBIDDEN", errCode(t, err), "solved only through resolve")

	_, err = f.workflow.AdminUpdate(ctx, f.intake, c.ID, AdminUpdateInput{Status: strPtr("pending")})
	assert.Equal(t, "ALREADY_IN_STATE", errCode(t, err))

	updated, err := f.workflow.AdminUpdate(ctx, f.intake, c.ID, AdminUpdateInput{
		Status:   strPtr("in_progress"),
		Response: strPtr("crew dispatched"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, "[C-Admin]: crew dispatched", *updated.AdminResponse)

	_, err = f.workflow.AdminUpdate(ctx, f.intake, c.ID, AdminUpdateInput{Status: strPtr("pending")})
	assert.Equal(t, "INVALID_TRANSITION", errCode(t, err))

	_, err = f.workflow.AdminUpdate(ctx, f.intake, c.ID, AdminUpdateInput{Status: strPtr("archived")})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = f.workflow.AdminUpdate(ctx, f.intake, c.ID, AdminUpdateInput{})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	history, _ := f.workflow.ListHistory(ctx, f.intake, c.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "Status set to in_progress by C-Admin", history[1].Note)
}

func TestResponsesAreAppendOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.file(t, f.citizen, "Water")

	_, err := f.workflow.AppendResponse(ctx, f.waterAdmin, c.ID, "inspecting today")
	require.NoError(t, err)
	_, err = f.workflow.AppendResponse(ctx, f.intake, c.ID, "escalated")
	require.NoError(t, err)
	resolved, err := f.workflow.Resolve(ctx, f.intake, c.ID, strPtr("fixed"))
	require.NoError(t, err)

	text := *resolved.AdminResponse
	first := strings.Index(text, "[CM-Admin]: inspecting today")
	second := strings.Index(text, "[C-Admin]: escalated")
	third := strings.Index(text, "[C-Admin]: fixed")
	assert.True(t, first >= 0 && second > first && third > second, text)

	_, err = f.workflow.AppendResponse(ctx, f.intake, c.ID, "late note")
	assert.Equal(t, "ALREADY_SOLVED", errCode(t, err))

	_, err = f.workflow.AppendResponse(ctx, f.roadAdmin, c.ID, "not mine")
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestCitizenEditsOnlyOwnPendingComplaint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.file(t, f.citizen, "Water")

	edited, err := f.workflow.UpdateComplaint(ctx, f.citizen, c.ID, strPtr("Burst main"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Burst main", edited.Title)
	assert.Equal(t, c.Description, edited.Description)

	_, err = f.workflow.UpdateComplaint(ctx, f.other, c.ID, strPtr("mine now"), nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.workflow.UpdateComplaint(ctx, f.intake, c.ID, strPtr("admin edit"), nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.workflow.MarkInProgress(ctx, f.waterAdmin, c.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.workflow.UpdateComplaint(ctx, f.citizen, c.ID, strPtr("too late"), nil)
		assert.Equal(t, "IMMUTABLE_AFTER_PROCESSING", errCode(t, err))
	}
	assert.Equal(t, "IMMUTABLE_AFTER_PROCESSING", errCode(t, f.workflow.DeleteComplaint(ctx, f.citizen, c.ID)))

	_, err = f.workflow.UpdateComplaint(ctx, f.citizen, "missing", strPtr("x"), nil)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestCreateValidatesMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := CreateComplaintInput{DepartmentName: "Water", Title: "t", Description: "d"}

	tooBig := base
	tooBig.Image = &MediaUpload{Data: make([]byte, 5*1024*1024+1), ContentType: "image/png"}
	_, err := f.workflow.CreateComplaint(ctx, f.citizen, tooBig)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	wrongType := base
	wrongType.Voice = &MediaUpload{Data: []byte("x"), ContentType: "image/png"}
	_, err = f.workflow.CreateComplaint(ctx, f.citizen, wrongType)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	missing := base
	missing.Title = "  "
	_, err = f.workflow.CreateComplaint(ctx, f.citizen, missing)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = f.workflow.CreateComplaint(ctx, f.intake, base)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	assert.Zero(t, f.files.count())

	withMedia := base
	withMedia.Image = &MediaUpload{Data: []byte("png"), ContentType: "image/png"}
	withMedia.Voice = &MediaUpload{Data: []byte("mp3"), ContentType: "audio/mpeg"}
	c, err := f.workflow.CreateComplaint(ctx, f.citizen, withMedia)
	require.NoError(t, err)
	require.NotNil(t, c.ImagePath)
	require.NotNil(t, c.VoicePath)
	assert.Equal(t, 2, f.files.count())
}

func TestCreateRemovesUploadsWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	ghost := &domain.User{ID: "ghost", Name: "Ghost", Role: domain.RoleCitizen}

	_, err := f.workflow.CreateComplaint(context.Background(), ghost, CreateComplaintInput{
		DepartmentName: "Water",
		Title:          "t",
		Description:    "d",
		Image:          &MediaUpload{Data: []byte("png"), ContentType: "image/png"},
	})
	require.Error(t, err)
	assert.Zero(t, f.files.count())
	assert.Len(t, f.files.deleted, 1)
}

func TestCreateFailsWhenStorageFails(t *testing.T) {
	f := newFixture(t)
	f.files.storeErr = errors.New("disk full")

	_, err := f.workflow.CreateComplaint(context.Background(), f.citizen, CreateComplaintInput{
		DepartmentName: "Water",
		Title:          "t",
		Description:    "d",
		Image:          &MediaUpload{Data: []byte("png"), ContentType: "image/png"},
	})
	assert.Equal(t, "INTERNAL_ERROR", errCode(t, err))

	items, _ := f.workflow.ListComplaints(context.Background(), ComplaintQuery{})
	assert.Empty(t, items, "no row without its media")
}

func TestDeleteIsBestEffortOnMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.workflow.CreateComplaint(ctx, f.citizen, CreateComplaintInput{
		DepartmentName: "Water",
		Title:          "t",
		Description:    "d",
		Image:          &MediaUpload{Data: []byte("png"), ContentType: "image/png"},
	})
	require.NoError(t, err)

	assert.Equal(t, "FORBIDDEN", errCode(t, f.workflow.DeleteComplaint(ctx, f.other, c.ID)))

	f.files.deleteErr = errors.New("permission denied")
	require.NoError(t, f.workflow.DeleteComplaint(ctx, f.citizen, c.ID))

	_, err = f.workflow.GetComplaint(ctx, c.ID)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
	assert.Equal(t, []string{*c.ImagePath}, f.files.deleted)
	assert.Equal(t, 1, f.logs.FilterMessage("media cleanup failed").Len())
}

func TestMissingComplaintIsForbiddenForDepartmentAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.workflow.AdminGetComplaint(ctx, f.waterAdmin, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.workflow.AdminGetComplaint(ctx, f.intake, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "NOT_FOUND", errCode(t, err))

	c := f.file(t, f.citizen, "Water")
	_, err = f.workflow.AdminGetComplaint(ctx, f.roadAdmin, c.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err), "out of scope looks like a missing id")
}

func TestMessagesAndSenderFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.file(t, f.citizen, "Water")

	_, err := f.workflow.PostMessage(ctx, f.citizen, c.ID, "any update?")
	require.NoError(t, err)
	_, err = f.workflow.PostMessage(ctx, f.waterAdmin, c.ID, "on it")
	require.NoError(t, err)
	_, err = f.workflow.PostMessage(ctx, f.other, c.ID, "me too")
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
	_, err = f.workflow.PostMessage(ctx, f.roadAdmin, c.ID, "hello")
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
	_, err = f.workflow.PostMessage(ctx, f.citizen, c.ID, "   ")
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	all, err := f.workflow.ListMessages(ctx, f.intake, c.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "any update?", all[0].Body)
	assert.Equal(t, domain.RoleDepartmentAdmin, all[1].SenderRole)

	admins, err := f.workflow.ListMessages(ctx, f.intake, c.ID, strPtr("department_admin"))
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "on it", admins[0].Body)

	_, err = f.workflow.ListMessages(ctx, f.intake, c.ID, strPtr("robot"))
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestStatsAreScopedAtQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w1 := f.file(t, f.citizen, "Water")
	f.file(t, f.citizen, "Water")
	r1 := f.file(t, f.other, "Roads")

	_, err := f.workflow.MarkInProgress(ctx, f.waterAdmin, w1.ID)
	require.NoError(t, err)
	_, err = f.workflow.Resolve(ctx, f.intake, r1.ID, nil)
	require.NoError(t, err)

	global, err := f.workflow.Stats(ctx, f.intake)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStats{Total: 3, Pending: 1, InProgress: 1, Solved: 1, UpdatedByMe: 1}, global)

	water, err := f.workflow.Stats(ctx, f.waterAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStats{Total: 2, Pending: 1, InProgress: 1, UpdatedByMe: 1}, water)

	_, err = f.workflow.Stats(ctx, f.citizen)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestDepartmentListingsNeverLeakAcrossDepartments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	names := []string{"Water", "Roads", "Parks", "Lighting"}
	admins := map[string]*domain.User{"Water": f.waterAdmin, "Roads": f.roadAdmin}
	for _, name := range []string{"Parks", "Lighting"} {
		dept := &domain.Department{Name: name}
		require.NoError(t, f.store.Departments().Create(ctx, dept))
		admins[name] = f.addUser(t, strings.ToLower(name)+"@example.com", domain.RoleDepartmentAdmin, &dept.ID)
	}

	for i := 0; i < 60; i++ {
		c := f.file(t, f.citizen, names[rng.Intn(len(names))])
		if rng.Intn(2) == 0 {
			_, err := f.workflow.AdminUpdate(ctx, f.intake, c.ID, AdminUpdateInput{Status: strPtr("in_progress")})
			require.NoError(t, err)
		}
	}

	total := 0
	for _, admin := range admins {
		for _, status := range []*string{nil, strPtr("pending"), strPtr("in_progress")} {
			items, err := f.workflow.AdminListComplaints(ctx, admin, ComplaintQuery{
				Status:         status,
				DepartmentName: strPtr(names[rng.Intn(len(names))]),
			})
			require.NoError(t, err)
			for _, item := range items {
				assert.Equal(t, *admin.DepartmentID, item.DepartmentID)
			}
		}
		items, err := f.workflow.AdminListComplaints(ctx, admin, ComplaintQuery{})
		require.NoError(t, err)
		total += len(items)
	}
	assert.Equal(t, 60, total)

	_, err := f.workflow.AdminListComplaints(ctx, f.citizen, ComplaintQuery{})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestPublicFeedAndMyComplaints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.file(t, f.citizen, "Water")
	f.file(t, f.other, "Roads")

	feed, err := f.workflow.ListComplaints(ctx, ComplaintQuery{DepartmentName: strPtr("Roads")})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "Roads", feed[0].DepartmentName)
	assert.Equal(t, f.other.Name, feed[0].OwnerName)

	mine, err := f.workflow.ListMyComplaints(ctx, f.citizen, ComplaintQuery{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.citizen.ID, mine[0].UserID)

	_, err = f.workflow.ListComplaints(ctx, ComplaintQuery{Status: strPtr("closed")})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}
