package memory

import (
	"context"
	"errors"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/repository"
)

func seedComplaint(t *testing.T, s *Store) (*domain.User, *domain.Complaint) {
	t.Helper()
	ctx := context.Background()
	owner := &domain.User{Name: "Ana", Email: "ana@example.com", Role: domain.RoleCitizen}
	require.NoError(t, s.Users().Create(ctx, owner))

	c, entry := domain.NewComplaint(owner, domain.ComplaintDraft{
		DepartmentName: "Water",
		Title:          "Leak",
		Description:    "Pipe burst on Main St",
	}, time.Now().UTC())
	require.NoError(t, s.Complaints().Create(ctx, c, entry))
	return owner, c
}

func TestCreateUpsertsDepartmentByName(t *testing.T) {
	s := NewStore()
	_, first := seedComplaint(t, s)

	owner, err := s.Users().GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	second, entry := domain.NewComplaint(owner, domain.ComplaintDraft{DepartmentName: "Water", Title: "Again", Description: "x"}, time.Now().UTC())
	require.NoError(t, s.Complaints().Create(context.Background(), second, entry))

	assert.Equal(t, first.DepartmentID, second.DepartmentID)
	depts, err := s.Departments().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, depts, 1)
}

func TestMutateErrorLeavesRowUntouched(t *testing.T) {
	s := NewStore()
	_, c := seedComplaint(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := s.Complaints().Mutate(ctx, c.ID, func(cur *domain.Complaint) (*domain.StatusHistory, error) {
		cur.Status = domain.StatusSolved
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := s.Complaints().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)

	history, err := s.History().ListByComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDeleteCascadesChildren(t *testing.T) {
	s := NewStore()
	owner, c := seedComplaint(t, s)
	ctx := context.Background()

	require.NoError(t, s.Messages().Create(ctx, &domain.ComplaintMessage{
		ComplaintID: c.ID,
		SenderID:    owner.ID,
		Body:        "any news?",
		CreatedAt:   time.Now().UTC(),
	}))

	_, err := s.Complaints().Delete(ctx, c.ID, nil)
	require.NoError(t, err)

	_, err = s.Complaints().GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	history, _ := s.History().ListByComplaint(ctx, c.ID)
	assert.Empty(t, history)
	messages, _ := s.Messages().ListByComplaint(ctx, c.ID, nil)
	assert.Empty(t, messages)
}

func TestUserEmailUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &domain.User{Name: "A", Email: "a@example.com", Role: domain.RoleCitizen}))
	err := s.Users().Create(ctx, &domain.User{Name: "B", Email: "a@example.com", Role: domain.RoleCitizen})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestPasswordResetRedeemsOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := &domain.User{Name: "A", Email: "a@example.com", PasswordHash: "old", Role: domain.RoleCitizen}
	require.NoError(t, s.Users().Create(ctx, user))
	token := &domain.PasswordResetToken{UserID: user.ID, Token: "t1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.PasswordResets().Create(ctx, token))

	require.NoError(t, s.PasswordResets().Redeem(ctx, token.ID, "new"))
	assert.ErrorIs(t, s.PasswordResets().Redeem(ctx, token.ID, "newer"), repository.ErrNotFound)

	stored, err := s.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.PasswordHash)
}

func TestPasswordResetForMissingUserStaysUnused(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	token := &domain.PasswordResetToken{UserID: "gone", Token: "t1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.PasswordResets().Create(ctx, token))

	assert.ErrorIs(t, s.PasswordResets().Redeem(ctx, token.ID, "new"), repository.ErrNotFound)

	stored, err := s.PasswordResets().GetByToken(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, stored.UsedAt)
}

// aliased returns a string sharing memory with buf, the way fiber hands out
// path params and form values.
func aliased(buf []byte) string {
	return unsafe.String(&buf[0], len(buf))
}

func scribble(buf []byte) {
	for i := range buf {
		buf[i] = 'x'
	}
}

func TestMutateKeepsHistoryWhenCallerBufferIsReused(t *testing.T) {
	s := NewStore()
	_, c := seedComplaint(t, s)
	ctx := context.Background()

	buf := []byte(c.ID)
	_, err := s.Complaints().Mutate(ctx, aliased(buf), func(cur *domain.Complaint) (*domain.StatusHistory, error) {
		return cur.Transition("actor-1", domain.StatusInProgress, "started", time.Now().UTC())
	})
	require.NoError(t, err)
	scribble(buf)

	history, err := s.History().ListByComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, c.ID, history[1].ComplaintID)
	assert.Equal(t, domain.StatusInProgress, history[1].NewStatus)
}

func TestStoredFieldsSurviveBufferReuse(t *testing.T) {
	s := NewStore()
	owner, c := seedComplaint(t, s)
	ctx := context.Background()

	title := []byte("Burst main")
	_, err := s.Complaints().Mutate(ctx, c.ID, func(cur *domain.Complaint) (*domain.StatusHistory, error) {
		cur.Title = aliased(title)
		return nil, nil
	})
	require.NoError(t, err)

	body := []byte("any news?")
	require.NoError(t, s.Messages().Create(ctx, &domain.ComplaintMessage{
		ComplaintID: c.ID,
		SenderID:    owner.ID,
		Body:        aliased(body),
		CreatedAt:   time.Now().UTC(),
	}))

	name := []byte("Roads")
	require.NoError(t, s.Departments().Create(ctx, &domain.Department{Name: aliased(name)}))

	scribble(title)
	scribble(body)
	scribble(name)

	stored, err := s.Complaints().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Burst main", stored.Title)

	messages, err := s.Messages().ListByComplaint(ctx, c.ID, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "any news?", messages[0].Body)

	_, err = s.Departments().GetByName(ctx, "Roads")
	assert.NoError(t, err)
}
