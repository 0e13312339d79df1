package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []ComplaintStatus{StatusPending, StatusInProgress, StatusSolved}

func TestCheckTransitionTable(t *testing.T) {
	tests := []struct {
		from ComplaintStatus
		to   ComplaintStatus
		want error
	}{
		{StatusPending, StatusPending, ErrAlreadyInState},
		{StatusPending, StatusInProgress, nil},
		{StatusPending, StatusSolved, nil},
		{StatusInProgress, StatusPending, ErrInvalidTransition},
		{StatusInProgress, StatusInProgress, ErrAlreadyInState},
		{StatusInProgress, StatusSolved, nil},
		{StatusSolved, StatusPending, ErrAlreadySolved},
		{StatusSolved, StatusInProgress, ErrAlreadySolved},
		{StatusSolved, StatusSolved, ErrAlreadySolved},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckTransitionRejectsUnknownStatus(t *testing.T) {
	assert.ErrorIs(t, CheckTransition("closed", StatusSolved), ErrUnknownStatus)
	assert.ErrorIs(t, CheckTransition(StatusPending, "archived"), ErrUnknownStatus)
}

func TestSolvedIsAbsorbing(t *testing.T) {
	c := &Complaint{ID: "c-1", Status: StatusPending}
	now := time.Now()

	_, err := c.Transition("admin-1", StatusSolved, "done", now)
	require.NoError(t, err)

	for _, target := range allStatuses {
		_, err := c.Transition("admin-2", target, "retry", now)
		assert.ErrorIs(t, err, ErrAlreadySolved)
		assert.Equal(t, StatusSolved, c.Status)
	}
	assert.ErrorIs(t, c.AppendResponse(RoleIntakeAdmin, "admin-2", "late", now), ErrAlreadySolved)
}

func TestTransitionProducesHistoryEntry(t *testing.T) {
	c := &Complaint{ID: "c-1", Status: StatusPending}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	entry, err := c.Transition("admin-1", StatusInProgress, "picked up", at)
	require.NoError(t, err)

	require.NotNil(t, entry.OldStatus)
	assert.Equal(t, StatusPending, *entry.OldStatus)
	assert.Equal(t, StatusInProgress, entry.NewStatus)
	assert.Equal(t, "c-1", entry.ComplaintID)
	assert.Equal(t, "admin-1", entry.ChangedBy)
	assert.Equal(t, "picked up", entry.Note)
	assert.Equal(t, at, entry.Timestamp)
	require.NotNil(t, c.UpdatedBy)
	assert.Equal(t, "admin-1", *c.UpdatedBy)
}

func TestFailedTransitionLeavesComplaintUntouched(t *testing.T) {
	c := &Complaint{ID: "c-1", Status: StatusInProgress}

	entry, err := c.Transition("admin-1", StatusPending, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Nil(t, entry)
	assert.Equal(t, StatusInProgress, c.Status)
	assert.Nil(t, c.UpdatedBy)
}

func TestAppendResponseIsAppendOnly(t *testing.T) {
	c := &Complaint{Status: StatusInProgress}
	now := time.Now()

	require.NoError(t, c.AppendResponse(RoleDepartmentAdmin, "cm-1", "crew dispatched", now))
	require.NoError(t, c.AppendResponse(RoleIntakeAdmin, "c-1", "verified on site", now))

	require.NotNil(t, c.AdminResponse)
	assert.Equal(t, "[CM-Admin]: crew dispatched\n\n[C-Admin]: verified on site", *c.AdminResponse)
	assert.Less(t, strings.Index(*c.AdminResponse, "crew dispatched"), strings.Index(*c.AdminResponse, "verified on site"))
}

func TestEditOnlyWhilePending(t *testing.T) {
	title := "Broken street light"
	desc := "Out since Monday"
	now := time.Now()

	for _, status := range allStatuses {
		c := &Complaint{Status: status, Title: "old", Description: "old"}
		err := c.Edit(&title, &desc, now)
		if status == StatusPending {
			require.NoError(t, err)
			assert.Equal(t, title, c.Title)
			assert.Equal(t, desc, c.Description)
			continue
		}
		assert.ErrorIs(t, err, ErrImmutableAfterProcessing)
		assert.Equal(t, "old", c.Title)
	}
}

func TestEditIgnoresBlankFields(t *testing.T) {
	blank := "  "
	c := &Complaint{Status: StatusPending, Title: "keep", Description: "keep too"}
	require.NoError(t, c.Edit(&blank, nil, time.Now()))
	assert.Equal(t, "keep", c.Title)
	assert.Equal(t, "keep too", c.Description)
}

func TestNewComplaintStartsPending(t *testing.T) {
	owner := &User{ID: "u-1", Name: "Ravi"}
	location := "Main road"
	c, entry := NewComplaint(owner, ComplaintDraft{
		DepartmentName: " Water ",
		Title:          " Leak ",
		Description:    "Pipe burst",
		Location:       &location,
	}, time.Now())

	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, "Water", c.DepartmentName)
	assert.Equal(t, "Leak", c.Title)
	assert.Equal(t, "u-1", c.UserID)
	assert.Nil(t, entry.OldStatus)
	assert.Equal(t, StatusPending, entry.NewStatus)
	assert.Equal(t, "u-1", entry.ChangedBy)
}

func TestCheckDeletable(t *testing.T) {
	assert.NoError(t, (&Complaint{Status: StatusPending}).CheckDeletable())
	assert.ErrorIs(t, (&Complaint{Status: StatusInProgress}).CheckDeletable(), ErrImmutableAfterProcessing)
	assert.ErrorIs(t, (&Complaint{Status: StatusSolved}).CheckDeletable(), ErrImmutableAfterProcessing)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" IN_PROGRESS ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("closed")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
