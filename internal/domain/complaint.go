package domain

import (
	"strings"
	"time"
)

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusSolved     ComplaintStatus = "solved"
)

// ResponseDelimiter separates attributed notes in Complaint.AdminResponse.
const ResponseDelimiter = "\n\n"

// ParseStatus converts raw input into a known status.
func ParseStatus(raw string) (ComplaintStatus, error) {
	status := ComplaintStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", ErrUnknownStatus
	}
	return status, nil
}

// Valid reports whether s is one of the three lifecycle states.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusSolved:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s ComplaintStatus) Terminal() bool {
	return s == StatusSolved
}

var allowedTransitions = map[ComplaintStatus]map[ComplaintStatus]bool{
	StatusPending:    {StatusInProgress: true, StatusSolved: true},
	StatusInProgress: {StatusSolved: true},
	StatusSolved:     {},
}

// CheckTransition validates moving a complaint from one status to another.
func CheckTransition(from, to ComplaintStatus) error {
	if !from.Valid() || !to.Valid() {
		return ErrUnknownStatus
	}
	if from.Terminal() {
		return ErrAlreadySolved
	}
	if from == to {
		return ErrAlreadyInState
	}
	if !allowedTransitions[from][to] {
		return ErrInvalidTransition
	}
	return nil
}

// Complaint is the aggregate filed by a citizen against a department.
type Complaint struct {
	ID             string
	UserID         string
	OwnerName      string
	DepartmentID   string
	DepartmentName string
	Title          string
	Description    string
	Location       *string
	District       string
	Subcategory    string
	Status         ComplaintStatus
	AdminResponse  *string
	ImagePath      *string
	VoicePath      *string
	UpdatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ComplaintDraft carries the citizen supplied fields of a new complaint.
type ComplaintDraft struct {
	DepartmentName string
	District       string
	Subcategory    string
	Title          string
	Description    string
	Location       *string
	ImagePath      *string
	VoicePath      *string
}

// NewComplaint builds a pending complaint and the history entry recording its creation.
func NewComplaint(owner *User, draft ComplaintDraft, at time.Time) (*Complaint, *StatusHistory) {
	complaint := &Complaint{
		UserID:         owner.ID,
		OwnerName:      owner.Name,
		DepartmentName: strings.TrimSpace(draft.DepartmentName),
		District:       strings.TrimSpace(draft.District),
		Subcategory:    strings.TrimSpace(draft.Subcategory),
		Title:          strings.TrimSpace(draft.Title),
		Description:    strings.TrimSpace(draft.Description),
		Location:       draft.Location,
		Status:         StatusPending,
		ImagePath:      draft.ImagePath,
		VoicePath:      draft.VoicePath,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	entry := &StatusHistory{
		NewStatus: StatusPending,
		ChangedBy: owner.ID,
		Note:      "Complaint submitted",
		Timestamp: at,
	}
	return complaint, entry
}

// Transition moves the complaint to status to on behalf of actor and returns the audit entry.
func (c *Complaint) Transition(actorID string, to ComplaintStatus, note string, at time.Time) (*StatusHistory, error) {
	if err := CheckTransition(c.Status, to); err != nil {
		return nil, err
	}
	from := c.Status
	c.Status = to
	c.UpdatedBy = &actorID
	c.UpdatedAt = at
	return &StatusHistory{
		ComplaintID: c.ID,
		OldStatus:   &from,
		NewStatus:   to,
		ChangedBy:   actorID,
		Note:        note,
		Timestamp:   at,
	}, nil
}

// AppendResponse adds an attributed note to the admin response without touching prior text.
func (c *Complaint) AppendResponse(role Role, actorID, text string, at time.Time) error {
	if c.Status.Terminal() {
		return ErrAlreadySolved
	}
	note := "[" + role.Label() + "]: " + strings.TrimSpace(text)
	if c.AdminResponse != nil && *c.AdminResponse != "" {
		note = *c.AdminResponse + ResponseDelimiter + note
	}
	c.AdminResponse = &note
	c.UpdatedBy = &actorID
	c.UpdatedAt = at
	return nil
}

// Edit replaces title and description; only legal while pending.
func (c *Complaint) Edit(title, description *string, at time.Time) error {
	if c.Status != StatusPending {
		return ErrImmutableAfterProcessing
	}
	if title != nil && strings.TrimSpace(*title) != "" {
		c.Title = strings.TrimSpace(*title)
	}
	if description != nil && strings.TrimSpace(*description) != "" {
		c.Description = strings.TrimSpace(*description)
	}
	c.UpdatedAt = at
	return nil
}

// CheckDeletable reports whether the complaint may still be withdrawn.
func (c *Complaint) CheckDeletable() error {
	if c.Status != StatusPending {
		return ErrImmutableAfterProcessing
	}
	return nil
}

// MediaPaths lists the stored media locators of the complaint.
func (c *Complaint) MediaPaths() []string {
	var paths []string
	for _, p := range []*string{c.ImagePath, c.VoicePath} {
		if p != nil && *p != "" {
			paths = append(paths, *p)
		}
	}
	return paths
}

// ComplaintStats aggregates complaint counts for a dashboard.
type ComplaintStats struct {
	Total       int64
	Pending     int64
	InProgress  int64
	Solved      int64
	UpdatedByMe int64
}
