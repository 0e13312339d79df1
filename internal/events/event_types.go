package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/civic-desk/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated          EventType = "complaint_created"
	EventComplaintStatusChanged    EventType = "complaint_status_changed"
	EventComplaintResponseAppended EventType = "complaint_response_appended"
	EventComplaintMessageAdded     EventType = "complaint_message_added"
	EventComplaintDeleted          EventType = "complaint_deleted"
)

// AllEventTypes lists every type a catch-all subscriber should register for.
var AllEventTypes = []EventType{
	EventComplaintCreated,
	EventComplaintStatusChanged,
	EventComplaintResponseAppended,
	EventComplaintMessageAdded,
	EventComplaintDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services after a commit.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	ComplaintID  string      `json:"complaint_id"`
	DepartmentID string      `json:"department_id"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// NewEvent stamps an id and timestamp.
func NewEvent(eventType EventType, complaint *domain.Complaint, actor Actor, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		ComplaintID:  complaint.ID,
		DepartmentID: complaint.DepartmentID,
		Actor:        actor,
		Timestamp:    time.Now().UTC(),
		Payload:      payload,
	}
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	DepartmentName string `json:"department_name"`
	Title          string `json:"title"`
	District       string `json:"district,omitempty"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Note      string                 `json:"note,omitempty"`
}

// ComplaintResponseAppendedPayload payload.
type ComplaintResponseAppendedPayload struct {
	Preview string `json:"preview"`
}

// ComplaintMessageAddedPayload payload.
type ComplaintMessageAddedPayload struct {
	MessageID   string `json:"message_id"`
	BodyPreview string `json:"body_preview"`
}

// ComplaintDeletedPayload payload.
type ComplaintDeletedPayload struct {
	Title string `json:"title"`
}

// Preview trims text for log and webhook payloads.
func Preview(text string) string {
	const max = 120
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
