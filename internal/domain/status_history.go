package domain

import "time"

// StatusHistory is an immutable audit entry; OldStatus is nil for the creation entry.
type StatusHistory struct {
	ID          string
	ComplaintID string
	OldStatus   *ComplaintStatus
	NewStatus   ComplaintStatus
	ChangedBy   string
	Note        string
	Timestamp   time.Time
}
