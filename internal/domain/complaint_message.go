package domain

import "time"

// ComplaintMessage is an append-only comment in a complaint thread.
type ComplaintMessage struct {
	ID          string
	ComplaintID string
	SenderID    string
	SenderName  string
	SenderRole  Role
	Body        string
	CreatedAt   time.Time
}
