package domain

import "time"

// Department is a named scope owning complaints and department admins.
type Department struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
