package dto

import "time"

// ComplaintResponse is a complaint with its joined display names.
type ComplaintResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OwnerName      string    `json:"owner_name"`
	DepartmentID   string    `json:"department_id"`
	DepartmentName string    `json:"department"`
	District       string    `json:"district,omitempty"`
	Subcategory    string    `json:"subcategory,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       *string   `json:"location,omitempty"`
	Status         string    `json:"status"`
	AdminResponse  *string   `json:"admin_response,omitempty"`
	ImagePath      *string   `json:"image_path,omitempty"`
	VoicePath      *string   `json:"voice_path,omitempty"`
	UpdatedBy      *string   `json:"updated_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateComplaintRequest is the owner's edit of a pending complaint.
type UpdateComplaintRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// AdminUpdateRequest carries an optional status and an optional response note.
type AdminUpdateRequest struct {
	Status        *string `json:"status"`
	AdminResponse *string `json:"admin_response"`
}

// ResolveRequest optionally appends a closing note.
type ResolveRequest struct {
	AdminResponse *string `json:"admin_response"`
}

// ResponseRequest appends a note without changing status.
type ResponseRequest struct {
	AdminResponse string `json:"admin_response"`
}

// MessageRequest posts to a complaint thread.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is one thread message.
type MessageResponse struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderRole  string    `json:"sender_role"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID        string    `json:"id"`
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsResponse holds dashboard counts.
type StatsResponse struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	InProgress  int64 `json:"in_progress"`
	Solved      int64 `json:"solved"`
	UpdatedByMe int64 `json:"updated_by_me"`
}

// CreateComplaintRequest holds the text fields of a new complaint. Media
// arrive as the multipart files image and voice_recording.
type CreateComplaintRequest struct {
	Department  string  `json:"department" form:"department"`
	District    string  `json:"district" form:"district"`
	Subcategory string  `json:"subcategory" form:"subcategory"`
	Title       string  `json:"title" form:"title"`
	Description string  `json:"description" form:"description"`
	Location    *string `json:"location" form:"location"`
}
