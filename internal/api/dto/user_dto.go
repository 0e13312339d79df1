package dto

import "time"

// RegisterRequest payload for citizen self-registration.
type RegisterRequest struct {
	Name     string  `json:"name" form:"name"`
	Email    string  `json:"email" form:"email"`
	Password string  `json:"password" form:"password"`
	Phone    *string `json:"phone" form:"phone"`
	Address  *string `json:"address" form:"address"`
	Age      *int    `json:"age" form:"age"`
	Gender   *string `json:"gender" form:"gender"`
}

// AdminRegisterRequest payload for admin registration. The registration
// secret travels in the X-Admin-Secret header or in the body.
type AdminRegisterRequest struct {
	RegisterRequest
	AdminType    string  `json:"admin_type" form:"admin_type"`
	DepartmentID *string `json:"department_id" form:"department_id"`
	Secret       string  `json:"secret" form:"secret"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	DepartmentID   *string   `json:"department_id,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Address        *string   `json:"address,omitempty"`
	Age            *int      `json:"age,omitempty"`
	Gender         *string   `json:"gender,omitempty"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProfileUpdateRequest carries editable profile fields.
type ProfileUpdateRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Age     *int    `json:"age"`
	Gender  *string `json:"gender"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
