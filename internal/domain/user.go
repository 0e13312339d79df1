package domain

import "time"

// User is a citizen or an administrator. DepartmentID is set iff Role is RoleDepartmentAdmin.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Phone          *string
	Address        *string
	Age            *int
	Gender         *string
	ProfilePicture *string
	Role           Role
	DepartmentID   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InDepartment reports whether the user is bound to departmentID.
func (u *User) InDepartment(departmentID string) bool {
	return u != nil && u.DepartmentID != nil && *u.DepartmentID == departmentID
}
