package domain

import "strings"

// Role is the single role assigned to a user.
type Role string

const (
	RoleCitizen         Role = "citizen"
	RoleIntakeAdmin     Role = "c_admin"
	RoleDepartmentAdmin Role = "cm_admin"
)

// ParseRole accepts the stored value as well as the descriptive aliases.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "citizen", "user":
		return RoleCitizen, nil
	case "c_admin", "intake_admin":
		return RoleIntakeAdmin, nil
	case "cm_admin", "department_admin":
		return RoleDepartmentAdmin, nil
	}
	return "", ErrUnknownRole
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleIntakeAdmin, RoleDepartmentAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r is one of the two administrator tiers.
func (r Role) IsAdmin() bool {
	return r == RoleIntakeAdmin || r == RoleDepartmentAdmin
}

// Label is the attribution prefix used in admin responses.
func (r Role) Label() string {
	switch r {
	case RoleIntakeAdmin:
		return "C-Admin"
	case RoleDepartmentAdmin:
		return "CM-Admin"
	case RoleCitizen:
		return "Citizen"
	}
	return "Unknown"
}

// ValidateBinding enforces that only department admins are bound to a department.
func ValidateBinding(role Role, departmentID *string) error {
	if !role.Valid() {
		return ErrUnknownRole
	}
	bound := departmentID != nil && *departmentID != ""
	if role == RoleDepartmentAdmin && !bound {
		return ErrDepartmentRequired
	}
	if role != RoleDepartmentAdmin && bound {
		return ErrUnexpectedDepartment
	}
	return nil
}
