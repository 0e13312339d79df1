package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleAliases(t *testing.T) {
	cases := map[string]Role{
		"citizen":          RoleCitizen,
		"user":             RoleCitizen,
		"c_admin":          RoleIntakeAdmin,
		"intake_admin":     RoleIntakeAdmin,
		"CM_ADMIN":         RoleDepartmentAdmin,
		"department_admin": RoleDepartmentAdmin,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseRole("superuser")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestValidateBinding(t *testing.T) {
	dept := "dept-1"
	empty := ""

	assert.NoError(t, ValidateBinding(RoleCitizen, nil))
	assert.NoError(t, ValidateBinding(RoleIntakeAdmin, nil))
	assert.NoError(t, ValidateBinding(RoleDepartmentAdmin, &dept))

	assert.ErrorIs(t, ValidateBinding(RoleDepartmentAdmin, nil), ErrDepartmentRequired)
	assert.ErrorIs(t, ValidateBinding(RoleDepartmentAdmin, &empty), ErrDepartmentRequired)
	assert.ErrorIs(t, ValidateBinding(RoleCitizen, &dept), ErrUnexpectedDepartment)
	assert.ErrorIs(t, ValidateBinding(RoleIntakeAdmin, &dept), ErrUnexpectedDepartment)
	assert.ErrorIs(t, ValidateBinding(Role("root"), nil), ErrUnknownRole)
}
