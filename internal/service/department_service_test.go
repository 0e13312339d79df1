package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept, err := f.departments.Create(ctx, f.intake, " Parks ", "green spaces")
	require.NoError(t, err)
	assert.Equal(t, "Parks", dept.Name)
	assert.NotEmpty(t, dept.ID)

	_, err = f.departments.Create(ctx, f.intake, "Parks", "")
	assert.Equal(t, "CONFLICT", errCode(t, err))

	_, err = f.departments.Create(ctx, f.intake, "  ", "")
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = f.departments.Create(ctx, f.waterAdmin, "Lighting", "")
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
	_, err = f.departments.Create(ctx, f.citizen, "Lighting", "")
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	items, err := f.departments.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(items))
	for _, d := range items {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Parks", "Roads", "Water"}, names)
}
