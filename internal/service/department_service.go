package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/civic-desk/complaint-service/internal/authz"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/observability"
	"github.com/civic-desk/complaint-service/internal/repository"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

// DepartmentService lists and creates departments.
type DepartmentService struct {
	departments repository.DepartmentRepository
	gate        gate
}

// NewDepartmentService constructs the service.
func NewDepartmentService(departments repository.DepartmentRepository, logger *zap.Logger, metrics *observability.Metrics) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{departments: departments, gate: gate{logger: logger, metrics: metrics}}
}

// List returns every department, ordered by name.
func (s *DepartmentService) List(ctx context.Context) ([]domain.Department, error) {
	items, err := s.departments.List(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// Create registers a department ahead of any complaint referencing it.
func (s *DepartmentService) Create(ctx context.Context, actor *domain.User, name, description string) (*domain.Department, error) {
	if err := s.gate.check(actor, authz.OpManageDepartments, authz.Target{}); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	dept := &domain.Department{Name: name, Description: strings.TrimSpace(description)}
	if err := s.departments.Create(ctx, dept); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("department already exists", map[string]any{"name": name})
		}
		return nil, translateError(err)
	}
	return dept, nil
}
