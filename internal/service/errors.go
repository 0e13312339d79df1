package service

import (
	"errors"

	"github.com/civic-desk/complaint-service/internal/auth"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/repository"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

// translateError maps domain and storage errors onto the response envelope.
// Errors that are already envelopes pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return apperrors.NewReasonError("INVALID_TRANSITION", "status transition not allowed", err)
	case errors.Is(err, domain.ErrImmutableAfterProcessing):
		return apperrors.NewReasonError("IMMUTABLE_AFTER_PROCESSING", "complaint can no longer be changed", err)
	case errors.Is(err, domain.ErrAlreadySolved):
		return apperrors.NewStateConflict("ALREADY_SOLVED", "complaint is already solved", err)
	case errors.Is(err, domain.ErrAlreadyInState):
		return apperrors.NewStateConflict("ALREADY_IN_STATE", "complaint is already in the requested status", err)
	case errors.Is(err, domain.ErrUnknownStatus):
		return apperrors.NewValidationError("unknown status", map[string]any{"allowed": []domain.ComplaintStatus{
			domain.StatusPending, domain.StatusInProgress, domain.StatusSolved,
		}})
	case errors.Is(err, domain.ErrUnknownRole):
		return apperrors.NewValidationError("unknown admin type", nil)
	case errors.Is(err, domain.ErrUnexpectedDepartment):
		return apperrors.NewValidationError("department binding is only valid for department admins", nil)
	case errors.Is(err, domain.ErrDepartmentRequired):
		return apperrors.NewReasonError("DEPARTMENT_REQUIRED", "department_id is required for department admins", err)
	case errors.Is(err, domain.ErrUnknownDepartment):
		return apperrors.NewReasonError("UNKNOWN_DEPARTMENT", "department does not exist", err)
	case errors.Is(err, domain.ErrEmailTaken):
		return apperrors.NewStateConflict("EMAIL_TAKEN", "email already registered", err)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid credentials")
	case errors.Is(err, domain.ErrUnknownSubject):
		return apperrors.NewUnauthorized("invalid token")
	case errors.Is(err, domain.ErrInvalidRegistrationSecret):
		return apperrors.NewForbidden("forbidden")
	case errors.Is(err, auth.ErrWeakPassword):
		return apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("resource", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("resource already exists", nil)
	}
	return apperrors.NewInternalError(err)
}
