package service

import (
	"go.uber.org/zap"

	"github.com/civic-desk/complaint-service/internal/authz"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/observability"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

// gate asks the authorization guard and turns every denial into the same
// client-facing FORBIDDEN. The concrete reason only reaches logs and metrics.
type gate struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

func (g gate) check(actor *domain.User, op authz.Operation, target authz.Target) error {
	return g.deny(actor, op, authz.Check(authz.IdentityOf(actor), op, target))
}

// scope returns the department filter for listings and statistics.
func (g gate) scope(actor *domain.User, op authz.Operation) (*string, error) {
	dept, err := authz.ListScope(authz.IdentityOf(actor), op)
	if err != nil {
		return nil, g.deny(actor, op, err)
	}
	return dept, nil
}

func (g gate) deny(actor *domain.User, op authz.Operation, cause error) error {
	if cause == nil {
		return nil
	}
	id := authz.IdentityOf(actor)
	reason := authz.Reason(cause)
	g.logger.Info("authorization denied",
		zap.String("operation", string(op)),
		zap.String("reason", reason),
		zap.String("user_id", id.UserID),
		zap.String("role", string(id.Role)))
	g.metrics.Denial(string(op), reason)
	return apperrors.NewForbidden("forbidden")
}

// missing reports an unknown complaint. Department admins get the same
// FORBIDDEN as for an out-of-scope complaint so ids from other departments
// cannot be probed.
func (g gate) missing(actor *domain.User, op authz.Operation) error {
	if actor != nil && actor.Role == domain.RoleDepartmentAdmin {
		return g.deny(actor, op, authz.ErrOutOfScope)
	}
	return apperrors.NewNotFound("complaint", nil)
}
