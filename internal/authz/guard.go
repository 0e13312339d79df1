// Package authz holds the single authorization decision point for complaint
// operations. Every function here is pure: it reads only the identity and the
// target it is handed.
package authz

import (
	"errors"

	"github.com/civic-desk/complaint-service/internal/domain"
)

// Operation names an action an identity wants to perform.
type Operation string

const (
	OpCreateComplaint   Operation = "complaint.create"
	OpReadComplaint     Operation = "complaint.read"
	OpListComplaints    Operation = "complaint.list"
	OpEditComplaint     Operation = "complaint.edit"
	OpDeleteComplaint   Operation = "complaint.delete"
	OpSetStatus         Operation = "complaint.set_status"
	OpMarkInProgress    Operation = "complaint.mark_in_progress"
	OpResolve           Operation = "complaint.resolve"
	OpAppendResponse    Operation = "complaint.append_response"
	OpPostMessage       Operation = "message.post"
	OpReadMessages      Operation = "message.read"
	OpReadHistory       Operation = "history.read"
	OpReadStats         Operation = "stats.read"
	OpManageDepartments Operation = "department.manage"
)

// Denial causes. Callers must not expose these to clients.
var (
	ErrUnrecognizedIdentity = errors.New("identity has no recognized role or binding")
	ErrRoleDenied           = errors.New("operation not permitted for role")
	ErrNotOwner             = errors.New("complaint not owned by caller")
	ErrOutOfScope           = errors.New("complaint outside department scope")
	ErrSolvedForbidden      = errors.New("role may not set solved through this operation")
)

// Identity is the resolved caller as seen by the guard.
type Identity struct {
	UserID       string
	Role         domain.Role
	DepartmentID string
}

// IdentityOf projects a user record onto the guard's view of it.
func IdentityOf(u *domain.User) Identity {
	if u == nil {
		return Identity{}
	}
	id := Identity{UserID: u.ID, Role: u.Role}
	if u.DepartmentID != nil {
		id.DepartmentID = *u.DepartmentID
	}
	return id
}

// Target describes the complaint an operation acts on. RequestedStatus is only
// read for OpSetStatus.
type Target struct {
	OwnerID         string
	DepartmentID    string
	RequestedStatus domain.ComplaintStatus
}

// TargetOf builds a Target from a stored complaint.
func TargetOf(c *domain.Complaint) Target {
	if c == nil {
		return Target{}
	}
	return Target{OwnerID: c.UserID, DepartmentID: c.DepartmentID}
}

// WithStatus returns a copy of t requesting status.
func (t Target) WithStatus(status domain.ComplaintStatus) Target {
	t.RequestedStatus = status
	return t
}

// Allow reports whether id may perform op on target.
func Allow(id Identity, op Operation, target Target) bool {
	return Check(id, op, target) == nil
}

// Check returns nil when id may perform op on target, otherwise the denial cause.
func Check(id Identity, op Operation, target Target) error {
	if !recognized(id) {
		return ErrUnrecognizedIdentity
	}
	switch id.Role {
	case domain.RoleCitizen:
		return checkCitizen(id, op, target)
	case domain.RoleIntakeAdmin:
		return checkIntakeAdmin(op, target)
	case domain.RoleDepartmentAdmin:
		return checkDepartmentAdmin(id, op, target)
	}
	return ErrUnrecognizedIdentity
}

func checkCitizen(id Identity, op Operation, target Target) error {
	switch op {
	case OpCreateComplaint, OpReadComplaint:
		return nil
	case OpEditComplaint, OpDeleteComplaint, OpPostMessage, OpReadMessages, OpReadHistory:
		if target.OwnerID == "" || target.OwnerID != id.UserID {
			return ErrNotOwner
		}
		return nil
	}
	return ErrRoleDenied
}

func checkIntakeAdmin(op Operation, target Target) error {
	switch op {
	case OpReadComplaint, OpListComplaints, OpAppendResponse, OpPostMessage,
		OpReadMessages, OpReadHistory, OpReadStats, OpManageDepartments, OpResolve:
		return nil
	case OpSetStatus:
		switch target.RequestedStatus {
		case domain.StatusPending, domain.StatusInProgress:
			return nil
		case domain.StatusSolved:
			return ErrSolvedForbidden
		}
	}
	return ErrRoleDenied
}

func checkDepartmentAdmin(id Identity, op Operation, target Target) error {
	switch op {
	case OpListComplaints, OpReadStats:
		return nil
	case OpReadComplaint, OpAppendResponse, OpPostMessage, OpReadMessages, OpReadHistory, OpMarkInProgress:
		return inScope(id, target)
	case OpSetStatus:
		switch target.RequestedStatus {
		case domain.StatusInProgress:
			return inScope(id, target)
		case domain.StatusSolved:
			return ErrSolvedForbidden
		}
	case OpResolve:
		return ErrSolvedForbidden
	}
	return ErrRoleDenied
}

func inScope(id Identity, target Target) error {
	if target.DepartmentID == "" || target.DepartmentID != id.DepartmentID {
		return ErrOutOfScope
	}
	return nil
}

func recognized(id Identity) bool {
	if id.UserID == "" {
		return false
	}
	var dept *string
	if id.DepartmentID != "" {
		dept = &id.DepartmentID
	}
	return domain.ValidateBinding(id.Role, dept) == nil
}

// ListScope returns the department filter that must be applied at the query
// boundary for listings and statistics. A nil filter means all departments.
func ListScope(id Identity, op Operation) (*string, error) {
	if err := Check(id, op, Target{}); err != nil {
		return nil, err
	}
	if id.Role == domain.RoleDepartmentAdmin {
		dept := id.DepartmentID
		return &dept, nil
	}
	return nil, nil
}

// Reason maps a denial to a short label suitable for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, ErrOutOfScope):
		return "out_of_scope"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrSolvedForbidden):
		return "solved_forbidden"
	case errors.Is(err, ErrRoleDenied):
		return "role"
	case errors.Is(err, ErrUnrecognizedIdentity):
		return "unrecognized_identity"
	}
	return "unknown"
}
