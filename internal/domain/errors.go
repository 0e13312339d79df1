package domain

import "errors"

// Workflow errors raised by the complaint state machine and the identity directory.
var (
	ErrInvalidTransition         = errors.New("status transition not allowed")
	ErrAlreadySolved             = errors.New("complaint already solved")
	ErrAlreadyInState            = errors.New("complaint already in requested status")
	ErrImmutableAfterProcessing  = errors.New("complaint cannot be changed after it has been processed")
	ErrUnknownStatus             = errors.New("unknown complaint status")
	ErrUnknownRole               = errors.New("unknown role")
	ErrDepartmentRequired        = errors.New("department binding required for department admin")
	ErrUnexpectedDepartment      = errors.New("only department admins carry a department binding")
	ErrUnknownSubject            = errors.New("token subject does not match any user")
	ErrInvalidRegistrationSecret = errors.New("invalid admin registration secret")
	ErrUnknownDepartment         = errors.New("unknown department")
	ErrEmailTaken                = errors.New("email already registered")
	ErrInvalidCredentials        = errors.New("invalid credentials")
)
