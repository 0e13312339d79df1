package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civic-desk/complaint-service/internal/auth"
	"github.com/civic-desk/complaint-service/internal/config"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/repository"
	"github.com/civic-desk/complaint-service/internal/storage"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

const profilePrefix = "profiles"

// Session is an issued access token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// RegisterInput carries self-registration fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    *string
	Address  *string
	Age      *int
	Gender   *string
}

// AdminRegisterInput adds the admin tier and, for department admins, the
// department binding.
type AdminRegisterInput struct {
	RegisterInput
	AdminType    string
	DepartmentID *string
}

// ProfileInput holds the editable profile fields; nil leaves a field alone.
type ProfileInput struct {
	Name    *string
	Phone   *string
	Address *string
	Age     *int
	Gender  *string
}

// IdentityService is the identity and role directory: registration, login
// and resolution of verified tokens to accounts.
type IdentityService struct {
	users              repository.UserRepository
	departments        repository.DepartmentRepository
	resets             repository.PasswordResetRepository
	hasher             *auth.PasswordHasher
	tokens             *auth.TokenManager
	revoker            auth.TokenRevoker
	files              storage.FileStorage
	logger             *zap.Logger
	registrationSecret string
	resetTTL           time.Duration
	imageMaxBytes      int64
	now                func() time.Time
}

// IdentityDependencies encapsulates collaborators for the identity service.
type IdentityDependencies struct {
	UserRepo          repository.UserRepository
	DepartmentRepo    repository.DepartmentRepository
	PasswordResetRepo repository.PasswordResetRepository
	Tokens            *auth.TokenManager
	Revoker           auth.TokenRevoker
	Files             storage.FileStorage
	Logger            *zap.Logger
}

// NewIdentityService builds the service.
func NewIdentityService(cfg config.Config, deps IdentityDependencies) *IdentityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resetTTL := time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &IdentityService{
		users:              deps.UserRepo,
		departments:        deps.DepartmentRepo,
		resets:             deps.PasswordResetRepo,
		hasher:             auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		tokens:             deps.Tokens,
		revoker:            deps.Revoker,
		files:              deps.Files,
		logger:             logger,
		registrationSecret: cfg.Auth.AdminRegistrationSecret,
		resetTTL:           resetTTL,
		imageMaxBytes:      cfg.Storage.ImageMaxBytes(),
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// RegisterCitizen creates a citizen account. Only email uniqueness is required.
func (s *IdentityService) RegisterCitizen(ctx context.Context, input RegisterInput) (*domain.User, *Session, error) {
	user, err := s.newUser(input, domain.RoleCitizen, nil)
	if err != nil {
		return nil, nil, err
	}
	return s.createAndIssue(ctx, user)
}

// RegisterAdmin creates an intake or department admin. The pre-shared
// registration secret is checked first; an unset secret disables admin
// registration entirely.
func (s *IdentityService) RegisterAdmin(ctx context.Context, secret string, input AdminRegisterInput) (*domain.User, *Session, error) {
	if s.registrationSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(s.registrationSecret)) != 1 {
		s.logger.Info("admin registration refused", zap.String("reason", "registration_secret"))
		return nil, nil, translateError(domain.ErrInvalidRegistrationSecret)
	}

	role, err := domain.ParseRole(input.AdminType)
	if err != nil || !role.IsAdmin() {
		return nil, nil, apperrors.NewValidationError("admin_type must be intake_admin or department_admin",
			map[string]any{"admin_type": input.AdminType})
	}

	deptID := trimmedOrNil(input.DepartmentID)
	if err := domain.ValidateBinding(role, deptID); err != nil {
		return nil, nil, translateError(err)
	}
	if deptID != nil {
		if _, err := s.departments.GetByID(ctx, *deptID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil, translateError(domain.ErrUnknownDepartment)
			}
			return nil, nil, translateError(err)
		}
	}

	user, err := s.newUser(input.RegisterInput, role, deptID)
	if err != nil {
		return nil, nil, err
	}
	return s.createAndIssue(ctx, user)
}

func (s *IdentityService) newUser(input RegisterInput, role domain.Role, deptID *string) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if input.Age != nil && (*input.Age < 0 || *input.Age > 150) {
		return nil, apperrors.NewValidationError("age out of range", map[string]any{"field": "age"})
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, translateError(err)
	}
	return &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        trimmedOrNil(input.Phone),
		Address:      trimmedOrNil(input.Address),
		Age:          input.Age,
		Gender:       trimmedOrNil(input.Gender),
		Role:         role,
		DepartmentID: deptID,
	}, nil
}

func (s *IdentityService) createAndIssue(ctx context.Context, user *domain.User) (*domain.User, *Session, error) {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, translateError(domain.ErrEmailTaken)
		}
		return nil, nil, translateError(err)
	}
	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("account registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, session, nil
}

// Login authenticates by email and password.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*domain.User, *Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, translateError(domain.ErrInvalidCredentials)
		}
		return nil, nil, translateError(err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, translateError(domain.ErrInvalidCredentials)
	}
	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

func (s *IdentityService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokens.GenerateToken(user.Email, user.Role, user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{Token: token, ExpiresAt: exp}, nil
}

// Resolve loads the account a verified token speaks for. A token whose
// account is gone or whose email no longer matches is an unknown subject.
func (s *IdentityService) Resolve(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnknownSubject
		}
		return nil, err
	}
	if !strings.EqualFold(user.Email, claims.Subject) || user.Role != claims.Role {
		return nil, domain.ErrUnknownSubject
	}
	return user, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *IdentityService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// UpdateProfile applies the provided profile fields.
func (s *IdentityService) UpdateProfile(ctx context.Context, actor *domain.User, input ProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, translateError(err)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
		}
		user.Name = name
	}
	if input.Phone != nil {
		user.Phone = trimmedOrNil(input.Phone)
	}
	if input.Address != nil {
		user.Address = trimmedOrNil(input.Address)
	}
	if input.Age != nil {
		if *input.Age < 0 || *input.Age > 150 {
			return nil, apperrors.NewValidationError("age out of range", map[string]any{"field": "age"})
		}
		user.Age = input.Age
	}
	if input.Gender != nil {
		user.Gender = trimmedOrNil(input.Gender)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

// UploadProfilePicture stores a new picture and replaces the previous one.
func (s *IdentityService) UploadProfilePicture(ctx context.Context, actor *domain.User, upload MediaUpload) (*domain.User, error) {
	if err := validateMedia("file", &upload, "image/", s.imageMaxBytes); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, translateError(err)
	}

	locator, err := s.files.Store(ctx, profilePrefix, upload.Data, upload.ContentType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	previous := user.ProfilePicture
	user.ProfilePicture = &locator
	if err := s.users.Update(ctx, user); err != nil {
		if delErr := s.files.Delete(ctx, locator); delErr != nil {
			s.logger.Warn("media cleanup failed", zap.String("locator", locator), zap.Error(delErr))
		}
		return nil, translateError(err)
	}
	if previous != nil && *previous != "" {
		if err := s.files.Delete(ctx, *previous); err != nil {
			s.logger.Warn("old profile picture not removed", zap.String("locator", *previous), zap.Error(err))
		}
	}
	return user, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *IdentityService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return translateError(err)
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return translateError(domain.ErrInvalidCredentials)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return translateError(err)
	}
	user.PasswordHash = hash
	return translateError(s.users.Update(ctx, user))
}

// RequestPasswordReset issues a one-time token. Unknown emails yield a nil
// token and no error so the endpoint does not reveal which accounts exist.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, translateError(err)
	}
	s.logger.Info("password reset requested", zap.String("user_id", user.ID))
	return token, nil
}

// ConfirmPasswordReset redeems the token and sets the new password.
func (s *IdentityService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	invalid := apperrors.NewValidationError("reset token is invalid or expired", map[string]any{"field": "token"})

	token, err := s.resets.GetByToken(ctx, strings.TrimSpace(tokenStr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return translateError(err)
	}
	if !token.Usable(s.now()) {
		return invalid
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return translateError(err)
	}
	if err := s.resets.Redeem(ctx, token.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return translateError(err)
	}
	s.logger.Info("password reset redeemed", zap.String("user_id", token.UserID))
	return nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
	}
	return trimmed, nil
}
