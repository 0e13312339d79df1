package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civic-desk/complaint-service/internal/api/dto"
	"github.com/civic-desk/complaint-service/internal/auth"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/service"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

// AdminSecretHeader carries the admin registration secret.
const AdminSecretHeader = "X-Admin-Secret"

// AuthHandler exposes registration, login and account endpoints.
type AuthHandler struct {
	identity          *service.IdentityService
	exposeResetTokens bool
}

// NewAuthHandler constructs handler. exposeResetTokens returns reset tokens
// in the response body, for environments without mail delivery.
func NewAuthHandler(identity *service.IdentityService, exposeResetTokens bool) *AuthHandler {
	return &AuthHandler{identity: identity, exposeResetTokens: exposeResetTokens}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}
	user, session, err := h.identity.RegisterCitizen(c.UserContext(), registerInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionBody(user, session)})
}

// RegisterAdmin handles POST /api/auth/register/admin.
func (h *AuthHandler) RegisterAdmin(c *fiber.Ctx) error {
	var req dto.AdminRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.AdminType == "" {
		return apperrors.NewValidationError("name, email, password, admin_type required", nil)
	}
	secret := c.Get(AdminSecretHeader)
	if secret == "" {
		secret = req.Secret
	}
	user, session, err := h.identity.RegisterAdmin(c.UserContext(), secret, service.AdminRegisterInput{
		RegisterInput: registerInput(req.RegisterRequest),
		AdminType:     req.AdminType,
		DepartmentID:  req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionBody(user, session)})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	user, session, err := h.identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionBody(user, session)})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.identity.Logout(c.UserContext(), principal.Claims); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// UpdateMe handles PUT /api/auth/me.
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.identity.UpdateProfile(c.UserContext(), user, service.ProfileInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Age:     req.Age,
		Gender:  req.Gender,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(updated)})
}

// UploadProfilePicture handles POST /api/auth/upload-profile-picture.
func (h *AuthHandler) UploadProfilePicture(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", map[string]any{"field": "file"})
	}
	upload, err := readUpload(header)
	if err != nil {
		return err
	}
	updated, err := h.identity.UploadProfilePicture(c.UserContext(), user, *upload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(updated)})
}

// ChangePassword handles POST /api/auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password and new_password required", nil)
	}
	if err := h.identity.ChangePassword(c.UserContext(), user, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RequestPasswordReset handles POST /api/auth/password/reset/request. The
// response is the same whether or not the email is registered.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	token, err := h.identity.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	body := fiber.Map{"status": "reset_requested"}
	if h.exposeResetTokens && token != nil {
		body["token"] = token.Token
		body["expires_at"] = token.ExpiresAt
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": body})
}

// ConfirmPasswordReset handles POST /api/auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new_password required", nil)
	}
	if err := h.identity.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func registerInput(req dto.RegisterRequest) service.RegisterInput {
	return service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		Age:      req.Age,
		Gender:   req.Gender,
	}
}

func sessionBody(user *domain.User, session *service.Session) fiber.Map {
	return fiber.Map{
		"user": userResponse(user),
		"auth": dto.AuthResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
	}
}
