package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-desk/complaint-service/internal/api/dto"
	"github.com/civic-desk/complaint-service/internal/service"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

// AdminHandler serves both admin tiers. Routes do not check roles; the
// workflow service asks the authorization guard on every call.
type AdminHandler struct {
	workflow *service.WorkflowService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(workflow *service.WorkflowService) *AdminHandler {
	return &AdminHandler{workflow: workflow}
}

// List handles GET /api/admin/{c-admin,cm-admin}/complaints.
func (h *AdminHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.workflow.AdminListComplaints(c.UserContext(), user, parseComplaintQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponses(items)})
}

// Get handles GET /api/admin/{c-admin,cm-admin}/complaints/:id.
func (h *AdminHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	complaint, err := h.workflow.AdminGetComplaint(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Update handles PUT /api/admin/{c-admin,cm-admin}/complaints/:id.
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.workflow.AdminUpdate(c.UserContext(), user, c.Params("id"), service.AdminUpdateInput{
		Status:   req.Status,
		Response: req.AdminResponse,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Solve handles PUT /api/admin/c-admin/complaints/:id/solve.
func (h *AdminHandler) Solve(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	complaint, err := h.workflow.Resolve(c.UserContext(), user, c.Params("id"), req.AdminResponse)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// MarkInProgress handles PUT /api/admin/cm-admin/complaints/:id/in-progress.
func (h *AdminHandler) MarkInProgress(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	complaint, err := h.workflow.MarkInProgress(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Respond handles POST /api/admin/complaints/:id/responses.
func (h *AdminHandler) Respond(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.workflow.AppendResponse(c.UserContext(), user, c.Params("id"), req.AdminResponse)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Stats handles GET /api/admin/stats and GET /api/admin/cm-admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.workflow.Stats(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statsResponse(stats)})
}
