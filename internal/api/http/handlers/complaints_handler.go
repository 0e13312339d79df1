package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civic-desk/complaint-service/internal/api/dto"
	"github.com/civic-desk/complaint-service/internal/service"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

// ComplaintsHandler serves the public feed and citizen complaint endpoints.
type ComplaintsHandler struct {
	workflow *service.WorkflowService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(workflow *service.WorkflowService) *ComplaintsHandler {
	return &ComplaintsHandler{workflow: workflow}
}

// Create handles POST /api/complaints. Accepts multipart form data with the
// optional files image and voice_recording, or a plain JSON body.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	image, err := formUpload(c, "image")
	if err != nil {
		return err
	}
	voice, err := formUpload(c, "voice_recording")
	if err != nil {
		return err
	}

	complaint, err := h.workflow.CreateComplaint(c.UserContext(), user, service.CreateComplaintInput{
		DepartmentName: req.Department,
		District:       req.District,
		Subcategory:    req.Subcategory,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		Image:          image,
		Voice:          voice,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// List handles GET /api/complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	items, err := h.workflow.ListComplaints(c.UserContext(), parseComplaintQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponses(items)})
}

// Get handles GET /api/complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	complaint, err := h.workflow.GetComplaint(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Mine handles GET /api/complaints/me.
func (h *ComplaintsHandler) Mine(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.workflow.ListMyComplaints(c.UserContext(), user, parseComplaintQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponses(items)})
}

// Update handles PUT /api/complaints/:id.
func (h *ComplaintsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.workflow.UpdateComplaint(c.UserContext(), user, c.Params("id"), req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// Delete handles DELETE /api/complaints/:id.
func (h *ComplaintsHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.workflow.DeleteComplaint(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// PostMessage handles POST /api/complaints/:id/messages and its admin alias.
func (h *ComplaintsHandler) PostMessage(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.workflow.PostMessage(c.UserContext(), user, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// ListMessages handles GET /api/complaints/:id/messages. The optional
// sender_role query narrows the thread to one role.
func (h *ComplaintsHandler) ListMessages(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var senderRole *string
	if role := c.Query("sender_role"); role != "" {
		senderRole = &role
	}
	items, err := h.workflow.ListMessages(c.UserContext(), user, c.Params("id"), senderRole)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponses(items)})
}

// History handles GET /api/complaints/:id/history.
func (h *ComplaintsHandler) History(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.workflow.ListHistory(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}
