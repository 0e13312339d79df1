package handlers

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/civic-desk/complaint-service/internal/api/dto"
	"github.com/civic-desk/complaint-service/internal/auth"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/service"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

func parseComplaintQuery(c *fiber.Ctx) service.ComplaintQuery {
	query := service.ComplaintQuery{}
	if dept := c.Query("department"); dept != "" {
		query.DepartmentName = &dept
	}
	if status := c.Query("status"); status != "" {
		query.Status = &status
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	query.Offset = (page - 1) * pageSize
	query.Limit = pageSize
	return query
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// formUpload reads an optional multipart file. A missing field, or a body
// that is not multipart at all, yields nil. A multipart body that cannot be
// parsed is rejected rather than filed without its media.
func formUpload(c *fiber.Ctx, field string) (*service.MediaUpload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.NewValidationError("malformed multipart body", map[string]any{"field": field})
	}
	return readUpload(header)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEMultipartForm)
}

func readUpload(header *multipart.FileHeader) (*service.MediaUpload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable upload", map[string]any{"file": header.Filename})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable upload", map[string]any{"file": header.Filename})
	}
	contentType := header.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == fiber.MIMEOctetStream {
		if guessed := mime.TypeByExtension(filepath.Ext(header.Filename)); guessed != "" {
			contentType = guessed
		}
	}
	return &service.MediaUpload{Data: data, ContentType: contentType, Filename: header.Filename}, nil
}

func complaintResponse(c *domain.Complaint) dto.ComplaintResponse {
	return dto.ComplaintResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		OwnerName:      c.OwnerName,
		DepartmentID:   c.DepartmentID,
		DepartmentName: c.DepartmentName,
		District:       c.District,
		Subcategory:    c.Subcategory,
		Title:          c.Title,
		Description:    c.Description,
		Location:       c.Location,
		Status:         string(c.Status),
		AdminResponse:  c.AdminResponse,
		ImagePath:      c.ImagePath,
		VoicePath:      c.VoicePath,
		UpdatedBy:      c.UpdatedBy,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func complaintResponses(items []domain.Complaint) []dto.ComplaintResponse {
	resp := make([]dto.ComplaintResponse, 0, len(items))
	for i := range items {
		resp = append(resp, complaintResponse(&items[i]))
	}
	return resp
}

func messageResponses(items []domain.ComplaintMessage) []dto.MessageResponse {
	resp := make([]dto.MessageResponse, 0, len(items))
	for i := range items {
		resp = append(resp, messageResponse(&items[i]))
	}
	return resp
}

func messageResponse(msg *domain.ComplaintMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:          msg.ID,
		ComplaintID: msg.ComplaintID,
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderName,
		SenderRole:  string(msg.SenderRole),
		Message:     msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
}

func historyResponses(entries []domain.StatusHistory) []dto.HistoryResponse {
	resp := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		var old *string
		if entry.OldStatus != nil {
			s := string(*entry.OldStatus)
			old = &s
		}
		resp = append(resp, dto.HistoryResponse{
			ID:        entry.ID,
			OldStatus: old,
			NewStatus: string(entry.NewStatus),
			ChangedBy: entry.ChangedBy,
			Note:      entry.Note,
			Timestamp: entry.Timestamp,
		})
	}
	return resp
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		DepartmentID:   u.DepartmentID,
		Phone:          u.Phone,
		Address:        u.Address,
		Age:            u.Age,
		Gender:         u.Gender,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

func statsResponse(s domain.ComplaintStats) dto.StatsResponse {
	return dto.StatsResponse{
		Total:       s.Total,
		Pending:     s.Pending,
		InProgress:  s.InProgress,
		Solved:      s.Solved,
		UpdatedByMe: s.UpdatedByMe,
	}
}
