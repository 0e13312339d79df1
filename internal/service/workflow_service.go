package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civic-desk/complaint-service/internal/authz"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/events"
	"github.com/civic-desk/complaint-service/internal/observability"
	"github.com/civic-desk/complaint-service/internal/repository"
	"github.com/civic-desk/complaint-service/internal/storage"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

const (
	imagePrefix = "complaints/images"
	voicePrefix = "complaints/voice"
)

// WorkflowService orchestrates every complaint operation: it asks the guard,
// applies the change through the row-locked store and publishes the outcome.
type WorkflowService struct {
	complaints    repository.ComplaintRepository
	history       repository.StatusHistoryRepository
	messages      repository.ComplaintMessageRepository
	files         storage.FileStorage
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	gate          gate
	imageMaxBytes int64
	now           func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	HistoryRepo   repository.StatusHistoryRepository
	MessageRepo   repository.ComplaintMessageRepository
	Files         storage.FileStorage
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	ImageMaxBytes int64
}

// MediaUpload is a file received with a request.
type MediaUpload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// CreateComplaintInput describes complaint creation payload.
type CreateComplaintInput struct {
	DepartmentName string
	District       string
	Subcategory    string
	Title          string
	Description    string
	Location       *string
	Image          *MediaUpload
	Voice          *MediaUpload
}

// ComplaintQuery describes listing filters. Department scope for admins is
// added by the service, never taken from the caller.
type ComplaintQuery struct {
	DepartmentName *string
	Status         *string
	Limit          int
	Offset         int
}

// AdminUpdateInput is the general admin update: an optional status change and
// an optional response note, applied together.
type AdminUpdateInput struct {
	Status   *string
	Response *string
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := deps.ImageMaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &WorkflowService{
		complaints:    deps.ComplaintRepo,
		history:       deps.HistoryRepo,
		messages:      deps.MessageRepo,
		files:         deps.Files,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		gate:          gate{logger: logger, metrics: deps.Metrics},
		imageMaxBytes: maxBytes,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateComplaint files a new pending complaint. Media is uploaded, in
// parallel, before the row is committed; if the insert fails the uploads are
// removed again.
func (s *WorkflowService) CreateComplaint(ctx context.Context, actor *domain.User, input CreateComplaintInput) (*domain.Complaint, error) {
	if err := s.gate.check(actor, authz.OpCreateComplaint, authz.Target{OwnerID: actor.ID}); err != nil {
		return nil, err
	}
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	var imagePath, voicePath string
	g, gctx := errgroup.WithContext(ctx)
	if input.Image != nil {
		g.Go(func() error {
			locator, err := s.files.Store(gctx, imagePrefix, input.Image.Data, input.Image.ContentType)
			if err != nil {
				return fmt.Errorf("store image: %w", err)
			}
			imagePath = locator
			return nil
		})
	}
	if input.Voice != nil {
		g.Go(func() error {
			locator, err := s.files.Store(gctx, voicePrefix, input.Voice.Data, input.Voice.ContentType)
			if err != nil {
				return fmt.Errorf("store voice recording: %w", err)
			}
			voicePath = locator
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discardMedia(ctx, imagePath, voicePath)
		return nil, apperrors.NewInternalError(err)
	}

	draft := domain.ComplaintDraft{
		DepartmentName: input.DepartmentName,
		District:       input.District,
		Subcategory:    input.Subcategory,
		Title:          input.Title,
		Description:    input.Description,
		Location:       trimmedOrNil(input.Location),
		ImagePath:      nonEmpty(imagePath),
		VoicePath:      nonEmpty(voicePath),
	}
	complaint, entry := domain.NewComplaint(actor, draft, s.now())
	if err := s.complaints.Create(ctx, complaint, entry); err != nil {
		s.discardMedia(ctx, imagePath, voicePath)
		return nil, translateError(err)
	}

	s.metrics.ComplaintCreated(complaint.DepartmentName)
	s.publishEvent(ctx, events.NewEvent(events.EventComplaintCreated, complaint, actorOf(actor),
		events.ComplaintCreatedPayload{
			DepartmentName: complaint.DepartmentName,
			Title:          complaint.Title,
			District:       complaint.District,
		}))
	return complaint, nil
}

func (s *WorkflowService) validateCreate(input CreateComplaintInput) error {
	missing := map[string]any{}
	if strings.TrimSpace(input.DepartmentName) == "" {
		missing["department"] = "required"
	}
	if strings.TrimSpace(input.Title) == "" {
		missing["title"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		missing["description"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", missing)
	}
	if input.Image != nil {
		if err := validateMedia("image", input.Image, "image/", s.imageMaxBytes); err != nil {
			return err
		}
	}
	if input.Voice != nil {
		if err := validateMedia("voice_recording", input.Voice, "audio/", 0); err != nil {
			return err
		}
	}
	return nil
}

// validateMedia enforces the content-type prefix and, when maxBytes > 0, the size cap.
func validateMedia(field string, upload *MediaUpload, prefix string, maxBytes int64) error {
	if len(upload.Data) == 0 {
		return apperrors.NewValidationError(field+" is empty", map[string]any{"field": field})
	}
	if !strings.HasPrefix(strings.ToLower(upload.ContentType), prefix) {
		return apperrors.NewValidationError(field+" has an unsupported content type", map[string]any{
			"field":        field,
			"content_type": upload.ContentType,
		})
	}
	if maxBytes > 0 && int64(len(upload.Data)) > maxBytes {
		return apperrors.NewValidationError(field+" is too large", map[string]any{
			"field":     field,
			"max_bytes": maxBytes,
		})
	}
	return nil
}

// discardMedia removes stored files best-effort; failures are only logged.
func (s *WorkflowService) discardMedia(ctx context.Context, locators ...string) {
	for _, locator := range locators {
		if locator == "" {
			continue
		}
		if err := s.files.Delete(ctx, locator); err != nil {
			s.logger.Warn("media cleanup failed", zap.String("locator", locator), zap.Error(err))
		}
	}
}

// ListComplaints is the public complaint feed.
func (s *WorkflowService) ListComplaints(ctx context.Context, query ComplaintQuery) ([]domain.Complaint, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	items, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// GetComplaint is the public single-complaint read.
func (s *WorkflowService) GetComplaint(ctx context.Context, id string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("complaint", nil)
		}
		return nil, translateError(err)
	}
	return complaint, nil
}

// ListMyComplaints returns the complaints filed by actor.
func (s *WorkflowService) ListMyComplaints(ctx context.Context, actor *domain.User, query ComplaintQuery) ([]domain.Complaint, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	filter.UserID = &actor.ID
	items, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// UpdateComplaint lets the owner edit title and description while pending.
func (s *WorkflowService) UpdateComplaint(ctx context.Context, actor *domain.User, id string, title, description *string) (*domain.Complaint, error) {
	if isBlank(title) && isBlank(description) {
		return nil, apperrors.NewValidationError("nothing to update", map[string]any{"fields": []string{"title", "description"}})
	}
	return s.mutate(ctx, actor, authz.OpEditComplaint, id, func(c *domain.Complaint) (*domain.StatusHistory, error) {
		if err := s.gate.check(actor, authz.OpEditComplaint, authz.TargetOf(c)); err != nil {
			return nil, err
		}
		return nil, c.Edit(title, description, s.now())
	})
}

// DeleteComplaint withdraws a pending complaint. The row and its children are
// deleted first; media removal afterwards is best-effort.
func (s *WorkflowService) DeleteComplaint(ctx context.Context, actor *domain.User, id string) error {
	deleted, err := s.complaints.Delete(ctx, id, func(c *domain.Complaint) error {
		if err := s.gate.check(actor, authz.OpDeleteComplaint, authz.TargetOf(c)); err != nil {
			return err
		}
		return c.CheckDeletable()
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.gate.missing(actor, authz.OpDeleteComplaint)
		}
		return translateError(err)
	}

	s.discardMedia(ctx, deleted.MediaPaths()...)
	s.publishEvent(ctx, events.NewEvent(events.EventComplaintDeleted, deleted, actorOf(actor),
		events.ComplaintDeletedPayload{Title: deleted.Title}))
	return nil
}

// AdminListComplaints lists complaints within the admin's scope.
func (s *WorkflowService) AdminListComplaints(ctx context.Context, actor *domain.User, query ComplaintQuery) ([]domain.Complaint, error) {
	scope, err := s.gate.scope(actor, authz.OpListComplaints)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	filter.DepartmentID = scope
	items, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// AdminGetComplaint reads one complaint through the guard.
func (s *WorkflowService) AdminGetComplaint(ctx context.Context, actor *domain.User, id string) (*domain.Complaint, error) {
	return s.load(ctx, actor, authz.OpReadComplaint, id)
}

// AdminUpdate applies an optional status change and an optional response
// note as one unit.
func (s *WorkflowService) AdminUpdate(ctx context.Context, actor *domain.User, id string, input AdminUpdateInput) (*domain.Complaint, error) {
	var target *domain.ComplaintStatus
	if !isBlank(input.Status) {
		status, err := domain.ParseStatus(*input.Status)
		if err != nil {
			return nil, translateError(err)
		}
		target = &status
	}
	respond := !isBlank(input.Response)
	if target == nil && !respond {
		return nil, apperrors.NewValidationError("nothing to update", map[string]any{"fields": []string{"status", "admin_response"}})
	}

	var transition *domain.StatusHistory
	updated, err := s.mutate(ctx, actor, authz.OpSetStatus, id, func(c *domain.Complaint) (*domain.StatusHistory, error) {
		if target != nil {
			if err := s.gate.check(actor, authz.OpSetStatus, authz.TargetOf(c).WithStatus(*target)); err != nil {
				return nil, err
			}
		}
		if respond {
			if err := s.gate.check(actor, authz.OpAppendResponse, authz.TargetOf(c)); err != nil {
				return nil, err
			}
		}

		now := s.now()
		if target != nil {
			entry, err := c.Transition(actor.ID, *target, statusNote(actor.Role, *target), now)
			if err != nil {
				return nil, err
			}
			transition = entry
		}
		if respond {
			if err := c.AppendResponse(actor.Role, actor.ID, *input.Response, now); err != nil {
				return nil, err
			}
		}
		return transition, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, updated, transition)
	if respond {
		s.publishResponse(ctx, actor, updated, *input.Response)
	}
	return updated, nil
}

// MarkInProgress is the department admin's dedicated progress operation.
func (s *WorkflowService) MarkInProgress(ctx context.Context, actor *domain.User, id string) (*domain.Complaint, error) {
	var transition *domain.StatusHistory
	updated, err := s.mutate(ctx, actor, authz.OpMarkInProgress, id, func(c *domain.Complaint) (*domain.StatusHistory, error) {
		if err := s.gate.check(actor, authz.OpMarkInProgress, authz.TargetOf(c)); err != nil {
			return nil, err
		}
		entry, err := c.Transition(actor.ID, domain.StatusInProgress, "Marked in-progress by "+actor.Role.Label(), s.now())
		if err != nil {
			return nil, err
		}
		transition = entry
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, actor, updated, transition)
	return updated, nil
}

// Resolve moves a complaint to solved, optionally appending a final note in
// the same unit.
func (s *WorkflowService) Resolve(ctx context.Context, actor *domain.User, id string, response *string) (*domain.Complaint, error) {
	respond := !isBlank(response)
	var transition *domain.StatusHistory
	updated, err := s.mutate(ctx, actor, authz.OpResolve, id, func(c *domain.Complaint) (*domain.StatusHistory, error) {
		if err := s.gate.check(actor, authz.OpResolve, authz.TargetOf(c)); err != nil {
			return nil, err
		}
		if err := domain.CheckTransition(c.Status, domain.StatusSolved); err != nil {
			return nil, err
		}
		now := s.now()
		if respond {
			if err := c.AppendResponse(actor.Role, actor.ID, *response, now); err != nil {
				return nil, err
			}
		}
		entry, err := c.Transition(actor.ID, domain.StatusSolved, "Marked solved by "+actor.Role.Label(), now)
		if err != nil {
			return nil, err
		}
		transition = entry
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, actor, updated, transition)
	if respond {
		s.publishResponse(ctx, actor, updated, *response)
	}
	return updated, nil
}

// AppendResponse adds an attributed note without changing status.
func (s *WorkflowService) AppendResponse(ctx context.Context, actor *domain.User, id, text string) (*domain.Complaint, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("response text is required", map[string]any{"field": "admin_response"})
	}
	updated, err := s.mutate(ctx, actor, authz.OpAppendResponse, id, func(c *domain.Complaint) (*domain.StatusHistory, error) {
		if err := s.gate.check(actor, authz.OpAppendResponse, authz.TargetOf(c)); err != nil {
			return nil, err
		}
		return nil, c.AppendResponse(actor.Role, actor.ID, text, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.publishResponse(ctx, actor, updated, text)
	return updated, nil
}

// PostMessage appends a message to the complaint thread.
func (s *WorkflowService) PostMessage(ctx context.Context, actor *domain.User, id, body string) (*domain.ComplaintMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", map[string]any{"field": "message"})
	}
	complaint, err := s.load(ctx, actor, authz.OpPostMessage, id)
	if err != nil {
		return nil, err
	}

	msg := &domain.ComplaintMessage{
		ComplaintID: complaint.ID,
		SenderID:    actor.ID,
		SenderName:  actor.Name,
		SenderRole:  actor.Role,
		Body:        body,
		CreatedAt:   s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.gate.missing(actor, authz.OpPostMessage)
		}
		return nil, translateError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventComplaintMessageAdded, complaint, actorOf(actor),
		events.ComplaintMessageAddedPayload{MessageID: msg.ID, BodyPreview: events.Preview(body)}))
	return msg, nil
}

// ListMessages returns the thread, optionally only messages from one sender role.
func (s *WorkflowService) ListMessages(ctx context.Context, actor *domain.User, id string, senderRole *string) ([]domain.ComplaintMessage, error) {
	var roleFilter *domain.Role
	if !isBlank(senderRole) {
		role, err := domain.ParseRole(*senderRole)
		if err != nil {
			return nil, apperrors.NewValidationError("unknown sender role", map[string]any{"sender_role": *senderRole})
		}
		roleFilter = &role
	}
	complaint, err := s.load(ctx, actor, authz.OpReadMessages, id)
	if err != nil {
		return nil, err
	}
	items, err := s.messages.ListByComplaint(ctx, complaint.ID, roleFilter)
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// ListHistory returns the audit trail of a complaint, oldest first.
func (s *WorkflowService) ListHistory(ctx context.Context, actor *domain.User, id string) ([]domain.StatusHistory, error) {
	complaint, err := s.load(ctx, actor, authz.OpReadHistory, id)
	if err != nil {
		return nil, err
	}
	items, err := s.history.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// Stats returns dashboard counts. Department admins are filtered to their
// department inside the query.
func (s *WorkflowService) Stats(ctx context.Context, actor *domain.User) (domain.ComplaintStats, error) {
	scope, err := s.gate.scope(actor, authz.OpReadStats)
	if err != nil {
		return domain.ComplaintStats{}, err
	}
	stats, err := s.complaints.Stats(ctx, repository.StatsFilter{DepartmentID: scope, ActorID: actor.ID})
	if err != nil {
		return domain.ComplaintStats{}, translateError(err)
	}
	return stats, nil
}

// load fetches a complaint and checks op against it.
func (s *WorkflowService) load(ctx context.Context, actor *domain.User, op authz.Operation, id string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.gate.missing(actor, op)
		}
		return nil, translateError(err)
	}
	if err := s.gate.check(actor, op, authz.TargetOf(complaint)); err != nil {
		return nil, err
	}
	return complaint, nil
}

func (s *WorkflowService) mutate(ctx context.Context, actor *domain.User, op authz.Operation, id string, fn repository.MutateFunc) (*domain.Complaint, error) {
	updated, err := s.complaints.Mutate(ctx, id, fn)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.gate.missing(actor, op)
		}
		return nil, translateError(err)
	}
	return updated, nil
}

func (s *WorkflowService) afterTransition(ctx context.Context, actor *domain.User, complaint *domain.Complaint, entry *domain.StatusHistory) {
	if entry == nil || entry.OldStatus == nil {
		return
	}
	s.metrics.Transition(string(*entry.OldStatus), string(entry.NewStatus))
	s.publishEvent(ctx, events.NewEvent(events.EventComplaintStatusChanged, complaint, actorOf(actor),
		events.ComplaintStatusChangedPayload{
			OldStatus: *entry.OldStatus,
			NewStatus: entry.NewStatus,
			Note:      entry.Note,
		}))
}

func (s *WorkflowService) publishResponse(ctx context.Context, actor *domain.User, complaint *domain.Complaint, text string) {
	s.publishEvent(ctx, events.NewEvent(events.EventComplaintResponseAppended, complaint, actorOf(actor),
		events.ComplaintResponseAppendedPayload{Preview: events.Preview(strings.TrimSpace(text))}))
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// statusNote is the history note for a status set through the general
// update path.
func statusNote(role domain.Role, to domain.ComplaintStatus) string {
	if to == domain.StatusInProgress && role == domain.RoleDepartmentAdmin {
		return "Marked in-progress by " + role.Label()
	}
	return fmt.Sprintf("Status set to %s by %s", to, role.Label())
}

func buildFilter(query ComplaintQuery) (repository.ComplaintFilter, error) {
	filter := repository.ComplaintFilter{
		DepartmentName: trimmedOrNil(query.DepartmentName),
		Limit:          query.Limit,
		Offset:         query.Offset,
	}
	if !isBlank(query.Status) {
		status, err := domain.ParseStatus(*query.Status)
		if err != nil {
			return filter, translateError(err)
		}
		filter.Status = &status
	}
	return filter, nil
}

func actorOf(u *domain.User) events.Actor {
	return events.Actor{UserID: u.ID, Role: u.Role}
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func trimmedOrNil(s *string) *string {
	if isBlank(s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
