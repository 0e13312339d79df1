package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/civic-desk/complaint-service/internal/config"
	"github.com/civic-desk/complaint-service/internal/events"
	"github.com/civic-desk/complaint-service/internal/observability"
)

// NotificationService turns domain events into outbound notifications. Email
// and webhook delivery are stubs that log what would be sent.
type NotificationService struct {
	logger  *zap.Logger
	cfg     config.NotificationConfig
	metrics *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		logger:  logger,
		cfg:     cfg,
		metrics: metrics,
	}
}

// Handle routes one event to its channels.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))

	switch event.Type {
	case events.EventComplaintCreated:
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventComplaintStatusChanged, events.EventComplaintResponseAppended:
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventComplaintMessageAdded:
		n.sendEmailNotificationStub(ctx, event)
	case events.EventComplaintDeleted:
		n.sendWebhookNotificationStub(ctx, event)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
	n.metrics.NotificationSent("email", string(event.Type))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
	n.metrics.NotificationSent("webhook", string(event.Type))
}
