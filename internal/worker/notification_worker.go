package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/civic-desk/complaint-service/internal/events"
	"github.com/civic-desk/complaint-service/internal/service"
)

// NotificationWorker moves notification delivery off the request path. The
// dispatcher hands events to a bounded queue; a single goroutine drains it.
type NotificationWorker struct {
	svc    *service.NotificationService
	logger *zap.Logger
	queue  chan events.Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// StartNotificationWorker subscribes to every complaint event and starts
// draining until ctx is cancelled or Stop is called.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, svc *service.NotificationService, logger *zap.Logger, buffer int) *NotificationWorker {
	if buffer <= 0 {
		buffer = 256
	}
	w := &NotificationWorker{
		svc:    svc,
		logger: logger,
		queue:  make(chan events.Event, buffer),
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, w.enqueue)
	}

	w.wg.Add(1)
	go w.run(ctx)
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("complaint_id", event.ComplaintID))
	}
	return nil
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.queue:
			if !ok {
				return
			}
			if err := w.svc.Handle(context.Background(), event); err != nil {
				w.logger.Warn("notification delivery failed", zap.String("event_id", event.ID), zap.Error(err))
			}
		}
	}
}

// Stop delivers what is already queued and waits for the goroutine to exit.
// Events published afterwards are ignored.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
