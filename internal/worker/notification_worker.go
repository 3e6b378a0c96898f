package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// Deliverer sends one event somewhere outside the process.
type Deliverer interface {
	Deliver(ctx context.Context, event events.Event) error
}

// Config tunes the delivery queue.
type Config struct {
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

// NotificationWorker moves webhook delivery off the request path. Events are
// queued by a dispatcher subscription and drained by one goroutine; a full
// queue drops the event with a warning.
type NotificationWorker struct {
	deliverer   Deliverer
	logger      *zap.Logger
	queue       chan events.Event
	maxAttempts int
	backoff     time.Duration
	wg          sync.WaitGroup
}

func NewNotificationWorker(deliverer Deliverer, logger *zap.Logger, cfg Config) *NotificationWorker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return &NotificationWorker{
		deliverer:   deliverer,
		logger:      logger,
		queue:       make(chan events.Event, cfg.QueueSize),
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

// Subscribe queues every event type published on dispatcher.
func (w *NotificationWorker) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Start drains the queue until ctx ends. Wait blocks until it has stopped.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-w.queue:
				w.deliver(ctx, event)
			}
		}
	}()
}

// Wait blocks until the drain loop has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) deliver(ctx context.Context, event events.Event) {
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.deliverer.Deliver(ctx, event)
		if err == nil {
			return
		}
		w.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	w.logger.Error("notification dropped after retries",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}

// StartNotificationWorker registers the logging handlers and, when a webhook
// is configured, starts the delivery queue. It returns nil when nothing needs
// to run in the background.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationWorker {
	if notificationService == nil {
		return nil
	}
	notificationService.RegisterHandlers()
	if !notificationService.WebhookEnabled() || dispatcher == nil {
		return nil
	}
	w := NewNotificationWorker(notificationService, logger, Config{})
	w.Subscribe(dispatcher)
	w.Start(ctx)
	return w
}
