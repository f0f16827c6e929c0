package events

import (
	"context"
	"log/slog"

	"custodia/internal/custody/models"
)

// Publisher buffers events on a channel for the background worker. Emit never
// blocks the calling transition.
type Publisher struct {
	inbox  chan models.Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		inbox:  make(chan models.Event, buffer),
		logger: logger,
	}
}

// Emit enqueues the event. When the buffer is full the event is dropped and
// logged; audit lag must never fail or delay a custody transition.
func (p *Publisher) Emit(_ context.Context, event models.Event) error {
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"container_id", event.ContainerID,
		)
	}
	return nil
}

// Inbox exposes the channel for the worker.
func (p *Publisher) Inbox() <-chan models.Event {
	return p.inbox
}

// Worker drains a publisher inbox into a store.
type Worker struct {
	store  Store
	inbox  <-chan models.Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan models.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run consumes until the context is cancelled. Store failures are logged and
// the loop keeps going; one bad append must not stop the audit trail.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "cannot append audit event",
					"action", event.Action,
					"container_id", event.ContainerID,
					"error", err,
				)
			}
		}
	}
}
