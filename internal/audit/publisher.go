package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tokensafe/pkg/requestcontext"
)

// Store persists audit events. Append-only; the registry never deletes.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor string) ([]Event, error)
}

// Sink receives a copy of every event, best-effort. Sinks must not block
// domain operations; failures are logged and dropped.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger
}

type Option func(*Publisher)

func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit sink append failed",
				"action", event.Action,
				"error", err.Error(),
			)
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, actor string) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}
