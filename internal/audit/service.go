package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agrigate/internal/domain"
	"agrigate/internal/storage"
)

// Sink receives a copy of every emitted event for out-of-process fan-out
// (e.g. the Kafka sink). Sinks are fire-and-forget; they must not block.
type Sink interface {
	Publish(ctx context.Context, event domain.AuditEvent)
}

// Service captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. Emission is a
// best-effort side channel for the pipeline: callers log failures instead of
// propagating them.
type Service struct {
	store  storage.AuditStore
	sink   Sink
	logger *slog.Logger
}

type Option func(*Service)

func WithSink(sink Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(store storage.AuditStore, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Emit(ctx context.Context, event domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if s.sink != nil {
		s.sink.Publish(ctx, event)
	}
	return s.store.Append(ctx, event)
}

func (s *Service) List(ctx context.Context, entityType, entityID string) ([]domain.AuditEvent, error) {
	return s.store.ListByEntity(ctx, entityType, entityID)
}
