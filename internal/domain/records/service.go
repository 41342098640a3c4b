// Package records implements create and list for every resource collection.
package records

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hulubedeje/hms/internal/platform/docstore"
	"github.com/hulubedeje/hms/internal/platform/events"
	"github.com/hulubedeje/hms/internal/platform/schema"
)

// Gateway is the part of *docstore.Gateway the service needs.
type Gateway interface {
	Insert(ctx context.Context, kind string, doc docstore.Document) (string, error)
	List(ctx context.Context, kind string, filter docstore.Filter, limit int) ([]docstore.Document, error)
}

// EventObserver is told about every publish attempt.
type EventObserver interface {
	ObserveEvent(collection string, err error)
}

// DefaultPublishTimeout bounds one background event publish.
const DefaultPublishTimeout = 5 * time.Second

type Service struct {
	registry       *schema.Registry
	store          Gateway
	pub            events.Publisher
	obs            EventObserver
	logger         zerolog.Logger
	now            func() time.Time
	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

func NewService(registry *schema.Registry, store Gateway, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		registry:       registry,
		store:          store,
		pub:            pub,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		publishTimeout: DefaultPublishTimeout,
	}
}

// SetEventObserver attaches an optional observer for publish outcomes.
func (s *Service) SetEventObserver(o EventObserver) {
	s.obs = o
}

// SetPublishTimeout changes the deadline of each background publish.
// Non-positive values are ignored.
func (s *Service) SetPublishTimeout(d time.Duration) {
	if d > 0 {
		s.publishTimeout = d
	}
}

// Drain blocks until every background publish has finished. Call it before
// closing the publisher.
func (s *Service) Drain() {
	s.inflight.Wait()
}

// Create validates payload as kind, persists it and announces it. A
// validation failure returns *schema.ValidationError and nothing is written.
// The event is published in the background on a context detached from the
// request, so a slow or failing broker never delays or fails the create.
func (s *Service) Create(ctx context.Context, kind string, payload map[string]any) (string, error) {
	rec, err := s.registry.Validate(kind, payload)
	if err != nil {
		return "", err
	}

	id, err := s.store.Insert(ctx, kind, docstore.Document(rec))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", kind, err)
	}

	evt := events.Event{
		Type:       events.TypeRecordCreated,
		Kind:       kind,
		Collection: docstore.CollectionName(kind),
		ID:         id,
		OccurredAt: s.now(),
		RequestID:  events.RequestIDFrom(ctx),
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.publish(context.WithoutCancel(ctx), evt)
	}()
	return id, nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	err := s.pub.Publish(ctx, evt)
	if s.obs != nil {
		s.obs.ObserveEvent(evt.Collection, err)
	}
	if err != nil {
		s.logger.Warn().Err(err).
			Str("request_id", evt.RequestID).
			Str("kind", evt.Kind).
			Str("id", evt.ID).
			Msg("publish record event")
	}
}

// List returns up to limit records of kind matching every filter pair.
func (s *Service) List(ctx context.Context, kind string, filter docstore.Filter, limit int) ([]docstore.Document, error) {
	if _, ok := s.registry.Lookup(kind); !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownKind, kind)
	}
	docs, err := s.store.List(ctx, kind, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return docs, nil
}
