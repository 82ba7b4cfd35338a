// Package ideaservice coordinates the idea store with validation, change
// events, metrics, and dictionary export.
package ideaservice

import (
	"context"
	"log/slog"

	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/metrics"
	"github.com/starford/ideacards/internal/sse"
	"github.com/starford/ideacards/internal/store"
)

// DefaultSuggestLimit caps Suggest results when no limit is configured.
const DefaultSuggestLimit = 20

// EventSink receives idea change notifications.
type EventSink interface {
	PublishIdea(eventType string, it *idea.Idea)
}

// Exporter writes a transferred idea somewhere outside the store.
type Exporter interface {
	Export(ctx context.Context, it *idea.Idea) error
}

// Query holds the search filters accepted from callers.
type Query struct {
	Keyword string
	Tags    []string
	Status  idea.Status
}

// Service is the server-side entry point for idea operations.
type Service struct {
	repo         store.Repository
	events       EventSink
	exporter     Exporter
	metrics      *metrics.Collector
	logger       *slog.Logger
	suggestLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes change events to sink.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithExporter exports ideas that move to transfer.
func WithExporter(e Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// WithMetrics records domain counters on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSuggestLimit caps Suggest results.
func WithSuggestLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.suggestLimit = n
		}
	}
}

// New creates a Service over repo.
func New(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		logger:       slog.Default(),
		suggestLimit: DefaultSuggestLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Random returns one idea with status, active when status is empty.
func (s *Service) Random(ctx context.Context, status idea.Status) (*idea.Idea, error) {
	if status == "" {
		status = idea.StatusActive
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Random(ctx, status)
}

// Get returns the idea with id.
func (s *Service) Get(ctx context.Context, id int64) (*idea.Idea, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Search returns ideas matching q. An empty status matches every status.
func (s *Service) Search(ctx context.Context, q Query) ([]idea.Idea, error) {
	if q.Status != "" {
		if err := q.Status.Validate(); err != nil {
			return nil, err
		}
	}
	return s.repo.Search(ctx, store.Filter{
		Keyword: q.Keyword,
		Tags:    q.Tags,
		Status:  q.Status,
	})
}

// Suggest returns active ideas matching keyword and tags, capped at the
// configured limit.
func (s *Service) Suggest(ctx context.Context, keyword string, tags []string) ([]idea.Idea, error) {
	return s.repo.Search(ctx, store.Filter{
		Keyword: keyword,
		Tags:    tags,
		Status:  idea.StatusActive,
		Limit:   s.suggestLimit,
	})
}

// Create validates and stores a new idea.
func (s *Service) Create(ctx context.Context, in idea.CreatePayload) (*idea.Idea, error) {
	if in.Status == "" {
		in.Status = idea.StatusActive
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	it, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("idea created", slog.Int64("idea_id", it.IdeaID), slog.String("status", string(it.Status)))
	s.metrics.IdeaCreated()
	s.publish(sse.TypeCreated, it)
	if it.Status == idea.StatusTransfer {
		s.export(ctx, it)
	}
	return it, nil
}

// Update replaces body, tags, blockers, and born-with links of id.
func (s *Service) Update(ctx context.Context, id int64, p idea.Payload) (*idea.Idea, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := validatePayload(p); err != nil {
		return nil, err
	}
	it, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("idea updated", slog.Int64("idea_id", id))
	s.metrics.IdeaUpdated()
	s.publish(sse.TypeUpdated, it)
	return it, nil
}

// UpdateStatus moves id to status. Moving to transfer exports the idea.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status idea.Status) (*idea.Idea, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}
	it, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("idea status changed", slog.Int64("idea_id", id), slog.String("status", string(status)))
	s.metrics.StatusChanged(status)
	s.publish(sse.TypeStatus, it)
	if status == idea.StatusTransfer {
		s.export(ctx, it)
	}
	return it, nil
}

func (s *Service) publish(eventType string, it *idea.Idea) {
	if s.events == nil {
		return
	}
	s.events.PublishIdea(eventType, it)
}

// export failures are logged; the status change has already been stored.
func (s *Service) export(ctx context.Context, it *idea.Idea) {
	if s.exporter == nil {
		return
	}
	err := s.exporter.Export(ctx, it)
	s.metrics.Exported(err)
	if err != nil {
		s.logger.Error("dictionary export failed",
			slog.Int64("idea_id", it.IdeaID),
			slog.String("error", err.Error()),
		)
	}
}
