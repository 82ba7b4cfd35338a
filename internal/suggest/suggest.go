// Package suggest runs the modal search-and-attach flow that links related
// ideas to the one being edited.
package suggest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/ideacards/internal/idea"
)

// Suggester queries link candidates.
type Suggester interface {
	Suggest(ctx context.Context, keyword, tags string) ([]idea.Idea, error)
}

// Linker is the editor the session attaches links to.
type Linker interface {
	IdeaID() int64
	HasBornWith(id int64) bool
	AddBornWith(l idea.Link) bool
}

// Session is one open suggestion modal. Its filters and results are
// discarded on Close and never reused.
type Session struct {
	remote Suggester
	linker Linker
	logger *slog.Logger

	mu      sync.Mutex
	open    bool
	seq     uint64
	keyword string
	tags    string
	results []idea.Idea
	err     error
}

// New returns a closed session.
func New(remote Suggester, linker Linker, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{remote: remote, linker: linker, logger: logger}
}

// Open shows the modal with empty filters and immediately runs a suggest.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.reset()
	s.open = true
	s.mu.Unlock()
	return s.run(ctx)
}

// SetFilters updates the keyword and comma-separated tag filters.
func (s *Session) SetFilters(keyword, tags string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyword, s.tags = keyword, tags
}

// Submit re-runs suggest with the current filters, replacing the results.
func (s *Session) Submit(ctx context.Context) error {
	return s.run(ctx)
}

func (s *Session) run(ctx context.Context) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.seq++
	seq, keyword, tags := s.seq, s.keyword, s.tags
	s.err = nil
	s.mu.Unlock()

	items, err := s.remote.Suggest(ctx, keyword, tags)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || seq != s.seq {
		return nil
	}
	if err != nil {
		s.err = err
		s.logger.Warn("suggest failed", slog.String("keyword", keyword), slog.String("error", err.Error()))
		return err
	}
	s.results = items
	return nil
}

// Results returns the candidates that can still be linked: the edited idea
// itself and already-linked ideas are left out.
func (s *Session) Results() []idea.Idea {
	s.mu.Lock()
	items := s.results
	s.mu.Unlock()

	self := s.linker.IdeaID()
	out := make([]idea.Idea, 0, len(items))
	for _, it := range items {
		if it.IdeaID == self || s.linker.HasBornWith(it.IdeaID) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Select links it to the edited idea. The session stays open.
func (s *Session) Select(it idea.Idea) bool {
	return s.linker.AddBornWith(it.Link())
}

// Close discards filters and results.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.open = false
	s.seq++
	s.keyword, s.tags = "", ""
	s.results = nil
	s.err = nil
}

// IsOpen reports whether the modal is showing.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Filters returns the current keyword and tag filters.
func (s *Session) Filters() (keyword, tags string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyword, s.tags
}

// Err returns the failure of the last suggest, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
