package browse

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/ideaclient"
	"github.com/starford/ideacards/internal/nav"
)

// Searcher runs an idea search.
type Searcher interface {
	Search(ctx context.Context, p ideaclient.SearchParams) ([]idea.Idea, error)
}

// Finder is the search page: filters plus the last result list.
type Finder struct {
	remote Searcher
	logger *slog.Logger

	mu      sync.Mutex
	seq     uint64
	params  ideaclient.SearchParams
	results []idea.Idea
	err     error
}

// NewFinder returns a finder with the status filter set to active.
func NewFinder(remote Searcher, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		remote:  remote,
		logger:  logger,
		params:  ideaclient.SearchParams{Status: idea.StatusActive},
		results: []idea.Idea{},
	}
}

// SetKeyword sets the keyword filter.
func (f *Finder) SetKeyword(keyword string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params.Keyword = keyword
}

// SetTags sets the comma-separated tag filter.
func (f *Finder) SetTags(tags string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params.Tags = tags
}

// SetStatus sets the status filter.
func (f *Finder) SetStatus(s idea.Status) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params.Status = s
	return nil
}

// Filters returns the current filters.
func (f *Finder) Filters() ideaclient.SearchParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// Run searches with the current filters and replaces the results. On
// failure the previous results stay.
func (f *Finder) Run(ctx context.Context) error {
	f.mu.Lock()
	f.seq++
	seq, params := f.seq, f.params
	f.err = nil
	f.mu.Unlock()

	items, err := f.remote.Search(ctx, params)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		return nil
	}
	if err != nil {
		f.err = err
		f.logger.Warn("search failed", slog.String("keyword", params.Keyword), slog.String("error", err.Error()))
		return err
	}
	f.results = idea.NonNil(items)
	return nil
}

// Results returns the last successful result list.
func (f *Finder) Results() []idea.Idea {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results
}

// Err returns the failure of the last Run, if any.
func (f *Finder) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Open returns the editor route for id with origin search.
func (f *Finder) Open(id int64) nav.Route {
	return nav.Context{From: nav.OriginSearch}.Editor(id)
}
