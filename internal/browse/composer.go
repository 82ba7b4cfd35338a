package browse

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/nav"
)

// Creator stores a new idea.
type Creator interface {
	Create(ctx context.Context, p idea.Payload) (*idea.Idea, error)
}

// Composer is the new-idea page.
type Composer struct {
	remote Creator
	logger *slog.Logger

	mu         sync.Mutex
	draft      idea.Draft
	submitting bool
	err        error
}

// NewComposer returns a composer with one empty blocker row.
func NewComposer(remote Creator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{remote: remote, logger: logger, draft: idea.NewDraft()}
}

// SetBody sets the body text.
func (c *Composer) SetBody(body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Body = body
}

// SetTags sets the comma-separated tag text.
func (c *Composer) SetTags(tags string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Tags = tags
}

// AddBlockerField appends an empty blocker row.
func (c *Composer) AddBlockerField() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.AddBlocker()
}

// RemoveBlockerField removes row index.
func (c *Composer) RemoveBlockerField(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.RemoveBlocker(index)
}

// UpdateBlocker sets row index to value.
func (c *Composer) UpdateBlocker(index int, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.SetBlocker(index, value)
}

// Draft returns a copy of the form.
func (c *Composer) Draft() idea.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Err returns the failure of the last Submit, if any.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Submit creates the idea with no born-with links and returns the editor
// route for it with origin top. The form is kept on failure.
func (c *Composer) Submit(ctx context.Context) (nav.Route, *idea.Idea, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nav.Route{}, nil, apperr.ErrBusy
	}
	c.submitting = true
	c.err = nil
	p := idea.ToPayload(c.draft)
	c.mu.Unlock()

	p.BornWithIDs = []int64{}
	created, err := c.remote.Create(ctx, p)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.err = err
		c.logger.Warn("create idea failed", slog.String("error", err.Error()))
		return nav.Route{}, nil, err
	}
	return nav.Context{From: nav.OriginTop}.Editor(created.IdeaID), created, nil
}
