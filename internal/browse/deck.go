// Package browse holds the state behind the top, search, and new-idea pages.
package browse

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/nav"
)

// RandomFetcher fetches a random idea by status.
type RandomFetcher interface {
	FetchRandom(ctx context.Context, status idea.Status) (*idea.Idea, error)
}

// DeckView is what the top page renders.
type DeckView struct {
	Card   *idea.Idea
	Pinned bool
	Empty  bool
	Err    error
}

// Deck shows one random active idea at a time. A pinned deck keeps its card.
type Deck struct {
	remote RandomFetcher
	logger *slog.Logger

	mu     sync.Mutex
	seq    uint64
	card   *idea.Idea
	pinned bool
	empty  bool
	err    error
}

// NewDeck returns an empty deck; call Load to draw the first card.
func NewDeck(remote RandomFetcher, logger *slog.Logger) *Deck {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deck{remote: remote, logger: logger}
}

// Load draws a card regardless of the pin.
func (d *Deck) Load(ctx context.Context) error {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.err = nil
	d.mu.Unlock()

	it, err := d.remote.FetchRandom(ctx, idea.StatusActive)

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.seq {
		return nil
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		d.card, d.empty = nil, true
		return nil
	case err != nil:
		d.card, d.empty, d.err = nil, false, err
		d.logger.Warn("random idea failed", slog.String("error", err.Error()))
		return err
	}
	d.card, d.empty = it, false
	return nil
}

// Next draws a new card unless the deck is pinned.
func (d *Deck) Next(ctx context.Context) error {
	d.mu.Lock()
	pinned := d.pinned
	d.mu.Unlock()
	if pinned {
		return nil
	}
	return d.Load(ctx)
}

// TogglePin flips the pin and returns the new value.
func (d *Deck) TogglePin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pinned = !d.pinned
	return d.pinned
}

// Open returns the editor route for the current card with origin top.
func (d *Deck) Open() (nav.Route, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.card == nil {
		return nav.Route{}, false
	}
	return nav.Context{From: nav.OriginTop}.Editor(d.card.IdeaID), true
}

// View returns the current state.
func (d *Deck) View() DeckView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeckView{Card: d.card, Pinned: d.pinned, Empty: d.empty, Err: d.err}
}
