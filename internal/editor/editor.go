// Package editor holds one idea's editable draft and reconciles it with the
// remote service through explicit save and status actions.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/nav"
)

// DefaultAckDelay is how long the "saved" acknowledgment stays visible.
const DefaultAckDelay = 5 * time.Second

// ErrSuperseded is returned when a response arrives after the editor was
// reloaded or closed. The response has been discarded.
var ErrSuperseded = errors.New("editor: response superseded")

// State is the editor's position in its load/save cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateSaving
	StateStatusUpdating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateStatusUpdating:
		return "status-updating"
	}
	return "unknown"
}

// Persistence is the part of the idea client the editor needs.
type Persistence interface {
	FetchByID(ctx context.Context, id int64) (*idea.Idea, error)
	Update(ctx context.Context, id int64, p idea.Payload) (*idea.Idea, error)
	UpdateStatus(ctx context.Context, id int64, status idea.Status) (*idea.Idea, error)
}

// Snapshot is a consistent copy of the editor for rendering.
type Snapshot struct {
	State   State
	IdeaID  int64
	Idea    *idea.Idea
	Draft   idea.Draft
	Err     error
	Saved   bool
	Context nav.Context
}

// Message is the user-facing text of Err, or "".
func (s Snapshot) Message() string {
	return apperr.Message(s.Err, "Request failed")
}

// Editor is the state machine for one editor instance. It is safe for
// concurrent use; at most one remote action runs at a time.
type Editor struct {
	remote   Persistence
	logger   *slog.Logger
	ackDelay time.Duration
	onChange func()

	mu       sync.Mutex
	gen      uint64
	sem      *semaphore.Weighted
	state    State
	id       int64
	navCtx   nav.Context
	current  *idea.Idea
	draft    idea.Draft
	err      error
	saved    bool
	ackSeq   uint64
	ackTimer *time.Timer
}

// Option configures an Editor.
type Option func(*Editor)

// WithAckDelay sets how long the "saved" acknowledgment lasts.
func WithAckDelay(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.ackDelay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithOnChange registers fn to run when state changes without a caller
// action, currently only when the "saved" acknowledgment expires.
func WithOnChange(fn func()) Option {
	return func(e *Editor) { e.onChange = fn }
}

// New returns an idle editor.
func New(remote Persistence, opts ...Option) *Editor {
	e := &Editor{
		remote:   remote,
		logger:   slog.Default(),
		ackDelay: DefaultAckDelay,
		sem:      semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load discards all state and fetches id. On failure the editor stays in
// Loading with the error set and offers no edit actions.
func (e *Editor) Load(ctx context.Context, id int64, from nav.Context) error {
	e.mu.Lock()
	e.resetLocked()
	e.state = StateLoading
	e.id = id
	e.navCtx = from
	gen := e.gen
	e.mu.Unlock()

	it, err := e.remote.FetchByID(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return ErrSuperseded
	}
	if err != nil {
		e.err = err
		e.logger.Warn("load idea failed", slog.Int64("idea_id", id), slog.String("error", err.Error()))
		return err
	}
	e.current = it
	e.draft = idea.ToDraft(*it)
	e.state = StateReady
	return nil
}

// Close discards all state. Responses still in flight are dropped.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// resetLocked starts a new generation with a fresh single-flight guard.
func (e *Editor) resetLocked() {
	e.gen++
	e.sem = semaphore.NewWeighted(1)
	e.stopAckLocked()
	e.state = StateIdle
	e.id = 0
	e.current = nil
	e.draft = idea.Draft{}
	e.err = nil
	e.saved = false
}

// action is what a remote action captured when it started.
type action struct {
	gen   uint64
	sem   *semaphore.Weighted
	id    int64
	draft idea.Draft
}

// begin claims the single-flight guard and moves to next. allow, when set,
// runs under the lock against the held idea; its error is kept on the
// editor and nothing is sent.
func (e *Editor) begin(next State, allow func(current *idea.Idea) error) (action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sem.TryAcquire(1) {
		return action{}, apperr.ErrBusy
	}
	if e.state != StateReady {
		e.sem.Release(1)
		return action{}, apperr.ErrNotReady
	}
	if allow != nil {
		if err := allow(e.current); err != nil {
			e.sem.Release(1)
			e.err = err
			return action{}, err
		}
	}
	e.err = nil
	e.state = next
	return action{gen: e.gen, sem: e.sem, id: e.id, draft: e.draft.Clone()}, nil
}

// finish releases the guard and reports whether the result still applies.
// It returns with e.mu held when ok is true.
func (e *Editor) finish(a action) (ok bool) {
	a.sem.Release(1)
	e.mu.Lock()
	if a.gen != e.gen {
		e.mu.Unlock()
		return false
	}
	e.state = StateReady
	return true
}

// Save sends the draft as a full replace. On success the server's response
// becomes the idea and the draft is rebuilt from it; on failure the draft is
// kept as is.
func (e *Editor) Save(ctx context.Context) error {
	a, err := e.begin(StateSaving, nil)
	if err != nil {
		return err
	}

	it, err := e.remote.Update(ctx, a.id, idea.ToPayload(a.draft))

	if !e.finish(a) {
		return ErrSuperseded
	}
	defer e.mu.Unlock()
	if err != nil {
		e.err = err
		e.logger.Warn("save idea failed", slog.Int64("idea_id", a.id), slog.String("error", err.Error()))
		return err
	}
	e.current = it
	e.draft = savedDraft(it)
	e.acknowledgeLocked()
	return nil
}

// SetStatus changes the idea's status. Unsaved draft edits are kept. A
// deleted idea stays deleted and no idea is moved back to active; both
// return apperr.ErrInvalid without calling the service.
func (e *Editor) SetStatus(ctx context.Context, status idea.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	a, err := e.begin(StateStatusUpdating, func(current *idea.Idea) error {
		return current.Status.CanMoveTo(status)
	})
	if err != nil {
		return err
	}

	it, err := e.remote.UpdateStatus(ctx, a.id, status)

	if !e.finish(a) {
		return ErrSuperseded
	}
	defer e.mu.Unlock()
	if err != nil {
		e.err = err
		e.logger.Warn("status update failed",
			slog.Int64("idea_id", a.id),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		return err
	}
	e.current = it
	e.acknowledgeLocked()
	return nil
}

// Delete moves the idea to deleted and returns the origin route. On failure
// the error is returned and no route is produced.
func (e *Editor) Delete(ctx context.Context) (nav.Route, error) {
	if err := e.SetStatus(ctx, idea.StatusDeleted); err != nil {
		return nav.Route{}, err
	}
	return e.Back(), nil
}

// Back returns the route to the page this visit started from.
func (e *Editor) Back() nav.Route {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.navCtx.BackRoute()
}

// FollowLink returns the editor route for a born-with link, carrying this
// visit's origin.
func (e *Editor) FollowLink(id int64) nav.Route {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.navCtx.Editor(id)
}

// Snapshot returns a copy of the current state.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		State:   e.state,
		IdeaID:  e.id,
		Draft:   e.draft.Clone(),
		Err:     e.err,
		Saved:   e.saved,
		Context: e.navCtx,
	}
	if e.current != nil {
		cp := *e.current
		cp.Tags = slices.Clone(cp.Tags)
		cp.Blockers = slices.Clone(cp.Blockers)
		cp.BornWith = slices.Clone(cp.BornWith)
		s.Idea = &cp
	}
	return s
}

// IdeaID returns the id being edited, or 0.
func (e *Editor) IdeaID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// savedDraft rebuilds the draft from a save response, keeping the blocker
// list exactly as sent, even when it is empty.
func savedDraft(it *idea.Idea) idea.Draft {
	d := idea.ToDraft(*it)
	d.Blockers = idea.NonNil(slices.Clone(it.Blockers))
	return d
}

func (e *Editor) acknowledgeLocked() {
	e.stopAckLocked()
	e.saved = true
	e.ackSeq++
	seq := e.ackSeq
	e.ackTimer = time.AfterFunc(e.ackDelay, func() { e.expireAck(seq) })
}

func (e *Editor) stopAckLocked() {
	if e.ackTimer != nil {
		e.ackTimer.Stop()
		e.ackTimer = nil
	}
	e.saved = false
}

func (e *Editor) expireAck(seq uint64) {
	e.mu.Lock()
	if seq != e.ackSeq || !e.saved {
		e.mu.Unlock()
		return
	}
	e.saved = false
	e.ackTimer = nil
	e.mu.Unlock()

	if e.onChange != nil {
		e.onChange()
	}
}
