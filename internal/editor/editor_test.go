package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/nav"
)

// fakeRemote echoes payloads like the real service. When gate is set every
// call signals entered and then waits for gate to close.
type fakeRemote struct {
	mu          sync.Mutex
	ideas       map[int64]*idea.Idea
	fail        error
	gate        chan struct{}
	entered     chan struct{}
	sent        []idea.Payload
	statusCalls int
}

func newFake(ideas ...idea.Idea) *fakeRemote {
	f := &fakeRemote{ideas: map[int64]*idea.Idea{}}
	for i := range ideas {
		it := ideas[i]
		f.ideas[it.IdeaID] = &it
	}
	return f
}

func (f *fakeRemote) wait() {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate == nil {
		return
	}
	entered <- struct{}{}
	<-gate
}

func (f *fakeRemote) hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 8)
	gate := f.gate
	return func() {
		f.mu.Lock()
		f.gate = nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeRemote) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeRemote) status(id int64) idea.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ideas[id].Status
}

func (f *fakeRemote) lookup(id int64) (*idea.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	it, ok := f.ideas[id]
	if !ok {
		return nil, &apperr.RequestFailed{Op: "get", Status: 404, Reason: "Idea not found", Err: apperr.ErrNotFound}
	}
	cp := *it
	return &cp, nil
}

func (f *fakeRemote) FetchByID(_ context.Context, id int64) (*idea.Idea, error) {
	f.wait()
	return f.lookup(id)
}

func (f *fakeRemote) Update(_ context.Context, id int64, p idea.Payload) (*idea.Idea, error) {
	f.wait()
	it, err := f.lookup(id)
	if err != nil {
		return nil, &apperr.RequestFailed{Op: "update", Reason: "Update failed", Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	it.Body, it.Tags, it.Blockers = p.Body, p.Tags, p.Blockers
	it.BornWith = []idea.Link{}
	for _, lid := range p.BornWithIDs {
		if other, ok := f.ideas[lid]; ok {
			it.BornWith = append(it.BornWith, other.Link())
		}
	}
	f.ideas[id] = it
	cp := *it
	return &cp, nil
}

func (f *fakeRemote) UpdateStatus(_ context.Context, id int64, s idea.Status) (*idea.Idea, error) {
	f.wait()
	f.mu.Lock()
	f.statusCalls++
	f.mu.Unlock()
	it, err := f.lookup(id)
	if err != nil {
		return nil, &apperr.RequestFailed{Op: "status", Reason: "Status update failed", Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it.Status = s
	f.ideas[id] = it
	cp := *it
	return &cp, nil
}

func sample() []idea.Idea {
	return []idea.Idea{
		{IdeaID: 1, Body: "first", Tags: []string{"a", "b"}, Status: idea.StatusActive, Blockers: []string{}, BornWith: []idea.Link{}},
		{IdeaID: 2, Body: "second", Tags: []string{"c"}, Status: idea.StatusActive, Blockers: []string{"x"}, BornWith: []idea.Link{}},
		{IdeaID: 3, Body: "third", Tags: []string{}, Status: idea.StatusActive, Blockers: []string{}, BornWith: []idea.Link{}},
		{IdeaID: 4, Body: "gone", Tags: []string{}, Status: idea.StatusDeleted, Blockers: []string{}, BornWith: []idea.Link{}},
	}
}

func newEditor(t *testing.T, remote Persistence, opts ...Option) *Editor {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	e := New(remote, opts...)
	t.Cleanup(e.Close)
	return e
}

func loaded(t *testing.T, remote Persistence, id int64, opts ...Option) *Editor {
	t.Helper()
	e := newEditor(t, remote, opts...)
	if err := e.Load(context.Background(), id, nav.Context{From: nav.OriginSearch}); err != nil {
		t.Fatalf("load %d: %v", id, err)
	}
	return e
}

func mustTrue(t *testing.T, ok bool, what string) {
	t.Helper()
	if !ok {
		t.Fatalf("%s: got false", what)
	}
}

func TestLoadBuildsDraft(t *testing.T) {
	e := loaded(t, newFake(sample()...), 1)

	s := e.Snapshot()
	if s.State != StateReady {
		t.Errorf("state = %v, want ready", s.State)
	}
	if s.Draft.Body != "first" || s.Draft.Tags != "a, b" {
		t.Errorf("draft = %+v", s.Draft)
	}
	if !slices.Equal(s.Draft.Blockers, []string{""}) {
		t.Errorf("blockers = %q, want one empty row", s.Draft.Blockers)
	}
	if len(s.Draft.BornWith) != 0 {
		t.Errorf("born_with = %v", s.Draft.BornWith)
	}
	if s.Err != nil {
		t.Errorf("err = %v", s.Err)
	}
}

func TestLoadFailureIsNotReady(t *testing.T) {
	e := newEditor(t, newFake(sample()...))

	if err := e.Load(context.Background(), 99, nav.Context{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("load err = %v, want not found", err)
	}

	s := e.Snapshot()
	if s.State != StateLoading {
		t.Errorf("state = %v, want loading", s.State)
	}
	if s.Message() != "Idea not found" {
		t.Errorf("message = %q", s.Message())
	}
	if e.AddBlockerField() {
		t.Error("draft edits allowed after failed load")
	}
	if err := e.Save(context.Background()); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("save err = %v, want not ready", err)
	}
}

func TestSaveRebuildsDraftAndAcknowledges(t *testing.T) {
	var changes atomic.Int32
	remote := newFake(sample()...)
	e := loaded(t, remote, 1,
		WithAckDelay(30*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)

	mustTrue(t, e.SetBody("edited"), "set body")
	mustTrue(t, e.SetTags("b ,  c,,"), "set tags")
	mustTrue(t, e.UpdateBlocker(0, "money"), "update blocker")
	mustTrue(t, e.AddBlockerField(), "add blocker")
	mustTrue(t, e.AddBornWith(idea.Link{IdeaID: 2, Body: "second"}), "add link")

	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	s := e.Snapshot()
	if s.State != StateReady || !s.Saved {
		t.Errorf("state = %v saved = %v", s.State, s.Saved)
	}
	if s.Idea.Body != "edited" || s.Draft.Tags != "b, c" {
		t.Errorf("idea body = %q, draft tags = %q", s.Idea.Body, s.Draft.Tags)
	}
	if !slices.Equal(s.Draft.Blockers, []string{"money", ""}) {
		t.Errorf("draft blockers = %q", s.Draft.Blockers)
	}
	if ids := idea.ToPayload(s.Draft).BornWithIDs; !slices.Equal(ids, []int64{2}) {
		t.Errorf("born_with ids = %v", ids)
	}

	sent := remote.sent[0]
	if !slices.Equal(sent.Tags, []string{"b", "c"}) || !slices.Equal(sent.Blockers, []string{"money", ""}) {
		t.Errorf("sent = %+v", sent)
	}

	deadline := time.Now().Add(time.Second)
	for e.Snapshot().Saved {
		if time.Now().After(deadline) {
			t.Fatal("saved acknowledgment never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := changes.Load(); n != 1 {
		t.Errorf("change callbacks = %d, want 1", n)
	}
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	remote := newFake(sample()...)
	e := loaded(t, remote, 1)
	mustTrue(t, e.SetBody("unsaved"), "set body")

	remote.setFail(errors.New("connection refused"))
	if err := e.Save(context.Background()); err == nil {
		t.Fatal("save succeeded against a failing remote")
	}

	s := e.Snapshot()
	if s.State != StateReady || s.Saved {
		t.Errorf("state = %v saved = %v", s.State, s.Saved)
	}
	if s.Message() != "Update failed" {
		t.Errorf("message = %q", s.Message())
	}
	if s.Draft.Body != "unsaved" {
		t.Errorf("draft body = %q", s.Draft.Body)
	}

	remote.setFail(nil)
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("retry save: %v", err)
	}
	if err := e.Snapshot().Err; err != nil {
		t.Errorf("error flag not cleared by the next action: %v", err)
	}
}

func TestSetStatusKeepsDraftEdits(t *testing.T) {
	e := loaded(t, newFake(sample()...), 2)
	mustTrue(t, e.SetBody("not saved yet"), "set body")

	if err := e.SetStatus(context.Background(), idea.StatusExecute); err != nil {
		t.Fatalf("set status: %v", err)
	}

	s := e.Snapshot()
	if s.Idea.Status != idea.StatusExecute || s.Idea.Body != "second" {
		t.Errorf("idea = %+v", s.Idea)
	}
	if s.Draft.Body != "not saved yet" {
		t.Errorf("draft body = %q", s.Draft.Body)
	}
	if !s.Saved {
		t.Error("no acknowledgment after status change")
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	e := loaded(t, newFake(sample()...), 1)
	if err := e.SetStatus(context.Background(), "archived"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want invalid", err)
	}
}

func TestSetStatusNeverReturnsToActive(t *testing.T) {
	remote := newFake(sample()...)
	e := loaded(t, remote, 2)
	if err := e.SetStatus(context.Background(), idea.StatusExecute); err != nil {
		t.Fatalf("set execute: %v", err)
	}

	err := e.SetStatus(context.Background(), idea.StatusActive)
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want invalid", err)
	}
	if got := remote.status(2); got != idea.StatusExecute {
		t.Errorf("stored status = %q, want execute", got)
	}
	if remote.statusCalls != 1 {
		t.Errorf("status calls = %d, want 1", remote.statusCalls)
	}
	s := e.Snapshot()
	if s.State != StateReady || s.Message() == "" {
		t.Errorf("state = %v message = %q", s.State, s.Message())
	}
}

func TestDeletedIdeaKeepsItsStatus(t *testing.T) {
	remote := newFake(sample()...)
	e := loaded(t, remote, 4)

	for _, next := range []idea.Status{idea.StatusActive, idea.StatusExecute, idea.StatusTransfer} {
		if err := e.SetStatus(context.Background(), next); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("set %s: err = %v, want invalid", next, err)
		}
	}
	route, err := e.Delete(context.Background())
	if !errors.Is(err, apperr.ErrInvalid) || route != (nav.Route{}) {
		t.Errorf("delete: route = %+v err = %v", route, err)
	}

	if remote.statusCalls != 0 {
		t.Errorf("service called %d times", remote.statusCalls)
	}
	if got := remote.status(4); got != idea.StatusDeleted {
		t.Errorf("stored status = %q, want deleted", got)
	}
	if s := e.Snapshot(); s.State != StateReady || s.Idea.Status != idea.StatusDeleted {
		t.Errorf("state = %v status = %q", s.State, s.Idea.Status)
	}
	if err := e.Save(context.Background()); err != nil {
		t.Errorf("guard left held after rejection: %v", err)
	}
}

func TestDeleteNavigatesOnlyOnSuccess(t *testing.T) {
	remote := newFake(sample()...)
	e := newEditor(t, remote)
	if err := e.Load(context.Background(), 1, nav.FromState("top")); err != nil {
		t.Fatalf("load: %v", err)
	}

	remote.setFail(errors.New("boom"))
	route, err := e.Delete(context.Background())
	if err == nil {
		t.Fatal("delete succeeded against a failing remote")
	}
	if route != (nav.Route{}) {
		t.Errorf("route on failure = %+v", route)
	}
	if msg := e.Snapshot().Message(); msg != "Status update failed" {
		t.Errorf("message = %q", msg)
	}

	remote.setFail(nil)
	route, err = e.Delete(context.Background())
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if route.Path != nav.PathTop {
		t.Errorf("route = %q, want top", route.Path)
	}
	if st := e.Snapshot().Idea.Status; st != idea.StatusDeleted {
		t.Errorf("status = %q", st)
	}
}

func TestSingleFlight(t *testing.T) {
	remote := newFake(sample()...)
	e := loaded(t, remote, 1)

	release := remote.hold()
	done := make(chan error, 1)
	go func() { done <- e.Save(context.Background()) }()
	<-remote.entered

	if st := e.Snapshot().State; st != StateSaving {
		t.Errorf("state = %v, want saving", st)
	}
	if err := e.SetStatus(context.Background(), idea.StatusExecute); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("set status err = %v, want busy", err)
	}
	if err := e.Save(context.Background()); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("save err = %v, want busy", err)
	}
	if e.AddBlockerField() {
		t.Error("draft editable while saving")
	}

	release()
	if err := <-done; err != nil {
		t.Fatalf("save: %v", err)
	}
	if st := e.Snapshot().State; st != StateReady {
		t.Errorf("state = %v, want ready", st)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	remote := newFake(sample()...)
	e := loaded(t, remote, 1)

	release := remote.hold()
	done := make(chan error, 1)
	go func() { done <- e.Save(context.Background()) }()
	<-remote.entered

	loadDone := make(chan error, 1)
	go func() { loadDone <- e.Load(context.Background(), 2, nav.Context{}) }()
	<-remote.entered

	release()
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("save err = %v, want superseded", err)
	}
	if err := <-loadDone; err != nil {
		t.Fatalf("load: %v", err)
	}

	s := e.Snapshot()
	if s.IdeaID != 2 || s.Draft.Body != "second" || s.Saved {
		t.Errorf("snapshot = id %d body %q saved %v", s.IdeaID, s.Draft.Body, s.Saved)
	}

	// The new mount has its own single-flight guard.
	if err := e.Save(context.Background()); err != nil {
		t.Errorf("save after reload: %v", err)
	}
}

func TestCloseDropsInFlightLoad(t *testing.T) {
	remote := newFake(sample()...)
	e := newEditor(t, remote)

	release := remote.hold()
	done := make(chan error, 1)
	go func() { done <- e.Load(context.Background(), 1, nav.Context{}) }()
	<-remote.entered
	e.Close()
	release()

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("load err = %v, want superseded", err)
	}
	if st := e.Snapshot().State; st != StateIdle {
		t.Errorf("state = %v, want idle", st)
	}
}

func TestBornWithInvariants(t *testing.T) {
	e := loaded(t, newFake(sample()...), 1)
	link := idea.Link{IdeaID: 2, Body: "second", Tags: []string{"c"}}

	mustTrue(t, e.AddBornWith(link), "add link")
	if e.AddBornWith(link) {
		t.Error("duplicate link added")
	}
	if e.AddBornWith(idea.Link{IdeaID: 1}) {
		t.Error("self link added")
	}
	if n := len(e.Snapshot().Draft.BornWith); n != 1 {
		t.Errorf("links = %d, want 1", n)
	}
	mustTrue(t, e.HasBornWith(2), "has link")

	mustTrue(t, e.RemoveBornWith(2), "remove link")
	if e.RemoveBornWith(2) {
		t.Error("removed a missing link")
	}
	if n := len(e.Snapshot().Draft.BornWith); n != 0 {
		t.Errorf("links = %d after removal", n)
	}
}

func TestRemovingLastBlockerRowIsAllowed(t *testing.T) {
	remote := newFake(sample()...)
	e := loaded(t, remote, 1)

	mustTrue(t, e.RemoveBlockerField(0), "remove blocker")
	if n := len(e.Snapshot().Draft.Blockers); n != 0 {
		t.Errorf("blockers = %d", n)
	}
	if e.RemoveBlockerField(0) {
		t.Error("removed from an empty list")
	}

	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if sent := remote.sent[0].Blockers; sent == nil || len(sent) != 0 {
		t.Errorf("sent blockers = %#v, want empty list", sent)
	}
	if n := len(e.Snapshot().Draft.Blockers); n != 0 {
		t.Errorf("placeholder row added after save: %d rows", n)
	}

	if err := e.Load(context.Background(), 1, nav.Context{}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := e.Snapshot().Draft.Blockers; !slices.Equal(got, []string{""}) {
		t.Errorf("blockers after reload = %q", got)
	}
}

func TestFollowLinkKeepsOrigin(t *testing.T) {
	remote := newFake(sample()...)
	first := newEditor(t, remote)
	if err := first.Load(context.Background(), 1, nav.FromState("top")); err != nil {
		t.Fatalf("load: %v", err)
	}

	route := first.FollowLink(2)
	if route.Path != nav.EditorPath(2) {
		t.Errorf("path = %q", route.Path)
	}

	second := newEditor(t, remote)
	if err := second.Load(context.Background(), route.IdeaID, route.Context); err != nil {
		t.Fatalf("load linked: %v", err)
	}
	if p := second.Back().Path; p != nav.PathTop {
		t.Errorf("back from linked idea = %q, want top", p)
	}

	third := newEditor(t, remote)
	if err := third.Load(context.Background(), 3, nav.FromState("")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if p := third.Back().Path; p != nav.PathSearch {
		t.Errorf("back without origin = %q, want search", p)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	e := loaded(t, newFake(sample()...), 2)
	s := e.Snapshot()
	s.Draft.Blockers[0] = "mutated"
	s.Idea.Blockers[0] = "mutated"

	fresh := e.Snapshot()
	if fresh.Draft.Blockers[0] != "x" || !slices.Equal(fresh.Idea.Blockers, []string{"x"}) {
		t.Errorf("snapshot shares memory: draft %q idea %q", fresh.Draft.Blockers, fresh.Idea.Blockers)
	}
}
