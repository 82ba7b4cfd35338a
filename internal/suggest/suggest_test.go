package suggest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/starford/ideacards/internal/idea"
)

type call struct{ keyword, tags string }

type fakeSuggester struct {
	mu    sync.Mutex
	calls []call
	items []idea.Idea
	err   error
}

func (f *fakeSuggester) Suggest(_ context.Context, keyword, tags string) ([]idea.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{keyword, tags})
	if f.err != nil {
		return nil, f.err
	}
	return append([]idea.Idea(nil), f.items...), nil
}

type fakeLinker struct {
	self  int64
	draft idea.Draft
}

func (f *fakeLinker) IdeaID() int64 { return f.self }
func (f *fakeLinker) HasBornWith(id int64) bool { return f.draft.HasLink(id) }
func (f *fakeLinker) AddBornWith(l idea.Link) bool { return f.draft.AddLink(f.self, l) }

func candidates() []idea.Idea {
	return []idea.Idea{
		{IdeaID: 1, Body: "self"},
		{IdeaID: 2, Body: "two", Tags: []string{"x"}},
		{IdeaID: 3, Body: "three"},
	}
}

func newSession(remote Suggester, linker Linker) *Session {
	return New(remote, linker, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func open(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
}

func resultIDs(s *Session) []int64 {
	var ids []int64
	for _, it := range s.Results() {
		ids = append(ids, it.IdeaID)
	}
	return ids
}

func TestOpenRunsSuggestImmediately(t *testing.T) {
	remote := &fakeSuggester{items: candidates()}
	s := newSession(remote, &fakeLinker{self: 1, draft: idea.NewDraft()})

	open(t, s)
	if !s.IsOpen() {
		t.Error("session not open")
	}
	if !slices.Equal(remote.calls, []call{{"", ""}}) {
		t.Errorf("calls = %v, want one unfiltered call", remote.calls)
	}
}

func TestResultsHideSelfAndLinked(t *testing.T) {
	linker := &fakeLinker{self: 1, draft: idea.NewDraft()}
	linker.draft.AddLink(1, idea.Link{IdeaID: 3})
	s := newSession(&fakeSuggester{items: candidates()}, linker)
	open(t, s)

	if got := resultIDs(s); !slices.Equal(got, []int64{2}) {
		t.Errorf("results = %v, want [2]", got)
	}
}

func TestSelectLinksAndStaysOpen(t *testing.T) {
	linker := &fakeLinker{self: 1, draft: idea.NewDraft()}
	s := newSession(&fakeSuggester{items: candidates()}, linker)
	open(t, s)

	if !s.Select(candidates()[1]) {
		t.Fatal("select 2 failed")
	}
	if s.Select(candidates()[1]) {
		t.Error("second select of the same idea linked again")
	}
	if !s.Select(candidates()[2]) {
		t.Fatal("select 3 failed")
	}
	if !s.IsOpen() {
		t.Error("select closed the session")
	}
	if len(linker.draft.BornWith) != 2 {
		t.Fatalf("links = %d, want 2", len(linker.draft.BornWith))
	}
	if tags := linker.draft.BornWith[0].Tags; !slices.Equal(tags, []string{"x"}) {
		t.Errorf("link tags = %q", tags)
	}
	if n := len(s.Results()); n != 0 {
		t.Errorf("results = %d, want linked ideas hidden", n)
	}
}

func TestSubmitReplacesResults(t *testing.T) {
	remote := &fakeSuggester{items: candidates()}
	s := newSession(remote, &fakeLinker{self: 99, draft: idea.NewDraft()})
	open(t, s)
	if n := len(s.Results()); n != 3 {
		t.Fatalf("results = %d, want 3", n)
	}

	remote.items = []idea.Idea{{IdeaID: 7, Body: "seven"}}
	s.SetFilters("sev", "a, b")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got := resultIDs(s); !slices.Equal(got, []int64{7}) {
		t.Errorf("results = %v, want [7]", got)
	}
	if remote.calls[1] != (call{"sev", "a, b"}) {
		t.Errorf("submit call = %+v", remote.calls[1])
	}
}

func TestCloseDiscardsState(t *testing.T) {
	remote := &fakeSuggester{items: candidates()}
	s := newSession(remote, &fakeLinker{self: 99, draft: idea.NewDraft()})
	open(t, s)
	s.SetFilters("kw", "t")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	s.Close()
	if s.IsOpen() || len(s.Results()) != 0 {
		t.Errorf("after close: open = %v results = %d", s.IsOpen(), len(s.Results()))
	}

	open(t, s)
	if kw, tags := s.Filters(); kw != "" || tags != "" {
		t.Errorf("filters after reopen = %q, %q", kw, tags)
	}
	if last := remote.calls[len(remote.calls)-1]; last != (call{"", ""}) {
		t.Errorf("reopen call = %+v, want unfiltered", last)
	}
}

func TestSuggestFailureKeepsModalUsable(t *testing.T) {
	remote := &fakeSuggester{err: errors.New("Suggest failed")}
	s := newSession(remote, &fakeLinker{self: 1, draft: idea.NewDraft()})

	if err := s.Open(context.Background()); err == nil {
		t.Fatal("open succeeded against a failing remote")
	}
	if !s.IsOpen() || s.Err() == nil {
		t.Errorf("open = %v err = %v", s.IsOpen(), s.Err())
	}

	remote.err = nil
	remote.items = candidates()
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.Err() != nil {
		t.Errorf("err = %v after successful submit", s.Err())
	}
	if n := len(s.Results()); n != 2 {
		t.Errorf("results = %d, want 2", n)
	}
}

func TestSubmitWhileClosedIsNoop(t *testing.T) {
	remote := &fakeSuggester{}
	s := newSession(remote, &fakeLinker{})
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(remote.calls) != 0 {
		t.Errorf("calls = %v, want none", remote.calls)
	}
}
