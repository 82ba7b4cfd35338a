package idea

import (
	"errors"
	"slices"
	"testing"

	"github.com/starford/ideacards/internal/apperr"
)

func sampleIdea() Idea {
	return Idea{
		IdeaID:   7,
		Body:     "plant tomatoes",
		Tags:     []string{"a", "b"},
		Status:   StatusActive,
		Blockers: []string{"time", ""},
		BornWith: []Link{
			{IdeaID: 3, Body: "three", Tags: []string{"x"}},
			{IdeaID: 9, Body: "nine", Tags: nil},
		},
	}
}

func sameSet[T interface{ ~string | ~int64 }](a, b []T) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

func TestToDraft(t *testing.T) {
	d := ToDraft(sampleIdea())
	if d.Body != "plant tomatoes" || d.Tags != "a, b" {
		t.Errorf("draft = %+v", d)
	}
	if !slices.Equal(d.Blockers, []string{"time", ""}) {
		t.Errorf("blockers = %q", d.Blockers)
	}
	if len(d.BornWith) != 2 {
		t.Fatalf("born_with = %d, want 2", len(d.BornWith))
	}
	if tags := d.BornWith[1].Tags; tags == nil || len(tags) != 0 {
		t.Errorf("nil link tags = %#v, want empty list", tags)
	}
}

func TestToDraft_EmptyBlockersGetOneSlot(t *testing.T) {
	i := sampleIdea()
	i.Blockers = nil
	if got := ToDraft(i).Blockers; !slices.Equal(got, []string{""}) {
		t.Errorf("blockers = %q, want one empty row", got)
	}
}

func TestToDraft_DoesNotAlias(t *testing.T) {
	i := sampleIdea()
	d := ToDraft(i)
	d.Blockers[0] = "changed"
	d.BornWith[0].Body = "changed"
	if i.Blockers[0] != "time" || i.BornWith[0].Body != "three" {
		t.Errorf("draft edits leaked into idea: %+v", i)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []Idea{
		sampleIdea(),
		{IdeaID: 1, Status: StatusActive},
		{IdeaID: 2, Tags: []string{"only"}, BornWith: []Link{{IdeaID: 5}}},
	}
	for _, in := range cases {
		p := ToPayload(ToDraft(in))
		if !sameSet(NonNil(in.Tags), p.Tags) {
			t.Errorf("idea %d: tags %q -> %q", in.IdeaID, in.Tags, p.Tags)
		}
		if !sameSet(in.BornWithIDs(), p.BornWithIDs) {
			t.Errorf("idea %d: links %v -> %v", in.IdeaID, in.BornWithIDs(), p.BornWithIDs)
		}
	}
}

func TestToPayload_KeepsEmptyBlockers(t *testing.T) {
	d := NewDraft()
	d.Body = "plant tomatoes"
	d.Tags = "a, b"
	p := ToPayload(d)
	if !slices.Equal(p.Tags, []string{"a", "b"}) {
		t.Errorf("tags = %q", p.Tags)
	}
	if !slices.Equal(p.Blockers, []string{""}) {
		t.Errorf("blockers = %q", p.Blockers)
	}
	if p.BornWithIDs == nil || len(p.BornWithIDs) != 0 {
		t.Errorf("born_with_ids = %#v, want empty list", p.BornWithIDs)
	}
}

func TestSplitTags(t *testing.T) {
	cases := map[string][]string{
		"":              {},
		"a":             {"a"},
		" a , b ,, c ":  {"a", "b", "c"},
		",,,":           {},
		"Tech, アイデア": {"Tech", "アイデア"},
	}
	for in, want := range cases {
		got := SplitTags(in)
		if got == nil || !slices.Equal(got, want) {
			t.Errorf("SplitTags(%q) = %#v, want %q", in, got, want)
		}
	}
}

func TestBlockerEdits(t *testing.T) {
	d := NewDraft()
	d.AddBlocker()
	if !d.SetBlocker(1, "money") {
		t.Fatal("set blocker 1 failed")
	}
	if !slices.Equal(d.Blockers, []string{"", "money"}) {
		t.Errorf("blockers = %q", d.Blockers)
	}

	if d.SetBlocker(5, "x") || d.RemoveBlocker(-1) {
		t.Error("out of range edit accepted")
	}

	if !d.RemoveBlocker(0) || !d.RemoveBlocker(0) {
		t.Fatal("remove blocker failed")
	}
	if len(d.Blockers) != 0 {
		t.Errorf("blockers = %q, want none", d.Blockers)
	}
}

func TestAddLink(t *testing.T) {
	d := NewDraft()
	link := Link{IdeaID: 4, Body: "four"}

	if !d.AddLink(1, link) {
		t.Fatal("add link failed")
	}
	if d.AddLink(1, link) {
		t.Error("duplicate link added")
	}
	if d.AddLink(1, Link{IdeaID: 1}) {
		t.Error("self link added")
	}
	if len(d.BornWith) != 1 {
		t.Errorf("links = %d, want 1", len(d.BornWith))
	}

	if !d.RemoveLink(4) || d.RemoveLink(4) {
		t.Error("remove link: want true then false")
	}
	if len(d.BornWith) != 0 {
		t.Errorf("links = %d after removal", len(d.BornWith))
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Execute ")
	if err != nil || s != StatusExecute {
		t.Errorf("ParseStatus = %q, %v", s, err)
	}

	if _, err := ParseStatus("archived"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown status err = %v, want invalid", err)
	}

	if !StatusDeleted.IsTerminal() || StatusTransfer.IsTerminal() {
		t.Error("only deleted is terminal")
	}
}

func TestCanMoveTo(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusActive, StatusExecute, true},
		{StatusActive, StatusTransfer, true},
		{StatusActive, StatusDeleted, true},
		{StatusExecute, StatusTransfer, true},
		{StatusTransfer, StatusDeleted, true},
		{StatusExecute, StatusActive, false},
		{StatusTransfer, StatusActive, false},
		{StatusDeleted, StatusActive, false},
		{StatusDeleted, StatusExecute, false},
		{StatusDeleted, StatusDeleted, false},
		{StatusActive, "archived", false},
	}
	for _, tt := range tests {
		err := tt.from.CanMoveTo(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("%s -> %s: err = %v, want invalid", tt.from, tt.to, err)
		}
	}
}
