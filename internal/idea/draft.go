package idea

import (
	"slices"
	"strings"
)

const tagSeparator = ", "

// Draft is the editable projection of an Idea. Tags are one free-text
// comma-separated string; Blockers starts with at least one slot.
type Draft struct {
	Body     string
	Tags     string
	Blockers []string
	BornWith []Link
}

// NewDraft returns an empty draft with a single blank blocker row.
func NewDraft() Draft {
	return Draft{Blockers: []string{""}, BornWith: []Link{}}
}

// ToDraft converts a stored idea into a fresh draft.
func ToDraft(i Idea) Draft {
	blockers := slices.Clone(i.Blockers)
	if len(blockers) == 0 {
		blockers = []string{""}
	}
	return Draft{
		Body:     i.Body,
		Tags:     JoinTags(i.Tags),
		Blockers: blockers,
		BornWith: cloneLinks(i.BornWith),
	}
}

// ToPayload converts a draft into the wire payload. Empty blocker entries are
// passed through unchanged.
func ToPayload(d Draft) Payload {
	return Payload{
		Body:        d.Body,
		Tags:        SplitTags(d.Tags),
		Blockers:    NonNil(slices.Clone(d.Blockers)),
		BornWithIDs: linkIDs(d.BornWith),
	}
}

// JoinTags renders tags the way the edit form shows them.
func JoinTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

// SplitTags splits a comma-separated string, trimming each token and dropping
// empty ones. Order is preserved.
func SplitTags(s string) []string {
	out := []string{}
	for _, tok := range strings.Split(s, ",") {
		if t := strings.TrimSpace(tok); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	return Draft{
		Body:     d.Body,
		Tags:     d.Tags,
		Blockers: slices.Clone(d.Blockers),
		BornWith: cloneLinks(d.BornWith),
	}
}

// AddBlocker appends an empty blocker row.
func (d *Draft) AddBlocker() {
	d.Blockers = append(d.Blockers, "")
}

// RemoveBlocker drops the row at index. The last row may be removed.
func (d *Draft) RemoveBlocker(index int) bool {
	if index < 0 || index >= len(d.Blockers) {
		return false
	}
	d.Blockers = slices.Delete(d.Blockers, index, index+1)
	return true
}

// SetBlocker replaces the text of the row at index.
func (d *Draft) SetBlocker(index int, value string) bool {
	if index < 0 || index >= len(d.Blockers) {
		return false
	}
	d.Blockers[index] = value
	return true
}

// HasLink reports whether id is already in the born-with set.
func (d Draft) HasLink(id int64) bool {
	return slices.ContainsFunc(d.BornWith, func(l Link) bool { return l.IdeaID == id })
}

// AddLink attaches l unless it points at self or is already linked.
func (d *Draft) AddLink(self int64, l Link) bool {
	if l.IdeaID == self || d.HasLink(l.IdeaID) {
		return false
	}
	l.Tags = NonNil(slices.Clone(l.Tags))
	d.BornWith = append(d.BornWith, l)
	return true
}

// RemoveLink detaches id from the born-with set.
func (d *Draft) RemoveLink(id int64) bool {
	n := len(d.BornWith)
	d.BornWith = slices.DeleteFunc(d.BornWith, func(l Link) bool { return l.IdeaID == id })
	return len(d.BornWith) != n
}

func cloneLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		l.Tags = NonNil(slices.Clone(l.Tags))
		out = append(out, l)
	}
	return out
}
