package editor

import "github.com/starford/ideacards/internal/idea"

// The draft edits below are local only and take effect on the next Save.
// Each reports false when the editor is not Ready or the edit was rejected.

func (e *Editor) edit(fn func(d *idea.Draft) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return false
	}
	return fn(&e.draft)
}

// SetBody replaces the body text.
func (e *Editor) SetBody(body string) bool {
	return e.edit(func(d *idea.Draft) bool {
		d.Body = body
		return true
	})
}

// SetTags replaces the comma-separated tag text.
func (e *Editor) SetTags(tags string) bool {
	return e.edit(func(d *idea.Draft) bool {
		d.Tags = tags
		return true
	})
}

// AddBlockerField appends an empty blocker row.
func (e *Editor) AddBlockerField() bool {
	return e.edit(func(d *idea.Draft) bool {
		d.AddBlocker()
		return true
	})
}

// RemoveBlockerField removes row index. Removing the last row is allowed.
func (e *Editor) RemoveBlockerField(index int) bool {
	return e.edit(func(d *idea.Draft) bool { return d.RemoveBlocker(index) })
}

// UpdateBlocker sets row index to value.
func (e *Editor) UpdateBlocker(index int, value string) bool {
	return e.edit(func(d *idea.Draft) bool { return d.SetBlocker(index, value) })
}

// AddBornWith links l. Self links and links already present are ignored.
func (e *Editor) AddBornWith(l idea.Link) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return false
	}
	return e.draft.AddLink(e.id, l)
}

// RemoveBornWith unlinks id.
func (e *Editor) RemoveBornWith(id int64) bool {
	return e.edit(func(d *idea.Draft) bool { return d.RemoveLink(id) })
}

// HasBornWith reports whether id is already linked in the draft.
func (e *Editor) HasBornWith(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.HasLink(id)
}
