package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const fieldWidth = 60

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.Width = fieldWidth
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.SetValue(value)
	return ti
}

func newBody(value string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "What's the idea?"
	ta.ShowLineNumbers = false
	ta.SetWidth(fieldWidth)
	ta.SetHeight(4)
	ta.Cursor.SetMode(cursor.CursorStatic)
	ta.SetValue(value)
	return ta
}

// ideaForm holds the body, tags and blocker fields shared by the new-idea
// page and the editor. Focus indexes run body, tags, then one per blocker.
type ideaForm struct {
	body     textarea.Model
	tags     textinput.Model
	blockers []textinput.Model
	focus    int
}

func newIdeaForm(body, tags string, blockers []string) ideaForm {
	f := ideaForm{body: newBody(body), tags: newInput("comma, separated, tags", tags)}
	f.setBlockers(blockers)
	return f
}

func (f *ideaForm) setBlockers(values []string) {
	f.blockers = make([]textinput.Model, len(values))
	for i, v := range values {
		f.blockers[i] = newInput("blocker", v)
	}
	f.applyFocus()
}

// fieldCount is the number of focusable text fields.
func (f *ideaForm) fieldCount() int { return 2 + len(f.blockers) }

// blockerIndex returns the focused blocker row, or -1.
func (f *ideaForm) blockerIndex() int {
	if f.focus >= 2 && f.focus-2 < len(f.blockers) {
		return f.focus - 2
	}
	return -1
}

func (f *ideaForm) setFocus(i int) {
	f.focus = i
	f.applyFocus()
}

func (f *ideaForm) applyFocus() {
	f.body.Blur()
	f.tags.Blur()
	for i := range f.blockers {
		f.blockers[i].Blur()
	}
	switch {
	case f.focus == 0:
		f.body.Focus()
	case f.focus == 1:
		f.tags.Focus()
	case f.blockerIndex() >= 0:
		f.blockers[f.blockerIndex()].Focus()
	}
}

// formEdit reports which field a key changed.
type formEdit struct {
	body    bool
	tags    bool
	blocker int
}

// update forwards msg to the focused field.
func (f *ideaForm) update(msg tea.Msg) (formEdit, tea.Cmd) {
	edit := formEdit{blocker: -1}
	var cmd tea.Cmd
	switch {
	case f.focus == 0:
		f.body, cmd = f.body.Update(msg)
		edit.body = true
	case f.focus == 1:
		f.tags, cmd = f.tags.Update(msg)
		edit.tags = true
	case f.blockerIndex() >= 0:
		i := f.blockerIndex()
		f.blockers[i], cmd = f.blockers[i].Update(msg)
		edit.blocker = i
	}
	return edit, cmd
}

func (f *ideaForm) view() string {
	var b strings.Builder
	b.WriteString(fieldLabel("Body", f.focus == 0) + "\n")
	b.WriteString(f.body.View() + "\n\n")
	b.WriteString(fieldLabel("Tags", f.focus == 1) + "\n")
	b.WriteString(f.tags.View() + "\n\n")
	b.WriteString(fieldLabel("Blockers", f.blockerIndex() >= 0) + "\n")
	for i := range f.blockers {
		marker := "  "
		if f.blockerIndex() == i {
			marker = focusStyle.Render("> ")
		}
		b.WriteString(marker + f.blockers[i].View() + "\n")
	}
	return b.String()
}

func fieldLabel(name string, focused bool) string {
	if focused {
		return focusStyle.Render("▸ " + name)
	}
	return labelStyle.Render("  " + name)
}

// cycle moves i by delta within [0, n).
func cycle(i, delta, n int) int {
	if n == 0 {
		return 0
	}
	return ((i+delta)%n + n) % n
}
