package tui

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/ideacards/internal/editor"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/nav"
	"github.com/starford/ideacards/internal/suggest"
)

type editorAction int

const (
	actionLoad editorAction = iota
	actionSave
	actionStatus
	actionDelete
)

type editorMsg struct {
	screen *editorScreen
	action editorAction
	route  nav.Route
	err    error
}

// editorScreen is one editor visit. A new one is built for every navigation
// into an editor, including born-with link follows.
type editorScreen struct {
	route   nav.Route
	ed      *editor.Editor
	session *suggest.Session
	modal   *suggestModal
	form    ideaForm
	status  idea.Status
	cursor  int
}

func newEditorScreen(a *App, r nav.Route) *editorScreen {
	ed := editor.New(a.remote,
		editor.WithAckDelay(a.ackDelay),
		editor.WithLogger(a.logger),
		editor.WithOnChange(a.redraw),
	)
	// A route built without an origin resolves to search.
	r.Context = nav.FromState(string(r.Context.From))
	return &editorScreen{
		route:   r,
		ed:      ed,
		session: suggest.New(a.remote, ed, a.logger),
		form:    newIdeaForm("", "", nil),
	}
}

func (s *editorScreen) load(ctx context.Context) tea.Cmd {
	return s.do(actionLoad, func() (nav.Route, error) {
		return nav.Route{}, s.ed.Load(ctx, s.route.IdeaID, s.route.Context)
	})
}

func (s *editorScreen) do(action editorAction, fn func() (nav.Route, error)) tea.Cmd {
	return func() tea.Msg {
		route, err := fn()
		return editorMsg{screen: s, action: action, route: route, err: err}
	}
}

func (s *editorScreen) close() {
	s.session.Close()
	s.ed.Close()
}

// Focus indexes after the text fields.
func (s *editorScreen) statusField() int { return s.form.fieldCount() }
func (s *editorScreen) linksField() int { return s.form.fieldCount() + 1 }

// resetForm rebuilds the fields from the editor's draft, keeping focus.
func (s *editorScreen) resetForm() {
	snap := s.ed.Snapshot()
	focus := s.form.focus
	s.form = newIdeaForm(snap.Draft.Body, snap.Draft.Tags, snap.Draft.Blockers)
	s.form.setFocus(min(focus, s.linksField()))
	s.cursor = min(s.cursor, max(len(snap.Draft.BornWith)-1, 0))
}

func (s *editorScreen) handleResult(a *App, msg editorMsg) tea.Cmd {
	if msg.err != nil {
		// Failures are on the editor snapshot; superseded results are dropped.
		return nil
	}
	switch msg.action {
	case actionLoad:
		s.resetForm()
		s.status = idea.StatusActions[0]
		if snap := s.ed.Snapshot(); snap.Idea != nil && slices.Contains(idea.StatusActions, snap.Idea.Status) {
			s.status = snap.Idea.Status
		}
	case actionSave:
		s.resetForm()
	case actionDelete:
		return navigateTo(msg.route)
	}
	return nil
}

func (s *editorScreen) handleKey(a *App, msg tea.KeyMsg) tea.Cmd {
	if s.modal != nil {
		return s.modal.handleKey(a, s, msg)
	}
	if key.Matches(msg, a.keys.Back) {
		return navigateTo(s.ed.Back())
	}
	snap := s.ed.Snapshot()
	if snap.State != editor.StateReady {
		return nil
	}

	switch {
	case key.Matches(msg, a.keys.Save):
		return s.do(actionSave, func() (nav.Route, error) { return nav.Route{}, s.ed.Save(a.ctx) })
	case key.Matches(msg, a.keys.Delete):
		return s.do(actionDelete, func() (nav.Route, error) { return s.ed.Delete(a.ctx) })
	case key.Matches(msg, a.keys.Link):
		s.modal = newSuggestModal()
		return s.modal.open(a.ctx, s.session)
	case key.Matches(msg, a.keys.Tab):
		delta := 1
		if msg.String() == "shift+tab" {
			delta = -1
		}
		s.form.setFocus(cycle(s.form.focus, delta, s.linksField()+1))
		return nil
	case key.Matches(msg, a.keys.AddBlocker):
		if s.ed.AddBlockerField() {
			s.form.focus = 2 + len(s.ed.Snapshot().Draft.Blockers) - 1
			s.form.setBlockers(s.ed.Snapshot().Draft.Blockers)
		}
		return nil
	case key.Matches(msg, a.keys.RemoveBlocker):
		if i := s.form.blockerIndex(); i >= 0 && s.ed.RemoveBlockerField(i) {
			blockers := s.ed.Snapshot().Draft.Blockers
			s.form.focus = min(s.form.focus, 2+len(blockers)-1)
			s.form.setBlockers(blockers)
		}
		return nil
	}

	switch s.form.focus {
	case s.statusField():
		return s.handleStatusKey(a, msg)
	case s.linksField():
		return s.handleLinksKey(a, msg, snap.Draft.BornWith)
	}

	edit, cmd := s.form.update(msg)
	switch {
	case edit.body:
		s.ed.SetBody(s.form.body.Value())
	case edit.tags:
		s.ed.SetTags(s.form.tags.Value())
	case edit.blocker >= 0:
		s.ed.UpdateBlocker(edit.blocker, s.form.blockers[edit.blocker].Value())
	}
	return cmd
}

func (s *editorScreen) handleStatusKey(a *App, msg tea.KeyMsg) tea.Cmd {
	i := max(slices.Index(idea.StatusActions, s.status), 0)
	switch {
	case key.Matches(msg, a.keys.Left):
		s.status = idea.StatusActions[cycle(i, -1, len(idea.StatusActions))]
	case key.Matches(msg, a.keys.Right):
		s.status = idea.StatusActions[cycle(i, 1, len(idea.StatusActions))]
	case key.Matches(msg, a.keys.Enter):
		status := s.status
		return s.do(actionStatus, func() (nav.Route, error) { return nav.Route{}, s.ed.SetStatus(a.ctx, status) })
	}
	return nil
}

func (s *editorScreen) handleLinksKey(a *App, msg tea.KeyMsg, links []idea.Link) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Up):
		s.cursor = max(s.cursor-1, 0)
	case key.Matches(msg, a.keys.Down):
		s.cursor = min(s.cursor+1, max(len(links)-1, 0))
	case key.Matches(msg, a.keys.Enter):
		if s.cursor < len(links) {
			return navigateTo(s.ed.FollowLink(links[s.cursor].IdeaID))
		}
	case key.Matches(msg, a.keys.Unlink):
		if s.cursor < len(links) && s.ed.RemoveBornWith(links[s.cursor].IdeaID) {
			s.cursor = min(s.cursor, max(len(links)-2, 0))
		}
	}
	return nil
}

func (s *editorScreen) view(keys KeyMap) string {
	snap := s.ed.Snapshot()
	var b strings.Builder

	header := "Idea #" + strconv.FormatInt(snap.IdeaID, 10)
	if snap.Idea != nil {
		header += " " + statusBadge(snap.Idea.Status)
	}
	b.WriteString(titleStyle.Render(header) + "  " + stateLabel(snap) + "\n")
	if msg := snap.Message(); msg != "" {
		b.WriteString(errorStyle.Render(msg) + "\n")
	}
	b.WriteString("\n")

	if snap.State == editor.StateLoading || snap.State == editor.StateIdle {
		b.WriteString(helpLine(keys.Back))
		return b.String()
	}

	b.WriteString(s.form.view() + "\n")

	b.WriteString(fieldLabel("Status", s.form.focus == s.statusField()) + "\n  ")
	if snap.Idea != nil && snap.Idea.Status.IsTerminal() {
		b.WriteString(labelStyle.Render("deleted ideas keep their status"))
	} else {
		for _, st := range idea.StatusActions {
			label := string(st)
			if st == s.status {
				label = selectedStyle.Render(label)
			}
			b.WriteString(label + " ")
		}
	}
	b.WriteString("\n\n")

	b.WriteString(fieldLabel("Born with", s.form.focus == s.linksField()) + "\n")
	if len(snap.Draft.BornWith) == 0 {
		b.WriteString(labelStyle.Render("  none") + "\n")
	}
	for i, l := range snap.Draft.BornWith {
		line := "  #" + strconv.FormatInt(l.IdeaID, 10) + " " + firstLine(l.Body)
		if s.form.focus == s.linksField() && i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if s.modal != nil {
		b.WriteString("\n" + s.modal.view(keys, s.session))
		return b.String()
	}
	b.WriteString("\n" + helpLine(keys.Save, keys.Tab, keys.AddBlocker, keys.Link, keys.Delete, keys.Back))
	return b.String()
}

func stateLabel(snap editor.Snapshot) string {
	switch {
	case snap.State == editor.StateLoading && snap.Err == nil:
		return labelStyle.Render("Loading…")
	case snap.State == editor.StateSaving:
		return labelStyle.Render("Saving…")
	case snap.State == editor.StateStatusUpdating:
		return labelStyle.Render("Updating status…")
	case snap.Saved:
		return okStyle.Render("Saved")
	}
	return ""
}
