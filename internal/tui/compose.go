package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/browse"
	"github.com/starford/ideacards/internal/nav"
)

type composedMsg struct {
	route nav.Route
	err   error
}

type composeScreen struct {
	composer *browse.Composer
	form     ideaForm
}

func newComposeScreen(c *browse.Composer) *composeScreen {
	d := c.Draft()
	return &composeScreen{composer: c, form: newIdeaForm(d.Body, d.Tags, d.Blockers)}
}

func (s *composeScreen) submit(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		route, _, err := s.composer.Submit(ctx)
		return composedMsg{route: route, err: err}
	}
}

func (s *composeScreen) handleKey(a *App, msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Back):
		return navigateTo(nav.Route{Path: nav.PathTop})
	case key.Matches(msg, a.keys.Save):
		return s.submit(a.ctx)
	case key.Matches(msg, a.keys.Tab):
		delta := 1
		if msg.String() == "shift+tab" {
			delta = -1
		}
		s.form.setFocus(cycle(s.form.focus, delta, s.form.fieldCount()))
		return nil
	case key.Matches(msg, a.keys.AddBlocker):
		s.composer.AddBlockerField()
		s.form.focus = 2 + len(s.composer.Draft().Blockers) - 1
		s.form.setBlockers(s.composer.Draft().Blockers)
		return nil
	case key.Matches(msg, a.keys.RemoveBlocker):
		if i := s.form.blockerIndex(); i >= 0 && s.composer.RemoveBlockerField(i) {
			blockers := s.composer.Draft().Blockers
			s.form.focus = min(s.form.focus, 2+len(blockers)-1)
			s.form.setBlockers(blockers)
		}
		return nil
	}

	edit, cmd := s.form.update(msg)
	switch {
	case edit.body:
		s.composer.SetBody(s.form.body.Value())
	case edit.tags:
		s.composer.SetTags(s.form.tags.Value())
	case edit.blocker >= 0:
		s.composer.UpdateBlocker(edit.blocker, s.form.blockers[edit.blocker].Value())
	}
	return cmd
}

func (s *composeScreen) view(keys KeyMap) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New idea") + "\n\n")
	b.WriteString(s.form.view())
	if err := s.composer.Err(); err != nil {
		b.WriteString("\n" + errorStyle.Render(apperr.Message(err, "Create failed")) + "\n")
	}
	b.WriteString("\n" + helpLine(keys.Save, keys.Tab, keys.AddBlocker, keys.RemoveBlocker, keys.Back))
	return b.String()
}
