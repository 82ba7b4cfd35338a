package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/suggest"
)

// suggestMsg reports a finished suggest call for the modal that started it.
type suggestMsg struct {
	modal *suggestModal
	err   error
}

const (
	modalKeyword = iota
	modalTags
	modalResults
	modalFieldCount
)

// suggestModal is the born-with picker shown over the editor.
type suggestModal struct {
	keyword textinput.Model
	tags    textinput.Model
	focus   int
	cursor  int
	running bool
}

func newSuggestModal() *suggestModal {
	m := &suggestModal{
		keyword: newInput("keyword", ""),
		tags:    newInput("comma, separated, tags", ""),
	}
	m.keyword.Focus()
	return m
}

func (m *suggestModal) open(ctx context.Context, session *suggest.Session) tea.Cmd {
	m.running = true
	return func() tea.Msg { return suggestMsg{modal: m, err: session.Open(ctx)} }
}

func (m *suggestModal) submit(ctx context.Context, session *suggest.Session) tea.Cmd {
	m.running = true
	m.cursor = 0
	session.SetFilters(m.keyword.Value(), m.tags.Value())
	return func() tea.Msg { return suggestMsg{modal: m, err: session.Submit(ctx)} }
}

func (m *suggestModal) done(suggestMsg) {
	m.running = false
}

func (m *suggestModal) setFocus(i int) {
	m.focus = i
	m.keyword.Blur()
	m.tags.Blur()
	switch i {
	case modalKeyword:
		m.keyword.Focus()
	case modalTags:
		m.tags.Focus()
	}
}

func (m *suggestModal) handleKey(a *App, s *editorScreen, msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Back):
		s.session.Close()
		s.modal = nil
		return nil
	case key.Matches(msg, a.keys.Tab):
		delta := 1
		if msg.String() == "shift+tab" {
			delta = -1
		}
		m.setFocus(cycle(m.focus, delta, modalFieldCount))
		return nil
	}

	if m.focus == modalResults {
		results := s.session.Results()
		switch {
		case key.Matches(msg, a.keys.Up):
			m.cursor = max(m.cursor-1, 0)
		case key.Matches(msg, a.keys.Down):
			m.cursor = min(m.cursor+1, max(len(results)-1, 0))
		case key.Matches(msg, a.keys.Enter):
			if m.cursor < len(results) && s.session.Select(results[m.cursor]) {
				// The linked idea drops out of the list.
				m.cursor = min(m.cursor, max(len(results)-2, 0))
			}
		}
		return nil
	}

	if key.Matches(msg, a.keys.Enter) {
		return m.submit(a.ctx, s.session)
	}
	var cmd tea.Cmd
	if m.focus == modalKeyword {
		m.keyword, cmd = m.keyword.Update(msg)
	} else {
		m.tags, cmd = m.tags.Update(msg)
	}
	return cmd
}

func (m *suggestModal) view(keys KeyMap, session *suggest.Session) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Link ideas") + "\n")
	b.WriteString(fieldLabel("Keyword", m.focus == modalKeyword) + "\n" + m.keyword.View() + "\n")
	b.WriteString(fieldLabel("Tags", m.focus == modalTags) + "\n" + m.tags.View() + "\n\n")

	if err := session.Err(); err != nil {
		b.WriteString(errorStyle.Render(apperr.Message(err, "Suggest failed")) + "\n")
	}
	results := session.Results()
	switch {
	case m.running && len(results) == 0:
		b.WriteString(labelStyle.Render("Searching…") + "\n")
	case len(results) == 0:
		b.WriteString(labelStyle.Render("No candidates.") + "\n")
	}
	for i, it := range results {
		line := "#" + strconv.FormatInt(it.IdeaID, 10) + " " + firstLine(it.Body)
		if len(it.Tags) > 0 {
			line += "  " + tagStyle.Render(idea.JoinTags(it.Tags))
		}
		if m.focus == modalResults && i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpLine(keys.Tab, keys.Enter, keys.Back))
	return modalStyle.Render(strings.TrimRight(b.String(), "\n"))
}
