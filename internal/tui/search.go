package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/browse"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/nav"
)

type searchDoneMsg struct{ err error }

const (
	searchKeyword = iota
	searchTags
	searchStatus
	searchResults
	searchFieldCount
)

type searchScreen struct {
	finder  *browse.Finder
	keyword textinput.Model
	tags    textinput.Model
	focus   int
	cursor  int
	ran     bool
}

func newSearchScreen(f *browse.Finder) *searchScreen {
	s := &searchScreen{
		finder:  f,
		keyword: newInput("keyword", ""),
		tags:    newInput("comma, separated, tags", ""),
	}
	s.keyword.Focus()
	return s
}

// enter re-runs the last search so edits made in the editor show up.
func (s *searchScreen) enter(ctx context.Context) tea.Cmd {
	if !s.ran {
		return nil
	}
	return s.run(ctx)
}

func (s *searchScreen) run(ctx context.Context) tea.Cmd {
	s.ran = true
	s.finder.SetKeyword(s.keyword.Value())
	s.finder.SetTags(s.tags.Value())
	return func() tea.Msg { return searchDoneMsg{err: s.finder.Run(ctx)} }
}

func (s *searchScreen) setFocus(i int) {
	s.focus = i
	s.keyword.Blur()
	s.tags.Blur()
	switch i {
	case searchKeyword:
		s.keyword.Focus()
	case searchTags:
		s.tags.Focus()
	}
}

func (s *searchScreen) cycleStatus(delta int) {
	current := s.finder.Filters().Status
	i := 0
	for j, st := range idea.Statuses {
		if st == current {
			i = j
		}
	}
	_ = s.finder.SetStatus(idea.Statuses[cycle(i, delta, len(idea.Statuses))])
}

func (s *searchScreen) handleKey(a *App, msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Back):
		return navigateTo(nav.Route{Path: nav.PathTop})
	case key.Matches(msg, a.keys.Tab):
		delta := 1
		if msg.String() == "shift+tab" {
			delta = -1
		}
		s.setFocus(cycle(s.focus, delta, searchFieldCount))
		return nil
	}

	switch s.focus {
	case searchStatus:
		switch {
		case key.Matches(msg, a.keys.Left):
			s.cycleStatus(-1)
		case key.Matches(msg, a.keys.Right):
			s.cycleStatus(1)
		case key.Matches(msg, a.keys.Enter):
			return s.run(a.ctx)
		}
		return nil

	case searchResults:
		results := s.finder.Results()
		switch {
		case key.Matches(msg, a.keys.Up):
			s.cursor = max(s.cursor-1, 0)
		case key.Matches(msg, a.keys.Down):
			s.cursor = min(s.cursor+1, max(len(results)-1, 0))
		case key.Matches(msg, a.keys.Enter):
			if s.cursor < len(results) {
				return navigateTo(s.finder.Open(results[s.cursor].IdeaID))
			}
		}
		return nil
	}

	if key.Matches(msg, a.keys.Enter) {
		s.cursor = 0
		return s.run(a.ctx)
	}
	var cmd tea.Cmd
	if s.focus == searchKeyword {
		s.keyword, cmd = s.keyword.Update(msg)
	} else {
		s.tags, cmd = s.tags.Update(msg)
	}
	return cmd
}

func (s *searchScreen) view(keys KeyMap) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Search") + "\n\n")
	b.WriteString(fieldLabel("Keyword", s.focus == searchKeyword) + "\n" + s.keyword.View() + "\n")
	b.WriteString(fieldLabel("Tags", s.focus == searchTags) + "\n" + s.tags.View() + "\n")
	b.WriteString(fieldLabel("Status", s.focus == searchStatus) + "\n  " + statusBadge(s.finder.Filters().Status) + "\n\n")

	if err := s.finder.Err(); err != nil {
		b.WriteString(errorStyle.Render(apperr.Message(err, "Search failed")) + "\n")
	}
	results := s.finder.Results()
	if s.ran && len(results) == 0 {
		b.WriteString(labelStyle.Render("No matching ideas.") + "\n")
	}
	for i, it := range results {
		line := "#" + strconv.FormatInt(it.IdeaID, 10) + " " + firstLine(it.Body)
		if len(it.Tags) > 0 {
			line += "  " + tagStyle.Render(idea.JoinTags(it.Tags))
		}
		if s.focus == searchResults && i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpLine(keys.Tab, keys.Enter, keys.Left, keys.Back))
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const limit = 60
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
