package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/browse"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/nav"
)

type deckMsg struct{ err error }

type topScreen struct {
	deck *browse.Deck
}

func newTopScreen(deck *browse.Deck) *topScreen {
	return &topScreen{deck: deck}
}

func (s *topScreen) load(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return deckMsg{err: s.deck.Load(ctx)} }
}

func (s *topScreen) next(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return deckMsg{err: s.deck.Next(ctx)} }
}

// enter draws a fresh card on return to the top page unless pinned.
func (s *topScreen) enter(ctx context.Context) tea.Cmd {
	return s.next(ctx)
}

func (s *topScreen) handleKey(a *App, msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.Next):
		return s.next(a.ctx)
	case key.Matches(msg, a.keys.Pin):
		s.deck.TogglePin()
	case key.Matches(msg, a.keys.Enter):
		if r, ok := s.deck.Open(); ok {
			return navigateTo(r)
		}
	case key.Matches(msg, a.keys.Search):
		return navigateTo(nav.Route{Path: nav.PathSearch})
	case key.Matches(msg, a.keys.New):
		return navigateTo(nav.Route{Path: nav.PathNew})
	}
	return nil
}

func (s *topScreen) view(keys KeyMap) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ideacards") + "\n\n")

	v := s.deck.View()
	switch {
	case v.Err != nil:
		b.WriteString(errorStyle.Render(apperr.Message(v.Err, "No ideas found")) + "\n")
	case v.Empty:
		b.WriteString(labelStyle.Render("No active ideas yet. Press a to write one.") + "\n")
	case v.Card != nil:
		b.WriteString(cardStyle.Render(renderCard(v.Card)) + "\n")
	default:
		b.WriteString(labelStyle.Render("Loading…") + "\n")
	}

	pin := "unpinned"
	if v.Pinned {
		pin = focusStyle.Render("pinned")
	}
	b.WriteString("\n" + pin + "\n")
	b.WriteString(helpLine(keys.Next, keys.Pin, keys.Enter, keys.Search, keys.New, keys.Quit))
	return b.String()
}

func renderCard(it *idea.Idea) string {
	var b strings.Builder
	b.WriteString(statusBadge(it.Status) + " #" + strconv.FormatInt(it.IdeaID, 10) + "\n\n")
	b.WriteString(it.Body + "\n")
	if len(it.Tags) > 0 {
		b.WriteString("\n" + tagStyle.Render(idea.JoinTags(it.Tags)) + "\n")
	}
	var blockers []string
	for _, bl := range it.Blockers {
		if strings.TrimSpace(bl) != "" {
			blockers = append(blockers, "• "+bl)
		}
	}
	if len(blockers) > 0 {
		b.WriteString("\n" + labelStyle.Render("Blocked by") + "\n" + strings.Join(blockers, "\n") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}
