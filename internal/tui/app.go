// Package tui is the terminal client: top, search, new-idea and editor
// screens driven by the browse, editor and suggest packages.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/ideacards/internal/browse"
	"github.com/starford/ideacards/internal/editor"
	"github.com/starford/ideacards/internal/nav"
	"github.com/starford/ideacards/internal/suggest"
)

// Remote is everything the terminal client needs from the idea service.
type Remote interface {
	browse.RandomFetcher
	browse.Searcher
	browse.Creator
	editor.Persistence
	suggest.Suggester
}

type screen int

const (
	screenTop screen = iota
	screenSearch
	screenNew
	screenEditor
)

// refreshMsg asks for a redraw, used when the "saved" acknowledgment expires.
type refreshMsg struct{}

// App is the root bubbletea model.
type App struct {
	ctx      context.Context
	remote   Remote
	logger   *slog.Logger
	keys     KeyMap
	ackDelay time.Duration
	send     func(tea.Msg)

	screen  screen
	top     *topScreen
	search  *searchScreen
	compose *composeScreen
	edit    *editorScreen
}

// Option configures an App.
type Option func(*App)

// WithAckDelay sets how long "Saved" stays on screen after a save.
func WithAckDelay(d time.Duration) Option {
	return func(a *App) { a.ackDelay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New builds the client on the top page.
func New(ctx context.Context, remote Remote, opts ...Option) *App {
	a := &App{
		ctx:      ctx,
		remote:   remote,
		logger:   slog.Default(),
		keys:     DefaultKeyMap(),
		ackDelay: editor.DefaultAckDelay,
	}
	for _, o := range opts {
		o(a)
	}
	a.top = newTopScreen(browse.NewDeck(remote, a.logger))
	a.search = newSearchScreen(browse.NewFinder(remote, a.logger))
	a.compose = newComposeScreen(browse.NewComposer(remote, a.logger))
	return a
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, remote Remote, opts ...Option) error {
	app := New(ctx, remote, opts...)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	app.send = p.Send
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// redraw asks the running program to repaint. Editors call it from their
// acknowledgment timer, outside Update.
func (a *App) redraw() {
	if a.send != nil {
		a.send(refreshMsg{})
	}
}

func (a *App) Init() tea.Cmd {
	return a.top.load(a.ctx)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.handleKey(msg)

	case navigateMsg:
		return a, a.navigate(msg.route)

	case deckMsg, searchDoneMsg:
		return a, nil

	case composedMsg:
		if msg.err != nil {
			return a, nil
		}
		a.compose = newComposeScreen(browse.NewComposer(a.remote, a.logger))
		return a, a.navigate(msg.route)

	case editorMsg:
		if a.edit == nil || a.edit != msg.screen {
			return a, nil
		}
		return a, a.edit.handleResult(a, msg)

	case suggestMsg:
		if a.edit != nil && a.edit.modal != nil && a.edit.modal == msg.modal {
			msg.modal.done(msg)
		}
		return a, nil

	case refreshMsg:
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch a.screen {
	case screenTop:
		return a.top.handleKey(a, msg)
	case screenSearch:
		return a.search.handleKey(a, msg)
	case screenNew:
		return a.compose.handleKey(a, msg)
	case screenEditor:
		if a.edit != nil {
			return a.edit.handleKey(a, msg)
		}
	}
	return nil
}

// navigateMsg defers a navigation to the next update.
type navigateMsg struct{ route nav.Route }

func navigateTo(r nav.Route) tea.Cmd {
	return func() tea.Msg { return navigateMsg{route: r} }
}

// navigate switches screens. Entering an editor always starts a fresh
// editor instance carrying the route's context.
func (a *App) navigate(r nav.Route) tea.Cmd {
	a.logger.Debug("navigate", slog.String("path", r.Path), slog.String("from", string(r.Context.From)))
	if a.edit != nil {
		a.edit.close()
		a.edit = nil
	}
	if r.IsEditor() {
		a.edit = newEditorScreen(a, r)
		a.screen = screenEditor
		return a.edit.load(a.ctx)
	}
	switch r.Path {
	case nav.PathSearch:
		a.screen = screenSearch
		return a.search.enter(a.ctx)
	case nav.PathNew:
		a.screen = screenNew
		return nil
	default:
		a.screen = screenTop
		return a.top.enter(a.ctx)
	}
}

func (a *App) View() string {
	var body string
	switch a.screen {
	case screenTop:
		body = a.top.view(a.keys)
	case screenSearch:
		body = a.search.view(a.keys)
	case screenNew:
		body = a.compose.view(a.keys)
	case screenEditor:
		if a.edit != nil {
			body = a.edit.view(a.keys)
		}
	}
	return strings.TrimRight(body, "\n") + "\n"
}
