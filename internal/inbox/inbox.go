// Package inbox turns Markdown files dropped into a directory into new
// active ideas.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ideacards/internal/dictionary"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/metrics"
)

// DefaultSettle is how long a file must stay quiet before it is captured.
const DefaultSettle = 200 * time.Millisecond

// Creator persists a captured idea.
type Creator interface {
	Create(ctx context.Context, in idea.CreatePayload) (*idea.Idea, error)
}

// CaptureCallback is called after a file has been turned into an idea.
type CaptureCallback func(path string, it *idea.Idea)

// Inbox watches a directory of Markdown captures.
type Inbox struct {
	vault     *dictionary.Vault
	creator   Creator
	metrics   *metrics.Collector
	logger    *slog.Logger
	settle    time.Duration
	onCapture CaptureCallback
}

// Option configures an Inbox.
type Option func(*Inbox)

func WithMetrics(c *metrics.Collector) Option {
	return func(in *Inbox) { in.metrics = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(in *Inbox) { in.logger = l }
}

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(in *Inbox) { in.settle = d }
}

func WithOnCapture(cb CaptureCallback) Option {
	return func(in *Inbox) { in.onCapture = cb }
}

// New creates an Inbox over dir, creating the directory if needed.
func New(dir string, creator Creator, opts ...Option) (*Inbox, error) {
	v, err := dictionary.NewVault(dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	in := &Inbox{
		vault:   v,
		creator: creator,
		logger:  slog.Default(),
		settle:  DefaultSettle,
	}
	for _, o := range opts {
		o(in)
	}
	return in, nil
}

// Dir returns the watched directory.
func (in *Inbox) Dir() string { return in.vault.Root() }

// Sweep captures every Markdown file currently in the inbox and returns the
// number of ideas created.
func (in *Inbox) Sweep(ctx context.Context) (int, error) {
	paths, err := in.vault.List()
	if err != nil {
		return 0, fmt.Errorf("inbox: sweep: %w", err)
	}
	n := 0
	for _, p := range paths {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		ok, err := in.Capture(ctx, p)
		if err != nil {
			in.logger.Warn("inbox: capture failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Capture turns the file at rel into an active idea and removes the file.
// A file whose body is empty is left in place and reported as not captured.
func (in *Inbox) Capture(ctx context.Context, rel string) (bool, error) {
	data, err := in.vault.Read(rel)
	if err != nil {
		return false, err
	}
	note := dictionary.Parse(data)
	if note.Body == "" {
		in.logger.Debug("inbox: empty body skipped", slog.String("path", rel))
		return false, nil
	}

	payload := note.Payload()
	payload.Status = idea.StatusActive
	it, err := in.creator.Create(ctx, payload)
	if err != nil {
		return false, fmt.Errorf("inbox: create from %s: %w", rel, err)
	}
	if err := in.vault.Delete(rel); err != nil {
		// The idea exists; a leftover file would be captured twice.
		in.logger.Error("inbox: remove captured file", slog.String("path", rel), slog.String("error", err.Error()))
	}

	in.metrics.Captured()
	in.logger.Info("inbox: captured",
		slog.String("path", rel),
		slog.Int64("idea_id", it.IdeaID))
	if in.onCapture != nil {
		in.onCapture(rel, it)
	}
	return true, nil
}

// Watch sweeps the inbox once and then captures files as they are created or
// written, until ctx is cancelled. Only the top-level directory is watched.
func (in *Inbox) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(in.vault.Root()); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", in.vault.Root(), err)
	}
	in.logger.Info("inbox: started", slog.String("dir", in.vault.Root()))

	if _, err := in.Sweep(ctx); err != nil && ctx.Err() == nil {
		in.logger.Warn("inbox: initial sweep", slog.String("error", err.Error()))
	}

	// Writers often emit several events per file; capture once it settles.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(in.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("inbox: stopped")
			return nil

		case now := <-ticker.C:
			for rel, last := range pending {
				if now.Sub(last) < in.settle {
					continue
				}
				delete(pending, rel)
				if _, err := in.Capture(ctx, rel); err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						continue
					}
					in.logger.Warn("inbox: capture failed", slog.String("path", rel), slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !dictionary.IsMarkdown(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(in.vault.Root(), ev.Name)
			if relErr != nil {
				continue
			}
			pending[rel] = time.Now()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
