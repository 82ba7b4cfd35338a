package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/ideaservice"
	"github.com/starford/ideacards/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func inboxTestEnv(t *testing.T, opts ...Option) (*Inbox, *ideaservice.Service) {
	t.Helper()
	svc := ideaservice.New(testutil.TestStore(t), ideaservice.WithLogger(quietLogger()))
	opts = append([]Option{WithLogger(quietLogger()), WithSettle(50 * time.Millisecond)}, opts...)
	in, err := New(t.TempDir(), svc, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return in, svc
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCapture_CreatesActiveIdeaAndRemovesFile(t *testing.T) {
	in, svc := inboxTestEnv(t)
	ctx := context.Background()
	writeFile(t, in.Dir(), "walk.md", "---\ntags: [garden]\nblockers:\n  - rain\n---\nPlant herbs #spring\n")

	ok, err := in.Capture(ctx, "walk.md")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !ok {
		t.Fatal("expected file to be captured")
	}
	if _, err := os.Stat(filepath.Join(in.Dir(), "walk.md")); !os.IsNotExist(err) {
		t.Errorf("captured file still present: %v", err)
	}

	got, err := svc.Search(ctx, ideaservice.Query{Tags: []string{"garden"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 idea, got %d", len(got))
	}
	it := got[0]
	if it.Body != "Plant herbs #spring" {
		t.Errorf("body = %q", it.Body)
	}
	if it.Status != idea.StatusActive {
		t.Errorf("status = %q, want active", it.Status)
	}
	if len(it.Tags) != 2 || it.Tags[0] != "garden" || it.Tags[1] != "spring" {
		t.Errorf("tags = %v", it.Tags)
	}
	if len(it.Blockers) != 1 || it.Blockers[0] != "rain" {
		t.Errorf("blockers = %v", it.Blockers)
	}
}

func TestCapture_EmptyBodyLeftInPlace(t *testing.T) {
	in, _ := inboxTestEnv(t)
	writeFile(t, in.Dir(), "blank.md", "---\ntags: [x]\n---\n   \n")

	ok, err := in.Capture(context.Background(), "blank.md")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if ok {
		t.Error("empty note should not be captured")
	}
	if _, err := os.Stat(filepath.Join(in.Dir(), "blank.md")); err != nil {
		t.Errorf("empty note should stay: %v", err)
	}
}

func TestSweep_IgnoresNonMarkdown(t *testing.T) {
	var mu sync.Mutex
	var captured []string
	in, _ := inboxTestEnv(t, WithOnCapture(func(path string, _ *idea.Idea) {
		mu.Lock()
		captured = append(captured, path)
		mu.Unlock()
	}))
	writeFile(t, in.Dir(), "a.md", "first")
	writeFile(t, in.Dir(), "b.md", "second")
	writeFile(t, in.Dir(), "notes.txt", "not an idea")
	writeFile(t, in.Dir(), ".hidden.md", "skipped")

	n, err := in.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("captured %d, want 2", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(captured) != 2 || captured[0] != "a.md" || captured[1] != "b.md" {
		t.Errorf("captured = %v", captured)
	}
	if _, err := os.Stat(filepath.Join(in.Dir(), "notes.txt")); err != nil {
		t.Errorf("non-markdown file touched: %v", err)
	}
}

func TestWatch_CapturesNewFile(t *testing.T) {
	in, svc := inboxTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- in.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, in.Dir(), "new.md", "Learn to juggle #hobby")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		got, err := svc.Search(context.Background(), ideaservice.Query{Keyword: "juggle"})
		return err == nil && len(got) == 1
	}, "new inbox file not captured")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		_, err := os.Stat(filepath.Join(in.Dir(), "new.md"))
		return os.IsNotExist(err)
	}, "captured file not removed")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop after cancel")
	}
}

func TestWatch_SweepsExistingFiles(t *testing.T) {
	in, svc := inboxTestEnv(t)
	writeFile(t, in.Dir(), "old.md", "Left over from yesterday")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go in.Watch(ctx)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		got, err := svc.Search(context.Background(), ideaservice.Query{Keyword: "yesterday"})
		return err == nil && len(got) == 1
	}, "existing inbox file not swept")
}
