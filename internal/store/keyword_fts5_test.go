//go:build sqlite_fts5

package store

import (
	"context"
	"testing"

	"github.com/starford/ideacards/internal/idea"
)

func TestFTS5_TableExists(t *testing.T) {
	s := testStore(t)
	var count int
	if err := s.conn.QueryRow(`SELECT count(*) FROM ideas_fts`).Scan(&count); err != nil {
		t.Fatalf("ideas_fts table missing: %v", err)
	}
}

func TestFTS5_UpdateReplacesContent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	it := mustCreate(t, s, "original text")
	if _, err := s.Update(ctx, it.IdeaID, idea.Payload{Body: "replacement text"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.Search(ctx, Filter{Keyword: "original"})
	if len(got) != 0 {
		t.Error("old FTS content should be gone")
	}
	got, _ = s.Search(ctx, Filter{Keyword: "replacement"})
	if len(got) != 1 || got[0].IdeaID != it.IdeaID {
		t.Errorf("FTS not updated: %+v", got)
	}
}

func TestFTS5_ShortKeywordFallsBackToLike(t *testing.T) {
	s := testStore(t)
	it := mustCreate(t, s, "go routines")
	got, err := s.Search(context.Background(), Filter{Keyword: "go"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].IdeaID != it.IdeaID {
		t.Errorf("got %+v", got)
	}
}
