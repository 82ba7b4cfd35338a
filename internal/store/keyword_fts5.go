//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS ideas_fts USING fts5(
			body,
			tokenize = 'trigram'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, id int64, body string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM ideas_fts WHERE rowid = ?`, id)
	if _, err := tx.ExecContext(ctx, `INSERT INTO ideas_fts (rowid, body) VALUES (?, ?)`, id, body); err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

// keywordClause matches keyword as a quoted phrase against the trigram index,
// which keeps substring semantics for keywords of three or more characters.
func keywordClause(keyword string) (string, []any) {
	if len([]rune(keyword)) < 3 {
		return `i.body LIKE ?`, []any{"%" + keyword + "%"}
	}
	phrase := `"` + strings.ReplaceAll(keyword, `"`, `""`) + `"`
	return `i.idea_id IN (SELECT rowid FROM ideas_fts WHERE ideas_fts MATCH ?)`, []any{phrase}
}
