//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"strings"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; keyword search uses LIKE on ideas.body.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _ int64, _ string) error {
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// keywordClause matches ideas whose body contains keyword, case-insensitively
// for ASCII.
func keywordClause(keyword string) (string, []any) {
	return `i.body LIKE ? ESCAPE '\'`, []any{"%" + likeEscaper.Replace(keyword) + "%"}
}
