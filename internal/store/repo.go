package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
)

const nowSQL = `strftime('%Y-%m-%dT%H:%M:%fZ','now')`

// Filter narrows a Search. Zero values mean no constraint on that field.
type Filter struct {
	Keyword string
	Tags    []string
	Status  idea.Status
	Limit   int
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create inserts a new idea with its tags, blockers, and born-with links.
func (s *Store) Create(ctx context.Context, in idea.CreatePayload) (*idea.Idea, error) {
	status := in.Status
	if status == "" {
		status = idea.StatusActive
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `INSERT INTO ideas (body, status) VALUES (?, ?)`, in.Body, string(status))
	if err != nil {
		return nil, fmt.Errorf("store: insert idea: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: last insert id: %w", err)
	}
	if err := writeChildren(ctx, tx, id, in.Payload); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return s.Get(ctx, id)
}

// Update replaces body, tags, blockers, and born-with links of id.
func (s *Store) Update(ctx context.Context, id int64, p idea.Payload) (*idea.Idea, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE ideas SET body = ?, updated_at = (`+nowSQL+`) WHERE idea_id = ?`, p.Body, id)
	if err != nil {
		return nil, fmt.Errorf("store: update idea: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}
	if err := writeChildren(ctx, tx, id, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return s.Get(ctx, id)
}

// UpdateStatus changes only the status of id.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status idea.Status) (*idea.Idea, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE ideas SET status = ?, updated_at = (`+nowSQL+`) WHERE idea_id = ?`, string(status), id)
	if err != nil {
		return nil, fmt.Errorf("store: update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Get loads a single idea with its tags, blockers, and born-with snapshots.
func (s *Store) Get(ctx context.Context, id int64) (*idea.Idea, error) {
	var (
		out    idea.Idea
		status string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT idea_id, body, status FROM ideas WHERE idea_id = ?`, id).Scan(&out.IdeaID, &out.Body, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get idea: %w", err)
	}
	out.Status = idea.Status(status)
	if err := s.fill(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Random returns one idea with the given status, chosen uniformly.
func (s *Store) Random(ctx context.Context, status idea.Status) (*idea.Idea, error) {
	var id int64
	err := s.conn.QueryRowContext(ctx,
		`SELECT idea_id FROM ideas WHERE status = ? ORDER BY RANDOM() LIMIT 1`, string(status)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: random idea: %w", err)
	}
	return s.Get(ctx, id)
}

// Search returns ideas matching every non-empty filter, most recently
// updated first. Zero matches is an empty slice, not an error.
func (s *Store) Search(ctx context.Context, f Filter) ([]idea.Idea, error) {
	var (
		q    strings.Builder
		args []any
	)
	q.WriteString(`SELECT i.idea_id FROM ideas i WHERE 1 = 1`)
	if f.Status != "" {
		q.WriteString(` AND i.status = ?`)
		args = append(args, string(f.Status))
	}
	if f.Keyword != "" {
		clause, kwArgs := keywordClause(f.Keyword)
		q.WriteString(` AND ` + clause)
		args = append(args, kwArgs...)
	}
	for _, tag := range f.Tags {
		q.WriteString(` AND EXISTS (SELECT 1 FROM idea_tags it JOIN tags t ON t.tag_id = it.tag_id
			WHERE it.idea_id = i.idea_id AND t.name = ?)`)
		args = append(args, tag)
	}
	q.WriteString(` ORDER BY i.updated_at DESC, i.idea_id DESC`)
	if f.Limit > 0 {
		q.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	ids, err := scanIDs(s.conn.QueryContext(ctx, q.String(), args...))
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	out := make([]idea.Idea, 0, len(ids))
	for _, id := range ids {
		it, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, nil
}

func (s *Store) fill(ctx context.Context, it *idea.Idea) error {
	var err error
	if it.Tags, err = tagsOf(ctx, s.conn, it.IdeaID); err != nil {
		return err
	}
	if it.Blockers, err = blockersOf(ctx, s.conn, it.IdeaID); err != nil {
		return err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT i.idea_id, i.body
		FROM idea_links l
		JOIN ideas i ON i.idea_id = l.linked_idea_id
		WHERE l.idea_id = ? AND l.link_type = 'born_with'
		ORDER BY i.idea_id`, it.IdeaID)
	if err != nil {
		return fmt.Errorf("store: load links: %w", err)
	}
	var links []idea.Link
	for rows.Next() {
		var l idea.Link
		if err := rows.Scan(&l.IdeaID, &l.Body); err != nil {
			rows.Close()
			return err
		}
		links = append(links, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range links {
		if links[i].Tags, err = tagsOf(ctx, s.conn, links[i].IdeaID); err != nil {
			return err
		}
	}
	it.BornWith = idea.NonNil(links)
	return nil
}

func tagsOf(ctx context.Context, q querier, id int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.name
		FROM tags t
		JOIN idea_tags it ON it.tag_id = t.tag_id
		WHERE it.idea_id = ?
		ORDER BY it.ord`, id)
	if err != nil {
		return nil, fmt.Errorf("store: load tags: %w", err)
	}
	return scanStrings(rows)
}

func blockersOf(ctx context.Context, q querier, id int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT text FROM idea_blockers WHERE idea_id = ? ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("store: load blockers: %w", err)
	}
	return scanStrings(rows)
}

// writeChildren replaces tags, blockers, and links of id inside tx.
func writeChildren(ctx context.Context, tx *sql.Tx, id int64, p idea.Payload) error {
	if err := replaceTags(ctx, tx, id, p.Tags); err != nil {
		return err
	}
	if err := replaceBlockers(ctx, tx, id, p.Blockers); err != nil {
		return err
	}
	if err := replaceLinks(ctx, tx, id, p.BornWithIDs); err != nil {
		return err
	}
	return ftsUpsert(ctx, tx, id, p.Body)
}

func replaceTags(ctx context.Context, tx *sql.Tx, id int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM idea_tags WHERE idea_id = ?`, id); err != nil {
		return fmt.Errorf("store: clear tags: %w", err)
	}
	seen := make(map[string]struct{}, len(tags))
	ord := 0
	for _, raw := range tags {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name, path) VALUES (?, '')`, tag); err != nil {
			return fmt.Errorf("store: insert tag: %w", err)
		}
		var tagID int64
		if err := tx.QueryRowContext(ctx, `SELECT tag_id FROM tags WHERE name = ? AND path = ''`, tag).Scan(&tagID); err != nil {
			return fmt.Errorf("store: lookup tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO idea_tags (idea_id, tag_id, ord) VALUES (?, ?, ?)`, id, tagID, ord); err != nil {
			return fmt.Errorf("store: link tag: %w", err)
		}
		ord++
	}
	return nil
}

// replaceBlockers stores blockers verbatim, empty entries included.
func replaceBlockers(ctx context.Context, tx *sql.Tx, id int64, blockers []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM idea_blockers WHERE idea_id = ?`, id); err != nil {
		return fmt.Errorf("store: clear blockers: %w", err)
	}
	for ord, text := range blockers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO idea_blockers (idea_id, ord, text) VALUES (?, ?, ?)`, id, ord, text); err != nil {
			return fmt.Errorf("store: insert blocker: %w", err)
		}
	}
	return nil
}

// replaceLinks rewrites the born-with set of id in both directions.
func replaceLinks(ctx context.Context, tx *sql.Tx, id int64, linked []int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM idea_links WHERE link_type = 'born_with' AND (idea_id = ? OR linked_idea_id = ?)`, id, id); err != nil {
		return fmt.Errorf("store: clear links: %w", err)
	}
	seen := make(map[int64]struct{}, len(linked))
	for _, other := range linked {
		if other == id {
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}

		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM ideas WHERE idea_id = ?`, other).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: born_with idea %d does not exist", apperr.ErrInvalid, other)
		}
		if err != nil {
			return fmt.Errorf("store: lookup linked idea: %w", err)
		}
		for _, pair := range [][2]int64{{id, other}, {other, id}} {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO idea_links (idea_id, linked_idea_id, link_type) VALUES (?, ?, 'born_with')`,
				pair[0], pair[1]); err != nil {
				return fmt.Errorf("store: insert link: %w", err)
			}
		}
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanIDs(rows *sql.Rows, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
