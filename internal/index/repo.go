package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/nodepad/internal/tags"
)

// PageRow represents a row in the pages table. Tags are normalized.
type PageRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// UpsertPage inserts or replaces a page row.
func (db *DB) UpsertPage(p PageRow) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("index: encode tags: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO pages (path, title, checksum, tags, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			updated_at = excluded.updated_at
	`, p.Path, p.Title, p.Checksum, string(tagsJSON), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert page: %w", err)
	}
	return nil
}

// DeletePage removes a page row. Deleting a missing row is not an error.
func (db *DB) DeletePage(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete page: %w", err)
	}
	return nil
}

// GetPage returns one row, or nil when the page is not cached.
func (db *DB) GetPage(path string) (*PageRow, error) {
	var (
		p        PageRow
		tagsJSON string
	)
	err := db.conn.QueryRow(`SELECT path, title, checksum, tags, updated_at FROM pages WHERE path = ?`, path).
		Scan(&p.Path, &p.Title, &p.Checksum, &tagsJSON, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get page: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags: %w", err)
	}
	return &p, nil
}

// AllChecksums returns path → checksum for every cached page.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// TagIndex builds the path → tags map and global counts from the cache.
func (db *DB) TagIndex() (*tags.Index, error) {
	rows, err := db.conn.Query(`SELECT path, tags FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: tag index: %w", err)
	}
	defer rows.Close()
	idx := tags.NewIndex()
	for rows.Next() {
		var p, tagsJSON string
		if err := rows.Scan(&p, &tagsJSON); err != nil {
			return nil, err
		}
		var list []string
		if err := json.Unmarshal([]byte(tagsJSON), &list); err != nil {
			return nil, fmt.Errorf("index: decode tags of %s: %w", p, err)
		}
		idx.Add(p, list)
	}
	return idx, rows.Err()
}

// Count returns the number of cached pages.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
