// Package storage holds the ephemeral SQLite query index built from the
// publications file. The JSON file stays the source of truth; the index can be
// deleted and rebuilt at any time.
package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slowvak/midel/internal/catalog"
	"github.com/slowvak/midel/internal/publication"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectFields is the column list for publication queries.
const selectFields = `id, title, url, type, status, year_num, older`

// orderBy reproduces the display order: numeric years descending, the older
// group last, then file order.
const orderBy = ` ORDER BY older ASC, year_num DESC, group_pos ASC, item_pos ASC`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS publications (
			id TEXT NOT NULL,
			title TEXT NOT NULL,
			title_lc TEXT NOT NULL,
			url TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			year_num INTEGER NOT NULL,
			older INTEGER NOT NULL,
			group_pos INTEGER NOT NULL,
			item_pos INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_publications_year ON publications(older, year_num);

		CREATE TABLE IF NOT EXISTS index_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromFile clears the index and rebuilds it from a publications file.
// Load warnings are returned alongside the count.
func (d *DB) RebuildFromFile(path string, now time.Time) (int, []publication.Warning, error) {
	c, warnings, err := publication.Load(path)
	if err != nil {
		return 0, nil, err
	}
	n, err := d.Rebuild(c, path, now)
	return n, warnings, err
}

// Rebuild replaces the index contents with the catalog.
func (d *DB) Rebuild(c publication.Catalog, source string, now time.Time) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM publications"); err != nil {
		return 0, fmt.Errorf("clearing publications table: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO publications (
			id, title, title_lc, url, type, status,
			year_num, older, group_pos, item_pos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for gi, g := range c {
		for ii, r := range g.Publications {
			_, err := stmt.Exec(
				r.ID, r.Title, strings.ToLower(catalog.DisplayText(r.Title)), r.URL, string(r.Type), string(r.Status),
				g.Year.Int(), boolInt(g.Year.IsOlder()), gi, ii,
			)
			if err != nil {
				return 0, fmt.Errorf("inserting %s: %w", r.ID, err)
			}
			count++
		}
	}

	meta := map[string]string{
		"source":   source,
		"built_at": now.UTC().Format(time.RFC3339),
		"count":    strconv.Itoa(count),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return 0, fmt.Errorf("writing index metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return count, nil
}

// Meta describes the last rebuild.
type Meta struct {
	Source  string    `json:"source"`
	BuiltAt time.Time `json:"built_at"`
	Count   int       `json:"count"`
}

// Meta returns the metadata of the last rebuild, or nil if the index was
// never built.
func (d *DB) Meta() (*Meta, error) {
	rows, err := d.db.Query(`SELECT key, value FROM index_meta`)
	if err != nil {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}
	defer rows.Close()

	var m Meta
	found := false
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		found = true
		switch k {
		case "source":
			m.Source = v
		case "built_at":
			m.BuiltAt, _ = time.Parse(time.RFC3339, v)
		case "count":
			m.Count, _ = strconv.Atoi(v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &m, nil
}

// Hit is a search result.
type Hit struct {
	Year publication.Year `json:"year"`
	publication.Record
}

// SearchFilters contains optional filters for Search. Empty or "all" fields
// do not filter.
type SearchFilters struct {
	Query  string // Case-insensitive substring of the title
	Year   string // A calendar year or "older"
	Status string // "published" (anything but in_process) or "in_process"
	Type   string // Exact type value
}

// Search returns the publications matching ALL specified filters, in
// display order. limit <= 0 means no limit.
func (d *DB) Search(f SearchFilters, limit int) ([]Hit, error) {
	query := `SELECT ` + selectFields + ` FROM publications WHERE 1=1`
	var args []interface{}

	// Same rule as the page filter: untrimmed, against the display text.
	if f.Query != "" {
		query += " AND instr(title_lc, ?) > 0"
		args = append(args, strings.ToLower(f.Query))
	}

	if y := strings.TrimSpace(f.Year); y != "" && !strings.EqualFold(y, "all") {
		year, err := publication.ParseYear(y)
		if err != nil {
			return nil, err
		}
		if year.IsOlder() {
			query += " AND older = 1"
		} else {
			query += " AND older = 0 AND year_num = ?"
			args = append(args, year.Int())
		}
	}

	switch s := strings.TrimSpace(f.Status); s {
	case "", "all":
	case string(publication.StatusInProcess):
		query += " AND status = ?"
		args = append(args, s)
	case string(publication.StatusPublished):
		query += " AND status != ?"
		args = append(args, string(publication.StatusInProcess))
	default:
		return nil, fmt.Errorf("unknown status filter: %s", s)
	}

	if t := strings.TrimSpace(f.Type); t != "" && t != "all" {
		query += " AND type = ?"
		args = append(args, t)
	}

	query += orderBy
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching publications: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// GetByID retrieves the first publication with the given id, or nil.
func (d *DB) GetByID(id string) (*Hit, error) {
	rows, err := d.db.Query(`SELECT `+selectFields+` FROM publications WHERE id = ?`+orderBy+` LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", id, err)
	}
	defer rows.Close()

	hits, err := scanHits(rows)
	if err != nil || len(hits) == 0 {
		return nil, err
	}
	return &hits[0], nil
}

// Count returns the total number of indexed publications.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM publications").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHit(s scanner) (Hit, error) {
	var h Hit
	var typ, status string
	var yearNum, older int
	if err := s.Scan(&h.ID, &h.Title, &h.URL, &typ, &status, &yearNum, &older); err != nil {
		return Hit{}, err
	}
	h.Type = publication.Type(typ)
	h.Status = publication.Status(status)
	if older != 0 {
		h.Year = publication.Older
	} else {
		h.Year = publication.CalendarYear(yearNum)
	}
	return h, nil
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	hits := []Hit{}
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
