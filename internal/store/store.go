// Package store is the SQLite-backed registry cache.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"regcheck/internal/scraper"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var ErrStorage = errors.New("storage error")

type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open opens (creating when needed) the cache database at path.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, log *logrus.Entry) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, path, err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", ErrStorage, err)
	}
	return &Store{db: db, log: log.WithField("component", "store")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceSourceRecords swaps every record of source for entries in one
// transaction. Readers see either the old set or the new one.
func (s *Store) ReplaceSourceRecords(ctx context.Context, source scraper.SourceName, entries []scraper.Entry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM searchable_items WHERE source_type = ?`, string(source)); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStorage, source, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO searchable_items (source_type, name, details, search_vector)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", ErrStorage, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err = stmt.ExecContext(ctx, string(source), e.Name, e.Details, e.SearchTokens); err != nil {
			return fmt.Errorf("%w: insert %s: %v", ErrStorage, source, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	s.log.WithFields(logrus.Fields{
		"source":  source,
		"records": len(entries),
	}).Info("source records replaced")
	return nil
}

// FirstMatch returns the first record whose search tokens contain every
// word, or nil. It mirrors match.Contains in SQL.
func (s *Store) FirstMatch(ctx context.Context, words []string) (*scraper.Entry, error) {
	if len(words) == 0 {
		return nil, nil
	}
	conds := make([]string, len(words))
	args := make([]any, len(words))
	for i, w := range words {
		conds[i] = "instr(search_vector, ?) > 0"
		args[i] = w
	}
	query := `SELECT source_type, name, COALESCE(details, ''), search_vector
		FROM searchable_items WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY id LIMIT 1`

	var (
		e      scraper.Entry
		source string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&source, &e.Name, &e.Details, &e.SearchTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: first match: %v", ErrStorage, err)
	}
	e.Source = scraper.SourceName(source)
	return &e, nil
}

// Counts returns the number of cached records per source.
func (s *Store) Counts(ctx context.Context) (map[scraper.SourceName]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_type, COUNT(*) FROM searchable_items GROUP BY source_type`)
	if err != nil {
		return nil, fmt.Errorf("%w: counts: %v", ErrStorage, err)
	}
	defer rows.Close()

	out := map[scraper.SourceName]int{}
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("%w: counts: %v", ErrStorage, err)
		}
		out[scraper.SourceName(source)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: counts: %v", ErrStorage, err)
	}
	return out, nil
}
