package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hashcommit/internal/database/migrations"
	"hashcommit/internal/hc"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteJournal implements hc.Journal on SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens the journal at path, creating the file and its
// parent directory if needed, and applies pending migrations.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PRAGMAs and :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Record stores entry and its rewrite chain in one transaction.
func (s *SQLiteJournal) Record(entry *hc.JournalEntry) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journal_entries
			(id, operation, desired, match_type, old_id, new_id, timestamp, iterations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Operation, entry.Desired, string(entry.MatchType),
		entry.OldID, entry.NewID, entry.Timestamp, entry.Iterations, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}

	for i, rw := range entry.Rewritten {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rewritten_commits (entry_id, position, old_id, new_id)
			VALUES (?, ?, ?, ?)`,
			entry.ID, i, rw.OldID, rw.NewID)
		if err != nil {
			return fmt.Errorf("inserting rewritten commit %s: %w", rw.OldID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const selectEntries = `
	SELECT id, operation, desired, match_type, old_id, new_id, timestamp, iterations, created_at
	FROM journal_entries`

// Entries returns at most limit entries, newest first. limit <= 0 means all.
func (s *SQLiteJournal) Entries(limit int) ([]*hc.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	entries, err := s.query(selectEntries+` ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	return entries, nil
}

// Find returns the entries that touched a commit whose id starts with prefix.
func (s *SQLiteJournal) Find(prefix string) ([]*hc.JournalEntry, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, fmt.Errorf("empty commit id")
	}
	pattern := escapeLike(prefix) + "%"

	entries, err := s.query(selectEntries+`
		WHERE old_id LIKE ?1 ESCAPE '\'
		   OR new_id LIKE ?1 ESCAPE '\'
		   OR id IN (
			SELECT entry_id FROM rewritten_commits
			WHERE old_id LIKE ?1 ESCAPE '\' OR new_id LIKE ?1 ESCAPE '\'
		   )
		ORDER BY seq DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("finding journal entries for %s: %w", prefix, err)
	}
	return entries, nil
}

func (s *SQLiteJournal) query(q string, args ...any) ([]*hc.JournalEntry, error) {
	ctx := context.Background()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	var entries []*hc.JournalEntry
	for rows.Next() {
		var e hc.JournalEntry
		var matchType string
		if err := rows.Scan(&e.ID, &e.Operation, &e.Desired, &matchType,
			&e.OldID, &e.NewID, &e.Timestamp, &e.Iterations, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		e.MatchType = hc.MatchType(matchType)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Closed before the rewrite lookups: the pool holds a single connection.
	rows.Close()

	for _, e := range entries {
		if e.Rewritten, err = s.rewrites(ctx, e.ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *SQLiteJournal) rewrites(ctx context.Context, entryID string) ([]hc.Rewrite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT old_id, new_id FROM rewritten_commits
		WHERE entry_id = ?
		ORDER BY position`, entryID)
	if err != nil {
		return nil, fmt.Errorf("loading rewritten commits: %w", err)
	}
	defer rows.Close()

	var out []hc.Rewrite
	for rows.Next() {
		var rw hc.Rewrite
		if err := rows.Scan(&rw.OldID, &rw.NewID); err != nil {
			return nil, fmt.Errorf("scanning rewritten commit: %w", err)
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteJournal) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteJournal) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ hc.Journal = (*SQLiteJournal)(nil)
