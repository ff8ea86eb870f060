package taxonomy

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS taxonomy (
	question TEXT NOT NULL,
	label    TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (question, label)
)`

// SQLiteStore persists taxonomies in a SQLite database. Labels are read once
// at open and written back on Persist; rows are only ever inserted.
type SQLiteStore struct {
	*MemoryStore
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path. Failing to read
// existing rows is logged and yields an empty store.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create taxonomy table: %w", err)
	}

	s := &SQLiteStore{MemoryStore: NewMemoryStore(), db: db}
	if err := s.load(); err != nil {
		logger.Warn("taxonomy database unreadable, starting empty", "path", path, "error", err)
		s.MemoryStore = NewMemoryStore()
	}
	return s, nil
}

func (s *SQLiteStore) load() error {
	rows, err := s.db.Query(`SELECT question, label FROM taxonomy ORDER BY question, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q, l string
		if err := rows.Scan(&q, &l); err != nil {
			return err
		}
		s.Merge(q, []string{l})
	}
	return rows.Err()
}

// Persist inserts any labels not yet stored, in one transaction.
func (s *SQLiteStore) Persist() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO taxonomy (question, label, position) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for q, ls := range s.Snapshot() {
		for i, l := range ls {
			if _, err := stmt.Exec(q, l, i); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to insert label %q: %w", l, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit taxonomy: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
