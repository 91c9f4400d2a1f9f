package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps wishes in a single SQLite table
type SQLiteStore struct {
	db    *sql.DB
	table string
	path  string
}

// NewSQLiteStore opens (or creates) the database at path and ensures the table exists
func NewSQLiteStore(path, table string) (*SQLiteStore, error) {
	if !isValidIdentifier(table) {
		return nil, fmt.Errorf("sqlite store: invalid table name %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to connect: %w", err)
	}

	s := &SQLiteStore{db: db, table: table, path: path}
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureTable() error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		wish TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`, s.table)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("sqlite store: failed to create table: %w", err)
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_name_idx ON %s (name)", s.table, s.table)
	if _, err := s.db.Exec(index); err != nil {
		return fmt.Errorf("sqlite store: failed to create index: %w", err)
	}
	return nil
}

// Save inserts one record
func (s *SQLiteStore) Save(ctx context.Context, name, wish string) error {
	query := fmt.Sprintf("INSERT INTO %s (name, wish) VALUES (?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, query, name, wish); err != nil {
		return fmt.Errorf("sqlite store: insert failed: %w", err)
	}
	return nil
}

// List returns the wishes for name ordered by insertion
func (s *SQLiteStore) List(ctx context.Context, name string) ([]string, error) {
	query := fmt.Sprintf("SELECT wish FROM %s WHERE name = ? ORDER BY id", s.table)
	rows, err := s.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query failed: %w", err)
	}
	defer rows.Close()

	wishes := []string{}
	for rows.Next() {
		var wish string
		if err := rows.Scan(&wish); err != nil {
			return nil, fmt.Errorf("sqlite store: failed to scan row: %w", err)
		}
		wishes = append(wishes, wish)
	}
	return wishes, rows.Err()
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
