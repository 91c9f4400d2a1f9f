package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore keeps wishes in a PostgreSQL table
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore connects using dsn and ensures the table exists
func NewPostgresStore(dsn, table string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg store: database connection required (set store.dsn or DATABASE_URL env)")
	}
	if !isValidIdentifier(table) {
		return nil, fmt.Errorf("pg store: invalid table name %q", table)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg store: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pg store: failed to connect: %w", err)
	}

	s := &PostgresStore{db: db, table: table}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		wish TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("pg store: failed to create table: %w", err)
	}
	return s, nil
}

// Save inserts one record
func (s *PostgresStore) Save(ctx context.Context, name, wish string) error {
	query := fmt.Sprintf("INSERT INTO %s (name, wish) VALUES ($1, $2)", s.table)
	if _, err := s.db.ExecContext(ctx, query, name, wish); err != nil {
		return fmt.Errorf("pg store: insert failed: %w", err)
	}
	return nil
}

// List returns the wishes for name ordered by insertion
func (s *PostgresStore) List(ctx context.Context, name string) ([]string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := fmt.Sprintf("SELECT wish FROM %s WHERE name = $1 ORDER BY id", s.table)
	rows, err := s.db.QueryContext(queryCtx, query, name)
	if err != nil {
		return nil, fmt.Errorf("pg store: query failed: %w", err)
	}
	defer rows.Close()

	wishes := []string{}
	for rows.Next() {
		var wish string
		if err := rows.Scan(&wish); err != nil {
			return nil, fmt.Errorf("pg store: failed to scan row: %w", err)
		}
		wishes = append(wishes, wish)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg store: row iteration error: %w", err)
	}
	return wishes, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
