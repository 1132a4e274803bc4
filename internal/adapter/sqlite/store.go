// Package sqlite persists the raw, standardized and enriched tiers and the
// enrichment watermark in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed implementation of every tier store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers inside this process; busy_timeout
	// covers other processes sharing the file.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS raw_events (
			partition_key TEXT NOT NULL,
			seq INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (partition_key, seq)
		);

		CREATE TABLE IF NOT EXISTS standardized_events (
			id TEXT NOT NULL,
			updated INTEGER NOT NULL,
			time INTEGER NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			elevation REAL,
			title TEXT NOT NULL,
			place_description TEXT NOT NULL,
			sig INTEGER,
			mag REAL,
			mag_type TEXT NOT NULL,
			PRIMARY KEY (id, updated)
		);

		CREATE TABLE IF NOT EXISTS enriched_events (
			id TEXT NOT NULL,
			updated INTEGER NOT NULL,
			time INTEGER NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			elevation REAL,
			title TEXT NOT NULL,
			place_description TEXT NOT NULL,
			sig INTEGER,
			mag REAL,
			mag_type TEXT NOT NULL,
			country_code TEXT,
			sig_class TEXT NOT NULL,
			PRIMARY KEY (id, updated)
		);

		CREATE TABLE IF NOT EXISTS enrichment_watermark (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			value INTEGER,
			version INTEGER NOT NULL
		);

		INSERT OR IGNORE INTO enrichment_watermark (id, value, version) VALUES (1, NULL, 0);

		CREATE INDEX IF NOT EXISTS idx_standardized_time ON standardized_events(time);
		CREATE INDEX IF NOT EXISTS idx_enriched_time ON enriched_events(time);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CheckReadiness implements the readiness probe contract.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("sqlite not reachable: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
