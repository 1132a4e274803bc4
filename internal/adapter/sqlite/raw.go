package sqlite

import (
	"context"
	"fmt"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Put replaces the raw partition for window with batch.
func (s *Store) Put(ctx context.Context, window domain.DateRange, batch []domain.RawEvent) error {
	key := window.Key()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin raw put: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_events WHERE partition_key = ?`, key); err != nil {
		return fmt.Errorf("%w: clear raw partition %s: %w", domain.ErrStoreWrite, key, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO raw_events (partition_key, seq, event_id, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare raw insert: %w", domain.ErrStoreWrite, err)
	}
	defer stmt.Close()

	for i, ev := range batch {
		if _, err := stmt.ExecContext(ctx, key, i, ev.ID, []byte(ev.Payload)); err != nil {
			return fmt.Errorf("%w: insert raw event %d: %w", domain.ErrStoreWrite, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit raw partition %s: %w", domain.ErrStoreWrite, key, err)
	}
	return nil
}

// Get returns the raw partition for window in insertion order.
func (s *Store) Get(ctx context.Context, window domain.DateRange) ([]domain.RawEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, payload FROM raw_events WHERE partition_key = ? ORDER BY seq`, window.Key())
	if err != nil {
		return nil, fmt.Errorf("query raw partition: %w", err)
	}
	defer rows.Close()

	var events []domain.RawEvent
	for rows.Next() {
		var (
			ev      domain.RawEvent
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &payload); err != nil {
			return nil, fmt.Errorf("scan raw event: %w", err)
		}
		ev.Payload = payload
		events = append(events, ev)
	}
	return events, rows.Err()
}
