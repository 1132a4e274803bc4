package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

const standardizedColumns = `id, updated, time, longitude, latitude, elevation,
	title, place_description, sig, mag, mag_type`

// AppendStandardized inserts rows into the standardized tier in one
// transaction. Rows whose (id, updated) already exists are skipped; the rows
// that were newly inserted are returned in input order.
func (s *Store) AppendStandardized(ctx context.Context, rows []domain.StandardizedEvent) ([]domain.StandardizedEvent, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin standardized append: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO standardized_events (`+standardizedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare standardized insert: %w", domain.ErrStoreWrite, err)
	}
	defer stmt.Close()

	var inserted []domain.StandardizedEvent
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx, standardizedArgs(r)...)
		if err != nil {
			return nil, fmt.Errorf("%w: insert standardized %s: %w", domain.ErrStoreWrite, r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: rows affected for standardized %s: %w", domain.ErrStoreWrite, r.ID, err)
		}
		if n > 0 {
			inserted = append(inserted, r)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit standardized append: %w", domain.ErrStoreWrite, err)
	}
	return inserted, nil
}

// StandardizedSince returns standardized rows with time strictly after
// watermark, oldest first. A zero watermark returns the whole tier.
func (s *Store) StandardizedSince(ctx context.Context, watermark time.Time) ([]domain.StandardizedEvent, error) {
	query := `SELECT ` + standardizedColumns + ` FROM standardized_events`
	var args []any
	if !watermark.IsZero() {
		query += ` WHERE time > ?`
		args = append(args, watermark.Unix())
	}
	query += ` ORDER BY time, id, updated`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query standardized: %w", err)
	}
	defer rows.Close()

	var out []domain.StandardizedEvent
	for rows.Next() {
		ev, err := scanStandardized(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CommitEnriched appends rows to the enriched tier and advances the
// watermark from expect to next in one transaction. If another writer has
// moved the watermark since expect was read, nothing is written and
// domain.ErrWatermarkConflict is returned.
func (s *Store) CommitEnriched(ctx context.Context, rows []domain.EnrichedEvent, expect domain.Watermark, next time.Time) (domain.Watermark, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Watermark{}, fmt.Errorf("%w: begin enriched commit: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`UPDATE enrichment_watermark SET value = ?, version = version + 1 WHERE id = 1 AND version = ?`,
		next.Unix(), expect.Version)
	if err != nil {
		return domain.Watermark{}, fmt.Errorf("%w: advance watermark: %w", domain.ErrStoreWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Watermark{}, fmt.Errorf("%w: rows affected for watermark: %w", domain.ErrStoreWrite, err)
	}
	if n != 1 {
		return domain.Watermark{}, fmt.Errorf("%w: expected version %d", domain.ErrWatermarkConflict, expect.Version)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO enriched_events (`+standardizedColumns+`,
		country_code, sig_class) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return domain.Watermark{}, fmt.Errorf("%w: prepare enriched insert: %w", domain.ErrStoreWrite, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		args := append(standardizedArgs(r.StandardizedEvent), nullString(r.CountryCode), string(r.SigClass))
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return domain.Watermark{}, fmt.Errorf("%w: insert enriched %s: %w", domain.ErrStoreWrite, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Watermark{}, fmt.Errorf("%w: commit enriched: %w", domain.ErrStoreWrite, err)
	}
	return domain.Watermark{Value: next.UTC(), Version: expect.Version + 1}, nil
}

// Watermark returns the current enrichment watermark. Value is zero until
// the first successful enrichment.
func (s *Store) Watermark(ctx context.Context) (domain.Watermark, error) {
	var (
		value sql.NullInt64
		wm    domain.Watermark
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM enrichment_watermark WHERE id = 1`).Scan(&value, &wm.Version)
	if err != nil {
		return domain.Watermark{}, fmt.Errorf("read watermark: %w", err)
	}
	if value.Valid {
		wm.Value = time.Unix(value.Int64, 0).UTC()
	}
	return wm, nil
}

// ListEnriched returns enriched rows with time after since, oldest first,
// at most limit rows.
func (s *Store) ListEnriched(ctx context.Context, since time.Time, limit int) ([]domain.EnrichedEvent, error) {
	query := `SELECT ` + standardizedColumns + `, country_code, sig_class FROM enriched_events`
	var args []any
	if !since.IsZero() {
		query += ` WHERE time > ?`
		args = append(args, since.Unix())
	}
	query += ` ORDER BY time, id, updated LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enriched: %w", err)
	}
	defer rows.Close()

	out := []domain.EnrichedEvent{}
	for rows.Next() {
		var (
			ev       domain.EnrichedEvent
			country  sql.NullString
			sigClass string
		)
		std, err := scanStandardized(rows, &country, &sigClass)
		if err != nil {
			return nil, err
		}
		ev.StandardizedEvent = std
		if country.Valid {
			ev.CountryCode = &country.String
		}
		ev.SigClass = domain.SigClass(sigClass)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func standardizedArgs(r domain.StandardizedEvent) []any {
	return []any{
		r.ID,
		r.Updated.Unix(),
		r.Time.Unix(),
		r.Longitude,
		r.Latitude,
		nullFloat(r.Elevation),
		r.Title,
		r.PlaceDescription,
		nullInt(r.Sig),
		nullFloat(r.Mag),
		r.MagType,
	}
}

// scanStandardized reads the standardized columns, followed by any extra
// destinations the query selected after them.
func scanStandardized(rows *sql.Rows, extra ...any) (domain.StandardizedEvent, error) {
	var (
		ev             domain.StandardizedEvent
		updated, ts    int64
		elevation, mag sql.NullFloat64
		sig            sql.NullInt64
	)
	dest := append([]any{
		&ev.ID, &updated, &ts, &ev.Longitude, &ev.Latitude, &elevation,
		&ev.Title, &ev.PlaceDescription, &sig, &mag, &ev.MagType,
	}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return domain.StandardizedEvent{}, fmt.Errorf("scan event: %w", err)
	}

	ev.Updated = time.Unix(updated, 0).UTC()
	ev.Time = time.Unix(ts, 0).UTC()
	if elevation.Valid {
		ev.Elevation = &elevation.Float64
	}
	if mag.Valid {
		ev.Mag = &mag.Float64
	}
	if sig.Valid {
		v := int(sig.Int64)
		ev.Sig = &v
	}
	return ev, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
