package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/worker"
)

const defaultLookupTimeout = 5 * time.Second

// Enricher derives the enriched tier from standardized events.
type Enricher struct {
	geocoder Geocoder
	timeout  time.Duration
	workers  int
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. A nil geocoder disables country lookup;
// every event is then enriched with a null country code and no warning.
func NewEnricher(geocoder Geocoder, timeout time.Duration, workers int, logger *slog.Logger) *Enricher {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Enricher{
		geocoder: geocoder,
		timeout:  timeout,
		workers:  workers,
		logger:   logger,
	}
}

type enrichOutcome struct {
	event   EnrichedEvent
	warning *EnrichmentWarning
}

// EnrichBatch enriches rows concurrently. Per-row lookup problems become
// warnings; only cancellation of ctx fails the batch.
func (e *Enricher) EnrichBatch(ctx context.Context, rows []StandardizedEvent) ([]EnrichedEvent, []EnrichmentWarning, error) {
	outcomes, err := worker.Map(ctx, e.workers, rows, func(ctx context.Context, std StandardizedEvent) (enrichOutcome, error) {
		ev, warn, err := e.Enrich(ctx, std)
		return enrichOutcome{event: ev, warning: warn}, err
	})
	if err != nil {
		return nil, nil, err
	}

	events := make([]EnrichedEvent, len(outcomes))
	var warnings []EnrichmentWarning
	for i, o := range outcomes {
		events[i] = o.event
		if o.warning != nil {
			warnings = append(warnings, *o.warning)
		}
	}
	return events, warnings, nil
}

// Enrich classifies the event and resolves its country code. The returned
// error is non-nil only when ctx itself is done.
func (e *Enricher) Enrich(ctx context.Context, std StandardizedEvent) (EnrichedEvent, *EnrichmentWarning, error) {
	if err := ctx.Err(); err != nil {
		return EnrichedEvent{}, nil, err
	}
	out := EnrichedEvent{
		StandardizedEvent: std,
		SigClass:          ClassifySig(SigOrNull(std.Sig)),
	}
	if e.geocoder == nil {
		return out, nil, nil
	}

	if !ValidCoordinates(std.Latitude, std.Longitude) {
		return out, &EnrichmentWarning{
			EventID: std.ID,
			Reason:  WarnInvalidCoordinates,
			Detail:  fmt.Sprintf("lat=%v lon=%v", std.Latitude, std.Longitude),
		}, nil
	}

	code, err := e.lookup(ctx, std.Latitude, std.Longitude)
	if err != nil {
		if ctx.Err() != nil {
			return EnrichedEvent{}, nil, ctx.Err()
		}
		reason := lookupFailureReason(err)
		e.logger.Warn("reverse geocoding failed",
			"event_id", std.ID,
			"lat", std.Latitude,
			"lon", std.Longitude,
			"reason", reason,
			"error", err,
		)
		return out, &EnrichmentWarning{EventID: std.ID, Reason: reason, Detail: err.Error()}, nil
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return out, &EnrichmentWarning{EventID: std.ID, Reason: WarnNotFound, Detail: "empty country code"}, nil
	}
	out.CountryCode = &code
	return out, nil, nil
}

// lookup enforces the per-call timeout even against a geocoder that ignores
// its context.
func (e *Enricher) lookup(ctx context.Context, lat, lon float64) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		code string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		code, err := e.geocoder.CountryCode(callCtx, lat, lon)
		ch <- result{code: code, err: err}
	}()

	select {
	case r := <-ch:
		return r.code, r.err
	case <-callCtx.Done():
		return "", fmt.Errorf("reverse geocode: %w", callCtx.Err())
	}
}

// ValidCoordinates reports whether lat/lon are finite and within WGS-84 bounds.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

type timeoutError interface {
	Timeout() bool
}

func lookupFailureReason(err error) WarningReason {
	var te timeoutError
	switch {
	case errors.Is(err, ErrCountryNotFound):
		return WarnNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return WarnLookupTimeout
	case errors.As(err, &te) && te.Timeout():
		return WarnLookupTimeout
	default:
		return WarnLookupFailed
	}
}
