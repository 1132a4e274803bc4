// Package pipeline coordinates one refinement run across the raw,
// standardized and enriched tiers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// Fetcher retrieves the upstream records for a window.
type Fetcher interface {
	Fetch(ctx context.Context, window domain.DateRange) ([]domain.RawEvent, error)
}

// RawStore holds the verbatim upstream snapshot, partitioned by window.
type RawStore interface {
	Put(ctx context.Context, window domain.DateRange, batch []domain.RawEvent) error
	Get(ctx context.Context, window domain.DateRange) ([]domain.RawEvent, error)
}

// StandardizedStore is the append-only standardized tier.
type StandardizedStore interface {
	// AppendStandardized returns the rows that were not already present.
	AppendStandardized(ctx context.Context, rows []domain.StandardizedEvent) ([]domain.StandardizedEvent, error)
	StandardizedSince(ctx context.Context, watermark time.Time) ([]domain.StandardizedEvent, error)
}

// EnrichedStore is the append-only enriched tier plus its watermark.
type EnrichedStore interface {
	Watermark(ctx context.Context) (domain.Watermark, error)
	CommitEnriched(ctx context.Context, rows []domain.EnrichedEvent, expect domain.Watermark, next time.Time) (domain.Watermark, error)
}

// Publisher forwards committed enriched rows downstream.
type Publisher interface {
	Publish(ctx context.Context, runID string, events []domain.EnrichedEvent) error
}

// Result summarizes one run. RowsBehindWatermark counts standardized rows
// first stored by this run whose event time was already at or below the
// watermark; enrichment only selects rows strictly after it, so those rows
// stay in the standardized tier.
type Result struct {
	RunID               string                     `json:"run_id"`
	Window              string                     `json:"window"`
	Status              State                      `json:"status"`
	FailedStage         State                      `json:"failed_stage,omitempty"`
	RowsIngested        int                        `json:"rows_ingested"`
	RowsStandardized    int                        `json:"rows_standardized"`
	RowsEnriched        int                        `json:"rows_enriched"`
	RowsBehindWatermark int                        `json:"rows_behind_watermark"`
	Dropped             []domain.DropReport        `json:"dropped"`
	Warnings            []domain.EnrichmentWarning `json:"warnings"`
	WatermarkBefore     time.Time                  `json:"watermark_before"`
	WatermarkAfter      time.Time                  `json:"watermark_after"`
	StartedAt           time.Time                  `json:"started_at"`
	FinishedAt          time.Time                  `json:"finished_at"`
	Error               string                     `json:"error,omitempty"`
}

// Coordinator drives runs through Idle, Ingesting, Normalizing, Enriching and
// Done, or into Failed. Any number of runs may ingest and normalize
// concurrently; their enriching phases are serialized.
type Coordinator struct {
	fetcher   Fetcher
	raw       RawStore
	std       StandardizedStore
	enriched  EnrichedStore
	enricher  *domain.Enricher
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	enrichMu sync.Mutex
	last     atomic.Pointer[Result]
}

// Option configures optional Coordinator collaborators.
type Option func(*Coordinator)

// WithPublisher forwards every committed enriched batch to p.
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// New creates a Coordinator over the given tiers.
func New(f Fetcher, raw RawStore, std StandardizedStore, enriched EnrichedStore, enricher *domain.Enricher,
	logger *slog.Logger, metrics *observability.Metrics, opts ...Option,
) *Coordinator {
	c := &Coordinator{
		fetcher:  f,
		raw:      raw,
		std:      std,
		enriched: enriched,
		enricher: enricher,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LastResult returns the most recently finished run, if any.
func (c *Coordinator) LastResult() (Result, bool) {
	r := c.last.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// Run refines one window end to end. On failure the returned Result has
// Status Failed and names the stage; the error is also returned.
func (c *Coordinator) Run(ctx context.Context, window domain.DateRange) (Result, error) {
	r := &run{
		c:      c,
		sm:     newStateMachine(),
		logger: c.logger.With("window", window.String()),
		res: Result{
			RunID:     uuid.NewString(),
			Window:    window.String(),
			Status:    StateIdle,
			StartedAt: c.clock.Now().UTC(),
			Dropped:   []domain.DropReport{},
			Warnings:  []domain.EnrichmentWarning{},
		},
	}
	r.logger = r.logger.With("run_id", r.res.RunID)

	c.metrics.PipelineRunning.Inc()
	defer c.metrics.PipelineRunning.Dec()

	r.logger.Info("run started")
	err := r.execute(ctx, window)
	r.res.FinishedAt = c.clock.Now().UTC()

	if err != nil {
		r.res.FailedStage = r.sm.current
		// The run may already be in a terminal state if the last transition
		// itself was rejected.
		if !r.sm.current.Terminal() {
			_ = r.sm.advance(StateFailed)
		}
		r.res.Status = StateFailed
		r.res.Error = err.Error()
		c.metrics.RunsTotal.WithLabelValues("failed").Inc()
		r.logger.Error("run failed", "stage", r.res.FailedStage, "error", err)
		c.last.Store(&r.res)
		return r.res, fmt.Errorf("run %s failed in %s: %w", r.res.RunID, r.res.FailedStage, err)
	}

	r.res.Status = r.sm.current
	c.metrics.RunsTotal.WithLabelValues("done").Inc()
	c.metrics.RowsIngested.Add(float64(r.res.RowsIngested))
	c.metrics.RowsStandardized.Add(float64(r.res.RowsStandardized))
	c.metrics.RowsEnriched.Add(float64(r.res.RowsEnriched))
	c.metrics.RowsBehindWatermark.Add(float64(r.res.RowsBehindWatermark))
	if !r.res.WatermarkAfter.IsZero() {
		c.metrics.Watermark.Set(float64(r.res.WatermarkAfter.Unix()))
	}
	r.logger.Info("run complete",
		"rows_ingested", r.res.RowsIngested,
		"rows_standardized", r.res.RowsStandardized,
		"rows_enriched", r.res.RowsEnriched,
		"rows_behind_watermark", r.res.RowsBehindWatermark,
		"dropped", len(r.res.Dropped),
		"warnings", len(r.res.Warnings),
		"watermark", r.res.WatermarkAfter,
	)
	c.last.Store(&r.res)
	return r.res, nil
}

// run carries the per-invocation state of Coordinator.Run.
type run struct {
	c      *Coordinator
	sm     *stateMachine
	res    Result
	logger *slog.Logger

	committed []domain.EnrichedEvent
}

func (r *run) execute(ctx context.Context, window domain.DateRange) error {
	if err := r.stage(ctx, StateIngesting, func() error { return r.ingest(ctx, window) }); err != nil {
		return err
	}
	if err := r.stage(ctx, StateNormalizing, func() error { return r.normalize(ctx, window) }); err != nil {
		return err
	}
	if err := r.stage(ctx, StateEnriching, func() error { return r.enrich(ctx) }); err != nil {
		return err
	}
	if err := r.sm.advance(StateDone); err != nil {
		return err
	}
	r.publish(ctx)
	return nil
}

// stage enters state, runs fn and records its duration. A cancelled context
// fails the stage before any work starts.
func (r *run) stage(ctx context.Context, state State, fn func() error) error {
	if err := r.sm.advance(state); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := r.c.clock.Now()
	err := fn()
	r.c.metrics.StageDuration.WithLabelValues(string(state)).Observe(r.c.clock.Since(start).Seconds())
	return err
}

func (r *run) ingest(ctx context.Context, window domain.DateRange) error {
	batch, err := r.c.fetcher.Fetch(ctx, window)
	if err != nil {
		return err
	}
	if err := r.c.raw.Put(ctx, window, batch); err != nil {
		return err
	}
	r.res.RowsIngested = len(batch)
	r.logger.Debug("raw partition stored", "partition", window.Key(), "rows", len(batch))
	return nil
}

func (r *run) normalize(ctx context.Context, window domain.DateRange) error {
	raws, err := r.c.raw.Get(ctx, window)
	if err != nil {
		return err
	}

	rows, drops := domain.NormalizeBatch(raws)
	for _, d := range drops {
		r.c.metrics.NormalizationDrops.WithLabelValues(string(d.Reason)).Inc()
		r.logger.Warn("record dropped", "index", d.Index, "event_id", d.EventID, "reason", d.Reason, "detail", d.Detail)
	}
	r.res.Dropped = append(r.res.Dropped, drops...)

	// The watermark only moves forward, so a row at or below its value
	// before the append can never be selected for enrichment.
	wm, err := r.c.enriched.Watermark(ctx)
	if err != nil {
		return err
	}
	inserted, err := r.c.std.AppendStandardized(ctx, rows)
	if err != nil {
		return err
	}
	r.res.RowsStandardized = len(rows)
	r.res.RowsBehindWatermark = countBehind(inserted, wm.Value)
	r.logger.Debug("standardized rows appended", "normalized", len(rows), "new", len(inserted))
	if r.res.RowsBehindWatermark > 0 {
		r.logger.Warn("standardized rows at or below watermark will not be enriched",
			"rows", r.res.RowsBehindWatermark, "watermark", wm.Value)
	}
	return nil
}

func countBehind(rows []domain.StandardizedEvent, watermark time.Time) int {
	if watermark.IsZero() {
		return 0
	}
	n := 0
	for _, r := range rows {
		if !r.Time.After(watermark) {
			n++
		}
	}
	return n
}

func (r *run) enrich(ctx context.Context) error {
	r.c.enrichMu.Lock()
	defer r.c.enrichMu.Unlock()

	wm, err := r.c.enriched.Watermark(ctx)
	if err != nil {
		return err
	}
	r.res.WatermarkBefore = wm.Value
	r.res.WatermarkAfter = wm.Value

	pending, err := r.c.std.StandardizedSince(ctx, wm.Value)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		r.logger.Debug("nothing newer than watermark", "watermark", wm.Value)
		return nil
	}

	events, warnings, err := r.c.enricher.EnrichBatch(ctx, pending)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		r.c.metrics.EnrichmentWarnings.WithLabelValues(string(w.Reason)).Inc()
	}

	next := wm.Value
	for _, ev := range events {
		if ev.Time.After(next) {
			next = ev.Time
		}
	}

	after, err := r.c.enriched.CommitEnriched(ctx, events, wm, next)
	if err != nil {
		if errors.Is(err, domain.ErrWatermarkConflict) {
			r.logger.Warn("watermark moved during enrichment", "expected_version", wm.Version)
		}
		return err
	}

	r.res.Warnings = append(r.res.Warnings, warnings...)
	r.res.RowsEnriched = len(events)
	r.res.WatermarkAfter = after.Value
	r.committed = events
	return nil
}

// publish forwards committed rows. The run has already succeeded, so a
// failure here is only logged.
func (r *run) publish(ctx context.Context) {
	if r.c.publisher == nil || len(r.committed) == 0 {
		return
	}
	if err := r.c.publisher.Publish(ctx, r.res.RunID, r.committed); err != nil {
		r.logger.Error("publish enriched events failed", "rows", len(r.committed), "error", err)
	}
}
