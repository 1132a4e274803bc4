package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- fakes ---

type fakeFetcher struct {
	payloads []string
	err      error
	calls    atomic.Int64
}

func (f *fakeFetcher) Fetch(_ context.Context, _ domain.DateRange) ([]domain.RawEvent, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.RawEvent, len(f.payloads))
	for i, p := range f.payloads {
		out[i] = domain.RawEvent{Payload: []byte(p)}
	}
	return out, nil
}

type stdKey struct {
	id      string
	updated time.Time
}

// memStore implements every tier in memory.
type memStore struct {
	mu       sync.Mutex
	raw      map[string][]domain.RawEvent
	std      map[stdKey]domain.StandardizedEvent
	enriched []domain.EnrichedEvent
	wm       domain.Watermark

	putErr       error
	appendErr    error
	commitErr    error
	beforeCommit func(*memStore)
}

func newMemStore() *memStore {
	return &memStore{
		raw: make(map[string][]domain.RawEvent),
		std: make(map[stdKey]domain.StandardizedEvent),
	}
}

func (s *memStore) Put(_ context.Context, window domain.DateRange, batch []domain.RawEvent) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[window.Key()] = append([]domain.RawEvent(nil), batch...)
	return nil
}

func (s *memStore) Get(_ context.Context, window domain.DateRange) ([]domain.RawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw[window.Key()], nil
}

func (s *memStore) AppendStandardized(_ context.Context, rows []domain.StandardizedEvent) ([]domain.StandardizedEvent, error) {
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted []domain.StandardizedEvent
	for _, r := range rows {
		k := stdKey{r.ID, r.Updated}
		if _, ok := s.std[k]; ok {
			continue
		}
		s.std[k] = r
		inserted = append(inserted, r)
	}
	return inserted, nil
}

func (s *memStore) StandardizedSince(_ context.Context, wm time.Time) ([]domain.StandardizedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StandardizedEvent
	for _, r := range s.std {
		if wm.IsZero() || r.Time.After(wm) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) Watermark(_ context.Context) (domain.Watermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wm, nil
}

func (s *memStore) CommitEnriched(_ context.Context, rows []domain.EnrichedEvent, expect domain.Watermark, next time.Time) (domain.Watermark, error) {
	if s.beforeCommit != nil {
		s.beforeCommit(s)
	}
	if s.commitErr != nil {
		return domain.Watermark{}, s.commitErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wm.Version != expect.Version {
		return domain.Watermark{}, domain.ErrWatermarkConflict
	}
	s.enriched = append(s.enriched, rows...)
	s.wm = domain.Watermark{Value: next, Version: s.wm.Version + 1}
	return s.wm, nil
}

func (s *memStore) enrichedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.enriched)
}

type geocoderFunc func(ctx context.Context, lat, lon float64) (string, error)

func (f geocoderFunc) CountryCode(ctx context.Context, lat, lon float64) (string, error) {
	return f(ctx, lat, lon)
}

type fakePublisher struct {
	mu     sync.Mutex
	runIDs []string
	events []domain.EnrichedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, runID string, events []domain.EnrichedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runIDs = append(p.runIDs, runID)
	p.events = append(p.events, events...)
	return p.err
}

// --- helpers ---

const us1Payload = `{
	"id": "us1",
	"geometry": {"type": "Point", "coordinates": [-122.4, 37.7, 10]},
	"properties": {"sig": 250, "mag": 4.1, "magType": "mb", "time": 1700000000000,
	               "updated": 1700000100000, "title": "M 4.1", "place": "CA"}
}`

var us1Time = time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow(t *testing.T) domain.DateRange {
	t.Helper()
	w, err := domain.ParseDateRange("2023-11-14", "2023-11-15")
	require.NoError(t, err)
	return w
}

func payload(id string, timeMs int64, sig int) string {
	return fmt.Sprintf(`{"id":%q,"geometry":{"coordinates":[-100.5,35.2,5]},"properties":{"sig":%d,"time":%d,"updated":%d}}`,
		id, sig, timeMs, timeMs)
}

func usGeocoder() domain.Geocoder {
	return geocoderFunc(func(context.Context, float64, float64) (string, error) { return "us", nil })
}

func newCoordinator(f pipeline.Fetcher, store *memStore, geo domain.Geocoder, opts ...pipeline.Option) *pipeline.Coordinator {
	enricher := domain.NewEnricher(geo, time.Second, 4, discardLogger())
	return pipeline.New(f, store, store, store, enricher, discardLogger(), observability.NewMetricsForTesting(), opts...)
}

// --- state machine ---

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to pipeline.State
		ok       bool
	}{
		{pipeline.StateIdle, pipeline.StateIngesting, true},
		{pipeline.StateIngesting, pipeline.StateNormalizing, true},
		{pipeline.StateNormalizing, pipeline.StateEnriching, true},
		{pipeline.StateEnriching, pipeline.StateDone, true},
		{pipeline.StateIdle, pipeline.StateFailed, true},
		{pipeline.StateIngesting, pipeline.StateFailed, true},
		{pipeline.StateNormalizing, pipeline.StateFailed, true},
		{pipeline.StateEnriching, pipeline.StateFailed, true},
		{pipeline.StateIdle, pipeline.StateNormalizing, false},
		{pipeline.StateIngesting, pipeline.StateEnriching, false},
		{pipeline.StateNormalizing, pipeline.StateIngesting, false},
		{pipeline.StateIdle, pipeline.StateDone, false},
		{pipeline.StateDone, pipeline.StateIngesting, false},
		{pipeline.StateDone, pipeline.StateFailed, false},
		{pipeline.StateFailed, pipeline.StateIdle, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to))
		})
	}
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, pipeline.StateDone.Terminal())
	assert.True(t, pipeline.StateFailed.Terminal())
	assert.False(t, pipeline.StateIdle.Terminal())
	assert.False(t, pipeline.StateEnriching.Terminal())
}

// --- runs ---

func TestCoordinator_Run_SingleEvent(t *testing.T) {
	store := newMemStore()
	clock := clockwork.NewFakeClockAt(time.Date(2023, time.November, 15, 1, 0, 0, 0, time.UTC))
	c := newCoordinator(&fakeFetcher{payloads: []string{us1Payload}}, store, usGeocoder(), pipeline.WithClock(clock))

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, res.Status)
	assert.Empty(t, res.FailedStage)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "2023-11-14..2023-11-15", res.Window)
	assert.Equal(t, 1, res.RowsIngested)
	assert.Equal(t, 1, res.RowsStandardized)
	assert.Equal(t, 1, res.RowsEnriched)
	assert.Empty(t, res.Dropped)
	assert.Empty(t, res.Warnings)
	assert.True(t, res.WatermarkBefore.IsZero())
	assert.Equal(t, us1Time, res.WatermarkAfter)
	assert.Equal(t, clock.Now(), res.StartedAt)

	require.Len(t, store.enriched, 1)
	ev := store.enriched[0]
	assert.Equal(t, "us1", ev.ID)
	assert.Equal(t, us1Time, ev.Time)
	assert.Equal(t, domain.SigModerate, ev.SigClass)
	require.NotNil(t, ev.CountryCode)
	assert.Equal(t, "US", *ev.CountryCode)
	assert.Equal(t, domain.Watermark{Value: us1Time, Version: 1}, store.wm)

	last, ok := c.LastResult()
	require.True(t, ok)
	assert.Equal(t, res.RunID, last.RunID)
}

func TestCoordinator_Run_DropsRecordsWithoutID(t *testing.T) {
	base := us1Time.UnixMilli()
	payloads := make([]string, 0, 100)
	for i := range 100 {
		if i == 10 || i == 50 || i == 90 {
			payloads = append(payloads, fmt.Sprintf(`{"geometry":{"coordinates":[1,2,3]},"properties":{"time":%d}}`, base))
			continue
		}
		payloads = append(payloads, payload(fmt.Sprintf("ev%03d", i), base+int64(i)*1000, i*10))
	}

	store := newMemStore()
	c := newCoordinator(&fakeFetcher{payloads: payloads}, store, usGeocoder())

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, 100, res.RowsIngested)
	assert.Equal(t, 97, res.RowsStandardized)
	assert.Equal(t, 97, res.RowsEnriched)
	require.Len(t, res.Dropped, 3)
	for i, want := range []int{10, 50, 90} {
		assert.Equal(t, want, res.Dropped[i].Index)
		assert.Equal(t, domain.DropMissingID, res.Dropped[i].Reason)
	}
	assert.Equal(t, us1Time.Add(99*time.Second), res.WatermarkAfter)
	assert.Len(t, store.raw["2023-11-14"], 100)
}

func TestCoordinator_Run_RerunIsIdempotent(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{payloads: []string{us1Payload}}
	c := newCoordinator(f, store, usGeocoder())

	_, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	wm := store.wm

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, res.Status)
	assert.Equal(t, 1, res.RowsStandardized)
	assert.Equal(t, 0, res.RowsEnriched)
	assert.Equal(t, wm.Value, res.WatermarkBefore)
	assert.Equal(t, wm.Value, res.WatermarkAfter)
	assert.Equal(t, wm, store.wm)
	assert.Equal(t, 1, store.enrichedCount())
	assert.Len(t, store.std, 1)
}

func TestCoordinator_Run_LaterEventAfterWatermarkIsEnriched(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{payloads: []string{payload("a", us1Time.UnixMilli(), 50)}}
	c := newCoordinator(f, store, usGeocoder())

	_, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	later := us1Time.Add(time.Minute).UnixMilli()
	f.payloads = append(f.payloads, payload("b", later, 600))
	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, 2, res.RowsStandardized)
	assert.Equal(t, 1, res.RowsEnriched)
	assert.Zero(t, res.RowsBehindWatermark)
	assert.Equal(t, us1Time.Add(time.Minute), res.WatermarkAfter)
	require.Len(t, store.enriched, 2)
	assert.Equal(t, domain.SigHigh, store.enriched[1].SigClass)
	assert.Equal(t, int64(2), store.wm.Version)
}

func TestCoordinator_Run_CorrectionAtWatermarkIsReported(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{payloads: []string{us1Payload}}
	c := newCoordinator(f, store, usGeocoder())

	_, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	// Same event, same origin time, revised magnitude and a later updated.
	f.payloads = []string{fmt.Sprintf(`{"id":"us1","geometry":{"coordinates":[-122.4,37.7,10]},
		"properties":{"sig":300,"mag":4.3,"time":%d,"updated":%d}}`,
		us1Time.UnixMilli(), us1Time.Add(time.Hour).UnixMilli())}
	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, res.Status)
	assert.Equal(t, 1, res.RowsStandardized)
	assert.Len(t, store.std, 2, "the correction is kept alongside the original")
	assert.Equal(t, 0, res.RowsEnriched)
	assert.Equal(t, 1, res.RowsBehindWatermark)
	assert.Equal(t, us1Time, res.WatermarkAfter)
	assert.Equal(t, 1, store.enrichedCount())
}

func TestCoordinator_Run_LateArrivalBehindWatermark(t *testing.T) {
	store := newMemStore()
	metrics := observability.NewMetricsForTesting()
	enricher := domain.NewEnricher(usGeocoder(), time.Second, 4, discardLogger())
	f := &fakeFetcher{payloads: []string{payload("b", us1Time.Add(time.Hour).UnixMilli(), 50)}}
	c := pipeline.New(f, store, store, store, enricher, discardLogger(), metrics)

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	assert.Zero(t, res.RowsBehindWatermark, "nothing is behind an unset watermark")

	f.payloads = append(f.payloads,
		payload("late", us1Time.UnixMilli(), 50),
		payload("tie", us1Time.Add(time.Hour).UnixMilli(), 50),
		payload("next", us1Time.Add(2*time.Hour).UnixMilli(), 50),
	)
	res, err = c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, 2, res.RowsBehindWatermark, "rows at or below the watermark")
	assert.Equal(t, 1, res.RowsEnriched)
	assert.Equal(t, us1Time.Add(2*time.Hour), res.WatermarkAfter)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.RowsBehindWatermark), 0)

	// Replaying the window stores nothing new, so nothing new is reported.
	res, err = c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	assert.Zero(t, res.RowsBehindWatermark)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.RowsBehindWatermark), 0)
}

func TestCoordinator_Run_OutOfRangeTimeDoesNotPinWatermark(t *testing.T) {
	store := newMemStore()
	bad := `{"id":"far","geometry":{"coordinates":[1,2,3]},"properties":{"sig":10,"time":1e17}}`
	f := &fakeFetcher{payloads: []string{payload("a", us1Time.UnixMilli(), 50), bad}}
	c := newCoordinator(f, store, usGeocoder())

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	require.Len(t, res.Dropped, 1)
	assert.Equal(t, 1, res.Dropped[0].Index)
	assert.Equal(t, "far", res.Dropped[0].EventID)
	assert.Equal(t, domain.DropInvalidTime, res.Dropped[0].Reason)
	assert.Equal(t, us1Time, res.WatermarkAfter)

	// The result still encodes for the ops endpoints and the backfill output.
	_, err = json.Marshal(res)
	require.NoError(t, err)

	// Later events keep flowing.
	f.payloads = append(f.payloads, payload("b", us1Time.Add(time.Minute).UnixMilli(), 50))
	res, err = c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsEnriched)
	assert.Equal(t, us1Time.Add(time.Minute), store.wm.Value)
}

func TestCoordinator_Run_IngestionFailure(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{err: &domain.IngestionError{StatusCode: 503, Err: errors.New("service unavailable")}}
	c := newCoordinator(f, store, usGeocoder())

	res, err := c.Run(context.Background(), testWindow(t))
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrIngestionFailure)

	var ie *domain.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 503, ie.StatusCode)

	assert.Equal(t, pipeline.StateFailed, res.Status)
	assert.Equal(t, pipeline.StateIngesting, res.FailedStage)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, store.raw)
	assert.Empty(t, store.std)
	assert.Empty(t, store.enriched)
	assert.Equal(t, domain.Watermark{}, store.wm)
}

func TestCoordinator_Run_StandardizedWriteFailure(t *testing.T) {
	store := newMemStore()
	store.appendErr = fmt.Errorf("%w: disk full", domain.ErrStoreWrite)
	c := newCoordinator(&fakeFetcher{payloads: []string{us1Payload}}, store, usGeocoder())

	res, err := c.Run(context.Background(), testWindow(t))
	require.ErrorIs(t, err, domain.ErrStoreWrite)
	assert.Equal(t, pipeline.StateNormalizing, res.FailedStage)
	assert.Empty(t, store.enriched)
	assert.Equal(t, domain.Watermark{}, store.wm)
}

func TestCoordinator_Run_EnrichedWriteFailureKeepsWatermark(t *testing.T) {
	store := newMemStore()
	c := newCoordinator(&fakeFetcher{payloads: []string{us1Payload}}, store, usGeocoder())

	_, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	before := store.wm

	store.commitErr = fmt.Errorf("%w: disk full", domain.ErrStoreWrite)
	f := &fakeFetcher{payloads: []string{us1Payload, payload("later", us1Time.Add(time.Hour).UnixMilli(), 10)}}
	c = newCoordinator(f, store, usGeocoder())

	res, err := c.Run(context.Background(), testWindow(t))
	require.ErrorIs(t, err, domain.ErrStoreWrite)
	assert.Equal(t, pipeline.StateFailed, res.Status)
	assert.Equal(t, pipeline.StateEnriching, res.FailedStage)
	assert.Equal(t, before, store.wm)
	assert.Equal(t, 1, store.enrichedCount())

	// The next healthy run picks up where the failed one stopped.
	store.commitErr = nil
	res, err = c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsEnriched)
	assert.Equal(t, 2, store.enrichedCount())
}

func TestCoordinator_Run_WatermarkConflict(t *testing.T) {
	store := newMemStore()
	store.beforeCommit = func(s *memStore) {
		s.mu.Lock()
		s.wm = domain.Watermark{Value: us1Time.Add(time.Hour), Version: s.wm.Version + 1}
		s.mu.Unlock()
	}
	c := newCoordinator(&fakeFetcher{payloads: []string{us1Payload}}, store, usGeocoder())

	res, err := c.Run(context.Background(), testWindow(t))
	require.ErrorIs(t, err, domain.ErrWatermarkConflict)
	assert.Equal(t, pipeline.StateEnriching, res.FailedStage)
	assert.Empty(t, store.enriched)
}

func TestCoordinator_Run_CancelledContext(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{payloads: []string{us1Payload}}
	c := newCoordinator(f, store, usGeocoder())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Run(ctx, testWindow(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, pipeline.StateFailed, res.Status)
	assert.Equal(t, pipeline.StateIngesting, res.FailedStage)
	assert.Equal(t, int64(0), f.calls.Load())
	assert.Empty(t, store.raw)
}

func TestCoordinator_Run_GeocodingFailureNullFills(t *testing.T) {
	store := newMemStore()
	geo := geocoderFunc(func(context.Context, float64, float64) (string, error) {
		return "", errors.New("connection refused")
	})
	c := newCoordinator(&fakeFetcher{payloads: []string{us1Payload}}, store, geo)

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, res.Status)
	assert.Equal(t, 1, res.RowsEnriched)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarnLookupFailed, res.Warnings[0].Reason)
	require.Len(t, store.enriched, 1)
	assert.Nil(t, store.enriched[0].CountryCode)
	assert.Equal(t, us1Time, store.wm.Value)
}

func TestCoordinator_Run_PublishesCommittedRows(t *testing.T) {
	store := newMemStore()
	pub := &fakePublisher{}
	c := newCoordinator(&fakeFetcher{payloads: []string{us1Payload}}, store, usGeocoder(), pipeline.WithPublisher(pub))

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "us1", pub.events[0].ID)
	assert.Equal(t, []string{res.RunID}, pub.runIDs)

	// Nothing new to publish on a re-run.
	_, err = c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestCoordinator_Run_PublishErrorDoesNotFailRun(t *testing.T) {
	store := newMemStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	c := newCoordinator(&fakeFetcher{payloads: []string{us1Payload}}, store, usGeocoder(), pipeline.WithPublisher(pub))

	res, err := c.Run(context.Background(), testWindow(t))
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateDone, res.Status)
	assert.Equal(t, 1, store.enrichedCount())
}

func TestCoordinator_Run_ConcurrentRunsEnrichOnce(t *testing.T) {
	base := us1Time.UnixMilli()
	payloads := make([]string, 20)
	for i := range payloads {
		payloads[i] = payload(fmt.Sprintf("ev%02d", i), base+int64(i)*1000, 100)
	}

	store := newMemStore()
	c := newCoordinator(&fakeFetcher{payloads: payloads}, store, usGeocoder())

	var wg sync.WaitGroup
	results := make([]pipeline.Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Run(context.Background(), testWindow(t))
		}()
	}
	wg.Wait()

	total := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, pipeline.StateDone, results[i].Status)
		total += results[i].RowsEnriched
	}
	assert.Equal(t, 20, total)
	assert.Equal(t, 20, store.enrichedCount())
	assert.Equal(t, int64(1), store.wm.Version)
}

func TestCoordinator_LastResult_Empty(t *testing.T) {
	c := newCoordinator(&fakeFetcher{}, newMemStore(), nil)
	_, ok := c.LastResult()
	assert.False(t, ok)
}
