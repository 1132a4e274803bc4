// Package usgs retrieves earthquake features from the USGS FDSN event service.
package usgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// fdsnTime is the timestamp layout the FDSN query parameters accept.
const fdsnTime = "2006-01-02T15:04:05"

// Client implements pipeline.Fetcher against fdsnws/event/1/query.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a USGS client. pageSize bounds each request's limit;
// the service rejects values above 20000.
func NewClient(baseURL string, pageSize int, timeout time.Duration, logger *slog.Logger) *Client {
	if pageSize < 1 {
		pageSize = 20000
	}
	return &Client{
		baseURL:    baseURL,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch returns every feature with an origin time inside the window, oldest
// first. Each RawEvent carries the feature document verbatim.
func (c *Client) Fetch(ctx context.Context, window domain.DateRange) ([]domain.RawEvent, error) {
	var events []domain.RawEvent
	// FDSN offsets are 1-based.
	for offset := 1; ; offset += c.pageSize {
		page, err := c.fetchPage(ctx, window, offset)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		c.logger.Debug("fetched usgs page",
			"window", window.String(),
			"offset", offset,
			"count", len(page),
		)
		if len(page) < c.pageSize {
			return events, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, window domain.DateRange, offset int) ([]domain.RawEvent, error) {
	params := url.Values{
		"format":    {"geojson"},
		"starttime": {window.Start.UTC().Format(fdsnTime)},
		"endtime":   {window.End.UTC().Format(fdsnTime)},
		"orderby":   {"time-asc"},
		"limit":     {strconv.Itoa(c.pageSize)},
		"offset":    {strconv.Itoa(offset)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &domain.IngestionError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.IngestionError{Err: fmt.Errorf("usgs request: %w", err)}
	}
	defer resp.Body.Close()

	// 204 is how FDSN reports an empty result.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.IngestionError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, &domain.IngestionError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode feature collection: %w", err),
		}
	}
	if fc.Features == nil {
		return nil, &domain.IngestionError{
			StatusCode: resp.StatusCode,
			Err:        errors.New("response has no features array"),
		}
	}

	events := make([]domain.RawEvent, 0, len(fc.Features))
	for _, f := range fc.Features {
		events = append(events, domain.RawEvent{ID: featureID(f), Payload: f})
	}
	return events, nil
}

type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

// featureID extracts the id for logging; normalization reads the payload itself.
func featureID(payload json.RawMessage) string {
	var f struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(payload, &f); err != nil {
		return ""
	}
	if s, ok := f.ID.(string); ok {
		return s
	}
	return ""
}
