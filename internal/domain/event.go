package domain

import (
	"encoding/json"
	"time"
)

// RawEvent is one source feature exactly as delivered by the upstream feed.
type RawEvent struct {
	// ID is copied from the payload for logging; normalization reads Payload only.
	ID      string
	Payload json.RawMessage
}

// StandardizedEvent is the typed, unit-converted form of a raw event.
type StandardizedEvent struct {
	ID               string    `json:"id"`
	Longitude        float64   `json:"longitude"`
	Latitude         float64   `json:"latitude"`
	Elevation        *float64  `json:"elevation"`
	Title            string    `json:"title"`
	PlaceDescription string    `json:"place_description"`
	Sig              *int      `json:"sig"`
	Mag              *float64  `json:"mag"`
	MagType          string    `json:"mag_type"`
	Time             time.Time `json:"time"`
	Updated          time.Time `json:"updated"`
}

// EnrichedEvent is a standardized event plus derived business fields.
// CountryCode is nil when the reverse lookup did not produce a country.
type EnrichedEvent struct {
	StandardizedEvent
	CountryCode *string  `json:"country_code"`
	SigClass    SigClass `json:"sig_class"`
}

// DropReason explains why a raw record produced no standardized row.
type DropReason string

const (
	DropMissingID       DropReason = "MissingId"
	DropMissingGeometry DropReason = "MissingGeometry"
	DropMissingTime     DropReason = "MissingTime"
	DropInvalidTime     DropReason = "InvalidTime"
	DropMalformed       DropReason = "MalformedPayload"
)

// DropReport records one dropped raw record. Index is its position in the batch.
type DropReport struct {
	Index   int        `json:"index"`
	EventID string     `json:"event_id,omitempty"`
	Reason  DropReason `json:"reason"`
	Detail  string     `json:"detail,omitempty"`
}

// WarningReason classifies a non-fatal enrichment problem.
type WarningReason string

const (
	WarnInvalidCoordinates WarningReason = "InvalidCoordinates"
	WarnLookupFailed       WarningReason = "LookupFailed"
	WarnLookupTimeout      WarningReason = "LookupTimeout"
	WarnNotFound           WarningReason = "NotFound"
)

// EnrichmentWarning is reported when an event was enriched with a null country code.
type EnrichmentWarning struct {
	EventID string        `json:"event_id"`
	Reason  WarningReason `json:"reason"`
	Detail  string        `json:"detail,omitempty"`
}

// Watermark is the latest standardized event time already enriched.
// Version increases by one on every successful advance.
type Watermark struct {
	Value   time.Time `json:"value"`
	Version int64     `json:"version"`
}
