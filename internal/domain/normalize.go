package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Normalize maps one raw record to a standardized event. When the record lacks
// a required field it returns a non-nil DropReport and a zero event; the
// report's Index is left for the caller to fill in.
//
// Required: id, geometry.coordinates[0..1], properties.time. A time outside
// years 0 through 9999 is dropped as InvalidTime. Optional fields that are
// absent, null, or of the wrong JSON type become nil or "".
func Normalize(raw RawEvent) (StandardizedEvent, *DropReport) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw.Payload, &doc); err != nil || doc == nil {
		detail := "payload is not a JSON object"
		if err != nil {
			detail = err.Error()
		}
		return StandardizedEvent{}, &DropReport{EventID: raw.ID, Reason: DropMalformed, Detail: detail}
	}

	id, ok := decodeString(doc["id"])
	if !ok || id == "" {
		return StandardizedEvent{}, &DropReport{EventID: raw.ID, Reason: DropMissingID, Detail: "id is absent or not a string"}
	}

	lon, lat, elev, err := parseCoordinates(doc["geometry"])
	if err != nil {
		return StandardizedEvent{}, &DropReport{EventID: id, Reason: DropMissingGeometry, Detail: err.Error()}
	}

	var props map[string]json.RawMessage
	if !decodeInto(doc["properties"], &props) || props == nil {
		return StandardizedEvent{}, &DropReport{EventID: id, Reason: DropMissingTime, Detail: "properties bag is absent"}
	}

	ms, numeric, inRange := decodeEpochMillis(props["time"])
	switch {
	case !numeric:
		return StandardizedEvent{}, &DropReport{EventID: id, Reason: DropMissingTime, Detail: "properties.time is absent or not numeric"}
	case !inRange:
		return StandardizedEvent{}, &DropReport{
			EventID: id,
			Reason:  DropInvalidTime,
			Detail:  fmt.Sprintf("properties.time %s is outside years 0-9999", bytes.TrimSpace(props["time"])),
		}
	}
	eventTime := EpochMillisToTime(ms)
	updated := eventTime
	if ums, numeric, inRange := decodeEpochMillis(props["updated"]); numeric && inRange {
		updated = EpochMillisToTime(ums)
	}

	title, _ := decodeString(props["title"])
	place, _ := decodeString(props["place"])
	magType, _ := decodeString(props["magType"])

	return StandardizedEvent{
		ID:               id,
		Longitude:        lon,
		Latitude:         lat,
		Elevation:        elev,
		Title:            title,
		PlaceDescription: place,
		Sig:              decodeInt(props["sig"]),
		Mag:              decodeFloat(props["mag"]),
		MagType:          magType,
		Time:             eventTime,
		Updated:          updated,
	}, nil
}

// NormalizeBatch normalizes every record independently. Dropped records are
// reported with their batch index and never stop the batch.
func NormalizeBatch(raws []RawEvent) ([]StandardizedEvent, []DropReport) {
	out := make([]StandardizedEvent, 0, len(raws))
	var dropped []DropReport
	for i, raw := range raws {
		ev, drop := Normalize(raw)
		if drop != nil {
			drop.Index = i
			dropped = append(dropped, *drop)
			continue
		}
		out = append(out, ev)
	}
	return out, dropped
}

// EpochMillisToTime converts epoch milliseconds to a UTC timestamp with the
// sub-second part discarded (floor division, so pre-1970 values round down).
func EpochMillisToTime(ms int64) time.Time {
	secs := ms / 1000
	if ms%1000 != 0 && ms < 0 {
		secs--
	}
	return time.Unix(secs, 0).UTC()
}

func parseCoordinates(raw json.RawMessage) (lon, lat float64, elev *float64, err error) {
	var geom struct {
		Coordinates []json.RawMessage `json:"coordinates"`
	}
	if !decodeInto(raw, &geom) {
		return 0, 0, nil, fmt.Errorf("geometry is absent or malformed")
	}
	if len(geom.Coordinates) < 2 {
		return 0, 0, nil, fmt.Errorf("geometry has %d coordinates, need at least 2", len(geom.Coordinates))
	}
	lonp := decodeFloat(geom.Coordinates[0])
	latp := decodeFloat(geom.Coordinates[1])
	if lonp == nil || latp == nil {
		return 0, 0, nil, fmt.Errorf("longitude or latitude is null or not numeric")
	}
	if len(geom.Coordinates) >= 3 {
		elev = decodeFloat(geom.Coordinates[2])
	}
	return *lonp, *latp, elev, nil
}

// decodeInto reports false for absent, null, or mistyped values.
func decodeInto(raw json.RawMessage, v any) bool {
	if isNull(raw) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if !decodeInto(raw, &s) {
		return "", false
	}
	return s, true
}

func decodeFloat(raw json.RawMessage) *float64 {
	var f float64
	if !decodeInto(raw, &f) {
		return nil
	}
	return &f
}

// decodeInt truncates non-integral numbers toward zero.
func decodeInt(raw json.RawMessage) *int {
	var n json.Number
	if !decodeInto(raw, &n) {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		v := int(i)
		return &v
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := int(math.Trunc(f))
	return &v
}

// Epoch milliseconds bounding 0000-01-01T00:00:00Z and 9999-12-31T23:59:59.999Z,
// the range a timestamp can be stored and serialized in.
const (
	minEpochMillis = -62167219200000
	maxEpochMillis = 253402300799999
)

// decodeEpochMillis reads an integer or floating JSON number as whole
// milliseconds, flooring fractions. numeric is false for absent, null or
// non-numeric values; inRange is false outside years 0 through 9999.
func decodeEpochMillis(raw json.RawMessage) (ms int64, numeric, inRange bool) {
	var n json.Number
	if !decodeInto(raw, &n) {
		return 0, false, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true, i >= minEpochMillis && i <= maxEpochMillis
	}
	// Overflowing literals parse to ±Inf with an error; they are numbers,
	// just unrepresentable ones.
	f, err := n.Float64()
	if err != nil && !math.IsInf(f, 0) {
		return 0, false, false
	}
	f = math.Floor(f)
	if math.IsNaN(f) || f < minEpochMillis || f > maxEpochMillis {
		return 0, true, false
	}
	return int64(f), true, true
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
