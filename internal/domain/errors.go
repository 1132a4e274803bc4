package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIngestionFailure marks an upstream fetch that returned a non-success
	// status or an unreadable payload.
	ErrIngestionFailure = errors.New("ingestion failure")

	// ErrStoreWrite marks a failed append to any tier.
	ErrStoreWrite = errors.New("store write failure")

	// ErrWatermarkConflict is returned when another run advanced the watermark
	// between this run's read and its commit.
	ErrWatermarkConflict = errors.New("watermark conflict")

	// ErrCountryNotFound is returned by geocoders when the coordinates resolve
	// to no country (open ocean, disputed areas).
	ErrCountryNotFound = errors.New("no country at coordinates")
)

// IngestionError carries the upstream HTTP status when there was one.
// It matches ErrIngestionFailure under errors.Is.
type IngestionError struct {
	StatusCode int
	Err        error
}

func (e *IngestionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ingestion failure: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ingestion failure: %v", e.Err)
}

func (e *IngestionError) Unwrap() []error {
	return []error{ErrIngestionFailure, e.Err}
}
