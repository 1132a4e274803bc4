package domain

import "context"

// Geocoder resolves coordinates to an ISO 3166-1 alpha-2 country code.
// Implementations return ErrCountryNotFound when the point lies in no country.
type Geocoder interface {
	CountryCode(ctx context.Context, lat, lon float64) (string, error)
}
