// Package domain models USGS earthquake event data as it moves through the
// raw, standardized, and enriched tiers.
//
// # Data Source
//
// Events come from the USGS FDSN event web service
// (https://earthquake.usgs.gov/fdsnws/event/1/) in GeoJSON format. Each
// feature of the returned FeatureCollection is kept verbatim as one raw
// record:
//
//	{
//	  "id": "us7000l0s4",
//	  "geometry": {"type": "Point", "coordinates": [-122.4, 37.7, 10.0]},
//	  "properties": {"mag": 4.1, "magType": "mb", "place": "...", "title": "M 4.1 - ...",
//	                 "sig": 250, "time": 1700000000000, "updated": 1700000100000}
//	}
//
// # USGS Data Conventions
//
// Coordinates:
//
//	GeoJSON order [longitude, latitude, depth]. Depth is kilometres and may be
//	missing or null for some networks; it is carried as elevation unchanged.
//
// Time format:
//
//	"time" and "updated" are milliseconds since the Unix epoch, UTC. They are
//	converted by floor division to whole seconds; sub-second precision is
//	dropped.
//
// Significance:
//
//	"sig" is an integer 0..1000+ computed by USGS from magnitude, felt reports,
//	and estimated impact. It drives the three-level risk class:
//
//	  sig < 100          Low
//	  100 <= sig < 500   Moderate
//	  sig >= 500         High
//
//	A missing sig is classified through the sentinel [NullSig] (-1), so it
//	lands in Low.
//
// # Record Lifecycle
//
// Rows are never edited. USGS revisions arrive as the same id with a later
// "updated", and are stored as new rows keyed by (id, updated).
package domain
