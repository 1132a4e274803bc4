// Package app wires configuration into a ready-to-run coordinator.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/geocache"
	kafkaadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/nominatim"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/usgs"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

// App holds the long-lived components shared by the service and the
// backfill command.
type App struct {
	Store       *sqlite.Store
	Coordinator *pipeline.Coordinator

	publisher *kafkaadapter.Publisher
	logger    *slog.Logger
}

// New opens the store and builds the coordinator described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	geocoder := NewGeocoder(cfg, logger, metrics)
	enricher := domain.NewEnricher(geocoder, cfg.GeocodeTimeout, cfg.WorkerCount, logger)
	fetcher := usgs.NewClient(cfg.USGSURL, cfg.USGSPageSize, cfg.USGSTimeout, logger)

	a := &App{Store: store, logger: logger}

	var opts []pipeline.Option
	if cfg.KafkaPublishEnabled {
		a.publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEnrichedTopic, metrics, logger)
		opts = append(opts, pipeline.WithPublisher(a.publisher))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEnrichedTopic)
	}

	a.Coordinator = pipeline.New(fetcher, store, store, store, enricher, logger, metrics, opts...)
	return a, nil
}

// NewGeocoder returns the cached geocoder for the configured provider, or nil
// when country enrichment is disabled.
func NewGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	metrics.GeocodeEnabled.Set(0)
	if !cfg.GeocodingEnabled() {
		logger.Info("country enrichment disabled")
		return nil
	}

	var inner domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderMapbox:
		inner = mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeTimeout, metrics, logger)
	case config.ProviderNominatim:
		inner = nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeocodeTimeout, metrics, logger)
	default:
		logger.Warn("unknown geocoder provider; country enrichment disabled", "provider", cfg.GeocoderProvider)
		return nil
	}

	metrics.GeocodeEnabled.Set(1)
	logger.Info("country enrichment enabled",
		"provider", cfg.GeocoderProvider,
		"cache_size", cfg.GeocodeCacheSize,
		"timeout", cfg.GeocodeTimeout,
	)
	return geocache.NewCachedGeocoder(inner, cfg.GeocodeCacheSize, metrics)
}

// Close releases the publisher and the store.
func (a *App) Close() error {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("kafka publisher close error", "error", err)
		}
	}
	return a.Store.Close()
}
