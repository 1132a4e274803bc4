package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoder providers accepted by GEOCODER_PROVIDER.
const (
	ProviderMapbox    = "mapbox"
	ProviderNominatim = "nominatim"
	ProviderNone      = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	APIAddr         string
	APIRateLimit    int
	APICORSOrigins  []string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath string

	// USGS FDSN event service.
	USGSURL      string
	USGSTimeout  time.Duration
	USGSPageSize int

	// Reverse geocoding configuration.
	GeocoderProvider   string
	MapboxToken        string
	NominatimURL       string
	NominatimUserAgent string
	GeocodeTimeout     time.Duration
	GeocodeCacheSize   int

	WorkerCount int

	ScheduleEnabled      bool
	ScheduleInterval     time.Duration
	ScheduleLookbackDays int

	KafkaPublishEnabled bool
	KafkaBrokers        []string
	KafkaEnrichedTopic  string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	usgsTimeout, err := parsePositiveDuration("USGS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parsePositiveDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := parsePositiveDuration("SCHEDULE_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	pageSize, err := parseIntInRange("USGS_PAGE_SIZE", 20000, 1, 20000)
	if err != nil {
		return nil, err
	}
	workers, err := parseIntInRange("WORKER_COUNT", 8, 1, 256)
	if err != nil {
		return nil, err
	}
	lookback, err := parseIntInRange("SCHEDULE_LOOKBACK_DAYS", 1, 0, 365)
	if err != nil {
		return nil, err
	}
	apiRate, err := parseIntInRange("API_RATE_LIMIT", 10, 1, 10000)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	defaultProvider := ProviderNominatim
	if mapboxToken != "" {
		defaultProvider = ProviderMapbox
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		APIAddr:         sharedcfg.EnvOrDefault("API_ADDR", ":8081"),
		APIRateLimit:    apiRate,
		APICORSOrigins:  splitList(sharedcfg.EnvOrDefault("API_CORS_ORIGINS", "*")),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath: sharedcfg.EnvOrDefault("DB_PATH", "quake.db"),

		USGSURL:      sharedcfg.EnvOrDefault("USGS_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		USGSTimeout:  usgsTimeout,
		USGSPageSize: pageSize,

		GeocoderProvider:   strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", defaultProvider)),
		MapboxToken:        mapboxToken,
		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "quake-data-etl/1.0"),
		GeocodeTimeout:     geocodeTimeout,
		GeocodeCacheSize:   parseCacheSize(),

		WorkerCount: workers,

		ScheduleEnabled:      os.Getenv("SCHEDULE_ENABLED") == "true",
		ScheduleInterval:     scheduleInterval,
		ScheduleLookbackDays: lookback,

		KafkaPublishEnabled: os.Getenv("KAFKA_PUBLISH_ENABLED") == "true",
		KafkaBrokers:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEnrichedTopic:  sharedcfg.EnvOrDefault("KAFKA_ENRICHED_TOPIC", "enriched-quake-events"),
	}

	switch cfg.GeocoderProvider {
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	case ProviderNominatim:
		if cfg.NominatimUserAgent == "" {
			return nil, errors.New("NOMINATIM_USER_AGENT is required for the nominatim provider")
		}
	case ProviderNone:
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q: want mapbox, nominatim or none", cfg.GeocoderProvider)
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.KafkaPublishEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_PUBLISH_ENABLED is true")
		}
		if cfg.KafkaEnrichedTopic == "" {
			return nil, errors.New("KAFKA_ENRICHED_TOPIC is required when KAFKA_PUBLISH_ENABLED is true")
		}
	}

	return cfg, nil
}

// GeocodingEnabled reports whether country lookup is configured.
func (c *Config) GeocodingEnabled() bool {
	return c.GeocoderProvider != ProviderNone
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, s)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s %q: must be an integer in [%d, %d]", key, s, lo, hi)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
