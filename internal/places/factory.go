package places

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/forager/internal/metrics"
	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"
)

// ProviderType represents the implementation used to talk to the places search API.
type ProviderType string

const (
	// ProviderTypeGoogle uses the official Google Maps client library.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeREST calls the Nearby Search endpoint directly with per-record validation.
	ProviderTypeREST ProviderType = "rest"

	// DefaultProviderType is used when no type is configured.
	DefaultProviderType = ProviderTypeREST
)

// ProviderConfig holds configuration for creating a fetcher.
type ProviderConfig struct {
	Type      ProviderType     // Type of provider to create
	APIKey    string           // API key for the Places API
	BaseURL   string           // Endpoint override (used by the REST provider)
	RateLimit int              // Requests per second, 0 disables limiting
	Timeout   time.Duration    // Timeout of a single request
	PageDelay time.Duration    // Pause before following a continuation token
	Metrics   *metrics.Metrics // Metrics for request statuses and durations
	Logger    *slog.Logger     // Logger for the provider
}

// NewFetcher creates a places fetcher based on the provided configuration.
//
// Supported provider types:
// - "google": Google Maps client library
// - "rest": direct HTTP calls to the Nearby Search endpoint (default)
func NewFetcher(config ProviderConfig) (Fetcher, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for places search")
	}
	if config.Type == "" {
		config.Type = DefaultProviderType
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	switch config.Type {
	case ProviderTypeGoogle:
		return newGoogleFetcher(config)
	case ProviderTypeREST:
		return newRESTFetcher(config), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// newGoogleFetcher creates a fetcher backed by the Google Maps client.
func newGoogleFetcher(config ProviderConfig) (Fetcher, error) {
	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}

	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleFetcher(client, config.PageDelay, config.Metrics, config.Logger), nil
}

// newRESTFetcher creates a fetcher that calls the endpoint directly.
func newRESTFetcher(config ProviderConfig) Fetcher {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
	}

	return NewRESTFetcherWithClient(
		&http.Client{Timeout: config.Timeout},
		config.BaseURL,
		config.APIKey,
		limiter,
		config.PageDelay,
		config.Metrics,
		config.Logger,
	)
}
