package places

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/forager/internal/metrics"
	"github.com/UnknownOlympus/forager/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleFetcher walks nearby search results through the official Google Maps client.
// The library decodes a page as a whole: a record with non-numeric coordinates fails
// the entire page, so RESTFetcher is the default provider.
type GoogleFetcher struct {
	client    PlacesAPIClient  // client is the Google Maps API client
	log       *slog.Logger     // log is the logger for logging operations
	metrics   *metrics.Metrics // metrics records request statuses and durations
	pageDelay time.Duration    // pageDelay is the pause before a continuation request
	wait      WaitFunc
}

type PlacesAPIClient interface {
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
}

// NewGoogleFetcher wraps a Google Maps client. A non-positive pageDelay falls back to DefaultPageDelay.
func NewGoogleFetcher(
	client PlacesAPIClient,
	pageDelay time.Duration,
	metrics *metrics.Metrics,
	log *slog.Logger,
) *GoogleFetcher {
	if pageDelay <= 0 {
		pageDelay = DefaultPageDelay
	}
	return &GoogleFetcher{client: client, log: log, metrics: metrics, pageDelay: pageDelay, wait: sleepContext}
}

// FetchAll implements Fetcher. Continuation requests carry only the page token;
// the client library adds the API key.
func (gf *GoogleFetcher) FetchAll(ctx context.Context, query models.Query) iter.Seq2[models.RawPlace, error] {
	return func(yield func(models.RawPlace, error) bool) {
		req := &maps.NearbySearchRequest{
			Location: &maps.LatLng{Lat: query.Location.Latitude, Lng: query.Location.Longitude},
			Radius:   query.Radius,
			Keyword:  query.Keyword,
			Language: query.Language,
		}

		for page := 1; ; page++ {
			gf.log.DebugContext(ctx, "Searching places using Google Maps",
				"keyword", query.Keyword, "location", query.Location.String(), "page", page)

			startTime := time.Now()
			resp, err := gf.client.NearbySearch(ctx, req)
			gf.metrics.RequestSeconds.WithLabelValues(string(ProviderTypeGoogle)).Observe(time.Since(startTime).Seconds())

			if err != nil {
				err = mapsStatusError(err)
				gf.metrics.SearchRequests.WithLabelValues(statusLabel(err)).Inc()
				yield(models.RawPlace{}, fmt.Errorf("page %d: %w", page, err))
				return
			}

			if len(resp.Results) == 0 && resp.NextPageToken == "" {
				gf.metrics.SearchRequests.WithLabelValues(StatusZeroResults).Inc()
			} else {
				gf.metrics.SearchRequests.WithLabelValues(StatusOK).Inc()
			}

			for _, result := range resp.Results {
				if !yield(fromSearchResult(result), nil) {
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}

			if err = gf.wait(ctx, gf.pageDelay); err != nil {
				yield(models.RawPlace{}, err)
				return
			}
			req = &maps.NearbySearchRequest{PageToken: resp.NextPageToken}
		}
	}
}

// fromSearchResult converts a decoded result. The client library decodes a result
// without geometry into a zero LatLng, so an exact (0,0) location is treated as missing.
func fromSearchResult(result maps.PlacesSearchResult) models.RawPlace {
	place := models.RawPlace{ID: result.PlaceID, Name: result.Name}
	if loc := result.Geometry.Location; loc != (maps.LatLng{}) {
		place.Location = &models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}
	}
	return place
}

// mapsStatusError turns the client library's "maps: STATUS - message" errors into a StatusError.
// Any other error is wrapped with ErrSearchFailed.
func mapsStatusError(err error) error {
	msg, ok := strings.CutPrefix(err.Error(), "maps: ")
	if ok {
		status, message, _ := strings.Cut(msg, " - ")
		if status != "" && !strings.ContainsAny(status, " :") && strings.ToUpper(status) == status {
			return &StatusError{Status: status, Message: message}
		}
	}
	return fmt.Errorf("%w: %w", ErrSearchFailed, err)
}
