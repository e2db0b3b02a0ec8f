package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/forager/internal/metrics"
	"github.com/UnknownOlympus/forager/internal/models"
	"golang.org/x/time/rate"
)

// DefaultSearchURL is the Nearby Search endpoint of the Places API.
const DefaultSearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 10 * time.Second

// RESTFetcher calls the Nearby Search endpoint directly and validates every
// result on its own, so one malformed record does not spoil a whole page.
type RESTFetcher struct {
	client    HTTPClient       // HTTP client for making requests
	baseURL   string           // Base URL of the Nearby Search endpoint
	apiKey    string           // API key with Places access
	log       *slog.Logger     // Logger for logging operations
	limiter   *rate.Limiter    // Rate limiter
	metrics   *metrics.Metrics // Request statuses and durations
	pageDelay time.Duration
	wait      WaitFunc
}

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// searchResponse is the envelope of a Nearby Search response. Results stay raw
// until parseResult validates them one by one.
type searchResponse struct {
	Status        string            `json:"status"`
	Results       []json.RawMessage `json:"results"`
	NextPageToken string            `json:"next_page_token"`
	ErrorMessage  string            `json:"error_message"`
}

// NewRESTFetcherWithClient allows injecting a custom HTTP client and endpoint.
func NewRESTFetcherWithClient(
	client HTTPClient,
	baseURL string,
	apiKey string,
	limiter *rate.Limiter,
	pageDelay time.Duration,
	metrics *metrics.Metrics,
	log *slog.Logger,
) *RESTFetcher {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	if pageDelay <= 0 {
		pageDelay = DefaultPageDelay
	}
	return &RESTFetcher{
		client:    client,
		baseURL:   baseURL,
		apiKey:    apiKey,
		log:       log,
		limiter:   limiter,
		metrics:   metrics,
		pageDelay: pageDelay,
		wait:      sleepContext,
	}
}

// FetchAll implements Fetcher. Continuation requests carry only pagetoken and key,
// which is what the endpoint expects.
func (rf *RESTFetcher) FetchAll(ctx context.Context, query models.Query) iter.Seq2[models.RawPlace, error] {
	return func(yield func(models.RawPlace, error) bool) {
		params := url.Values{}
		params.Set("keyword", query.Keyword)
		params.Set("location", query.Location.String())
		params.Set("radius", strconv.FormatUint(uint64(query.Radius), 10))
		params.Set("language", query.Language)
		params.Set("key", rf.apiKey)

		for page := 1; ; page++ {
			resp, err := rf.fetchPage(ctx, params)
			if err != nil {
				rf.metrics.SearchRequests.WithLabelValues(statusLabel(err)).Inc()
				yield(models.RawPlace{}, fmt.Errorf("page %d: %w", page, err))
				return
			}
			rf.metrics.SearchRequests.WithLabelValues(resp.Status).Inc()

			switch resp.Status {
			case StatusZeroResults:
				return
			case StatusOK:
			default:
				yield(models.RawPlace{}, fmt.Errorf("page %d: %w", page,
					&StatusError{Status: resp.Status, Message: resp.ErrorMessage}))
				return
			}

			for _, raw := range resp.Results {
				if !yield(parseResult(raw), nil) {
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}

			if err = rf.wait(ctx, rf.pageDelay); err != nil {
				yield(models.RawPlace{}, err)
				return
			}
			params = url.Values{}
			params.Set("pagetoken", resp.NextPageToken)
			params.Set("key", rf.apiKey)
		}
	}
}

// fetchPage performs a single search request.
func (rf *RESTFetcher) fetchPage(ctx context.Context, params url.Values) (*searchResponse, error) {
	if err := rf.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit exceeded: %w", ErrSearchFailed, err)
	}

	reqURL, err := url.Parse(rf.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	rf.log.DebugContext(ctx, "Places search request",
		"keyword", params.Get("keyword"), "paginated", params.Has("pagetoken"))

	startTime := time.Now()
	resp, err := rf.client.Do(req)
	rf.metrics.RequestSeconds.WithLabelValues(string(ProviderTypeREST)).Observe(time.Since(startTime).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrSearchFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		rf.log.ErrorContext(ctx, "Places API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: places API returned HTTP %d", ErrSearchFailed, resp.StatusCode)
	}

	var result searchResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode places response: %w", ErrSearchFailed, err)
	}

	return &result, nil
}
