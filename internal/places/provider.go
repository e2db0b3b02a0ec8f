package places

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/UnknownOlympus/forager/internal/models"
)

// Response statuses of the places search API that are not errors.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// DefaultPageDelay is how long a continuation token needs before the API accepts it.
const DefaultPageDelay = 2 * time.Second

// Fetcher walks a paginated nearby search and yields every result of every page.
//
// The returned sequence is lazy and not restartable: ranging over it again issues
// the requests again from the first page. When the API reports a failure, the
// sequence yields a single non-nil error and stops. A ZERO_RESULTS response is an
// empty sequence, not an error.
type Fetcher interface {
	FetchAll(ctx context.Context, query models.Query) iter.Seq2[models.RawPlace, error]
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// ErrSearchFailed wraps transport and decoding failures of a search request.
var ErrSearchFailed = errors.New("places search request failed")

// StatusError is returned when the API answers with a status other than OK or ZERO_RESULTS.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "places API returned status " + e.Status
	}
	return fmt.Sprintf("places API returned status %s: %s", e.Status, e.Message)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for next page token: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// statusLabel returns the API status carried by err, or "error" for transport failures.
func statusLabel(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return "error"
}
