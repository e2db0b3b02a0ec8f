package places

import (
	"context"
	"iter"
	"time"

	"github.com/UnknownOlympus/forager/internal/metrics"
	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

// waitRecorder replaces the page delay so tests do not sleep.
type waitRecorder struct {
	delays []time.Duration
	err    error
}

func (wr *waitRecorder) wait(_ context.Context, d time.Duration) error {
	wr.delays = append(wr.delays, d)
	return wr.err
}

func collect(seq iter.Seq2[models.RawPlace, error]) ([]models.RawPlace, error) {
	var out []models.RawPlace
	for place, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, place)
	}
	return out, nil
}
