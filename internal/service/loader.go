package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/UnknownOlympus/forager/internal/metrics"
	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/UnknownOlympus/forager/internal/repository"
)

// DefaultBatchSize is the number of rows sent in one upsert.
const DefaultBatchSize = 50

// ErrLoaderFlushed is returned when a loader is used after its rows were written.
var ErrLoaderFlushed = errors.New("loader already flushed")

// Loader deduplicates search records by place id, turns them into rows and
// writes them in batches. A Loader serves exactly one run: it buffers every row
// first and writes once, so a new Loader is needed for the next run.
type Loader struct {
	log       *slog.Logger
	repo      repository.Interface
	metrics   *metrics.Metrics
	batchSize int

	seen      map[string]struct{}
	rows      []models.Place
	persisted []models.Place
	stats     models.LoadStats
	flushed   bool
}

// NewLoader creates a loader. A non-positive batchSize falls back to DefaultBatchSize.
func NewLoader(log *slog.Logger, repo repository.Interface, metrics *metrics.Metrics, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		log:       log,
		repo:      repo,
		metrics:   metrics,
		batchSize: batchSize,
		seen:      make(map[string]struct{}),
	}
}

// Load buffers every record of the sequence and then writes the rows.
// It returns the statistics of the run and an error only when ctx ended before all batches were tried.
func (l *Loader) Load(ctx context.Context, records iter.Seq[models.RawPlace]) (models.LoadStats, error) {
	for record := range records {
		if _, err := l.Add(record); err != nil {
			return l.stats, err
		}
	}

	return l.Flush(ctx)
}

// Add buffers the record as a row. It reports false when the record was dropped,
// either as a duplicate of an earlier id or for a missing id or unusable coordinates.
// The first occurrence of an id wins, even if that occurrence is then dropped as invalid.
func (l *Loader) Add(record models.RawPlace) (bool, error) {
	if l.flushed {
		return false, ErrLoaderFlushed
	}

	if record.ID == "" {
		l.drop("invalid")
		return false, nil
	}
	if _, ok := l.seen[record.ID]; ok {
		l.drop("duplicate")
		return false, nil
	}
	l.seen[record.ID] = struct{}{}

	if record.Location == nil || !record.Location.Valid() {
		l.log.Debug("Dropping place without usable coordinates", "id", record.ID, "name", record.Name)
		l.drop("invalid")
		return false, nil
	}

	l.rows = append(l.rows, models.Place{
		ID:        record.ID,
		Name:      record.Name,
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
		Tags:      models.TagAutoDiscovered,
	})
	l.stats.Collected++
	l.metrics.Records.WithLabelValues("accepted").Inc()

	return true, nil
}

func (l *Loader) drop(outcome string) {
	if outcome == "duplicate" {
		l.stats.Duplicates++
	} else {
		l.stats.Invalid++
	}
	l.metrics.Records.WithLabelValues(outcome).Inc()
}

// Len returns the number of buffered rows.
func (l *Loader) Len() int {
	return len(l.rows)
}

// Persisted returns the rows of the batches the store confirmed.
func (l *Loader) Persisted() []models.Place {
	return l.persisted
}

// Flush writes the buffered rows in batches. A rejected batch is logged and
// counted and the remaining batches are still written. Nothing is written when
// no rows were collected.
func (l *Loader) Flush(ctx context.Context) (models.LoadStats, error) {
	if l.flushed {
		return l.stats, ErrLoaderFlushed
	}
	l.flushed = true

	if len(l.rows) == 0 {
		return l.stats, nil
	}

	batches := (len(l.rows) + l.batchSize - 1) / l.batchSize
	l.log.InfoContext(ctx, "Upserting places", "rows", len(l.rows), "batches", batches)

	idx := 0
	for batch := range slices.Chunk(l.rows, l.batchSize) {
		idx++
		if err := ctx.Err(); err != nil {
			return l.stats, fmt.Errorf("upsert interrupted before batch %d of %d: %w", idx, batches, err)
		}

		l.stats.Attempted += len(batch)
		affected, err := l.repo.UpsertPlaces(ctx, batch)
		if err != nil {
			l.stats.FailedBatches++
			l.metrics.Batches.WithLabelValues("failure").Inc()
			l.log.ErrorContext(ctx, "Failed to upsert batch", "batch", idx, "rows", len(batch), "error", err)
			continue
		}

		l.stats.Persisted += len(batch)
		l.persisted = append(l.persisted, batch...)
		l.metrics.Batches.WithLabelValues("success").Inc()
		l.metrics.RowsPersisted.Add(float64(len(batch)))
		l.log.DebugContext(ctx, "Batch upserted", "batch", idx, "rows", len(batch), "affected", affected)
	}

	l.rows = nil

	return l.stats, nil
}
