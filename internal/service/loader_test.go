package service_test

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"testing"

	"github.com/UnknownOlympus/forager/internal/metrics"
	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/UnknownOlympus/forager/internal/service"
	"github.com/UnknownOlympus/forager/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func raw(id, name string, lat, lng float64) models.RawPlace {
	return models.RawPlace{ID: id, Name: name, Location: &models.Coordinates{Latitude: lat, Longitude: lng}}
}

func row(id, name string, lat, lng float64) models.Place {
	return models.Place{ID: id, Name: name, Latitude: lat, Longitude: lng, Tags: models.TagAutoDiscovered}
}

func newMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

func TestLoader_Load(t *testing.T) {
	logger := slog.Default()

	t.Run("first occurrence wins", func(t *testing.T) {
		ctx := t.Context()
		repo := mocks.NewInterface(t)
		loader := service.NewLoader(logger, repo, newMetrics(), 0)

		records := []models.RawPlace{
			raw("P1", "First", 10, 20),
			raw("P1", "Second", 11, 21),
			raw("P2", "Other", 12, 22),
		}
		repo.On("UpsertPlaces", ctx, []models.Place{row("P1", "First", 10, 20), row("P2", "Other", 12, 22)}).
			Return(int64(2), nil).Once()

		stats, err := loader.Load(ctx, slices.Values(records))

		require.NoError(t, err)
		assert.Equal(t, models.LoadStats{Collected: 2, Duplicates: 1, Attempted: 2, Persisted: 2}, stats)
		assert.Len(t, loader.Persisted(), 2)
	})

	t.Run("records without id or usable coordinates are dropped", func(t *testing.T) {
		ctx := t.Context()
		repo := mocks.NewInterface(t)
		m := newMetrics()
		loader := service.NewLoader(logger, repo, m, 0)

		records := []models.RawPlace{
			{ID: "", Name: "No id", Location: &models.Coordinates{Latitude: 1, Longitude: 1}},
			{ID: "P1", Name: "No location"},
			raw("P2", "NaN", math.NaN(), 1),
			raw("P3", "Inf", 1, math.Inf(1)),
			raw("P4", "Good", 1, 2),
		}
		repo.On("UpsertPlaces", ctx, []models.Place{row("P4", "Good", 1, 2)}).Return(int64(1), nil).Once()

		stats, err := loader.Load(ctx, slices.Values(records))

		require.NoError(t, err)
		assert.Equal(t, 1, stats.Collected)
		assert.Equal(t, 4, stats.Invalid)
		assert.InDelta(t, 4, testutil.ToFloat64(m.Records.WithLabelValues("invalid")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Records.WithLabelValues("accepted")), 0)
	})

	t.Run("invalid first occurrence still claims the id", func(t *testing.T) {
		ctx := t.Context()
		repo := mocks.NewInterface(t)
		loader := service.NewLoader(logger, repo, newMetrics(), 0)

		records := []models.RawPlace{{ID: "P1", Name: "Broken"}, raw("P1", "Fixed", 1, 2)}

		stats, err := loader.Load(ctx, slices.Values(records))

		require.NoError(t, err)
		assert.Equal(t, models.LoadStats{Invalid: 1, Duplicates: 1}, stats)
		repo.AssertNotCalled(t, "UpsertPlaces", mock.Anything, mock.Anything)
	})

	t.Run("nothing collected means no write", func(t *testing.T) {
		ctx := t.Context()
		repo := mocks.NewInterface(t)
		loader := service.NewLoader(logger, repo, newMetrics(), 0)

		stats, err := loader.Load(ctx, slices.Values([]models.RawPlace{}))

		require.NoError(t, err)
		assert.Equal(t, models.LoadStats{}, stats)
		repo.AssertNotCalled(t, "UpsertPlaces", mock.Anything, mock.Anything)
	})

	t.Run("failed batch does not stop the others", func(t *testing.T) {
		ctx := t.Context()
		repo := mocks.NewInterface(t)
		m := newMetrics()
		loader := service.NewLoader(logger, repo, m, service.DefaultBatchSize)

		records := make([]models.RawPlace, 0, 120)
		for i := range 120 {
			records = append(records, raw(fmt.Sprintf("P%03d", i), "place", float64(i), float64(i)))
		}
		batchStartingAt := func(id string, size int) any {
			return mock.MatchedBy(func(batch []models.Place) bool {
				return len(batch) == size && batch[0].ID == id
			})
		}
		repo.On("UpsertPlaces", ctx, batchStartingAt("P000", 50)).Return(int64(50), nil).Once()
		repo.On("UpsertPlaces", ctx, batchStartingAt("P050", 50)).Return(int64(0), assert.AnError).Once()
		repo.On("UpsertPlaces", ctx, batchStartingAt("P100", 20)).Return(int64(20), nil).Once()

		stats, err := loader.Load(ctx, slices.Values(records))

		require.NoError(t, err)
		assert.Equal(t, 120, stats.Collected)
		assert.Equal(t, 120, stats.Attempted)
		assert.Equal(t, 70, stats.Persisted)
		assert.Equal(t, 1, stats.FailedBatches)
		assert.Len(t, loader.Persisted(), 70)
		assert.InDelta(t, 2, testutil.ToFloat64(m.Batches.WithLabelValues("success")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Batches.WithLabelValues("failure")), 0)
		assert.InDelta(t, 70, testutil.ToFloat64(m.RowsPersisted), 0)
	})

	t.Run("canceled context stops before writing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		repo := mocks.NewInterface(t)
		loader := service.NewLoader(logger, repo, newMetrics(), 0)

		stats, err := loader.Load(ctx, slices.Values([]models.RawPlace{raw("P1", "A", 1, 1)}))

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, stats.Collected)
		assert.Zero(t, stats.Attempted)
		repo.AssertNotCalled(t, "UpsertPlaces", mock.Anything, mock.Anything)
	})
}

func TestLoader_UseAfterFlush(t *testing.T) {
	ctx := t.Context()
	repo := mocks.NewInterface(t)
	loader := service.NewLoader(slog.Default(), repo, newMetrics(), 0)

	accepted, err := loader.Add(raw("P1", "A", 1, 1))
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 1, loader.Len())

	repo.On("UpsertPlaces", ctx, []models.Place{row("P1", "A", 1, 1)}).Return(int64(1), nil).Once()
	_, err = loader.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, loader.Len())

	accepted, err = loader.Add(raw("P2", "B", 2, 2))
	require.ErrorIs(t, err, service.ErrLoaderFlushed)
	assert.False(t, accepted)

	_, err = loader.Flush(ctx)
	require.ErrorIs(t, err, service.ErrLoaderFlushed)
}
