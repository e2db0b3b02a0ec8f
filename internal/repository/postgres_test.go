package repository_test

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/UnknownOlympus/forager/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upsertQuery = regexp.QuoteMeta(`INSERT INTO "places" (id, name, lat, lng, tags)`)

func samplePlaces() []models.Place {
	return []models.Place{
		{ID: "P1", Name: "Vegan Cafe", Latitude: 33.59, Longitude: 130.40, Tags: models.TagAutoDiscovered},
		{ID: "P2", Name: "", Latitude: 34.38, Longitude: 132.45, Tags: models.TagAutoDiscovered},
	}
}

func TestUpsertPlaces(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	places := samplePlaces()
	ids := []string{"P1", "P2"}
	names := []string{"Vegan Cafe", ""}
	lats := []float64{33.59, 34.38}
	lngs := []float64{130.40, 132.45}
	tags := []string{"auto", "auto"}

	t.Run("error - empty batch", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger, "")

		affected, err := repo.UpsertPlaces(ctx, nil)

		require.ErrorIs(t, err, repository.ErrEmptyBatch)
		assert.Zero(t, affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - exec upsert", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger, "")

		mock.ExpectExec(upsertQuery).
			WithArgs(ids, names, lats, lngs, tags).
			WillReturnError(assert.AnError)

		affected, err := repo.UpsertPlaces(ctx, places)

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to upsert places")
		require.ErrorIs(t, err, assert.AnError)
		assert.Zero(t, affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - upsert batch", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger, "")

		mock.ExpectExec(upsertQuery).
			WithArgs(ids, names, lats, lngs, tags).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))

		affected, err := repo.UpsertPlaces(ctx, places)

		require.NoError(t, err)
		assert.Equal(t, int64(2), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - custom table is quoted", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger, "restaurants")

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "restaurants" (id, name, lat, lng, tags)`)).
			WithArgs(ids, names, lats, lngs, tags).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))

		_, err = repo.UpsertPlaces(ctx, places)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountPlaces(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	countQuery := regexp.QuoteMeta(`SELECT count(*) FROM "places";`)

	t.Run("error - query count", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger, "")

		mock.ExpectQuery(countQuery).WillReturnError(assert.AnError)

		count, err := repo.CountPlaces(ctx)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to count places")
		assert.Zero(t, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - scan count", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger, "")

		mock.ExpectQuery(countQuery).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow("not a number"))

		_, err = repo.CountPlaces(ctx)

		require.ErrorContains(t, err, "failed to scan places count")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - count rows", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger, "")

		mock.ExpectQuery(countQuery).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

		count, err := repo.CountPlaces(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(42), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
