package repository

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/jackc/pgx/v5"
)

// DefaultTable is the destination table for harvested places.
const DefaultTable = "places"

type Repository struct {
	db    Database
	log   *slog.Logger
	table string
}

type Interface interface {
	UpsertPlaces(ctx context.Context, places []models.Place) (int64, error)
	CountPlaces(ctx context.Context) (int64, error)
}

// NewRepository creates a new instance of Repository with the provided Database.
// An empty table name falls back to DefaultTable.
func NewRepository(db Database, log *slog.Logger, table string) *Repository {
	if table == "" {
		table = DefaultTable
	}
	return &Repository{db: db, log: log, table: pgx.Identifier{table}.Sanitize()}
}
