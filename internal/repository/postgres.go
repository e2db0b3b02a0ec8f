package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/forager/internal/models"
)

// ErrEmptyBatch is returned when UpsertPlaces is called without rows.
var ErrEmptyBatch = errors.New("no places to upsert")

// UpsertPlaces inserts the given places or refreshes name and coordinates of existing ones
// in a single statement. Tags of existing rows are left untouched, so curated rows keep
// their tags when the harvester sees them again.
//
// Returns the number of rows the server reported as affected.
func (r *Repository) UpsertPlaces(ctx context.Context, places []models.Place) (int64, error) {
	if len(places) == 0 {
		return 0, ErrEmptyBatch
	}

	ids := make([]string, len(places))
	names := make([]string, len(places))
	lats := make([]float64, len(places))
	lngs := make([]float64, len(places))
	tags := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.ID
		names[i] = p.Name
		lats[i] = p.Latitude
		lngs[i] = p.Longitude
		tags[i] = p.Tags
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, lat, lng, tags)
		SELECT * FROM unnest($1::text[], $2::text[], $3::float8[], $4::float8[], $5::text[])
		ON CONFLICT (id) DO UPDATE
		SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng;
	`, r.table)

	tag, err := r.db.Exec(ctx, query, ids, names, lats, lngs, tags)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert places: %w", err)
	}

	r.log.DebugContext(ctx, "Upserted places batch", "table", r.table, "rows", tag.RowsAffected())

	return tag.RowsAffected(), nil
}

// CountPlaces returns the number of rows currently stored in the places table.
func (r *Repository) CountPlaces(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT count(*) FROM %s;`, r.table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count places: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		if errScan := rows.Scan(&count); errScan != nil {
			return 0, fmt.Errorf("failed to scan places count: %w", errScan)
		}
	}

	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read row: %w", err)
	}

	return count, nil
}
