package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/forager/internal/events"
	"github.com/UnknownOlympus/forager/internal/metrics"
	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/UnknownOlympus/forager/internal/places"
	"github.com/UnknownOlympus/forager/internal/repository"
	"github.com/UnknownOlympus/forager/internal/storage"
)

// Settings holds what to search and how to write it.
type Settings struct {
	Targets   []models.Target // Search centers
	Keywords  []string        // Keywords searched around every target
	Radius    uint            // Search radius in meters
	Language  string          // Preferred language of the results
	BatchSize int             // Rows per upsert
	Interval  time.Duration   // Pause between runs in periodic mode
}

// HarvestService searches every keyword around every target, loads the results into
// the places table and announces what was written.
type HarvestService struct {
	log       *slog.Logger          // Logger for logging service activities
	fetcher   places.Fetcher        // Fetcher for the places search API
	repo      repository.Interface  // Interface for data repository access
	publisher events.Publisher      // Publisher for discovery events
	snapshots storage.SnapshotStore // Archive of run summaries
	metrics   *metrics.Metrics      // Metrics for tracking service performance
	settings  Settings
}

// NewHarvestService creates a new instance of HarvestService.
func NewHarvestService(
	log *slog.Logger,
	fetcher places.Fetcher,
	repo repository.Interface,
	publisher events.Publisher,
	snapshots storage.SnapshotStore,
	metrics *metrics.Metrics,
	settings Settings,
) *HarvestService {
	return &HarvestService{
		log:       log,
		fetcher:   fetcher,
		repo:      repo,
		publisher: publisher,
		snapshots: snapshots,
		metrics:   metrics,
		settings:  settings,
	}
}

// Run harvests once right away and then on every interval tick until ctx is canceled.
func (hs *HarvestService) Run(ctx context.Context) {
	ticker := time.NewTicker(hs.settings.Interval)
	defer ticker.Stop()

	hs.log.InfoContext(ctx, "Harvest service started...", "interval", hs.settings.Interval)

	for {
		if _, err := hs.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				hs.log.InfoContext(ctx, "Harvesting run interrupted by shutdown")
			} else {
				hs.log.ErrorContext(ctx, "Harvesting run failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			hs.log.InfoContext(ctx, "Harvest service stopped.")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs one full harvesting run. Search failures of a single keyword and
// target and rejected batches are logged and reflected in the summary, not returned;
// an error is returned only when ctx ends before the rows were written.
func (hs *HarvestService) RunOnce(ctx context.Context) (models.RunSummary, error) {
	summary := models.RunSummary{StartedAt: time.Now().UTC()}

	loader := NewLoader(hs.log, hs.repo, hs.metrics, hs.settings.BatchSize)
	stats, err := loader.Load(ctx, hs.records(ctx, &summary))
	summary.Stats = stats
	if err != nil {
		return summary, fmt.Errorf("harvesting run aborted: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return summary, fmt.Errorf("harvesting run aborted: %w", err)
	}

	hs.log.InfoContext(ctx, "Search finished",
		"rows", stats.Collected, "duplicates", stats.Duplicates, "invalid", stats.Invalid)

	if stats.Collected == 0 {
		hs.log.InfoContext(ctx, "No places found. Check API key, quota or keywords.")
		return summary, nil
	}

	summary.Places = loader.Persisted()
	hs.log.InfoContext(ctx, "Upsert finished",
		"attempted", stats.Attempted, "persisted", stats.Persisted, "failed_batches", stats.FailedBatches)

	if err = hs.publisher.PublishDiscovered(ctx, summary.Places); err != nil {
		hs.log.WarnContext(ctx, "Failed to publish discovery events", "error", err)
	}

	if total, errCount := hs.repo.CountPlaces(ctx); errCount != nil {
		hs.log.WarnContext(ctx, "Failed to count stored places", "error", errCount)
	} else {
		hs.log.InfoContext(ctx, "Places table updated", "total", total)
	}

	summary.FinishedAt = time.Now().UTC()
	if _, err = hs.snapshots.SaveRun(ctx, summary); err != nil {
		hs.log.WarnContext(ctx, "Failed to store run snapshot", "error", err)
	}

	hs.metrics.LastRun.SetToCurrentTime()

	return summary, nil
}

// records chains the searches of every (target, keyword) pair into one sequence.
// A failing search ends only its own pair; the error lands in the pair summary.
func (hs *HarvestService) records(ctx context.Context, summary *models.RunSummary) iter.Seq[models.RawPlace] {
	return func(yield func(models.RawPlace) bool) {
		for _, target := range hs.settings.Targets {
			for _, keyword := range hs.settings.Keywords {
				if ctx.Err() != nil {
					return
				}

				pair := models.PairSummary{City: target.City, Keyword: keyword}
				hs.log.InfoContext(ctx, "Searching places", "city", target.City, "keyword", keyword)

				query := models.Query{
					Keyword:  keyword,
					Location: target.Location(),
					Radius:   hs.settings.Radius,
					Language: hs.settings.Language,
				}

				stopped := false
				for place, err := range hs.fetcher.FetchAll(ctx, query) {
					if err != nil {
						hs.log.WarnContext(ctx, "Search stopped early",
							"city", target.City, "keyword", keyword, "records", pair.Records, "error", err)
						pair.Error = err.Error()
						break
					}

					pair.Records++
					hs.log.DebugContext(ctx, "Got place", "city", target.City, "name", place.Name)
					if !yield(place) {
						stopped = true
						break
					}
				}

				summary.Pairs = append(summary.Pairs, pair)
				if stopped {
					return
				}
			}
		}
	}
}
