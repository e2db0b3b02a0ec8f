package models

import "time"

// LoadStats counts what the loader did with the records of one run.
type LoadStats struct {
	Collected     int `json:"collected"`      // rows buffered after deduplication and validation
	Duplicates    int `json:"duplicates"`     // records dropped because their id was already seen
	Invalid       int `json:"invalid"`        // records dropped for a missing id or unusable coordinates
	Attempted     int `json:"attempted"`      // rows included in an upsert attempt
	Persisted     int `json:"persisted"`      // rows in batches the store confirmed
	FailedBatches int `json:"failed_batches"` // batches the store rejected
}

// PairSummary describes the search of one keyword around one target.
type PairSummary struct {
	City    string `json:"city"`
	Keyword string `json:"keyword"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// RunSummary is the outcome of one harvesting run.
type RunSummary struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Pairs      []PairSummary `json:"pairs"`
	Stats      LoadStats     `json:"stats"`
	Places     []Place       `json:"places,omitempty"`
}
