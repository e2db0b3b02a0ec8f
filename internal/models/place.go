package models

// TagAutoDiscovered marks rows created by the harvester that were not enriched or curated yet.
const TagAutoDiscovered = "auto"

// RawPlace is a single search result as returned by the places provider.
// Location is nil when the upstream record had missing or non-numeric coordinates.
type RawPlace struct {
	ID       string
	Name     string
	Location *Coordinates
}

// Place is the row persisted into the places table.
type Place struct {
	ID        string  `json:"id"`   // ID is the provider place identifier and the primary key.
	Name      string  `json:"name"` // Name may be empty.
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Tags      string  `json:"tags"`
}

// Target is a search center.
type Target struct {
	City      string  `mapstructure:"city"`
	Latitude  float64 `mapstructure:"lat"`
	Longitude float64 `mapstructure:"lng"`
}

// Location returns the target center as coordinates.
func (t Target) Location() Coordinates {
	return Coordinates{Latitude: t.Latitude, Longitude: t.Longitude}
}

// Query describes one nearby search.
type Query struct {
	Keyword  string
	Location Coordinates
	Radius   uint
	Language string
}
