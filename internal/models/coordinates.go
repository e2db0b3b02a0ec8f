package models

import (
	"fmt"
	"math"
)

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 // Longitude of the geographical point.
	Latitude  float64 // Latitude of the geographical point.
}

// Valid reports whether both components are finite numbers.
func (c Coordinates) Valid() bool {
	return !math.IsNaN(c.Latitude) && !math.IsInf(c.Latitude, 0) &&
		!math.IsNaN(c.Longitude) && !math.IsInf(c.Longitude, 0)
}

// String formats the point the way the search API expects it: "lat,lng".
func (c Coordinates) String() string {
	return fmt.Sprintf("%g,%g", c.Latitude, c.Longitude)
}
