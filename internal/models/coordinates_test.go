package models_test

import (
	"math"
	"testing"

	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCoordinatesValid(t *testing.T) {
	tests := []struct {
		name   string
		coords models.Coordinates
		want   bool
	}{
		{"finite", models.Coordinates{Latitude: 33.59, Longitude: 130.40}, true},
		{"zero", models.Coordinates{}, true},
		{"nan latitude", models.Coordinates{Latitude: math.NaN(), Longitude: 1}, false},
		{"infinite longitude", models.Coordinates{Latitude: 1, Longitude: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coords.Valid())
		})
	}
}

func TestCoordinatesString(t *testing.T) {
	coords := models.Coordinates{Latitude: 33.5902, Longitude: 130.4017}

	assert.Equal(t, "33.5902,130.4017", coords.String())
}
