package places

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/UnknownOlympus/forager/internal/models"
)

// parseResult converts one untyped search result into a RawPlace. It never fails:
// fields of the wrong type come back empty and a location with a missing or
// non-numeric component comes back nil, leaving the decision to drop to the loader.
func parseResult(raw json.RawMessage) models.RawPlace {
	fields := objectFields(raw)
	if fields == nil {
		return models.RawPlace{}
	}

	place := models.RawPlace{
		ID:   stringField(fields["place_id"]),
		Name: stringField(fields["name"]),
	}

	location := objectFields(objectFields(fields["geometry"])["location"])
	lat, okLat := numberField(location["lat"])
	lng, okLng := numberField(location["lng"])
	if okLat && okLng {
		place.Location = &models.Coordinates{Latitude: lat, Longitude: lng}
	}

	return place
}

func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

func stringField(raw json.RawMessage) string {
	var value string
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return ""
	}
	return value
}

// numberField accepts JSON numbers and numeric strings.
func numberField(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err != nil {
		var text string
		if json.Unmarshal(raw, &text) != nil {
			return 0, false
		}
		if number, err = strconv.ParseFloat(text, 64); err != nil {
			return 0, false
		}
	}

	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	return number, true
}
