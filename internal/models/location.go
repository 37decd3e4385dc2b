package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FlexFloat is a float64 that unmarshals from either a JSON number or a
// numeric string. Geocoding providers are inconsistent about which one
// they return for latitude/longitude.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = 0
		return nil
	}

	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return &ValidationError{
				Field:   "coordinate",
				Value:   s,
				Message: "coordinate is not a valid number",
			}
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// Float64 returns the plain float value
func (f FlexFloat) Float64() float64 {
	return float64(f)
}

// LocationSuggestion represents a candidate location returned by forward
// or reverse geocoding. All fields are optional; providers omit whatever
// they cannot determine.
type LocationSuggestion struct {
	Name      string    `json:"name,omitempty"`
	Region    string    `json:"region,omitempty"`
	Country   string    `json:"country,omitempty"`
	Latitude  FlexFloat `json:"latitude"`
	Longitude FlexFloat `json:"longitude"`
}

// Coordinates returns the suggestion's position as plain coordinates
func (s LocationSuggestion) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  s.Latitude.Float64(),
		Longitude: s.Longitude.Float64(),
	}
}

// FormatAddress joins the present name, region, and country components
// with ", " separators. Absent components are skipped; if all are absent
// the result is an empty string.
func (s LocationSuggestion) FormatAddress() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{s.Name, s.Region, s.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
