package models

// Condition describes a single weather condition entry as reported by the
// weather provider (e.g. main "Rain", description "light rain").
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CurrentConditions represents the most recent observed weather for the
// active location. Units are metric; ObservedAt is epoch seconds.
type CurrentConditions struct {
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Pressure    int       `json:"pressure"`
	Visibility  int       `json:"visibility"`
	WindSpeed   float64   `json:"wind_speed"`
	Condition   Condition `json:"condition"`
	ObservedAt  int64     `json:"observed_at"`
}

// HourlyPoint is one 3-hour forecast step projected for display
type HourlyPoint struct {
	Timestamp   int64       `json:"timestamp"`
	Temperature float64     `json:"temperature"`
	Conditions  []Condition `json:"conditions"`
}

// DailyPoint is one 24-hour forecast step projected for display
type DailyPoint struct {
	Timestamp  int64       `json:"timestamp"`
	TempMax    float64     `json:"temp_max"`
	TempMin    float64     `json:"temp_min"`
	Conditions []Condition `json:"conditions"`
}

// WeatherSnapshot bundles current conditions with the hourly and daily
// forecast projections for a single location. Hourly holds at most 12
// points, Daily at most 8.
type WeatherSnapshot struct {
	Current CurrentConditions `json:"current"`
	Hourly  []HourlyPoint     `json:"hourly"`
	Daily   []DailyPoint      `json:"daily"`
}

// Clone returns a copy whose slices do not share backing arrays with the
// original. Points are never mutated after construction, so copying the
// top-level slices is sufficient.
func (w WeatherSnapshot) Clone() WeatherSnapshot {
	out := w
	if w.Hourly != nil {
		out.Hourly = append([]HourlyPoint(nil), w.Hourly...)
	}
	if w.Daily != nil {
		out.Daily = append([]DailyPoint(nil), w.Daily...)
	}
	return out
}
