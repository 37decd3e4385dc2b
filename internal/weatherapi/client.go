package weatherapi

import (
	"context"
	"strconv"

	"skycast/internal/models"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
)

const (
	// ProviderName labels this integration in logs and metrics
	ProviderName = "openweathermap"

	weatherEndpoint  = "/weather"
	forecastEndpoint = "/forecast"

	// Forecast timeline comes in fixed 3-hour steps, so 12 points cover
	// 36 hours and every 8th point lands on a 24-hour boundary.
	maxHourlyPoints = 12
	maxDailyPoints  = 8
	dailyStride     = 8
)

// Config holds weather provider settings
type Config struct {
	BaseURL string
	APIKey  string
}

// Client wraps current-conditions and forecast retrieval against the
// weather provider and reshapes the forecast timeline into the hourly and
// daily projections the session exposes.
type Client struct {
	cfg    Config
	http   *httpx.Client
	logger *logging.StructuredLogger
}

// NewClient creates a new weather provider client
func NewClient(cfg Config, httpClient *httpx.Client, logger *logging.StructuredLogger) *Client {
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
	}
}

// currentResponse is the provider's current weather payload
type currentResponse struct {
	Weather    []conditionData `json:"weather"`
	Main       mainData        `json:"main"`
	Visibility int             `json:"visibility"`
	Wind       windData        `json:"wind"`
	Dt         int64           `json:"dt"`
	Name       string          `json:"name"`
}

type mainData struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

type windData struct {
	Speed float64 `json:"speed"`
}

type conditionData struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// forecastResponse is the provider's forecast payload: a flat ordered
// list of 3-hour forecast points.
type forecastResponse struct {
	List []forecastEntry `json:"list"`
}

type forecastEntry struct {
	Dt      int64           `json:"dt"`
	Main    mainData        `json:"main"`
	Weather []conditionData `json:"weather"`
}

// Current fetches the present conditions for the given coordinates
func (c *Client) Current(ctx context.Context, coords models.Coordinates) (models.CurrentConditions, error) {
	var resp currentResponse
	err := c.http.GetJSON(ctx, ProviderName, "current", c.cfg.BaseURL+weatherEndpoint, c.query(coords), &resp)
	if err != nil {
		return models.CurrentConditions{}, err
	}

	current := models.CurrentConditions{
		Temperature: resp.Main.Temp,
		FeelsLike:   resp.Main.FeelsLike,
		Humidity:    resp.Main.Humidity,
		Pressure:    resp.Main.Pressure,
		Visibility:  resp.Visibility,
		WindSpeed:   resp.Wind.Speed,
		ObservedAt:  resp.Dt,
	}
	if len(resp.Weather) > 0 {
		current.Condition = models.Condition(resp.Weather[0])
	}

	c.logger.Debug(ctx, "[WEATHER_CURRENT] Current conditions fetched", logging.Fields{
		"latitude":    coords.Latitude,
		"longitude":   coords.Longitude,
		"temperature": current.Temperature,
		"condition":   current.Condition.Main,
	})

	return current, nil
}

// Forecast fetches the forecast timeline for the given coordinates and
// projects it into hourly and daily views.
func (c *Client) Forecast(ctx context.Context, coords models.Coordinates) ([]models.HourlyPoint, []models.DailyPoint, error) {
	var resp forecastResponse
	err := c.http.GetJSON(ctx, ProviderName, "forecast", c.cfg.BaseURL+forecastEndpoint, c.query(coords), &resp)
	if err != nil {
		return nil, nil, err
	}

	hourly := projectHourly(resp.List)
	daily := projectDaily(resp.List)

	c.logger.Debug(ctx, "[WEATHER_FORECAST] Forecast timeline projected", logging.Fields{
		"latitude":        coords.Latitude,
		"longitude":       coords.Longitude,
		"timeline_points": len(resp.List),
		"hourly_points":   len(hourly),
		"daily_points":    len(daily),
	})

	return hourly, daily, nil
}

// Snapshot fetches current conditions and the forecast projections in one
// call. The two requests are independent; the first failure aborts.
func (c *Client) Snapshot(ctx context.Context, coords models.Coordinates) (*models.WeatherSnapshot, error) {
	current, err := c.Current(ctx, coords)
	if err != nil {
		return nil, err
	}

	hourly, daily, err := c.Forecast(ctx, coords)
	if err != nil {
		return nil, err
	}

	return &models.WeatherSnapshot{
		Current: current,
		Hourly:  hourly,
		Daily:   daily,
	}, nil
}

// query builds the provider query parameters. Units are always metric.
func (c *Client) query(coords models.Coordinates) map[string]string {
	return map[string]string{
		"lat":   strconv.FormatFloat(coords.Latitude, 'f', -1, 64),
		"lon":   strconv.FormatFloat(coords.Longitude, 'f', -1, 64),
		"appid": c.cfg.APIKey,
		"units": "metric",
	}
}

// projectHourly takes the first 12 timeline points in original order,
// i.e. the next 36 hours at 3-hour resolution.
func projectHourly(list []forecastEntry) []models.HourlyPoint {
	count := len(list)
	if count > maxHourlyPoints {
		count = maxHourlyPoints
	}

	hourly := make([]models.HourlyPoint, 0, count)
	for _, entry := range list[:count] {
		hourly = append(hourly, models.HourlyPoint{
			Timestamp:   entry.Dt,
			Temperature: entry.Main.Temp,
			Conditions:  toConditions(entry.Weather),
		})
	}
	return hourly
}

// projectDaily selects every 8th timeline point starting at index 0 and
// caps the result at 8 points. Shorter timelines yield fewer points with
// no padding.
func projectDaily(list []forecastEntry) []models.DailyPoint {
	daily := make([]models.DailyPoint, 0, maxDailyPoints)
	for i := 0; i < len(list) && len(daily) < maxDailyPoints; i += dailyStride {
		entry := list[i]
		daily = append(daily, models.DailyPoint{
			Timestamp:  entry.Dt,
			TempMax:    entry.Main.TempMax,
			TempMin:    entry.Main.TempMin,
			Conditions: toConditions(entry.Weather),
		})
	}
	return daily
}

func toConditions(data []conditionData) []models.Condition {
	conditions := make([]models.Condition, 0, len(data))
	for _, d := range data {
		conditions = append(conditions, models.Condition(d))
	}
	return conditions
}
