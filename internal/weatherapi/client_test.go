package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skycast/internal/models"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

var testMetrics = metrics.NewCollector("weatherapi_test")

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("weatherapi-test", "0.0.1", logging.FatalLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(baseURL string) *Client {
	logger := newTestLogger()
	httpClient := httpx.NewClient(&httpx.Config{Timeout: 2 * time.Second}, logger, testMetrics)
	return NewClient(Config{BaseURL: baseURL, APIKey: "test-key"}, httpClient, logger)
}

// makeTimeline builds n forecast points at 3-hour spacing with
// recognizable per-index values.
func makeTimeline(n int) []forecastEntry {
	list := make([]forecastEntry, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, forecastEntry{
			Dt: 1700000000 + int64(i)*10800,
			Main: mainData{
				Temp:    10 + float64(i),
				TempMin: 5 + float64(i),
				TempMax: 15 + float64(i),
			},
			Weather: []conditionData{{Main: "Clouds", Description: fmt.Sprintf("point %d", i), Icon: "03d"}},
		})
	}
	return list
}

func TestProjectHourly(t *testing.T) {
	tests := []struct {
		name           string
		timelineLength int
		expectedLength int
	}{
		{"empty timeline", 0, 0},
		{"shorter than cap", 3, 3},
		{"exactly at cap", 12, 12},
		{"longer than cap", 40, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeline := makeTimeline(tt.timelineLength)
			hourly := projectHourly(timeline)

			if len(hourly) != tt.expectedLength {
				t.Fatalf("hourly length = %d, want %d", len(hourly), tt.expectedLength)
			}

			for i, point := range hourly {
				if point.Timestamp != timeline[i].Dt {
					t.Errorf("hourly[%d].Timestamp = %d, want %d", i, point.Timestamp, timeline[i].Dt)
				}
				if point.Temperature != timeline[i].Main.Temp {
					t.Errorf("hourly[%d].Temperature = %v, want %v", i, point.Temperature, timeline[i].Main.Temp)
				}
				if len(point.Conditions) != 1 || point.Conditions[0].Description != timeline[i].Weather[0].Description {
					t.Errorf("hourly[%d].Conditions = %v, want source conditions", i, point.Conditions)
				}
			}
		})
	}
}

func TestProjectDaily(t *testing.T) {
	tests := []struct {
		name           string
		timelineLength int
		expectedLength int
	}{
		{"empty timeline", 0, 0},
		{"single point", 1, 1},
		{"one full day", 8, 1},
		{"one day plus one point", 9, 2},
		{"standard five day timeline", 40, 5},
		{"exactly eight days", 64, 8},
		{"more than eight days capped", 70, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeline := makeTimeline(tt.timelineLength)
			daily := projectDaily(timeline)

			if len(daily) != tt.expectedLength {
				t.Fatalf("daily length = %d, want %d", len(daily), tt.expectedLength)
			}

			for i, point := range daily {
				source := timeline[i*dailyStride]
				if point.Timestamp != source.Dt {
					t.Errorf("daily[%d].Timestamp = %d, want %d", i, point.Timestamp, source.Dt)
				}
				if point.TempMax != source.Main.TempMax {
					t.Errorf("daily[%d].TempMax = %v, want %v", i, point.TempMax, source.Main.TempMax)
				}
				if point.TempMin != source.Main.TempMin {
					t.Errorf("daily[%d].TempMin = %v, want %v", i, point.TempMin, source.Main.TempMin)
				}
			}
		})
	}
}

func TestProjectDailyPicksEveryEighthPoint(t *testing.T) {
	timeline := makeTimeline(40)
	daily := projectDaily(timeline)

	expectedIndices := []int{0, 8, 16, 24, 32}
	if len(daily) != len(expectedIndices) {
		t.Fatalf("daily length = %d, want %d", len(daily), len(expectedIndices))
	}
	for i, idx := range expectedIndices {
		if daily[i].Timestamp != timeline[idx].Dt {
			t.Errorf("daily[%d] should come from timeline[%d]", i, idx)
		}
	}
}

const currentFixture = `{
	"weather": [{"main": "Clouds", "description": "scattered clouds", "icon": "03d"}],
	"main": {"temp": 21.5, "feels_like": 20.9, "temp_min": 19.0, "temp_max": 23.0, "pressure": 1014, "humidity": 64},
	"visibility": 10000,
	"wind": {"speed": 3.6},
	"dt": 1700000000,
	"name": "Lisbon"
}`

func newProviderServer(t *testing.T, timelineLength int, weatherStatus, forecastStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "38.7223" || q.Get("lon") != "-9.1393" {
			t.Errorf("unexpected coordinates in query: %s", r.URL.RawQuery)
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("expected appid=test-key, got %q", q.Get("appid"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("expected units=metric, got %q", q.Get("units"))
		}

		w.Header().Set("Content-Type", "application/json")
		if weatherStatus != http.StatusOK {
			w.WriteHeader(weatherStatus)
			w.Write([]byte(`{"cod":500,"message":"internal error"}`))
			return
		}
		w.Write([]byte(currentFixture))
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if forecastStatus != http.StatusOK {
			w.WriteHeader(forecastStatus)
			w.Write([]byte(`{"cod":404,"message":"not found"}`))
			return
		}
		json.NewEncoder(w).Encode(forecastResponse{List: makeTimeline(timelineLength)})
	})

	return httptest.NewServer(mux)
}

var testCoords = models.Coordinates{Latitude: 38.7223, Longitude: -9.1393}

func TestSnapshotFetchesAndProjects(t *testing.T) {
	server := newProviderServer(t, 40, http.StatusOK, http.StatusOK)
	defer server.Close()

	client := newTestClient(server.URL)
	snapshot, err := client.Snapshot(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	current := snapshot.Current
	if current.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5", current.Temperature)
	}
	if current.FeelsLike != 20.9 {
		t.Errorf("FeelsLike = %v, want 20.9", current.FeelsLike)
	}
	if current.Humidity != 64 {
		t.Errorf("Humidity = %v, want 64", current.Humidity)
	}
	if current.Pressure != 1014 {
		t.Errorf("Pressure = %v, want 1014", current.Pressure)
	}
	if current.Visibility != 10000 {
		t.Errorf("Visibility = %v, want 10000", current.Visibility)
	}
	if current.WindSpeed != 3.6 {
		t.Errorf("WindSpeed = %v, want 3.6", current.WindSpeed)
	}
	if current.ObservedAt != 1700000000 {
		t.Errorf("ObservedAt = %v, want 1700000000", current.ObservedAt)
	}
	if current.Condition.Main != "Clouds" || current.Condition.Icon != "03d" {
		t.Errorf("Condition = %+v, want Clouds/03d", current.Condition)
	}

	if len(snapshot.Hourly) != 12 {
		t.Errorf("hourly length = %d, want 12", len(snapshot.Hourly))
	}
	if len(snapshot.Daily) != 5 {
		t.Errorf("daily length = %d, want 5", len(snapshot.Daily))
	}
}

func TestSnapshotCurrentFailure(t *testing.T) {
	server := newProviderServer(t, 40, http.StatusInternalServerError, http.StatusOK)
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Snapshot(context.Background(), testCoords)
	if err == nil {
		t.Fatal("expected error when current conditions request fails")
	}

	var provErr *httpx.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *httpx.ProviderError, got %T", err)
	}
	if provErr.Provider != ProviderName || provErr.Operation != "current" {
		t.Errorf("unexpected error labels: %+v", provErr)
	}
}

func TestSnapshotForecastFailure(t *testing.T) {
	server := newProviderServer(t, 40, http.StatusOK, http.StatusNotFound)
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Snapshot(context.Background(), testCoords)
	if err == nil {
		t.Fatal("expected error when forecast request fails")
	}

	var provErr *httpx.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *httpx.ProviderError, got %T", err)
	}
	if provErr.Operation != "forecast" {
		t.Errorf("expected forecast operation label, got %q", provErr.Operation)
	}
}

func TestCurrentToleratesMissingConditionList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"weather":[],"main":{"temp":5.0},"dt":1700000000}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	current, err := client.Current(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	if current.Condition != (models.Condition{}) {
		t.Errorf("Condition = %+v, want zero value", current.Condition)
	}
	if current.Temperature != 5.0 {
		t.Errorf("Temperature = %v, want 5.0", current.Temperature)
	}
}
