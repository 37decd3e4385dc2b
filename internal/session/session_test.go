package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"skycast/internal/geocode"
	"skycast/internal/locate"
	"skycast/internal/models"
	"skycast/internal/weatherapi"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

var testMetrics = metrics.NewCollector("session_test")

// stubSource is a canned position source
type stubSource struct {
	coords models.Coordinates
	err    error
}

func (s *stubSource) Current(ctx context.Context) (models.Coordinates, error) {
	if s.err != nil {
		return models.Coordinates{}, s.err
	}
	return s.coords, nil
}

// forecastList builds a forecast payload of n 3-hour points with
// timestamps 0, 10800, 21600, ...
func forecastList(n int) string {
	var b strings.Builder
	b.WriteString(`{"list":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"dt":`)
		b.WriteString(strconv.FormatInt(int64(i)*10800, 10))
		b.WriteString(`,"main":{"temp":15,"temp_min":10,"temp_max":20},"weather":[{"main":"Clouds","description":"scattered clouds","icon":"03d"}]}`)
	}
	b.WriteString(`]}`)
	return b.String()
}

const currentPayload = `{
	"weather":[{"main":"Clear","description":"clear sky","icon":"01d"}],
	"main":{"temp":22.4,"feels_like":21.9,"pressure":1015,"humidity":40},
	"visibility":10000,
	"wind":{"speed":3.6},
	"dt":1700000000,
	"name":"Vienna"
}`

// testProviders serves both the weather and geocoding endpoints and lets
// individual tests fail classes of requests on demand.
type testProviders struct {
	server *httptest.Server

	weatherDown atomic.Bool
	reverseDown atomic.Bool
	forwardDown atomic.Bool

	forwardHold chan struct{} // when set, /forward?query=slow blocks until closed

	searchCalls atomic.Int32
}

func newTestProviders(t *testing.T, forecastPoints int) *testProviders {
	t.Helper()
	p := &testProviders{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/weather":
			if p.weatherDown.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, `{"message":"provider unavailable"}`)
				return
			}
			io.WriteString(w, currentPayload)
		case "/forecast":
			if p.weatherDown.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, `{"message":"provider unavailable"}`)
				return
			}
			io.WriteString(w, forecastList(forecastPoints))
		case "/reverse":
			if p.reverseDown.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, `{"error":{"message":"provider unavailable"}}`)
				return
			}
			io.WriteString(w, `{"data":[{"name":"Vienna","region":"Vienna","country":"Austria","latitude":48.2082,"longitude":16.3738}]}`)
		case "/forward":
			p.searchCalls.Add(1)
			if p.forwardDown.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, `{"error":{"message":"provider unavailable"}}`)
				return
			}
			query := r.URL.Query().Get("query")
			if query == "slow" && p.forwardHold != nil {
				<-p.forwardHold
				io.WriteString(w, `{"data":[{"name":"Slowtown","latitude":1,"longitude":1}]}`)
				return
			}
			io.WriteString(w, `{"data":[{"name":"`+query+` City","region":"Testshire","country":"Testland","latitude":"10.5","longitude":"-20.25"}]}`)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(p.server.Close)
	return p
}

func newTestSession(t *testing.T, source locate.Source, providers *testProviders) *Session {
	t.Helper()
	logger := logging.NewStructuredLogger("session-test", "0.0.1", logging.FatalLevel)
	logger.SetOutput(io.Discard)
	httpClient := httpx.NewClient(&httpx.Config{Timeout: 2 * time.Second}, logger, testMetrics)

	weather := weatherapi.NewClient(weatherapi.Config{BaseURL: providers.server.URL, APIKey: "wkey"}, httpClient, logger)
	geocoder := geocode.NewClient(geocode.Config{BaseURL: providers.server.URL, APIKey: "pkey"}, httpClient, logger)

	return New(Config{PositionTimeout: time.Second}, source, weather, geocoder, logger, testMetrics)
}

func TestResolvePopulatesWeatherAndAddress(t *testing.T) {
	providers := newTestProviders(t, 40)
	source := &stubSource{coords: models.Coordinates{Latitude: 48.2082, Longitude: 16.3738}}
	s := newTestSession(t, source, providers)

	s.Resolve(context.Background())

	state := s.State()
	if state.Loading {
		t.Error("Loading = true after resolution completed")
	}
	if state.Error != "" {
		t.Errorf("Error = %q, want empty", state.Error)
	}
	if state.Coordinates == nil || state.Coordinates.Latitude != 48.2082 {
		t.Fatalf("Coordinates = %+v", state.Coordinates)
	}
	if state.Weather == nil {
		t.Fatal("Weather = nil, want populated snapshot")
	}
	// 40 timeline points project to 12 hourly and 5 daily entries.
	if len(state.Weather.Hourly) != 12 {
		t.Errorf("hourly length = %d, want 12", len(state.Weather.Hourly))
	}
	if len(state.Weather.Daily) != 5 {
		t.Errorf("daily length = %d, want 5", len(state.Weather.Daily))
	}
	if state.Weather.Current.Temperature != 22.4 {
		t.Errorf("current temperature = %v, want 22.4", state.Weather.Current.Temperature)
	}
	if state.Address != "Vienna, Vienna, Austria" {
		t.Errorf("Address = %q, want %q", state.Address, "Vienna, Vienna, Austria")
	}
}

func TestResolvePositionDenied(t *testing.T) {
	providers := newTestProviders(t, 8)
	source := &stubSource{err: errors.New("permission denied")}
	s := newTestSession(t, source, providers)

	s.Resolve(context.Background())

	state := s.State()
	if state.Error != GeolocationErrorMessage {
		t.Errorf("Error = %q, want %q", state.Error, GeolocationErrorMessage)
	}
	if state.Loading {
		t.Error("Loading = true, want false")
	}
	if state.Weather != nil {
		t.Error("Weather should stay unset when the position is denied")
	}
	if state.Coordinates != nil {
		t.Error("Coordinates should stay unset when the position is denied")
	}
}

func TestResolveUnsupportedSource(t *testing.T) {
	providers := newTestProviders(t, 8)
	source := &stubSource{err: locate.ErrUnsupported}
	s := newTestSession(t, source, providers)

	s.Resolve(context.Background())

	state := s.State()
	if state.Error != GeolocationErrorMessage {
		t.Errorf("Error = %q, want %q", state.Error, GeolocationErrorMessage)
	}
}

func TestResolveRetryClearsPriorError(t *testing.T) {
	providers := newTestProviders(t, 16)
	source := &stubSource{err: errors.New("timeout")}
	s := newTestSession(t, source, providers)

	s.Resolve(context.Background())
	if s.State().Error == "" {
		t.Fatal("expected an error from the failed first attempt")
	}

	// The retry supersedes the prior attempt's error state.
	source.err = nil
	source.coords = models.Coordinates{Latitude: 1, Longitude: 2}
	s.Resolve(context.Background())

	state := s.State()
	if state.Error != "" {
		t.Errorf("Error = %q, want empty after successful retry", state.Error)
	}
	if state.Weather == nil {
		t.Error("Weather = nil after successful retry")
	}
}

func TestWeatherFailurePreservesPriorSnapshot(t *testing.T) {
	providers := newTestProviders(t, 40)
	source := &stubSource{coords: models.Coordinates{Latitude: 5, Longitude: 6}}
	s := newTestSession(t, source, providers)

	s.Resolve(context.Background())
	if s.State().Weather == nil {
		t.Fatal("first resolution should have populated weather")
	}

	providers.weatherDown.Store(true)
	s.Resolve(context.Background())

	state := s.State()
	if state.Weather == nil {
		t.Error("previous snapshot must stay readable after a failed fetch")
	}
	if state.Error != WeatherErrorMessage {
		t.Errorf("Error = %q, want %q", state.Error, WeatherErrorMessage)
	}
	if state.Loading {
		t.Error("Loading = true after the cycle settled")
	}
}

func TestReverseGeocodeFailureIsSilent(t *testing.T) {
	providers := newTestProviders(t, 40)
	providers.reverseDown.Store(true)
	source := &stubSource{coords: models.Coordinates{Latitude: 5, Longitude: 6}}
	s := newTestSession(t, source, providers)

	s.Resolve(context.Background())

	state := s.State()
	if state.Weather == nil {
		t.Error("Weather should be populated despite the address lookup failing")
	}
	if state.Address != "" {
		t.Errorf("Address = %q, want empty", state.Address)
	}
	if state.Error != "" {
		t.Errorf("Error = %q, want empty (reverse geocode failure is silent)", state.Error)
	}
}

func TestSetQueryBelowGateIssuesNoRequest(t *testing.T) {
	providers := newTestProviders(t, 8)
	s := newTestSession(t, &stubSource{}, providers)

	s.SetQuery(context.Background(), "Lo")

	if calls := providers.searchCalls.Load(); calls != 0 {
		t.Errorf("search calls = %d, want 0", calls)
	}
	state := s.State()
	if state.SearchQuery != "Lo" {
		t.Errorf("SearchQuery = %q, want %q", state.SearchQuery, "Lo")
	}
	if len(state.Suggestions) != 0 {
		t.Errorf("suggestions length = %d, want 0", len(state.Suggestions))
	}
}

func TestSetQueryPastGateReplacesSuggestions(t *testing.T) {
	providers := newTestProviders(t, 8)
	s := newTestSession(t, &stubSource{}, providers)

	s.SetQuery(context.Background(), "London")

	if calls := providers.searchCalls.Load(); calls != 1 {
		t.Errorf("search calls = %d, want 1", calls)
	}
	state := s.State()
	if len(state.Suggestions) != 1 {
		t.Fatalf("suggestions length = %d, want 1", len(state.Suggestions))
	}
	if state.Suggestions[0].Name != "London City" {
		t.Errorf("suggestion name = %q", state.Suggestions[0].Name)
	}
	// Quoted coordinate strings from the provider parse to floats.
	if state.Suggestions[0].Latitude.Float64() != 10.5 {
		t.Errorf("suggestion latitude = %v, want 10.5", state.Suggestions[0].Latitude)
	}
}

func TestSetQueryFailureSetsSearchError(t *testing.T) {
	providers := newTestProviders(t, 8)
	providers.forwardDown.Store(true)
	s := newTestSession(t, &stubSource{}, providers)

	s.SetQuery(context.Background(), "London")

	state := s.State()
	if state.Error != SearchErrorMessage {
		t.Errorf("Error = %q, want %q", state.Error, SearchErrorMessage)
	}
	if len(state.Suggestions) != 0 {
		t.Errorf("suggestions length = %d, want 0", len(state.Suggestions))
	}
}

func TestStaleSearchResultIsDropped(t *testing.T) {
	providers := newTestProviders(t, 8)
	providers.forwardHold = make(chan struct{})
	s := newTestSession(t, &stubSource{}, providers)

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		s.SetQuery(context.Background(), "slow")
	}()

	// Wait for the slow search to reach the provider, then supersede it.
	deadline := time.After(2 * time.Second)
	for providers.searchCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("slow search never reached the provider")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.SetQuery(context.Background(), "London")

	// Release the superseded search and let it settle.
	close(providers.forwardHold)
	<-slowDone

	state := s.State()
	if len(state.Suggestions) != 1 || state.Suggestions[0].Name != "London City" {
		t.Errorf("suggestions = %+v, want the newer London result only", state.Suggestions)
	}
	if state.SearchQuery != "London" {
		t.Errorf("SearchQuery = %q, want %q", state.SearchQuery, "London")
	}
}

func TestSelectCommitsSuggestionAndFetchesWeather(t *testing.T) {
	providers := newTestProviders(t, 40)
	s := newTestSession(t, &stubSource{}, providers)

	s.SetQuery(context.Background(), "New York")
	state := s.State()
	if len(state.Suggestions) != 1 {
		t.Fatalf("suggestions length = %d, want 1", len(state.Suggestions))
	}

	s.Select(context.Background(), state.Suggestions[0])

	state = s.State()
	if state.Coordinates == nil || state.Coordinates.Latitude != 10.5 || state.Coordinates.Longitude != -20.25 {
		t.Errorf("Coordinates = %+v, want {10.5 -20.25}", state.Coordinates)
	}
	wantAddress := "New York City, Testshire, Testland"
	if state.Address != wantAddress {
		t.Errorf("Address = %q, want %q", state.Address, wantAddress)
	}
	if state.SearchQuery != wantAddress {
		t.Errorf("SearchQuery = %q, want %q", state.SearchQuery, wantAddress)
	}
	if len(state.Suggestions) != 0 {
		t.Errorf("suggestions length = %d, want 0", len(state.Suggestions))
	}
	if state.Weather == nil {
		t.Fatal("Weather = nil, want snapshot for the committed location")
	}
	if len(state.Weather.Hourly) != 12 || len(state.Weather.Daily) != 5 {
		t.Errorf("projection sizes = %d hourly / %d daily, want 12/5",
			len(state.Weather.Hourly), len(state.Weather.Daily))
	}
}

func TestObserverSeesEveryAppliedEvent(t *testing.T) {
	providers := newTestProviders(t, 8)
	s := newTestSession(t, &stubSource{coords: models.Coordinates{Latitude: 1, Longitude: 1}}, providers)

	var snapshots atomic.Int32
	s.Observe(func(models.SessionState) {
		snapshots.Add(1)
	})

	s.Resolve(context.Background())

	// started, coordinates, weather, address, finished
	if n := snapshots.Load(); n != 5 {
		t.Errorf("observer notifications = %d, want 5", n)
	}
	if s.State().Weather == nil {
		t.Error("Weather = nil after resolution")
	}
}
