package session

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"skycast/internal/geocode"
	"skycast/internal/locate"
	"skycast/internal/models"
	"skycast/internal/weatherapi"
	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

// Operation classes for stale-drop accounting
const (
	opResolve = "resolve"
	opWeather = "weather"
	opReverse = "reverse_geocode"
	opSearch  = "search"
)

// Session owns the one mutable session state of the process and
// orchestrates the components that feed it: position acquisition, the
// weather provider, and the geocoding provider. All state changes go
// through the reducer under a single mutex, so observers always see a
// consistent snapshot.
//
// In-flight provider calls are never cancelled when a newer operation
// supersedes them; instead each operation class carries a generation
// counter and results whose generation no longer matches are dropped
// at fold time.
type Session struct {
	position locate.Source
	weather  *weatherapi.Client
	geocoder *geocode.Client
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector

	positionTimeout time.Duration

	mu        sync.Mutex
	state     models.SessionState
	cycleGen  uint64
	searchGen uint64

	observers []func(models.SessionState)
}

// Config holds session orchestration settings
type Config struct {
	// PositionTimeout bounds the wait for position acquisition. Provider
	// HTTP calls are not bounded here; they rely on the transport timeout.
	PositionTimeout time.Duration
}

// New creates the session in its empty initial state
func New(
	cfg Config,
	position locate.Source,
	weather *weatherapi.Client,
	geocoder *geocode.Client,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *Session {
	timeout := cfg.PositionTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Session{
		position:        position,
		weather:         weather,
		geocoder:        geocoder,
		logger:          logger,
		metrics:         metricsCollector,
		positionTimeout: timeout,
		state:           models.NewSessionState(),
	}
}

// State returns a snapshot of the current session state. The snapshot
// does not alias live state and stays valid while the session moves on.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Observe registers fn to be called with a state snapshot after every
// applied event. Registration is not revocable; observers live as long
// as the session.
func (s *Session) Observe(fn func(models.SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// apply folds one event into the state and notifies observers
func (s *Session) apply(event Event) {
	s.mu.Lock()
	s.state = Reduce(s.state, event)
	snapshot := s.state.Clone()
	observers := s.observers
	s.mu.Unlock()

	s.metrics.RecordSessionEvent(event.Name())
	for _, fn := range observers {
		fn(snapshot)
	}
}

// Resolve runs one full resolution cycle: acquire the device position,
// then populate weather and address for it. Each invocation supersedes
// any prior attempt; results belonging to a superseded cycle are
// dropped. Safe to invoke repeatedly; this is also the retry action the
// presentation layer exposes.
func (s *Session) Resolve(ctx context.Context) {
	gen := s.beginCycle()
	s.apply(ResolveStarted{})

	s.logger.Info(ctx, "[RESOLVE_START] Resolution cycle started", logging.Fields{
		"cycle": gen,
	})

	posCtx, cancel := context.WithTimeout(ctx, s.positionTimeout)
	coords, err := s.position.Current(posCtx)
	cancel()

	if err != nil {
		if s.staleCycle(gen, opResolve) {
			return
		}
		s.logger.Warn(ctx, "[RESOLVE_POSITION_FAILED] Position acquisition failed", logging.Fields{
			"cycle": gen,
			"error": err.Error(),
		})
		s.metrics.RecordResolution("position_failed")
		s.apply(PositionFailed{Message: GeolocationErrorMessage})
		return
	}

	if s.staleCycle(gen, opResolve) {
		return
	}
	s.apply(CoordinatesSet{Coordinates: coords})

	// Weather and reverse geocoding have no dependency on each other;
	// run them concurrently and join before the cycle completes.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.fetchWeather(ctx, gen, coords)
	}()
	go func() {
		defer wg.Done()
		s.resolveAddress(ctx, gen, coords)
	}()
	wg.Wait()

	if s.staleCycle(gen, opResolve) {
		return
	}
	s.metrics.RecordResolution("completed")
	s.apply(ResolveFinished{})

	s.logger.Info(ctx, "[RESOLVE_COMPLETE] Resolution cycle completed", logging.Fields{
		"cycle":     gen,
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
	})
}

// SetQuery records a search box edit and, when the query passes the
// length gate, runs a forward search for it. The length gate is the
// only debounce; every keystroke past it issues a request with the full
// current query.
func (s *Session) SetQuery(ctx context.Context, query string) {
	// Any edit supersedes searches already in flight.
	gen := s.beginSearch()
	s.apply(QueryChanged{Query: query})

	if utf8.RuneCountInString(query) < minQueryLength {
		return
	}

	suggestions, err := s.geocoder.Search(ctx, query)

	if s.staleSearch(gen) {
		return
	}
	if err != nil {
		s.logger.Warn(ctx, "[SEARCH_FAILED] Location search failed", logging.Fields{
			"query": query,
			"error": err.Error(),
		})
		s.apply(SearchFailed{})
		return
	}

	s.apply(SuggestionsReplaced{Suggestions: suggestions})
}

// Select commits one suggestion as the active location and fetches
// weather for it. The committed coordinates and address come from the
// suggestion itself; no reverse lookup is needed.
func (s *Session) Select(ctx context.Context, suggestion models.LocationSuggestion) {
	gen := s.beginCycle()
	s.beginSearch()
	s.apply(SuggestionCommitted{Suggestion: suggestion})

	s.logger.Info(ctx, "[SELECT_COMMIT] Suggestion committed", logging.Fields{
		"cycle":   gen,
		"address": suggestion.FormatAddress(),
	})

	s.fetchWeather(ctx, gen, suggestion.Coordinates())
}

// fetchWeather retrieves the weather snapshot for coords and folds the
// outcome into state. Provider failures never escape; they become the
// fixed user-facing error with any prior snapshot left readable.
func (s *Session) fetchWeather(ctx context.Context, gen uint64, coords models.Coordinates) {
	snapshot, err := s.weather.Snapshot(ctx, coords)

	if s.staleCycle(gen, opWeather) {
		return
	}
	if err != nil {
		s.logger.Warn(ctx, "[WEATHER_FAILED] Weather fetch failed", logging.Fields{
			"latitude":  coords.Latitude,
			"longitude": coords.Longitude,
			"error":     err.Error(),
		})
		s.apply(WeatherFailed{})
		return
	}

	s.apply(WeatherFetched{Snapshot: snapshot})
}

// resolveAddress reverse-geocodes coords into an address label. Failure
// is silent: weather data remains usable without the label, so the
// address simply stays unchanged.
func (s *Session) resolveAddress(ctx context.Context, gen uint64, coords models.Coordinates) {
	match, err := s.geocoder.Reverse(ctx, coords)

	if s.staleCycle(gen, opReverse) {
		return
	}
	if err != nil {
		s.logger.Debug(ctx, "[REVERSE_GEOCODE_FAILED] Address lookup failed silently", logging.Fields{
			"latitude":  coords.Latitude,
			"longitude": coords.Longitude,
			"error":     err.Error(),
		})
		return
	}

	s.apply(AddressResolved{Address: match.FormatAddress()})
}

// beginCycle starts a new resolution cycle and returns its generation
func (s *Session) beginCycle() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleGen++
	return s.cycleGen
}

// beginSearch starts a new search generation and returns it
func (s *Session) beginSearch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchGen++
	return s.searchGen
}

// staleCycle reports whether gen has been superseded by a newer
// resolution cycle, recording the drop when it has.
func (s *Session) staleCycle(gen uint64, operation string) bool {
	s.mu.Lock()
	stale := gen != s.cycleGen
	s.mu.Unlock()
	if stale {
		s.metrics.RecordStaleDrop(operation)
	}
	return stale
}

// staleSearch reports whether gen has been superseded by a newer search
func (s *Session) staleSearch(gen uint64) bool {
	s.mu.Lock()
	stale := gen != s.searchGen
	s.mu.Unlock()
	if stale {
		s.metrics.RecordStaleDrop(opSearch)
	}
	return stale
}
