package session

import (
	"unicode/utf8"

	"skycast/internal/models"
)

// User-facing failure messages. These are part of the presentation
// contract and must stay stable.
const (
	GeolocationErrorMessage = "Could not get your location. Please search for a location manually."
	WeatherErrorMessage     = "Could not fetch weather data. Please try again."
	SearchErrorMessage      = "Location search failed. Please try again."
)

// minQueryLength is the search gate: queries shorter than this clear the
// suggestion list without issuing a request.
const minQueryLength = 3

// Event is one atomic change to the session state. Events are folded
// into the state by Reduce; nothing else mutates it.
type Event interface {
	Name() string
}

// ResolveStarted begins a resolution cycle. It supersedes any error left
// by a prior attempt.
type ResolveStarted struct{}

func (ResolveStarted) Name() string { return "resolve_started" }

// PositionFailed records that the device position could not be acquired
type PositionFailed struct {
	Message string
}

func (PositionFailed) Name() string { return "position_failed" }

// CoordinatesSet installs freshly acquired coordinates. The address is
// cleared with them; it must never describe a different location than
// the current coordinates.
type CoordinatesSet struct {
	Coordinates models.Coordinates
}

func (CoordinatesSet) Name() string { return "coordinates_set" }

// ResolveFinished ends a resolution cycle
type ResolveFinished struct{}

func (ResolveFinished) Name() string { return "resolve_finished" }

// WeatherFetched replaces the weather snapshot
type WeatherFetched struct {
	Snapshot *models.WeatherSnapshot
}

func (WeatherFetched) Name() string { return "weather_fetched" }

// WeatherFailed surfaces a weather fetch failure. The previous snapshot,
// if any, stays readable.
type WeatherFailed struct{}

func (WeatherFailed) Name() string { return "weather_failed" }

// AddressResolved installs the reverse-geocoded address label for the
// current coordinates.
type AddressResolved struct {
	Address string
}

func (AddressResolved) Name() string { return "address_resolved" }

// QueryChanged records a search box edit. Queries below the gate clear
// the suggestion list.
type QueryChanged struct {
	Query string
}

func (QueryChanged) Name() string { return "query_changed" }

// SuggestionsReplaced swaps in a new candidate list, possibly empty
type SuggestionsReplaced struct {
	Suggestions []models.LocationSuggestion
}

func (SuggestionsReplaced) Name() string { return "suggestions_replaced" }

// SearchFailed surfaces a forward search failure and drops the stale
// candidate list.
type SearchFailed struct{}

func (SearchFailed) Name() string { return "search_failed" }

// SuggestionCommitted makes one suggestion the active location. The
// formatted address becomes both the address label and the search box
// text, and any abandoned resolution cycle stops counting as loading.
type SuggestionCommitted struct {
	Suggestion models.LocationSuggestion
}

func (SuggestionCommitted) Name() string { return "suggestion_committed" }

// Reduce folds one event into the state and returns the next state. The
// input is never mutated, which keeps every transition testable in
// isolation.
func Reduce(state models.SessionState, event Event) models.SessionState {
	next := state.Clone()

	switch e := event.(type) {
	case ResolveStarted:
		next.Loading = true
		next.Error = ""

	case PositionFailed:
		next.Error = e.Message
		next.Loading = false

	case CoordinatesSet:
		coords := e.Coordinates
		next.Coordinates = &coords
		next.Address = ""

	case ResolveFinished:
		next.Loading = false

	case WeatherFetched:
		if e.Snapshot != nil {
			snapshot := e.Snapshot.Clone()
			next.Weather = &snapshot
		}

	case WeatherFailed:
		next.Error = WeatherErrorMessage

	case AddressResolved:
		next.Address = e.Address

	case QueryChanged:
		next.SearchQuery = e.Query
		if utf8.RuneCountInString(e.Query) < minQueryLength {
			next.Suggestions = []models.LocationSuggestion{}
		}

	case SuggestionsReplaced:
		next.Suggestions = append([]models.LocationSuggestion{}, e.Suggestions...)

	case SearchFailed:
		next.Error = SearchErrorMessage
		next.Suggestions = []models.LocationSuggestion{}

	case SuggestionCommitted:
		coords := e.Suggestion.Coordinates()
		next.Coordinates = &coords
		next.Address = e.Suggestion.FormatAddress()
		next.SearchQuery = next.Address
		next.Suggestions = []models.LocationSuggestion{}
		next.Loading = false
	}

	return next
}
