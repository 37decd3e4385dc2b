package models

// SessionState holds everything the presentation layer can observe about
// the interactive session: the active location, its weather, the search
// box contents, and the in-flight/error indicators. There is exactly one
// session per process and it is never shared across sessions.
type SessionState struct {
	SearchQuery string               `json:"search_query"`
	Coordinates *Coordinates         `json:"coordinates"`
	Weather     *WeatherSnapshot     `json:"weather"`
	Address     string               `json:"address"`
	Suggestions []LocationSuggestion `json:"suggestions"`
	Loading     bool                 `json:"loading"`
	Error       string               `json:"error,omitempty"`
}

// NewSessionState returns the empty state a session starts from
func NewSessionState() SessionState {
	return SessionState{
		Suggestions: []LocationSuggestion{},
	}
}

// Clone returns a deep copy safe to hand to readers while the original
// keeps being mutated.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Coordinates != nil {
		coords := *s.Coordinates
		out.Coordinates = &coords
	}
	if s.Weather != nil {
		weather := s.Weather.Clone()
		out.Weather = &weather
	}
	if s.Suggestions != nil {
		out.Suggestions = append([]LocationSuggestion{}, s.Suggestions...)
	}
	return out
}
