package geocode

import (
	"context"
	"errors"
	"strconv"

	"skycast/internal/models"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
)

const (
	// ProviderName labels this integration in logs and metrics
	ProviderName = "positionstack"

	forwardEndpoint = "/forward"
	reverseEndpoint = "/reverse"
)

// ErrNoMatch is returned by Reverse when the provider finds no location
// record near the given coordinates.
var ErrNoMatch = errors.New("geocode: no matching location")

// Config holds geocoding provider settings
type Config struct {
	BaseURL string
	APIKey  string
}

// Client wraps forward search and reverse lookup against the geocoding
// provider.
type Client struct {
	cfg    Config
	http   *httpx.Client
	logger *logging.StructuredLogger
}

// NewClient creates a new geocoding provider client
func NewClient(cfg Config, httpClient *httpx.Client, logger *logging.StructuredLogger) *Client {
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
	}
}

// searchResponse is the provider's result envelope. Suggestion fields
// decode directly; latitude/longitude arrive as numbers or strings
// depending on plan and endpoint.
type searchResponse struct {
	Data []models.LocationSuggestion `json:"data"`
}

// Search forward-geocodes free text into candidate locations. An empty
// query short-circuits to an empty result without issuing a request.
func (c *Client) Search(ctx context.Context, query string) ([]models.LocationSuggestion, error) {
	if query == "" {
		return []models.LocationSuggestion{}, nil
	}

	var resp searchResponse
	err := c.http.GetJSON(ctx, ProviderName, "forward", c.cfg.BaseURL+forwardEndpoint, map[string]string{
		"access_key": c.cfg.APIKey,
		"query":      query,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug(ctx, "[GEOCODE_FORWARD] Search completed", logging.Fields{
		"query":       query,
		"suggestions": len(resp.Data),
	})

	if resp.Data == nil {
		return []models.LocationSuggestion{}, nil
	}
	return resp.Data, nil
}

// Reverse looks up the nearest location record for the given coordinates.
// Returns ErrNoMatch when the provider has nothing for them.
func (c *Client) Reverse(ctx context.Context, coords models.Coordinates) (models.LocationSuggestion, error) {
	query := strconv.FormatFloat(coords.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(coords.Longitude, 'f', -1, 64)

	var resp searchResponse
	err := c.http.GetJSON(ctx, ProviderName, "reverse", c.cfg.BaseURL+reverseEndpoint, map[string]string{
		"access_key": c.cfg.APIKey,
		"query":      query,
	}, &resp)
	if err != nil {
		return models.LocationSuggestion{}, err
	}

	if len(resp.Data) == 0 {
		return models.LocationSuggestion{}, ErrNoMatch
	}

	match := resp.Data[0]
	c.logger.Debug(ctx, "[GEOCODE_REVERSE] Nearest location resolved", logging.Fields{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
		"address":   match.FormatAddress(),
	})

	return match, nil
}
