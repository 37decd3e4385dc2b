package locate

import (
	"context"
	"errors"
	"fmt"

	"skycast/internal/models"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
)

// Source yields the device's current position. Every call performs a
// fresh acquisition; cached fixes are never returned.
type Source interface {
	Current(ctx context.Context) (models.Coordinates, error)
}

// ErrUnsupported indicates that no position capability exists in this
// deployment and callers should fall back to manual search.
var ErrUnsupported = errors.New("locate: no position source available")

// Position source modes
const (
	ModeIP     = "ip"
	ModeStatic = "static"
	ModeNone   = "none"
)

// Config selects and parameterizes the position source
type Config struct {
	Mode            string
	BaseURL         string
	StaticLatitude  float64
	StaticLongitude float64
}

// NewFromConfig builds the position source named by cfg.Mode
func NewFromConfig(cfg Config, httpClient *httpx.Client, logger *logging.StructuredLogger) (Source, error) {
	switch cfg.Mode {
	case ModeIP:
		return &ipSource{
			baseURL: cfg.BaseURL,
			http:    httpClient,
			logger:  logger,
		}, nil
	case ModeStatic:
		return &staticSource{
			coords: models.Coordinates{
				Latitude:  cfg.StaticLatitude,
				Longitude: cfg.StaticLongitude,
			},
		}, nil
	case ModeNone:
		return &unsupportedSource{}, nil
	default:
		return nil, fmt.Errorf("locate: unknown position source mode %q", cfg.Mode)
	}
}

// staticSource returns a fixed position. Useful for kiosk deployments
// pinned to one site.
type staticSource struct {
	coords models.Coordinates
}

func (s *staticSource) Current(ctx context.Context) (models.Coordinates, error) {
	return s.coords, nil
}

// unsupportedSource models a deployment without any position capability
type unsupportedSource struct{}

func (s *unsupportedSource) Current(ctx context.Context) (models.Coordinates, error) {
	return models.Coordinates{}, ErrUnsupported
}
