package locate

import (
	"context"
	"fmt"

	"skycast/internal/models"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
)

// ProviderName labels the IP geolocation integration in logs and metrics
const ProviderName = "ip-api"

// ipSource derives the device position from the host's public IP address
type ipSource struct {
	baseURL string
	http    *httpx.Client
	logger  *logging.StructuredLogger
}

// ipLocationResponse is the provider's lookup payload. The provider
// reports failures with HTTP 200 and status "fail".
type ipLocationResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	City    string  `json:"city"`
	Region  string  `json:"regionName"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (s *ipSource) Current(ctx context.Context) (models.Coordinates, error) {
	var resp ipLocationResponse
	err := s.http.GetJSON(ctx, ProviderName, "locate", s.baseURL+"/json", map[string]string{
		"fields": "status,message,city,regionName,country,lat,lon",
	}, &resp)
	if err != nil {
		return models.Coordinates{}, err
	}

	if resp.Status != "success" {
		return models.Coordinates{}, fmt.Errorf("locate: ip lookup failed: %s", resp.Message)
	}

	coords := models.Coordinates{Latitude: resp.Lat, Longitude: resp.Lon}
	s.logger.Debug(ctx, "[LOCATE_IP] Position acquired from IP lookup", logging.Fields{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
		"city":      resp.City,
	})

	return coords, nil
}
