package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

// Config holds outbound HTTP client configuration
type Config struct {
	Timeout          time.Duration
	UserAgent        string
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
}

// Client wraps resty.Client with monitoring and metrics for upstream
// provider calls.
type Client struct {
	rest    *resty.Client
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewClient creates an instrumented HTTP client shared by all provider
// integrations.
func NewClient(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "skycast/1.0"
	}
	retryWait := cfg.RetryWaitTime
	if retryWait == 0 {
		retryWait = 1 * time.Second
	}
	retryMaxWait := cfg.RetryMaxWaitTime
	if retryMaxWait == 0 {
		retryMaxWait = 5 * time.Second
	}

	rest := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait)

	rest.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug(resp.Request.Context(), "[HTTP_RESPONSE] Upstream response received", logging.Fields{
			"method":      resp.Request.Method,
			"url":         resp.Request.URL,
			"status":      resp.StatusCode(),
			"duration_ms": resp.Time().Milliseconds(),
			"body_bytes":  len(resp.Body()),
		})
		return nil
	})

	return &Client{
		rest:    rest,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ProviderError describes a failed upstream provider call
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Operation, e.Message)
}

// GetJSON issues a GET request against url with the given query parameters
// and decodes the JSON response body into out. Failures are returned as
// *ProviderError and recorded against the provider/operation pair.
func (c *Client) GetJSON(ctx context.Context, provider, operation, url string, query map[string]string, out interface{}) error {
	timer := c.metrics.NewTimer(c.metrics.ProviderRequestDuration.WithLabelValues(provider, operation))
	defer timer.ObserveDuration()

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(url)

	if err != nil {
		c.metrics.RecordProviderRequest(provider, operation, "transport_error")
		c.metrics.RecordProviderError(provider, "transport_error")
		c.logger.Error(ctx, "[PROVIDER_ERROR] Upstream request failed", logging.Fields{
			"provider":  provider,
			"operation": operation,
			"url":       url,
		}, err)
		return &ProviderError{
			Provider:  provider,
			Operation: operation,
			Message:   err.Error(),
		}
	}

	status := strconv.Itoa(resp.StatusCode())
	c.metrics.RecordProviderRequest(provider, operation, status)

	if !resp.IsSuccess() {
		c.metrics.RecordProviderError(provider, "http_"+status)
		provErr := &ProviderError{
			Provider:   provider,
			Operation:  operation,
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp.Body(), resp.StatusCode()),
		}
		c.logger.Error(ctx, "[PROVIDER_ERROR] Upstream returned error status", logging.Fields{
			"provider":  provider,
			"operation": operation,
			"url":       url,
			"status":    resp.StatusCode(),
		}, provErr)
		return provErr
	}

	return nil
}

// errorMessage extracts a human-readable message from an error response
// body. OpenWeatherMap uses a top-level message field, positionstack nests
// it under error.
func errorMessage(body []byte, statusCode int) string {
	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Message != "" {
		return flat.Message
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	return http.StatusText(statusCode)
}
