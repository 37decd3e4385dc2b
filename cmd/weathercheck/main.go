package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"skycast/internal/config"
	"skycast/internal/geocode"
	"skycast/internal/locate"
	"skycast/internal/models"
	"skycast/internal/session"
	"skycast/internal/weatherapi"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

func main() {
	// Parse command-line flags
	query := flag.String("query", "", "Search for a location instead of using the position source; the first suggestion is selected")
	listOnly := flag.Bool("list", false, "With -query, print the suggestions without selecting one")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("skycast-check", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[CHECK_START] Running one-shot resolution cycle", logging.Fields{
		"version":         "1.0.0",
		"query":           *query,
		"position_source": cfg.Position.Source,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("skycast_check")

	// Initialize the shared outbound HTTP client
	httpClient := httpx.NewClient(&httpx.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}, logger, metricsCollector)

	// Initialize provider clients
	weatherClient := weatherapi.NewClient(weatherapi.Config{
		BaseURL: cfg.Weather.BaseURL,
		APIKey:  cfg.Weather.APIKey,
	}, httpClient, logger)

	geocodeClient := geocode.NewClient(geocode.Config{
		BaseURL: cfg.Position.BaseURL,
		APIKey:  cfg.Position.APIKey,
	}, httpClient, logger)

	positionSource, err := locate.NewFromConfig(cfg.LocateConfig(), httpClient, logger)
	if err != nil {
		logger.Fatal(ctx, "[CHECK_ERROR] Failed to build position source", logging.Fields{}, err)
	}

	// Initialize the session
	sess := session.New(session.Config{
		PositionTimeout: cfg.Position.Timeout,
	}, positionSource, weatherClient, geocodeClient, logger, metricsCollector)

	if *query != "" {
		runManual(ctx, sess, *query, *listOnly)
	} else {
		sess.Resolve(ctx)
	}

	printState(sess.State())

	if state := sess.State(); state.Error != "" {
		os.Exit(1)
	}
}

// runManual exercises the manual search path: issue the query, then
// either list the suggestions or commit the first one.
func runManual(ctx context.Context, sess *session.Session, query string, listOnly bool) {
	sess.SetQuery(ctx, query)

	state := sess.State()
	if state.Error != "" {
		return
	}
	if len(state.Suggestions) == 0 {
		fmt.Printf("No locations found for %q\n", query)
		os.Exit(1)
	}

	if listOnly {
		fmt.Printf("Suggestions for %q:\n", query)
		for i, s := range state.Suggestions {
			coords := s.Coordinates()
			fmt.Printf("  %2d. %-45s %9.4f, %9.4f\n", i+1, s.FormatAddress(), coords.Latitude, coords.Longitude)
		}
		os.Exit(0)
	}

	sess.Select(ctx, state.Suggestions[0])
}

// printState renders the final session snapshot
func printState(state models.SessionState) {
	fmt.Println(strings.Repeat("=", 72))
	if state.Error != "" {
		fmt.Printf("ERROR: %s\n", state.Error)
		fmt.Println(strings.Repeat("=", 72))
		return
	}

	if state.Address != "" {
		fmt.Println(state.Address)
	} else if state.Coordinates != nil {
		fmt.Printf("%.4f, %.4f\n", state.Coordinates.Latitude, state.Coordinates.Longitude)
	}
	fmt.Println(strings.Repeat("=", 72))

	if state.Weather == nil {
		fmt.Println("No weather data")
		return
	}

	current := state.Weather.Current
	fmt.Printf("Now:        %.1f°C (feels like %.1f°C)  %s\n",
		current.Temperature, current.FeelsLike, current.Condition.Description)
	fmt.Printf("Humidity:   %d%%   Pressure: %d hPa   Wind: %.1f m/s   Visibility: %d m\n",
		current.Humidity, current.Pressure, current.WindSpeed, current.Visibility)
	fmt.Printf("Observed:   %s\n", time.Unix(current.ObservedAt, 0).UTC().Format(time.RFC1123))

	if len(state.Weather.Hourly) > 0 {
		fmt.Println("\nNext hours:")
		for _, p := range state.Weather.Hourly {
			desc := ""
			if len(p.Conditions) > 0 {
				desc = p.Conditions[0].Description
			}
			fmt.Printf("  %s  %6.1f°C  %s\n",
				time.Unix(p.Timestamp, 0).UTC().Format("Mon 15:04"), p.Temperature, desc)
		}
	}

	if len(state.Weather.Daily) > 0 {
		fmt.Println("\nDaily:")
		for _, p := range state.Weather.Daily {
			desc := ""
			if len(p.Conditions) > 0 {
				desc = p.Conditions[0].Description
			}
			fmt.Printf("  %s  max %6.1f°C  min %6.1f°C  %s\n",
				time.Unix(p.Timestamp, 0).UTC().Format("Mon Jan 02"), p.TempMax, p.TempMin, desc)
		}
	}
}
