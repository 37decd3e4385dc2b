package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"skycast/internal/locate"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	Position PositionConfig `mapstructure:"position"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// WeatherConfig holds the weather provider settings
type WeatherConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// PositionConfig holds the geocoding provider settings and the device
// position source selection.
type PositionConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`

	Source          string        `mapstructure:"source"`
	Timeout         time.Duration `mapstructure:"timeout"`
	IPURL           string        `mapstructure:"ip_url"`
	StaticLatitude  float64       `mapstructure:"static_latitude"`
	StaticLongitude float64       `mapstructure:"static_longitude"`
}

// HTTPConfig holds outbound HTTP transport settings
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from the environment with sane
// defaults. Keys map to env vars with "." replaced by "_", e.g.
// weather.api_key is WEATHER_API_KEY.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.api_key", "")

	v.SetDefault("position.base_url", "https://api.positionstack.com/v1")
	v.SetDefault("position.api_key", "")
	v.SetDefault("position.source", locate.ModeIP)
	v.SetDefault("position.timeout", 10*time.Second)
	v.SetDefault("position.ip_url", "http://ip-api.com")
	v.SetDefault("position.static_latitude", 0.0)
	v.SetDefault("position.static_longitude", 0.0)

	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.user_agent", "skycast/1.0")

	v.SetDefault("logging.level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration before any request is issued.
// Missing provider credentials fail here rather than as malformed
// upstream requests.
func (c *Config) Validate() error {
	if c.Weather.APIKey == "" {
		return fmt.Errorf("WEATHER_API_KEY is required")
	}
	if c.Position.APIKey == "" {
		return fmt.Errorf("POSITION_API_KEY is required")
	}

	if err := validateURL("WEATHER_BASE_URL", c.Weather.BaseURL); err != nil {
		return err
	}
	if err := validateURL("POSITION_BASE_URL", c.Position.BaseURL); err != nil {
		return err
	}

	switch c.Position.Source {
	case locate.ModeIP, locate.ModeStatic, locate.ModeNone:
	default:
		return fmt.Errorf("POSITION_SOURCE must be one of %s, %s, %s; got %q",
			locate.ModeIP, locate.ModeStatic, locate.ModeNone, c.Position.Source)
	}

	if c.Position.Timeout <= 0 {
		return fmt.Errorf("POSITION_TIMEOUT must be positive; got %s", c.Position.Timeout)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535; got %d", c.Server.Port)
	}

	return nil
}

// LocateConfig builds the position source configuration
func (c *Config) LocateConfig() locate.Config {
	return locate.Config{
		Mode:            c.Position.Source,
		BaseURL:         c.Position.IPURL,
		StaticLatitude:  c.Position.StaticLatitude,
		StaticLongitude: c.Position.StaticLongitude,
	}
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL; got %q", name, raw)
	}
	return nil
}
