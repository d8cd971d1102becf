// Package config loads the MoodTune configuration from an optional TOML file,
// an optional .env file and the process environment.
//
// The returned Config is built once at startup and passed explicitly to the
// components that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

// Session backends.
const (
	BackendCookie   = "cookie"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// DefaultRedirectURI uses the explicit IPv4 loopback required by Spotify for local development.
	DefaultRedirectURI = "http://127.0.0.1:8080/api/spotify/callback"

	// DefaultAPIBaseURL is the Spotify Web API root.
	DefaultAPIBaseURL = "https://api.spotify.com/v1/"

	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 10.0
	configEnv        = "MOODTUNE_CONFIG"
)

var (
	// ErrMissingCredentials is returned when the Spotify client id or secret is not set.
	ErrMissingCredentials = errors.New("missing SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET")

	// ErrInvalidConfig is returned when a setting has an unusable value.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all configuration for the application.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	HTTP    HTTPConfig    `toml:"http"`
	Log     LogConfig     `toml:"log"`
}

// SpotifyConfig contains the OAuth client credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	Secure         bool     `toml:"secure_cookies"` // sets the Secure flag on every cookie
	AllowedOrigins []string `toml:"allowed_origins"`
}

// SessionConfig selects where tokens live between requests.
type SessionConfig struct {
	Backend     string `toml:"backend"`
	Secret      string `toml:"secret"`
	DatabaseURL string `toml:"database_url"`
}

// HTTPConfig bounds outbound calls to Spotify.
type HTTPConfig struct {
	Timeout   Duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"` // requests per second
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Duration wraps time.Duration so it can be written as "10s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns a Config with every optional field filled in.
func Default() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURI: DefaultRedirectURI,
			AuthURL:     spotifyauth.AuthURL,
			TokenURL:    spotifyauth.TokenURL,
			APIBaseURL:  DefaultAPIBaseURL,
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Session: SessionConfig{
			Backend: BackendCookie,
		},
		HTTP: HTTPConfig{
			Timeout:   Duration{defaultTimeout},
			RateLimit: defaultRateLimit,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded if present. path names an optional TOML file; when empty,
// MOODTUNE_CONFIG is consulted. Environment variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() error {
	setString(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setString(&c.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	setString(&c.Server.Addr, "MOODTUNE_ADDR")
	setString(&c.Session.Backend, "SESSION_BACKEND")
	setString(&c.Session.Secret, "SESSION_SECRET")
	setString(&c.Session.DatabaseURL, "DATABASE_URL")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("MOODTUNE_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("MOODTUNE_SECURE_COOKIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MOODTUNE_SECURE_COOKIES: %v", ErrInvalidConfig, err)
		}
		c.Server.Secure = b
	}

	if v := os.Getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LOG_PRETTY: %v", ErrInvalidConfig, err)
		}
		c.Log.Pretty = b
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: HTTP_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		c.HTTP.Timeout = Duration{d}
	}

	if v := os.Getenv("SPOTIFY_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: SPOTIFY_RATE_LIMIT: %v", ErrInvalidConfig, err)
		}
		c.HTTP.RateLimit = f
	}

	return nil
}

// Validate reports whether the configuration can be used to start the server.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}

	switch c.Session.Backend {
	case BackendCookie, BackendMemory:
	case BackendPostgres:
		if c.Session.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres session backend requires DATABASE_URL", ErrInvalidConfig)
		}
		if c.Session.Secret == "" {
			return fmt.Errorf("%w: postgres session backend requires SESSION_SECRET", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}

	if c.HTTP.Timeout.Duration <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", ErrInvalidConfig)
	}
	if c.HTTP.RateLimit <= 0 {
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
