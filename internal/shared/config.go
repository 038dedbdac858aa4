package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Generator   GeneratorConfig   `toml:"generator"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Refiner     RefinerConfig     `toml:"refiner"`
	Cache       CacheConfig       `toml:"cache"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Gemini  GeminiConfig  `toml:"gemini"`
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// GeminiConfig contains generative model credentials and endpoint.
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// SpotifyConfig contains Spotify API credentials.
//
// The token fields hold the user token saved by the login flow.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenExpiry  time.Time `toml:"token_expiry,omitempty"`
}

// Token returns the saved user token, or nil when none was saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.TokenExpiry,
	}
}

// Update stores tok. A token without a refresh token keeps the previous one.
func (s *SpotifyConfig) Update(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: empty spotify token", ErrInvalidCredentials)
	}
	s.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	s.TokenExpiry = tok.Expiry
	return nil
}

// YouTubeConfig selects the YouTube search backend and its credentials.
//
// Backend is "proxy" (ytmusicapi proxy at ProxyURL) or "data_api" (YouTube Data API v3 with APIKey).
type YouTubeConfig struct {
	Backend     string `toml:"backend"`
	APIKey      string `toml:"api_key"`
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// GeneratorConfig contains sampling parameters for both generation attempts.
type GeneratorConfig struct {
	SongCount           int     `toml:"song_count"`
	MaxOutputTokens     int     `toml:"max_output_tokens"`
	PrimaryTemperature  float64 `toml:"primary_temperature"`
	FallbackTemperature float64 `toml:"fallback_temperature"`
}

// ResolverConfig bounds concurrency against the search providers.
type ResolverConfig struct {
	BatchSize         int           `toml:"batch_size"`
	BatchPause        time.Duration `toml:"batch_pause"`
	SearchLimit       int           `toml:"search_limit"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
}

// RefinerConfig toggles the audio-feature refinement stage.
type RefinerConfig struct {
	Enabled bool `toml:"enabled"`
}

// CacheConfig holds expiry and capacity for both cache namespaces.
type CacheConfig struct {
	PlaylistTTL      time.Duration `toml:"playlist_ttl"`
	PlaylistCapacity int           `toml:"playlist_capacity"`
	SearchTTL        time.Duration `toml:"search_ttl"`
	SearchCapacity   int           `toml:"search_capacity"`
	SweepInterval    time.Duration `toml:"sweep_interval"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets from the environment, loading a .env file first when one exists.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	setFromEnv(&c.Credentials.Gemini.APIKey, "GEMINI_API_KEY")
	setFromEnv(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setFromEnv(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setFromEnv(&c.Credentials.YouTube.APIKey, "YOUTUBE_API_KEY")
	setFromEnv(&c.Credentials.YouTube.ProxyURL, "YTMUSIC_PROXY_URL")
}

// Validate reports configuration that would make the pipeline unusable.
func (c *Config) Validate() error {
	if c.Resolver.BatchSize <= 0 {
		return fmt.Errorf("%w: resolver.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Cache.PlaylistCapacity <= 0 || c.Cache.SearchCapacity <= 0 {
		return fmt.Errorf("%w: cache capacities must be positive", ErrInvalidConfig)
	}
	switch c.Credentials.YouTube.Backend {
	case "", "proxy", "data_api":
	default:
		return fmt.Errorf("%w: unknown youtube backend %q", ErrInvalidConfig, c.Credentials.YouTube.Backend)
	}
	return nil
}

// HasSpotifyApp reports whether client credentials are configured.
func (c *Config) HasSpotifyApp() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
