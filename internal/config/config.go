package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the newyear configuration
type Config struct {
	Title  string       `yaml:"title"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	API    *APIConfig   `yaml:"api,omitempty"`
	Client ClientConfig `yaml:"client"`
	Wheel  WheelConfig  `yaml:"wheel"`
	Steps  StepsConfig  `yaml:"steps"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"` // Allows jumping to locked steps
	Watch bool   `yaml:"watch"` // Reload the prize catalog when the config file changes
}

// StoreConfig selects and configures the wish store backend
type StoreConfig struct {
	Type     string `yaml:"type"`                // "sqlite", "pg", "gdata", "memory". Default: sqlite
	DB       string `yaml:"db,omitempty"`        // For sqlite: database file path (default: ./newyear.db)
	Table    string `yaml:"table,omitempty"`     // Table name (default: wish)
	DSN      string `yaml:"dsn,omitempty"`       // For pg: connection string (env vars expanded, falls back to DATABASE_URL)
	AppName  string `yaml:"app_name,omitempty"`  // For gdata: application data directory name
	CacheTTL string `yaml:"cache_ttl,omitempty"` // Per-name read cache TTL (e.g., "30s"). Default: disabled
}

// APIConfig holds wish API configuration
type APIConfig struct {
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"` // Allowed origins (e.g., ["http://localhost:3000", "*"])
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // Default: 10
	Burst             int     `yaml:"burst,omitempty"`               // Default: 20
	MaxIPs            int     `yaml:"max_ips,omitempty"`             // Default: 10000
}

// ClientConfig configures the wish API client used by sessions and the terminal client
type ClientConfig struct {
	BaseURL string       `yaml:"base_url,omitempty"` // Default: derived from server host/port
	Timeout string       `yaml:"timeout,omitempty"`  // Default: 10s
	Retry   *RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig configures retry behavior for wish fetches
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries,omitempty"` // Maximum retry attempts (default: 3)
	BaseDelay  string `yaml:"base_delay,omitempty"`  // Initial delay (e.g., "100ms"). Default: 100ms
	MaxDelay   string `yaml:"max_delay,omitempty"`   // Maximum delay (e.g., "5s"). Default: 5s
}

// WheelConfig defines the prize wheel
type WheelConfig struct {
	Prizes       []PrizeConfig `yaml:"prizes"`
	Palette      []string      `yaml:"palette"`
	LabelRunes   int           `yaml:"label_runes"`
	WishPrefix   string        `yaml:"wish_prefix"`
	Separator    string        `yaml:"separator"`
	MinTurns     int           `yaml:"min_turns"`
	Jitter       float64       `yaml:"jitter"`        // Fraction of half a segment, in [0, 1)
	SpinDuration string        `yaml:"spin_duration"` // Visual spin length, e.g. "4s"
}

// PrizeConfig is one built-in wheel entry
type PrizeConfig struct {
	Label string `yaml:"label"`
	Color string `yaml:"color"`
	Text  string `yaml:"text"`
	Grand bool   `yaml:"grand,omitempty"`
}

// StepsConfig tunes the five steps
type StepsConfig struct {
	ShredDelay    string         `yaml:"shred_delay"`
	LettersDelay  string         `yaml:"letters_delay"`
	Word          string         `yaml:"word"`
	WishThreshold int            `yaml:"wish_threshold"`
	Intros        map[int]string `yaml:"intros,omitempty"` // Markdown intro per step
}

// GetTimeout returns the parsed client timeout (default: 10s)
func (c ClientConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetRetryMaxRetries returns the max retries (default: 3, set to 0 to disable retries)
func (c ClientConfig) GetRetryMaxRetries() int {
	if c.Retry == nil {
		return 3
	}
	if c.Retry.MaxRetries < 0 {
		return 3
	}
	return c.Retry.MaxRetries
}

// GetRetryBaseDelay returns the base delay (default: 100ms)
func (c ClientConfig) GetRetryBaseDelay() time.Duration {
	if c.Retry == nil {
		return 100 * time.Millisecond
	}
	return parseDuration(c.Retry.BaseDelay, 100*time.Millisecond)
}

// GetRetryMaxDelay returns the max delay (default: 5s)
func (c ClientConfig) GetRetryMaxDelay() time.Duration {
	if c.Retry == nil {
		return 5 * time.Second
	}
	return parseDuration(c.Retry.MaxDelay, 5*time.Second)
}

// GetType returns the store type (default: sqlite)
func (c StoreConfig) GetType() string {
	if c.Type == "" {
		return "sqlite"
	}
	return c.Type
}

// GetTable returns the table name (default: wish)
func (c StoreConfig) GetTable() string {
	if c.Table == "" {
		return "wish"
	}
	return c.Table
}

// GetDSN returns the postgres DSN with env expansion, falling back to DATABASE_URL
func (c StoreConfig) GetDSN() string {
	if c.DSN != "" {
		return os.ExpandEnv(c.DSN)
	}
	return os.Getenv("DATABASE_URL")
}

// GetAppName returns the gdata application name (default: newyear)
func (c StoreConfig) GetAppName() string {
	if c.AppName == "" {
		return "newyear"
	}
	return c.AppName
}

// IsCacheEnabled returns true if the per-name read cache is enabled
func (c StoreConfig) IsCacheEnabled() bool {
	return c.GetCacheTTL() > 0
}

// GetCacheTTL returns the cache TTL (0 if caching is disabled)
func (c StoreConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 0)
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// GetRateLimitMaxIPs returns the number of tracked client IPs (default: 10000)
func (c *APIConfig) GetRateLimitMaxIPs() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.MaxIPs <= 0 {
		return 10000
	}
	return c.RateLimit.MaxIPs
}

// GetSpinDuration returns how long a spin animates before it settles (default: 4s)
func (c WheelConfig) GetSpinDuration() time.Duration {
	return parseDuration(c.SpinDuration, 4*time.Second)
}

// GetShredDelay returns the delay before step 1 auto-advances (default: 1.5s)
func (c StepsConfig) GetShredDelay() time.Duration {
	return parseDuration(c.ShredDelay, 1500*time.Millisecond)
}

// GetLettersDelay returns the delay before step 2 auto-advances (default: 4s)
func (c StepsConfig) GetLettersDelay() time.Duration {
	return parseDuration(c.LettersDelay, 4*time.Second)
}

// BaseURL returns the wish API address clients should talk to
func (c *Config) BaseURL() string {
	if c.Client.BaseURL != "" {
		return c.Client.BaseURL
	}
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks the parts of the configuration that cannot fall back to a default
func (c *Config) Validate() error {
	grand := 0
	for i, p := range c.Wheel.Prizes {
		if p.Label == "" {
			return fmt.Errorf("wheel.prizes[%d]: label is required", i)
		}
		if p.Grand {
			grand++
		}
	}
	if grand != 1 {
		return fmt.Errorf("wheel.prizes: exactly one grand prize required, found %d", grand)
	}
	if len(c.Wheel.Palette) == 0 {
		return fmt.Errorf("wheel.palette: at least one color required")
	}
	if c.Wheel.MinTurns < 5 {
		return fmt.Errorf("wheel.min_turns: must be at least 5, got %d", c.Wheel.MinTurns)
	}
	if c.Wheel.Jitter < 0 || c.Wheel.Jitter >= 1 {
		return fmt.Errorf("wheel.jitter: must be in [0, 1), got %v", c.Wheel.Jitter)
	}
	if len([]rune(c.Steps.Word)) == 0 {
		return fmt.Errorf("steps.word: must not be empty")
	}
	if c.Steps.WishThreshold < 1 {
		return fmt.Errorf("steps.wish_threshold: must be positive, got %d", c.Steps.WishThreshold)
	}
	switch c.Store.GetType() {
	case "sqlite", "pg", "gdata", "memory":
	default:
		return fmt.Errorf("store.type: unsupported store %q", c.Store.Type)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title: "2026 新年快乐",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Store: StoreConfig{
			Type: "sqlite",
		},
		Wheel: WheelConfig{
			Prizes: []PrizeConfig{
				{Label: "锦鲤附体", Color: "#ff4d4d", Text: "运气爆棚，万事顺遂！"},
				{Label: "身体健康", Color: "#2ed573", Text: "吃嘛嘛香，百毒不侵！"},
				{Label: "桃花朵朵", Color: "#ff78c4", Text: "人见人爱，花见花开！"},
				{Label: "学业亨通", Color: "#1e90ff", Text: "逢考必过，智慧过人！"},
				{Label: "志在必得", Color: "#a55eea", Text: "心想事成，梦想成真！", Grand: true},
			},
			Palette:    []string{"#ff4d4d", "#2ed573", "#ff78c4", "#1e90ff", "#a55eea", "#ffa502", "#ff6b81", "#7bed9f"},
			LabelRunes: 4,
			WishPrefix: "愿望实现：",
			Separator:  " ",
			MinTurns:   5,
			Jitter:     0.6,
		},
		Steps: StepsConfig{
			Word:          "LUCK",
			WishThreshold: 3,
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// LoadFromDir looks for newyear.yaml in the given directory
// If none is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	return Load(FindInDir(dir))
}

// FindInDir returns the config file path for a directory, whether or not it exists
func FindInDir(dir string) string {
	for _, name := range []string{"newyear.yaml", "newyear.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, "newyear.yaml")
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
