package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.Store.GetType())
	assert.Equal(t, "wish", cfg.Store.GetTable())
	assert.Len(t, cfg.Wheel.Prizes, 5)
	assert.True(t, cfg.Wheel.Prizes[4].Grand)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
}

func TestClientConfigDurations(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ClientConfig
		timeout  time.Duration
		retries  int
		base     time.Duration
		maxDelay time.Duration
	}{
		{"defaults", ClientConfig{}, 10 * time.Second, 3, 100 * time.Millisecond, 5 * time.Second},
		{"invalid values", ClientConfig{Timeout: "soon", Retry: &RetryConfig{MaxRetries: -1, BaseDelay: "x", MaxDelay: "y"}},
			10 * time.Second, 3, 100 * time.Millisecond, 5 * time.Second},
		{"explicit", ClientConfig{Timeout: "2s", Retry: &RetryConfig{MaxRetries: 0, BaseDelay: "10ms", MaxDelay: "1s"}},
			2 * time.Second, 0, 10 * time.Millisecond, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.timeout, tt.cfg.GetTimeout())
			assert.Equal(t, tt.retries, tt.cfg.GetRetryMaxRetries())
			assert.Equal(t, tt.base, tt.cfg.GetRetryBaseDelay())
			assert.Equal(t, tt.maxDelay, tt.cfg.GetRetryMaxDelay())
		})
	}
}

func TestStoreConfigCache(t *testing.T) {
	tests := []struct {
		name     string
		ttl      string
		enabled  bool
		expected time.Duration
	}{
		{"empty", "", false, 0},
		{"invalid", "invalid", false, 0},
		{"30 seconds", "30s", true, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := StoreConfig{CacheTTL: tt.ttl}
			assert.Equal(t, tt.enabled, cfg.IsCacheEnabled())
			assert.Equal(t, tt.expected, cfg.GetCacheTTL())
		})
	}
}

func TestStoreConfigDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fallback")
	t.Setenv("WISH_DB_HOST", "db.internal")

	assert.Equal(t, "postgres://fallback", StoreConfig{}.GetDSN())
	assert.Equal(t, "postgres://db.internal/wishes", StoreConfig{DSN: "postgres://${WISH_DB_HOST}/wishes"}.GetDSN())
}

func TestAPIConfigDefaults(t *testing.T) {
	var nilCfg *APIConfig
	assert.Nil(t, nilCfg.GetCORSOrigins())
	assert.Equal(t, 10.0, nilCfg.GetRateLimitRPS())
	assert.Equal(t, 20, nilCfg.GetRateLimitBurst())
	assert.Equal(t, 10000, nilCfg.GetRateLimitMaxIPs())

	cfg := &APIConfig{
		CORS:      &CORSConfig{Origins: []string{"*"}},
		RateLimit: &RateLimitConfig{RequestsPerSecond: 2, Burst: 4, MaxIPs: 8},
	}
	assert.Equal(t, []string{"*"}, cfg.GetCORSOrigins())
	assert.Equal(t, 2.0, cfg.GetRateLimitRPS())
	assert.Equal(t, 4, cfg.GetRateLimitBurst())
	assert.Equal(t, 8, cfg.GetRateLimitMaxIPs())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"no grand prize", func(c *Config) { c.Wheel.Prizes[4].Grand = false }, "exactly one grand prize"},
		{"two grand prizes", func(c *Config) { c.Wheel.Prizes[0].Grand = true }, "exactly one grand prize"},
		{"blank label", func(c *Config) { c.Wheel.Prizes[1].Label = "" }, "label is required"},
		{"empty palette", func(c *Config) { c.Wheel.Palette = nil }, "palette"},
		{"too few turns", func(c *Config) { c.Wheel.MinTurns = 2 }, "min_turns"},
		{"jitter out of range", func(c *Config) { c.Wheel.Jitter = 1 }, "jitter"},
		{"empty word", func(c *Config) { c.Steps.Word = "" }, "steps.word"},
		{"zero threshold", func(c *Config) { c.Steps.WishThreshold = 0 }, "wish_threshold"},
		{"unknown store", func(c *Config) { c.Store.Type = "mongo" }, "unsupported store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9090
  debug: true
store:
  type: memory
wheel:
  prizes:
    - label: A
      color: "#000"
      text: x
    - label: GRAND
      color: "#fff"
      text: g
      grand: true
steps:
  word: FORTUNE
  intros:
    3: "Write **three** wishes"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "newyear.yaml"), []byte(content), 0644))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "memory", cfg.Store.GetType())
	require.Len(t, cfg.Wheel.Prizes, 2)
	assert.Equal(t, "GRAND", cfg.Wheel.Prizes[1].Label)
	assert.Equal(t, "FORTUNE", cfg.Steps.Word)
	assert.Equal(t, 3, cfg.Steps.WishThreshold)
	assert.Equal(t, "Write **three** wishes", cfg.Steps.Intros[3])
	// Untouched sections keep defaults
	assert.Len(t, cfg.Wheel.Palette, 8)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newyear.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: mongo\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newyear.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = 7000
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, loaded.Server.Port)
	assert.Equal(t, cfg.Wheel.Prizes, loaded.Wheel.Prizes)
}
