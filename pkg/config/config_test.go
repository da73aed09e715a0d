package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":3000", cfg.Server.Address)
	assert.Equal(t, 32, cfg.Signal.SendBuffer)
	assert.Equal(t, "ws://localhost:7880", cfg.LiveKit.URL)
	assert.Equal(t, 6*time.Hour, cfg.LiveKit.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.LiveKit.TokenTimeout)
	assert.False(t, cfg.Redis.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty address", func(c *Config) { c.Server.Address = "" }, true},
		{"zero ping interval", func(c *Config) { c.Signal.PingInterval = 0 }, true},
		{"zero send buffer", func(c *Config) { c.Signal.SendBuffer = 0 }, true},
		{"empty livekit url", func(c *Config) { c.LiveKit.URL = "" }, true},
		{"zero token ttl", func(c *Config) { c.LiveKit.TokenTTL = 0 }, true},
		{"zero token timeout", func(c *Config) { c.LiveKit.TokenTimeout = 0 }, true},
		{"redis enabled without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}, true},
		{"tracing enabled without jaeger url", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.JaegerURL = ""
		}, true},
		{"rate limiting enabled with zero rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.RequestsPerSecond = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Address)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  address: ":9999"
livekit:
  api_key: "prodkey"
logging:
  level: "debug"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "prodkey", cfg.LiveKit.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "ws://localhost:7880", cfg.LiveKit.URL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROOMCAST_SERVER_ADDRESS", ":8081")
	t.Setenv("LIVEKIT_URL", "ws://media:7880")
	t.Setenv("LIVEKIT_EXTERNAL_URL", "wss://media.example.com")
	t.Setenv("LIVEKIT_API_KEY", "envkey")
	t.Setenv("LIVEKIT_API_SECRET", "envsecret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Address)
	assert.Equal(t, "ws://media:7880", cfg.LiveKit.URL)
	assert.Equal(t, "envkey", cfg.LiveKit.APIKey)
	assert.Equal(t, "envsecret", cfg.LiveKit.APISecret)
	assert.Equal(t, "wss://media.example.com", cfg.MediaURL())
}

func TestMediaURL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.LiveKit.URL, cfg.MediaURL())

	cfg.LiveKit.ExternalURL = "wss://public.example.com"
	assert.Equal(t, "wss://public.example.com", cfg.MediaURL())
}
