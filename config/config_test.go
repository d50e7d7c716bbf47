package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, "users", cfg.Redis.UsersKey)
	assert.Equal(t, 60*time.Second, cfg.Relay.SDPTTL)
	assert.Equal(t, 10*time.Minute, cfg.Relay.SweepInterval)
	assert.Equal(t, 256, cfg.Relay.SendBuffer)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SWEEP_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Relay.SweepInterval)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:      "8080",
			JWTSecret: "x",
			Relay: RelayConfig{
				SDPTTL:        time.Minute,
				SweepInterval: time.Minute,
				SendBuffer:    1,
				PingPeriod:    time.Second,
				PongWait:      2 * time.Second,
				WriteWait:     time.Second,
			},
		}
	}

	require.NoError(t, base().Validate())

	t.Run("ZeroTTL", func(t *testing.T) {
		c := base()
		c.Relay.SDPTTL = 0
		assert.Error(t, c.Validate())
	})

	t.Run("PingNotShorterThanPong", func(t *testing.T) {
		c := base()
		c.Relay.PingPeriod = c.Relay.PongWait
		assert.Error(t, c.Validate())
	})

	t.Run("NoSendBuffer", func(t *testing.T) {
		c := base()
		c.Relay.SendBuffer = 0
		assert.Error(t, c.Validate())
	})
}
