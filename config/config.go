package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	JWTSecret      string
	Redis          RedisConfig
	Relay          RelayConfig
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// UsersKey is the Redis set holding every known user email.
	UsersKey string
}

// RelayConfig tunes the signaling relay and its WebSocket transport.
type RelayConfig struct {
	SDPTTL        time.Duration
	SweepInterval time.Duration
	SendBuffer    int
	ReadLimit     int64
	PingPeriod    time.Duration
	PongWait      time.Duration
	WriteWait     time.Duration
}

// Load reads configuration from defaults, an optional file named by
// CONFIG_FILE and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.users_key", "users")
	v.SetDefault("sdp_ttl", "60s")
	v.SetDefault("sweep_interval", "10m")
	v.SetDefault("send_buffer", 256)
	v.SetDefault("read_limit", 64*1024)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		Environment:    v.GetString("environment"),
		LogLevel:       v.GetString("log_level"),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
		JWTSecret:      v.GetString("jwt_secret"),
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			UsersKey: v.GetString("redis.users_key"),
		},
		Relay: RelayConfig{
			SDPTTL:        v.GetDuration("sdp_ttl"),
			SweepInterval: v.GetDuration("sweep_interval"),
			SendBuffer:    v.GetInt("send_buffer"),
			ReadLimit:     v.GetInt64("read_limit"),
			PingPeriod:    v.GetDuration("ping_period"),
			PongWait:      v.GetDuration("pong_wait"),
			WriteWait:     v.GetDuration("write_wait"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that would make the server misbehave.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("jwt_secret must be set in production")
	}
	if c.Relay.SDPTTL <= 0 {
		return fmt.Errorf("sdp_ttl must be positive, got %s", c.Relay.SDPTTL)
	}
	if c.Relay.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", c.Relay.SweepInterval)
	}
	if c.Relay.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.Relay.SendBuffer)
	}
	if c.Relay.PingPeriod <= 0 || c.Relay.PongWait <= 0 || c.Relay.WriteWait <= 0 {
		return errors.New("ping_period, pong_wait and write_wait must be positive")
	}
	if c.Relay.PingPeriod >= c.Relay.PongWait {
		return fmt.Errorf("ping_period (%s) must be shorter than pong_wait (%s)", c.Relay.PingPeriod, c.Relay.PongWait)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
