// Package config loads runtime configuration with precedence
// file > environment > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "THREADLINE_CONFIG_FILE"

// envPrefix namespaces all environment overrides, e.g.
// THREADLINE_SERVER__PORT=9000 sets server.port.
const envPrefix = "THREADLINE_"

var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/threadline/config.yaml",
}

// Config is the root of all runtime settings.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Auth      AuthConfig      `koanf:"auth"`
	S3        S3Config        `koanf:"s3"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type MongoConfig struct {
	URI         string        `koanf:"uri"`
	Database    string        `koanf:"database"`
	MaxPoolSize uint64        `koanf:"max_pool_size"`
	Timeout     time.Duration `koanf:"timeout"`
}

type AuthConfig struct {
	// JWTSecret signs session cookies; required at startup.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the cookie and token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`
}

type S3Config struct {
	Bucket string `koanf:"bucket"`
	Region string `koanf:"region"`

	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	Endpoint string `koanf:"endpoint"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `koanf:"ping_interval"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	BufferSize   int           `koanf:"buffer_size"`
}

// RateLimitConfig carries both the realtime recipient gate parameters
// and the per-IP HTTP limits applied to abuse-prone routes.
type RateLimitConfig struct {
	// RecipientLimit is the max distinct message recipients per user per
	// window before the realtime layer raises a warning.
	RecipientLimit  int           `koanf:"recipient_limit"`
	RecipientWindow time.Duration `koanf:"recipient_window"`

	AuthRequests   int           `koanf:"auth_requests"`
	AuthWindow     time.Duration `koanf:"auth_window"`
	SignupRequests int           `koanf:"signup_requests"`
	SignupWindow   time.Duration `koanf:"signup_window"`
	SendRequests   int           `koanf:"send_requests"`
	SendWindow     time.Duration `koanf:"send_window"`
}

type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns the settings used when neither file nor
// environment overrides them.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Mongo: MongoConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "threadline",
			MaxPoolSize: 20,
			Timeout:     10 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: "",
			TokenTTL:  7 * 24 * time.Hour,
		},
		S3: S3Config{
			Bucket:   "",
			Region:   "us-east-1",
			Endpoint: "",
		},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			BufferSize:   100,
		},
		RateLimit: RateLimitConfig{
			RecipientLimit:  10,
			RecipientWindow: time.Minute,
			AuthRequests:    5,
			AuthWindow:      15 * time.Minute,
			SignupRequests:  3,
			SignupWindow:    time.Hour,
			SendRequests:    20,
			SendWindow:      time.Minute,
		},
		CORS: CORSConfig{
			Origins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the effective configuration: defaults, then an optional
// YAML file, then THREADLINE_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps THREADLINE_SERVER__READ_TIMEOUT to server.read_timeout.
// Double underscore separates sections so single underscores survive
// inside key names.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo URI cannot be empty")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo database cannot be empty")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token TTL must be positive")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.ReadTimeout <= 0 || c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("websocket intervals must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("websocket buffer size must be positive")
	}
	if c.RateLimit.RecipientLimit <= 0 || c.RateLimit.RecipientWindow <= 0 {
		return fmt.Errorf("recipient rate limit and window must be positive")
	}
	return nil
}
