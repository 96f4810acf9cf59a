package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MinPredictionTimeout = 15 * time.Second
	MaxPredictionTimeout = 30 * time.Second
)

type Config struct {
	ListenAddr string          `yaml:"listen_addr"`
	API        APIConfig       `yaml:"api"`
	Log        LogConfig       `yaml:"log"`
	History    HistoryConfig   `yaml:"history"`
	Heartbeat  HeartbeatConfig `yaml:"heartbeat"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Buffer int    `yaml:"buffer"`
}

// HistoryConfig selects where trend points live. Backend is "memory" or
// "redis".
type HistoryConfig struct {
	Backend         string        `yaml:"backend"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPrefix     string        `yaml:"redis_prefix"`
	Capacity        int           `yaml:"capacity"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// RateLimitConfig bounds predict calls per second across all modules.
// A Rate of zero disables the limiter.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		ListenAddr: ":8080",
		API: APIConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: MaxPredictionTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Buffer: 1000,
		},
		History: HistoryConfig{
			Backend:         "memory",
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "rul",
			Capacity:        50,
			TTL:             24 * time.Hour,
			CleanupInterval: time.Minute,
		},
		Heartbeat: HeartbeatConfig{
			Interval: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Rate:  5,
			Burst: 10,
		},
	}
}

// Load reads defaults, then the YAML file named by CONFIG_FILE if set,
// then environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.API.BaseURL = getEnv("API_BASE_URL", getEnv("VITE_API_BASE_URL", c.API.BaseURL))
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.History.Backend = getEnv("HISTORY_BACKEND", c.History.Backend)
	c.History.RedisAddr = getEnv("REDIS_ADDR", c.History.RedisAddr)
	c.History.RedisPrefix = getEnv("REDIS_PREFIX", c.History.RedisPrefix)

	var err error
	if c.API.Timeout, err = getEnvAsDuration("PREDICTION_TIMEOUT", c.API.Timeout); err != nil {
		return err
	}
	if c.History.TTL, err = getEnvAsDuration("HISTORY_TTL", c.History.TTL); err != nil {
		return err
	}
	if c.History.CleanupInterval, err = getEnvAsDuration("HISTORY_CLEANUP_INTERVAL", c.History.CleanupInterval); err != nil {
		return err
	}
	if c.Heartbeat.Interval, err = getEnvAsDuration("HEARTBEAT_INTERVAL", c.Heartbeat.Interval); err != nil {
		return err
	}
	if c.Log.Buffer, err = getEnvAsInt("LOG_BUFFER", c.Log.Buffer); err != nil {
		return err
	}
	if c.History.Capacity, err = getEnvAsInt("HISTORY_CAPACITY", c.History.Capacity); err != nil {
		return err
	}
	if c.RateLimit.Burst, err = getEnvAsInt("PREDICT_BURST", c.RateLimit.Burst); err != nil {
		return err
	}
	if c.RateLimit.Rate, err = getEnvAsFloat("PREDICT_RATE", c.RateLimit.Rate); err != nil {
		return err
	}
	return nil
}

var (
	ErrInvalidTimeout  = errors.New("prediction timeout out of range")
	ErrInvalidBackend  = errors.New("unknown history backend")
	ErrInvalidInterval = errors.New("interval must be positive")
)

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	if c.API.Timeout < MinPredictionTimeout || c.API.Timeout > MaxPredictionTimeout {
		return fmt.Errorf("%w: %s not within %s..%s",
			ErrInvalidTimeout, c.API.Timeout, MinPredictionTimeout, MaxPredictionTimeout)
	}
	switch c.History.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.History.Backend)
	}
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("%w: heartbeat interval %s", ErrInvalidInterval, c.Heartbeat.Interval)
	}
	if c.History.TTL > 0 && c.History.CleanupInterval <= 0 {
		return fmt.Errorf("%w: history cleanup interval %s", ErrInvalidInterval, c.History.CleanupInterval)
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", c.History.Capacity)
	}
	if c.Log.Buffer <= 0 {
		return fmt.Errorf("log buffer must be positive, got %d", c.Log.Buffer)
	}
	if c.RateLimit.Rate < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
