// Package config loads the client configuration from a YAML file with
// SLOTSYNC_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/view"
)

const envPrefix = "SLOTSYNC_"

const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

type Config struct {
	APIBaseURL                     string            `yaml:"api_base_url"`
	SalonID                        string            `yaml:"salon_id"`
	PollIntervalMs                 int               `yaml:"poll_interval_ms"`
	ReconciliationToleranceSeconds int               `yaml:"reconciliation_tolerance_seconds"`
	RequestTimeout                 time.Duration     `yaml:"request_timeout"`
	Capabilities                   view.Capabilities `yaml:"capabilities"`
	Identity                       IdentityConfig    `yaml:"identity"`
	Redis                          RedisConfig       `yaml:"redis"`
	Gateway                        GatewayConfig     `yaml:"gateway"`
	NATS                           NATSConfig        `yaml:"nats"`
	LogLevel                       string            `yaml:"log_level"`
}

type IdentityConfig struct {
	Store    string `yaml:"store"`
	Dir      string `yaml:"dir"`
	DeviceID string `yaml:"device_id"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		APIBaseURL:                     "http://localhost:8000",
		PollIntervalMs:                 3000,
		ReconciliationToleranceSeconds: 3,
		RequestTimeout:                 10 * time.Second,
		Identity: IdentityConfig{
			Store: StoreFile,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Gateway: GatewayConfig{
			Addr: ":8090",
		},
		NATS: NATSConfig{
			SubjectPrefix: "slotsync",
		},
		LogLevel: "info",
	}
}

// Load reads path (optional), applies environment overrides and validates
// the result. A missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist) && !required:
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.APIBaseURL, "API_BASE_URL")
	setString(&c.SalonID, "SALON_ID")
	setString(&c.Identity.Store, "IDENTITY_STORE")
	setString(&c.Identity.Dir, "IDENTITY_DIR")
	setString(&c.Identity.DeviceID, "DEVICE_ID")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Gateway.Addr, "GATEWAY_ADDR")
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.NATS.SubjectPrefix, "NATS_SUBJECT_PREFIX")
	setString(&c.LogLevel, "LOG_LEVEL")

	var errList []error
	errList = append(errList,
		setInt(&c.PollIntervalMs, "POLL_INTERVAL_MS"),
		setInt(&c.ReconciliationToleranceSeconds, "RECONCILIATION_TOLERANCE_SECONDS"),
		setInt(&c.Redis.DB, "REDIS_DB"),
		setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT"),
		setBool(&c.Gateway.Enabled, "GATEWAY_ENABLED"),
		setBool(&c.Capabilities.ShowHistory, "SHOW_HISTORY"),
		setBool(&c.Capabilities.MultiTenant, "MULTI_TENANT"),
	)
	return errors.Join(errList...)
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	var problems []error

	u, err := url.Parse(c.APIBaseURL)
	if c.APIBaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, errs.Invalid("api_base_url", "must be an http(s) URL"))
	}
	if c.PollIntervalMs <= 0 {
		problems = append(problems, errs.Invalid("poll_interval_ms", "must be positive"))
	}
	if c.ReconciliationToleranceSeconds <= 0 {
		problems = append(problems, errs.Invalid("reconciliation_tolerance_seconds", "must be positive"))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, errs.Invalid("request_timeout", "must be positive"))
	}
	switch c.Identity.Store {
	case StoreFile:
	case StoreRedis:
		if c.Redis.Addr == "" {
			problems = append(problems, errs.Invalid("redis.addr", "required for the redis identity store"))
		}
	default:
		problems = append(problems, errs.Invalid("identity.store", "must be file or redis"))
	}
	if c.Gateway.Enabled && c.Gateway.Addr == "" {
		problems = append(problems, errs.Invalid("gateway.addr", "required when the gateway is enabled"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		problems = append(problems, errs.Invalid("log_level", err.Error()))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(problems...))
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func setString(dst *string, key string) {
	if value, ok := lookup(key); ok {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, errs.Invalid(key, "must be an integer"))
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	value, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, errs.Invalid(key, "must be a boolean"))
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := cast.ToDurationE(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, errs.Invalid(key, "must be a duration"))
	}
	*dst = d
	return nil
}
