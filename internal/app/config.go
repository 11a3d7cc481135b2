package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/tooltable/internal/database"
)

// EnvPrefix namespaces environment overrides, e.g. TOOLTABLE_SERVER_PORT.
const EnvPrefix = "TOOLTABLE"

// Rate limit counter backends.
const (
	RateStoreMemory   = "memory"
	RateStoreDatabase = "database"
)

// Config represents the runtime configuration for the tool table portal.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Static      StaticConfig      `mapstructure:"static"`
	Icons       IconConfig        `mapstructure:"icons"`
	Search      SearchConfig      `mapstructure:"search"`
	Nodes       NodeConfig        `mapstructure:"nodes"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig bounds requests per client IP. Zero requests disables it.
// Store selects where counters live: "memory" (per process) or "database"
// (shared by every instance using the same database).
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Store    string        `mapstructure:"store"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver"`
	Path            string            `mapstructure:"path"`
	DSN             string            `mapstructure:"dsn"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Name            string            `mapstructure:"name"`
	User            string            `mapstructure:"user"`
	Password        string            `mapstructure:"password"`
	Options         map[string]string `mapstructure:"options"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
	Debug           bool              `mapstructure:"debug"`
}

// StaticConfig points at the directory holding index.html, admin.html and assets.
type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

// IconConfig configures the icon store.
type IconConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// SearchConfig bounds search result sizes.
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// NodeConfig tunes node code generation.
type NodeConfig struct {
	CodeRetries int `mapstructure:"code_retries"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	ChangeLogRetentionDays int    `mapstructure:"change_log_retention_days"`
	ChangeLogSchedule      string `mapstructure:"change_log_schedule"`
	CodeAuditSchedule      string `mapstructure:"code_audit_schedule"`
	IconAuditSchedule      string `mapstructure:"icon_audit_schedule"`
}

// DatabaseOptions converts the database section into connection options.
func (c DatabaseConfig) DatabaseOptions() database.Config {
	return database.Config{
		Driver:          c.Driver,
		Path:            c.Path,
		DSN:             c.DSN,
		Host:            c.Host,
		Port:            c.Port,
		Name:            c.Name,
		User:            c.User,
		Password:        c.Password,
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		Debug:           c.Debug,
	}
}

// LoadConfig reads config.yaml from ./config and the given paths, then applies
// TOOLTABLE_* environment overrides on top of the defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("config: search limits must satisfy 0 < default_limit <= max_limit")
	}
	switch strings.ToLower(strings.TrimSpace(c.Server.RateLimit.Store)) {
	case "", RateStoreMemory, RateStoreDatabase:
	default:
		return fmt.Errorf("config: server.rate_limit.store must be %q or %q", RateStoreMemory, RateStoreDatabase)
	}
	if c.Nodes.CodeRetries <= 0 {
		return fmt.Errorf("config: nodes.code_retries must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.requests", 300)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.rate_limit.store", RateStoreMemory)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/tool-table.db")

	v.SetDefault("static.dir", ".")
	v.SetDefault("icons.dir", "./resource/icon")
	v.SetDefault("icons.max_bytes", 2<<20)

	v.SetDefault("search.default_limit", 50)
	v.SetDefault("search.max_limit", 200)
	v.SetDefault("nodes.code_retries", 5)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.change_log_retention_days", 90)
	v.SetDefault("maintenance.change_log_schedule", "@daily")
	v.SetDefault("maintenance.code_audit_schedule", "@hourly")
	v.SetDefault("maintenance.icon_audit_schedule", "@hourly")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
