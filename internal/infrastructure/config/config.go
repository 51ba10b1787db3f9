package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Dispatcher DispatcherConfig
	Backfill   BackfillConfig
	Conflict   ConflictConfig
	Platforms  PlatformsConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the idempotency store
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// DispatcherConfig holds the adaptive dispatcher thresholds and the durable
// queue worker settings
type DispatcherConfig struct {
	RateThreshold    int
	WindowThreshold  int
	WindowSpan       time.Duration
	RecentSpan       time.Duration
	Workers          int
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// BackfillConfig holds the gap-remediation cost model
type BackfillConfig struct {
	PhotoUnitCost       float64
	DescriptionUnitCost float64
	BarcodeUnitCost     float64
	PricingUnitCost     float64
	BatchSize           int
}

// ConflictConfig holds conflict resolution settings
type ConflictConfig struct {
	// IdempotencyTTL bounds how long a webhook correlation ID is remembered
	IdempotencyTTL time.Duration
}

// PlatformsConfig allows overriding the built-in platform behavior table.
// Keys are platform type names; values mirror the behavior rule fields.
type PlatformsConfig struct {
	Overrides map[string]PlatformOverride
}

// PlatformOverride is one configured platform behavior rule
type PlatformOverride struct {
	InventoryBehavior     string
	DelistThreshold       int64
	SupportsInventorySync bool
	SupportsPricingSync   bool
	SupportsMetadataSync  bool
	ListingRequiresImages bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SSSYNC_ prefix (e.g., SSSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Missing config file is fine, defaults and env vars apply.
	}

	v.SetEnvPrefix("SSSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Dispatcher: DispatcherConfig{
			RateThreshold:    v.GetInt("dispatcher.rate_threshold"),
			WindowThreshold:  v.GetInt("dispatcher.window_threshold"),
			WindowSpan:       v.GetDuration("dispatcher.window_span"),
			RecentSpan:       v.GetDuration("dispatcher.recent_span"),
			Workers:          v.GetInt("dispatcher.workers"),
			BatchSize:        v.GetInt("dispatcher.batch_size"),
			PollInterval:     v.GetDuration("dispatcher.poll_interval"),
			CleanupEnabled:   v.GetBool("dispatcher.cleanup_enabled"),
			CleanupRetention: v.GetDuration("dispatcher.cleanup_retention"),
			CleanupInterval:  v.GetDuration("dispatcher.cleanup_interval"),
		},
		Backfill: BackfillConfig{
			PhotoUnitCost:       v.GetFloat64("backfill.photo_unit_cost"),
			DescriptionUnitCost: v.GetFloat64("backfill.description_unit_cost"),
			BarcodeUnitCost:     v.GetFloat64("backfill.barcode_unit_cost"),
			PricingUnitCost:     v.GetFloat64("backfill.pricing_unit_cost"),
			BatchSize:           v.GetInt("backfill.batch_size"),
		},
		Conflict: ConflictConfig{
			IdempotencyTTL: v.GetDuration("conflict.idempotency_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	if err := v.UnmarshalKey("platforms", &cfg.Platforms.Overrides); err != nil {
		return nil, fmt.Errorf("error parsing platform overrides: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sssync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sssync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Dispatcher.RateThreshold == 0 {
		cfg.Dispatcher.RateThreshold = 5
	}
	if cfg.Dispatcher.WindowThreshold == 0 {
		cfg.Dispatcher.WindowThreshold = 75
	}
	if cfg.Dispatcher.WindowSpan == 0 {
		cfg.Dispatcher.WindowSpan = 15 * time.Second
	}
	if cfg.Dispatcher.RecentSpan == 0 {
		cfg.Dispatcher.RecentSpan = time.Second
	}
	if cfg.Dispatcher.Workers == 0 {
		cfg.Dispatcher.Workers = 4
	}
	if cfg.Dispatcher.BatchSize == 0 {
		cfg.Dispatcher.BatchSize = 100
	}
	if cfg.Dispatcher.PollInterval == 0 {
		cfg.Dispatcher.PollInterval = time.Second
	}
	if cfg.Dispatcher.CleanupRetention == 0 {
		cfg.Dispatcher.CleanupRetention = 168 * time.Hour
	}
	if cfg.Dispatcher.CleanupInterval == 0 {
		cfg.Dispatcher.CleanupInterval = time.Hour
	}
	if cfg.Backfill.PhotoUnitCost == 0 {
		cfg.Backfill.PhotoUnitCost = 0.50
	}
	if cfg.Backfill.DescriptionUnitCost == 0 {
		cfg.Backfill.DescriptionUnitCost = 0.03
	}
	if cfg.Backfill.BarcodeUnitCost == 0 {
		cfg.Backfill.BarcodeUnitCost = 0.10
	}
	if cfg.Backfill.PricingUnitCost == 0 {
		cfg.Backfill.PricingUnitCost = 0.05
	}
	if cfg.Backfill.BatchSize == 0 {
		cfg.Backfill.BatchSize = 25
	}
	if cfg.Conflict.IdempotencyTTL == 0 {
		cfg.Conflict.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sssync-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Dispatcher.RateThreshold < 0 {
		return fmt.Errorf("dispatcher.rate_threshold cannot be negative")
	}
	if c.Dispatcher.WindowThreshold < c.Dispatcher.RateThreshold {
		return fmt.Errorf("dispatcher.window_threshold (%d) cannot be below dispatcher.rate_threshold (%d)",
			c.Dispatcher.WindowThreshold, c.Dispatcher.RateThreshold)
	}
	if c.Dispatcher.RecentSpan > c.Dispatcher.WindowSpan {
		return fmt.Errorf("dispatcher.recent_span cannot exceed dispatcher.window_span")
	}

	if c.Backfill.BatchSize <= 0 {
		return fmt.Errorf("backfill.batch_size must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
