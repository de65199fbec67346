package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "FEEDSYNC"

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Storage      StorageConfig
	Sync         SyncConfig
	Scheduler    SchedulerConfig
	Queue        QueueConfig
	Features     FeatureConfig
	Platforms    map[string]PlatformConfig
	Notification NotificationConfig
	Telemetry    TelemetryConfig
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
	LogLevel        string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
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
	CORSOrigins    []string
	RateLimit      float64 // requests per second per merchant, 0 = unlimited
	RateBurst      int
}

// StorageConfig holds feed object storage settings
type StorageConfig struct {
	Driver            string // s3 or local
	Endpoint          string
	Bucket            string
	Region            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PublicBaseURL     string // when set, feeds are addressed here instead of presigned
	PresignExpiration time.Duration
	LocalDir          string
	LocalBaseURL      string
}

// SyncConfig holds sync attempt and delivery retry settings
type SyncConfig struct {
	MaxRetries          int
	InitialDelay        time.Duration
	MaxDelay            time.Duration
	Jitter              float64
	LockTTL             time.Duration
	QuarantineThreshold int
	AttemptTimeout      time.Duration
	IdempotencyTTL      time.Duration
}

// SchedulerConfig holds the periodic sync scheduler settings
type SchedulerConfig struct {
	Enabled  bool
	Interval string // "4h" or "@every 4h"
}

// QueueConfig holds trigger transport settings
type QueueConfig struct {
	Driver        string // redis or memory
	Stream        string
	Group         string
	Consumer      string
	Workers       int
	BatchSize     int
	Block         time.Duration
	ClaimMinIdle  time.Duration
	MaxDeliveries int
}

// FeatureConfig holds feature flags
type FeatureConfig struct {
	RealtimeIngestion bool
	AutoQuarantine    bool
}

// PlatformConfig holds API settings and account credentials for one ad platform
type PlatformConfig struct {
	BaseURL   string
	APIKey    string
	AccountID string
	RateLimit float64 // requests per second, 0 = unlimited
	Timeout   time.Duration
}

// NotificationConfig holds merchant notification settings
type NotificationConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	MetricInterval    time.Duration
	LogsEnabled       bool
	Profiling         ProfilingConfig
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled       bool
	ServerAddress string
	SpanProfiles  bool
}

// platformKeys are the config sections read under [platforms.*]
var platformKeys = []string{
	"google_merchant_center",
	"meta_catalog",
	"tiktok_shopping",
	"pinterest_catalog",
	"bing_shopping",
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FEEDSYNC_ prefix (e.g., FEEDSYNC_SYNC_MAX_RETRIES)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return loadFrom(v)
}

func loadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setZeroValueDefaults(v)

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
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
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
			CORSOrigins:    v.GetStringSlice("http.cors_origins"),
			RateLimit:      v.GetFloat64("http.rate_limit"),
			RateBurst:      v.GetInt("http.rate_burst"),
		},
		Storage: StorageConfig{
			Driver:            v.GetString("storage.driver"),
			Endpoint:          v.GetString("storage.endpoint"),
			Bucket:            v.GetString("storage.bucket"),
			Region:            v.GetString("storage.region"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PublicBaseURL:     v.GetString("storage.public_base_url"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			LocalDir:          v.GetString("storage.local_dir"),
			LocalBaseURL:      v.GetString("storage.local_base_url"),
		},
		Sync: SyncConfig{
			MaxRetries:          v.GetInt("sync.max_retries"),
			InitialDelay:        v.GetDuration("sync.initial_delay"),
			MaxDelay:            v.GetDuration("sync.max_delay"),
			Jitter:              v.GetFloat64("sync.jitter"),
			LockTTL:             v.GetDuration("sync.lock_ttl"),
			QuarantineThreshold: v.GetInt("sync.quarantine_threshold"),
			AttemptTimeout:      v.GetDuration("sync.attempt_timeout"),
			IdempotencyTTL:      v.GetDuration("sync.idempotency_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			Interval: v.GetString("scheduler.interval"),
		},
		Queue: QueueConfig{
			Driver:        v.GetString("queue.driver"),
			Stream:        v.GetString("queue.stream"),
			Group:         v.GetString("queue.group"),
			Consumer:      v.GetString("queue.consumer"),
			Workers:       v.GetInt("queue.workers"),
			BatchSize:     v.GetInt("queue.batch_size"),
			Block:         v.GetDuration("queue.block"),
			ClaimMinIdle:  v.GetDuration("queue.claim_min_idle"),
			MaxDeliveries: v.GetInt("queue.max_deliveries"),
		},
		Features: FeatureConfig{
			RealtimeIngestion: v.GetBool("features.realtime_ingestion"),
			AutoQuarantine:    v.GetBool("features.auto_quarantine"),
		},
		Platforms: make(map[string]PlatformConfig, len(platformKeys)),
		Notification: NotificationConfig{
			WebhookURL: v.GetString("notification.webhook_url"),
			Timeout:    v.GetDuration("notification.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			MetricInterval:    v.GetDuration("telemetry.metric_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			Profiling: ProfilingConfig{
				Enabled:       v.GetBool("telemetry.profiling.enabled"),
				ServerAddress: v.GetString("telemetry.profiling.server_address"),
				SpanProfiles:  v.GetBool("telemetry.profiling.span_profiles"),
			},
		},
	}

	for _, key := range platformKeys {
		prefix := "platforms." + key + "."
		cfg.Platforms[key] = PlatformConfig{
			BaseURL:   v.GetString(prefix + "base_url"),
			APIKey:    v.GetString(prefix + "api_key"),
			AccountID: v.GetString(prefix + "account_id"),
			RateLimit: v.GetFloat64(prefix + "rate_limit"),
			Timeout:   v.GetDuration(prefix + "timeout"),
		}
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setZeroValueDefaults registers defaults for settings whose zero value is a
// legitimate choice, which applyDefaults cannot tell apart from "unset"
func setZeroValueDefaults(v *viper.Viper) {
	v.SetDefault("features.realtime_ingestion", true)
	v.SetDefault("features.auto_quarantine", false)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.jitter", 0.2)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "feedsync"
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
		cfg.Database.DBName = "feedsync"
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
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
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
		cfg.HTTP.WriteTimeout = 30 * time.Second
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
	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateBurst == 0 {
		cfg.HTTP.RateBurst = max(int(cfg.HTTP.RateLimit*2), 1)
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 7 * 24 * time.Hour // S3 presign maximum
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "./data/feeds"
	}
	if cfg.Storage.LocalBaseURL == "" {
		cfg.Storage.LocalBaseURL = "http://localhost:8080/feeds"
	}
	if cfg.Sync.InitialDelay == 0 {
		cfg.Sync.InitialDelay = time.Second
	}
	if cfg.Sync.MaxDelay == 0 {
		cfg.Sync.MaxDelay = 30 * time.Second
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 20 * time.Minute
	}
	if cfg.Sync.QuarantineThreshold == 0 {
		cfg.Sync.QuarantineThreshold = 5
	}
	if cfg.Sync.AttemptTimeout == 0 {
		cfg.Sync.AttemptTimeout = 15 * time.Minute
	}
	if cfg.Sync.IdempotencyTTL == 0 {
		cfg.Sync.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = "4h"
	}
	if cfg.Queue.Driver == "" {
		cfg.Queue.Driver = "memory"
	}
	if cfg.Queue.Stream == "" {
		cfg.Queue.Stream = "feedsync:triggers"
	}
	if cfg.Queue.Group == "" {
		cfg.Queue.Group = "feedsync-workers"
	}
	if cfg.Queue.Consumer == "" {
		cfg.Queue.Consumer = cfg.App.Name
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 1
	}
	if cfg.Queue.Block == 0 {
		cfg.Queue.Block = 5 * time.Second
	}
	if cfg.Queue.ClaimMinIdle == 0 {
		cfg.Queue.ClaimMinIdle = time.Minute
	}
	if cfg.Queue.MaxDeliveries == 0 {
		cfg.Queue.MaxDeliveries = 5
	}
	for key, p := range cfg.Platforms {
		if p.Timeout == 0 {
			p.Timeout = 30 * time.Second
		}
		cfg.Platforms[key] = p
	}
	if cfg.Notification.Timeout == 0 {
		cfg.Notification.Timeout = 5 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricInterval == 0 {
		cfg.Telemetry.MetricInterval = 15 * time.Second
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

	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries cannot be negative")
	}
	if c.Sync.InitialDelay > c.Sync.MaxDelay {
		return fmt.Errorf("sync.initial_delay (%s) cannot exceed sync.max_delay (%s)", c.Sync.InitialDelay, c.Sync.MaxDelay)
	}
	if c.Sync.Jitter < 0 || c.Sync.Jitter > 1 {
		return fmt.Errorf("sync.jitter must be between 0.0 and 1.0, got %f", c.Sync.Jitter)
	}
	if c.Sync.QuarantineThreshold < 1 {
		return fmt.Errorf("sync.quarantine_threshold must be positive")
	}
	if c.Sync.AttemptTimeout <= 0 {
		return fmt.Errorf("sync.attempt_timeout must be positive")
	}
	// the catalog lease must outlive the longest attempt
	if c.Sync.LockTTL <= c.Sync.AttemptTimeout {
		return fmt.Errorf("sync.lock_ttl (%s) must exceed sync.attempt_timeout (%s)", c.Sync.LockTTL, c.Sync.AttemptTimeout)
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 's3' or 'local', got %q", c.Storage.Driver)
	}

	switch c.Queue.Driver {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("queue.driver=redis requires redis.enabled=true")
		}
	default:
		return fmt.Errorf("queue.driver must be 'redis' or 'memory', got %q", c.Queue.Driver)
	}
	if c.Queue.ClaimMinIdle < 3*time.Second {
		return fmt.Errorf("queue.claim_min_idle must be at least 3s, got %s", c.Queue.ClaimMinIdle)
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be positive")
	}
	if c.Queue.BatchSize < 1 {
		return fmt.Errorf("queue.batch_size must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Queue.Driver == "memory" {
			return fmt.Errorf("queue.driver=memory loses triggers on restart and is not allowed in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.Profiling.Enabled && c.Telemetry.Profiling.ServerAddress == "" {
		return fmt.Errorf("telemetry.profiling.server_address is required when profiling is enabled")
	}
	return nil
}

// Platform returns the configuration for a platform code such as GOOGLE_MERCHANT_CENTER
func (c *Config) Platform(code string) (PlatformConfig, bool) {
	p, ok := c.Platforms[strings.ToLower(code)]
	return p, ok && p.BaseURL != ""
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
