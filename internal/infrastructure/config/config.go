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
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Breaker   BreakerConfig
	Intake    IntakeConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
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

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage settings. The canonical and backup
// buckets back the dual-write commit; the quarantine bucket holds uploads
// that have not yet cleared the pipeline.
type StorageConfig struct {
	Endpoint         string // Custom endpoint for S3-compatible storage (empty = AWS)
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	ForcePathStyle   bool // Required for MinIO and most S3-compatible stores
	CanonicalBucket  string
	BackupBucket     string
	QuarantineBucket string
	CanonicalPrefix  string
	BackupPrefix     string
	QuarantinePrefix string
}

// BreakerConfig holds per-source circuit breaker thresholds
type BreakerConfig struct {
	ConsecutiveThreshold int
	ErrorRateThreshold   float64
	Window               time.Duration
	MinSamples           int
	Cooldown             time.Duration
}

// IntakeConfig holds document intake pipeline settings
type IntakeConfig struct {
	MaxUploadSize               int64 // bytes
	MaxWorkers                  int64
	ParseTimeout                time.Duration
	MinAttributionConfidence    float64
	MinClassificationConfidence float64
	ClaimTTL                    time.Duration // how long a checksum claim is held
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // OTEL Collector gRPC endpoint (e.g., "localhost:4317")
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DOCINTAKE_ prefix (e.g., DOCINTAKE_DATABASE_PASSWORD)
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
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DOCINTAKE")
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
		Storage: StorageConfig{
			Endpoint:         v.GetString("storage.endpoint"),
			Region:           v.GetString("storage.region"),
			AccessKeyID:      v.GetString("storage.access_key_id"),
			SecretAccessKey:  v.GetString("storage.secret_access_key"),
			ForcePathStyle:   v.GetBool("storage.force_path_style"),
			CanonicalBucket:  v.GetString("storage.canonical_bucket"),
			BackupBucket:     v.GetString("storage.backup_bucket"),
			QuarantineBucket: v.GetString("storage.quarantine_bucket"),
			CanonicalPrefix:  v.GetString("storage.canonical_prefix"),
			BackupPrefix:     v.GetString("storage.backup_prefix"),
			QuarantinePrefix: v.GetString("storage.quarantine_prefix"),
		},
		Breaker: BreakerConfig{
			ConsecutiveThreshold: v.GetInt("breaker.consecutive_threshold"),
			ErrorRateThreshold:   v.GetFloat64("breaker.error_rate_threshold"),
			Window:               v.GetDuration("breaker.window"),
			MinSamples:           v.GetInt("breaker.min_samples"),
			Cooldown:             v.GetDuration("breaker.cooldown"),
		},
		Intake: IntakeConfig{
			MaxUploadSize:               v.GetInt64("intake.max_upload_size"),
			MaxWorkers:                  v.GetInt64("intake.max_workers"),
			ParseTimeout:                v.GetDuration("intake.parse_timeout"),
			MinAttributionConfidence:    v.GetFloat64("intake.min_attribution_confidence"),
			MinClassificationConfidence: v.GetFloat64("intake.min_classification_confidence"),
			ClaimTTL:                    v.GetDuration("intake.claim_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
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
		cfg.App.Name = "docintake-backend"
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
		cfg.Database.DBName = "docintake"
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
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.CanonicalBucket == "" {
		cfg.Storage.CanonicalBucket = "docintake-canonical"
	}
	if cfg.Storage.BackupBucket == "" {
		cfg.Storage.BackupBucket = "docintake-backup"
	}
	if cfg.Storage.QuarantineBucket == "" {
		cfg.Storage.QuarantineBucket = "docintake-quarantine"
	}
	if cfg.Storage.CanonicalPrefix == "" {
		cfg.Storage.CanonicalPrefix = "documents"
	}
	if cfg.Storage.BackupPrefix == "" {
		cfg.Storage.BackupPrefix = "backup"
	}
	if cfg.Storage.QuarantinePrefix == "" {
		cfg.Storage.QuarantinePrefix = "quarantine"
	}
	if cfg.Breaker.ConsecutiveThreshold == 0 {
		cfg.Breaker.ConsecutiveThreshold = 5
	}
	if cfg.Breaker.ErrorRateThreshold == 0 {
		cfg.Breaker.ErrorRateThreshold = 0.15
	}
	if cfg.Breaker.Window == 0 {
		cfg.Breaker.Window = 10 * time.Minute
	}
	if cfg.Breaker.MinSamples == 0 {
		cfg.Breaker.MinSamples = 3
	}
	if cfg.Breaker.Cooldown == 0 {
		cfg.Breaker.Cooldown = 60 * time.Minute
	}
	if cfg.Intake.MaxUploadSize == 0 {
		cfg.Intake.MaxUploadSize = 50 << 20 // 50MB
	}
	if cfg.Intake.MaxWorkers == 0 {
		cfg.Intake.MaxWorkers = 8
	}
	if cfg.Intake.ParseTimeout == 0 {
		cfg.Intake.ParseTimeout = 30 * time.Second
	}
	if cfg.Intake.MinAttributionConfidence == 0 {
		cfg.Intake.MinAttributionConfidence = 0.98
	}
	if cfg.Intake.MinClassificationConfidence == 0 {
		cfg.Intake.MinClassificationConfidence = 0.98
	}
	if cfg.Intake.ClaimTTL == 0 {
		cfg.Intake.ClaimTTL = time.Hour
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
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = cfg.Intake.MaxUploadSize + (1 << 20)
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly
	// configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "docintake-backend"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 15 * time.Second
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

	if c.Breaker.ErrorRateThreshold < 0 || c.Breaker.ErrorRateThreshold > 1 {
		return fmt.Errorf("breaker.error_rate_threshold must be between 0 and 1, got %f", c.Breaker.ErrorRateThreshold)
	}
	if c.Intake.MinAttributionConfidence < 0 || c.Intake.MinAttributionConfidence > 1 {
		return fmt.Errorf("intake.min_attribution_confidence must be between 0 and 1, got %f", c.Intake.MinAttributionConfidence)
	}
	if c.Intake.MinClassificationConfidence < 0 || c.Intake.MinClassificationConfidence > 1 {
		return fmt.Errorf("intake.min_classification_confidence must be between 0 and 1, got %f", c.Intake.MinClassificationConfidence)
	}

	if c.Storage.CanonicalBucket == c.Storage.BackupBucket {
		return fmt.Errorf("storage.canonical_bucket and storage.backup_bucket must differ for the backup to survive a bucket loss")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
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

// Addr returns the host:port pair for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
