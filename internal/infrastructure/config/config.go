package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Queue      QueueConfig
	Sync       SyncConfig
	Forecast   ForecastConfig
	Storefront StorefrontConfig
	Telemetry  TelemetryConfig
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
	ConnMaxLifetime int  // in minutes
	ConnMaxIdleTime int  // in minutes
	AutoMigrate     bool // apply embedded migrations on server start
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration

	// AccountRateLimit is the sustained rate of mutating requests per account (req/s)
	AccountRateLimit float64
	AccountRateBurst int

	// CORSAllowOrigins lists dashboard origins; empty disables cross-origin access
	CORSAllowOrigins []string
	// MetricsAllowedIPs restricts /metrics to these IPs or CIDRs; empty allows all
	MetricsAllowedIPs []string
}

// QueueConfig selects the work queue backend
type QueueConfig struct {
	Backend   string // memory or redis
	KeyPrefix string
	LockTTL   time.Duration
}

// SyncConfig holds bulk sync orchestration settings
type SyncConfig struct {
	StaleAfter        time.Duration // active job without progress for longer is force-failed on re-enqueue
	Workers           int
	PollInterval      time.Duration
	Concurrency       int // products reconciled in parallel within one pass
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	TriggerInterval   time.Duration // zero disables the scheduled trigger
	TriggerOnStart    bool
}

// ForecastConfig holds demand forecasting parameters
type ForecastConfig struct {
	WindowDays          int
	DefaultLeadTimeDays int
	ReviewDays          int
	ServiceZ            float64
}

// StorefrontConfig holds the storefront REST API settings
type StorefrontConfig struct {
	BaseURL    string
	AuthMethod string // bearer or basic
	APIKey     string
	APISecret  string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	RateBurst  int

	// Accounts maps an account ID to its own storefront. When any are listed
	// the fields above no longer serve unlisted accounts.
	Accounts map[string]StorefrontAccountConfig
}

// StorefrontAccountConfig is one account's entry under [storefront.accounts.<id>]
type StorefrontAccountConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	AuthMethod string        `mapstructure:"auth_method"`
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	// LogsEnabled exports log records over OTLP alongside the local output
	LogsEnabled bool
	// Metrics options
	MetricsEnabled  bool
	MetricsExporter string // otlp or prometheus
	MetricsInterval time.Duration
	// Database tracing options
	DBTraceEnabled    bool
	DBLogFullSQL      bool // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with INVSYNC_ prefix (e.g., INVSYNC_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("INVSYNC")
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
			AutoMigrate:     v.GetBool("database.auto_migrate"),
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
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodyBytes:    v.GetInt64("http.max_body_bytes"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),

			AccountRateLimit: v.GetFloat64("http.account_rate_limit"),
			AccountRateBurst: v.GetInt("http.account_rate_burst"),

			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			MetricsAllowedIPs: v.GetStringSlice("http.metrics_allowed_ips"),
		},
		Queue: QueueConfig{
			Backend:   v.GetString("queue.backend"),
			KeyPrefix: v.GetString("queue.key_prefix"),
			LockTTL:   v.GetDuration("queue.lock_ttl"),
		},
		Sync: SyncConfig{
			StaleAfter:        v.GetDuration("sync.stale_after"),
			Workers:           v.GetInt("sync.workers"),
			PollInterval:      v.GetDuration("sync.poll_interval"),
			Concurrency:       v.GetInt("sync.concurrency"),
			JobTimeout:        v.GetDuration("sync.job_timeout"),
			HeartbeatInterval: v.GetDuration("sync.heartbeat_interval"),
			TriggerInterval:   v.GetDuration("sync.trigger_interval"),
			TriggerOnStart:    v.GetBool("sync.trigger_on_start"),
		},
		Forecast: ForecastConfig{
			WindowDays:          v.GetInt("forecast.window_days"),
			DefaultLeadTimeDays: v.GetInt("forecast.default_lead_time_days"),
			ReviewDays:          v.GetInt("forecast.review_days"),
			ServiceZ:            v.GetFloat64("forecast.service_z"),
		},
		Storefront: StorefrontConfig{
			BaseURL:    v.GetString("storefront.base_url"),
			AuthMethod: v.GetString("storefront.auth_method"),
			APIKey:     v.GetString("storefront.api_key"),
			APISecret:  v.GetString("storefront.api_secret"),
			Timeout:    v.GetDuration("storefront.timeout"),
			RateLimit:  v.GetFloat64("storefront.rate_limit"),
			RateBurst:  v.GetInt("storefront.rate_burst"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsExporter:   v.GetString("telemetry.metrics_exporter"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	if err := v.UnmarshalKey("storefront.accounts", &cfg.Storefront.Accounts); err != nil {
		return nil, fmt.Errorf("storefront.accounts: %w", err)
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
		cfg.App.Name = "inventory-sync"
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
		cfg.Database.DBName = "inventory"
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
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.AccountRateLimit == 0 {
		cfg.HTTP.AccountRateLimit = 2
	}
	if cfg.HTTP.AccountRateBurst == 0 {
		cfg.HTTP.AccountRateBurst = 10
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "memory"
	}
	if cfg.Queue.KeyPrefix == "" {
		cfg.Queue.KeyPrefix = "invsync:"
	}
	if cfg.Queue.LockTTL == 0 {
		cfg.Queue.LockTTL = 2 * time.Minute
	}
	if cfg.Sync.StaleAfter == 0 {
		cfg.Sync.StaleAfter = 10 * time.Minute
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 2
	}
	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = 2 * time.Second
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 4
	}
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 30 * time.Minute
	}
	if cfg.Sync.HeartbeatInterval == 0 {
		cfg.Sync.HeartbeatInterval = 30 * time.Second
	}
	// TriggerInterval stays zero (disabled) unless configured
	if cfg.Forecast.WindowDays == 0 {
		cfg.Forecast.WindowDays = 90
	}
	if cfg.Forecast.DefaultLeadTimeDays == 0 {
		cfg.Forecast.DefaultLeadTimeDays = 14
	}
	if cfg.Forecast.ReviewDays == 0 {
		cfg.Forecast.ReviewDays = 7
	}
	if cfg.Forecast.ServiceZ == 0 {
		cfg.Forecast.ServiceZ = 1.65
	}
	if cfg.Storefront.AuthMethod == "" {
		cfg.Storefront.AuthMethod = "basic"
	}
	if cfg.Storefront.Timeout == 0 {
		cfg.Storefront.Timeout = 15 * time.Second
	}
	if cfg.Storefront.RateLimit == 0 {
		cfg.Storefront.RateLimit = 5
	}
	if cfg.Storefront.RateBurst == 0 {
		cfg.Storefront.RateBurst = 10
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "inventory-sync"
	}
	if cfg.Telemetry.MetricsExporter == "" {
		cfg.Telemetry.MetricsExporter = "prometheus"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
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

	switch c.Queue.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("queue.backend must be memory or redis, got %q", c.Queue.Backend)
	}

	if c.Sync.Workers < 0 || c.Sync.Concurrency < 0 {
		return fmt.Errorf("sync.workers and sync.concurrency cannot be negative")
	}
	if c.Sync.HeartbeatInterval >= c.Sync.StaleAfter {
		return fmt.Errorf("sync.heartbeat_interval (%s) must be shorter than sync.stale_after (%s)",
			c.Sync.HeartbeatInterval, c.Sync.StaleAfter)
	}
	if c.Queue.Backend == "redis" && c.Sync.HeartbeatInterval >= c.Queue.LockTTL {
		return fmt.Errorf("sync.heartbeat_interval (%s) must be shorter than queue.lock_ttl (%s)",
			c.Sync.HeartbeatInterval, c.Queue.LockTTL)
	}
	if c.Sync.TriggerInterval < 0 {
		return fmt.Errorf("sync.trigger_interval cannot be negative")
	}

	if c.Forecast.WindowDays < 14 {
		return fmt.Errorf("forecast.window_days must be at least 14, got %d", c.Forecast.WindowDays)
	}
	if c.Forecast.ServiceZ < 0 {
		return fmt.Errorf("forecast.service_z cannot be negative")
	}

	switch c.Storefront.AuthMethod {
	case "basic", "bearer":
	default:
		return fmt.Errorf("storefront.auth_method must be basic or bearer, got %q", c.Storefront.AuthMethod)
	}
	if c.Storefront.BaseURL != "" && !absoluteURL(c.Storefront.BaseURL) {
		return fmt.Errorf("storefront.base_url must be an absolute URL, got %q", c.Storefront.BaseURL)
	}
	for id, account := range c.Storefront.Accounts {
		key := "storefront.accounts." + id
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%s: key must be an account UUID", key)
		}
		if !absoluteURL(account.BaseURL) {
			return fmt.Errorf("%s.base_url must be an absolute URL, got %q", key, account.BaseURL)
		}
		if account.APIKey == "" {
			return fmt.Errorf("%s.api_key is required", key)
		}
		switch account.AuthMethod {
		case "", "basic", "bearer":
		default:
			return fmt.Errorf("%s.auth_method must be basic or bearer, got %q", key, account.AuthMethod)
		}
	}

	switch c.Telemetry.MetricsExporter {
	case "otlp", "prometheus":
	default:
		return fmt.Errorf("telemetry.metrics_exporter must be otlp or prometheus, got %q", c.Telemetry.MetricsExporter)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if len(c.Storefront.Accounts) == 0 && c.Storefront.BaseURL == "" {
			return fmt.Errorf("storefront.base_url or storefront.accounts is required in production")
		}
		if c.Storefront.BaseURL != "" && c.Storefront.APIKey == "" {
			return fmt.Errorf("storefront.api_key is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	return nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
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
