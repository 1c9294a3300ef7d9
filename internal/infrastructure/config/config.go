package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	JWT       JWTConfig
	Bot       BotConfig
	Roles     RolesConfig
	Catalog   CatalogConfig
	Dealer    DealerConfig
	Limits    LimitsConfig
	Workers   WorkersConfig
	Storage   StorageConfig
	Printing  PrintingConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	LogLevel        string
	SlowThreshold   time.Duration
	LogParams       bool // render bound values into logged SQL
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	MigrationsPath  string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
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
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	WebhookSecret    string
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
}

// JWTConfig holds admin API token settings
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// BotConfig holds chat platform settings
type BotConfig struct {
	Token       string
	APIURL      string
	AdminChatID int64
	WebAppURL   string
	// WebhookURL is the public base URL; when set the webhook is
	// registered on startup
	WebhookURL     string
	SendRate       float64 // messages per second per chat
	SendBurst      int
	RequestTimeout time.Duration
}

// RolesConfig holds department membership. Production ids are keyed by
// category.
type RolesConfig struct {
	SuperAdminID int64
	SalesIDs     []int64
	WarehouseIDs []int64
	Production   map[string][]int64
}

// CatalogConfig holds the external product list settings
type CatalogConfig struct {
	URL             string
	Timeout         time.Duration
	Lifetime        time.Duration
	RefreshInterval time.Duration
	InitialDelay    time.Duration
}

// DealerConfig holds the eligibility oracle settings
type DealerConfig struct {
	URL      string
	Timeout  time.Duration
	TTL      time.Duration
	FailOpen bool
}

// LimitsConfig holds per-user rate limits
type LimitsConfig struct {
	MessageLimit   int
	MessageWindow  time.Duration
	OrderCooldown  time.Duration
	SessionTimeout time.Duration
}

// WorkersConfig holds the offload pool settings
type WorkersConfig struct {
	PoolSize   int
	QueueSize  int
	JobTimeout time.Duration
}

// StorageConfig holds S3-compatible document storage settings
type StorageConfig struct {
	Enabled       bool
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	UsePathStyle  bool
	PublicBaseURL string
	KeyPrefix     string
}

// PrintingConfig holds document rendering settings
type PrintingConfig struct {
	RemoteURL   string
	Timeout     time.Duration
	NoSandbox   bool
	CompanyName string
	ManagerName string
}

// KafkaConfig holds the department task feed settings
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FULFILLMENT_ prefix (e.g. FULFILLMENT_BOT_TOKEN)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	// .env is optional; real environment always wins over it
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FULFILLMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
			LogParams:       v.GetBool("database.log_params"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			MigrationsPath:  v.GetString("database.migrations_path"),
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
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			WebhookSecret:    v.GetString("http.webhook_secret"),
			CORSAllowOrigins: getList(v, "http.cors_allow_origins"),
			CORSAllowMethods: getList(v, "http.cors_allow_methods"),
			CORSAllowHeaders: getList(v, "http.cors_allow_headers"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			TokenTTL: v.GetDuration("jwt.token_ttl"),
		},
		Bot: BotConfig{
			Token:          v.GetString("bot.token"),
			APIURL:         v.GetString("bot.api_url"),
			AdminChatID:    v.GetInt64("bot.admin_chat_id"),
			WebAppURL:      v.GetString("bot.webapp_url"),
			WebhookURL:     strings.TrimRight(v.GetString("bot.webhook_url"), "/"),
			SendRate:       v.GetFloat64("bot.send_rate"),
			SendBurst:      v.GetInt("bot.send_burst"),
			RequestTimeout: v.GetDuration("bot.request_timeout"),
		},
		Roles: RolesConfig{
			SuperAdminID: v.GetInt64("roles.super_admin_id"),
			SalesIDs:     getIDs(v, "roles.sales_ids"),
			WarehouseIDs: getIDs(v, "roles.warehouse_ids"),
			Production:   make(map[string][]int64),
		},
		Catalog: CatalogConfig{
			URL:             v.GetString("catalog.url"),
			Timeout:         v.GetDuration("catalog.timeout"),
			Lifetime:        v.GetDuration("catalog.lifetime"),
			RefreshInterval: v.GetDuration("catalog.refresh_interval"),
			InitialDelay:    v.GetDuration("catalog.initial_delay"),
		},
		Dealer: DealerConfig{
			URL:     v.GetString("dealer.url"),
			Timeout: v.GetDuration("dealer.timeout"),
			TTL:     v.GetDuration("dealer.ttl"),
		},
		Limits: LimitsConfig{
			MessageLimit:   v.GetInt("limits.message_limit"),
			MessageWindow:  v.GetDuration("limits.message_window"),
			OrderCooldown:  v.GetDuration("limits.order_cooldown"),
			SessionTimeout: v.GetDuration("limits.session_timeout"),
		},
		Workers: WorkersConfig{
			PoolSize:   v.GetInt("workers.pool_size"),
			QueueSize:  v.GetInt("workers.queue_size"),
			JobTimeout: v.GetDuration("workers.job_timeout"),
		},
		Storage: StorageConfig{
			Enabled:       v.GetBool("storage.enabled"),
			Endpoint:      v.GetString("storage.endpoint"),
			Region:        v.GetString("storage.region"),
			Bucket:        v.GetString("storage.bucket"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UseSSL:        v.GetBool("storage.use_ssl"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			KeyPrefix:     v.GetString("storage.key_prefix"),
		},
		Printing: PrintingConfig{
			RemoteURL:   v.GetString("printing.remote_url"),
			Timeout:     v.GetDuration("printing.timeout"),
			NoSandbox:   v.GetBool("printing.no_sandbox"),
			CompanyName: v.GetString("printing.company_name"),
			ManagerName: v.GetString("printing.manager_name"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: getList(v, "kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}

	// fail_open defaults to true, so an unset key must not read as false
	cfg.Dealer.FailOpen = true
	if v.IsSet("dealer.fail_open") {
		cfg.Dealer.FailOpen = v.GetBool("dealer.fail_open")
	}

	for _, cat := range productionCategories {
		if ids := getIDs(v, "roles.production."+cat); len(ids) > 0 {
			cfg.Roles.Production[cat] = ids
		}
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// productionCategories lists the keys accepted under roles.production
var productionCategories = []string{
	"cleaning", "plasticpe", "plasticpet", "plasticpp", "plastictd", "chemicals", "fragrances",
}

// getList reads a list that may come from TOML as an array or from the
// environment as a comma-separated string
func getList(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		parts = []string{fmt.Sprint(val)}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getIDs reads a list of chat ids, skipping malformed entries
func getIDs(v *viper.Viper, key string) []int64 {
	var ids []int64
	for _, s := range getList(v, key) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment-bot"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
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
		cfg.Database.DBName = "fulfillment"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "fulfillment.db"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
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
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
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
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "fulfillment-bot"
	}
	if cfg.JWT.TokenTTL <= 0 {
		cfg.JWT.TokenTTL = 12 * time.Hour
	}
	if cfg.Bot.APIURL == "" {
		cfg.Bot.APIURL = "https://api.telegram.org"
	}
	if cfg.Bot.SendRate == 0 {
		cfg.Bot.SendRate = 1
	}
	if cfg.Bot.SendBurst == 0 {
		cfg.Bot.SendBurst = 3
	}
	if cfg.Bot.RequestTimeout == 0 {
		cfg.Bot.RequestTimeout = 15 * time.Second
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 10 * time.Second
	}
	if cfg.Catalog.Lifetime == 0 {
		cfg.Catalog.Lifetime = time.Hour
	}
	if cfg.Catalog.RefreshInterval == 0 {
		cfg.Catalog.RefreshInterval = 30 * time.Minute
	}
	if cfg.Catalog.InitialDelay == 0 {
		cfg.Catalog.InitialDelay = time.Minute
	}
	if cfg.Dealer.Timeout == 0 {
		cfg.Dealer.Timeout = 10 * time.Second
	}
	if cfg.Dealer.TTL == 0 {
		cfg.Dealer.TTL = 10 * time.Second
	}
	if cfg.Limits.MessageLimit == 0 {
		cfg.Limits.MessageLimit = 20
	}
	if cfg.Limits.MessageWindow == 0 {
		cfg.Limits.MessageWindow = time.Minute
	}
	if cfg.Limits.OrderCooldown == 0 {
		cfg.Limits.OrderCooldown = time.Minute
	}
	if cfg.Limits.SessionTimeout == 0 {
		cfg.Limits.SessionTimeout = 5 * time.Minute
	}
	if cfg.Workers.PoolSize == 0 {
		cfg.Workers.PoolSize = 10
	}
	if cfg.Workers.QueueSize == 0 {
		cfg.Workers.QueueSize = 100
	}
	if cfg.Workers.JobTimeout == 0 {
		cfg.Workers.JobTimeout = time.Minute
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "orders"
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "fulfillment.tasks"
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
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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
	if c.Limits.MessageLimit < 0 || c.Limits.MessageWindow < 0 || c.Limits.OrderCooldown < 0 || c.Limits.SessionTimeout < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if c.Workers.PoolSize < 0 || c.Workers.QueueSize < 0 {
		return fmt.Errorf("workers.pool_size and workers.queue_size must not be negative")
	}
	for cat := range c.Roles.Production {
		if !isProductionCategory(cat) {
			return fmt.Errorf("roles.production.%s is not a known category", cat)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.enabled is true")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.enabled is true")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.Bot.Token == "" {
			return fmt.Errorf("bot.token is required in production")
		}
		if c.Roles.SuperAdminID == 0 {
			return fmt.Errorf("roles.super_admin_id is required in production")
		}
		if c.HTTP.WebhookSecret == "" {
			return fmt.Errorf("http.webhook_secret is required in production")
		}
		if c.JWT.Secret != "" && len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

func isProductionCategory(cat string) bool {
	for _, c := range productionCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
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

// Addr returns the Redis host:port pair
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
