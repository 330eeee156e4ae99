// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Market        MarketConfig        `yaml:"market"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Pricing       PricingConfig       `yaml:"pricing"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// RedisConfig defines the price cache connection settings. Disabled
// falls back to the in-process cache.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MarketConfig defines the marketplace scraper settings.
type MarketConfig struct {
	BaseURL        string          `yaml:"base_url"`
	SearchQueries  []string        `yaml:"search_queries"`
	MaxPages       int             `yaml:"max_pages"`
	MaxRetries     int             `yaml:"max_retries"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	UserAgent      string          `yaml:"user_agent"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines outbound request rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// OracleConfig defines price oracle backend settings.
type OracleConfig struct {
	Backend      string             `yaml:"backend"` // ollama, openai_compat, gemini
	Ollama       OllamaConfig       `yaml:"ollama"`
	OpenAICompat OpenAICompatConfig `yaml:"openai_compat"`
	Gemini       GeminiConfig       `yaml:"gemini"`
	Concurrency  int                `yaml:"concurrency"`
	Timeout      time.Duration      `yaml:"timeout"`
	DailyBudget  int64              `yaml:"daily_budget"`
}

// OllamaConfig defines Ollama-specific settings.
type OllamaConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// OpenAICompatConfig defines OpenAI-compatible endpoint settings.
type OpenAICompatConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// GeminiConfig defines Google Gemini settings. The API key comes from
// the GEMINI_API_KEY environment variable.
type GeminiConfig struct {
	Model string `yaml:"model"`
}

// PricingConfig defines aggregation and evaluation parameters.
type PricingConfig struct {
	MaxObservations    int     `yaml:"max_observations"`
	OutlierLow         float64 `yaml:"outlier_low"`
	OutlierHigh        float64 `yaml:"outlier_high"`
	FallbackMultiplier float64 `yaml:"fallback_multiplier"`
	FeeRate            float64 `yaml:"fee_rate"`
	MinProfit          float64 `yaml:"min_profit"`
}

// ScheduleConfig defines cron intervals.
type ScheduleConfig struct {
	ScanInterval  time.Duration `yaml:"scan_interval"`
	StaggerOffset time.Duration `yaml:"stagger_offset"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyRedisDefaults(&cfg.Redis)
	applyMarketDefaults(&cfg.Market)
	applyOracleDefaults(&cfg.Oracle)
	applyPricingDefaults(&cfg.Pricing)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyRedisDefaults(r *RedisConfig) {
	if r.Addr == "" {
		r.Addr = "localhost:6379"
	}
	if r.TTL == 0 {
		r.TTL = 6 * time.Hour
	}
}

func applyMarketDefaults(m *MarketConfig) {
	if m.MaxPages == 0 {
		m.MaxPages = 5
	}
	if m.MaxRetries == 0 {
		m.MaxRetries = 3
	}
	if m.RequestTimeout == 0 {
		m.RequestTimeout = 20 * time.Second
	}
	if m.UserAgent == "" {
		m.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) flipradar/1.0"
	}
	applyRateLimitDefaults(&m.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 1.0
	}
	if r.Burst == 0 {
		r.Burst = 2
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 2000
	}
}

func applyOracleDefaults(o *OracleConfig) {
	if o.Backend == "" {
		o.Backend = "ollama"
	}
	if o.Concurrency == 0 {
		o.Concurrency = 4
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.DailyBudget == 0 {
		o.DailyBudget = 500
	}
}

func applyPricingDefaults(p *PricingConfig) {
	if p.MaxObservations == 0 {
		p.MaxObservations = 5
	}
	if p.OutlierLow == 0 {
		p.OutlierLow = 0.6
	}
	if p.OutlierHigh == 0 {
		p.OutlierHigh = 1.4
	}
	if p.FallbackMultiplier == 0 {
		p.FallbackMultiplier = 1.1
	}
	if p.FeeRate == 0 {
		p.FeeRate = 0.10
	}
	if p.MinProfit == 0 {
		p.MinProfit = 10
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.ScanInterval == 0 {
		s.ScanInterval = 30 * time.Minute
	}
	if s.StaggerOffset == 0 {
		s.StaggerOffset = 30 * time.Second
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	if cfg.Market.BaseURL == "" {
		errs = append(errs, fmt.Errorf("market.base_url is required"))
	}
	if len(cfg.Market.SearchQueries) == 0 {
		errs = append(errs, fmt.Errorf("market.search_queries must not be empty"))
	}

	switch cfg.Oracle.Backend {
	case "ollama":
		if cfg.Oracle.Ollama.Endpoint == "" {
			errs = append(
				errs,
				fmt.Errorf("oracle.ollama.endpoint is required when backend is ollama"),
			)
		}
	case "openai_compat":
		if cfg.Oracle.OpenAICompat.Endpoint == "" {
			errs = append(
				errs,
				fmt.Errorf("oracle.openai_compat.endpoint is required when backend is openai_compat"),
			)
		}
	case "gemini":
		// API key comes from env, model must be set.
		if cfg.Oracle.Gemini.Model == "" {
			errs = append(
				errs,
				fmt.Errorf("oracle.gemini.model is required when backend is gemini"),
			)
		}
	default:
		errs = append(
			errs,
			fmt.Errorf(
				"oracle.backend must be one of: ollama, openai_compat, gemini (got %q)",
				cfg.Oracle.Backend,
			),
		)
	}

	if cfg.Pricing.OutlierLow >= cfg.Pricing.OutlierHigh {
		errs = append(errs, fmt.Errorf("pricing.outlier_low must be below pricing.outlier_high"))
	}

	return errors.Join(errs...)
}
