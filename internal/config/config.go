package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Fetcher  FetcherConfig  `yaml:"fetcher" mapstructure:"fetcher"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Bypass   BypassConfig   `yaml:"bypass" mapstructure:"bypass"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ScanConfig configures the discovery cycle cadence and dedup window.
type ScanConfig struct {
	IntervalMinutes  int `yaml:"interval_minutes" mapstructure:"interval_minutes"`
	BatchMinutes     int `yaml:"batch_minutes" mapstructure:"batch_minutes"`
	DedupWindowHours int `yaml:"dedup_window_hours" mapstructure:"dedup_window_hours"`
}

// Interval returns the scan cadence as a duration.
func (c ScanConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// BatchInterval returns the lower-tier batch window as a duration.
func (c ScanConfig) BatchInterval() time.Duration {
	return time.Duration(c.BatchMinutes) * time.Minute
}

// DedupWindow returns the duplicate-suppression window as a duration.
func (c ScanConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowHours) * time.Hour
}

// FetcherConfig configures the rate-limited HTTP client.
type FetcherConfig struct {
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	BaseBackoffMS int    `yaml:"base_backoff_ms" mapstructure:"base_backoff_ms"`
	MaxBackoffMS  int    `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// Timeout returns the per-request timeout as a duration.
func (c FetcherConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// BaseBackoff returns the initial per-host backoff as a duration.
func (c FetcherConfig) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMS) * time.Millisecond
}

// MaxBackoff returns the backoff cap as a duration.
func (c FetcherConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMS) * time.Millisecond
}

// ClassifyConfig configures classification thresholds.
type ClassifyConfig struct {
	VerifiedThreshold int `yaml:"verified_threshold" mapstructure:"verified_threshold"`
}

// NotifyConfig configures the outbound chat webhook.
type NotifyConfig struct {
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
	ChannelID         string `yaml:"channel_id" mapstructure:"channel_id"`
	ImmediateRetries  int    `yaml:"immediate_retries" mapstructure:"immediate_retries"`
	ImmediateDelaySec int    `yaml:"immediate_delay_secs" mapstructure:"immediate_delay_secs"`
}

// ImmediateDelay returns the delay between tier-1 delivery retries.
func (c NotifyConfig) ImmediateDelay() time.Duration {
	return time.Duration(c.ImmediateDelaySec) * time.Second
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the REST API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// CatalogConfig points at an optional source-catalog override file.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BypassConfig gates anti-detection request behavior. Disabled by default;
// when enabled the fetcher only rotates between a small set of browser
// user-agent strings.
type BypassConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEAKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("scan.interval_minutes", 5)
	v.SetDefault("scan.batch_minutes", 5)
	v.SetDefault("scan.dedup_window_hours", 24)
	v.SetDefault("fetcher.user_agent", "leakwatch/1.0")
	v.SetDefault("fetcher.timeout_secs", 30)
	v.SetDefault("fetcher.max_retries", 3)
	v.SetDefault("fetcher.base_backoff_ms", 1000)
	v.SetDefault("fetcher.max_backoff_ms", 30000)
	v.SetDefault("classify.verified_threshold", 50)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.channel_id", "")
	v.SetDefault("notify.immediate_retries", 3)
	v.SetDefault("notify.immediate_delay_secs", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leakwatch.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("catalog.path", "")
	v.SetDefault("bypass.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
