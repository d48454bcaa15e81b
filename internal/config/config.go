// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Cache    CacheConfig    `mapstructure:"cache"`
	DB       DBConfig       `mapstructure:"db"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig describes the document origin and how politely to talk
// to it.
type SourceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	Referer        string `mapstructure:"referer"`
	Origin         string `mapstructure:"origin"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DelayMs        int    `mapstructure:"delay_ms"`
}

// CacheConfig sets the on-disk document cache location and the minimum
// size a cached document must have to count as viable.
type CacheConfig struct {
	Dir            string `mapstructure:"dir"`
	MinViableBytes int64  `mapstructure:"min_viable_bytes"`
}

// DBConfig controls the SQLite database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// HeadlessConfig configures the browser-automation fallback.
type HeadlessConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	DownloadDir   string `mapstructure:"download_dir"`
}

// MetricsConfig controls the optional Prometheus listener. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WATERZONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://www.scottishwater.co.uk/waterqualitypdf")
	v.SetDefault("source.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("source.referer", "https://www.scottishwater.co.uk/your-home/your-water/water-quality")
	v.SetDefault("source.origin", "https://www.scottishwater.co.uk")
	v.SetDefault("source.timeout_seconds", 45)
	v.SetDefault("source.delay_ms", 600)
	v.SetDefault("cache.dir", "pdfs")
	v.SetDefault("cache.min_viable_bytes", 1000)
	v.SetDefault("db.path", "water_quality.db")
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url must be set")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Source.DelayMs < 0 {
		return fmt.Errorf("source.delay_ms must be >= 0")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir must be set")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path must be set")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	return nil
}

// SourceTimeout converts the configured timeout into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// Delay converts the configured inter-request delay into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Source.DelayMs) * time.Millisecond
}
