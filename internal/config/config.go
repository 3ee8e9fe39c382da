// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs for the server and the worker.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// WorkerConfig governs worker process supervision and artifact placement.
type WorkerConfig struct {
	Bin             string `mapstructure:"bin"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	OutputDir       string `mapstructure:"output_dir"`
	ReportBaseURL   string `mapstructure:"report_base_url"`
	ReportTimeoutMs int    `mapstructure:"report_timeout_ms"`
}

// HeadlessConfig configures the in-worker browser.
type HeadlessConfig struct {
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	SettleMs      int    `mapstructure:"settle_ms"`
}

// ClassifierConfig points at the hosted sentiment inference API.
type ClassifierConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ANALYZER")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("worker.bin", "scrapeworker")
	v.SetDefault("worker.timeout_seconds", 300)
	v.SetDefault("worker.output_dir", "amazon_data")
	v.SetDefault("worker.report_base_url", "http://localhost:8080")
	v.SetDefault("worker.report_timeout_ms", 1500)
	v.SetDefault("headless.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("headless.nav_timeout_seconds", 8)
	v.SetDefault("headless.settle_ms", 1500)
	v.SetDefault("classifier.endpoint",
		"https://api-inference.huggingface.co/models/cardiffnlp/twitter-roberta-base-sentiment-latest")
	v.SetDefault("classifier.timeout_seconds", 30)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Worker.Bin == "" {
		return fmt.Errorf("worker.bin must be set")
	}
	if c.Worker.TimeoutSeconds <= 0 {
		return fmt.Errorf("worker.timeout_seconds must be > 0")
	}
	if c.Worker.OutputDir == "" {
		return fmt.Errorf("worker.output_dir must be set")
	}
	if c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0")
	}
	if c.Classifier.Endpoint == "" {
		return fmt.Errorf("classifier.endpoint must be set")
	}
	return nil
}

// WorkerTimeout returns the wall-clock bound for one worker run.
func (c Config) WorkerTimeout() time.Duration {
	return time.Duration(c.Worker.TimeoutSeconds) * time.Second
}

// NavTimeout returns the in-worker navigation bound.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// SettleDelay returns the post-load settle wait for dynamic content.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Headless.SettleMs) * time.Millisecond
}

// ReportTimeout returns the per-report delivery bound.
func (c Config) ReportTimeout() time.Duration {
	return time.Duration(c.Worker.ReportTimeoutMs) * time.Millisecond
}

// ClassifierTimeout returns the per-call classifier bound.
func (c Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}
