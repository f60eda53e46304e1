package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	APIBaseURL      string        `yaml:"api_base_url"`
	WSURL           string        `yaml:"ws_url"`
	NotifyDSN       string        `yaml:"notify_dsn"`
	NotifyChannel   string        `yaml:"notify_channel"`
	TokenSecret     string        `yaml:"token_secret"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	EagerRefetch    bool          `yaml:"eager_refetch"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

func defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		APIBaseURL:      "http://localhost:5000",
		WSURL:           "ws://localhost:5000/ws",
		NotifyChannel:   "dashboard_events",
		LogLevel:        "info",
		LogFormat:       "text",
		UpstreamTimeout: 10 * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// lookupenv is getenv for optional settings, where an empty value clears
// the default.
func lookupenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// Load builds the config from defaults, then the YAML file named by
// OPSDASH_CONFIG (if any), then OPSDASH_* environment variables.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("OPSDASH_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.HTTPAddr = getenv("OPSDASH_HTTP_ADDR", cfg.HTTPAddr)
	cfg.APIBaseURL = getenv("OPSDASH_API_BASE_URL", cfg.APIBaseURL)
	cfg.WSURL = lookupenv("OPSDASH_WS_URL", cfg.WSURL)
	cfg.NotifyDSN = lookupenv("OPSDASH_NOTIFY_DSN", cfg.NotifyDSN)
	cfg.NotifyChannel = getenv("OPSDASH_NOTIFY_CHANNEL", cfg.NotifyChannel)
	cfg.TokenSecret = getenv("OPSDASH_TOKEN_SECRET", cfg.TokenSecret)
	cfg.LogLevel = getenv("OPSDASH_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("OPSDASH_LOG_FORMAT", cfg.LogFormat)

	if v := os.Getenv("OPSDASH_EAGER_REFETCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("OPSDASH_EAGER_REFETCH: %w", err)
		}
		cfg.EagerRefetch = b
	}
	if v := os.Getenv("OPSDASH_UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("OPSDASH_UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.UpstreamTimeout = d
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
