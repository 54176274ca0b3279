package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all bot configuration.
type Config struct {
	Bot       BotConfig
	Ops       OpsConfig
	Limits    LimitsConfig
	Cooldown  CooldownConfig
	Builder   BuilderConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// BotConfig holds Telegram transport configuration.
type BotConfig struct {
	Token      string        `envconfig:"BOT_TOKEN" default:""`
	APIBase    string        `envconfig:"BOT_API_BASE" default:"https://api.telegram.org"`
	PollTimeout time.Duration `envconfig:"BOT_POLL_TIMEOUT" default:"30s"`
}

// OpsConfig holds the operational HTTP server settings.
type OpsConfig struct {
	Port    string `envconfig:"OPS_PORT" default:"8090"`
	Host    string `envconfig:"OPS_HOST" default:"0.0.0.0"`
	Enabled bool   `envconfig:"OPS_ENABLED" default:"true"`
}

// LimitsConfig holds the transfer-size ceilings.
//
// UserDownloadLimit is the advertised per-file limit. FetchCeiling is the
// transport's own hard getFile restriction, which is stricter and cannot
// be raised by configuration. UploadCeiling bounds outbound documents.
type LimitsConfig struct {
	UserDownloadLimit int64 `envconfig:"USER_DOWNLOAD_LIMIT" default:"104857600"`
	FetchCeiling      int64 `envconfig:"FETCH_CEILING" default:"19922944"`
	UploadCeiling     int64 `envconfig:"UPLOAD_CEILING" default:"51380224"`
}

// CooldownConfig holds inbound/outbound throttle spacing.
type CooldownConfig struct {
	Inbound  time.Duration `envconfig:"COOLDOWN_INBOUND" default:"1s"`
	Outbound time.Duration `envconfig:"COOLDOWN_OUTBOUND" default:"1s"`
}

// BuilderConfig holds packaging tool configuration.
type BuilderConfig struct {
	Python         string   `envconfig:"BUILDER_PYTHON" default:"python3"`
	WorkRoot       string   `envconfig:"BUILDER_WORK_ROOT" default:"out"`
	IconExtensions []string `envconfig:"ICON_EXTENSIONS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds ops-server rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			APIBase:     "https://api.telegram.org",
			PollTimeout: 30 * time.Second,
		},
		Ops: OpsConfig{
			Port:    "8090",
			Host:    "0.0.0.0",
			Enabled: true,
		},
		Limits: LimitsConfig{
			UserDownloadLimit: 100 * 1024 * 1024,
			FetchCeiling:      19 * 1024 * 1024,
			UploadCeiling:     49 * 1024 * 1024,
		},
		Cooldown: CooldownConfig{
			Inbound:  time.Second,
			Outbound: time.Second,
		},
		Builder: BuilderConfig{
			Python:   "python3",
			WorkRoot: "out",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

// AllowedIconExtensions resolves the icon allow-list for this deployment.
// An explicit ICON_EXTENSIONS override wins; otherwise the list is derived
// from the target platform the packaging tool compiles for.
func (c *Config) AllowedIconExtensions() []string {
	if len(c.Builder.IconExtensions) > 0 {
		return c.Builder.IconExtensions
	}
	switch runtime.GOOS {
	case "windows":
		return []string{".ico"}
	case "darwin":
		return []string{".icns"}
	default:
		return []string{".ico", ".icns"}
	}
}
