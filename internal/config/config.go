package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// App Settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// Concurrency
	FetchWorkers int `envconfig:"FETCH_WORKERS" default:"20"`
	ProbeWorkers int `envconfig:"PROBE_WORKERS" default:"50"`

	// Network Logic
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"4s"`
	FetchAttempts  int           `envconfig:"FETCH_ATTEMPTS" default:"3"`
	BackoffBase    time.Duration `envconfig:"BACKOFF_BASE" default:"500ms"`
	BackoffJitter  time.Duration `envconfig:"BACKOFF_JITTER" default:"300ms"`
	MaxBodyBytes   int64         `envconfig:"MAX_BODY_BYTES" default:"4194304"`
	MaxDecodeBytes int           `envconfig:"MAX_DECODE_BYTES" default:"262144"`

	// AllowPrivateSources disables the SSRF guard's address checks for
	// deployments whose source list lives on a private network.
	AllowPrivateSources bool `envconfig:"ALLOW_PRIVATE_SOURCES" default:"false"`

	// Circuit Breaker
	BreakerThreshold int           `envconfig:"BREAKER_THRESHOLD" default:"3"`
	BreakerCooldown  time.Duration `envconfig:"BREAKER_COOLDOWN" default:"60s"`

	// Source Pruning
	PruneSources bool `envconfig:"PRUNE_SOURCES" default:"false"`
	PruneAfter   int  `envconfig:"PRUNE_AFTER" default:"5"`

	// Ranking
	IncludeProtocols []string      `envconfig:"INCLUDE_PROTOCOLS"`
	ExcludeProtocols []string      `envconfig:"EXCLUDE_PROTOCOLS"`
	IncludeCountries []string      `envconfig:"INCLUDE_COUNTRIES"`
	ExcludeCountries []string      `envconfig:"EXCLUDE_COUNTRIES"`
	IncludeISPs      []string      `envconfig:"INCLUDE_ISPS"`
	ExcludeISPs      []string      `envconfig:"EXCLUDE_ISPS"`
	MaxPing          time.Duration `envconfig:"MAX_PING" default:"0"`
	SortBy           string        `envconfig:"SORT_BY" default:"latency"`
	RefLatitude      float64       `envconfig:"REF_LATITUDE" default:"0"`
	RefLongitude     float64       `envconfig:"REF_LONGITUDE" default:"0"`
	TopN             int           `envconfig:"TOP_N" default:"0"`
	WeightUptime     float64       `envconfig:"WEIGHT_UPTIME" default:"0.5"`
	WeightPing       float64       `envconfig:"WEIGHT_PING" default:"0.3"`
	WeightReach      float64       `envconfig:"WEIGHT_REACH" default:"0.2"`

	// Telegram Input
	TelegramChannels []string      `envconfig:"TELEGRAM_CHANNELS"`
	TelegramTimeout  time.Duration `envconfig:"TELEGRAM_TIMEOUT" default:"10s"`

	// File System Paths
	SourcesPath     string `envconfig:"SOURCES_PATH" default:"sources.txt"`
	HistoryPath     string `envconfig:"HISTORY_PATH" default:"history.dat"`
	GeoIPCityPath   string `envconfig:"GEOIP_CITY_PATH" default:""`
	GeoIPASNPath    string `envconfig:"GEOIP_ASN_PATH" default:""`
	OutputPath      string `envconfig:"OUTPUT_PATH" default:"configs.txt"`
	JSONLOutputPath string `envconfig:"JSONL_OUTPUT_PATH" default:"configs.jsonl"`
	YAMLOutputPath  string `envconfig:"YAML_OUTPUT_PATH" default:""`
}

// Load reads .env and processes environment variables.
func Load() (*Config, error) {
	// Silently ignore if .env is missing (production might use real ENV vars)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with. These are the
// only errors that are fatal before any source is touched.
func (c *Config) Validate() error {
	if c.FetchWorkers < 1 || c.ProbeWorkers < 1 {
		return fmt.Errorf("configuration: worker counts must be positive (fetch=%d probe=%d)", c.FetchWorkers, c.ProbeWorkers)
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("configuration: FETCH_ATTEMPTS must be at least 1")
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("configuration: BREAKER_THRESHOLD must be at least 1")
	}
	switch c.SortBy {
	case "latency", "reliability", "proximity":
	default:
		return fmt.Errorf("configuration: unknown SORT_BY %q", c.SortBy)
	}
	if c.SortBy == "proximity" && c.RefLatitude == 0 && c.RefLongitude == 0 {
		return fmt.Errorf("configuration: proximity sort needs REF_LATITUDE/REF_LONGITUDE")
	}
	if c.WeightUptime < 0 || c.WeightPing < 0 || c.WeightReach < 0 {
		return fmt.Errorf("configuration: reliability weights must not be negative")
	}
	if c.WeightUptime+c.WeightPing+c.WeightReach == 0 {
		return fmt.Errorf("configuration: reliability weights sum to zero")
	}
	if len(c.IncludeProtocols) > 0 && len(c.ExcludeProtocols) > 0 {
		return fmt.Errorf("configuration: INCLUDE_PROTOCOLS and EXCLUDE_PROTOCOLS are mutually exclusive")
	}
	if c.MaxDecodeBytes < 1 {
		return fmt.Errorf("configuration: MAX_DECODE_BYTES must be positive")
	}
	return nil
}
