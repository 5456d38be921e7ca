// Package config loads application configuration from environment variables
// (prefix PERPSCOPE) with an optional YAML file underneath, and validates the
// result before anything else starts.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Llama   LlamaConfig   `yaml:"llama" envconfig:"LLAMA"`
	Gecko   GeckoConfig   `yaml:"gecko" envconfig:"GECKO"`
	Engine  EngineConfig  `yaml:"engine" envconfig:"ENGINE"`
	Export  ExportConfig  `yaml:"export" envconfig:"EXPORT"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"120s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// LlamaConfig points at the protocol-analytics provider. The API key rides
// in the URL path unless KeyInPath is disabled, in which case it is sent as
// an x-api-key header.
type LlamaConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://pro-api.llama.fi" validate:"required,url"`
	APIKey    string        `yaml:"api_key" envconfig:"API_KEY"`
	KeyInPath bool          `yaml:"key_in_path" envconfig:"KEY_IN_PATH" default:"true"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s" validate:"gt=0"`
	RPS       float64       `yaml:"rps" envconfig:"RPS" default:"5"`
	Burst     int           `yaml:"burst" envconfig:"BURST" default:"5"`
}

// GeckoConfig points at the market-data provider.
type GeckoConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://pro-api.coingecko.com/api/v3" validate:"required,url"`
	APIKey    string        `yaml:"api_key" envconfig:"API_KEY"`
	KeyHeader string        `yaml:"key_header" envconfig:"KEY_HEADER" default:"x-cg-pro-api-key"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s" validate:"gt=0"`
	RPS       float64       `yaml:"rps" envconfig:"RPS" default:"2"`
	Burst     int           `yaml:"burst" envconfig:"BURST" default:"2"`
}

// EngineConfig tunes the reconciliation engine.
type EngineConfig struct {
	DefaultLimit    int           `yaml:"default_limit" envconfig:"DEFAULT_LIMIT" default:"6" validate:"gte=1"`
	TopN            int           `yaml:"top_n" envconfig:"TOP_N" default:"50" validate:"gte=1"`
	LookbackDays    int           `yaml:"lookback_days" envconfig:"LOOKBACK_DAYS" default:"90" validate:"gte=1"`
	StartDate       string        `yaml:"start_date" envconfig:"START_DATE" default:"2023-01-01"`
	Windows         []int         `yaml:"windows" envconfig:"WINDOWS" default:"7,30,90" validate:"min=1,dive,gt=0"`
	SeriesCacheTTL  time.Duration `yaml:"series_cache_ttl" envconfig:"SERIES_CACHE_TTL" default:"0"`
	ResolveCacheTTL time.Duration `yaml:"resolve_cache_ttl" envconfig:"RESOLVE_CACHE_TTL" default:"24h"`
	ResolveWorkers  int           `yaml:"resolve_workers" envconfig:"RESOLVE_WORKERS" default:"3" validate:"gte=1"`
	SeriesWorkers   int           `yaml:"series_workers" envconfig:"SERIES_WORKERS" default:"4" validate:"gte=1"`
	OIWorkers       int           `yaml:"oi_workers" envconfig:"OI_WORKERS" default:"5" validate:"gte=1"`
	MarketChunkSize int           `yaml:"market_chunk_size" envconfig:"MARKET_CHUNK_SIZE" default:"200" validate:"gte=1"`
	// CoinIDOverrides forces slug → external asset id mappings ahead of
	// resolver search.
	CoinIDOverrides map[string]string `yaml:"coin_id_overrides" envconfig:"COIN_ID_OVERRIDES"`
}

// ExportConfig controls where the rendered tables land.
type ExportConfig struct {
	Dir      string `yaml:"dir" envconfig:"DIR" default:"data/exports"`
	S3Bucket string `yaml:"s3_bucket" envconfig:"S3_BUCKET"`
	S3Prefix string `yaml:"s3_prefix" envconfig:"S3_PREFIX" default:"derived"`
}

// Load reads configuration from the environment and, when present, a
// config.yaml file. Environment values win.
func Load() (*Config, error) {
	var cfg Config

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("PERPSCOPE", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks structural constraints. Provider API keys are checked at
// call time, not here: a missing key is fatal only for operations that need
// that provider.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", c.Engine.StartDate); err != nil {
		return fmt.Errorf("invalid engine start_date %q: %w", c.Engine.StartDate, err)
	}
	return nil
}

// StartTime returns the configured absolute series start as a UTC instant.
func (c *EngineConfig) StartTime() time.Time {
	t, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t.UTC()
}

// configFilePath returns the first config file found in the usual spots.
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the built-in defaults without consulting the environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  25,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Llama: LlamaConfig{
			BaseURL:   "https://pro-api.llama.fi",
			KeyInPath: true,
			Timeout:   30 * time.Second,
			RPS:       5,
			Burst:     5,
		},
		Gecko: GeckoConfig{
			BaseURL:   "https://pro-api.coingecko.com/api/v3",
			KeyHeader: "x-cg-pro-api-key",
			Timeout:   30 * time.Second,
			RPS:       2,
			Burst:     2,
		},
		Engine: EngineConfig{
			DefaultLimit:    6,
			TopN:            50,
			LookbackDays:    90,
			StartDate:       "2023-01-01",
			Windows:         []int{7, 30, 90},
			ResolveCacheTTL: 24 * time.Hour,
			ResolveWorkers:  3,
			SeriesWorkers:   4,
			OIWorkers:       5,
			MarketChunkSize: 200,
		},
		Export: ExportConfig{
			Dir:      "data/exports",
			S3Prefix: "derived",
		},
	}
}
