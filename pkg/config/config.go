package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MarketPulse/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Scheduler   SchedulerConfig  `yaml:"scheduler"`
	Pipeline    PipelineConfig   `yaml:"pipeline"`
	Store       StoreConfig      `yaml:"store"`
	Assets      []AssetConfig    `yaml:"assets" validate:"dive"`
	Providers   ProvidersConfig  `yaml:"providers"`
	Archive     ArchiveConfig    `yaml:"archive"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
}

type LogConfig struct {
	Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output    string `yaml:"output" default:"stdout"`
	Collector struct {
		Enabled        bool          `yaml:"enabled"`
		Topic          string        `yaml:"topic" default:"marketpulse.logs"`
		FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
		CountThreshold int           `yaml:"count_threshold" default:"100"`
	} `yaml:"collector"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"3001" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	AllowOrigins    []string      `yaml:"allow_origins" default:"[\"*\"]"`
	RateLimit       struct {
		Capacity float64 `yaml:"capacity" default:"20" validate:"gte=0"`
		Refill   float64 `yaml:"refill_per_sec" default:"10" validate:"gte=0"`
	} `yaml:"rate_limit"`
	WebSocket struct {
		Interval time.Duration `yaml:"interval" default:"5s"`
	} `yaml:"websocket"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type SchedulerConfig struct {
	RunOnStart          bool          `yaml:"run_on_start" default:"true"`
	IngestInterval      time.Duration `yaml:"ingest_interval" default:"5s"`
	IndicatorInterval   time.Duration `yaml:"indicator_interval" default:"30s"`
	PredictionInterval  time.Duration `yaml:"prediction_interval" default:"60s"`
	ValidationInterval  time.Duration `yaml:"validation_interval" default:"30s"`
	QuoteTimeout        time.Duration `yaml:"quote_timeout" default:"4s"`
	PredictionMaturity  time.Duration `yaml:"prediction_maturity" default:"60s"`
	AccuracyWindow      int           `yaml:"accuracy_window" default:"100" validate:"gte=1"`
	MinIndicatorHistory int           `yaml:"min_indicator_history" default:"20" validate:"gte=2"`
}

type PipelineConfig struct {
	BufferSize   int           `yaml:"buffer_size" default:"4096" validate:"gte=1"`
	BatchSize    int           `yaml:"batch_size" default:"500" validate:"gte=1"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	RetryMax     int           `yaml:"retry_max" default:"3" validate:"gte=0"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"100ms"`
}

type StoreConfig struct {
	Retention int   `yaml:"retention" default:"10000" validate:"gte=0"`
	Strict    *bool `yaml:"strict"`
}

type AssetConfig struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	Name     string `yaml:"name"`
	Class    string `yaml:"class" validate:"oneof=stock forex crypto"`
	Exchange string `yaml:"exchange"`
}

type ProviderConfig struct {
	BaseURL string  `yaml:"base_url" validate:"omitempty,url"`
	APIKey  string  `yaml:"api_key"`
	Burst   float64 `yaml:"burst" validate:"gte=0"`
	Refill  float64 `yaml:"refill_per_sec" validate:"gte=0"`
}

type ProvidersConfig struct {
	Timeout      time.Duration  `yaml:"timeout" default:"5s"`
	UserAgent    string         `yaml:"user_agent" default:"MarketPulse/1.0"`
	Yahoo        ProviderConfig `yaml:"yahoo"`
	AlphaVantage ProviderConfig `yaml:"alpha_vantage"`
	CoinGecko    ProviderConfig `yaml:"coingecko"`
}

type ArchiveConfig struct {
	Backend string `yaml:"backend" default:"none" validate:"oneof=none kafka clickhouse both"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Topics       struct {
		Bars        string `yaml:"bars" default:"marketpulse.bars"`
		Predictions string `yaml:"predictions" default:"marketpulse.predictions"`
		Outcomes    string `yaml:"outcomes" default:"marketpulse.outcomes"`
	} `yaml:"topics"`
	Producer struct {
		MaxAttempts     int           `yaml:"max_attempts" default:"5"`
		Linger          time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes      int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize       int           `yaml:"batch_size" default:"500"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		Async           bool          `yaml:"async"`
		AutoCreateTopic bool          `yaml:"auto_create_topic" default:"true"`
	} `yaml:"producer"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"marketpulse"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert" default:"true"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr" default:"localhost:6379"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Prefix    string        `yaml:"prefix" default:"marketpulse"`
	ViewTTL   time.Duration `yaml:"view_ttl" default:"5s"`
	MemoryTTL time.Duration `yaml:"memory_ttl" default:"2s"`
}

// Load applies defaults, then the YAML file at path (skipped when path is
// empty), then validates. Environment variables are not consulted.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env files when present, the YAML config, then applies
// environment overrides.
func LoadWithEnv(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	shared := getenv("FINANCIAL_API_KEY")
	c.Providers.Yahoo.APIKey = firstNonEmpty(getenv("YAHOO_FINANCE_API_KEY"), shared, c.Providers.Yahoo.APIKey)
	c.Providers.AlphaVantage.APIKey = firstNonEmpty(getenv("ALPHA_VANTAGE_API_KEY"), shared, c.Providers.AlphaVantage.APIKey)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("REDIS_DB"); v != "" {
		c.Redis.DB = util.ParseIntDefault(v, c.Redis.DB)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("ARCHIVE_BACKEND"); v != "" {
		c.Archive.Backend = strings.ToLower(v)
	}
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	return nil
}

func (c *Config) check() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate runs checks that span fields.
func (c *Config) Validate() error {
	var errs []error
	switch c.Archive.Backend {
	case "kafka", "both":
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, fmt.Errorf("archive.backend=%s needs kafka.brokers", c.Archive.Backend))
		}
	}
	if c.Log.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("log.collector needs kafka.brokers"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	for name, d := range map[string]time.Duration{
		"scheduler.ingest_interval":     c.Scheduler.IngestInterval,
		"scheduler.indicator_interval":  c.Scheduler.IndicatorInterval,
		"scheduler.prediction_interval": c.Scheduler.PredictionInterval,
		"scheduler.validation_interval": c.Scheduler.ValidationInterval,
		"server.websocket.interval":     c.Server.WebSocket.Interval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	seen := make(map[string]bool, len(c.Assets))
	for _, a := range c.Assets {
		sym := strings.ToUpper(a.Symbol)
		if seen[sym] {
			errs = append(errs, fmt.Errorf("asset %s listed twice", sym))
		}
		seen[sym] = true
	}
	return errors.Join(errs...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
