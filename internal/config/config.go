package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// DefaultConfigPath is read when BOT_CONFIG is not set
const DefaultConfigPath = "configs/config.yaml"

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Inference  InferenceConfig  `mapstructure:"inference"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Quotes     QuotesConfig     `mapstructure:"quotes"`
	Timezone   TimezoneConfig   `mapstructure:"timezone"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
	Workers       int           `mapstructure:"workers"`
	Debug         bool          `mapstructure:"debug"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Port    int    `mapstructure:"port"`
}

// InferenceConfig describes the hosted text-generation endpoint
type InferenceConfig struct {
	URL          string        `mapstructure:"url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxNewTokens int           `mapstructure:"max_new_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
}

type StorageConfig struct {
	Type     string         `mapstructure:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type QuotesConfig struct {
	Path string `mapstructure:"path"`
}

type TimezoneConfig struct {
	Location string `mapstructure:"location"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics        MetricsConfig `mapstructure:"metrics"`
	ReportSchedule string        `mapstructure:"report_schedule"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

// Load resolves the configured timezone
func (c TimezoneConfig) Load() (*time.Location, error) {
	return time.LoadLocation(c.Location)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.update_timeout", 60)
	v.SetDefault("bot.workers", 8)
	v.SetDefault("bot.webhook.port", 8443)

	v.SetDefault("inference.url", "https://api-inference.huggingface.co/models/google/flan-t5-base")
	v.SetDefault("inference.timeout", 20*time.Second)
	v.SetDefault("inference.max_new_tokens", 150)
	v.SetDefault("inference.temperature", 0.5)

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite.path", "users.db")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.redis.addr", "localhost:6379")

	v.SetDefault("quotes.path", "data/quotes.json")
	v.SetDefault("timezone.location", "Asia/Baku")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_minute", 20)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.path", "logs/bot.log")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)

	v.SetDefault("monitoring.metrics.enabled", false)
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")
	v.SetDefault("monitoring.report_schedule", "@every 5m")

	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.languages", []string{"en", "az"})
}

// LoadConfig loads configuration from an optional file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.BindEnv("bot.token", "BOT_TOKEN")
	v.BindEnv("inference.api_key", "HF_API_KEY")
	v.BindEnv("inference.url", "INFERENCE_URL")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.sqlite.path", "SQLITE_PATH")
	v.BindEnv("storage.postgres.dsn", "DATABASE_URL")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "REDIS_DB")
	v.BindEnv("quotes.path", "QUOTES_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Inference.APIKey == "" {
		return fmt.Errorf("inference api key is required")
	}
	if cfg.Inference.URL == "" {
		return fmt.Errorf("inference url is required")
	}
	if cfg.Inference.Timeout <= 0 {
		return fmt.Errorf("inference timeout must be positive, got %s", cfg.Inference.Timeout)
	}
	switch cfg.Storage.Type {
	case "sqlite", "postgres", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "postgres" && cfg.Storage.Postgres.DSN == "" {
		return fmt.Errorf("postgres storage requires a dsn")
	}
	if _, err := cfg.Timezone.Load(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone.Location, err)
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 1
	}
	return nil
}
