package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	AI          AIConfig         `mapstructure:"ai"`
	FX          FXConfig         `mapstructure:"fx"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	Portfolio   PortfolioConfig  `mapstructure:"portfolio"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AIConfig configures the extraction provider rotation. GeminiAPIKeys is
// ordered; each key becomes its own provider so quota exhaustion rotates to
// the next one. OpenAI acts as the final fallback when configured.
type AIConfig struct {
	GeminiAPIKeys []string `mapstructure:"gemini_api_keys"`
	GeminiModel   string   `mapstructure:"gemini_model"`
	OpenAIAPIKey  string   `mapstructure:"openai_api_key"`
	OpenAIModel   string   `mapstructure:"openai_model"`
	MaxTokens     int      `mapstructure:"max_tokens"`
	Temperature   float64  `mapstructure:"temperature"`
	TimeoutSec    int      `mapstructure:"timeout_sec"`
	RateLimitRPM  int      `mapstructure:"rate_limit_rpm"`
	RetryAttempts int      `mapstructure:"retry_attempts"`
}

type FXConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

type MarketDataConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// PortfolioConfig holds dashboard behavior knobs.
type PortfolioConfig struct {
	DefaultCurrency  string `mapstructure:"default_currency"`
	SnapshotSchedule string `mapstructure:"snapshot_schedule"` // cron expression
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	// Read from config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "wealthvue")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	// AI defaults
	viper.SetDefault("ai.gemini_model", "gemini-2.0-flash")
	viper.SetDefault("ai.openai_model", "gpt-4o-mini")
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.temperature", 0.2)
	viper.SetDefault("ai.timeout_sec", 60)
	viper.SetDefault("ai.rate_limit_rpm", 15)
	viper.SetDefault("ai.retry_attempts", 2)

	// FX defaults
	viper.SetDefault("fx.base_url", "https://api.frankfurter.app")
	viper.SetDefault("fx.timeout_sec", 8)

	// Market data defaults
	viper.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	viper.SetDefault("market_data.timeout_sec", 10)

	// Portfolio defaults
	viper.SetDefault("portfolio.default_currency", "USD")
	viper.SetDefault("portfolio.snapshot_schedule", "0 6 * * *") // daily, 06:00
}

func overrideFromEnv() {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	// Database
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	// Redis
	if redisURL := os.Getenv("REDIS_PASSWORD"); redisURL != "" {
		viper.Set("redis.password", redisURL)
	}

	// AI keys. GEMINI_API_KEYS is a comma-separated rotation; GEMINI_API_KEY
	// is the single-key convenience form.
	if keys := os.Getenv("GEMINI_API_KEYS"); keys != "" {
		var parsed []string
		for _, part := range strings.Split(keys, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		if len(parsed) > 0 {
			viper.Set("ai.gemini_api_keys", parsed)
		}
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		viper.Set("ai.gemini_api_keys", []string{key})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		viper.Set("ai.openai_api_key", key)
	}

	if currency := os.Getenv("DEFAULT_CURRENCY"); currency != "" {
		viper.Set("portfolio.default_currency", strings.ToUpper(currency))
	}
}

func validate(config *Config) error {
	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if len(config.AI.GeminiAPIKeys) == 0 && config.AI.OpenAIAPIKey == "" {
		return fmt.Errorf("at least one AI provider key is required")
	}

	if config.Portfolio.DefaultCurrency == "" {
		return fmt.Errorf("default currency is required")
	}

	return nil
}
