// Package config loads the engine configuration from config.json with
// environment variable overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/aggregator"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/api"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/cache"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/confidence"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/database"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/orchestrator"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/risk"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/scoring"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/validation"
)

// MarketConfig holds the market-data source configuration
type MarketConfig struct {
	BaseURL     string   `json:"base_url"`
	Symbols     []string `json:"symbols"`
	CandleLimit int      `json:"candle_limit"`
	// ScanInterval is how often the engine scans the symbol list. Zero
	// disables the periodic loop; scans then run only via the API.
	ScanInterval time.Duration `json:"scan_interval"`
}

// DatabaseConfig wraps database.Config with an enable switch
type DatabaseConfig struct {
	Enabled bool `json:"enabled"`
	database.Config
}

// Config is the root engine configuration
type Config struct {
	Market       MarketConfig        `json:"market"`
	Scoring      *scoring.Config     `json:"scoring"`
	Risk         *risk.Config        `json:"risk_management"`
	Confidence   *confidence.Config  `json:"confidence"`
	Aggregator   *aggregator.Config  `json:"multi_timeframe"`
	Validation   *validation.Config  `json:"validation"`
	Orchestrator *orchestrator.Config `json:"orchestrator"`
	Server       api.ServerConfig    `json:"server"`
	Database     DatabaseConfig      `json:"database"`
	Redis        cache.RedisConfig   `json:"redis"`
	Logging      logging.Config      `json:"logging"`
}

// Default returns a configuration with every section at its defaults
func Default() *Config {
	return &Config{
		Market: MarketConfig{
			BaseURL:      "https://api.binance.com",
			Symbols:      []string{"BTCUSDT", "ETHUSDT"},
			CandleLimit:  200,
			ScanInterval: 5 * time.Minute,
		},
		Scoring:      scoring.DefaultConfig(),
		Risk:         risk.DefaultConfig(),
		Confidence:   confidence.DefaultConfig(),
		Aggregator:   aggregator.DefaultConfig(),
		Validation:   validation.DefaultConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		Server:       api.DefaultServerConfig(),
		Database:     DatabaseConfig{Config: database.DefaultConfig()},
		Redis:        cache.DefaultRedisConfig(),
		Logging:      logging.Config{Level: "info", Output: "stdout", JSONFormat: true},
	}
}

// Load reads config.json if present and applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = "config.json"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Market.BaseURL = getEnvOrDefault("MARKET_BASE_URL", cfg.Market.BaseURL)
	cfg.Market.ScanInterval = getEnvDurationOrDefault("SCAN_INTERVAL", cfg.Market.ScanInterval)
	if symbols := os.Getenv("MARKET_SYMBOLS"); symbols != "" {
		cfg.Market.Symbols = splitAndTrim(symbols)
	}

	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvIntOrDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ProductionMode = getEnvOrDefault("PRODUCTION_MODE", "false") == "true"
	cfg.Server.Symbols = cfg.Market.Symbols

	cfg.Database.Enabled = getEnvOrDefault("DATABASE_ENABLED",
		strconv.FormatBool(cfg.Database.Enabled)) == "true"
	cfg.Database.Host = getEnvOrDefault("DATABASE_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvIntOrDefault("DATABASE_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvOrDefault("DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnvOrDefault("DATABASE_NAME", cfg.Database.Database)

	cfg.Redis.Enabled = getEnvOrDefault("REDIS_ENABLED",
		strconv.FormatBool(cfg.Redis.Enabled)) == "true"
	cfg.Redis.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.Redis.Address)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnvOrDefault("LOG_OUTPUT", cfg.Logging.Output)
	cfg.Logging.JSONFormat = getEnvOrDefault("LOG_JSON",
		strconv.FormatBool(cfg.Logging.JSONFormat)) == "true"

	cfg.Orchestrator.MaxConcurrent = getEnvIntOrDefault("MAX_CONCURRENT", cfg.Orchestrator.MaxConcurrent)
	cfg.Orchestrator.SymbolTimeout = getEnvDurationOrDefault("SYMBOL_TIMEOUT", cfg.Orchestrator.SymbolTimeout)
	cfg.Orchestrator.MultiTimeframe = getEnvOrDefault("MULTI_TIMEFRAME",
		strconv.FormatBool(cfg.Orchestrator.MultiTimeframe)) == "true"
	cfg.Orchestrator.CandleLimit = cfg.Market.CandleLimit
}

// Validate enforces cross-section consistency
func (c *Config) Validate() error {
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	if c.Market.CandleLimit < market.MinCandles {
		return fmt.Errorf("candle_limit %d below minimum %d", c.Market.CandleLimit, market.MinCandles)
	}
	for _, tf := range c.Orchestrator.Timeframes {
		if !tf.IsValid() {
			return fmt.Errorf("unsupported timeframe %q", tf)
		}
	}
	if c.Risk.MinRiskReward <= 0 {
		return fmt.Errorf("min_risk_reward_ratio must be positive")
	}
	return nil
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
