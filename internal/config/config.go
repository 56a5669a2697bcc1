package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration: the ambient server/database
// surface the teacher already loaded from the environment, plus the
// backtesting-engine config tree from spec §6 (data, portfolio, trading,
// short, scoring, optimizer), loadable from YAML via FromYAML.
type Config struct {
	// Server
	Port    int
	DevMode bool

	// Database
	DatabasePath string

	// Tradernet microservice (read-only portfolio mirror / security lookup)
	TradernetServiceURL string

	// Tradernet API
	TradernetAPIKey    string
	TradernetAPISecret string

	// Logging
	LogLevel string

	// Engine config tree (spec §6), populated by FromYAML; Load leaves
	// these at their documented defaults since they have no env-var
	// surface.
	Data      DataConfig      `yaml:"data"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
	Trading   TradingConfig   `yaml:"trading"`
	Short     ShortConfig     `yaml:"short"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// DataConfig is spec §6's data.* options for the C1 façade.
type DataConfig struct {
	Providers  []string           `yaml:"providers"`
	RateLimits map[string]float64 `yaml:"rate_limits"` // provider -> tokens/sec
	CacheTTL   string             `yaml:"cache_ttl"`   // e.g. "1h"
}

// PortfolioConfig is spec §6's portfolio.* options, consumed by C4-C6-C8.
type PortfolioConfig struct {
	InitialCapital       float64 `yaml:"initial_capital"`
	MaxPositionSize      float64 `yaml:"max_position_size"`
	MaxSectorAllocation  float64 `yaml:"max_sector_allocation"`
	CorrelationThreshold float64 `yaml:"correlation_threshold"`
	MaxLeverage          float64 `yaml:"max_leverage"`
	MaxPositions         int     `yaml:"max_positions"`
}

// TradingConfig is spec §6's trading.* options, consumed by C7-C9.
type TradingConfig struct {
	CommissionRate float64 `yaml:"commission_rate"`
	SlippageRate   float64 `yaml:"slippage_rate"`
}

// ShortConfig is spec §6's short.* options, consumed by C9.
type ShortConfig struct {
	MarginRequirement       float64 `yaml:"margin_requirement"`
	ShortInterestRate       float64 `yaml:"short_interest_rate"`
	MaintenanceMarginBuffer float64 `yaml:"maintenance_margin_buffer"`
}

// ScoringConfig is spec §6's scoring.* options, consumed by C3.
type ScoringConfig struct {
	Weights       ScoreWeightsConfig `yaml:"weights"`
	BuyThreshold  float64            `yaml:"buy_threshold"`
	SellThreshold float64            `yaml:"sell_threshold"`
}

// ScoreWeightsConfig mirrors core.ScoreWeights for YAML decoding.
type ScoreWeightsConfig struct {
	Fundamental float64 `yaml:"fundamental"`
	Technical   float64 `yaml:"technical"`
	Momentum    float64 `yaml:"momentum"`
	Sentiment   float64 `yaml:"sentiment"`
}

// OptimizerConfig is spec §6's optimizer.* options, consumed by C11.
type OptimizerConfig struct {
	Parallelism int                    `yaml:"parallelism"`
	WalkForward WalkForwardConfigEntry `yaml:"walk_forward"`
}

// WalkForwardConfigEntry is optimizer.walk_forward.*.
type WalkForwardConfigEntry struct {
	TrainWindow int `yaml:"train_window"`
	TestWindow  int `yaml:"test_window"`
}

// defaultEngineConfig returns spec §6's documented defaults, used by both
// Load (env-var path, which has no engine-tree surface) and FromYAML (as
// the base a YAML document overlays onto).
func defaultEngineConfig() (PortfolioConfig, TradingConfig, ShortConfig, ScoringConfig, OptimizerConfig) {
	portfolio := PortfolioConfig{
		MaxPositionSize:      0.15,
		MaxSectorAllocation:  0.30,
		CorrelationThreshold: 0.70,
		MaxLeverage:          1.0,
	}
	trading := TradingConfig{
		CommissionRate: 0.001,
		SlippageRate:   0.0005,
	}
	short := ShortConfig{
		MarginRequirement:       1.5,
		ShortInterestRate:       0.03,
		MaintenanceMarginBuffer: 0.25,
	}
	scoring := ScoringConfig{
		Weights: ScoreWeightsConfig{
			Fundamental: 0.40,
			Technical:   0.30,
			Momentum:    0.20,
			Sentiment:   0.10,
		},
		BuyThreshold:  70,
		SellThreshold: 40,
	}
	optimizer := OptimizerConfig{}
	return portfolio, trading, short, scoring, optimizer
}

// Load reads the ambient server/database configuration from environment
// variables, as the teacher's handlers always have. The engine config tree
// is left at its spec §6 defaults; use FromYAML to override it.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	portfolio, trading, short, scoring, optimizer := defaultEngineConfig()

	cfg := &Config{
		Port:                getEnvAsInt("GO_PORT", 8001),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		DatabasePath:        getEnv("DATABASE_PATH", "./data/portfolio.db"),
		TradernetServiceURL: getEnv("TRADERNET_SERVICE_URL", "http://localhost:8000"),
		TradernetAPIKey:     getEnv("TRADERNET_API_KEY", ""),
		TradernetAPISecret:  getEnv("TRADERNET_API_SECRET", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Portfolio:           portfolio,
		Trading:             trading,
		Short:               short,
		Scoring:             scoring,
		Optimizer:           optimizer,
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromYAML decodes the full engine config tree (data, portfolio, trading,
// short, scoring, optimizer) from a YAML document, starting from spec §6's
// documented defaults so a partial document only overrides what it sets.
func FromYAML(data []byte) (*Config, error) {
	portfolio, trading, short, scoring, optimizer := defaultEngineConfig()
	cfg := &Config{
		LogLevel:  "info",
		Portfolio: portfolio,
		Trading:   trading,
		Short:     short,
		Scoring:   scoring,
		Optimizer: optimizer,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding yaml: %w", err)
	}
	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	// Note: Tradernet credentials optional for research mode
	// if c.TradernetAPIKey == "" || c.TradernetAPISecret == "" {
	//     return fmt.Errorf("Tradernet API credentials required")
	// }

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
