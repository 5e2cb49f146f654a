package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the statarb backtester.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Binance  Binance        `yaml:"binance"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Backtest BacktestConfig `yaml:"backtest"`
	Logging  Logging        `yaml:"logging"`
}

// Storage holds paths for data and result persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	ResultsDir string `yaml:"results_dir"`
}

// Binance holds endpoint and throttling parameters for the Binance
// market-data API.
type Binance struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxRetries      int    `yaml:"max_retries"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API,
// used for US equity universes.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	BaseURL   string `yaml:"base_url"`
}

// BacktestConfig defines the strategy universe and backtest parameters.
type BacktestConfig struct {
	Symbols            []string `yaml:"symbols"`
	BenchmarkSymbol    string   `yaml:"benchmark_symbol"`
	StartDate          string   `yaml:"start_date"`
	EndDate            string   `yaml:"end_date"`
	Interval           string   `yaml:"interval"`
	Windows            []int    `yaml:"windows"`
	Mode               string   `yaml:"mode"`
	CostBps            float64  `yaml:"cost_bps"`
	MinAssets          int      `yaml:"min_assets"`
	LiquidityThreshold float64  `yaml:"liquidity_threshold"`
	PeriodsPerYear     int      `yaml:"periods_per_year"`
}

// CostRate converts the configured basis points to a fraction per unit of
// turnover.
func (b BacktestConfig) CostRate() float64 {
	return b.CostBps / 10000
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it,
// applies environment variable overrides, and fills in defaults for any
// field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a Config populated entirely from defaults and environment
// overrides, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("RESULTS_DIR"); v != "" {
		cfg.Storage.ResultsDir = v
	}

	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Binance.BaseURL = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills unset fields with the defaults the strategy was
// calibrated on.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/statarb.db"
	}
	if cfg.Storage.ResultsDir == "" {
		cfg.Storage.ResultsDir = "results"
	}

	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://api.binance.com"
	}
	if cfg.Binance.TimeoutSeconds == 0 {
		cfg.Binance.TimeoutSeconds = 30
	}
	if cfg.Binance.RateLimitPerMin == 0 {
		cfg.Binance.RateLimitPerMin = 1200
	}
	if cfg.Binance.MaxRetries == 0 {
		cfg.Binance.MaxRetries = 3
	}

	bt := &cfg.Backtest
	if len(bt.Symbols) == 0 {
		bt.Symbols = []string{
			"BTCUSDT", "ETHUSDT", "ADAUSDT", "BNBUSDT",
			"XRPUSDT", "SOLUSDT", "DOGEUSDT", "MATICUSDT",
			"LINKUSDT", "UNIUSDT", "AAVEUSDT", "ATOMUSDT",
		}
	}
	if bt.BenchmarkSymbol == "" {
		bt.BenchmarkSymbol = "BTCUSDT"
	}
	if bt.StartDate == "" {
		bt.StartDate = "2018-01-01"
	}
	if bt.Interval == "" {
		bt.Interval = "1d"
	}
	if len(bt.Windows) == 0 {
		bt.Windows = []int{60, 120, 252}
	}
	if bt.Mode == "" {
		bt.Mode = "momentum"
	}
	if bt.CostBps == 0 {
		bt.CostBps = 5
	}
	if bt.MinAssets == 0 {
		bt.MinAssets = 8
	}
	if bt.LiquidityThreshold == 0 {
		bt.LiquidityThreshold = 0.40
	}
	if bt.PeriodsPerYear == 0 {
		bt.PeriodsPerYear = 252
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
