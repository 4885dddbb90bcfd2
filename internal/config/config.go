// Package config
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
coinalyze_api_key: "..."
symbol: "BTCUSDT"
starting_balance: 1000.0
leverage: 25
position_percentage: 1.0
minimal_liquidation: 2000
minimal_nr_of_liquidations: 1
liquidation_days: [1, 2, 3, 4, 5]
liquidation_hours: [2, 3, 4, 14, 15, 16]
forbidden_candles_before_entry: [1]
algo_input_dir: "algorithm_input"
db_conn_str: ""
telegram_token: ""
telegram_chat_id: ""
*/

type Config struct {
	CoinalyzeAPIKey string `yaml:"coinalyze_api_key"`

	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`

	StartingBalance float64 `yaml:"starting_balance"`
	Leverage        int     `yaml:"leverage"`
	PricePrecision  int     `yaml:"price_precision"`

	UseFixedRisk       bool    `yaml:"use_fixed_risk"`
	FixedRiskExFees    float64 `yaml:"fixed_risk_ex_fees"`
	PositionPercentage float64 `yaml:"position_percentage"`

	MakerFee float64 `yaml:"maker_fee"`
	TakerFee float64 `yaml:"taker_fee"`

	MinimalLiquidation      float64 `yaml:"minimal_liquidation"`
	MinimalNrOfLiquidations int     `yaml:"minimal_nr_of_liquidations"`
	LiquidationNoiseFloor   float64 `yaml:"liquidation_noise_floor"`

	LiquidationDays  []int `yaml:"liquidation_days"`
	LiquidationHours []int `yaml:"liquidation_hours"`

	ForbiddenCandlesBeforeEntry []int `yaml:"forbidden_candles_before_entry"`

	AlgoInputDir string `yaml:"algo_input_dir"`
	ReportDir    string `yaml:"report_dir"`

	DBConnStr string `yaml:"db_conn_str"`
	DBMaxOpen int    `yaml:"db_max_open"`
	DBMaxIdle int    `yaml:"db_max_idle"`

	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`

	DashboardInterval time.Duration `yaml:"dashboard_interval"`
}

// loadConfig builds a Config from flags, environment variables and an
// optional YAML file. A .env file in the working directory is honored.
func loadConfig() (Config, error) {
	// Missing .env is fine, real env vars still apply.
	_ = godotenv.Load()

	symbol := flag.String("symbol", "BTCUSDT", "Futures symbol to trade on paper")
	startingBalance := flag.Float64("starting-balance", 1000.0, "Starting balance per paper account")
	leverage := flag.Int("leverage", envInt("LEVERAGE", 25), "Leverage applied to paper positions")
	pricePrecision := flag.Int("price-precision", envInt("EXCHANGE_PRICE_PRECISION", 1), "Price rounding precision (decimal places)")
	useFixedRisk := flag.Bool("use-fixed-risk", envBool("USE_FIXED_RISK", false), "Size positions from a fixed risk figure instead of balance percentage")
	fixedRisk := flag.Float64("fixed-risk", envFloat("FIXED_RISK_EX_FEES", 50.0), "Fixed risk per trade excluding fees, used with -use-fixed-risk")
	positionPercentage := flag.Float64("position-percentage", envFloat("POSITION_PERCENTAGE", 1.0), "Fraction of balance committed per position")
	minimalLiquidation := flag.Float64("minimal-liquidation", envFloat("MINIMAL_LIQUIDATION", 2000), "Minimal aggregated liquidation notional (USD) to emit a signal")
	minimalNr := flag.Int("minimal-nr-of-liquidations", envInt("MINIMAL_NR_OF_LIQUIDATIONS", 1), "Minimal number of liquidation events to emit a signal")
	noiseFloor := flag.Float64("liquidation-noise-floor", 100, "Per-bucket notional (USD) below which a liquidation is not counted as an event")
	daysFlag := flag.String("liquidation-days", envStr("LIQUIDATION_DAYS", "1,2,3,4,5"), "Comma-separated weekdays (0=Sunday) the scheduled account trades on")
	hoursFlag := flag.String("liquidation-hours", envStr("LIQUIDATION_HOURS", "2,3,4,14,15,16"), "Comma-separated hours the scheduled account trades in")
	forbiddenFlag := flag.String("forbidden-candles-before-entry", envStr("FORBIDDEN_NR_OF_CANDLES_BEFORE_ENTRY", "1"), "Comma-separated candles-before-entry counts that veto an entry")
	algoInputDir := flag.String("algo-input-dir", "algorithm_input", "Directory holding per-day algorithm input CSV files")
	reportDir := flag.String("report-dir", ".", "Directory for final result files")
	dashboardInterval := flag.Duration("dashboard-interval", time.Minute, "Console dashboard refresh interval")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
		applyDefaults(&fileCfg)
		return fileCfg, nil
	}

	days, err := parseIntList(*daysFlag)
	if err != nil {
		return Config{}, fmt.Errorf("invalid -liquidation-days: %w", err)
	}
	hours, err := parseIntList(*hoursFlag)
	if err != nil {
		return Config{}, fmt.Errorf("invalid -liquidation-hours: %w", err)
	}
	forbidden, err := parseIntList(*forbiddenFlag)
	if err != nil {
		return Config{}, fmt.Errorf("invalid -forbidden-candles-before-entry: %w", err)
	}

	cfg := Config{
		CoinalyzeAPIKey:             os.Getenv("COINALYZE_SECRET_API_KEY"),
		Symbol:                      *symbol,
		Timeframe:                   "5m",
		StartingBalance:             *startingBalance,
		Leverage:                    *leverage,
		PricePrecision:              *pricePrecision,
		UseFixedRisk:                *useFixedRisk,
		FixedRiskExFees:             *fixedRisk,
		PositionPercentage:          *positionPercentage,
		MakerFee:                    0.0002,
		TakerFee:                    0.0005,
		MinimalLiquidation:          *minimalLiquidation,
		MinimalNrOfLiquidations:     *minimalNr,
		LiquidationNoiseFloor:       *noiseFloor,
		LiquidationDays:             days,
		LiquidationHours:            hours,
		ForbiddenCandlesBeforeEntry: forbidden,
		AlgoInputDir:                *algoInputDir,
		ReportDir:                   *reportDir,
		DBConnStr:                   os.Getenv("DB_CONN_STR"),
		DBMaxOpen:                   10,
		DBMaxIdle:                   5,
		TelegramToken:               os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:              os.Getenv("TELEGRAM_CHAT_ID"),
		DashboardInterval:           *dashboardInterval,
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// applyDefaults fills zero values left by a partial YAML file.
func applyDefaults(cfg *Config) {
	if cfg.Symbol == "" {
		cfg.Symbol = "BTCUSDT"
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "5m"
	}
	if cfg.StartingBalance == 0 {
		cfg.StartingBalance = 1000.0
	}
	if cfg.Leverage == 0 {
		cfg.Leverage = 25
	}
	if cfg.PositionPercentage == 0 {
		cfg.PositionPercentage = 1.0
	}
	if cfg.MakerFee == 0 {
		cfg.MakerFee = 0.0002
	}
	if cfg.TakerFee == 0 {
		cfg.TakerFee = 0.0005
	}
	if cfg.MinimalLiquidation == 0 {
		cfg.MinimalLiquidation = 2000
	}
	if cfg.MinimalNrOfLiquidations == 0 {
		cfg.MinimalNrOfLiquidations = 1
	}
	if cfg.LiquidationNoiseFloor == 0 {
		cfg.LiquidationNoiseFloor = 100
	}
	if cfg.LiquidationDays == nil {
		cfg.LiquidationDays = []int{1, 2, 3, 4, 5}
	}
	if cfg.LiquidationHours == nil {
		cfg.LiquidationHours = []int{2, 3, 4, 14, 15, 16}
	}
	if cfg.ForbiddenCandlesBeforeEntry == nil {
		cfg.ForbiddenCandlesBeforeEntry = []int{1}
	}
	if cfg.AlgoInputDir == "" {
		cfg.AlgoInputDir = "algorithm_input"
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = "."
	}
	if cfg.DBMaxOpen == 0 {
		cfg.DBMaxOpen = 10
	}
	if cfg.DBMaxIdle == 0 {
		cfg.DBMaxIdle = 5
	}
	if cfg.DashboardInterval == 0 {
		cfg.DashboardInterval = time.Minute
	}
}

// Validate checks the configuration before the trading loop starts.
// Any violation here is fatal at startup.
func (c Config) Validate() error {
	if c.CoinalyzeAPIKey == "" {
		return errors.New("COINALYZE_SECRET_API_KEY is required")
	}
	if c.Symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	if c.StartingBalance <= 0 {
		return fmt.Errorf("starting balance must be positive, got %v", c.StartingBalance)
	}
	if c.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive, got %d", c.Leverage)
	}
	if c.PricePrecision < 0 {
		return fmt.Errorf("price precision cannot be negative, got %d", c.PricePrecision)
	}
	if !c.UseFixedRisk && c.PositionPercentage <= 0 {
		return fmt.Errorf("position percentage must be positive, got %v", c.PositionPercentage)
	}
	if c.UseFixedRisk && c.FixedRiskExFees <= 0 {
		return fmt.Errorf("fixed risk must be positive, got %v", c.FixedRiskExFees)
	}
	if c.MakerFee < 0 || c.TakerFee < 0 {
		return fmt.Errorf("fees cannot be negative: maker=%v taker=%v", c.MakerFee, c.TakerFee)
	}
	if c.MinimalLiquidation <= 0 {
		return fmt.Errorf("minimal liquidation must be positive, got %v", c.MinimalLiquidation)
	}
	if c.MinimalNrOfLiquidations <= 0 {
		return fmt.Errorf("minimal number of liquidations must be positive, got %d", c.MinimalNrOfLiquidations)
	}
	for _, d := range c.LiquidationDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("liquidation day out of range [0,6]: %d", d)
		}
	}
	for _, h := range c.LiquidationHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("liquidation hour out of range [0,23]: %d", h)
		}
	}
	return nil
}

// MustLoadConfig loads and validates the configuration, exiting the
// process on any error.
func MustLoadConfig() Config {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Config | %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config | invalid configuration: %v", err)
	}
	return cfg
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
