package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trendBot/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Directories and files
	DataDir        string
	ModelDir       string
	ReportDir      string
	AssetsFile     string
	DBPath         string
	PaperStateFile string

	// Account and risk
	InitialCapital      float64
	RiskPerTrade        float64 // Fraction of capital risked per trade (e.g., 0.01)
	StopATRMultiplier   float64
	TargetATRMultiplier float64
	SizeFromAllocation  bool

	// Backtest
	WarmupBars          int
	SharpeAnnualization float64

	// Classifier gate
	UseClassifier       bool
	ClassifierThreshold float64

	// Strategy parameters
	EMAPeriod        int
	STPeriod         int
	STMultiplier     float64
	STFastPeriod     int
	STFastMultiplier float64
	ATRPeriod        int
	RSIPeriod        int
	ADXPeriod        int

	// Binance API
	APIKey                    string
	SecretKey                 string
	IsTestnet                 bool
	DownloadRequestsPerSecond float64

	// Paper trading
	PaperPollInterval time.Duration
	PaperInterval     string
	PaperHistoryLimit int

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables, reading envFile
// (default ".env") first when it exists.
func LoadConfig(envFile ...string) (*Config, error) {
	// Don't fail on a missing file; plain env vars are enough.
	_ = godotenv.Load(envFile...)

	cfg := &Config{}
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error

	cfg.DataDir = getEnv("DATA_DIR", "data")
	cfg.ModelDir = getEnv("MODEL_DIR", "models")
	cfg.ReportDir = getEnv("REPORT_DIR", "reports")
	cfg.AssetsFile = getEnv("ASSETS_FILE", "config/assets.yaml")
	cfg.DBPath = getEnv("DB_PATH", "data/trendbot.db")
	cfg.PaperStateFile = getEnv("PAPER_STATE_FILE", "data/paper_account.json")

	cfg.InitialCapital, err = getEnvAsFloatRequired("INITIAL_CAPITAL", 1000)
	check(err)
	if err == nil && cfg.InitialCapital <= 0 {
		errs = append(errs, errors.New("INITIAL_CAPITAL must be positive"))
	}

	cfg.RiskPerTrade, err = getEnvAsFloatRequired("RISK_PER_TRADE", 0.01)
	check(err)
	if err == nil && (cfg.RiskPerTrade <= 0 || cfg.RiskPerTrade >= 1) {
		errs = append(errs, errors.New("RISK_PER_TRADE must be between 0.0 and 1.0 (exclusive)"))
	}

	cfg.StopATRMultiplier, err = getEnvAsFloatRequired("STOP_ATR_MULTIPLIER", 1.5)
	check(err)
	if err == nil && cfg.StopATRMultiplier <= 0 {
		errs = append(errs, errors.New("STOP_ATR_MULTIPLIER must be positive"))
	}
	cfg.TargetATRMultiplier, err = getEnvAsFloatRequired("TARGET_ATR_MULTIPLIER", 3.0)
	check(err)
	if err == nil && cfg.TargetATRMultiplier <= 0 {
		errs = append(errs, errors.New("TARGET_ATR_MULTIPLIER must be positive"))
	}
	cfg.SizeFromAllocation = getEnvAsBool("SIZE_FROM_ALLOCATION", false)

	cfg.WarmupBars, err = getEnvAsIntRequired("WARMUP_BARS", 200)
	check(err)
	if err == nil && cfg.WarmupBars < 0 {
		errs = append(errs, errors.New("WARMUP_BARS cannot be negative"))
	}
	cfg.SharpeAnnualization, err = getEnvAsFloatRequired("SHARPE_ANNUALIZATION", 24*365)
	check(err)
	if err == nil && cfg.SharpeAnnualization <= 0 {
		errs = append(errs, errors.New("SHARPE_ANNUALIZATION must be positive"))
	}

	cfg.UseClassifier = getEnvAsBool("USE_CLASSIFIER", false)
	cfg.ClassifierThreshold, err = getEnvAsFloatRequired("CLASSIFIER_THRESHOLD", 0.6)
	check(err)
	if err == nil && (cfg.ClassifierThreshold <= 0 || cfg.ClassifierThreshold > 1) {
		errs = append(errs, errors.New("CLASSIFIER_THRESHOLD must be within (0, 1]"))
	}

	// Strategy parameters
	cfg.EMAPeriod = getEnvAsInt("EMA_PERIOD", 200)
	cfg.STPeriod = getEnvAsInt("ST_PERIOD", 10)
	cfg.STMultiplier = getEnvAsFloat("ST_MULTIPLIER", 3.0)
	cfg.STFastPeriod = getEnvAsInt("ST_FAST_PERIOD", 7)
	cfg.STFastMultiplier = getEnvAsFloat("ST_FAST_MULTIPLIER", 2.0)
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 14)
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.ADXPeriod = getEnvAsInt("ADX_PERIOD", 14)
	if cfg.EMAPeriod <= 0 || cfg.STPeriod <= 0 || cfg.STFastPeriod <= 0 ||
		cfg.ATRPeriod <= 0 || cfg.RSIPeriod <= 0 || cfg.ADXPeriod <= 0 {
		errs = append(errs, errors.New("strategy periods (EMA, ST, ATR, RSI, ADX) must be positive"))
	}
	if cfg.STMultiplier <= 0 || cfg.STFastMultiplier <= 0 {
		errs = append(errs, errors.New("supertrend multipliers must be positive"))
	}

	// Binance API; keys are optional because klines and prices are public.
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_SECRET_KEY", "")
	cfg.IsTestnet = getEnvAsBool("USE_TESTNET", false)
	cfg.DownloadRequestsPerSecond, err = getEnvAsFloatRequired("DOWNLOAD_REQUESTS_PER_SECOND", 5)
	check(err)
	if err == nil && cfg.DownloadRequestsPerSecond <= 0 {
		errs = append(errs, errors.New("DOWNLOAD_REQUESTS_PER_SECOND must be positive"))
	}

	// Paper trading
	cfg.PaperPollInterval, err = getEnvAsDurationRequired("PAPER_POLL_INTERVAL", 60*time.Second)
	check(err)
	if err == nil && cfg.PaperPollInterval <= 0 {
		errs = append(errs, errors.New("PAPER_POLL_INTERVAL must be positive"))
	}
	cfg.PaperInterval = getEnv("PAPER_INTERVAL", "1h")
	cfg.PaperHistoryLimit, err = getEnvAsIntRequired("PAPER_HISTORY_LIMIT", 500)
	check(err)
	if err == nil && (cfg.PaperHistoryLimit <= 0 || cfg.PaperHistoryLimit > 1500) {
		errs = append(errs, errors.New("PAPER_HISTORY_LIMIT must be within [1, 1500]"))
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := getEnvAsIntRequired(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := getEnvAsFloatRequired(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDurationRequired accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDurationRequired(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
