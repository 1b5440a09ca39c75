// Package config loads the engine configuration from YAML.
//
// Defaults are applied before validation so a minimal file only needs the exchanges list.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/rxtech-lab/argo-execution/pkg/utils"
	"gopkg.in/yaml.v3"
)

type ExchangeType string

const (
	ExchangeTypePaper          ExchangeType = "paper"
	ExchangeTypeBinance        ExchangeType = "binance"
	ExchangeTypeBinanceTestnet ExchangeType = "binance-testnet"
)

const (
	DefaultInitialCapital      = 10000.0
	DefaultMaxExposure         = 0.5
	DefaultMaxDrawdown         = 0.5
	DefaultRiskPerTrade        = 0.02
	DefaultRiskMultiplier      = 2.0
	DefaultTrailingStopPercent = 0.05
	DefaultDailyLossLimit      = 0.05
	DefaultWeeklyLossLimit     = 0.15
	DefaultDrawdownHistorySize = 1000
	DefaultPollInterval        = 2 * time.Second
	DefaultTickerInterval      = 5 * time.Second
	DefaultPollWorkers         = 8
	DefaultHistoryLimit        = 1000
	DefaultPaperFeeRate        = 0.001
	DefaultPaperSlippage       = 0.001
	DefaultBinanceRateLimit    = 10.0
	DefaultBinanceRateBurst    = 20
	DefaultListenAddress       = ":8080"
	DefaultLogLevel            = "info"
)

type TrailingStopConfig struct {
	// Enabled defaults to true when unset.
	Enabled *bool `yaml:"enabled" json:"enabled" jsonschema:"description=Tighten stops as price moves favorably,default=true"`
	// Percent is the trailing distance as a fraction of price.
	Percent float64 `yaml:"percent" json:"percent" jsonschema:"description=Trailing distance as a fraction of price,default=0.05" validate:"gt=0,lt=1"`
}

type CircuitBreakerConfig struct {
	// DailyLossLimit is the loss fraction of the day's starting capital that halts new entries. 0 disables.
	DailyLossLimit *float64 `yaml:"daily_loss_limit" json:"daily_loss_limit" jsonschema:"description=Daily loss fraction that trips the breaker (0 disables),default=0.05" validate:"omitempty,gte=0,lte=1"`
	// WeeklyLossLimit is the loss fraction of the week's starting capital that halts new entries. 0 disables.
	WeeklyLossLimit *float64 `yaml:"weekly_loss_limit" json:"weekly_loss_limit" jsonschema:"description=Weekly loss fraction that trips the breaker (0 disables),default=0.15" validate:"omitempty,gte=0,lte=1"`
}

func (c TrailingStopConfig) IsEnabled() bool {
	return valueOf(c.Enabled)
}

func (c CircuitBreakerConfig) DailyLimit() float64 {
	return valueOf(c.DailyLossLimit)
}

func (c CircuitBreakerConfig) WeeklyLimit() float64 {
	return valueOf(c.WeeklyLossLimit)
}

type RiskConfig struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"description=Starting capital,default=10000" validate:"gt=0"`
	MaxExposure    float64 `yaml:"max_exposure" json:"max_exposure" jsonschema:"description=Maximum total exposure as a fraction of capital,default=0.5" validate:"gt=0,lte=1"`
	MaxDrawdown    float64 `yaml:"max_drawdown" json:"max_drawdown" jsonschema:"description=Drawdown fraction above which new positions are rejected,default=0.5" validate:"gt=0,lte=1"`
	RiskPerTrade   float64 `yaml:"risk_per_trade" json:"risk_per_trade" jsonschema:"description=Fraction of capital risked per trade,default=0.02" validate:"gt=0,lte=1"`
	// MaxPositionSize caps a single position's value as a fraction of capital. 0 disables the cap.
	MaxPositionSize float64 `yaml:"max_position_size" json:"max_position_size" jsonschema:"description=Maximum single position value as a fraction of capital (0 disables)" validate:"gte=0,lte=1"`
	RiskMultiplier  float64 `yaml:"risk_multiplier" json:"risk_multiplier" jsonschema:"description=Volatility multiple for the initial stop distance,default=2" validate:"gt=0"`
	// TakeProfitRatio is the reward to risk ratio of the take profit level. 0 disables take profit.
	TakeProfitRatio     float64              `yaml:"take_profit_ratio" json:"take_profit_ratio" jsonschema:"description=Take profit distance as a multiple of stop distance (0 disables)" validate:"gte=0"`
	DrawdownHistorySize int                  `yaml:"drawdown_history_size" json:"drawdown_history_size" jsonschema:"description=Number of drawdown samples retained,default=1000" validate:"gte=1"`
	TrailingStop        TrailingStopConfig   `yaml:"trailing_stop" json:"trailing_stop"`
	CircuitBreakers     CircuitBreakerConfig `yaml:"circuit_breakers" json:"circuit_breakers"`
}

type ExecutionConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval" jsonschema:"description=Interval between open order polls" validate:"gt=0"`
	TickerInterval time.Duration `yaml:"ticker_interval" json:"ticker_interval" jsonschema:"description=Interval between unrealized PnL refreshes" validate:"gt=0"`
	PollWorkers    int           `yaml:"poll_workers" json:"poll_workers" jsonschema:"description=Maximum concurrent exchange calls per poll,default=8" validate:"gte=1"`
	HistoryLimit   int           `yaml:"history_limit" json:"history_limit" jsonschema:"description=Orders and trades retained in memory,default=1000" validate:"gte=1"`
}

type ExchangeConfig struct {
	Name      string       `yaml:"name" json:"name" jsonschema:"description=Exchange name referenced by signals" validate:"required"`
	Type      ExchangeType `yaml:"type" json:"type" jsonschema:"enum=paper,enum=binance,enum=binance-testnet" validate:"required,oneof=paper binance binance-testnet"`
	APIKey    string       `yaml:"api_key" json:"api_key"`
	SecretKey string       `yaml:"secret_key" json:"secret_key"`
	BaseURL   string       `yaml:"base_url" json:"base_url" jsonschema:"description=Override the exchange REST endpoint"`
	// RateLimit is the sustained request rate per second for live exchanges.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst" validate:"gte=0"`
	// Paper exchange settings. Unset fee rate and slippage take the paper defaults; 0 is honored.
	FeeRate         *float64           `yaml:"fee_rate" json:"fee_rate" jsonschema:"default=0.001" validate:"omitempty,gte=0,lt=1"`
	Slippage        *float64           `yaml:"slippage" json:"slippage" jsonschema:"default=0.001" validate:"omitempty,gte=0,lt=1"`
	InitialBalances map[string]float64 `yaml:"initial_balances" json:"initial_balances"`
	Prices          map[string]float64 `yaml:"prices" json:"prices" jsonschema:"description=Initial reference prices per pair"`
	// Pairs are fetched on every ticker tick and fed to strategies, in addition to open positions.
	Pairs []string `yaml:"pairs" json:"pairs" jsonschema:"description=Pairs whose tickers are streamed to strategies"`
}

// PaperFeeRate returns the fee rate of a paper venue. Unset means no fee.
func (c ExchangeConfig) PaperFeeRate() float64 {
	return valueOf(c.FeeRate)
}

// PaperSlippage returns the slippage of a paper venue. Unset means none.
func (c ExchangeConfig) PaperSlippage() float64 {
	return valueOf(c.Slippage)
}

type ArchiveConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	DataOutputPath string `yaml:"data_output_path" json:"data_output_path" jsonschema:"description=Root folder for parquet archives and session stats" validate:"required_if=Enabled true"`
}

type APIConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address" jsonschema:"default=:8080"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
}

// Config is the root engine configuration.
type Config struct {
	RiskManagement RiskConfig       `yaml:"risk_management" json:"risk_management"`
	Execution      ExecutionConfig  `yaml:"execution" json:"execution"`
	Exchanges      []ExchangeConfig `yaml:"exchanges" json:"exchanges" validate:"required,min=1,dive"`
	Archive        ArchiveConfig    `yaml:"archive" json:"archive"`
	API            APIConfig        `yaml:"api" json:"api"`
	Log            LogConfig        `yaml:"log" json:"log"`
}

// Default returns a configuration with every default applied and no exchanges.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills zero values with defaults. Optional fields are filled only when unset.
func (c *Config) ApplyDefaults() {
	rm := &c.RiskManagement
	setDefault(&rm.InitialCapital, DefaultInitialCapital)
	setDefault(&rm.MaxExposure, DefaultMaxExposure)
	setDefault(&rm.MaxDrawdown, DefaultMaxDrawdown)
	setDefault(&rm.RiskPerTrade, DefaultRiskPerTrade)
	setDefault(&rm.RiskMultiplier, DefaultRiskMultiplier)
	setDefault(&rm.TrailingStop.Percent, DefaultTrailingStopPercent)
	setDefault(&rm.DrawdownHistorySize, DefaultDrawdownHistorySize)
	setUnset(&rm.TrailingStop.Enabled, true)
	setUnset(&rm.CircuitBreakers.DailyLossLimit, DefaultDailyLossLimit)
	setUnset(&rm.CircuitBreakers.WeeklyLossLimit, DefaultWeeklyLossLimit)

	ex := &c.Execution
	setDefault(&ex.PollInterval, DefaultPollInterval)
	setDefault(&ex.TickerInterval, DefaultTickerInterval)
	setDefault(&ex.PollWorkers, DefaultPollWorkers)
	setDefault(&ex.HistoryLimit, DefaultHistoryLimit)

	for i := range c.Exchanges {
		exchange := &c.Exchanges[i]
		switch exchange.Type {
		case ExchangeTypePaper:
			setUnset(&exchange.FeeRate, DefaultPaperFeeRate)
			setUnset(&exchange.Slippage, DefaultPaperSlippage)
		case ExchangeTypeBinance, ExchangeTypeBinanceTestnet:
			setDefault(&exchange.RateLimit, DefaultBinanceRateLimit)
			setDefault(&exchange.RateBurst, DefaultBinanceRateBurst)
		}
	}

	setDefault(&c.API.ListenAddress, DefaultListenAddress)
	setDefault(&c.Log.Level, DefaultLogLevel)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// setUnset fills optional fields whose zero value is meaningful.
func setUnset[T any](field **T, value T) {
	if *field == nil {
		*field = Ptr(value)
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func valueOf[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}

	return *p
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	seen := make(map[string]struct{}, len(c.Exchanges))
	for _, exchange := range c.Exchanges {
		if _, ok := seen[exchange.Name]; ok {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "duplicate exchange name %q", exchange.Name)
		}

		seen[exchange.Name] = struct{}{}

		if exchange.Type != ExchangeTypePaper && (exchange.APIKey == "" || exchange.SecretKey == "") {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "exchange %q requires api_key and secret_key", exchange.Name)
		}
	}

	return nil
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse configuration", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConfigNotFound, err, "failed to read configuration %s", path)
	}

	return Parse(data)
}

// GetConfigSchema returns the JSON schema for Config.
func GetConfigSchema() (string, error) {
	return utils.ToJSONSchema(&Config{}) //nolint:exhaustruct // Empty config for schema generation
}
