package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

const minimalConfig = `
exchanges:
  - name: paper
    type: paper
`

func (s *ConfigTestSuite) TestParseAppliesDefaults() {
	cfg, err := Parse([]byte(minimalConfig))
	s.Require().NoError(err)

	rm := cfg.RiskManagement
	s.Equal(DefaultInitialCapital, rm.InitialCapital)
	s.Equal(0.5, rm.MaxExposure)
	s.Equal(0.5, rm.MaxDrawdown)
	s.Equal(0.02, rm.RiskPerTrade)
	s.Equal(2.0, rm.RiskMultiplier)
	s.Equal(0.05, rm.TrailingStop.Percent)
	s.True(rm.TrailingStop.IsEnabled())
	s.Equal(DefaultDailyLossLimit, rm.CircuitBreakers.DailyLimit())
	s.Equal(DefaultWeeklyLossLimit, rm.CircuitBreakers.WeeklyLimit())
	s.Equal(0.0, rm.MaxPositionSize)
	s.Equal(DefaultDrawdownHistorySize, rm.DrawdownHistorySize)

	s.Equal(DefaultPollInterval, cfg.Execution.PollInterval)
	s.Equal(DefaultPollWorkers, cfg.Execution.PollWorkers)
	s.Equal(DefaultPaperFeeRate, cfg.Exchanges[0].PaperFeeRate())
	s.Equal(DefaultPaperSlippage, cfg.Exchanges[0].PaperSlippage())
	s.Equal("info", cfg.Log.Level)
	s.Equal(":8080", cfg.API.ListenAddress)
}

func (s *ConfigTestSuite) TestParseFullConfig() {
	data := `
risk_management:
  initial_capital: 50000
  max_exposure: 0.3
  max_drawdown: 0.2
  risk_per_trade: 0.01
  max_position_size: 0.1
  take_profit_ratio: 1.5
  trailing_stop:
    enabled: true
    percent: 0.03
  circuit_breakers:
    daily_loss_limit: 0.04
    weekly_loss_limit: 0.1
execution:
  poll_interval: 500ms
  ticker_interval: 1s
  poll_workers: 4
exchanges:
  - name: binance
    type: binance-testnet
    api_key: key
    secret_key: secret
    rate_limit: 5
archive:
  enabled: true
  data_output_path: /tmp/archive
log:
  level: debug
`
	cfg, err := Parse([]byte(data))
	s.Require().NoError(err)

	s.Equal(50000.0, cfg.RiskManagement.InitialCapital)
	s.Equal(0.3, cfg.RiskManagement.MaxExposure)
	s.True(cfg.RiskManagement.TrailingStop.IsEnabled())
	s.Equal(0.03, cfg.RiskManagement.TrailingStop.Percent)
	s.Equal(0.04, cfg.RiskManagement.CircuitBreakers.DailyLimit())
	s.Equal(0.1, cfg.RiskManagement.CircuitBreakers.WeeklyLimit())
	s.Equal(1.5, cfg.RiskManagement.TakeProfitRatio)
	s.Equal(500*time.Millisecond, cfg.Execution.PollInterval)
	s.Equal(time.Second, cfg.Execution.TickerInterval)
	s.Equal(4, cfg.Execution.PollWorkers)
	s.Equal(ExchangeTypeBinanceTestnet, cfg.Exchanges[0].Type)
	s.Equal(5.0, cfg.Exchanges[0].RateLimit)
	s.Equal(DefaultBinanceRateBurst, cfg.Exchanges[0].RateBurst)
	s.True(cfg.Archive.Enabled)
	s.Equal("debug", cfg.Log.Level)
}

func (s *ConfigTestSuite) TestExplicitZeroOverridesDefaults() {
	data := `
risk_management:
  trailing_stop:
    enabled: false
  circuit_breakers:
    daily_loss_limit: 0
    weekly_loss_limit: 0
exchanges:
  - name: paper
    type: paper
    fee_rate: 0
    slippage: 0
  - name: costly
    type: paper
    fee_rate: 0.002
`
	cfg, err := Parse([]byte(data))
	s.Require().NoError(err)

	rm := cfg.RiskManagement
	s.False(rm.TrailingStop.IsEnabled())
	s.Zero(rm.CircuitBreakers.DailyLimit())
	s.Zero(rm.CircuitBreakers.WeeklyLimit())

	s.Require().NotNil(cfg.Exchanges[0].FeeRate)
	s.Zero(cfg.Exchanges[0].PaperFeeRate())
	s.Zero(cfg.Exchanges[0].PaperSlippage())

	s.Equal(0.002, cfg.Exchanges[1].PaperFeeRate())
	s.Equal(DefaultPaperSlippage, cfg.Exchanges[1].PaperSlippage())

	s.Run("only daily limit disabled", func() {
		cfg, err := Parse([]byte("risk_management:\n  circuit_breakers:\n    daily_loss_limit: 0\n" + minimalConfig))
		s.Require().NoError(err)
		s.Zero(cfg.RiskManagement.CircuitBreakers.DailyLimit())
		s.Equal(DefaultWeeklyLossLimit, cfg.RiskManagement.CircuitBreakers.WeeklyLimit())
	})
}

func (s *ConfigTestSuite) TestParseRejectsInvalidConfig() {
	tests := []struct {
		name string
		data string
	}{
		{name: "no exchanges", data: `risk_management: {max_exposure: 0.5}`},
		{name: "exposure above one", data: "risk_management:\n  max_exposure: 1.5\n" + minimalConfig},
		{name: "negative risk per trade", data: "risk_management:\n  risk_per_trade: -0.1\n" + minimalConfig},
		{name: "unknown exchange type", data: "exchanges:\n  - name: x\n    type: ftx\n"},
		{name: "binance without keys", data: "exchanges:\n  - name: b\n    type: binance\n"},
		{name: "duplicate exchange", data: minimalConfig + "  - name: paper\n    type: paper\n"},
		{name: "archive without path", data: "archive:\n  enabled: true\n" + minimalConfig},
		{name: "negative fee rate", data: "exchanges:\n  - name: p\n    type: paper\n    fee_rate: -0.1\n"},
		{name: "daily loss limit above one", data: "risk_management:\n  circuit_breakers:\n    daily_loss_limit: 2\n" + minimalConfig},
		{name: "bad log level", data: "log:\n  level: loud\n" + minimalConfig},
		{name: "malformed yaml", data: "exchanges: [\n"},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			_, err := Parse([]byte(tc.data))
			s.Error(err)
			s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func (s *ConfigTestSuite) TestLoad() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(minimalConfig), 0644))

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Len(cfg.Exchanges, 1)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeConfigNotFound))
}

func (s *ConfigTestSuite) TestDefault() {
	cfg := Default()
	s.Equal(DefaultInitialCapital, cfg.RiskManagement.InitialCapital)
	s.True(cfg.RiskManagement.TrailingStop.IsEnabled())
	s.Equal(DefaultDailyLossLimit, cfg.RiskManagement.CircuitBreakers.DailyLimit())
	s.Empty(cfg.Exchanges)
}

func (s *ConfigTestSuite) TestGetConfigSchema() {
	schema, err := GetConfigSchema()
	s.Require().NoError(err)

	var parsed map[string]any
	s.Require().NoError(json.Unmarshal([]byte(schema), &parsed))

	properties := parsed["properties"].(map[string]any)
	s.Contains(properties, "risk_management")
	s.Contains(properties, "exchanges")
}
