package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradePnl struct {
	// Realized PnL. Sum of every trade's realized pnl.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl"`
	// Unrealized PnL over open positions at the last update.
	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	// Total PnL. RealizedPnL + UnrealizedPnL - fees.
	TotalPnL float64 `yaml:"total_pnl" json:"total_pnl"`
	// Maximum loss. Minimum realized pnl of a single trade.
	MaximumLoss float64 `yaml:"maximum_loss" json:"maximum_loss"`
	// Maximum profit. Maximum realized pnl of a single trade.
	MaximumProfit float64 `yaml:"maximum_profit" json:"maximum_profit"`
}

type TradeResult struct {
	NumberOfTrades int `yaml:"number_of_trades" json:"number_of_trades"`
	// Trades that realized a positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades" json:"number_of_winning_trades"`
	// Trades that realized a negative pnl.
	NumberOfLosingTrades int     `yaml:"number_of_losing_trades" json:"number_of_losing_trades"`
	WinRate              float64 `yaml:"win_rate" json:"win_rate"`
	// MaxDrawdown is the largest peak to trough drop of cumulative realized pnl.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
}

// SessionStats contains statistics for one engine session.
type SessionStats struct {
	// ID is the session identifier (e.g., "run_1").
	ID string `yaml:"id" json:"id"`
	// Date in YYYY-MM-DD format.
	Date           string      `yaml:"date" json:"date"`
	SessionStart   time.Time   `yaml:"session_start" json:"session_start"`
	LastUpdated    time.Time   `yaml:"last_updated" json:"last_updated"`
	Pairs          []string    `yaml:"pairs" json:"pairs"`
	TradeResult    TradeResult `yaml:"trade_result" json:"trade_result"`
	TradePnl       TradePnl    `yaml:"trade_pnl" json:"trade_pnl"`
	TotalFees      float64     `yaml:"total_fees" json:"total_fees"`
	OrdersFilePath string      `yaml:"orders_file_path" json:"orders_file_path"`
	TradesFilePath string      `yaml:"trades_file_path" json:"trades_file_path"`
}

// DailySessionStats holds the current day's statistics next to the session totals.
type DailySessionStats struct {
	Daily      SessionStats `yaml:"daily" json:"daily"`
	Cumulative SessionStats `yaml:"cumulative" json:"cumulative"`
}

// NewSessionStats creates a SessionStats with zero counters.
func NewSessionStats(runID string, pairs []string, now time.Time) SessionStats {
	return SessionStats{
		ID:           runID,
		Date:         now.Format("2006-01-02"),
		SessionStart: now,
		LastUpdated:  now,
		Pairs:        pairs,
	}
}

// WriteSessionStats writes session statistics to a YAML file.
func WriteSessionStats(path string, stats SessionStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal session stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session stats to file: %w", err)
	}

	return nil
}

// ReadSessionStats reads session statistics from a YAML file.
func ReadSessionStats(path string) (SessionStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionStats{}, fmt.Errorf("failed to read session stats file: %w", err)
	}

	var stats SessionStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return SessionStats{}, fmt.Errorf("failed to unmarshal session stats: %w", err)
	}

	return stats, nil
}
