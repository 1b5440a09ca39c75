package types

import "time"

// RiskMetrics is a point-in-time snapshot of portfolio risk.
type RiskMetrics struct {
	// TotalExposure is the sum of quantity * price over open positions.
	TotalExposure float64 `yaml:"total_exposure" json:"total_exposure"`
	// ReservedExposure is held by admitted orders that have not reached a terminal state.
	ReservedExposure float64 `yaml:"reserved_exposure" json:"reserved_exposure"`
	// ExposureRatio is TotalExposure divided by current capital.
	ExposureRatio       float64 `yaml:"exposure_ratio" json:"exposure_ratio"`
	CurrentDrawdown     float64 `yaml:"current_drawdown" json:"current_drawdown"`
	MaxDrawdown         float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// MaxDrawdownDuration is the longest stretch spent below the peak.
	MaxDrawdownDuration time.Duration `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`
	// RecoveryFactor is the gain multiple needed to return to the peak, 1/(1-drawdown).
	// It is +Inf once drawdown reaches 1.
	RecoveryFactor        float64   `yaml:"recovery_factor" json:"recovery_factor"`
	PeakCapital           float64   `yaml:"peak_capital" json:"peak_capital"`
	CurrentCapital        float64   `yaml:"current_capital" json:"current_capital"`
	PositionCount         int       `yaml:"position_count" json:"position_count"`
	PositionCorrelation   float64   `yaml:"position_correlation" json:"position_correlation"`
	IsMaxDrawdownExceeded bool      `yaml:"is_max_drawdown_exceeded" json:"is_max_drawdown_exceeded"`
	IsTradingAllowed      bool      `yaml:"is_trading_allowed" json:"is_trading_allowed"`
	CircuitBreakReason    string    `yaml:"circuit_break_reason" json:"circuit_break_reason"`
	Timestamp             time.Time `yaml:"timestamp" json:"timestamp"`
}
