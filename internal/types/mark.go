package types

import "time"

// Mark records what happened to a signal at the moment it was decided.
type Mark struct {
	SignalID   string     `yaml:"signal_id" json:"signal_id"`
	StrategyID string     `yaml:"strategy_id" json:"strategy_id"`
	Exchange   string     `yaml:"exchange" json:"exchange"`
	Pair       string     `yaml:"pair" json:"pair"`
	SignalType SignalType `yaml:"signal_type" json:"signal_type"`
	Direction  Direction  `yaml:"direction" json:"direction"`
	Strength   float64    `yaml:"strength" json:"strength"`
	Volatility float64    `yaml:"volatility" json:"volatility"`
	// Outcome is one of accepted, expired, invalid, rejected or failed.
	Outcome string `yaml:"outcome" json:"outcome"`
	Reason  string `yaml:"reason" json:"reason"`
	// OrderID is empty unless the signal produced an order.
	OrderID   string    `yaml:"order_id" json:"order_id"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// NewMark builds the mark of signal.
func NewMark(signal Signal, outcome, reason, orderID string, at time.Time) Mark {
	return Mark{
		SignalID:   signal.ID,
		StrategyID: signal.StrategyID,
		Exchange:   signal.Exchange,
		Pair:       signal.Pair,
		SignalType: signal.Type,
		Direction:  signal.Direction,
		Strength:   signal.Strength,
		Volatility: signal.Volatility,
		Outcome:    outcome,
		Reason:     reason,
		OrderID:    orderID,
		Timestamp:  at,
	}
}
