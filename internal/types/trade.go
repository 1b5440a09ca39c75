package types

import "time"

// Trade is one executed fill of an order.
type Trade struct {
	ID         string    `yaml:"id" json:"id"`
	OrderID    string    `yaml:"order_id" json:"order_id"`
	Exchange   string    `yaml:"exchange" json:"exchange"`
	Pair       string    `yaml:"pair" json:"pair"`
	Side       OrderSide `yaml:"side" json:"side"`
	Quantity   float64   `yaml:"quantity" json:"quantity"`
	Price      float64   `yaml:"price" json:"price"`
	Fee        float64   `yaml:"fee" json:"fee"`
	StrategyID string    `yaml:"strategy_id" json:"strategy_id"`
	Reason     string    `yaml:"reason" json:"reason"`
	Timestamp  time.Time `yaml:"timestamp" json:"timestamp"`
	// RealizedPnL is the PnL this fill realized by reducing a position.
	// It is 0 for fills that open or increase a position.
	// For example, a LONG of 1 at 100 reduced by a SELL of 0.4 at 110 realizes (110-100)*0.4 = 4.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl"`
}

// Fill is an incremental execution reported for an order, fed to the position reconciler.
type Fill struct {
	OrderID    string
	Exchange   string
	Pair       string
	Side       OrderSide
	Quantity   float64
	Price      float64
	Fee        float64
	StrategyID string
	Reason     string
	Timestamp  time.Time
	// StopLoss and TakeProfit are attached to the position when the fill opens one.
	StopLoss   float64
	TakeProfit float64
}

// Key returns the position key of the fill.
func (f Fill) Key() PositionKey {
	return PositionKey{Exchange: f.Exchange, Pair: f.Pair}
}
