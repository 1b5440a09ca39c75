package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Opposite returns the other side.
func (s PositionSide) Opposite() PositionSide {
	if s == PositionSideLong {
		return PositionSideShort
	}

	return PositionSideLong
}

// CloseSide returns the order side that reduces a position on this side.
func (s PositionSide) CloseSide() OrderSide {
	if s == PositionSideLong {
		return OrderSideSell
	}

	return OrderSideBuy
}

// PositionKey identifies a position. There is at most one open position per key.
type PositionKey struct {
	Exchange string `yaml:"exchange" json:"exchange"`
	Pair     string `yaml:"pair" json:"pair"`
}

func (k PositionKey) String() string {
	return k.Exchange + ":" + k.Pair
}

// Position is the net open holding for one exchange and pair.
type Position struct {
	Exchange string       `yaml:"exchange" json:"exchange"`
	Pair     string       `yaml:"pair" json:"pair"`
	Side     PositionSide `yaml:"side" json:"side"`
	// EntryPrice is the volume weighted average entry price.
	EntryPrice    float64 `yaml:"entry_price" json:"entry_price"`
	Quantity      float64 `yaml:"quantity" json:"quantity"`
	CurrentPrice  float64 `yaml:"current_price" json:"current_price"`
	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	// RealizedPnL accumulates PnL from partial closes of this position.
	RealizedPnL float64                  `yaml:"realized_pnl" json:"realized_pnl"`
	StopLoss    optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit  optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	StrategyID  string                   `yaml:"strategy_id" json:"strategy_id"`
	OpenedAt    time.Time                `yaml:"opened_at" json:"opened_at"`
	UpdatedAt   time.Time                `yaml:"updated_at" json:"updated_at"`
}

// Key returns the position key.
func (p Position) Key() PositionKey {
	return PositionKey{Exchange: p.Exchange, Pair: p.Pair}
}

// MarkPrice returns the last known market price, falling back to the entry price.
func (p Position) MarkPrice() float64 {
	if p.CurrentPrice > 0 {
		return p.CurrentPrice
	}

	return p.EntryPrice
}

// Exposure returns the absolute market value of the position.
func (p Position) Exposure() float64 {
	return p.Quantity * p.MarkPrice()
}

// PositionFilter narrows position and order queries. Empty fields match everything.
type PositionFilter struct {
	Exchange   string `yaml:"exchange" json:"exchange"`
	Pair       string `yaml:"pair" json:"pair"`
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
}

// Matches reports whether the given attributes satisfy the filter.
func (f PositionFilter) Matches(exchange, pair, strategyID string) bool {
	if f.Exchange != "" && f.Exchange != exchange {
		return false
	}

	if f.Pair != "" && f.Pair != pair {
		return false
	}

	if f.StrategyID != "" && f.StrategyID != strategyID {
		return false
	}

	return true
}
