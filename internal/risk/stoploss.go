package risk

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/types"
)

// StopLossManager computes initial protective levels and maintains trailing stops.
type StopLossManager struct {
	riskMultiplier  float64
	takeProfitRatio float64
	trailingEnabled bool
	trailingPercent float64
}

func NewStopLossManager(riskMultiplier, takeProfitRatio float64, trailingEnabled bool, trailingPercent float64) *StopLossManager {
	return &StopLossManager{
		riskMultiplier:  riskMultiplier,
		takeProfitRatio: takeProfitRatio,
		trailingEnabled: trailingEnabled,
		trailingPercent: trailingPercent,
	}
}

// InitialStop returns entry -/+ volatility*riskMultiplier for LONG/SHORT.
// A LONG stop never goes below 0.
func (m *StopLossManager) InitialStop(entryPrice float64, side types.PositionSide, volatility float64) float64 {
	distance := volatility * m.riskMultiplier
	if side == types.PositionSideLong {
		return math.Max(entryPrice-distance, 0)
	}

	return entryPrice + distance
}

// TakeProfit returns the take profit level, or None when disabled or volatility is unknown.
func (m *StopLossManager) TakeProfit(entryPrice float64, side types.PositionSide, volatility float64) optional.Option[float64] {
	if m.takeProfitRatio <= 0 || volatility <= 0 {
		return optional.None[float64]()
	}

	distance := volatility * m.riskMultiplier * m.takeProfitRatio
	if side == types.PositionSideLong {
		return optional.Some(entryPrice + distance)
	}

	return optional.Some(math.Max(entryPrice-distance, 0))
}

// UpdateTrailingStop tightens the stop toward price. It never loosens it.
func (m *StopLossManager) UpdateTrailingStop(currentPrice float64, side types.PositionSide, currentStop float64) float64 {
	if !m.trailingEnabled || currentPrice <= 0 {
		return currentStop
	}

	if side == types.PositionSideLong {
		return math.Max(currentStop, currentPrice*(1-m.trailingPercent))
	}

	return math.Min(currentStop, currentPrice*(1+m.trailingPercent))
}

// IsStopHit reports whether price has crossed the stop against the position.
func IsStopHit(side types.PositionSide, price, stop float64) bool {
	if price <= 0 {
		return false
	}

	if side == types.PositionSideLong {
		return price <= stop
	}

	return price >= stop
}

// IsTakeProfitHit reports whether price has reached the take profit level.
func IsTakeProfitHit(side types.PositionSide, price, takeProfit float64) bool {
	if price <= 0 {
		return false
	}

	if side == types.PositionSideLong {
		return price >= takeProfit
	}

	return price <= takeProfit
}
