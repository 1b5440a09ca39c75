package engine

import (
	"github.com/rxtech-lab/argo-execution/internal/types"
)

// Lifecycle callback types. Callbacks with an error return abort Run when they fail.

// OnEngineStartCallback is called once the loops are about to start.
type OnEngineStartCallback func(exchanges []string) error

// OnEngineStopCallback is called when Run returns (always called via defer).
type OnEngineStopCallback func(err error)

// OnSignalCallback is called with the outcome of every processed signal.
type OnSignalCallback func(result SignalResult)

// OnOrderUpdateCallback is called after every order status change.
type OnOrderUpdateCallback func(order types.Order)

// OnTradeCallback is called after every recorded trade.
type OnTradeCallback func(trade types.Trade)

// OnRiskUpdateCallback is called with a fresh risk snapshot after every ticker tick.
type OnRiskUpdateCallback func(metrics types.RiskMetrics)

// OnProtectiveExitCallback is called when a stop loss or take profit submits a closing order.
type OnProtectiveExitCallback func(position types.Position, order types.Order)

// OnStatsUpdateCallback is called with the cumulative session statistics after every ticker tick.
type OnStatsUpdateCallback func(stats types.SessionStats)

// OnErrorCallback is called when a non-fatal error occurs.
type OnErrorCallback func(err error)

// Callbacks holds the lifecycle callback functions of the engine.
// All fields are pointers - nil means no callback will be invoked.
type Callbacks struct {
	OnEngineStart *OnEngineStartCallback

	// OnEngineStop is called when Run exits.
	OnEngineStop *OnEngineStopCallback

	OnSignal *OnSignalCallback

	OnOrderUpdate *OnOrderUpdateCallback

	OnTrade *OnTradeCallback

	OnRiskUpdate *OnRiskUpdateCallback

	OnProtectiveExit *OnProtectiveExitCallback

	OnStatsUpdate *OnStatsUpdateCallback

	OnError *OnErrorCallback
}

// Merge returns callbacks that invoke c and then other. The first failing start callback wins.
func (c Callbacks) Merge(other Callbacks) Callbacks {
	merged := Callbacks{}

	if c.OnEngineStart != nil || other.OnEngineStart != nil {
		fn := OnEngineStartCallback(func(exchanges []string) error {
			for _, cb := range []*OnEngineStartCallback{c.OnEngineStart, other.OnEngineStart} {
				if cb == nil {
					continue
				}

				if err := (*cb)(exchanges); err != nil {
					return err
				}
			}

			return nil
		})
		merged.OnEngineStart = &fn
	}

	merged.OnEngineStop = mergeVoid(c.OnEngineStop, other.OnEngineStop)
	merged.OnSignal = mergeVoid(c.OnSignal, other.OnSignal)
	merged.OnOrderUpdate = mergeVoid(c.OnOrderUpdate, other.OnOrderUpdate)
	merged.OnTrade = mergeVoid(c.OnTrade, other.OnTrade)
	merged.OnRiskUpdate = mergeVoid(c.OnRiskUpdate, other.OnRiskUpdate)
	merged.OnStatsUpdate = mergeVoid(c.OnStatsUpdate, other.OnStatsUpdate)
	merged.OnError = mergeVoid(c.OnError, other.OnError)

	if c.OnProtectiveExit != nil || other.OnProtectiveExit != nil {
		fn := OnProtectiveExitCallback(func(position types.Position, order types.Order) {
			for _, cb := range []*OnProtectiveExitCallback{c.OnProtectiveExit, other.OnProtectiveExit} {
				if cb != nil {
					(*cb)(position, order)
				}
			}
		})
		merged.OnProtectiveExit = &fn
	}

	return merged
}

func mergeVoid[F ~func(T), T any](a, b *F) *F {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	fn := F(func(v T) {
		(*a)(v)
		(*b)(v)
	})

	return &fn
}
