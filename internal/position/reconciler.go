// Package position maintains the net position per exchange and pair from fills.
package position

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/keylock"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/risk"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RiskTracker receives position exposure and price updates.
type RiskTracker interface {
	SetPositionExposure(key types.PositionKey, quantity, price float64)
	UpdatePositionRisk(position types.Position, price float64) optional.Option[float64]
}

// FillResult describes how a fill changed a position.
type FillResult struct {
	// RealizedPnL is the PnL realized by this fill. It is 0 for opening or increasing fills.
	RealizedPnL float64
	// Position is the position after the fill, None when the fill left the key flat.
	Position optional.Option[types.Position]
	Opened   bool
	Closed   bool
	Reversed bool
}

// Trigger is a protective exit detected on a price update.
type Trigger struct {
	Position types.Position
	// Reason is types.OrderReasonStopLoss or types.OrderReasonTakeProfit.
	Reason string
	Level  float64
	Price  float64
}

// Reconciler applies fills to positions.
//
// All mutations of one key are serialized by a keyed lock. The position map holds values
// and is replaced entry by entry under a short lock, so readers always see whole positions.
type Reconciler struct {
	locks     *keylock.KeyLock[types.PositionKey]
	mu        sync.RWMutex
	positions map[types.PositionKey]types.Position
	risk      RiskTracker
	logger    *logger.Logger
}

func NewReconciler(riskTracker RiskTracker, log *logger.Logger) *Reconciler {
	return &Reconciler{
		locks:     keylock.New[types.PositionKey](),
		mu:        sync.RWMutex{},
		positions: make(map[types.PositionKey]types.Position),
		risk:      riskTracker,
		logger:    log.Named("position"),
	}
}

func (r *Reconciler) load(key types.PositionKey) (types.Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	position, ok := r.positions[key]

	return position, ok
}

func (r *Reconciler) store(key types.PositionKey, position optional.Option[types.Position]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if position.IsNone() {
		delete(r.positions, key)

		return
	}

	r.positions[key] = position.Unwrap()
}

// ApplyFill folds an incremental fill into the position of its key.
func (r *Reconciler) ApplyFill(fill types.Fill) (FillResult, error) {
	if fill.Quantity <= 0 || fill.Price <= 0 {
		return FillResult{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"fill for order %s has non-positive quantity %f or price %f", fill.OrderID, fill.Quantity, fill.Price)
	}

	key := fill.Key()

	unlock := r.locks.Lock(key)
	defer unlock()

	existing, ok := r.load(key)

	var result FillResult

	switch {
	case !ok:
		result = FillResult{
			RealizedPnL: 0,
			Position:    optional.Some(openPosition(fill, fill.Quantity)),
			Opened:      true,
			Closed:      false,
			Reversed:    false,
		}
	case existing.Side == fill.Side.PositionSide():
		result = FillResult{
			RealizedPnL: 0,
			Position:    optional.Some(increase(existing, fill)),
			Opened:      false,
			Closed:      false,
			Reversed:    false,
		}
	default:
		result = reduce(existing, fill)
	}

	r.store(key, result.Position)

	if result.Position.IsSome() {
		position := result.Position.Unwrap()
		r.risk.SetPositionExposure(key, position.Quantity, position.MarkPrice())
	} else {
		r.risk.SetPositionExposure(key, 0, 0)
	}

	r.logFill(fill, result)

	return result, nil
}

func (r *Reconciler) logFill(fill types.Fill, result FillResult) {
	fields := []zap.Field{
		zap.String("key", fill.Key().String()),
		zap.String("order_id", fill.OrderID),
		zap.String("side", string(fill.Side)),
		zap.Float64("quantity", fill.Quantity),
		zap.Float64("price", fill.Price),
		zap.Float64("realized_pnl", result.RealizedPnL),
	}

	switch {
	case result.Reversed:
		r.logger.Info("Position reversed", fields...)
	case result.Closed:
		r.logger.Info("Position closed", fields...)
	case result.Opened:
		r.logger.Info("Position opened", fields...)
	default:
		r.logger.Info("Position updated", fields...)
	}
}

func openPosition(fill types.Fill, quantity float64) types.Position {
	position := types.Position{
		Exchange:      fill.Exchange,
		Pair:          fill.Pair,
		Side:          fill.Side.PositionSide(),
		EntryPrice:    fill.Price,
		Quantity:      quantity,
		CurrentPrice:  fill.Price,
		UnrealizedPnL: 0,
		RealizedPnL:   0,
		StopLoss:      optional.None[float64](),
		TakeProfit:    optional.None[float64](),
		StrategyID:    fill.StrategyID,
		OpenedAt:      fill.Timestamp,
		UpdatedAt:     fill.Timestamp,
	}

	if fill.StopLoss > 0 {
		position.StopLoss = optional.Some(fill.StopLoss)
	}

	if fill.TakeProfit > 0 {
		position.TakeProfit = optional.Some(fill.TakeProfit)
	}

	return position
}

// increase adds a same-direction fill with a volume weighted entry price.
func increase(position types.Position, fill types.Fill) types.Position {
	qty := decimal.NewFromFloat(position.Quantity)
	fillQty := decimal.NewFromFloat(fill.Quantity)
	total := qty.Add(fillQty)

	entry := decimal.NewFromFloat(position.EntryPrice).Mul(qty).
		Add(decimal.NewFromFloat(fill.Price).Mul(fillQty)).
		Div(total)

	position.EntryPrice = entry.InexactFloat64()
	position.Quantity = total.InexactFloat64()
	position.CurrentPrice = fill.Price
	position.UnrealizedPnL = unrealized(position.Side, position.EntryPrice, fill.Price, position.Quantity)
	position.UpdatedAt = fill.Timestamp

	return position
}

// reduce applies an opposite-direction fill. A fill larger than the position closes it
// and opens the residual in the fill's direction at the fill price.
func reduce(position types.Position, fill types.Fill) FillResult {
	qty := decimal.NewFromFloat(position.Quantity)
	fillQty := decimal.NewFromFloat(fill.Quantity)
	closed := decimal.Min(qty, fillQty)

	pnl := realized(position.Side, position.EntryPrice, fill.Price, closed)

	if fillQty.LessThan(qty) {
		position.Quantity = qty.Sub(fillQty).InexactFloat64()
		position.RealizedPnL = decimal.NewFromFloat(position.RealizedPnL).Add(pnl).InexactFloat64()
		position.CurrentPrice = fill.Price
		position.UnrealizedPnL = unrealized(position.Side, position.EntryPrice, fill.Price, position.Quantity)
		position.UpdatedAt = fill.Timestamp

		return FillResult{
			RealizedPnL: pnl.InexactFloat64(),
			Position:    optional.Some(position),
			Opened:      false,
			Closed:      false,
			Reversed:    false,
		}
	}

	residual := fillQty.Sub(qty)
	if residual.IsPositive() {
		reversed := openPosition(fill, residual.InexactFloat64())
		// Stops planned for the closed side do not apply to the reversed position.
		reversed.StopLoss = optional.None[float64]()
		reversed.TakeProfit = optional.None[float64]()

		return FillResult{
			RealizedPnL: pnl.InexactFloat64(),
			Position:    optional.Some(reversed),
			Opened:      true,
			Closed:      true,
			Reversed:    true,
		}
	}

	return FillResult{
		RealizedPnL: pnl.InexactFloat64(),
		Position:    optional.None[types.Position](),
		Opened:      false,
		Closed:      true,
		Reversed:    false,
	}
}

func realized(side types.PositionSide, entry, price float64, quantity decimal.Decimal) decimal.Decimal {
	diff := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(entry))
	if side == types.PositionSideShort {
		diff = diff.Neg()
	}

	return diff.Mul(quantity)
}

func unrealized(side types.PositionSide, entry, price, quantity float64) float64 {
	return realized(side, entry, price, decimal.NewFromFloat(quantity)).InexactFloat64()
}

// UpdatePrice marks the position of key to price, maintains its trailing stop and reports
// a protective exit when the stop or take profit is hit.
func (r *Reconciler) UpdatePrice(key types.PositionKey, price float64, at time.Time) optional.Option[Trigger] {
	if price <= 0 {
		return optional.None[Trigger]()
	}

	unlock := r.locks.Lock(key)
	defer unlock()

	position, ok := r.load(key)
	if !ok {
		return optional.None[Trigger]()
	}

	position.CurrentPrice = price
	position.UnrealizedPnL = unrealized(position.Side, position.EntryPrice, price, position.Quantity)
	position.StopLoss = r.risk.UpdatePositionRisk(position, price)
	position.UpdatedAt = at

	r.store(key, optional.Some(position))

	if position.StopLoss.IsSome() && risk.IsStopHit(position.Side, price, position.StopLoss.Unwrap()) {
		return optional.Some(Trigger{
			Position: position,
			Reason:   types.OrderReasonStopLoss,
			Level:    position.StopLoss.Unwrap(),
			Price:    price,
		})
	}

	if position.TakeProfit.IsSome() && risk.IsTakeProfitHit(position.Side, price, position.TakeProfit.Unwrap()) {
		return optional.Some(Trigger{
			Position: position,
			Reason:   types.OrderReasonTakeProfit,
			Level:    position.TakeProfit.Unwrap(),
			Price:    price,
		})
	}

	return optional.None[Trigger]()
}

// Position returns the open position of key.
func (r *Reconciler) Position(key types.PositionKey) optional.Option[types.Position] {
	position, ok := r.load(key)
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(position)
}

// Positions returns the open positions matching filter ordered by key.
func (r *Reconciler) Positions(filter types.PositionFilter) []types.Position {
	r.mu.RLock()

	positions := make([]types.Position, 0, len(r.positions))
	for _, position := range r.positions {
		if filter.Matches(position.Exchange, position.Pair, position.StrategyID) {
			positions = append(positions, position)
		}
	}

	r.mu.RUnlock()

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Key().String() < positions[j].Key().String()
	})

	return positions
}

// Keys returns the keys of all open positions.
func (r *Reconciler) Keys() []types.PositionKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]types.PositionKey, 0, len(r.positions))
	for key := range r.positions {
		keys = append(keys, key)
	}

	return keys
}

// TotalUnrealized returns the unrealized PnL summed over open positions.
func (r *Reconciler) TotalUnrealized() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, position := range r.positions {
		total = total.Add(decimal.NewFromFloat(position.UnrealizedPnL))
	}

	return total.InexactFloat64()
}
