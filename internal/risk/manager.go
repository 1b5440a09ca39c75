// Package risk gates signals against portfolio limits.
//
// Signals that add exposure pass, in order, the circuit breaker, the position
// sizer, the exposure monitor, the drawdown monitor and the stop-loss manager.
// Rejections are decisions, not errors: they are logged and counted.
package risk

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
)

type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectCircuitBreaker   RejectReason = "circuit_breaker"
	RejectZeroSize         RejectReason = "zero_size"
	RejectExposureLimit    RejectReason = "exposure_limit"
	RejectMaxDrawdown      RejectReason = "max_drawdown"
	RejectNoPrice          RejectReason = "no_price"
	RejectNoPosition       RejectReason = "no_position"
	RejectInvalidDirection RejectReason = "invalid_direction"
)

// Code maps the reason to its error code.
func (r RejectReason) Code() errors.ErrorCode {
	switch r {
	case RejectCircuitBreaker:
		return errors.ErrCodeCircuitBreakerTripped
	case RejectExposureLimit:
		return errors.ErrCodeExposureExceeded
	case RejectMaxDrawdown:
		return errors.ErrCodeDrawdownExceeded
	case RejectNoPrice:
		return errors.ErrCodeMarketDataMissing
	case RejectNoPosition:
		return errors.ErrCodePositionNotFound
	default:
		return errors.ErrCodeRiskRejected
	}
}

// Request is the input of one risk evaluation.
type Request struct {
	Signal types.Signal
	// Price is the resolved execution price: the signal's target price or the current ticker.
	Price float64
	// Position is the open position for the signal's key, if any.
	Position optional.Option[types.Position]
	// Closing is the unfilled quantity of open orders already reducing Position.
	Closing float64
}

// Decision is the risk gate's verdict.
type Decision struct {
	Admitted bool
	Quantity float64
	Reason   RejectReason
	// ReservationID identifies exposure held for an admitted order. Empty for exits.
	ReservationID string
	StopLoss      optional.Option[float64]
	TakeProfit    optional.Option[float64]
}

func reject(reason RejectReason) Decision {
	return Decision{
		Admitted:   false,
		Quantity:   0,
		Reason:     reason,
		StopLoss:   optional.None[float64](),
		TakeProfit: optional.None[float64](),
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager coordinates the risk components and owns the process scoped capital state.
type Manager struct {
	cfg      config.RiskConfig
	sizer    *PositionSizer
	stops    *StopLossManager
	exposure *ExposureMonitor
	drawdown *DrawdownMonitor
	breaker  *CircuitBreaker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.RWMutex
	capital float64
}

// NewManager creates a Manager with capital set to the configured initial capital.
func NewManager(cfg config.RiskConfig, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Manager {
	manager := &Manager{
		cfg:     cfg,
		logger:  log.Named("risk"),
		metrics: m,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(manager)
	}

	manager.sizer = NewPositionSizer(cfg.RiskPerTrade, cfg.MaxPositionSize)
	manager.stops = NewStopLossManager(cfg.RiskMultiplier, cfg.TakeProfitRatio, cfg.TrailingStop.IsEnabled(), cfg.TrailingStop.Percent)
	manager.exposure = NewExposureMonitor(cfg.MaxExposure)
	manager.drawdown = NewDrawdownMonitor(cfg.MaxDrawdown, cfg.DrawdownHistorySize, manager.now)
	manager.breaker = NewCircuitBreaker(cfg.CircuitBreakers.DailyLimit(), cfg.CircuitBreakers.WeeklyLimit(), manager.now)

	manager.capital = cfg.InitialCapital
	manager.drawdown.UpdateCapital(cfg.InitialCapital)
	manager.breaker.SetStartingCapital(cfg.InitialCapital)

	return manager
}

// Capital returns the capital used for sizing and exposure limits.
func (m *Manager) Capital() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.capital
}

// Evaluate runs the gate for one signal.
func (m *Manager) Evaluate(req Request) Decision {
	if !req.Signal.OpensExposure() {
		return m.evaluateExit(req)
	}

	decision := m.evaluateEntry(req)
	if !decision.Admitted {
		m.logger.Warn("Signal rejected by risk gate",
			zap.String("strategy", req.Signal.StrategyID),
			zap.String("key", req.Signal.Key().String()),
			zap.String("type", string(req.Signal.Type)),
			zap.String("reason", string(decision.Reason)),
		)
		m.metrics.RecordRiskRejection(string(decision.Reason))
	}

	return decision
}

func (m *Manager) evaluateEntry(req Request) Decision {
	signal := req.Signal
	if signal.Direction == types.DirectionNeutral {
		return reject(RejectInvalidDirection)
	}

	if !m.breaker.IsTradingAllowed() {
		return reject(RejectCircuitBreaker)
	}

	if req.Price <= 0 {
		return reject(RejectNoPrice)
	}

	capital := m.Capital()

	// 1. sizer
	size := m.sizer.Size(capital, signal.Volatility, req.Price)
	if signal.Quantity > 0 && signal.Quantity < size {
		size = signal.Quantity
	}

	if size <= 0 {
		return reject(RejectZeroSize)
	}

	// 2. exposure
	reservationID := uuid.New().String()
	if !m.exposure.Reserve(reservationID, capital, size*req.Price) {
		return reject(RejectExposureLimit)
	}

	// 3. drawdown
	if m.drawdown.IsMaxDrawdownExceeded() {
		m.exposure.Release(reservationID)

		return reject(RejectMaxDrawdown)
	}

	// 4. stop loss, for entries only
	decision := Decision{
		Admitted:      true,
		Quantity:      size,
		Reason:        RejectNone,
		ReservationID: reservationID,
		StopLoss:      optional.None[float64](),
		TakeProfit:    optional.None[float64](),
	}

	if signal.Type == types.SignalTypeEntry {
		side := positionSide(signal.Direction)
		decision.StopLoss = optional.Some(m.stops.InitialStop(req.Price, side, signal.Volatility))
		decision.TakeProfit = m.stops.TakeProfit(req.Price, side, signal.Volatility)
	}

	return decision
}

// evaluateExit caps an exit at the part of the open position no other order is
// closing yet. Exits reduce risk and bypass the circuit breaker, sizing, exposure
// and drawdown checks.
func (m *Manager) evaluateExit(req Request) Decision {
	if req.Position.IsNone() {
		m.logger.Warn("Exit signal without open position",
			zap.String("strategy", req.Signal.StrategyID),
			zap.String("key", req.Signal.Key().String()),
		)
		m.metrics.RecordRiskRejection(string(RejectNoPosition))

		return reject(RejectNoPosition)
	}

	position := req.Position.Unwrap()
	if req.Signal.Direction != types.DirectionNeutral && positionSide(req.Signal.Direction) != position.Side {
		m.logger.Warn("Exit signal direction does not match open position",
			zap.String("key", req.Signal.Key().String()),
			zap.String("direction", string(req.Signal.Direction)),
			zap.String("position_side", string(position.Side)),
		)
		m.metrics.RecordRiskRejection(string(RejectNoPosition))

		return reject(RejectNoPosition)
	}

	quantity := position.Quantity - req.Closing
	if quantity <= 0 {
		m.logger.Warn("Exit signal already covered by open orders",
			zap.String("key", req.Signal.Key().String()),
			zap.Float64("position", position.Quantity),
			zap.Float64("closing", req.Closing),
		)
		m.metrics.RecordRiskRejection(string(RejectNoPosition))

		return reject(RejectNoPosition)
	}

	if req.Signal.Quantity > 0 && req.Signal.Quantity < quantity {
		quantity = req.Signal.Quantity
	}

	return Decision{
		Admitted:   true,
		Quantity:   quantity,
		Reason:     RejectNone,
		StopLoss:   optional.None[float64](),
		TakeProfit: optional.None[float64](),
	}
}

func positionSide(direction types.Direction) types.PositionSide {
	if direction == types.DirectionShort {
		return types.PositionSideShort
	}

	return types.PositionSideLong
}

// ConsumeReservation converts part of a reservation into position exposure.
func (m *Manager) ConsumeReservation(id string, value float64) {
	if id == "" {
		return
	}

	m.exposure.Consume(id, value)
}

// ReleaseReservation drops a reservation once its order is settled or failed.
func (m *Manager) ReleaseReservation(id string) {
	if id == "" {
		return
	}

	m.exposure.Release(id)
}

// SetPositionExposure records a position's quantity and mark price. A zero quantity removes it.
func (m *Manager) SetPositionExposure(key types.PositionKey, quantity, price float64) {
	m.exposure.SetPosition(key, quantity, price)
}

// UpdatePositionRisk refreshes the position's mark price and returns its trailing stop.
func (m *Manager) UpdatePositionRisk(position types.Position, price float64) optional.Option[float64] {
	m.exposure.UpdatePrice(position.Key(), price)

	if position.StopLoss.IsNone() {
		return position.StopLoss
	}

	current := position.StopLoss.Unwrap()
	updated := m.stops.UpdateTrailingStop(price, position.Side, current)

	if updated != current {
		m.logger.Debug("Trailing stop tightened",
			zap.String("key", position.Key().String()),
			zap.Float64("from", current),
			zap.Float64("to", updated),
			zap.Float64("price", price),
		)
	}

	return optional.Some(updated)
}

// UpdateCapital feeds current capital to the drawdown monitor and circuit breaker.
func (m *Manager) UpdateCapital(capital float64) {
	m.mu.Lock()
	m.capital = capital
	m.mu.Unlock()

	m.drawdown.UpdateCapital(capital)

	if m.breaker.UpdateCapital(capital) {
		m.logger.Warn("Circuit breaker tripped",
			zap.String("reason", m.breaker.Reason()),
			zap.Float64("capital", capital),
		)
	}
}

// ResetCircuitBreaker re-enables trading after a trip.
func (m *Manager) ResetCircuitBreaker() {
	if reason := m.breaker.Reset(); reason != "" {
		m.logger.Info("Circuit breaker reset", zap.String("was", reason))
	}
}

// ResetRiskState makes current capital the new peak and restarts loss windows.
func (m *Manager) ResetRiskState() {
	capital := m.Capital()
	m.drawdown.Reset(capital)
	m.drawdown.UpdateCapital(capital)
	m.breaker.SetStartingCapital(capital)
	m.breaker.Reset()

	m.logger.Info("Risk state reset", zap.Float64("capital", capital))
}

// Snapshot returns the current risk metrics.
func (m *Manager) Snapshot() types.RiskMetrics {
	capital := m.Capital()
	maxDrawdown, maxDuration := m.drawdown.MaxDrawdownPeriod()

	return types.RiskMetrics{
		TotalExposure:         m.exposure.Total(),
		ReservedExposure:      m.exposure.Reserved(),
		ExposureRatio:         m.exposure.Ratio(capital),
		CurrentDrawdown:       m.drawdown.Drawdown(),
		MaxDrawdown:           maxDrawdown,
		MaxDrawdownDuration:   maxDuration,
		RecoveryFactor:        m.drawdown.RecoveryFactor(),
		PeakCapital:           m.drawdown.Peak(),
		CurrentCapital:        capital,
		PositionCount:         m.exposure.Count(),
		PositionCorrelation:   m.exposure.Correlation(),
		IsMaxDrawdownExceeded: m.drawdown.IsMaxDrawdownExceeded(),
		IsTradingAllowed:      m.breaker.IsTradingAllowed(),
		CircuitBreakReason:    m.breaker.Reason(),
		Timestamp:             m.now(),
	}
}
