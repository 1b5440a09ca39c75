// Package execution turns admitted signals into exchange orders and tracks them to a terminal state.
package execution

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/exchange"
	"github.com/rxtech-lab/argo-execution/internal/keylock"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/position"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	anomalyUnknownOrder    = "unknown_order"
	anomalyInvalidState    = "invalid_transition"
	anomalyFilledDecreased = "filled_decreased"
	anomalyFillRejected    = "fill_rejected"
)

// FillApplier folds fills into positions.
type FillApplier interface {
	ApplyFill(fill types.Fill) (position.FillResult, error)
}

// TradeRecorder receives every executed fill.
type TradeRecorder interface {
	Record(trade types.Trade)
}

// ReservationTracker converts and releases risk gate exposure reservations.
type ReservationTracker interface {
	ConsumeReservation(id string, value float64)
	ReleaseReservation(id string)
}

// OrderSink archives orders once they reach a terminal state.
type OrderSink interface {
	WriteOrder(order types.Order) error
}

type trackedOrder struct {
	order         types.Order
	reservationID string
}

type Option func(*OrderManager)

// WithOrderSink adds a sink for terminal orders.
func WithOrderSink(sink OrderSink) Option {
	return func(m *OrderManager) {
		m.sinks = append(m.sinks, sink)
	}
}

// WithOrderListener registers fn to be called after every order status change.
func WithOrderListener(fn func(order types.Order)) Option {
	return func(m *OrderManager) {
		m.listeners = append(m.listeners, fn)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *OrderManager) {
		m.now = now
	}
}

// OrderManager owns the lifecycle of every order the engine submits.
//
// Updates for one order id are serialized by a keyed lock. The open order map holds
// values and is only touched under a short lock.
type OrderManager struct {
	exchanges    *exchange.Registry
	fills        FillApplier
	recorder     TradeRecorder
	reservations ReservationTracker
	sinks        []OrderSink
	listeners    []func(order types.Order)

	locks   *keylock.KeyLock[string]
	mu      sync.RWMutex
	open    map[string]trackedOrder
	history []types.Order

	historyLimit int
	workers      int
	logger       *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewOrderManager(
	exchanges *exchange.Registry,
	fills FillApplier,
	recorder TradeRecorder,
	reservations ReservationTracker,
	workers int,
	historyLimit int,
	log *logger.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *OrderManager {
	if workers < 1 {
		workers = 1
	}

	manager := &OrderManager{
		exchanges:    exchanges,
		fills:        fills,
		recorder:     recorder,
		reservations: reservations,
		locks:        keylock.New[string](),
		open:         make(map[string]trackedOrder),
		history:      make([]types.Order, 0),
		historyLimit: historyLimit,
		workers:      workers,
		logger:       log.Named("orders"),
		metrics:      m,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// Submit places intent on its exchange. On failure nothing is tracked, the reservation
// is released and ok is false.
func (m *OrderManager) Submit(ctx context.Context, intent Intent) (types.Order, bool) {
	ex, err := m.exchanges.Get(intent.Exchange)
	if err != nil {
		m.submitFailed(intent, err)

		return types.Order{}, false
	}

	clientID := intent.ReservationID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	req := types.OrderRequest{
		ClientID:   clientID,
		Exchange:   intent.Exchange,
		Pair:       intent.Pair,
		Type:       intent.Type,
		Side:       intent.Side,
		Quantity:   intent.Quantity,
		StrategyID: intent.StrategyID,
		Price:      intent.Price,
	}

	placed, err := ex.CreateOrder(ctx, req)
	if err != nil {
		m.submitFailed(intent, err)

		return types.Order{}, false
	}

	now := m.now()
	baseline := types.Order{
		ID:               placed.ID,
		ClientID:         clientID,
		Exchange:         intent.Exchange,
		Pair:             intent.Pair,
		Type:             intent.Type,
		Side:             intent.Side,
		Quantity:         intent.Quantity,
		Price:            intent.Price,
		Status:           types.OrderStatusNew,
		FilledQuantity:   0,
		AverageFillPrice: 0,
		Fee:              0,
		StrategyID:       intent.StrategyID,
		Reason:           intent.Reason,
		StopLoss:         intent.StopLoss,
		TakeProfit:       intent.TakeProfit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if placed.Status == types.OrderStatusNew || placed.Status == "" {
		placed.Status = types.OrderStatusSubmitted
	}

	m.logger.Info("Order submitted",
		zap.String("order_id", placed.ID),
		zap.String("key", baseline.Key().String()),
		zap.String("side", string(intent.Side)),
		zap.String("type", string(intent.Type)),
		zap.Float64("quantity", intent.Quantity),
		zap.String("reason", intent.Reason.Reason),
	)

	unlock := m.locks.Lock(placed.ID)
	defer unlock()

	tracked := trackedOrder{order: baseline, reservationID: intent.ReservationID}
	updated := m.apply(tracked, placed)

	return updated, true
}

func (m *OrderManager) submitFailed(intent Intent, err error) {
	m.logger.Error("Order submission failed",
		zap.String("exchange", intent.Exchange),
		zap.String("pair", intent.Pair),
		zap.String("side", string(intent.Side)),
		zap.Float64("quantity", intent.Quantity),
		zap.Error(err),
	)
	m.metrics.RecordOrderFailure(intent.Exchange, exchange.OperationCreateOrder)

	if intent.ReservationID != "" {
		m.reservations.ReleaseReservation(intent.ReservationID)
	}
}

// Poll fetches every tracked open order with at most workers calls in flight and
// applies the reported state.
func (m *OrderManager) Poll(ctx context.Context) error {
	orders := m.OpenOrders(types.PositionFilter{})
	if len(orders) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for _, order := range orders {
		g.Go(func() error {
			m.pollOne(gctx, order)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

func (m *OrderManager) pollOne(ctx context.Context, order types.Order) {
	ex, err := m.exchanges.Get(order.Exchange)
	if err != nil {
		m.logger.Error("Order tracked on unknown exchange", zap.String("order_id", order.ID), zap.Error(err))

		return
	}

	latest, err := ex.FetchOrder(ctx, order.ID, order.Pair)
	if err != nil {
		m.logger.Warn("Order fetch failed",
			zap.String("order_id", order.ID),
			zap.String("exchange", order.Exchange),
			zap.Error(err),
		)
		m.metrics.RecordOrderFailure(order.Exchange, exchange.OperationFetchOrder)

		return
	}

	m.HandleUpdate(latest)
}

// HandleUpdate applies an exchange reported order state. Updates for orders that are not
// tracked are logged and ignored.
func (m *OrderManager) HandleUpdate(latest types.Order) {
	unlock := m.locks.Lock(latest.ID)
	defer unlock()

	m.mu.RLock()
	tracked, ok := m.open[latest.ID]
	m.mu.RUnlock()

	if !ok {
		m.logger.Warn("Update for untracked order ignored",
			zap.String("order_id", latest.ID),
			zap.String("status", string(latest.Status)),
		)
		m.metrics.RecordAnomaly(anomalyUnknownOrder)

		return
	}

	m.apply(tracked, latest)
}

// apply merges latest into tracked. Callers hold the order's lock.
func (m *OrderManager) apply(tracked trackedOrder, latest types.Order) types.Order {
	prev := tracked.order

	if !CanTransition(prev.Status, latest.Status) {
		m.logger.Warn("Order update ignored",
			zap.String("order_id", prev.ID),
			zap.Error(errors.NewTransitionError(prev.ID, string(prev.Status), string(latest.Status))),
		)
		m.metrics.RecordAnomaly(anomalyInvalidState)

		return prev
	}

	next := prev
	next.Status = latest.Status

	if latest.UpdatedAt.IsZero() {
		next.UpdatedAt = m.now()
	} else {
		next.UpdatedAt = latest.UpdatedAt
	}

	switch delta := latest.FilledQuantity - prev.FilledQuantity; {
	case delta > 0:
		next = m.applyFill(tracked, next, latest, delta)
	case delta < 0:
		m.logger.Warn("Reported filled quantity decreased",
			zap.String("order_id", prev.ID),
			zap.Float64("previous", prev.FilledQuantity),
			zap.Float64("reported", latest.FilledQuantity),
		)
		m.metrics.RecordAnomaly(anomalyFilledDecreased)
	}

	m.commit(tracked, next)

	return next
}

// applyFill reconciles the newly filled part of an order and records it as a trade.
func (m *OrderManager) applyFill(tracked trackedOrder, next types.Order, latest types.Order, delta float64) types.Order {
	prev := tracked.order

	price := latest.AverageFillPrice
	if prev.FilledQuantity > 0 && latest.AverageFillPrice > 0 {
		price = (latest.AverageFillPrice*latest.FilledQuantity - prev.AverageFillPrice*prev.FilledQuantity) / delta
	}

	if price <= 0 {
		price = latest.AverageFillPrice
	}

	if price <= 0 && prev.Price.IsSome() {
		price = prev.Price.Unwrap()
	}

	fee := latest.Fee - prev.Fee
	if fee < 0 {
		fee = 0
	}

	next.FilledQuantity = latest.FilledQuantity
	if latest.AverageFillPrice > 0 {
		next.AverageFillPrice = latest.AverageFillPrice
	} else {
		next.AverageFillPrice = price
	}

	if latest.Fee > prev.Fee {
		next.Fee = latest.Fee
	}

	fill := types.Fill{
		OrderID:    prev.ID,
		Exchange:   prev.Exchange,
		Pair:       prev.Pair,
		Side:       prev.Side,
		Quantity:   delta,
		Price:      price,
		Fee:        fee,
		StrategyID: prev.StrategyID,
		Reason:     prev.Reason.Reason,
		Timestamp:  next.UpdatedAt,
		StopLoss:   valueOrZero(prev.StopLoss),
		TakeProfit: valueOrZero(prev.TakeProfit),
	}

	result, err := m.fills.ApplyFill(fill)
	if err != nil {
		m.logger.Warn("Fill rejected by reconciler", zap.String("order_id", prev.ID), zap.Error(err))
		m.metrics.RecordAnomaly(anomalyFillRejected)

		return next
	}

	if tracked.reservationID != "" {
		m.reservations.ConsumeReservation(tracked.reservationID, delta*price)
	}

	trade := types.Trade{
		ID:          uuid.New().String(),
		OrderID:     prev.ID,
		Exchange:    prev.Exchange,
		Pair:        prev.Pair,
		Side:        prev.Side,
		Quantity:    delta,
		Price:       price,
		Fee:         fee,
		StrategyID:  prev.StrategyID,
		Reason:      prev.Reason.Reason,
		Timestamp:   fill.Timestamp,
		RealizedPnL: result.RealizedPnL,
	}

	m.recorder.Record(trade)

	return next
}

// commit stores next and, when it is terminal, moves it to history.
func (m *OrderManager) commit(tracked trackedOrder, next types.Order) {
	changed := tracked.order.Status != next.Status

	m.mu.Lock()
	if next.Status.IsTerminal() {
		delete(m.open, next.ID)
		m.appendHistoryLocked(next)
	} else {
		m.open[next.ID] = trackedOrder{order: next, reservationID: tracked.reservationID}
	}
	openCount := len(m.open)
	m.mu.Unlock()

	m.metrics.SetOpenOrders(openCount)

	if next.Status.IsTerminal() {
		if tracked.reservationID != "" {
			m.reservations.ReleaseReservation(tracked.reservationID)
		}

		for _, sink := range m.sinks {
			if err := sink.WriteOrder(next); err != nil {
				m.logger.Error("Failed to archive order", zap.String("order_id", next.ID), zap.Error(err))
			}
		}
	}

	if !changed {
		return
	}

	m.logger.Info("Order status changed",
		zap.String("order_id", next.ID),
		zap.String("from", string(tracked.order.Status)),
		zap.String("to", string(next.Status)),
		zap.Float64("filled", next.FilledQuantity),
	)
	m.metrics.RecordOrderStatus(next)

	for _, listener := range m.listeners {
		listener(next)
	}
}

func (m *OrderManager) appendHistoryLocked(order types.Order) {
	m.history = append(m.history, order)

	if m.historyLimit > 0 && len(m.history) > m.historyLimit {
		m.history = append([]types.Order(nil), m.history[len(m.history)-m.historyLimit:]...)
	}
}

// Cancel cancels an open order. A fill reported concurrently wins: after a successful
// cancel the venue state is re-fetched and a terminal state it reports is accepted.
// It returns true when the order ends CANCELED.
func (m *OrderManager) Cancel(ctx context.Context, orderID string) (bool, error) {
	m.mu.RLock()
	tracked, ok := m.open[orderID]
	m.mu.RUnlock()

	if !ok {
		if order := m.Order(orderID); order.IsSome() {
			return false, errors.Newf(errors.ErrCodeInvalidTransition, "order %s is already %s", orderID, order.Unwrap().Status)
		}

		return false, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", orderID)
	}

	order := tracked.order

	ex, err := m.exchanges.Get(order.Exchange)
	if err != nil {
		return false, err
	}

	canceled, err := ex.CancelOrder(ctx, order.ID, order.Pair)
	if err != nil {
		m.logger.Warn("Order cancel failed", zap.String("order_id", order.ID), zap.Error(err))
		m.metrics.RecordOrderFailure(order.Exchange, exchange.OperationCancelOrder)

		return false, err
	}

	if !canceled {
		return false, nil
	}

	// Fills the venue reports alongside the cancel are kept; only the status is forced.
	latest, err := ex.FetchOrder(ctx, order.ID, order.Pair)
	if err != nil {
		latest = order
	}

	if err != nil || !latest.Status.IsTerminal() {
		latest.Status = types.OrderStatusCanceled
		latest.UpdatedAt = m.now()
	}

	unlock := m.locks.Lock(order.ID)
	defer unlock()

	m.mu.RLock()
	current, stillOpen := m.open[order.ID]
	m.mu.RUnlock()

	if !stillOpen {
		final := m.Order(order.ID)

		return final.IsSome() && final.Unwrap().Status == types.OrderStatusCanceled, nil
	}

	result := m.apply(current, latest)

	return result.Status == types.OrderStatusCanceled, nil
}

// OpenOrders returns the tracked non-terminal orders matching filter, oldest first.
func (m *OrderManager) OpenOrders(filter types.PositionFilter) []types.Order {
	m.mu.RLock()

	orders := make([]types.Order, 0, len(m.open))
	for _, tracked := range m.open {
		if filter.Matches(tracked.order.Exchange, tracked.order.Pair, tracked.order.StrategyID) {
			orders = append(orders, tracked.order)
		}
	}

	m.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}

		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	return orders
}

// OrderHistory returns up to limit of the most recent terminal orders, oldest first.
// A limit of 0 returns all retained orders.
func (m *OrderManager) OrderHistory(limit int) []types.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && len(m.history) > limit {
		start = len(m.history) - limit
	}

	history := make([]types.Order, len(m.history)-start)
	copy(history, m.history[start:])

	return history
}

// Order looks an order up among open orders and retained history.
func (m *OrderManager) Order(orderID string) optional.Option[types.Order] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tracked, ok := m.open[orderID]; ok {
		return optional.Some(tracked.order)
	}

	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].ID == orderID {
			return optional.Some(m.history[i])
		}
	}

	return optional.None[types.Order]()
}

func valueOrZero(value optional.Option[float64]) float64 {
	if value.IsNone() {
		return 0
	}

	return value.Unwrap()
}
