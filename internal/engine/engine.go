// Package engine wires the signal gate, risk gate, order manager, position reconciler and
// trade recorder into one process scoped execution engine.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/archive"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/exchange/factory"
	"github.com/rxtech-lab/argo-execution/internal/execution"
	"github.com/rxtech-lab/argo-execution/internal/keylock"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/position"
	"github.com/rxtech-lab/argo-execution/internal/recorder"
	"github.com/rxtech-lab/argo-execution/internal/risk"
	"github.com/rxtech-lab/argo-execution/internal/strategy"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultRunID = "live"

// SignalResult is the outcome of one ProcessSignal call.
type SignalResult struct {
	SignalID string `json:"signal_id"`
	// Outcome is one of the metrics.Signal* outcomes.
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	// Code classifies a dropped signal. 0 when accepted.
	Code  errors.ErrorCode             `json:"code,omitempty"`
	Order optional.Option[types.Order] `json:"order"`
}

// Accepted reports whether the signal resulted in a submitted order.
func (r SignalResult) Accepted() bool {
	return r.Outcome == metrics.SignalAccepted
}

type options struct {
	now        func() time.Time
	strategies []strategy.Strategy
}

type Option func(*options)

// WithClock overrides the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithStrategies registers strategies fed with market data on every ticker tick.
func WithStrategies(strategies ...strategy.Strategy) Option {
	return func(o *options) {
		o.strategies = append(o.strategies, strategies...)
	}
}

// Engine is the execution and risk control engine. All state is owned by the instance.
type Engine struct {
	cfg       *config.Config
	exchanges *factory.Exchanges

	risk       *risk.Manager
	positions  *position.Reconciler
	stats      *recorder.StatsTracker
	archive    *archive.Archive
	recorder   *recorder.Recorder
	orders     *execution.OrderManager
	gate       *execution.SignalGate
	strategies *strategy.Runner

	callbacksMu sync.RWMutex
	callbacks   Callbacks

	// keys serializes risk evaluation and submission per position key.
	keys *keylock.KeyLock[types.PositionKey]

	// pendingExits holds the protective exit order per position key. An empty id marks
	// a submission in flight.
	exitMu       sync.Mutex
	pendingExits map[types.PositionKey]string

	closeOnce sync.Once
	closeErr  error

	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// New builds an engine over exchanges. When archiving is enabled a new run folder is
// created under the configured data output path.
func New(cfg *config.Config, exchanges *factory.Exchanges, log *logger.Logger, m *metrics.Metrics, opts ...Option) (*Engine, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	log = log.Named("engine")

	e := &Engine{
		cfg:          cfg,
		exchanges:    exchanges,
		keys:         keylock.New[types.PositionKey](),
		pendingExits: make(map[types.PositionKey]string),
		now:          o.now,
		logger:       log,
		metrics:      m,
	}

	runner, err := strategy.NewRunner(log, o.strategies...)
	if err != nil {
		return nil, err
	}

	e.strategies = runner
	e.risk = risk.NewManager(cfg.RiskManagement, log, m, risk.WithClock(o.now))
	e.positions = position.NewReconciler(e.risk, log)
	e.stats = recorder.NewStatsTracker(log, o.now)

	start := o.now()
	pairs := e.configuredPairs()

	if cfg.Archive.Enabled {
		a, err := archive.Open(cfg.Archive.DataOutputPath, start, pairs, e.stats, log)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeArchiveFailed, "failed to open archive", err)
		}

		e.archive = a
	} else {
		e.stats.Initialize(defaultRunID, pairs, start)
	}

	recorderOpts := []recorder.Option{
		recorder.WithStatsTracker(e.stats),
		recorder.WithTradeListener(e.onTrade),
	}

	orderOpts := []execution.Option{
		execution.WithOrderListener(e.onOrder),
		execution.WithClock(o.now),
	}

	if e.archive != nil {
		recorderOpts = append(recorderOpts, recorder.WithTradeSink(e.archive))
		orderOpts = append(orderOpts, execution.WithOrderSink(e.archive))
	}

	e.recorder = recorder.NewRecorder(
		cfg.RiskManagement.InitialCapital,
		e.risk,
		e.positions,
		cfg.Execution.HistoryLimit,
		log,
		m,
		recorderOpts...,
	)

	e.orders = execution.NewOrderManager(
		exchanges.Registry,
		e.positions,
		e.recorder,
		e.risk,
		cfg.Execution.PollWorkers,
		cfg.Execution.HistoryLimit,
		log,
		m,
		orderOpts...,
	)

	e.gate = execution.NewSignalGate(log, m, o.now)

	log.Info("Engine initialized",
		zap.Strings("exchanges", exchanges.Registry.Names()),
		zap.Strings("strategies", runner.Names()),
		zap.Float64("initial_capital", cfg.RiskManagement.InitialCapital),
		zap.Bool("archive", e.archive != nil),
	)

	return e, nil
}

// configuredPairs returns every pair named in the exchange configuration.
func (e *Engine) configuredPairs() []string {
	seen := make(map[string]struct{})

	for _, ex := range e.cfg.Exchanges {
		for _, pair := range ex.Pairs {
			seen[pair] = struct{}{}
		}

		for pair := range ex.Prices {
			seen[pair] = struct{}{}
		}
	}

	pairs := make([]string, 0, len(seen))
	for pair := range seen {
		pairs = append(pairs, pair)
	}

	sort.Strings(pairs)

	return pairs
}

// watchKeys returns the keys fetched on a ticker tick: configured pairs and open positions.
func (e *Engine) watchKeys() []types.PositionKey {
	seen := make(map[types.PositionKey]struct{})

	for _, ex := range e.cfg.Exchanges {
		for _, pair := range ex.Pairs {
			seen[types.PositionKey{Exchange: ex.Name, Pair: pair}] = struct{}{}
		}
	}

	for _, key := range e.positions.Keys() {
		seen[key] = struct{}{}
	}

	keys := make([]types.PositionKey, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	return keys
}

func (e *Engine) currentCallbacks() Callbacks {
	e.callbacksMu.RLock()
	defer e.callbacksMu.RUnlock()

	return e.callbacks
}

func (e *Engine) reportError(err error) {
	if cb := e.currentCallbacks().OnError; cb != nil {
		(*cb)(err)
	}
}

// onOrder runs inside the order manager's per-order lock. It must not call back into
// the order manager for the same order.
func (e *Engine) onOrder(order types.Order) {
	if order.Status.IsTerminal() && isProtective(order.Reason.Reason) {
		e.exitMu.Lock()
		if id, ok := e.pendingExits[order.Key()]; ok && (id == "" || id == order.ID) {
			delete(e.pendingExits, order.Key())
		}
		e.exitMu.Unlock()
	}

	e.strategies.NotifyOrder(order)

	if cb := e.currentCallbacks().OnOrderUpdate; cb != nil {
		(*cb)(order)
	}
}

func (e *Engine) onTrade(trade types.Trade) {
	e.strategies.NotifyTrade(trade)

	if cb := e.currentCallbacks().OnTrade; cb != nil {
		(*cb)(trade)
	}
}

func isProtective(reason string) bool {
	return reason == types.OrderReasonStopLoss || reason == types.OrderReasonTakeProfit
}

// ProcessSignal runs signal through the signal gate and the risk gate and submits the
// resulting order. Dropped, rejected and failed signals are reported in the result,
// never as errors.
func (e *Engine) ProcessSignal(ctx context.Context, signal types.Signal) SignalResult {
	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}

	result := e.processSignal(ctx, signal)
	e.mark(signal, result)

	if cb := e.currentCallbacks().OnSignal; cb != nil {
		(*cb)(result)
	}

	return result
}

func (e *Engine) processSignal(ctx context.Context, signal types.Signal) SignalResult {
	result := SignalResult{
		SignalID: signal.ID,
		Order:    optional.None[types.Order](),
	}

	if err := e.gate.Admit(signal); err != nil {
		result.Outcome = metrics.SignalInvalid
		if errors.HasCode(err, errors.ErrCodeSignalExpired) {
			result.Outcome = metrics.SignalExpired
		}

		result.Reason = err.Error()
		result.Code = errors.GetCode(err)

		return result
	}

	if _, err := e.exchanges.Registry.Get(signal.Exchange); err != nil {
		return e.dropSignal(signal, result, metrics.SignalInvalid, errors.GetCode(err), err.Error())
	}

	price := e.resolvePrice(ctx, signal)

	unlock := e.keys.Lock(signal.Key())
	defer unlock()

	current := e.positions.Position(signal.Key())
	request := risk.Request{
		Signal:   signal,
		Price:    price,
		Position: current,
	}

	if current.IsSome() {
		request.Closing = e.closingQuantity(current.Unwrap())
	}

	decision := e.risk.Evaluate(request)
	if !decision.Admitted {
		return e.dropSignal(signal, result, metrics.SignalRejected, decision.Reason.Code(), string(decision.Reason))
	}

	intent, err := execution.NewIntent(signal, decision, price, current)
	if err != nil {
		if decision.ReservationID != "" {
			e.risk.ReleaseReservation(decision.ReservationID)
		}

		return e.dropSignal(signal, result, metrics.SignalInvalid, errors.GetCode(err), err.Error())
	}

	order, ok := e.orders.Submit(ctx, intent)
	if !ok {
		return e.dropSignal(signal, result, metrics.SignalFailed, errors.ErrCodeOrderFailed, "order submission failed")
	}

	e.metrics.RecordSignal(signal.StrategyID, metrics.SignalAccepted)

	result.Outcome = metrics.SignalAccepted
	result.Order = optional.Some(order)

	return result
}

// closingQuantity sums the unfilled quantity of open orders on the other side of position.
func (e *Engine) closingQuantity(position types.Position) float64 {
	side := position.Side.CloseSide()
	total := 0.0

	for _, order := range e.orders.OpenOrders(types.PositionFilter{Exchange: position.Exchange, Pair: position.Pair}) {
		if order.Side == side {
			total += order.RemainingQuantity()
		}
	}

	return total
}

func (e *Engine) mark(signal types.Signal, result SignalResult) {
	if e.archive == nil {
		return
	}

	var orderID string
	if result.Order.IsSome() {
		orderID = result.Order.Unwrap().ID
	}

	mark := types.NewMark(signal, result.Outcome, result.Reason, orderID, e.now())
	if err := e.archive.WriteMark(mark); err != nil {
		e.logger.Error("Failed to archive signal decision", zap.String("signal_id", signal.ID), zap.Error(err))
	}
}

func (e *Engine) dropSignal(signal types.Signal, result SignalResult, outcome string, code errors.ErrorCode, reason string) SignalResult {
	e.logger.Warn("Signal dropped",
		zap.String("signal_id", signal.ID),
		zap.String("strategy", signal.StrategyID),
		zap.String("key", signal.Key().String()),
		zap.String("outcome", outcome),
		zap.String("reason", reason),
		zap.Int("code", int(code)),
	)
	e.metrics.RecordSignal(signal.StrategyID, outcome)

	result.Outcome = outcome
	result.Reason = reason
	result.Code = code

	return result
}

// resolvePrice returns the signal's target price or the current ticker price.
// 0 means no price is available.
func (e *Engine) resolvePrice(ctx context.Context, signal types.Signal) float64 {
	if signal.TargetPrice > 0 {
		return signal.TargetPrice
	}

	ex, err := e.exchanges.Registry.Get(signal.Exchange)
	if err != nil {
		return 0
	}

	ticker, err := ex.FetchTicker(ctx, signal.Pair)
	if err != nil {
		e.logger.Warn("Failed to fetch ticker for signal",
			zap.String("signal_id", signal.ID),
			zap.String("key", signal.Key().String()),
			zap.Error(err),
		)

		return 0
	}

	return ticker.Price()
}

// Run polls open orders and refreshes prices until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, callbacks Callbacks) error {
	var runErr error

	e.callbacksMu.Lock()
	e.callbacks = callbacks
	e.callbacksMu.Unlock()

	defer func() {
		if err := e.stats.WriteStatsYAML(); err != nil {
			e.logger.Warn("Failed to write final stats", zap.Error(err))
		}

		if callbacks.OnEngineStop != nil {
			(*callbacks.OnEngineStop)(runErr)
		}
	}()

	if callbacks.OnEngineStart != nil {
		if err := (*callbacks.OnEngineStart)(e.exchanges.Registry.Names()); err != nil {
			runErr = errors.Wrap(errors.ErrCodeCallbackFailed, "OnEngineStart callback failed", err)

			return runErr
		}
	}

	e.logger.Info("Engine started",
		zap.Duration("poll_interval", e.cfg.Execution.PollInterval),
		zap.Duration("ticker_interval", e.cfg.Execution.TickerInterval),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.loop(gctx, "poll", e.cfg.Execution.PollInterval, e.orders.Poll)
	})

	g.Go(func() error {
		return e.loop(gctx, "ticker", e.cfg.Execution.TickerInterval, e.Tick)
	})

	runErr = g.Wait()

	e.logger.Info("Engine stopped", zap.Error(runErr))

	return runErr
}

func (e *Engine) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				e.logger.Warn("Loop iteration failed", zap.String("loop", name), zap.Error(err))
				e.reportError(err)
			}
		}
	}
}

// Tick fetches tickers for watched pairs and open positions, marks positions to market,
// submits protective exits, feeds strategies and refreshes capital and risk metrics.
func (e *Engine) Tick(ctx context.Context) error {
	keys := e.watchKeys()
	tickers := make([]optional.Option[types.Ticker], len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Execution.PollWorkers)

	for i, key := range keys {
		g.Go(func() error {
			tickers[i] = e.fetchTicker(gctx, key)

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := e.now()

	for i, key := range keys {
		if tickers[i].IsNone() {
			continue
		}

		ticker := tickers[i].Unwrap()

		trigger := e.positions.UpdatePrice(key, ticker.Price(), now)
		if trigger.IsSome() {
			e.protectiveExit(ctx, trigger.Unwrap())
		}

		for _, signal := range e.strategies.ProcessMarketData(ctx, ticker) {
			e.ProcessSignal(ctx, signal)
		}
	}

	e.recorder.MarkToMarket()
	e.stats.HandleDateBoundary(now.Format("2006-01-02"))

	snapshot := e.risk.Snapshot()
	e.metrics.SetRiskMetrics(snapshot)

	if err := e.stats.WriteStatsYAML(); err != nil {
		e.logger.Warn("Failed to write stats", zap.Error(err))
	}

	callbacks := e.currentCallbacks()
	if callbacks.OnRiskUpdate != nil {
		(*callbacks.OnRiskUpdate)(snapshot)
	}

	if callbacks.OnStatsUpdate != nil {
		(*callbacks.OnStatsUpdate)(e.stats.CumulativeStats())
	}

	return nil
}

func (e *Engine) fetchTicker(ctx context.Context, key types.PositionKey) optional.Option[types.Ticker] {
	ex, err := e.exchanges.Registry.Get(key.Exchange)
	if err != nil {
		return optional.None[types.Ticker]()
	}

	ticker, err := ex.FetchTicker(ctx, key.Pair)
	if err != nil {
		e.logger.Warn("Failed to fetch ticker", zap.String("key", key.String()), zap.Error(err))

		return optional.None[types.Ticker]()
	}

	if ticker.Pair == "" {
		ticker.Pair = key.Pair
	}

	return optional.Some(ticker)
}

// protectiveExit submits a market order closing the triggered position unless one is
// already in flight for its key. Resting strategy orders closing the same position are
// canceled first.
func (e *Engine) protectiveExit(ctx context.Context, trigger position.Trigger) {
	key := trigger.Position.Key()

	unlock := e.keys.Lock(key)
	defer unlock()

	e.exitMu.Lock()
	if _, pending := e.pendingExits[key]; pending {
		e.exitMu.Unlock()
		e.logger.Debug("Protective exit already pending", zap.String("key", key.String()))

		return
	}
	e.pendingExits[key] = ""
	e.exitMu.Unlock()

	remaining := e.uncovered(ctx, trigger.Position)
	if remaining.IsNone() {
		e.exitMu.Lock()
		if id := e.pendingExits[key]; id == "" {
			delete(e.pendingExits, key)
		}
		e.exitMu.Unlock()

		e.logger.Debug("Position already closed or closing", zap.String("key", key.String()))

		return
	}

	message := fmt.Sprintf("%s hit: price %g crossed %g", trigger.Reason, trigger.Price, trigger.Level)
	intent := execution.CloseIntent(remaining.Unwrap(), trigger.Reason, message)

	e.logger.Info("Protective exit triggered",
		zap.String("key", key.String()),
		zap.String("reason", trigger.Reason),
		zap.Float64("level", trigger.Level),
		zap.Float64("price", trigger.Price),
		zap.Float64("quantity", intent.Quantity),
	)

	order, ok := e.orders.Submit(ctx, intent)

	e.exitMu.Lock()
	if _, still := e.pendingExits[key]; still {
		if ok && !order.Status.IsTerminal() {
			e.pendingExits[key] = order.ID
		} else {
			delete(e.pendingExits, key)
		}
	}
	e.exitMu.Unlock()

	if !ok {
		e.reportError(errors.Newf(errors.ErrCodeOrderFailed, "protective exit for %s failed", key))

		return
	}

	e.metrics.RecordProtectiveExit(key.Exchange, key.Pair, trigger.Reason)

	if cb := e.currentCallbacks().OnProtectiveExit; cb != nil {
		(*cb)(trigger.Position, order)
	}
}

// uncovered cancels resting strategy orders closing position and returns the current
// position reduced to the quantity no open order closes. None when nothing is left.
func (e *Engine) uncovered(ctx context.Context, triggered types.Position) optional.Option[types.Position] {
	side := triggered.Side.CloseSide()

	for _, order := range e.orders.OpenOrders(types.PositionFilter{Exchange: triggered.Exchange, Pair: triggered.Pair}) {
		if order.Side != side || isProtective(order.Reason.Reason) {
			continue
		}

		if _, err := e.orders.Cancel(ctx, order.ID); err != nil {
			e.logger.Warn("Failed to cancel order ahead of protective exit",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	}

	current := e.positions.Position(triggered.Key())
	if current.IsNone() || current.Unwrap().Side != triggered.Side {
		return optional.None[types.Position]()
	}

	position := current.Unwrap()
	position.Quantity -= e.closingQuantity(position)

	if position.Quantity <= 0 {
		return optional.None[types.Position]()
	}

	return optional.Some(position)
}

// SetPaperPrice moves the reference price of a paper exchange and applies the fills it causes.
func (e *Engine) SetPaperPrice(exchangeName string, pair string, price float64) error {
	venue, ok := e.exchanges.Paper[exchangeName]
	if !ok {
		return errors.Newf(errors.ErrCodeUnknownExchange, "%s is not a paper exchange", exchangeName)
	}

	if price <= 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "price must be positive")
	}

	for _, order := range venue.SetPrice(pair, price) {
		e.orders.HandleUpdate(order)
	}

	return nil
}

// RiskMetrics returns a fresh risk snapshot.
func (e *Engine) RiskMetrics() types.RiskMetrics {
	return e.risk.Snapshot()
}

func (e *Engine) Positions(filter types.PositionFilter) []types.Position {
	return e.positions.Positions(filter)
}

func (e *Engine) OpenOrders(filter types.PositionFilter) []types.Order {
	return e.orders.OpenOrders(filter)
}

// OrderHistory returns the most recent terminal orders, oldest first.
func (e *Engine) OrderHistory(limit int) []types.Order {
	return e.orders.OrderHistory(limit)
}

func (e *Engine) Order(orderID string) optional.Option[types.Order] {
	return e.orders.Order(orderID)
}

// Trades returns the most recent trades, oldest first.
func (e *Engine) Trades(limit int) []types.Trade {
	return e.recorder.Trades(limit)
}

// Marks returns the archived signal decisions of the current date. Without an archive it returns none.
func (e *Engine) Marks(filter types.PositionFilter, outcome string) ([]types.Mark, error) {
	if e.archive == nil {
		return []types.Mark{}, nil
	}

	return e.archive.Marks(filter, outcome)
}

// Stats returns the session statistics.
func (e *Engine) Stats() types.DailySessionStats {
	return types.DailySessionStats{
		Daily:      e.stats.DailyStats(),
		Cumulative: e.stats.CumulativeStats(),
	}
}

// Exchanges returns the registered exchange names.
func (e *Engine) Exchanges() []string {
	return e.exchanges.Registry.Names()
}

// CancelOrder cancels an open order on its exchange.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	return e.orders.Cancel(ctx, orderID)
}

// ResetCircuitBreaker clears a tripped circuit breaker.
func (e *Engine) ResetCircuitBreaker() {
	e.risk.ResetCircuitBreaker()
}

// ResetRiskState makes current capital the new peak and restarts the loss windows.
func (e *Engine) ResetRiskState() {
	e.risk.ResetRiskState()
}

// Close writes the final statistics and closes the archive. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.archive != nil {
			e.closeErr = e.archive.Close()
		} else if err := e.stats.WriteStatsYAML(); err != nil {
			e.closeErr = err
		}

		e.logger.Info("Engine closed",
			zap.Float64("capital", e.recorder.CurrentCapital()),
			zap.Float64("realized_pnl", e.recorder.RealizedPnL()),
			zap.Float64("fees", e.recorder.TotalFees()),
		)
	})

	return e.closeErr
}
