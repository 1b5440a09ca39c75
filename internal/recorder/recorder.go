// Package recorder keeps the trade history and turns realized PnL, fees and
// unrealized PnL into the capital figure the risk gate works from.
package recorder

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeSink archives executed trades.
type TradeSink interface {
	WriteTrade(trade types.Trade) error
}

// CapitalTracker receives the current capital after every trade and mark.
type CapitalTracker interface {
	UpdateCapital(capital float64)
}

// UnrealizedSource reports the unrealized PnL of all open positions.
type UnrealizedSource interface {
	TotalUnrealized() float64
}

type Option func(*Recorder)

// WithTradeSink adds an archive for every recorded trade.
func WithTradeSink(sink TradeSink) Option {
	return func(r *Recorder) {
		r.sinks = append(r.sinks, sink)
	}
}

// WithTradeListener registers fn to be called after every recorded trade.
func WithTradeListener(fn func(trade types.Trade)) Option {
	return func(r *Recorder) {
		r.listeners = append(r.listeners, fn)
	}
}

// WithStatsTracker attaches session statistics.
func WithStatsTracker(stats *StatsTracker) Option {
	return func(r *Recorder) {
		r.stats = stats
	}
}

// Recorder appends trades and feeds capital back to the risk gate.
type Recorder struct {
	initialCapital decimal.Decimal
	capital        CapitalTracker
	unrealized     UnrealizedSource
	sinks          []TradeSink
	listeners      []func(trade types.Trade)
	stats          *StatsTracker

	mu           sync.RWMutex
	trades       []types.Trade
	realized     decimal.Decimal
	fees         decimal.Decimal
	realizedKey  map[types.PositionKey]decimal.Decimal
	historyLimit int

	// markMu orders capital updates so a stale figure never overwrites a newer one.
	markMu      sync.Mutex
	lastCapital float64

	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRecorder(
	initialCapital float64,
	capital CapitalTracker,
	unrealized UnrealizedSource,
	historyLimit int,
	log *logger.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Recorder {
	r := &Recorder{
		initialCapital: decimal.NewFromFloat(initialCapital),
		capital:        capital,
		unrealized:     unrealized,
		trades:         make([]types.Trade, 0),
		realized:       decimal.Zero,
		fees:           decimal.Zero,
		realizedKey:    make(map[types.PositionKey]decimal.Decimal),
		historyLimit:   historyLimit,
		lastCapital:    initialCapital,
		logger:         log.Named("recorder"),
		metrics:        m,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record appends trade, accumulates its realized PnL and fee exactly once and
// refreshes capital.
func (r *Recorder) Record(trade types.Trade) {
	key := types.PositionKey{Exchange: trade.Exchange, Pair: trade.Pair}

	r.mu.Lock()
	r.trades = append(r.trades, trade)
	if r.historyLimit > 0 && len(r.trades) > r.historyLimit {
		r.trades = r.trades[len(r.trades)-r.historyLimit:]
	}

	pnl := decimal.NewFromFloat(trade.RealizedPnL)
	r.realized = r.realized.Add(pnl)
	r.fees = r.fees.Add(decimal.NewFromFloat(trade.Fee))
	r.realizedKey[key] = r.realizedKey[key].Add(pnl)
	keyRealized := r.realizedKey[key].InexactFloat64()
	r.mu.Unlock()

	r.metrics.RecordTrade(trade, keyRealized)

	r.logger.Info("Trade recorded",
		zap.String("trade_id", trade.ID),
		zap.String("order_id", trade.OrderID),
		zap.String("key", key.String()),
		zap.String("side", string(trade.Side)),
		zap.Float64("quantity", trade.Quantity),
		zap.Float64("price", trade.Price),
		zap.Float64("fee", trade.Fee),
		zap.Float64("realized_pnl", trade.RealizedPnL),
	)

	if r.stats != nil {
		r.stats.RecordTrade(trade)
	}

	for _, sink := range r.sinks {
		if err := sink.WriteTrade(trade); err != nil {
			r.logger.Error("Failed to archive trade",
				zap.String("trade_id", trade.ID),
				zap.Error(err),
			)
		}
	}

	r.MarkToMarket()

	for _, listener := range r.listeners {
		listener(trade)
	}
}

// MarkToMarket recomputes initial + realized - fees + unrealized and feeds it to
// the capital tracker. It returns the new capital.
func (r *Recorder) MarkToMarket() float64 {
	r.markMu.Lock()
	defer r.markMu.Unlock()

	unrealized := 0.0
	if r.unrealized != nil {
		unrealized = r.unrealized.TotalUnrealized()
	}

	r.mu.RLock()
	capital := r.initialCapital.
		Add(r.realized).
		Sub(r.fees).
		Add(decimal.NewFromFloat(unrealized)).
		InexactFloat64()
	r.mu.RUnlock()

	r.lastCapital = capital

	if r.stats != nil {
		r.stats.SetUnrealizedPnL(unrealized)
	}

	if r.capital != nil {
		r.capital.UpdateCapital(capital)
	}

	return capital
}

// CurrentCapital returns the capital computed by the last mark.
func (r *Recorder) CurrentCapital() float64 {
	r.markMu.Lock()
	defer r.markMu.Unlock()

	return r.lastCapital
}

// RealizedPnL returns the cumulative realized PnL.
func (r *Recorder) RealizedPnL() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.realized.InexactFloat64()
}

// TotalFees returns the cumulative fees paid.
func (r *Recorder) TotalFees() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.fees.InexactFloat64()
}

// Trades returns up to limit most recent trades, oldest first. limit <= 0 returns all retained trades.
func (r *Recorder) Trades(limit int) []types.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if limit > 0 && len(r.trades) > limit {
		start = len(r.trades) - limit
	}

	out := make([]types.Trade, len(r.trades)-start)
	copy(out, r.trades[start:])

	return out
}

// TradesSince returns the retained trades executed at or after since.
func (r *Recorder) TradesSince(since time.Time) []types.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Trade, 0)
	for _, trade := range r.trades {
		if !trade.Timestamp.Before(since) {
			out = append(out, trade)
		}
	}

	return out
}

// Stats returns the attached stats tracker, nil when none.
func (r *Recorder) Stats() *StatsTracker {
	return r.stats
}
