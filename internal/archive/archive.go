// Package archive persists order, trade and signal decision history of an engine
// run to parquet files through in-memory DuckDB tables, one folder per run and date.
package archive

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/recorder"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"go.uber.org/zap"
)

const (
	OrdersFileName = "orders.parquet"
	TradesFileName = "trades.parquet"
	MarksFileName  = "marks.parquet"
	StatsFileName  = "stats.yaml"
)

// Archive is the order and trade sink of the engine. Files move to a new date
// folder when a record with a later date arrives.
type Archive struct {
	session *Session
	stats   *recorder.StatsTracker

	mu     sync.RWMutex
	orders *OrderWriter
	trades *TradeWriter
	marks  *MarkWriter

	logger *logger.Logger
}

// Open starts a new run under root. stats may be nil.
func Open(root string, start time.Time, pairs []string, stats *recorder.StatsTracker, log *logger.Logger) (*Archive, error) {
	log = log.Named("archive")

	session, err := NewSession(root, start, log)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		session: session,
		stats:   stats,
		logger:  log,
	}

	if err := a.openWriters(); err != nil {
		return nil, err
	}

	if stats != nil {
		stats.Initialize(session.RunID(), pairs, start)
	}

	a.setStatsPaths()

	return a, nil
}

func (a *Archive) openWriters() error {
	orders := NewOrderWriter(a.session.FilePath(OrdersFileName))
	if err := orders.Open(); err != nil {
		return err
	}

	trades := NewTradeWriter(a.session.FilePath(TradesFileName))
	if err := trades.Open(); err != nil {
		orders.Close()

		return err
	}

	marks := NewMarkWriter(a.session.FilePath(MarksFileName))
	if err := marks.Open(); err != nil {
		orders.Close()
		trades.Close()

		return err
	}

	a.orders = orders
	a.trades = trades
	a.marks = marks

	return nil
}

func (a *Archive) setStatsPaths() {
	if a.stats == nil {
		return
	}

	a.stats.SetFilePaths(
		a.session.FilePath(OrdersFileName),
		a.session.FilePath(TradesFileName),
		a.session.FilePath(StatsFileName),
	)
}

// rotate moves the writers to the folder of timestamp's date when it differs from the current one.
func (a *Archive) rotate(timestamp time.Time) error {
	if timestamp.IsZero() || timestamp.Format(dateLayout) == a.session.CurrentDate() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stats != nil {
		if err := a.stats.WriteStatsYAML(); err != nil {
			a.logger.Error("Failed to write stats before date rollover", zap.Error(err))
		}
	}

	changed, err := a.session.HandleDateBoundary(timestamp)
	if err != nil || !changed {
		return err
	}

	a.orders.Close()
	a.trades.Close()
	a.marks.Close()

	if err := a.openWriters(); err != nil {
		return err
	}

	a.setStatsPaths()

	return nil
}

// WriteOrder archives a terminal order.
func (a *Archive) WriteOrder(order types.Order) error {
	if err := a.rotate(order.UpdatedAt); err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.orders.WriteOrder(order)
}

// WriteTrade archives an executed trade.
func (a *Archive) WriteTrade(trade types.Trade) error {
	if err := a.rotate(trade.Timestamp); err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.trades.WriteTrade(trade)
}

// WriteMark archives a signal decision.
func (a *Archive) WriteMark(mark types.Mark) error {
	if err := a.rotate(mark.Timestamp); err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.marks.WriteMark(mark)
}

// Orders queries the current date's order archive.
func (a *Archive) Orders(filter types.PositionFilter, limit uint64) ([]types.Order, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.orders.Orders(filter, limit)
}

// Trades queries the current date's trade archive.
func (a *Archive) Trades(filter types.PositionFilter, limit uint64) ([]types.Trade, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.trades.Trades(filter, limit)
}

// Marks queries the current date's signal decisions. An empty outcome matches all.
func (a *Archive) Marks(filter types.PositionFilter, outcome string) ([]types.Mark, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.marks.Marks(filter, outcome)
}

// WriteStats writes stats.yaml into the current run folder.
func (a *Archive) WriteStats() error {
	if a.stats == nil {
		return nil
	}

	return a.stats.WriteStatsYAML()
}

func (a *Archive) Session() *Session {
	return a.session
}

// Close writes the final stats and releases the writers.
func (a *Archive) Close() error {
	statsErr := a.WriteStats()

	a.mu.Lock()
	defer a.mu.Unlock()

	ordersErr := a.orders.Close()
	tradesErr := a.trades.Close()
	marksErr := a.marks.Close()

	a.logger.Info("Archive closed",
		zap.String("run_id", a.session.RunID()),
		zap.String("path", a.session.RunPath()),
	)

	for _, err := range []error{statsErr, ordersErr, tradesErr, marksErr} {
		if err != nil {
			return err
		}
	}

	return nil
}
