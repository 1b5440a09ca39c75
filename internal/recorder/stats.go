package recorder

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// statsAccumulator holds running statistics over a set of trades.
type statsAccumulator struct {
	totalTrades   int
	winningTrades int
	losingTrades  int
	realizedPnL   float64
	unrealizedPnL float64
	totalFees     float64
	maxProfit     float64
	maxLoss       float64
	maxDrawdown   float64
	peakPnL       float64
}

func (a *statsAccumulator) add(trade types.Trade) {
	a.totalTrades++
	a.totalFees += trade.Fee
	a.realizedPnL += trade.RealizedPnL

	if trade.RealizedPnL > 0 {
		a.winningTrades++
	} else if trade.RealizedPnL < 0 {
		a.losingTrades++
	}

	if trade.RealizedPnL > a.maxProfit {
		a.maxProfit = trade.RealizedPnL
	}

	if trade.RealizedPnL < a.maxLoss {
		a.maxLoss = trade.RealizedPnL
	}

	if a.realizedPnL > a.peakPnL {
		a.peakPnL = a.realizedPnL
	}

	if drawdown := a.peakPnL - a.realizedPnL; drawdown > a.maxDrawdown {
		a.maxDrawdown = drawdown
	}
}

// StatsTracker keeps daily and session statistics and writes them to stats.yaml.
type StatsTracker struct {
	runID        string
	pairs        []string
	sessionStart time.Time
	currentDate  string

	daily      *statsAccumulator
	cumulative *statsAccumulator

	ordersFilePath  string
	tradesFilePath  string
	statsOutputPath string

	mu     sync.Mutex
	now    func() time.Time
	logger *logger.Logger
}

func NewStatsTracker(log *logger.Logger, now func() time.Time) *StatsTracker {
	if now == nil {
		now = time.Now
	}

	start := now()

	return &StatsTracker{
		sessionStart: start,
		currentDate:  start.Format(dateLayout),
		daily:        &statsAccumulator{},
		cumulative:   &statsAccumulator{},
		now:          now,
		logger:       log,
	}
}

// Initialize sets the session identity.
func (s *StatsTracker) Initialize(runID string, pairs []string, sessionStart time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runID = runID
	s.pairs = pairs
	s.sessionStart = sessionStart
	s.currentDate = sessionStart.Format(dateLayout)

	s.logger.Info("Stats tracker initialized",
		zap.String("run_id", runID),
		zap.Strings("pairs", pairs),
	)
}

// SetFilePaths sets the archive paths reported in the stats and the stats.yaml destination.
func (s *StatsTracker) SetFilePaths(ordersPath, tradesPath, statsPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ordersFilePath = ordersPath
	s.tradesFilePath = tradesPath
	s.statsOutputPath = statsPath
}

// RecordTrade adds trade to the daily and cumulative statistics. A trade on a new
// date resets the daily statistics first.
func (s *StatsTracker) RecordTrade(trade types.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !trade.Timestamp.IsZero() {
		if date := trade.Timestamp.Format(dateLayout); date != s.currentDate {
			s.rollDateLocked(date)
		}
	}

	s.daily.add(trade)
	s.cumulative.add(trade)

	s.logger.Debug("Trade recorded",
		zap.String("order_id", trade.OrderID),
		zap.Float64("pnl", trade.RealizedPnL),
		zap.Int("total_trades", s.cumulative.totalTrades),
	)
}

// SetUnrealizedPnL updates the unrealized PnL of open positions.
func (s *StatsTracker) SetUnrealizedPnL(unrealizedPnL float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.daily.unrealizedPnL = unrealizedPnL
	s.cumulative.unrealizedPnL = unrealizedPnL
}

// HandleDateBoundary resets the daily statistics when date differs from the current date.
func (s *StatsTracker) HandleDateBoundary(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if date == s.currentDate {
		return false
	}

	s.rollDateLocked(date)

	return true
}

func (s *StatsTracker) rollDateLocked(date string) {
	oldDate := s.currentDate
	s.currentDate = date

	unrealized := s.daily.unrealizedPnL
	s.daily = &statsAccumulator{unrealizedPnL: unrealized}

	s.logger.Info("Date boundary handled, daily stats reset",
		zap.String("old_date", oldDate),
		zap.String("new_date", date),
	)
}

// DailyStats returns the current day's statistics.
func (s *StatsTracker) DailyStats() types.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buildLocked(s.daily, s.currentDate)
}

// CumulativeStats returns the statistics since session start.
func (s *StatsTracker) CumulativeStats() types.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buildLocked(s.cumulative, s.sessionStart.Format(dateLayout))
}

func (s *StatsTracker) buildLocked(acc *statsAccumulator, date string) types.SessionStats {
	winRate := 0.0
	if acc.totalTrades > 0 {
		winRate = float64(acc.winningTrades) / float64(acc.totalTrades)
	}

	return types.SessionStats{
		ID:           s.runID,
		Date:         date,
		SessionStart: s.sessionStart,
		LastUpdated:  s.now(),
		Pairs:        s.pairs,
		TradeResult: types.TradeResult{
			NumberOfTrades:        acc.totalTrades,
			NumberOfWinningTrades: acc.winningTrades,
			NumberOfLosingTrades:  acc.losingTrades,
			WinRate:               winRate,
			MaxDrawdown:           acc.maxDrawdown,
		},
		TradePnl: types.TradePnl{
			RealizedPnL:   acc.realizedPnL,
			UnrealizedPnL: acc.unrealizedPnL,
			TotalPnL:      acc.realizedPnL + acc.unrealizedPnL - acc.totalFees,
			MaximumLoss:   acc.maxLoss,
			MaximumProfit: acc.maxProfit,
		},
		TotalFees:      acc.totalFees,
		OrdersFilePath: s.ordersFilePath,
		TradesFilePath: s.tradesFilePath,
	}
}

// WriteStatsYAML writes the cumulative statistics. It is a no-op without an output path.
func (s *StatsTracker) WriteStatsYAML() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.statsOutputPath == "" {
		return nil
	}

	stats := s.buildLocked(s.cumulative, s.currentDate)

	return types.WriteSessionStats(s.statsOutputPath, stats)
}

// StatsOutputPath returns the stats.yaml path, empty when unset.
func (s *StatsTracker) StatsOutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statsOutputPath
}

// CurrentDate returns the date of the daily statistics.
func (s *StatsTracker) CurrentDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentDate
}
