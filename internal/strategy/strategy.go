// Package strategy defines what the engine needs from a trading strategy.
// Strategies only produce signals; the engine owns orders and positions.
package strategy

import (
	"context"
	"sort"

	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
)

type Strategy interface {
	// Name identifies the strategy. Signals and orders carry it as their strategy id.
	Name() string
	ProcessMarketData(ctx context.Context, ticker types.Ticker) error
	GenerateSignals(ctx context.Context) ([]types.Signal, error)
	OnOrderUpdate(order types.Order)
	OnTrade(trade types.Trade)
}

// Runner fans market data out to strategies and routes order updates and
// trades back to the strategy that caused them.
type Runner struct {
	strategies map[string]Strategy
	logger     *logger.Logger
}

func NewRunner(log *logger.Logger, strategies ...Strategy) (*Runner, error) {
	runner := &Runner{
		strategies: make(map[string]Strategy, len(strategies)),
		logger:     log.Named("strategy"),
	}

	for _, s := range strategies {
		name := s.Name()
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "strategy name is required")
		}

		if _, ok := runner.strategies[name]; ok {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "strategy %q registered twice", name)
		}

		runner.strategies[name] = s
	}

	return runner, nil
}

// Names returns the registered strategy names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ProcessMarketData feeds ticker to every strategy and collects the signals they
// generate. A failing strategy is logged and skipped. Signals without a strategy id
// are stamped with the generating strategy's name.
func (r *Runner) ProcessMarketData(ctx context.Context, ticker types.Ticker) []types.Signal {
	signals := make([]types.Signal, 0)

	for _, name := range r.Names() {
		s := r.strategies[name]

		if err := s.ProcessMarketData(ctx, ticker); err != nil {
			r.logger.Error("Strategy failed to process market data",
				zap.String("strategy", name),
				zap.String("pair", ticker.Pair),
				zap.Error(err),
			)

			continue
		}

		generated, err := s.GenerateSignals(ctx)
		if err != nil {
			r.logger.Error("Strategy failed to generate signals",
				zap.String("strategy", name),
				zap.Error(err),
			)

			continue
		}

		for _, signal := range generated {
			if signal.StrategyID == "" {
				signal.StrategyID = name
			}

			signals = append(signals, signal)
		}
	}

	return signals
}

// NotifyOrder forwards an order update to the strategy that placed it.
func (r *Runner) NotifyOrder(order types.Order) {
	if s, ok := r.strategies[order.StrategyID]; ok {
		s.OnOrderUpdate(order)
	}
}

// NotifyTrade forwards a trade to the strategy that placed its order.
func (r *Runner) NotifyTrade(trade types.Trade) {
	if s, ok := r.strategies[trade.StrategyID]; ok {
		s.OnTrade(trade)
	}
}
