// Package paper implements a simulated exchange that fills against reference prices.
package paper

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/exchange"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/internal/utils"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/shopspring/decimal"
)

// Exchange simulates a venue in memory.
//
// Market orders fill immediately at the reference price adjusted by slippage.
// Marketable limit orders fill at the reference price. Other limit orders rest until
// SetPrice moves the reference price through the limit and then fill at the limit.
// Balances are only enforced when initial balances are configured.
type Exchange struct {
	name     string
	feeRate  float64
	slippage float64
	mu       sync.Mutex
	balances map[string]float64
	enforce  bool
	prices   map[string]float64
	orders   map[string]*types.Order
	sequence []string
	now      func() time.Time
}

type Option func(*Exchange)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) {
		e.now = now
	}
}

// New creates a paper exchange from cfg.
func New(cfg config.ExchangeConfig, opts ...Option) *Exchange {
	e := &Exchange{
		name:     cfg.Name,
		feeRate:  cfg.PaperFeeRate(),
		slippage: cfg.PaperSlippage(),
		mu:       sync.Mutex{},
		balances: make(map[string]float64, len(cfg.InitialBalances)),
		enforce:  len(cfg.InitialBalances) > 0,
		prices:   make(map[string]float64, len(cfg.Prices)),
		orders:   make(map[string]*types.Order),
		sequence: nil,
		now:      time.Now,
	}

	for currency, amount := range cfg.InitialBalances {
		e.balances[currency] = amount
	}

	for pair, price := range cfg.Prices {
		e.prices[pair] = price
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Exchange) Name() string {
	return e.name
}

// SetPrice updates the reference price of pair and fills resting limit orders it crosses.
// It returns the orders filled by the move.
func (e *Exchange) SetPrice(pair string, price float64) []types.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prices[pair] = price

	filled := make([]types.Order, 0)

	for _, id := range e.sequence {
		order := e.orders[id]
		if order.Pair != pair || order.Status.IsTerminal() || order.Type != types.OrderTypeLimit {
			continue
		}

		if !crosses(order.Side, order.Price.Unwrap(), price) {
			continue
		}

		if err := e.fill(order, order.Price.Unwrap()); err != nil {
			order.Status = types.OrderStatusRejected
			order.UpdatedAt = e.now()

			continue
		}

		filled = append(filled, *order)
	}

	return filled
}

// Balances returns a copy of the currency balances.
func (e *Exchange) Balances() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	balances := make(map[string]float64, len(e.balances))
	for currency, amount := range e.balances {
		balances[currency] = amount
	}

	return balances
}

// Pairs returns the pairs with a reference price.
func (e *Exchange) Pairs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	pairs := make([]string, 0, len(e.prices))
	for pair := range e.prices {
		pairs = append(pairs, pair)
	}

	sort.Strings(pairs)

	return pairs
}

func (e *Exchange) CreateOrder(_ context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	price, ok := e.prices[req.Pair]
	if !ok || price <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeMarketDataMissing, "no reference price for %s", req.Pair)
	}

	now := e.now()
	order := &types.Order{
		ID:               uuid.New().String(),
		ClientID:         req.ClientID,
		Exchange:         e.name,
		Pair:             req.Pair,
		Type:             req.Type,
		Side:             req.Side,
		Quantity:         req.Quantity,
		Price:            req.Price,
		Status:           types.OrderStatusSubmitted,
		FilledQuantity:   0,
		AverageFillPrice: 0,
		Fee:              0,
		StrategyID:       req.StrategyID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	switch req.Type {
	case types.OrderTypeMarket:
		if err := e.fill(order, e.slipped(req.Side, price)); err != nil {
			return types.Order{}, err
		}
	case types.OrderTypeLimit:
		limit := req.Price.Unwrap()
		if err := e.checkFunds(req.Pair, req.Side, req.Quantity, limit); err != nil {
			return types.Order{}, err
		}

		if crosses(req.Side, limit, price) {
			if err := e.fill(order, price); err != nil {
				return types.Order{}, err
			}
		}
	}

	e.orders[order.ID] = order
	e.sequence = append(e.sequence, order.ID)

	return *order, nil
}

func (e *Exchange) CancelOrder(_ context.Context, orderID string, _ string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return false, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", orderID)
	}

	if order.Status.IsTerminal() {
		return false, nil
	}

	order.Status = types.OrderStatusCanceled
	order.UpdatedAt = e.now()

	return true, nil
}

func (e *Exchange) FetchOrder(_ context.Context, orderID string, _ string) (types.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", orderID)
	}

	return *order, nil
}

func (e *Exchange) FetchTicker(_ context.Context, pair string) (types.Ticker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price, ok := e.prices[pair]
	if !ok || price <= 0 {
		return types.Ticker{}, errors.Newf(errors.ErrCodeMarketDataMissing, "no reference price for %s", pair)
	}

	return types.Ticker{
		Pair:      pair,
		Bid:       e.slipped(types.OrderSideSell, price),
		Ask:       e.slipped(types.OrderSideBuy, price),
		Last:      price,
		Timestamp: e.now(),
	}, nil
}

// fill executes the whole remaining quantity at price. Callers hold e.mu.
func (e *Exchange) fill(order *types.Order, price float64) error {
	qty := decimal.NewFromFloat(order.RemainingQuantity())
	px := decimal.NewFromFloat(price)
	notional := qty.Mul(px)
	fee := notional.Mul(decimal.NewFromFloat(e.feeRate))

	if err := e.checkFunds(order.Pair, order.Side, qty.InexactFloat64(), price); err != nil {
		return err
	}

	if e.enforce {
		base, quote := utils.SplitPair(order.Pair)
		if order.Side == types.OrderSideBuy {
			e.balances[quote] = decimal.NewFromFloat(e.balances[quote]).Sub(notional).Sub(fee).InexactFloat64()
			e.balances[base] = decimal.NewFromFloat(e.balances[base]).Add(qty).InexactFloat64()
		} else {
			e.balances[base] = decimal.NewFromFloat(e.balances[base]).Sub(qty).InexactFloat64()
			e.balances[quote] = decimal.NewFromFloat(e.balances[quote]).Add(notional).Sub(fee).InexactFloat64()
		}
	}

	order.FilledQuantity = order.Quantity
	order.AverageFillPrice = price
	order.Fee = decimal.NewFromFloat(order.Fee).Add(fee).InexactFloat64()
	order.Status = types.OrderStatusFilled
	order.UpdatedAt = e.now()

	return nil
}

// checkFunds verifies the account can pay for quantity at price. Callers hold e.mu.
func (e *Exchange) checkFunds(pair string, side types.OrderSide, quantity float64, price float64) error {
	if !e.enforce {
		return nil
	}

	base, quote := utils.SplitPair(pair)

	if side == types.OrderSideBuy {
		cost := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price)).Mul(decimal.NewFromFloat(1 + e.feeRate))
		if cost.GreaterThan(decimal.NewFromFloat(e.balances[quote])) {
			return errors.Newf(errors.ErrCodeInsufficientFunds, "insufficient %s balance: need %s, have %.8f", quote, cost.StringFixed(8), e.balances[quote])
		}

		return nil
	}

	if quantity > e.balances[base] {
		return errors.Newf(errors.ErrCodeInsufficientFunds, "insufficient %s balance: need %.8f, have %.8f", base, quantity, e.balances[base])
	}

	return nil
}

func (e *Exchange) slipped(side types.OrderSide, price float64) float64 {
	if side == types.OrderSideBuy {
		return price * (1 + e.slippage)
	}

	return price * (1 - e.slippage)
}

// crosses reports whether a limit order at limit would trade at the market price.
func crosses(side types.OrderSide, limit float64, price float64) bool {
	if side == types.OrderSideBuy {
		return price <= limit
	}

	return price >= limit
}

var _ exchange.Exchange = (*Exchange)(nil)
