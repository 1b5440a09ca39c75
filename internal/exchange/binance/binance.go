// Package binance implements the exchange capability on the Binance spot REST API.
package binance

import (
	"context"
	"strconv"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/exchange"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/internal/utils"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	// DecimalPrecision is a default decimal precision used as a fallback.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC) for BTC-like assets.
	DecimalPrecision = 8
)

// Exchange talks to Binance. Requests are throttled by a token bucket so polling
// many orders does not hit the venue's request weight limits.
type Exchange struct {
	name             string
	client           Client
	limiter          *rate.Limiter
	decimalPrecision int
	now              func() time.Time
}

// New creates a Binance exchange from cfg.
// A testnet exchange type connects to https://testnet.binance.vision/. cfg.BaseURL takes precedence.
func New(cfg config.ExchangeConfig) (*Exchange, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "exchange %s requires api_key and secret_key", cfg.Name)
	}

	if cfg.Type == config.ExchangeTypeBinanceTestnet {
		gobinance.UseTestnet = true
	}

	client := gobinance.NewClient(cfg.APIKey, cfg.SecretKey)

	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	return newWithClient(cfg.Name, &realClient{client: client}, newLimiter(cfg.RateLimit, cfg.RateBurst)), nil
}

// newWithClient creates an exchange with a custom client.
// This is used for testing with mock clients.
func newWithClient(name string, client Client, limiter *rate.Limiter) *Exchange {
	return &Exchange{
		name:             name,
		client:           client,
		limiter:          limiter,
		decimalPrecision: DecimalPrecision,
		now:              time.Now,
	}
}

func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	if burst <= 0 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(limit), burst)
}

func (b *Exchange) Name() string {
	return b.name
}

func (b *Exchange) wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeRateLimited, "binance request throttled", err)
	}

	return nil
}

// CreateOrder places an order on Binance.
func (b *Exchange) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	side, err := toBinanceSide(req.Side)
	if err != nil {
		return types.Order{}, err
	}

	var orderType gobinance.OrderType

	switch req.Type {
	case types.OrderTypeMarket:
		orderType = gobinance.OrderTypeMarket
	case types.OrderTypeLimit:
		orderType = gobinance.OrderTypeLimit
	default:
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order type: %s", req.Type)
	}

	roundedQuantity := utils.RoundToDecimalPrecision(req.Quantity, b.decimalPrecision)
	if roundedQuantity <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidOrder,
			"order quantity %.8f is too small after rounding to %d decimal places",
			req.Quantity, b.decimalPrecision)
	}

	if err := b.wait(ctx); err != nil {
		return types.Order{}, err
	}

	orderService := b.client.NewCreateOrderService().
		Symbol(utils.ExchangeSymbol(req.Pair)).
		Side(side).
		Type(orderType).
		Quantity(strconv.FormatFloat(roundedQuantity, 'f', b.decimalPrecision, 64)).
		NewClientOrderID(req.ClientID)

	if req.Type == types.OrderTypeLimit {
		orderService = orderService.
			Price(strconv.FormatFloat(req.Price.Unwrap(), 'f', -1, 64)).
			TimeInForce(gobinance.TimeInForceTypeGTC)
	}

	resp, err := orderService.Do(ctx)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	order := types.Order{
		ID:               strconv.FormatInt(resp.OrderID, 10),
		ClientID:         req.ClientID,
		Exchange:         b.name,
		Pair:             req.Pair,
		Type:             req.Type,
		Side:             req.Side,
		Quantity:         parseFloat(resp.OrigQuantity, roundedQuantity),
		Price:            req.Price,
		Status:           mapOrderStatus(resp.Status),
		FilledQuantity:   parseFloat(resp.ExecutedQuantity, 0),
		AverageFillPrice: averagePrice(resp.CummulativeQuoteQuantity, resp.ExecutedQuantity),
		Fee:              fillsFee(req.Pair, resp.Fills),
		StrategyID:       req.StrategyID,
		CreatedAt:        b.timestamp(resp.TransactTime),
		UpdatedAt:        b.timestamp(resp.TransactTime),
	}

	return order, nil
}

// CancelOrder cancels an open order by its Binance order id.
func (b *Exchange) CancelOrder(ctx context.Context, orderID string, pair string) (bool, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return false, err
	}

	if err := b.wait(ctx); err != nil {
		return false, err
	}

	_, err = b.client.NewCancelOrderService().
		Symbol(utils.ExchangeSymbol(pair)).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeCancelFailed, "failed to cancel order on Binance", err)
	}

	return true, nil
}

// FetchOrder queries the order's status and cumulative fills.
// Binance does not report commission on order queries, so Fee is left at 0.
func (b *Exchange) FetchOrder(ctx context.Context, orderID string, pair string) (types.Order, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return types.Order{}, err
	}

	if err := b.wait(ctx); err != nil {
		return types.Order{}, err
	}

	bo, err := b.client.NewGetOrderService().
		Symbol(utils.ExchangeSymbol(pair)).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeFetchFailed, "failed to fetch order from Binance", err)
	}

	return b.convertOrder(bo, pair)
}

// FetchTicker returns the best bid and ask with the last traded price.
func (b *Exchange) FetchTicker(ctx context.Context, pair string) (types.Ticker, error) {
	symbol := utils.ExchangeSymbol(pair)

	if err := b.wait(ctx); err != nil {
		return types.Ticker{}, err
	}

	books, err := b.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.Ticker{}, errors.Wrap(errors.ErrCodeMarketDataMissing, "failed to fetch book ticker from Binance", err)
	}

	ticker := types.Ticker{
		Pair:      pair,
		Bid:       0,
		Ask:       0,
		Last:      0,
		Timestamp: b.now(),
	}

	for _, book := range books {
		if book.Symbol == symbol {
			ticker.Bid = parseFloat(book.BidPrice, 0)
			ticker.Ask = parseFloat(book.AskPrice, 0)
		}
	}

	if err := b.wait(ctx); err != nil {
		return types.Ticker{}, err
	}

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.Ticker{}, errors.Wrap(errors.ErrCodeMarketDataMissing, "failed to fetch last price from Binance", err)
	}

	for _, price := range prices {
		if price.Symbol == symbol {
			ticker.Last = parseFloat(price.Price, 0)
		}
	}

	if ticker.Price() <= 0 {
		return types.Ticker{}, errors.Newf(errors.ErrCodeMarketDataMissing, "no price available for %s", pair)
	}

	return ticker, nil
}

func (b *Exchange) timestamp(ms int64) time.Time {
	if ms <= 0 {
		return b.now()
	}

	return time.UnixMilli(ms)
}

// convertOrder converts a Binance order to our Order type.
func (b *Exchange) convertOrder(bo *gobinance.Order, pair string) (types.Order, error) {
	var side types.OrderSide

	switch bo.Side {
	case gobinance.SideTypeBuy:
		side = types.OrderSideBuy
	case gobinance.SideTypeSell:
		side = types.OrderSideSell
	default:
		return types.Order{}, errors.Newf(errors.ErrCodeFetchFailed, "unknown side: %s", bo.Side)
	}

	orderType := types.OrderTypeLimit
	price := optional.Some(parseFloat(bo.Price, 0))

	if bo.Type == gobinance.OrderTypeMarket {
		orderType = types.OrderTypeMarket
		price = optional.None[float64]()
	}

	return types.Order{
		ID:               strconv.FormatInt(bo.OrderID, 10),
		ClientID:         bo.ClientOrderID,
		Exchange:         b.name,
		Pair:             pair,
		Type:             orderType,
		Side:             side,
		Quantity:         parseFloat(bo.OrigQuantity, 0),
		Price:            price,
		Status:           mapOrderStatus(bo.Status),
		FilledQuantity:   parseFloat(bo.ExecutedQuantity, 0),
		AverageFillPrice: averagePrice(bo.CummulativeQuoteQuantity, bo.ExecutedQuantity),
		Fee:              0,
		StrategyID:       "",
		Reason:           types.Reason{Reason: types.OrderReasonStrategy, Message: "Order from Binance"},
		StopLoss:         optional.None[float64](),
		TakeProfit:       optional.None[float64](),
		CreatedAt:        b.timestamp(bo.Time),
		UpdatedAt:        b.timestamp(bo.UpdateTime),
	}, nil
}

// mapOrderStatus maps Binance order status to our OrderStatus type.
// An accepted order that has not traded is SUBMITTED; NEW is reserved for orders not yet sent.
func mapOrderStatus(status gobinance.OrderStatusType) types.OrderStatus {
	switch status {
	case gobinance.OrderStatusTypeNew, gobinance.OrderStatusTypePendingCancel:
		return types.OrderStatusSubmitted
	case gobinance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case gobinance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case gobinance.OrderStatusTypeCanceled:
		return types.OrderStatusCanceled
	case gobinance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	case gobinance.OrderStatusTypeExpired:
		return types.OrderStatusExpired
	default:
		return types.OrderStatusExpired
	}
}

func toBinanceSide(side types.OrderSide) (gobinance.SideType, error) {
	switch side {
	case types.OrderSideBuy:
		return gobinance.SideTypeBuy, nil
	case types.OrderSideSell:
		return gobinance.SideTypeSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", side)
	}
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order ID format", err)
	}

	return id, nil
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}

	return parsed
}

func averagePrice(cumulativeQuote, executed string) float64 {
	qty := parseFloat(executed, 0)
	if qty <= 0 {
		return 0
	}

	return parseFloat(cumulativeQuote, 0) / qty
}

// fillsFee sums the commission of fills in quote currency.
// Commission charged in the base asset is converted at the fill price.
func fillsFee(pair string, fills []*gobinance.Fill) float64 {
	base, _ := utils.SplitPair(pair)

	var fee float64

	for _, fill := range fills {
		commission := parseFloat(fill.Commission, 0)
		if fill.CommissionAsset == base {
			commission *= parseFloat(fill.Price, 0)
		}

		fee += commission
	}

	return fee
}

var _ exchange.Exchange = (*Exchange)(nil)
