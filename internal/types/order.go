package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

type OrderType string

type OrderSide string

type OrderStatus string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// IsTerminal reports whether no further status change is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

const (
	OrderReasonStrategy   string = "strategy"
	OrderReasonStopLoss   string = "stop_loss"
	OrderReasonTakeProfit string = "take_profit"
)

type Reason struct {
	Reason  string `yaml:"reason" json:"reason" validate:"required"`
	Message string `yaml:"message" json:"message"`
}

// OrderRequest is what the engine asks an exchange to place.
type OrderRequest struct {
	ClientID   string    `yaml:"client_id" json:"client_id" validate:"required"`
	Exchange   string    `yaml:"exchange" json:"exchange" validate:"required"`
	Pair       string    `yaml:"pair" json:"pair" validate:"required"`
	Type       OrderType `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT"`
	Side       OrderSide `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity   float64   `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	StrategyID string    `yaml:"strategy_id" json:"strategy_id"`
	// Price is required for limit orders and absent for market orders.
	Price optional.Option[float64] `yaml:"price" json:"price"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if r.Type == OrderTypeLimit {
		if r.Price.IsNone() || r.Price.Unwrap() <= 0 {
			return errors.New(errors.ErrCodeInvalidOrder, "limit order requires a positive price")
		}
	}

	return nil
}

// Order is an instruction placed on an exchange together with its latest known state.
type Order struct {
	// ID is assigned by the exchange.
	ID               string                   `yaml:"id" json:"id"`
	ClientID         string                   `yaml:"client_id" json:"client_id"`
	Exchange         string                   `yaml:"exchange" json:"exchange"`
	Pair             string                   `yaml:"pair" json:"pair"`
	Type             OrderType                `yaml:"type" json:"type"`
	Side             OrderSide                `yaml:"side" json:"side"`
	Quantity         float64                  `yaml:"quantity" json:"quantity"`
	Price            optional.Option[float64] `yaml:"price" json:"price"`
	Status           OrderStatus              `yaml:"status" json:"status"`
	FilledQuantity   float64                  `yaml:"filled_quantity" json:"filled_quantity"`
	AverageFillPrice float64                  `yaml:"average_fill_price" json:"average_fill_price"`
	Fee              float64                  `yaml:"fee" json:"fee"`
	StrategyID       string                   `yaml:"strategy_id" json:"strategy_id"`
	Reason           Reason                   `yaml:"reason" json:"reason"`
	// StopLoss and TakeProfit are the levels planned by the risk gate for the position this order opens.
	StopLoss   optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	CreatedAt  time.Time                `yaml:"created_at" json:"created_at"`
	UpdatedAt  time.Time                `yaml:"updated_at" json:"updated_at"`
}

// Key returns the position key the order trades.
func (o Order) Key() PositionKey {
	return PositionKey{Exchange: o.Exchange, Pair: o.Pair}
}

// RemainingQuantity returns the unfilled part of the order.
func (o Order) RemainingQuantity() float64 {
	remaining := o.Quantity - o.FilledQuantity
	if remaining < 0 {
		return 0
	}

	return remaining
}

// PositionSide returns the position side a fill of this order builds.
func (s OrderSide) PositionSide() PositionSide {
	if s == OrderSideBuy {
		return PositionSideLong
	}

	return PositionSideShort
}
