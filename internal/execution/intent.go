package execution

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/risk"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

// Intent is an admitted order waiting to be submitted.
type Intent struct {
	Exchange   string
	Pair       string
	StrategyID string
	Type       types.OrderType
	Side       types.OrderSide
	Quantity   float64
	// Price is set for limit orders.
	Price optional.Option[float64]
	// ReservationID is the exposure reservation held by the risk gate, empty when none.
	ReservationID string
	StopLoss      optional.Option[float64]
	TakeProfit    optional.Option[float64]
	Reason        types.Reason
}

// OrderSide maps a signal to the side of the order that executes it.
//
//	ENTRY/ADJUST LONG  -> BUY    EXIT LONG  -> SELL
//	ENTRY/ADJUST SHORT -> SELL   EXIT SHORT -> BUY
//
// EXIT NEUTRAL closes the open position whatever its side.
func OrderSide(signal types.Signal, position optional.Option[types.Position]) (types.OrderSide, error) {
	if signal.Type == types.SignalTypeExit {
		switch signal.Direction {
		case types.DirectionLong:
			return types.OrderSideSell, nil
		case types.DirectionShort:
			return types.OrderSideBuy, nil
		case types.DirectionNeutral:
			if position.IsNone() {
				return "", errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", signal.Key())
			}

			return position.Unwrap().Side.CloseSide(), nil
		}
	}

	switch signal.Direction {
	case types.DirectionLong:
		return types.OrderSideBuy, nil
	case types.DirectionShort:
		return types.OrderSideSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidSignal, "direction %s cannot open a position", signal.Direction)
	}
}

// NewIntent builds the order intent for an admitted signal.
func NewIntent(signal types.Signal, decision risk.Decision, price float64, position optional.Option[types.Position]) (Intent, error) {
	side, err := OrderSide(signal, position)
	if err != nil {
		return Intent{}, err
	}

	orderType := signal.ResolvedOrderType()
	limitPrice := optional.None[float64]()

	if orderType == types.OrderTypeLimit {
		if price <= 0 {
			return Intent{}, errors.Newf(errors.ErrCodeInvalidSignal, "limit signal %s has no price", signal.ID)
		}

		limitPrice = optional.Some(price)
	}

	return Intent{
		Exchange:      signal.Exchange,
		Pair:          signal.Pair,
		StrategyID:    signal.StrategyID,
		Type:          orderType,
		Side:          side,
		Quantity:      decision.Quantity,
		Price:         limitPrice,
		ReservationID: decision.ReservationID,
		StopLoss:      decision.StopLoss,
		TakeProfit:    decision.TakeProfit,
		Reason: types.Reason{
			Reason:  types.OrderReasonStrategy,
			Message: string(signal.Type) + " " + string(signal.Direction),
		},
	}, nil
}

// CloseIntent builds a market order that flattens position for a protective exit.
func CloseIntent(position types.Position, reason string, message string) Intent {
	return Intent{
		Exchange:      position.Exchange,
		Pair:          position.Pair,
		StrategyID:    position.StrategyID,
		Type:          types.OrderTypeMarket,
		Side:          position.Side.CloseSide(),
		Quantity:      position.Quantity,
		Price:         optional.None[float64](),
		ReservationID: "",
		StopLoss:      optional.None[float64](),
		TakeProfit:    optional.None[float64](),
		Reason:        types.Reason{Reason: reason, Message: message},
	}
}
