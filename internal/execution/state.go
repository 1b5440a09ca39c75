package execution

import (
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

var transitions = map[types.OrderStatus][]types.OrderStatus{
	types.OrderStatusNew: {
		types.OrderStatusSubmitted,
		types.OrderStatusPartiallyFilled,
		types.OrderStatusFilled,
		types.OrderStatusCanceled,
		types.OrderStatusRejected,
		types.OrderStatusExpired,
	},
	types.OrderStatusSubmitted: {
		types.OrderStatusPartiallyFilled,
		types.OrderStatusFilled,
		types.OrderStatusCanceled,
		types.OrderStatusRejected,
		types.OrderStatusExpired,
	},
	types.OrderStatusPartiallyFilled: {
		types.OrderStatusSubmitted,
		types.OrderStatusFilled,
		types.OrderStatusCanceled,
		types.OrderStatusExpired,
	},
}

// CanTransition reports whether an order may move from one status to another.
// Staying in a non-terminal status is allowed. Terminal statuses are absorbing.
func CanTransition(from, to types.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}

	if from == to {
		return true
	}

	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// Transition returns order moved to status, or a TransitionError.
func Transition(order types.Order, status types.OrderStatus) (types.Order, error) {
	if !CanTransition(order.Status, status) {
		return order, errors.NewTransitionError(order.ID, string(order.Status), string(status))
	}

	order.Status = status

	return order, nil
}
