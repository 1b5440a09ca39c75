package exchange

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/types"
)

const (
	OperationCreateOrder = "create_order"
	OperationCancelOrder = "cancel_order"
	OperationFetchOrder  = "fetch_order"
	OperationFetchTicker = "fetch_ticker"
)

// instrumented records the latency of every call on the wrapped exchange.
type instrumented struct {
	next    Exchange
	metrics *metrics.Metrics
}

// Instrument wraps ex so each call is observed in m.
func Instrument(ex Exchange, m *metrics.Metrics) Exchange {
	if m == nil {
		return ex
	}

	return &instrumented{next: ex, metrics: m}
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	defer i.metrics.ObserveExchangeCall(i.next.Name(), OperationCreateOrder, time.Now())

	return i.next.CreateOrder(ctx, req)
}

func (i *instrumented) CancelOrder(ctx context.Context, orderID string, pair string) (bool, error) {
	defer i.metrics.ObserveExchangeCall(i.next.Name(), OperationCancelOrder, time.Now())

	return i.next.CancelOrder(ctx, orderID, pair)
}

func (i *instrumented) FetchOrder(ctx context.Context, orderID string, pair string) (types.Order, error) {
	defer i.metrics.ObserveExchangeCall(i.next.Name(), OperationFetchOrder, time.Now())

	return i.next.FetchOrder(ctx, orderID, pair)
}

func (i *instrumented) FetchTicker(ctx context.Context, pair string) (types.Ticker, error) {
	defer i.metrics.ObserveExchangeCall(i.next.Name(), OperationFetchTicker, time.Now())

	return i.next.FetchTicker(ctx, pair)
}
