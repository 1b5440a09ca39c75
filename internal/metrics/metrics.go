// Package metrics exposes engine counters and gauges to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rxtech-lab/argo-execution/internal/types"
)

const namespace = "argo_execution"

// Signal outcomes.
const (
	SignalAccepted = "accepted"
	SignalExpired  = "expired"
	SignalInvalid  = "invalid"
	SignalRejected = "rejected"
	SignalFailed   = "failed"
)

type Metrics struct {
	signalTotal       *prometheus.CounterVec
	riskRejections    *prometheus.CounterVec
	orderTotal        *prometheus.CounterVec
	orderFailures     *prometheus.CounterVec
	orderAnomalies    *prometheus.CounterVec
	tradeTotal        *prometheus.CounterVec
	tradeVolume       *prometheus.CounterVec
	realizedPnL       *prometheus.GaugeVec
	exchangeDuration  *prometheus.HistogramVec
	totalExposure     prometheus.Gauge
	currentDrawdown   prometheus.Gauge
	currentCapital    prometheus.Gauge
	openPositions     prometheus.Gauge
	openOrders        prometheus.Gauge
	circuitBreaker    prometheus.Gauge
	stopTriggeredExit *prometheus.CounterVec
}

// NewMetrics registers every collector on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		signalTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals received by outcome",
		}, []string{"strategy", "outcome"}),
		riskRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_rejections_total",
			Help:      "Signals rejected by the risk gate",
		}, []string{"reason"}),
		orderTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order status transitions",
		}, []string{"exchange", "pair", "side", "status"}),
		orderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_failures_total",
			Help:      "Failed exchange order operations",
		}, []string{"exchange", "operation"}),
		orderAnomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_anomalies_total",
			Help:      "Order updates ignored as invariant violations",
		}, []string{"kind"}),
		tradeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Executed fills",
		}, []string{"exchange", "pair", "side"}),
		tradeVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_volume_total",
			Help:      "Executed quantity in base currency",
		}, []string{"exchange", "pair", "side"}),
		realizedPnL: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_pnl",
			Help:      "Cumulative realized profit and loss",
		}, []string{"exchange", "pair"}),
		exchangeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_request_duration_seconds",
			Help:      "Exchange call latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"exchange", "operation"}),
		totalExposure: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_exposure",
			Help:      "Market value of open positions",
		}),
		currentDrawdown: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_drawdown",
			Help:      "Fractional decline of capital from its peak",
		}),
		currentCapital: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_capital",
			Help:      "Initial capital plus realized and unrealized PnL net of fees",
		}),
		openPositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Number of open positions",
		}),
		openOrders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_orders",
			Help:      "Number of tracked non-terminal orders",
		}),
		circuitBreaker: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_tripped",
			Help:      "Circuit breaker status (0=normal, 1=tripped)",
		}),
		stopTriggeredExit: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protective_exits_total",
			Help:      "Exits triggered by stop loss or take profit",
		}, []string{"exchange", "pair", "reason"}),
	}
}

func (m *Metrics) RecordSignal(strategyID, outcome string) {
	if m == nil {
		return
	}

	m.signalTotal.WithLabelValues(strategyID, outcome).Inc()
}

func (m *Metrics) RecordRiskRejection(reason string) {
	if m == nil {
		return
	}

	m.riskRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordOrderStatus(order types.Order) {
	if m == nil {
		return
	}

	m.orderTotal.WithLabelValues(order.Exchange, order.Pair, string(order.Side), string(order.Status)).Inc()
}

func (m *Metrics) RecordOrderFailure(exchange, operation string) {
	if m == nil {
		return
	}

	m.orderFailures.WithLabelValues(exchange, operation).Inc()
}

func (m *Metrics) RecordAnomaly(kind string) {
	if m == nil {
		return
	}

	m.orderAnomalies.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordTrade(trade types.Trade, cumulativeRealized float64) {
	if m == nil {
		return
	}

	m.tradeTotal.WithLabelValues(trade.Exchange, trade.Pair, string(trade.Side)).Inc()
	m.tradeVolume.WithLabelValues(trade.Exchange, trade.Pair, string(trade.Side)).Add(trade.Quantity)
	m.realizedPnL.WithLabelValues(trade.Exchange, trade.Pair).Set(cumulativeRealized)
}

func (m *Metrics) RecordProtectiveExit(exchange, pair, reason string) {
	if m == nil {
		return
	}

	m.stopTriggeredExit.WithLabelValues(exchange, pair, reason).Inc()
}

// ObserveExchangeCall records the latency of one exchange call started at start.
func (m *Metrics) ObserveExchangeCall(exchange, operation string, start time.Time) {
	if m == nil {
		return
	}

	m.exchangeDuration.WithLabelValues(exchange, operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetOpenOrders(n int) {
	if m == nil {
		return
	}

	m.openOrders.Set(float64(n))
}

// SetRiskMetrics publishes a risk snapshot.
func (m *Metrics) SetRiskMetrics(snapshot types.RiskMetrics) {
	if m == nil {
		return
	}

	m.totalExposure.Set(snapshot.TotalExposure)
	m.currentDrawdown.Set(snapshot.CurrentDrawdown)
	m.currentCapital.Set(snapshot.CurrentCapital)
	m.openPositions.Set(float64(snapshot.PositionCount))

	if snapshot.CircuitBreakReason != "" {
		m.circuitBreaker.Set(1)
	} else {
		m.circuitBreaker.Set(0)
	}
}
