package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
	registry *prometheus.Registry
	metrics  *Metrics
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (s *MetricsTestSuite) SetupTest() {
	s.registry = prometheus.NewRegistry()
	s.metrics = NewMetrics(s.registry)
}

func (s *MetricsTestSuite) TestSignalAndRejectionCounters() {
	s.metrics.RecordSignal("momentum", SignalAccepted)
	s.metrics.RecordSignal("momentum", SignalAccepted)
	s.metrics.RecordSignal("momentum", SignalExpired)
	s.metrics.RecordRiskRejection("exposure_limit")

	s.Equal(2.0, testutil.ToFloat64(s.metrics.signalTotal.WithLabelValues("momentum", SignalAccepted)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.signalTotal.WithLabelValues("momentum", SignalExpired)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.riskRejections.WithLabelValues("exposure_limit")))
}

func (s *MetricsTestSuite) TestTradeMetrics() {
	trade := types.Trade{Exchange: "paper", Pair: "BTC/USDT", Side: types.OrderSideSell, Quantity: 0.5}
	s.metrics.RecordTrade(trade, 40)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.tradeTotal.WithLabelValues("paper", "BTC/USDT", "SELL")))
	s.Equal(0.5, testutil.ToFloat64(s.metrics.tradeVolume.WithLabelValues("paper", "BTC/USDT", "SELL")))
	s.Equal(40.0, testutil.ToFloat64(s.metrics.realizedPnL.WithLabelValues("paper", "BTC/USDT")))
}

func (s *MetricsTestSuite) TestRiskSnapshotGauges() {
	s.metrics.SetRiskMetrics(types.RiskMetrics{
		TotalExposure:      4800,
		CurrentDrawdown:    0.1,
		CurrentCapital:     9000,
		PositionCount:      3,
		CircuitBreakReason: "daily loss limit",
	})

	s.Equal(4800.0, testutil.ToFloat64(s.metrics.totalExposure))
	s.Equal(0.1, testutil.ToFloat64(s.metrics.currentDrawdown))
	s.Equal(3.0, testutil.ToFloat64(s.metrics.openPositions))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.circuitBreaker))

	s.metrics.SetRiskMetrics(types.RiskMetrics{})
	s.Equal(0.0, testutil.ToFloat64(s.metrics.circuitBreaker))
}

func (s *MetricsTestSuite) TestExchangeLatencyIsRegistered() {
	s.metrics.ObserveExchangeCall("paper", "create_order", time.Now())

	count, err := testutil.GatherAndCount(s.registry, "argo_execution_exchange_request_duration_seconds")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *MetricsTestSuite) TestNilMetricsIsSafe() {
	var m *Metrics

	m.RecordSignal("s", SignalAccepted)
	m.RecordRiskRejection("zero_size")
	m.RecordOrderStatus(types.Order{})
	m.RecordOrderFailure("paper", "cancel_order")
	m.RecordAnomaly("unknown_order")
	m.RecordTrade(types.Trade{}, 0)
	m.RecordProtectiveExit("paper", "BTC/USDT", types.OrderReasonStopLoss)
	m.ObserveExchangeCall("paper", "fetch_order", time.Now())
	m.SetOpenOrders(1)
	m.SetRiskMetrics(types.RiskMetrics{})
}
