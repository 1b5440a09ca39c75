package risk

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ManagerTestSuite struct {
	suite.Suite
	clock   *fakeClock
	manager *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func riskConfig() config.RiskConfig {
	cfg := config.Default().RiskManagement
	cfg.TrailingStop.Enabled = config.Ptr(true)
	cfg.TakeProfitRatio = 2
	cfg.CircuitBreakers = config.CircuitBreakerConfig{DailyLossLimit: config.Ptr(0.05), WeeklyLossLimit: config.Ptr(0.15)}

	return cfg
}

func (s *ManagerTestSuite) SetupTest() {
	s.clock = newFakeClock()
	s.manager = NewManager(riskConfig(), logger.NewNopLogger(), nil, WithClock(s.clock.Now))
}

func (s *ManagerTestSuite) entry(direction types.Direction, volatility float64) types.Signal {
	return types.Signal{
		StrategyID: "s1",
		Exchange:   "paper",
		Pair:       "BTC/USDT",
		Type:       types.SignalTypeEntry,
		Direction:  direction,
		Volatility: volatility,
		CreatedAt:  s.clock.Now(),
		ExpiresAt:  s.clock.Now().Add(time.Minute),
	}
}

func (s *ManagerTestSuite) TestAdmitEntry() {
	decision := s.manager.Evaluate(Request{Signal: s.entry(types.DirectionLong, 100), Price: 100})

	s.Require().True(decision.Admitted)
	s.InDelta(2.0, decision.Quantity, 1e-9)
	s.NotEmpty(decision.ReservationID)
	s.Require().True(decision.StopLoss.IsSome())
	s.Equal(0.0, decision.StopLoss.Unwrap(), "stop is clamped at zero for a long")
	s.InDelta(500.0, decision.TakeProfit.Unwrap(), 1e-9)
	s.InDelta(200.0, s.manager.Snapshot().ReservedExposure, 1e-9)
}

func (s *ManagerTestSuite) TestAdmitShortEntryPlansStops() {
	decision := s.manager.Evaluate(Request{Signal: s.entry(types.DirectionShort, 5), Price: 100})

	s.Require().True(decision.Admitted)
	s.InDelta(40.0, decision.Quantity, 1e-9)
	s.InDelta(110.0, decision.StopLoss.Unwrap(), 1e-9)
	s.InDelta(80.0, decision.TakeProfit.Unwrap(), 1e-9)
}

func (s *ManagerTestSuite) TestSuggestedQuantityCapsSize() {
	signal := s.entry(types.DirectionLong, 100)
	signal.Quantity = 0.5

	decision := s.manager.Evaluate(Request{Signal: signal, Price: 100})
	s.Require().True(decision.Admitted)
	s.InDelta(0.5, decision.Quantity, 1e-9)

	signal.Quantity = 50
	decision = s.manager.Evaluate(Request{Signal: signal, Price: 100})
	s.Require().True(decision.Admitted)
	s.InDelta(2.0, decision.Quantity, 1e-9)
}

func (s *ManagerTestSuite) TestZeroVolatilityRejected() {
	decision := s.manager.Evaluate(Request{Signal: s.entry(types.DirectionLong, 0), Price: 100})

	s.False(decision.Admitted)
	s.Equal(0.0, decision.Quantity)
	s.Equal(RejectZeroSize, decision.Reason)
}

func (s *ManagerTestSuite) TestExposureScenario() {
	s.manager.SetPositionExposure(types.PositionKey{Exchange: "paper", Pair: "ETH/USDT"}, 48, 100)

	signal := s.entry(types.DirectionLong, 50)
	signal.Quantity = 3

	decision := s.manager.Evaluate(Request{Signal: signal, Price: 100})
	s.False(decision.Admitted)
	s.Equal(RejectExposureLimit, decision.Reason)
	s.Equal(0.0, s.manager.Snapshot().ReservedExposure)
}

func (s *ManagerTestSuite) TestDrawdownGateReleasesReservation() {
	s.manager.UpdateCapital(4000)
	s.manager.ResetCircuitBreaker()

	decision := s.manager.Evaluate(Request{Signal: s.entry(types.DirectionLong, 100), Price: 100})
	s.False(decision.Admitted)
	s.Equal(RejectMaxDrawdown, decision.Reason)
	s.Equal(0.0, s.manager.Snapshot().ReservedExposure)

	s.manager.UpdateCapital(9000)
	s.manager.ResetCircuitBreaker()
	decision = s.manager.Evaluate(Request{Signal: s.entry(types.DirectionLong, 100), Price: 100})
	s.True(decision.Admitted)
}

func (s *ManagerTestSuite) TestCircuitBreakerRejectsUntilReset() {
	s.manager.UpdateCapital(9000)

	snapshot := s.manager.Snapshot()
	s.False(snapshot.IsTradingAllowed)
	s.NotEmpty(snapshot.CircuitBreakReason)

	decision := s.manager.Evaluate(Request{Signal: s.entry(types.DirectionLong, 100), Price: 100})
	s.Equal(RejectCircuitBreaker, decision.Reason)

	s.manager.ResetCircuitBreaker()
	decision = s.manager.Evaluate(Request{Signal: s.entry(types.DirectionLong, 100), Price: 100})
	s.True(decision.Admitted)
}

func (s *ManagerTestSuite) TestNeutralEntryAndMissingPriceRejected() {
	decision := s.manager.Evaluate(Request{Signal: s.entry(types.DirectionNeutral, 100), Price: 100})
	s.Equal(RejectInvalidDirection, decision.Reason)

	decision = s.manager.Evaluate(Request{Signal: s.entry(types.DirectionLong, 100), Price: 0})
	s.Equal(RejectNoPrice, decision.Reason)
}

func (s *ManagerTestSuite) TestAdjustHasNoStops() {
	signal := s.entry(types.DirectionLong, 100)
	signal.Type = types.SignalTypeAdjust

	decision := s.manager.Evaluate(Request{Signal: signal, Price: 100})
	s.Require().True(decision.Admitted)
	s.True(decision.StopLoss.IsNone())
	s.True(decision.TakeProfit.IsNone())
}

func (s *ManagerTestSuite) TestExitBypassesGates() {
	s.manager.UpdateCapital(4000)

	position := types.Position{Exchange: "paper", Pair: "BTC/USDT", Side: types.PositionSideLong, Quantity: 2, EntryPrice: 100}
	signal := s.entry(types.DirectionLong, 0)
	signal.Type = types.SignalTypeExit

	decision := s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(position)})
	s.Require().True(decision.Admitted)
	s.InDelta(2.0, decision.Quantity, 1e-9)
	s.Empty(decision.ReservationID)

	signal.Quantity = 0.5
	decision = s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(position)})
	s.InDelta(0.5, decision.Quantity, 1e-9)

	signal.Quantity = 5
	decision = s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(position)})
	s.InDelta(2.0, decision.Quantity, 1e-9)

	signal.Direction = types.DirectionNeutral
	decision = s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(position)})
	s.True(decision.Admitted)
}

func (s *ManagerTestSuite) TestExitExcludesClosingOrders() {
	position := types.Position{Exchange: "paper", Pair: "BTC/USDT", Side: types.PositionSideLong, Quantity: 2, EntryPrice: 100}
	signal := s.entry(types.DirectionLong, 0)
	signal.Type = types.SignalTypeExit

	decision := s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(position), Closing: 1.5})
	s.Require().True(decision.Admitted)
	s.InDelta(0.5, decision.Quantity, 1e-9)

	signal.Quantity = 1
	decision = s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(position), Closing: 1.5})
	s.InDelta(0.5, decision.Quantity, 1e-9)

	decision = s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(position), Closing: 2})
	s.False(decision.Admitted)
	s.Equal(RejectNoPosition, decision.Reason)
}

func (s *ManagerTestSuite) TestExitWithoutMatchingPosition() {
	signal := s.entry(types.DirectionLong, 0)
	signal.Type = types.SignalTypeExit

	decision := s.manager.Evaluate(Request{Signal: signal, Position: optional.None[types.Position]()})
	s.Equal(RejectNoPosition, decision.Reason)

	short := types.Position{Exchange: "paper", Pair: "BTC/USDT", Side: types.PositionSideShort, Quantity: 1}
	decision = s.manager.Evaluate(Request{Signal: signal, Position: optional.Some(short)})
	s.Equal(RejectNoPosition, decision.Reason)
}

func (s *ManagerTestSuite) TestUpdatePositionRisk() {
	key := types.PositionKey{Exchange: "paper", Pair: "BTC/USDT"}
	s.manager.SetPositionExposure(key, 1, 100)

	position := types.Position{Exchange: "paper", Pair: "BTC/USDT", Side: types.PositionSideLong, Quantity: 1, StopLoss: optional.Some(80.0)}
	stop := s.manager.UpdatePositionRisk(position, 120)

	s.Require().True(stop.IsSome())
	s.InDelta(114.0, stop.Unwrap(), 1e-9)
	s.InDelta(120.0, s.manager.Snapshot().TotalExposure, 1e-9)

	position.StopLoss = optional.None[float64]()
	s.True(s.manager.UpdatePositionRisk(position, 130).IsNone())
}

func (s *ManagerTestSuite) TestSnapshot() {
	s.manager.SetPositionExposure(types.PositionKey{Exchange: "paper", Pair: "BTC/USDT"}, 10, 100)
	s.manager.UpdateCapital(9800)

	snapshot := s.manager.Snapshot()
	s.InDelta(1000.0, snapshot.TotalExposure, 1e-9)
	s.InDelta(1000.0/9800.0, snapshot.ExposureRatio, 1e-9)
	s.InDelta(0.02, snapshot.CurrentDrawdown, 1e-9)
	s.InDelta(1/0.98, snapshot.RecoveryFactor, 1e-9)
	s.Equal(10000.0, snapshot.PeakCapital)
	s.Equal(9800.0, snapshot.CurrentCapital)
	s.Equal(1, snapshot.PositionCount)
	s.False(snapshot.IsMaxDrawdownExceeded)
	s.True(snapshot.IsTradingAllowed)
}

func (s *ManagerTestSuite) TestResetRiskState() {
	s.manager.UpdateCapital(4000)
	s.True(s.manager.Snapshot().IsMaxDrawdownExceeded)

	s.manager.ResetRiskState()

	snapshot := s.manager.Snapshot()
	s.False(snapshot.IsMaxDrawdownExceeded)
	s.True(snapshot.IsTradingAllowed)
	s.Equal(4000.0, snapshot.PeakCapital)
}

func (s *ManagerTestSuite) TestRejectReasonCode() {
	s.Equal(errors.ErrCodeCircuitBreakerTripped, RejectCircuitBreaker.Code())
	s.Equal(errors.ErrCodeExposureExceeded, RejectExposureLimit.Code())
	s.Equal(errors.ErrCodeDrawdownExceeded, RejectMaxDrawdown.Code())
	s.Equal(errors.ErrCodeMarketDataMissing, RejectNoPrice.Code())
	s.Equal(errors.ErrCodePositionNotFound, RejectNoPosition.Code())
	s.Equal(errors.ErrCodeRiskRejected, RejectZeroSize.Code())
	s.Equal(errors.ErrCodeRiskRejected, RejectInvalidDirection.Code())
}
