package risk

import (
	"math/rand"
	"testing"

	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/stretchr/testify/suite"
)

type StopLossTestSuite struct {
	suite.Suite
	manager *StopLossManager
}

func TestStopLossSuite(t *testing.T) {
	suite.Run(t, new(StopLossTestSuite))
}

func (s *StopLossTestSuite) SetupTest() {
	s.manager = NewStopLossManager(2.0, 1.5, true, 0.05)
}

func (s *StopLossTestSuite) TestInitialStop() {
	s.InDelta(80.0, s.manager.InitialStop(100, types.PositionSideLong, 10), 1e-9)
	s.InDelta(120.0, s.manager.InitialStop(100, types.PositionSideShort, 10), 1e-9)
	s.Equal(0.0, s.manager.InitialStop(10, types.PositionSideLong, 100))
}

func (s *StopLossTestSuite) TestTakeProfit() {
	tp := s.manager.TakeProfit(100, types.PositionSideLong, 10)
	s.Require().True(tp.IsSome())
	s.InDelta(130.0, tp.Unwrap(), 1e-9)

	tp = s.manager.TakeProfit(100, types.PositionSideShort, 10)
	s.Require().True(tp.IsSome())
	s.InDelta(70.0, tp.Unwrap(), 1e-9)

	s.True(s.manager.TakeProfit(100, types.PositionSideLong, 0).IsNone())
	s.True(NewStopLossManager(2.0, 0, true, 0.05).TakeProfit(100, types.PositionSideLong, 10).IsNone())
}

func (s *StopLossTestSuite) TestTrailingStopTightens() {
	s.InDelta(114.0, s.manager.UpdateTrailingStop(120, types.PositionSideLong, 80), 1e-9)
	s.InDelta(80.0, s.manager.UpdateTrailingStop(50, types.PositionSideLong, 80), 1e-9)

	s.InDelta(84.0, s.manager.UpdateTrailingStop(80, types.PositionSideShort, 120), 1e-9)
	s.InDelta(120.0, s.manager.UpdateTrailingStop(150, types.PositionSideShort, 120), 1e-9)
}

func (s *StopLossTestSuite) TestTrailingStopDisabled() {
	manager := NewStopLossManager(2.0, 0, false, 0.05)
	s.Equal(80.0, manager.UpdateTrailingStop(200, types.PositionSideLong, 80))
}

func (s *StopLossTestSuite) TestTrailingStopIsMonotone() {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 100; run++ {
		longStop := 90.0
		shortStop := 110.0
		price := 100.0

		for step := 0; step < 200; step++ {
			price *= 1 + (rng.Float64()-0.5)*0.1

			next := s.manager.UpdateTrailingStop(price, types.PositionSideLong, longStop)
			s.Require().GreaterOrEqual(next, longStop)
			longStop = next

			next = s.manager.UpdateTrailingStop(price, types.PositionSideShort, shortStop)
			s.Require().LessOrEqual(next, shortStop)
			shortStop = next
		}
	}
}

func (s *StopLossTestSuite) TestHitDetection() {
	s.True(IsStopHit(types.PositionSideLong, 79, 80))
	s.True(IsStopHit(types.PositionSideLong, 80, 80))
	s.False(IsStopHit(types.PositionSideLong, 81, 80))
	s.True(IsStopHit(types.PositionSideShort, 121, 120))
	s.False(IsStopHit(types.PositionSideShort, 119, 120))
	s.False(IsStopHit(types.PositionSideLong, 0, 80))

	s.True(IsTakeProfitHit(types.PositionSideLong, 130, 130))
	s.False(IsTakeProfitHit(types.PositionSideLong, 129, 130))
	s.True(IsTakeProfitHit(types.PositionSideShort, 69, 70))
	s.False(IsTakeProfitHit(types.PositionSideShort, 71, 70))
}
