package execution

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/risk"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var allStatuses = []types.OrderStatus{
	types.OrderStatusNew,
	types.OrderStatusSubmitted,
	types.OrderStatusPartiallyFilled,
	types.OrderStatusFilled,
	types.OrderStatusCanceled,
	types.OrderStatusRejected,
	types.OrderStatusExpired,
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from     types.OrderStatus
		to       types.OrderStatus
		expected bool
	}{
		{types.OrderStatusNew, types.OrderStatusSubmitted, true},
		{types.OrderStatusNew, types.OrderStatusFilled, true},
		{types.OrderStatusSubmitted, types.OrderStatusPartiallyFilled, true},
		{types.OrderStatusPartiallyFilled, types.OrderStatusSubmitted, true},
		{types.OrderStatusPartiallyFilled, types.OrderStatusPartiallyFilled, true},
		{types.OrderStatusPartiallyFilled, types.OrderStatusCanceled, true},
		{types.OrderStatusSubmitted, types.OrderStatusNew, false},
		{types.OrderStatusPartiallyFilled, types.OrderStatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalStatusesAreAbsorbing(t *testing.T) {
	for _, from := range allStatuses {
		if !from.IsTerminal() {
			continue
		}

		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)

			_, err := Transition(types.Order{ID: "1", Status: from}, to)
			assert.True(t, errors.IsTransitionError(err))
		}
	}
}

func TestTransition(t *testing.T) {
	order, err := Transition(types.Order{ID: "1", Status: types.OrderStatusSubmitted}, types.OrderStatusFilled)
	assert.NoError(t, err)
	assert.Equal(t, types.OrderStatusFilled, order.Status)
}

type SignalGateTestSuite struct {
	suite.Suite
	now  time.Time
	gate *SignalGate
}

func TestSignalGateSuite(t *testing.T) {
	suite.Run(t, new(SignalGateTestSuite))
}

func (s *SignalGateTestSuite) SetupTest() {
	s.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.gate = NewSignalGate(logger.NewNopLogger(), nil, func() time.Time { return s.now })
}

func (s *SignalGateTestSuite) signal() types.Signal {
	return types.Signal{
		ID:         "sig",
		StrategyID: "s1",
		Exchange:   "paper",
		Pair:       "BTC/USDT",
		Type:       types.SignalTypeEntry,
		Direction:  types.DirectionLong,
		Strength:   0.5,
		CreatedAt:  s.now.Add(-time.Second),
		ExpiresAt:  s.now.Add(time.Minute),
	}
}

func (s *SignalGateTestSuite) TestAdmit() {
	s.NoError(s.gate.Admit(s.signal()))
}

func (s *SignalGateTestSuite) TestExpired() {
	signal := s.signal()
	signal.ExpiresAt = s.now.Add(-time.Millisecond)
	signal.CreatedAt = s.now.Add(-time.Minute)

	err := s.gate.Admit(signal)
	s.True(errors.HasCode(err, errors.ErrCodeSignalExpired))
}

func (s *SignalGateTestSuite) TestExpiresExactlyNowIsAdmitted() {
	signal := s.signal()
	signal.ExpiresAt = s.now

	s.NoError(s.gate.Admit(signal))
}

func (s *SignalGateTestSuite) TestInvalid() {
	signal := s.signal()
	signal.Strength = 2

	err := s.gate.Admit(signal)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidSignal))
}

func TestOrderSide(t *testing.T) {
	long := optional.Some(types.Position{Side: types.PositionSideLong})
	none := optional.None[types.Position]()

	tests := []struct {
		name      string
		signal    types.SignalType
		direction types.Direction
		position  optional.Option[types.Position]
		expected  types.OrderSide
		wantErr   bool
	}{
		{"entry long", types.SignalTypeEntry, types.DirectionLong, none, types.OrderSideBuy, false},
		{"entry short", types.SignalTypeEntry, types.DirectionShort, none, types.OrderSideSell, false},
		{"adjust long", types.SignalTypeAdjust, types.DirectionLong, none, types.OrderSideBuy, false},
		{"exit long", types.SignalTypeExit, types.DirectionLong, long, types.OrderSideSell, false},
		{"exit short", types.SignalTypeExit, types.DirectionShort, none, types.OrderSideBuy, false},
		{"exit neutral closes long", types.SignalTypeExit, types.DirectionNeutral, long, types.OrderSideSell, false},
		{"exit neutral without position", types.SignalTypeExit, types.DirectionNeutral, none, "", true},
		{"entry neutral", types.SignalTypeEntry, types.DirectionNeutral, none, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, err := OrderSide(types.Signal{Type: tt.signal, Direction: tt.direction}, tt.position)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, side)
		})
	}
}

func TestNewIntent(t *testing.T) {
	decision := risk.Decision{
		Admitted:      true,
		Quantity:      1.5,
		ReservationID: "r1",
		StopLoss:      optional.Some(90.0),
		TakeProfit:    optional.None[float64](),
	}

	t.Run("entry is always market", func(t *testing.T) {
		signal := types.Signal{Type: types.SignalTypeEntry, Direction: types.DirectionLong, OrderType: types.OrderTypeLimit}

		intent, err := NewIntent(signal, decision, 100, optional.None[types.Position]())
		assert.NoError(t, err)
		assert.Equal(t, types.OrderTypeMarket, intent.Type)
		assert.True(t, intent.Price.IsNone())
		assert.Equal(t, "r1", intent.ReservationID)
		assert.Equal(t, 1.5, intent.Quantity)
	})

	t.Run("limit exit carries price", func(t *testing.T) {
		signal := types.Signal{Type: types.SignalTypeExit, Direction: types.DirectionLong, OrderType: types.OrderTypeLimit}

		intent, err := NewIntent(signal, decision, 105, optional.Some(types.Position{Side: types.PositionSideLong}))
		assert.NoError(t, err)
		assert.Equal(t, types.OrderTypeLimit, intent.Type)
		assert.Equal(t, 105.0, intent.Price.Unwrap())
		assert.Equal(t, types.OrderSideSell, intent.Side)
	})

	t.Run("close intent", func(t *testing.T) {
		intent := CloseIntent(types.Position{Exchange: "paper", Pair: "BTC/USDT", Side: types.PositionSideShort, Quantity: 3}, types.OrderReasonStopLoss, "stop")
		assert.Equal(t, types.OrderSideBuy, intent.Side)
		assert.Equal(t, 3.0, intent.Quantity)
		assert.Equal(t, types.OrderReasonStopLoss, intent.Reason.Reason)
	})
}
