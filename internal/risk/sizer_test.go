package risk

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type PositionSizerTestSuite struct {
	suite.Suite
}

func TestPositionSizerSuite(t *testing.T) {
	suite.Run(t, new(PositionSizerTestSuite))
}

func (s *PositionSizerTestSuite) TestZeroVolatilityYieldsZero() {
	sizer := NewPositionSizer(0.02, 0)

	s.Equal(0.0, sizer.Size(10000, 0, 100))
	s.Equal(0.0, sizer.Size(10000, -1, 100))
}

func (s *PositionSizerTestSuite) TestVolatilityScaling() {
	sizer := NewPositionSizer(0.02, 0)

	s.InDelta(2.0, sizer.Size(10000, 100, 100), 1e-9)
	s.InDelta(1.0, sizer.Size(10000, 200, 100), 1e-9)
	s.InDelta(0.4, sizer.Size(1000, 50, 100), 1e-9)
}

func (s *PositionSizerTestSuite) TestMaxPositionCap() {
	sizer := NewPositionSizer(0.02, 0.2)

	// uncapped size 200 would be worth 20000; cap is 0.2 * 10000 / 100 = 20 units
	s.InDelta(20.0, sizer.Size(10000, 1, 100), 1e-9)
	// under the cap the volatility size wins
	s.InDelta(2.0, sizer.Size(10000, 100, 100), 1e-9)
	// without a price the cap cannot be applied
	s.InDelta(200.0, sizer.Size(10000, 1, 0), 1e-9)
}

func (s *PositionSizerTestSuite) TestNoCapital() {
	sizer := NewPositionSizer(0.02, 0)
	s.Equal(0.0, sizer.Size(0, 100, 100))
}
