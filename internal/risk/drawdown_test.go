package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type DrawdownMonitorTestSuite struct {
	suite.Suite
	clock   *fakeClock
	monitor *DrawdownMonitor
}

func TestDrawdownMonitorSuite(t *testing.T) {
	suite.Run(t, new(DrawdownMonitorTestSuite))
}

func (s *DrawdownMonitorTestSuite) SetupTest() {
	s.clock = newFakeClock()
	s.monitor = NewDrawdownMonitor(0.5, 1000, s.clock.Now)
}

func (s *DrawdownMonitorTestSuite) TestZeroPeak() {
	s.Equal(0.0, s.monitor.Drawdown())
	s.Equal(1.0, s.monitor.RecoveryFactor())
	s.False(s.monitor.IsMaxDrawdownExceeded())
}

func (s *DrawdownMonitorTestSuite) TestDrawdownAndRecoveryFactor() {
	s.monitor.UpdateCapital(10000)
	s.monitor.UpdateCapital(12000)
	s.monitor.UpdateCapital(9000)

	s.Equal(12000.0, s.monitor.Peak())
	s.Equal(9000.0, s.monitor.Current())
	s.InDelta(0.25, s.monitor.Drawdown(), 1e-9)
	s.InDelta(1/0.75, s.monitor.RecoveryFactor(), 1e-9)

	s.monitor.UpdateCapital(0)
	s.True(math.IsInf(s.monitor.RecoveryFactor(), 1))
}

func (s *DrawdownMonitorTestSuite) TestGateIsMonotoneUntilRecovery() {
	s.monitor.UpdateCapital(10000)

	s.monitor.UpdateCapital(5000)
	s.False(s.monitor.IsMaxDrawdownExceeded(), "exactly at the limit is allowed")

	capitals := []float64{4999, 4000, 3000, 4500, 4999}
	for _, capital := range capitals {
		s.monitor.UpdateCapital(capital)
		s.True(s.monitor.IsMaxDrawdownExceeded())
	}

	s.monitor.UpdateCapital(5001)
	s.False(s.monitor.IsMaxDrawdownExceeded())
}

func (s *DrawdownMonitorTestSuite) TestHistoryIsBounded() {
	monitor := NewDrawdownMonitor(0.5, 10, s.clock.Now)
	for i := 0; i < 25; i++ {
		monitor.UpdateCapital(float64(1000 + i))
	}

	history := monitor.History()
	s.Len(history, 10)
}

func (s *DrawdownMonitorTestSuite) TestMaxDrawdownPeriod() {
	s.monitor.UpdateCapital(10000)
	s.clock.Advance(time.Hour)
	s.monitor.UpdateCapital(9000)
	s.clock.Advance(3 * time.Hour)
	s.monitor.UpdateCapital(8000)
	s.clock.Advance(time.Hour)
	s.monitor.UpdateCapital(10000)

	maxDrawdown, duration := s.monitor.MaxDrawdownPeriod()
	s.InDelta(0.2, maxDrawdown, 1e-9)
	s.Equal(4*time.Hour, duration)

	s.clock.Advance(time.Hour)
	s.monitor.UpdateCapital(9500)
	s.clock.Advance(10 * time.Hour)

	_, duration = s.monitor.MaxDrawdownPeriod()
	s.Equal(10*time.Hour, duration, "an ongoing drawdown counts up to now")
}

func (s *DrawdownMonitorTestSuite) TestReset() {
	s.monitor.UpdateCapital(10000)
	s.monitor.UpdateCapital(4000)
	s.True(s.monitor.IsMaxDrawdownExceeded())

	s.monitor.Reset(4000)
	s.Equal(0.0, s.monitor.Drawdown())
	s.Empty(s.monitor.History())
}
