package risk

import (
	"fmt"
	"sync"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// CircuitBreaker halts new entries when the loss over the current day or week
// exceeds its limit. Once tripped it stays tripped until Reset.
type CircuitBreaker struct {
	mu              sync.RWMutex
	dailyLossLimit  float64
	weeklyLossLimit float64
	current         float64
	dailyStart      float64
	weeklyStart     float64
	lastDailyReset  time.Time
	lastWeeklyReset time.Time
	broken          bool
	reason          string
	brokenAt        time.Time
	now             func() time.Time
}

// NewCircuitBreaker creates a breaker. A zero limit disables that window.
func NewCircuitBreaker(dailyLossLimit, weeklyLossLimit float64, now func() time.Time) *CircuitBreaker {
	return &CircuitBreaker{
		dailyLossLimit:  dailyLossLimit,
		weeklyLossLimit: weeklyLossLimit,
		now:             now,
	}
}

// SetStartingCapital resets every window to capital.
func (c *CircuitBreaker) SetStartingCapital(capital float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.current = capital
	c.dailyStart = capital
	c.weeklyStart = capital
	c.lastDailyReset = now
	c.lastWeeklyReset = now
}

// UpdateCapital records capital, rolls expired windows and reports whether this update tripped the breaker.
func (c *CircuitBreaker) UpdateCapital(capital float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = capital
	now := c.now()

	if now.Sub(c.lastDailyReset) >= day {
		c.dailyStart = capital
		c.lastDailyReset = now
	}

	if now.Sub(c.lastWeeklyReset) >= week {
		c.weeklyStart = capital
		c.lastWeeklyReset = now
	}

	if c.broken {
		return false
	}

	if loss := lossFraction(c.dailyStart, capital); c.dailyLossLimit > 0 && loss > c.dailyLossLimit {
		c.trip(now, fmt.Sprintf("daily loss limit exceeded: %.4f > %.4f", loss, c.dailyLossLimit))

		return true
	}

	if loss := lossFraction(c.weeklyStart, capital); c.weeklyLossLimit > 0 && loss > c.weeklyLossLimit {
		c.trip(now, fmt.Sprintf("weekly loss limit exceeded: %.4f > %.4f", loss, c.weeklyLossLimit))

		return true
	}

	return false
}

func lossFraction(start, current float64) float64 {
	if start <= 0 {
		return 0
	}

	return (start - current) / start
}

func (c *CircuitBreaker) trip(now time.Time, reason string) {
	c.broken = true
	c.reason = reason
	c.brokenAt = now
}

// Reset clears a tripped breaker. It returns the reason it was tripped for, or "" if it was not.
func (c *CircuitBreaker) Reset() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	reason := c.reason
	c.broken = false
	c.reason = ""
	c.brokenAt = time.Time{}

	return reason
}

func (c *CircuitBreaker) IsTradingAllowed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !c.broken
}

func (c *CircuitBreaker) Reason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.reason
}

func (c *CircuitBreaker) TrippedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.brokenAt
}
