package risk

import (
	"math"
	"sync"
	"time"
)

// DrawdownPoint is one drawdown sample.
type DrawdownPoint struct {
	Timestamp time.Time
	Drawdown  float64
}

// DrawdownMonitor tracks peak capital and the decline from it.
// The gate is computed from current capital and is never latched.
type DrawdownMonitor struct {
	mu          sync.RWMutex
	maxDrawdown float64
	peak        float64
	current     float64
	history     []DrawdownPoint
	historySize int
	now         func() time.Time
}

func NewDrawdownMonitor(maxDrawdown float64, historySize int, now func() time.Time) *DrawdownMonitor {
	if historySize <= 0 {
		historySize = 1
	}

	return &DrawdownMonitor{
		maxDrawdown: maxDrawdown,
		historySize: historySize,
		history:     make([]DrawdownPoint, 0, historySize),
		now:         now,
	}
}

// UpdateCapital records the current capital and appends a drawdown sample.
func (d *DrawdownMonitor) UpdateCapital(capital float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.current = capital
	if capital > d.peak {
		d.peak = capital
	}

	d.history = append(d.history, DrawdownPoint{Timestamp: d.now(), Drawdown: d.drawdownLocked()})
	if len(d.history) > d.historySize {
		d.history = append(d.history[:0:0], d.history[len(d.history)-d.historySize:]...)
	}
}

// Reset makes capital the new peak and clears history.
func (d *DrawdownMonitor) Reset(capital float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.peak = capital
	d.current = capital
	d.history = d.history[:0]
}

func (d *DrawdownMonitor) drawdownLocked() float64 {
	if d.peak == 0 {
		return 0
	}

	return (d.peak - d.current) / d.peak
}

// Drawdown returns (peak-current)/peak, 0 while the peak is 0.
func (d *DrawdownMonitor) Drawdown() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.drawdownLocked()
}

// IsMaxDrawdownExceeded reports whether drawdown is strictly above the limit.
func (d *DrawdownMonitor) IsMaxDrawdownExceeded() bool {
	return d.Drawdown() > d.maxDrawdown
}

// RecoveryFactor returns the gain multiple needed to get back to the peak.
func (d *DrawdownMonitor) RecoveryFactor() float64 {
	drawdown := d.Drawdown()

	switch {
	case drawdown <= 0:
		return 1
	case drawdown >= 1:
		return math.Inf(1)
	default:
		return 1 / (1 - drawdown)
	}
}

// MaxDrawdownPeriod returns the largest recorded drawdown and the longest time spent below the peak.
func (d *DrawdownMonitor) MaxDrawdownPeriod() (float64, time.Duration) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var (
		maxDrawdown float64
		maxDuration time.Duration
		start       time.Time
		inDrawdown  bool
	)

	for _, point := range d.history {
		switch {
		case point.Drawdown > 0 && !inDrawdown:
			start = point.Timestamp
			inDrawdown = true
		case point.Drawdown == 0 && inDrawdown:
			if duration := point.Timestamp.Sub(start); duration > maxDuration {
				maxDuration = duration
			}

			inDrawdown = false
		}

		if point.Drawdown > maxDrawdown {
			maxDrawdown = point.Drawdown
		}
	}

	if inDrawdown {
		if duration := d.now().Sub(start); duration > maxDuration {
			maxDuration = duration
		}
	}

	return maxDrawdown, maxDuration
}

// History returns a copy of the retained samples.
func (d *DrawdownMonitor) History() []DrawdownPoint {
	d.mu.RLock()
	defer d.mu.RUnlock()

	history := make([]DrawdownPoint, len(d.history))
	copy(history, d.history)

	return history
}

func (d *DrawdownMonitor) Peak() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.peak
}

func (d *DrawdownMonitor) Current() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.current
}
