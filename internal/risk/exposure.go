package risk

import (
	"sync"

	"github.com/rxtech-lab/argo-execution/internal/types"
)

type exposureEntry struct {
	quantity float64
	price    float64
}

// ExposureMonitor tracks the market value of open positions and of admitted
// orders that have not settled yet. Admission checks and reservations happen
// under one lock so concurrent admissions on different keys cannot jointly
// exceed the cap.
type ExposureMonitor struct {
	mu           sync.RWMutex
	maxExposure  float64
	positions    map[types.PositionKey]exposureEntry
	reservations map[string]float64
}

func NewExposureMonitor(maxExposure float64) *ExposureMonitor {
	return &ExposureMonitor{
		maxExposure:  maxExposure,
		positions:    make(map[types.PositionKey]exposureEntry),
		reservations: make(map[string]float64),
	}
}

// SetPosition records the position quantity and price for key. A zero quantity removes the key.
func (e *ExposureMonitor) SetPosition(key types.PositionKey, quantity, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		delete(e.positions, key)

		return
	}

	e.positions[key] = exposureEntry{quantity: quantity, price: price}
}

// UpdatePrice refreshes the current price of a tracked position.
func (e *ExposureMonitor) UpdatePrice(key types.PositionKey, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.positions[key]
	if !ok || price <= 0 {
		return
	}

	entry.price = price
	e.positions[key] = entry
}

func (e *ExposureMonitor) RemovePosition(key types.PositionKey) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.positions, key)
}

func (e *ExposureMonitor) totalLocked() float64 {
	total := 0.0
	for _, entry := range e.positions {
		total += entry.quantity * entry.price
	}

	return total
}

func (e *ExposureMonitor) reservedLocked() float64 {
	reserved := 0.0
	for _, value := range e.reservations {
		reserved += value
	}

	return reserved
}

// Total returns the sum of quantity*price over tracked positions.
func (e *ExposureMonitor) Total() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.totalLocked()
}

// Reserved returns the value held by outstanding reservations.
func (e *ExposureMonitor) Reserved() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.reservedLocked()
}

// Ratio returns total exposure as a fraction of capital.
func (e *ExposureMonitor) Ratio(capital float64) float64 {
	if capital <= 0 {
		return 0
	}

	return e.Total() / capital
}

// IsAllowed reports whether a new candidate of the given value fits under the cap.
func (e *ExposureMonitor) IsAllowed(capital, value float64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.fitsLocked(capital, value)
}

func (e *ExposureMonitor) fitsLocked(capital, value float64) bool {
	if capital <= 0 {
		return false
	}

	return e.totalLocked()+e.reservedLocked()+value <= e.maxExposure*capital
}

// Reserve admits value under id if it fits under the cap.
func (e *ExposureMonitor) Reserve(id string, capital, value float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.fitsLocked(capital, value) {
		return false
	}

	e.reservations[id] += value

	return true
}

// Consume reduces a reservation by value once that value has become position exposure.
func (e *ExposureMonitor) Consume(id string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	remaining, ok := e.reservations[id]
	if !ok {
		return
	}

	remaining -= value
	if remaining <= 0 {
		delete(e.reservations, id)

		return
	}

	e.reservations[id] = remaining
}

// Release drops a reservation.
func (e *ExposureMonitor) Release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.reservations, id)
}

// Count returns the number of tracked positions.
func (e *ExposureMonitor) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.positions)
}

// Correlation is a diversification measure: 1 - unique pairs / positions.
// The same pair held on several exchanges counts once.
func (e *ExposureMonitor) Correlation() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.positions) <= 1 {
		return 0
	}

	pairs := make(map[string]struct{}, len(e.positions))
	for key := range e.positions {
		pairs[key.Pair] = struct{}{}
	}

	return 1 - float64(len(pairs))/float64(len(e.positions))
}
