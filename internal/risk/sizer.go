package risk

import "github.com/shopspring/decimal"

// PositionSizer converts capital at risk into an order quantity scaled by volatility.
type PositionSizer struct {
	riskPerTrade    float64
	maxPositionSize float64
}

// NewPositionSizer creates a sizer. maxPositionSize caps a position's value as a
// fraction of capital; 0 disables the cap.
func NewPositionSizer(riskPerTrade, maxPositionSize float64) *PositionSizer {
	return &PositionSizer{
		riskPerTrade:    riskPerTrade,
		maxPositionSize: maxPositionSize,
	}
}

// Size returns capital*riskPerTrade/volatility, or 0 when volatility is not positive.
// With a cap configured and a known price the value size*price never exceeds cap*capital.
func (s *PositionSizer) Size(capital, volatility, price float64) float64 {
	if volatility <= 0 || capital <= 0 {
		return 0
	}

	size := decimal.NewFromFloat(capital).
		Mul(decimal.NewFromFloat(s.riskPerTrade)).
		Div(decimal.NewFromFloat(volatility))

	if s.maxPositionSize > 0 && price > 0 {
		maxSize := decimal.NewFromFloat(capital).
			Mul(decimal.NewFromFloat(s.maxPositionSize)).
			Div(decimal.NewFromFloat(price))
		size = decimal.Min(size, maxSize)
	}

	return size.InexactFloat64()
}
