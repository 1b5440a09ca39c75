package utils

import (
	"math"
	"strings"
)

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// SplitPair splits a "BASE/QUOTE" pair. A pair without a separator is returned as the base.
func SplitPair(pair string) (base string, quote string) {
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) != 2 {
		return pair, ""
	}

	return parts[0], parts[1]
}

// ExchangeSymbol converts "BTC/USDT" to the concatenated "BTCUSDT" form used by exchanges.
func ExchangeSymbol(pair string) string {
	return strings.ReplaceAll(pair, "/", "")
}
