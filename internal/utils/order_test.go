package utils

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsTestSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestRoundToDecimalPrecision() {
	tests := []struct {
		name      string
		quantity  float64
		precision int
		expected  float64
	}{
		{name: "rounds down", quantity: 1.23456789, precision: 4, expected: 1.2345},
		{name: "integer precision", quantity: 9.99, precision: 0, expected: 9},
		{name: "already precise", quantity: 0.5, precision: 8, expected: 0.5},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, RoundToDecimalPrecision(tc.quantity, tc.precision), 1e-12)
		})
	}
}

func (suite *UtilsTestSuite) TestSplitPair() {
	base, quote := SplitPair("BTC/USDT")
	suite.Equal("BTC", base)
	suite.Equal("USDT", quote)

	base, quote = SplitPair("BTCUSDT")
	suite.Equal("BTCUSDT", base)
	suite.Equal("", quote)
}

func (suite *UtilsTestSuite) TestExchangeSymbol() {
	suite.Equal("BTCUSDT", ExchangeSymbol("BTC/USDT"))
	suite.Equal("ETHBTC", ExchangeSymbol("ETHBTC"))
}
