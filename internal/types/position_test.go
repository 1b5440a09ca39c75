package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionExposure(t *testing.T) {
	position := Position{Quantity: 2, EntryPrice: 100}
	assert.Equal(t, 100.0, position.MarkPrice())
	assert.Equal(t, 200.0, position.Exposure())

	position.CurrentPrice = 110
	assert.Equal(t, 220.0, position.Exposure())
}

func TestPositionFilterMatches(t *testing.T) {
	tests := []struct {
		name    string
		filter  PositionFilter
		matches bool
	}{
		{name: "empty filter", filter: PositionFilter{}, matches: true},
		{name: "exchange match", filter: PositionFilter{Exchange: "paper"}, matches: true},
		{name: "exchange mismatch", filter: PositionFilter{Exchange: "binance"}, matches: false},
		{name: "pair and strategy", filter: PositionFilter{Pair: "ETH/USDT", StrategyID: "s1"}, matches: true},
		{name: "strategy mismatch", filter: PositionFilter{StrategyID: "s2"}, matches: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, tt.filter.Matches("paper", "ETH/USDT", "s1"))
		})
	}
}

func TestTickerPrice(t *testing.T) {
	assert.Equal(t, 101.0, Ticker{Last: 101, Bid: 99, Ask: 100}.Price())
	assert.Equal(t, 100.0, Ticker{Bid: 99, Ask: 101}.Price())
	assert.Equal(t, 99.0, Ticker{Bid: 99}.Price())
	assert.Equal(t, 101.0, Ticker{Ask: 101}.Price())
	assert.Equal(t, 0.0, Ticker{}.Price())
}
