package mocks

import (
	"testing"
)

func TestTickerGenerator_Generate(t *testing.T) {
	gen := NewTickerGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	tickers := gen.Generate(config)

	if len(tickers) != 100 {
		t.Errorf("expected 100 tickers, got %d", len(tickers))
	}

	for i := 1; i < len(tickers); i++ {
		if !tickers[i].Timestamp.After(tickers[i-1].Timestamp) {
			t.Errorf("tickers not in chronological order at index %d", i)
		}

		if tickers[i].Timestamp.Sub(tickers[i-1].Timestamp) != config.Interval {
			t.Errorf("unexpected interval at index %d", i)
		}
	}

	for i, ticker := range tickers {
		if ticker.Pair != config.Pair {
			t.Errorf("expected pair %s at index %d, got %s", config.Pair, i, ticker.Pair)
		}

		if ticker.Last <= 0 || ticker.Bid <= 0 || ticker.Ask <= 0 {
			t.Errorf("non-positive price at index %d: %+v", i, ticker)
		}

		if ticker.Bid > ticker.Ask {
			t.Errorf("crossed book at index %d: bid=%f ask=%f", i, ticker.Bid, ticker.Ask)
		}
	}
}

func TestTickerGenerator_Reproducibility(t *testing.T) {
	config := DefaultConfig()
	config.Count = 50

	first := NewTickerGenerator(7).Generate(config)
	second := NewTickerGenerator(7).Generate(config)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed produced different tickers at index %d", i)
		}
	}
}

func TestTickerGenerator_MultiPair(t *testing.T) {
	gen := NewTickerGenerator(1)
	config := DefaultConfig()
	config.Count = 10

	series := gen.GenerateMultiPair([]string{"BTC/USDT", "ETH/USDT"}, config)

	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}

	for pair, tickers := range series {
		if len(tickers) != 10 {
			t.Errorf("expected 10 tickers for %s, got %d", pair, len(tickers))
		}
	}
}

func TestRealizedVolatility(t *testing.T) {
	gen := NewTickerGenerator(3)
	config := DefaultConfig()
	config.Count = 500

	vol := RealizedVolatility(gen.Generate(config))
	if vol <= 0 {
		t.Errorf("expected positive volatility, got %f", vol)
	}

	if RealizedVolatility(nil) != 0 {
		t.Errorf("expected 0 volatility for an empty series")
	}
}
