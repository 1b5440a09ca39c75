package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/types"
)

// TickerGenerator generates realistic ticker streams for testing and benchmarking.
type TickerGenerator struct {
	rng *rand.Rand
}

// NewTickerGenerator creates a new TickerGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewTickerGenerator(seed int64) *TickerGenerator {
	return &TickerGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how tickers are generated.
type GeneratorConfig struct {
	// Pair is the trading pair (e.g., "BTC/USDT")
	Pair string
	// StartTime is the timestamp of the first ticker
	StartTime time.Time
	// Interval is the duration between tickers
	Interval time.Duration
	// Count is the number of tickers to generate
	Count int
	// InitialPrice is the starting last price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per tick)
	Volatility float64
	// Trend is the total drift over the series (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// Spread is the bid/ask spread as a fraction of price
	Spread float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Pair:         "BTC/USDT",
		StartTime:    time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:     time.Second,
		Count:        1000,
		InitialPrice: 100.0,
		Volatility:   0.002, // 0.2% per tick
		Trend:        0.0,   // neutral
		Spread:       0.0005,
	}
}

// Generate creates a ticker series following a geometric Brownian motion.
func (g *TickerGenerator) Generate(config GeneratorConfig) []types.Ticker {
	tickers := make([]types.Ticker, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		// Box-Muller transform for a standard normal sample
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		last := currentPrice * (1 + config.Volatility*z + drift)
		if last <= 0 {
			last = currentPrice * 0.99
		}

		halfSpread := last * config.Spread / 2

		tickers[i] = types.Ticker{
			Pair:      config.Pair,
			Bid:       roundToDecimals(last-halfSpread, 4),
			Ask:       roundToDecimals(last+halfSpread, 4),
			Last:      roundToDecimals(last, 4),
			Timestamp: currentTime,
		}

		currentPrice = last
		currentTime = currentTime.Add(config.Interval)
	}

	return tickers
}

// GenerateMultiPair generates a series for each pair with a slightly varied start price and volatility.
func (g *TickerGenerator) GenerateMultiPair(pairs []string, baseConfig GeneratorConfig) map[string][]types.Ticker {
	series := make(map[string][]types.Ticker, len(pairs))

	for _, pair := range pairs {
		config := baseConfig
		config.Pair = pair
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		series[pair] = g.Generate(config)
	}

	return series
}

// RealizedVolatility returns the standard deviation of last-price changes in price units,
// the volatility figure signals carry for position sizing.
func RealizedVolatility(tickers []types.Ticker) float64 {
	if len(tickers) < 2 {
		return 0
	}

	changes := make([]float64, 0, len(tickers)-1)

	var sum float64

	for i := 1; i < len(tickers); i++ {
		change := tickers[i].Last - tickers[i-1].Last
		changes = append(changes, change)
		sum += change
	}

	mean := sum / float64(len(changes))

	var variance float64
	for _, change := range changes {
		variance += (change - mean) * (change - mean)
	}

	return math.Sqrt(variance / float64(len(changes)))
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
