package types

import "time"

// Ticker is the latest top of book for a pair.
type Ticker struct {
	Pair      string    `yaml:"pair" json:"pair"`
	Bid       float64   `yaml:"bid" json:"bid"`
	Ask       float64   `yaml:"ask" json:"ask"`
	Last      float64   `yaml:"last" json:"last"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// Price returns the last traded price, falling back to the mid price.
func (t Ticker) Price() float64 {
	if t.Last > 0 {
		return t.Last
	}

	if t.Bid > 0 && t.Ask > 0 {
		return (t.Bid + t.Ask) / 2
	}

	if t.Bid > 0 {
		return t.Bid
	}

	return t.Ask
}
