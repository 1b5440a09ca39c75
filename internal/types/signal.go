package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

type SignalType string

type Direction string

const (
	// SignalTypeEntry opens or increases a position.
	SignalTypeEntry SignalType = "ENTRY"
	// SignalTypeExit reduces or closes a position.
	SignalTypeExit SignalType = "EXIT"
	// SignalTypeAdjust resizes an existing position in the signal's direction.
	SignalTypeAdjust SignalType = "ADJUST"
)

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"
)

// Signal is a trading intent produced by a strategy.
type Signal struct {
	ID         string     `yaml:"id" json:"id"`
	StrategyID string     `yaml:"strategy_id" json:"strategy_id" validate:"required"`
	Exchange   string     `yaml:"exchange" json:"exchange" validate:"required"`
	Pair       string     `yaml:"pair" json:"pair" validate:"required"`
	Type       SignalType `yaml:"type" json:"type" validate:"required,oneof=ENTRY EXIT ADJUST"`
	Direction  Direction  `yaml:"direction" json:"direction" validate:"required,oneof=LONG SHORT NEUTRAL"`
	// Strength is the strategy's confidence in [0, 1].
	Strength float64 `yaml:"strength" json:"strength" validate:"gte=0,lte=1"`
	// TargetPrice is the desired execution price. 0 means "use the current ticker".
	TargetPrice float64 `yaml:"target_price" json:"target_price" validate:"gte=0"`
	// Quantity is the suggested quantity. 0 lets the position sizer decide.
	Quantity float64 `yaml:"quantity" json:"quantity" validate:"gte=0"`
	// OrderType is the declared order type for non-entry signals. Empty means MARKET.
	OrderType OrderType `yaml:"order_type" json:"order_type" validate:"omitempty,oneof=MARKET LIMIT"`
	// Volatility is the market data feed's volatility estimate for the pair.
	Volatility float64        `yaml:"volatility" json:"volatility" validate:"gte=0"`
	CreatedAt  time.Time      `yaml:"created_at" json:"created_at" validate:"required"`
	ExpiresAt  time.Time      `yaml:"expires_at" json:"expires_at" validate:"required,gtfield=CreatedAt"`
	Metadata   map[string]any `yaml:"metadata" json:"metadata"`
}

// Validate validates the Signal struct.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	return nil
}

// IsExpired reports whether the signal is past its expiry at now.
func (s Signal) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Key returns the position key the signal targets.
func (s Signal) Key() PositionKey {
	return PositionKey{Exchange: s.Exchange, Pair: s.Pair}
}

// OpensExposure reports whether the signal may add exposure and therefore goes through the full risk gate.
func (s Signal) OpensExposure() bool {
	return s.Type == SignalTypeEntry || s.Type == SignalTypeAdjust
}

// ResolvedOrderType returns the order type used to execute the signal.
// Entries are always executed at market.
func (s Signal) ResolvedOrderType() OrderType {
	if s.Type == SignalTypeEntry || s.OrderType == "" {
		return OrderTypeMarket
	}

	return s.OrderType
}
