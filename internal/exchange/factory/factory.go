// Package factory builds the exchange registry from configuration.
package factory

import (
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/exchange"
	"github.com/rxtech-lab/argo-execution/internal/exchange/binance"
	"github.com/rxtech-lab/argo-execution/internal/exchange/paper"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

// ExchangeInfo describes a supported exchange type.
type ExchangeInfo struct {
	Type           config.ExchangeType `json:"type"`
	DisplayName    string              `json:"displayName"`
	Description    string              `json:"description"`
	IsPaperTrading bool                `json:"isPaperTrading"`
}

var exchangeRegistry = map[config.ExchangeType]ExchangeInfo{
	config.ExchangeTypePaper: {
		Type:           config.ExchangeTypePaper,
		DisplayName:    "Paper",
		Description:    "In-process simulated exchange filling against reference prices",
		IsPaperTrading: true,
	},
	config.ExchangeTypeBinanceTestnet: {
		Type:           config.ExchangeTypeBinanceTestnet,
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for paper trading cryptocurrency without real funds",
		IsPaperTrading: true,
	},
	config.ExchangeTypeBinance: {
		Type:           config.ExchangeTypeBinance,
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds cryptocurrency trading",
		IsPaperTrading: false,
	},
}

// GetExchangeInfo returns metadata for an exchange type.
func GetExchangeInfo(exchangeType config.ExchangeType) (ExchangeInfo, error) {
	info, exists := exchangeRegistry[exchangeType]
	if !exists {
		return ExchangeInfo{}, errors.Newf(errors.ErrCodeUnknownExchange, "unsupported exchange type: %s", exchangeType)
	}

	return info, nil
}

// Exchanges is the result of Build.
type Exchanges struct {
	Registry *exchange.Registry
	// Paper holds the simulated venues by name so their reference prices can be driven.
	Paper map[string]*paper.Exchange
}

// NewExchange creates a single exchange from its configuration.
func NewExchange(cfg config.ExchangeConfig) (exchange.Exchange, error) {
	switch cfg.Type {
	case config.ExchangeTypePaper:
		return paper.New(cfg), nil
	case config.ExchangeTypeBinance, config.ExchangeTypeBinanceTestnet:
		return binance.New(cfg)
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownExchange, "unsupported exchange type: %s", cfg.Type)
	}
}

// Build creates every configured exchange, instrumented with m.
func Build(cfgs []config.ExchangeConfig, m *metrics.Metrics) (*Exchanges, error) {
	registry, err := exchange.NewRegistry()
	if err != nil {
		return nil, err
	}

	result := &Exchanges{
		Registry: registry,
		Paper:    make(map[string]*paper.Exchange),
	}

	for _, cfg := range cfgs {
		ex, err := NewExchange(cfg)
		if err != nil {
			return nil, err
		}

		if p, ok := ex.(*paper.Exchange); ok {
			result.Paper[cfg.Name] = p
		}

		if err := registry.Register(exchange.Instrument(ex, m)); err != nil {
			return nil, err
		}
	}

	return result, nil
}
