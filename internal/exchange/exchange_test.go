package exchange_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/exchange"
	"github.com/rxtech-lab/argo-execution/internal/exchange/paper"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func newPaper(name string) *paper.Exchange {
	return paper.New(config.ExchangeConfig{
		Name:   name,
		Type:   config.ExchangeTypePaper,
		Prices: map[string]float64{"BTC/USDT": 100},
	})
}

func (s *RegistryTestSuite) TestRegisterAndGet() {
	registry, err := exchange.NewRegistry(newPaper("b"), newPaper("a"))
	s.Require().NoError(err)

	ex, err := registry.Get("a")
	s.Require().NoError(err)
	s.Equal("a", ex.Name())
	s.Equal([]string{"a", "b"}, registry.Names())
}

func (s *RegistryTestSuite) TestDuplicateName() {
	_, err := exchange.NewRegistry(newPaper("a"), newPaper("a"))
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *RegistryTestSuite) TestUnknownExchange() {
	registry, err := exchange.NewRegistry()
	s.Require().NoError(err)

	_, err = registry.Get("kraken")
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeUnknownExchange))
}

func (s *RegistryTestSuite) TestInstrumentObservesCalls() {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	ex := exchange.Instrument(newPaper("paper"), m)
	s.Equal("paper", ex.Name())

	_, err := ex.FetchTicker(context.Background(), "BTC/USDT")
	s.Require().NoError(err)

	count, err := testutil.GatherAndCount(reg, "argo_execution_exchange_request_duration_seconds")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RegistryTestSuite) TestInstrumentWithoutMetrics() {
	ex := newPaper("paper")
	s.Same(ex, exchange.Instrument(ex, nil))
}
