package paper

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PaperExchangeTestSuite struct {
	suite.Suite
	now time.Time
}

func TestPaperExchangeSuite(t *testing.T) {
	suite.Run(t, new(PaperExchangeTestSuite))
}

func (s *PaperExchangeTestSuite) SetupTest() {
	s.now = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func (s *PaperExchangeTestSuite) newExchange(balances map[string]float64) *Exchange {
	return New(config.ExchangeConfig{
		Name:            "paper",
		Type:            config.ExchangeTypePaper,
		FeeRate:         config.Ptr(0.001),
		Slippage:        config.Ptr(0.01),
		InitialBalances: balances,
		Prices:          map[string]float64{"BTC/USDT": 100},
	}, WithClock(func() time.Time { return s.now }))
}

func request(side types.OrderSide, orderType types.OrderType, quantity float64, price optional.Option[float64]) types.OrderRequest {
	return types.OrderRequest{
		ClientID:   "client",
		Exchange:   "paper",
		Pair:       "BTC/USDT",
		Type:       orderType,
		Side:       side,
		Quantity:   quantity,
		StrategyID: "s1",
		Price:      price,
	}
}

func (s *PaperExchangeTestSuite) TestMarketOrderFillsWithSlippageAndFee() {
	ex := s.newExchange(nil)

	order, err := ex.CreateOrder(context.Background(), request(types.OrderSideBuy, types.OrderTypeMarket, 2, optional.None[float64]()))
	s.Require().NoError(err)

	s.NotEmpty(order.ID)
	s.Equal(types.OrderStatusFilled, order.Status)
	s.Equal(2.0, order.FilledQuantity)
	s.InDelta(101.0, order.AverageFillPrice, 1e-9)
	s.InDelta(0.202, order.Fee, 1e-9)
	s.Equal(s.now, order.CreatedAt)

	fetched, err := ex.FetchOrder(context.Background(), order.ID, "BTC/USDT")
	s.Require().NoError(err)
	s.Equal(order, fetched)
}

func (s *PaperExchangeTestSuite) TestMarketSellSlipsDown() {
	ex := s.newExchange(nil)

	order, err := ex.CreateOrder(context.Background(), request(types.OrderSideSell, types.OrderTypeMarket, 1, optional.None[float64]()))
	s.Require().NoError(err)
	s.InDelta(99.0, order.AverageFillPrice, 1e-9)
}

func (s *PaperExchangeTestSuite) TestMissingPrice() {
	ex := s.newExchange(nil)

	req := request(types.OrderSideBuy, types.OrderTypeMarket, 1, optional.None[float64]())
	req.Pair = "ETH/USDT"

	_, err := ex.CreateOrder(context.Background(), req)
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeMarketDataMissing))

	_, err = ex.FetchTicker(context.Background(), "ETH/USDT")
	s.True(errors.HasCode(err, errors.ErrCodeMarketDataMissing))
}

func (s *PaperExchangeTestSuite) TestLimitOrderRestsUntilCrossed() {
	ex := s.newExchange(nil)

	order, err := ex.CreateOrder(context.Background(), request(types.OrderSideBuy, types.OrderTypeLimit, 1, optional.Some(95.0)))
	s.Require().NoError(err)
	s.Equal(types.OrderStatusSubmitted, order.Status)

	s.Empty(ex.SetPrice("BTC/USDT", 96))

	filled := ex.SetPrice("BTC/USDT", 94)
	s.Require().Len(filled, 1)
	s.Equal(order.ID, filled[0].ID)
	s.Equal(types.OrderStatusFilled, filled[0].Status)
	s.Equal(95.0, filled[0].AverageFillPrice)
}

func (s *PaperExchangeTestSuite) TestLimitOrderFillsImmediatelyWhenMarketable() {
	ex := s.newExchange(nil)

	order, err := ex.CreateOrder(context.Background(), request(types.OrderSideSell, types.OrderTypeLimit, 1, optional.Some(90.0)))
	s.Require().NoError(err)
	s.Equal(types.OrderStatusFilled, order.Status)
	s.Equal(100.0, order.AverageFillPrice)
}

func (s *PaperExchangeTestSuite) TestCancel() {
	ex := s.newExchange(nil)

	resting, err := ex.CreateOrder(context.Background(), request(types.OrderSideBuy, types.OrderTypeLimit, 1, optional.Some(50.0)))
	s.Require().NoError(err)

	ok, err := ex.CancelOrder(context.Background(), resting.ID, "BTC/USDT")
	s.NoError(err)
	s.True(ok)

	fetched, err := ex.FetchOrder(context.Background(), resting.ID, "BTC/USDT")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusCanceled, fetched.Status)

	s.Run("terminal order is not cancelable", func() {
		ok, err := ex.CancelOrder(context.Background(), resting.ID, "BTC/USDT")
		s.NoError(err)
		s.False(ok)
	})

	s.Run("canceled order never fills", func() {
		s.Empty(ex.SetPrice("BTC/USDT", 10))
	})

	s.Run("unknown order", func() {
		_, err := ex.CancelOrder(context.Background(), "missing", "BTC/USDT")
		s.True(errors.HasCode(err, errors.ErrCodeOrderNotFound))
	})
}

func (s *PaperExchangeTestSuite) TestBalancesEnforced() {
	ex := s.newExchange(map[string]float64{"USDT": 1000})

	s.Run("buy debits quote and credits base", func() {
		_, err := ex.CreateOrder(context.Background(), request(types.OrderSideBuy, types.OrderTypeMarket, 5, optional.None[float64]()))
		s.Require().NoError(err)

		balances := ex.Balances()
		s.InDelta(1000-505-0.505, balances["USDT"], 1e-9)
		s.InDelta(5.0, balances["BTC"], 1e-9)
	})

	s.Run("insufficient quote", func() {
		_, err := ex.CreateOrder(context.Background(), request(types.OrderSideBuy, types.OrderTypeMarket, 100, optional.None[float64]()))
		s.Error(err)
		s.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
	})

	s.Run("insufficient base", func() {
		_, err := ex.CreateOrder(context.Background(), request(types.OrderSideSell, types.OrderTypeMarket, 6, optional.None[float64]()))
		s.Error(err)
		s.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
	})
}

func (s *PaperExchangeTestSuite) TestFetchTicker() {
	ex := s.newExchange(nil)

	ticker, err := ex.FetchTicker(context.Background(), "BTC/USDT")
	s.Require().NoError(err)
	s.Equal(100.0, ticker.Last)
	s.InDelta(99.0, ticker.Bid, 1e-9)
	s.InDelta(101.0, ticker.Ask, 1e-9)
	s.Equal([]string{"BTC/USDT"}, ex.Pairs())
}

func (s *PaperExchangeTestSuite) TestInvalidRequest() {
	ex := s.newExchange(nil)

	_, err := ex.CreateOrder(context.Background(), request(types.OrderSideBuy, types.OrderTypeMarket, 0, optional.None[float64]()))
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}
