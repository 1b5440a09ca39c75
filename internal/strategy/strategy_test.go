package strategy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/mocks"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RunnerTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	alpha  *mocks.MockStrategy
	beta   *mocks.MockStrategy
	runner *Runner
	ticker types.Ticker
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (suite *RunnerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.alpha = mocks.NewMockStrategy(suite.ctrl)
	suite.beta = mocks.NewMockStrategy(suite.ctrl)
	suite.alpha.EXPECT().Name().Return("alpha").AnyTimes()
	suite.beta.EXPECT().Name().Return("beta").AnyTimes()

	runner, err := NewRunner(logger.NewNopLogger(), suite.beta, suite.alpha)
	suite.Require().NoError(err)
	suite.runner = runner

	suite.ticker = types.Ticker{Pair: "BTC/USDT", Last: 100, Timestamp: time.Now()}
}

func (suite *RunnerTestSuite) TestNamesSorted() {
	suite.Equal([]string{"alpha", "beta"}, suite.runner.Names())
}

func (suite *RunnerTestSuite) TestDuplicateName() {
	other := mocks.NewMockStrategy(suite.ctrl)
	other.EXPECT().Name().Return("alpha").AnyTimes()

	_, err := NewRunner(logger.NewNopLogger(), suite.alpha, other)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *RunnerTestSuite) TestCollectsSignalsAndStampsStrategy() {
	ctx := context.Background()

	gomock.InOrder(
		suite.alpha.EXPECT().ProcessMarketData(ctx, suite.ticker).Return(nil),
		suite.alpha.EXPECT().GenerateSignals(ctx).Return([]types.Signal{{Pair: "BTC/USDT"}}, nil),
	)
	gomock.InOrder(
		suite.beta.EXPECT().ProcessMarketData(ctx, suite.ticker).Return(nil),
		suite.beta.EXPECT().GenerateSignals(ctx).Return([]types.Signal{{Pair: "BTC/USDT", StrategyID: "custom"}}, nil),
	)

	signals := suite.runner.ProcessMarketData(ctx, suite.ticker)

	suite.Require().Len(signals, 2)
	suite.Equal("alpha", signals[0].StrategyID)
	suite.Equal("custom", signals[1].StrategyID)
}

func (suite *RunnerTestSuite) TestFailingStrategyIsSkipped() {
	ctx := context.Background()

	suite.alpha.EXPECT().ProcessMarketData(ctx, suite.ticker).Return(fmt.Errorf("boom"))
	suite.beta.EXPECT().ProcessMarketData(ctx, suite.ticker).Return(nil)
	suite.beta.EXPECT().GenerateSignals(ctx).Return(nil, fmt.Errorf("no signals"))

	suite.Empty(suite.runner.ProcessMarketData(ctx, suite.ticker))
}

func (suite *RunnerTestSuite) TestNotificationsRouteByStrategyID() {
	order := types.Order{ID: "1", StrategyID: "beta"}
	trade := types.Trade{ID: "t1", StrategyID: "alpha"}

	suite.beta.EXPECT().OnOrderUpdate(order)
	suite.alpha.EXPECT().OnTrade(trade)

	suite.runner.NotifyOrder(order)
	suite.runner.NotifyTrade(trade)
	// unknown strategies are ignored
	suite.runner.NotifyOrder(types.Order{ID: "2", StrategyID: "manual"})
}
