package mocks

//go:generate mockgen -destination=./mock_exchange.go -package=mocks github.com/rxtech-lab/argo-execution/internal/exchange Exchange
//go:generate mockgen -destination=./mock_order_sink.go -package=mocks github.com/rxtech-lab/argo-execution/internal/execution OrderSink
//go:generate mockgen -destination=./mock_trade_sink.go -package=mocks github.com/rxtech-lab/argo-execution/internal/recorder TradeSink
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-execution/internal/strategy Strategy
