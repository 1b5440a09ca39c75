package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rxtech-lab/argo-execution/internal/api"
	"github.com/rxtech-lab/argo-execution/internal/config"
	"github.com/rxtech-lab/argo-execution/internal/engine"
	"github.com/rxtech-lab/argo-execution/internal/exchange/factory"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	if listen := cmd.String("listen"); listen != "" {
		cfg.API.Enabled = true
		cfg.API.ListenAddress = listen
	}

	return cfg, nil
}

// runAction starts the engine and blocks until SIGINT or SIGTERM.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	zlog, err := logger.NewLoggerWithLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zlog.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := metrics.NewMetrics(registry)

	exchanges, err := factory.Build(cfg.Exchanges, m)
	if err != nil {
		return fmt.Errorf("failed to create exchanges: %w", err)
	}

	eng, err := engine.New(cfg, exchanges, zlog, m)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	defer func() {
		if err := eng.Close(); err != nil {
			zlog.Error("Failed to close engine", zap.Error(err))
		}
	}()

	callbacks := consoleCallbacks()

	if cfg.API.Enabled {
		hub := api.NewHub(zlog)
		server := api.NewServer(eng, hub, registry, zlog)

		if err := server.Start(cfg.API.ListenAddress); err != nil {
			return err
		}

		defer func() {
			if err := server.Shutdown(context.Background()); err != nil {
				zlog.Warn("Failed to shut down API server", zap.Error(err))
			}
		}()

		callbacks = callbacks.Merge(hub.Callbacks())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = eng.Run(ctx, callbacks)
	if errors.Is(err, context.Canceled) {
		fmt.Println("Engine stopped by user")

		return nil
	}

	return err
}

func consoleCallbacks() engine.Callbacks {
	onStart := engine.OnEngineStartCallback(func(exchanges []string) error {
		fmt.Printf("Engine started: exchanges=%v\n", exchanges)

		return nil
	})
	onStop := engine.OnEngineStopCallback(func(err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Printf("Engine stopped with error: %v\n", err)
		} else {
			fmt.Println("Engine stopped")
		}
	})
	onTrade := engine.OnTradeCallback(func(trade types.Trade) {
		fmt.Printf("[%s] %s %s %s %.8g @ %.8g pnl=%.4f fee=%.4f\n",
			trade.Timestamp.Format("15:04:05"), trade.Exchange, trade.Pair,
			trade.Side, trade.Quantity, trade.Price, trade.RealizedPnL, trade.Fee)
	})
	onExit := engine.OnProtectiveExitCallback(func(position types.Position, order types.Order) {
		fmt.Printf("Protective exit (%s): %s %.8g\n", order.Reason.Reason, position.Key(), position.Quantity)
	})
	onError := engine.OnErrorCallback(func(err error) {
		fmt.Printf("Error: %v\n", err)
	})

	return engine.Callbacks{
		OnEngineStart:    &onStart,
		OnEngineStop:     &onStop,
		OnTrade:          &onTrade,
		OnProtectiveExit: &onExit,
		OnError:          &onError,
	}
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Println(renderConfigSummary(cfg))

	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	status, err := fetchStatus(ctx, cmd.String("url"))
	if err != nil {
		return err
	}

	fmt.Println(renderStatus(status))

	return nil
}

func main() {
	configFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the engine configuration `FILE`",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override the configured log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "Enable the HTTP API on this address",
		},
	}

	cmd := &cli.Command{
		Name:  "argo-execution",
		Usage: "Trade execution and risk control engine",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the engine until interrupted",
				Flags:  configFlags,
				Action: runAction,
			},
			{
				Name:   "validate",
				Usage:  "Validate a configuration file and print a summary",
				Flags:  configFlags,
				Action: validateAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the configuration JSON schema",
				Action: schemaAction,
			},
			{
				Name:  "status",
				Usage: "Show the risk snapshot and positions of a running engine",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Base URL of the engine API",
						Value: "http://localhost" + config.DefaultListenAddress,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Request timeout",
						Value: 5 * time.Second,
					},
				},
				Action: statusAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
