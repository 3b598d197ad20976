// Command verdict runs the consensus decision engine for binary
// up/down markets. Producers vote each tick, a weighted consensus is
// evaluated, and admitted trades pass risk guards and sizing before
// they reach the venue.
//
// Usage:
//
//	verdict --config config.yaml
//	verdict --instruments BTC_USDT,ETH_USDT --balance 1000
//
// Optional environment variables for live market data:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/verdict/config"
	"github.com/vadiminshakov/verdict/internal"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	app, err := internal.NewApp(cfg, credentials(cfg.Platform), logger)
	if err != nil {
		logger.Fatal("wiring failed", zap.Error(err))
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("engine starting",
		zap.String("platform", cfg.Platform),
		zap.Int("instruments", len(cfg.Instruments)),
		zap.Duration("tick", cfg.TickInterval),
		zap.Duration("epoch", cfg.EpochDuration))

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("engine stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func credentials(platform string) internal.Credentials {
	switch platform {
	case "binance":
		return internal.Credentials{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			APISecret: os.Getenv("BINANCE_API_SECRET"),
		}
	case "bybit":
		return internal.Credentials{
			APIKey:    os.Getenv("BYBIT_API_KEY"),
			APISecret: os.Getenv("BYBIT_API_SECRET"),
		}
	default:
		return internal.Credentials{}
	}
}
