package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/verdict/config"
	"github.com/vadiminshakov/verdict/internal/account"
	"github.com/vadiminshakov/verdict/internal/clients"
	"github.com/vadiminshakov/verdict/internal/services/collector"
	"github.com/vadiminshakov/verdict/internal/services/consensus"
	"github.com/vadiminshakov/verdict/internal/services/epoch"
	"github.com/vadiminshakov/verdict/internal/services/executor"
	"github.com/vadiminshakov/verdict/internal/services/guardian"
	"github.com/vadiminshakov/verdict/internal/services/pricer"
	"github.com/vadiminshakov/verdict/internal/services/producer"
	"github.com/vadiminshakov/verdict/internal/services/sizer"
	"github.com/vadiminshakov/verdict/internal/storage/audit"
	"github.com/vadiminshakov/verdict/internal/storage/state"
	"github.com/vadiminshakov/verdict/pkg/retrier"
)

// Credentials are the venue API keys. Empty credentials still work for
// public market data.
type Credentials struct {
	APIKey    string
	APISecret string
}

// App bundles the engine with its background collaborators.
type App struct {
	engine *Engine
	keeper *account.Keeper
	l      *zap.Logger

	auditLog  *audit.WALStore
	publisher *audit.Publisher
}

// NewApp wires the full pipeline from configuration. The platform picks
// the market data source; execution always goes through the simulated
// venue since binary-outcome order routing is venue-specific.
func NewApp(cfg config.Config, creds Credentials, l *zap.Logger) (*App, error) {
	if l == nil {
		l = zap.NewNop()
	}

	prices, klines, err := marketData(cfg.Platform, creds)
	if err != nil {
		return nil, err
	}

	tracker, err := epoch.NewTracker(cfg.EpochDuration, prices, l)
	if err != nil {
		return nil, errors.Wrap(err, "init epoch tracker")
	}

	producers, err := producer.Build(cfg.EnabledProducers(), klines, producer.Settings{
		Interval: cfg.KlineInterval,
		Lookback: cfg.KlineLookback,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build producers")
	}

	weights := make(map[string]consensus.ProducerWeight, len(cfg.Producers))
	for name, p := range cfg.Producers {
		if !p.Enabled {
			continue
		}
		weight := p.Weight
		if weight.IsZero() {
			weight = decimal.NewFromInt(1)
		}
		weights[name] = consensus.ProducerWeight{Weight: weight, MinConfidence: p.MinConfidence}
	}

	sim, err := executor.NewSimulateExecutor(decimal.Zero, l)
	if err != nil {
		return nil, errors.Wrap(err, "init executor")
	}

	stateStore, err := state.NewStore(cfg.StatePath)
	if err != nil {
		return nil, errors.Wrap(err, "init state store")
	}

	keeper, err := account.NewKeeper(l, stateStore, cfg.StartBalance, cfg.BiasWindowSize)
	if err != nil {
		return nil, errors.Wrap(err, "init account keeper")
	}

	auditLog, err := audit.NewWALStore(cfg.AuditDir)
	if err != nil {
		return nil, errors.Wrap(err, "init audit log")
	}

	var publisher *audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = audit.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, l)
		if err != nil {
			auditLog.Close()
			return nil, errors.Wrap(err, "init kafka publisher")
		}
	}

	engine, err := NewEngine(EngineConfig{
		Instruments: cfg.Instruments,
		Tick:        cfg.TickInterval,
		MaxParallel: cfg.MaxParallel,
		Epochs:      tracker,
		Producers:   producers,
		Aggregator:  consensus.NewAggregator(weights, decimal.Zero, cfg.Quorum),
		Evaluator: consensus.NewEvaluator(cfg.MinConfidence, cfg.ConsensusThreshold,
			consensus.ConfidenceSource(cfg.ConfidenceSource)),
		Guardian: guardian.New(guardian.Config{
			MaxConcurrentPositions: cfg.MaxConcurrentPositions,
			DirectionCeiling:       cfg.DirectionCeiling,
			BiasFraction:           cfg.BiasFraction,
			ConflictTimeout:        cfg.ConflictTimeout,
		}, sim, l),
		Sizer:    sizer.New(sizingConfig(cfg.Sizing)),
		Keeper:   keeper,
		Executor: sim,
		AuditLog: auditLog,
		Publisher: publisher,
	}, l)
	if err != nil {
		auditLog.Close()
		if publisher != nil {
			publisher.Close()
		}
		return nil, errors.Wrap(err, "init engine")
	}

	return &App{
		engine:    engine,
		keeper:    keeper,
		l:         l,
		auditLog:  auditLog,
		publisher: publisher,
	}, nil
}

// Engine exposes the decision pipeline for control surfaces.
func (a *App) Engine() *Engine {
	return a.engine
}

// Run starts the keeper and the tick loop, warming up the market data
// feed first so the first tick does not race an unreachable upstream.
func (a *App) Run(ctx context.Context) error {
	if err := a.warmup(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.keeper.Run(gctx) })
	g.Go(func() error { return a.engine.Run(gctx) })
	return g.Wait()
}

// Close flushes the audit sinks.
func (a *App) Close() error {
	var firstErr error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.auditLog.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// warmup probes the price feed for every instrument with backoff.
func (a *App) warmup(ctx context.Context) error {
	r := retrier.New(
		retrier.WithInitialInterval(time.Second),
		retrier.WithMaxRetries(5),
	)

	for _, instrument := range a.engine.instruments {
		if err := r.Do(ctx, func(ctx context.Context) error {
			_, err := a.engine.epochs.Current(ctx, instrument, time.Now())
			return err
		}); err != nil {
			return errors.Wrapf(err, "market data warmup failed for %s", instrument.String())
		}
		a.l.Info("market data feed ready", zap.String("instrument", instrument.String()))
	}
	return nil
}

func marketData(platform string, creds Credentials) (epoch.PriceSource, collector.KlineProvider, error) {
	switch platform {
	case "bybit":
		client := clients.NewBybitClient(creds.APIKey, creds.APISecret)
		return pricer.NewBybitPricer(client), collector.NewBybitKlineProvider(client), nil
	case "binance", "simulate", "":
		client := clients.NewBinanceClient(creds.APIKey, creds.APISecret)
		return pricer.NewBinancePricer(client), collector.NewBinanceKlineProvider(client), nil
	default:
		return nil, nil, errors.Errorf("unsupported platform: %s", platform)
	}
}

func sizingConfig(cfg config.SizingConfig) sizer.Config {
	tiers := make([]sizer.Tier, len(cfg.Tiers))
	for i, t := range cfg.Tiers {
		tiers[i] = sizer.Tier{MinBalance: t.MinBalance, Percent: t.Percent}
	}
	return sizer.Config{
		Policy:          sizer.Policy(cfg.Policy),
		Tiers:           tiers,
		MinUSD:          cfg.MinUSD,
		MaxUSD:          cfg.MaxUSD,
		KellyMultiplier: cfg.KellyMultiplier,
		MinPercent:      cfg.MinPercent,
		MaxPercent:      cfg.MaxPercent,
	}
}
