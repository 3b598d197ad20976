// Package internal wires the decision pipeline: producers vote, consensus
// aggregates, the guardian admits, the sizer stakes, the keeper books.
package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/verdict/internal/account"
	"github.com/vadiminshakov/verdict/internal/domain"
	"github.com/vadiminshakov/verdict/internal/services/consensus"
	"github.com/vadiminshakov/verdict/internal/services/epoch"
	"github.com/vadiminshakov/verdict/internal/services/executor"
	"github.com/vadiminshakov/verdict/internal/services/guardian"
	"github.com/vadiminshakov/verdict/internal/services/producer"
	"github.com/vadiminshakov/verdict/internal/services/sizer"
	"github.com/vadiminshakov/verdict/internal/storage/audit"
)

// settler is implemented by venues that need an explicit position close
// on resolution (the simulated venue does; live venues settle themselves).
type settler interface {
	Settle(ctx context.Context, instrument domain.Instrument) error
}

// Engine drives one decision tick per interval for every configured
// instrument. A new tick supersedes the previous one: any work still in
// flight is cancelled, late trades belong to stale data.
type Engine struct {
	l           *zap.Logger
	instruments []domain.Instrument
	tick        time.Duration
	maxParallel int

	epochs     *epoch.Tracker
	producers  []producer.Producer
	aggregator *consensus.Aggregator
	evaluator  *consensus.Evaluator
	guardian   *guardian.Guardian
	sizer      *sizer.Sizer
	keeper     *account.Keeper
	executor   executor.Executor
	auditLog   *audit.WALStore
	publisher  *audit.Publisher
}

// EngineConfig collects the engine's collaborators. Publisher may be nil.
type EngineConfig struct {
	Instruments []domain.Instrument
	Tick        time.Duration
	MaxParallel int

	Epochs     *epoch.Tracker
	Producers  []producer.Producer
	Aggregator *consensus.Aggregator
	Evaluator  *consensus.Evaluator
	Guardian   *guardian.Guardian
	Sizer      *sizer.Sizer
	Keeper     *account.Keeper
	Executor   executor.Executor
	AuditLog   *audit.WALStore
	Publisher  *audit.Publisher
}

// NewEngine validates the wiring and builds an engine.
func NewEngine(cfg EngineConfig, l *zap.Logger) (*Engine, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if len(cfg.Instruments) == 0 {
		return nil, errors.New("at least one instrument is required")
	}
	if cfg.Tick <= 0 {
		return nil, errors.New("tick interval must be positive")
	}
	if len(cfg.Producers) == 0 {
		return nil, errors.New("at least one producer is required")
	}
	if cfg.Epochs == nil || cfg.Aggregator == nil || cfg.Evaluator == nil ||
		cfg.Guardian == nil || cfg.Sizer == nil || cfg.Keeper == nil ||
		cfg.Executor == nil || cfg.AuditLog == nil {
		return nil, errors.New("engine wiring is incomplete")
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = len(cfg.Instruments)
	}

	return &Engine{
		l:           l,
		instruments: cfg.Instruments,
		tick:        cfg.Tick,
		maxParallel: cfg.MaxParallel,
		epochs:      cfg.Epochs,
		producers:   cfg.Producers,
		aggregator:  cfg.Aggregator,
		evaluator:   cfg.Evaluator,
		guardian:    cfg.Guardian,
		sizer:       cfg.Sizer,
		keeper:      cfg.Keeper,
		executor:    cfg.Executor,
		auditLog:    cfg.AuditLog,
		publisher:   cfg.Publisher,
	}, nil
}

// Run ticks until the context is cancelled. Each tick cancels whatever
// the previous tick left unfinished before starting its own pass.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	var cancelPrev context.CancelFunc = func() {}

	runPass := func() {
		cancelPrev()
		tickCtx, cancel := context.WithCancel(ctx)
		cancelPrev = cancel
		go e.runTick(tickCtx)
	}

	runPass()

	for {
		select {
		case <-ctx.Done():
			cancelPrev()
			return ctx.Err()
		case <-ticker.C:
			runPass()
		}
	}
}

func (e *Engine) runTick(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for _, instrument := range e.instruments {
		g.Go(func() error {
			e.processInstrument(gctx, instrument)
			return nil
		})
	}

	_ = g.Wait()
}

// processInstrument runs one instrument through the full pipeline. Every
// outcome, trade or skip, lands in the audit log; failures degrade to
// audited skips instead of propagating.
func (e *Engine) processInstrument(ctx context.Context, instrument domain.Instrument) {
	now := time.Now()

	ep, err := e.epochs.Current(ctx, instrument, now)
	if err != nil {
		e.l.Warn("epoch unavailable, skipping tick",
			zap.String("instrument", instrument.String()),
			zap.Error(err))
		return
	}

	votes := e.collectVotes(ctx, instrument, ep)

	result := e.aggregator.Aggregate(instrument, ep.Key(), votes)

	signal, rejection := e.evaluator.Evaluate(result)
	if rejection != nil {
		e.auditSkip(result, votes, rejection)
		return
	}

	snap, err := e.keeper.Snapshot(ctx)
	if err != nil {
		e.auditSkip(result, votes, e.pipelineRejection(err, domain.RejectPersistence))
		return
	}

	admission, rejection := e.guardian.Admit(ctx, *signal, snap)
	if rejection != nil {
		e.auditSkip(result, votes, rejection)
		return
	}

	entryPrice, err := e.executor.EntryPrice(ctx, instrument, signal.Direction)
	if err != nil {
		e.auditSkip(result, votes, e.pipelineRejection(err, domain.RejectExecution))
		return
	}

	size, err := e.sizer.Size(admission.Signal, snap.Account, entryPrice, admission.SizeMultiplier)
	if err != nil {
		e.auditSkip(result, votes, domain.NewRejection(domain.StageSizing, domain.RejectNoEdge, err.Error()))
		return
	}

	// the pipeline took time; a trade on a closed epoch settles instantly
	// against a known outcome, which is not a trade at all
	if ep.Ended(time.Now()) {
		e.auditSkip(result, votes, domain.NewRejection(domain.StagePipeline, domain.RejectEpochEnded, ep.Key()))
		return
	}

	pos, err := domain.NewPosition(instrument, ep.Key(), signal.Direction, entryPrice, size, now)
	if err != nil {
		e.auditSkip(result, votes, domain.NewRejection(domain.StagePipeline, domain.RejectExecution, err.Error()))
		return
	}

	// book the stake durably before the venue sees the intent, so a crash
	// between the two leaves a refundable position, never untracked money
	if err := e.keeper.ApplyAdmit(ctx, pos); err != nil {
		e.auditSkip(result, votes, e.pipelineRejection(err, domain.RejectPersistence))
		return
	}

	intent := domain.TradeIntent{
		ID:         uuid.NewString(),
		Instrument: instrument,
		EpochKey:   ep.Key(),
		Direction:  signal.Direction,
		Size:       size,
		CreatedAt:  now,
	}

	if err := e.executor.PlaceIntent(ctx, intent); err != nil {
		e.l.Error("intent placement failed, refunding stake",
			zap.String("intent", intent.ID),
			zap.Error(err))
		if releaseErr := e.keeper.Release(context.WithoutCancel(ctx), instrument, ep.Key()); releaseErr != nil {
			e.l.Error("stake refund failed", zap.Error(releaseErr))
		}
		e.auditSkip(result, votes, e.pipelineRejection(err, domain.RejectExecution))
		return
	}

	e.audit(audit.NewAdmitRecord(result, votes, intent, admission.BiasAdvisory))

	e.l.Info("trade intent placed",
		zap.String("intent", intent.ID),
		zap.String("instrument", instrument.String()),
		zap.String("epoch", ep.Key()),
		zap.String("direction", signal.Direction.String()),
		zap.String("size", size.String()),
		zap.String("entry_price", entryPrice.String()))
}

// collectVotes queries every producer; a failing producer abstains rather
// than blocking the tick.
func (e *Engine) collectVotes(ctx context.Context, instrument domain.Instrument, ep domain.Epoch) []domain.Vote {
	ectx := producer.EpochContext{
		Instrument:   instrument,
		Epoch:        ep,
		CurrentPrice: ep.ReferencePrice,
	}

	votes := make([]domain.Vote, 0, len(e.producers))
	for _, p := range e.producers {
		vote, err := p.GetVote(ctx, ectx)
		if err != nil {
			e.l.Warn("producer failed, counting as abstention",
				zap.String("producer", p.ID()),
				zap.String("instrument", instrument.String()),
				zap.Error(err))
			vote = domain.NewSkipVote(p.ID(), "error: "+err.Error())
		}
		votes = append(votes, vote)
	}
	return votes
}

// pipelineRejection maps an infrastructure error to its audit reason,
// recognizing supersession by a newer tick.
func (e *Engine) pipelineRejection(err error, reason domain.RejectReason) *domain.Rejection {
	if errors.Is(err, context.Canceled) {
		return domain.NewRejection(domain.StagePipeline, domain.RejectSuperseded, "newer tick started")
	}
	return domain.NewRejection(domain.StagePipeline, reason, err.Error())
}

func (e *Engine) auditSkip(result domain.ConsensusResult, votes []domain.Vote, rejection *domain.Rejection) {
	e.l.Debug("tick skipped",
		zap.String("instrument", result.Instrument.String()),
		zap.String("epoch", result.EpochKey),
		zap.String("stage", string(rejection.Stage)),
		zap.String("reason", string(rejection.Reason)),
		zap.String("detail", rejection.Detail))
	e.audit(audit.NewSkipRecord(result, votes, rejection))
}

// audit appends the record durably and mirrors it to Kafka when wired.
// Audit failures are logged, never propagated: the trail observes the
// pipeline, it does not gate it.
func (e *Engine) audit(record audit.Record) {
	if err := e.auditLog.Append(record); err != nil {
		e.l.Error("audit append failed", zap.Error(err))
	}
	if e.publisher != nil {
		if err := e.publisher.Publish(record); err != nil {
			e.l.Warn("audit publish failed", zap.Error(err))
		}
	}
}

// ResolvePosition settles an epoch outcome: the keeper books the payout
// and the venue position is closed if the venue needs telling.
func (e *Engine) ResolvePosition(ctx context.Context, instrument domain.Instrument, epochKey string, won bool, payout decimal.Decimal) error {
	if err := e.keeper.Resolve(ctx, instrument, epochKey, won, payout); err != nil {
		return err
	}
	if s, ok := e.executor.(settler); ok {
		if err := s.Settle(ctx, instrument); err != nil {
			e.l.Warn("venue settle failed", zap.String("instrument", instrument.String()), zap.Error(err))
		}
	}
	return nil
}

// Resume clears an externally resolvable halt.
func (e *Engine) Resume(ctx context.Context) error {
	return e.keeper.Resume(ctx)
}

// Halt stops admissions until an explicit resume.
func (e *Engine) Halt(ctx context.Context) error {
	return e.keeper.Halt(ctx)
}
