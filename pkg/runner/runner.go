// Package runner wires the core trio (AMM engine, strategy contract,
// sandbox/validator/compiler) together with the market-flow generator and
// persistent storage to drive one full tournament. It is orchestration,
// not scored core logic.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ammarena/strategyarena/pkg/adapter"
	"github.com/ammarena/strategyarena/pkg/amm"
	"github.com/ammarena/strategyarena/pkg/backtest"
	"github.com/ammarena/strategyarena/pkg/compiler"
	"github.com/ammarena/strategyarena/pkg/marketflow"
	"github.com/ammarena/strategyarena/pkg/metrics"
	"github.com/ammarena/strategyarena/pkg/primitives"
	"github.com/ammarena/strategyarena/pkg/sandbox"
	"github.com/ammarena/strategyarena/pkg/scoring"
	"github.com/ammarena/strategyarena/pkg/storage"
	"github.com/ammarena/strategyarena/pkg/strategy"
	"github.com/ammarena/strategyarena/pkg/submission"
	"github.com/ammarena/strategyarena/pkg/validator"
)

// Config bundles the collaborators a Runner needs: where compiled
// artifacts are built, where results persist, and how progress is logged.
type Config struct {
	Compiler *compiler.Compiler
	Store    *storage.Store
	Logger   *zap.Logger
}

// Runner drives one tournament: validate/compile/deploy every submission,
// then run each one through an independent pool against its own
// market-flow sequence.
type Runner struct {
	cfg Config
}

// New returns a Runner built from cfg.
func New(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Result is one submission's outcome for a run: either scored, with its
// fee totals, score, and performance statistics, or rejected with Err set.
type Result struct {
	Submission  *submission.Submission
	RealizedX   primitives.Decimal
	RealizedY   primitives.Decimal
	Score       primitives.Decimal
	Sharpe      primitives.Decimal
	MaxDrawdown primitives.Decimal
	Err         error
}

// RunOne validates, compiles, deploys, and scores a single submission
// against the market flow described by flowCfg. Any rejection at
// validation, compilation, or deployment short-circuits with a
// rejected Result rather than propagating a Go error, so a tournament
// run never aborts because one submission is broken.
func (r *Runner) RunOne(ctx context.Context, sub *submission.Submission, flowCfg marketflow.Config) Result {
	log := r.cfg.Logger.With(zap.String("submission", sub.ID.String()))

	validation := validator.New().Validate(sub.Source)
	if !validation.Valid {
		sub.Reject(validation.Errors)
		metrics.StrategyRejections.WithLabelValues("validate").Inc()
		log.Info("submission rejected at validation", zap.Strings("errors", validation.Errors))
		return Result{Submission: sub, Err: fmt.Errorf("validation failed: %v", validation.Errors)}
	}
	sub.Advance(submission.StatusValidated)

	artifact, err := r.cfg.Compiler.Compile(ctx, sub.Source, "Strategy")
	if err != nil {
		metrics.StrategyRejections.WithLabelValues("compile").Inc()
		return Result{Submission: sub, Err: fmt.Errorf("compiler invocation failed: %w", err)}
	}
	if !artifact.Success {
		sub.Reject(artifact.Errors)
		metrics.StrategyRejections.WithLabelValues("compile").Inc()
		log.Info("submission rejected at compilation", zap.Strings("errors", artifact.Errors))
		return Result{Submission: sub, Err: fmt.Errorf("compilation failed: %v", artifact.Errors)}
	}
	sub.Advance(submission.StatusCompiled)

	contractABI, err := sandbox.LoadABI(string(artifact.ABI))
	if err != nil {
		metrics.StrategyRejections.WithLabelValues("deploy").Inc()
		return Result{Submission: sub, Err: fmt.Errorf("parse abi: %w", err)}
	}

	box, err := sandbox.New(ctx, artifact.Bytecode, contractABI)
	if err != nil {
		sub.Reject([]string{err.Error()})
		metrics.StrategyRejections.WithLabelValues("deploy").Inc()
		log.Info("submission rejected at deployment", zap.Error(err))
		return Result{Submission: sub, Err: fmt.Errorf("deployment failed: %w", err)}
	}
	sub.Advance(submission.StatusDeployed)

	strat := adapter.New(sub.Manifest.StrategyName, box)
	sub.Manifest.StrategyName = strat.GetName()

	result := r.score(strat, flowCfg, log)
	result.Submission = sub
	if result.Err == nil {
		sub.Advance(submission.StatusScored)
	}
	return result
}

// score constructs a fresh pool for strat, drives it with a deterministic
// market-flow sequence, and tallies realized fee income.
func (r *Runner) score(strat strategy.Strategy, flowCfg marketflow.Config, log *zap.Logger) Result {
	pool := amm.NewPool(
		strat,
		primitives.MustAmount(primitives.NewDecimalFromFloat(flowCfg.InitialX)),
		primitives.MustAmount(primitives.NewDecimalFromFloat(flowCfg.InitialY)),
	)
	if err := pool.Initialize(); err != nil {
		return Result{Err: fmt.Errorf("pool initialize: %w", err)}
	}

	ledger := scoring.NewPortfolio(primitives.ZeroAmount())
	gen := marketflow.New(flowCfg)
	history := []backtest.ValuePoint{{Tick: 0, Value: primitives.Zero()}}

	for tick := int64(0); tick < int64(flowCfg.NSteps); tick++ {
		order, ok := gen.Next(tick)
		if !ok {
			continue
		}

		var trade *strategy.TradeInfo
		var err error
		switch order.Side {
		case strategy.SideBuy:
			trade, err = pool.ExecuteBuyX(order.SizeX, tick)
		case strategy.SideSell:
			trade, err = pool.ExecuteSellX(order.SizeX, tick)
		}
		if err != nil {
			return Result{Err: fmt.Errorf("trade at tick %d: %w", tick, err)}
		}
		if trade == nil {
			continue // trade would exceed available reserves, treated as a no-op
		}
		metrics.TradesProcessed.WithLabelValues(strat.GetName()).Inc()

		spot, err := pool.SpotPrice()
		if err != nil {
			return Result{Err: fmt.Errorf("spot price at tick %d: %w", tick, err)}
		}
		cumulative := pool.AccumulatedFeesY().Add(pool.AccumulatedFeesX().Mul(spot))
		history = append(history, backtest.ValuePoint{Tick: tick, Value: cumulative})
	}

	feesY := pool.AccumulatedFeesY()
	feesX := pool.AccumulatedFeesX()
	spot, err := pool.SpotPrice()
	if err != nil {
		return Result{Err: fmt.Errorf("final spot price: %w", err)}
	}
	// Score fee income in a single unit (Y) so submissions with different
	// reserve compositions are comparable.
	score := feesY.Add(feesX.Mul(spot))
	if err := ledger.AdjustCash(score); err != nil {
		return Result{Err: fmt.Errorf("ledger: %w", err)}
	}

	perf, err := backtest.Compute(history)
	if err != nil {
		return Result{Err: fmt.Errorf("performance stats: %w", err)}
	}

	log.Info("submission scored",
		zap.String("fees_x", feesX.String()),
		zap.String("fees_y", feesY.String()),
		zap.String("score", score.String()),
		zap.String("sharpe", perf.Sharpe.String()),
		zap.String("max_drawdown", perf.MaxDrawdown.String()),
	)

	return Result{RealizedX: feesX, RealizedY: feesY, Score: score, Sharpe: perf.Sharpe, MaxDrawdown: perf.MaxDrawdown}
}

// Tournament drives RunOne over every submission and persists a ranked
// leaderboard.
func (r *Runner) Tournament(ctx context.Context, subs []*submission.Submission, flowCfg marketflow.Config) ([]Result, error) {
	start := time.Now()
	runID := uuid.New().String()

	if err := r.cfg.Store.CreateRun(storage.Run{
		ID: runID, StartedAt: start, Seed: flowCfg.Seed, NSteps: flowCfg.NSteps,
	}); err != nil {
		return nil, fmt.Errorf("runner: create run: %w", err)
	}

	results := make([]Result, 0, len(subs))
	for _, sub := range subs {
		result := r.RunOne(ctx, sub, flowCfg)
		results = append(results, result)

		status := string(sub.Status)
		errsJoined := ""
		if len(sub.Errors) > 0 {
			errsJoined = fmt.Sprintf("%v", sub.Errors)
		}
		if err := r.cfg.Store.SaveSubmission(storage.SubmissionRecord{
			ID: sub.ID.String(), RunID: runID, Author: sub.Manifest.Author,
			StrategyName: sub.Manifest.StrategyName, Status: status, Errors: errsJoined,
		}); err != nil {
			return nil, fmt.Errorf("runner: save submission: %w", err)
		}
	}

	entries := rankResults(runID, results)
	if err := r.cfg.Store.SaveLeaderboard(runID, entries); err != nil {
		return nil, fmt.Errorf("runner: save leaderboard: %w", err)
	}
	if err := r.cfg.Store.FinishRun(runID, time.Now()); err != nil {
		return nil, fmt.Errorf("runner: finish run: %w", err)
	}
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	return results, nil
}

func rankResults(runID string, results []Result) []storage.LeaderboardEntry {
	type scored struct {
		result Result
	}
	var scoredResults []scored
	for _, res := range results {
		if res.Err == nil {
			scoredResults = append(scoredResults, scored{res})
		}
	}
	for i := 1; i < len(scoredResults); i++ {
		for j := i; j > 0 && scoredResults[j].result.Score.GreaterThan(scoredResults[j-1].result.Score); j-- {
			scoredResults[j], scoredResults[j-1] = scoredResults[j-1], scoredResults[j]
		}
	}

	entries := make([]storage.LeaderboardEntry, 0, len(scoredResults))
	for i, s := range scoredResults {
		entries = append(entries, storage.LeaderboardEntry{
			SubmissionID:     s.result.Submission.ID.String(),
			RunID:            runID,
			RealizedPnL:      s.result.Score.String(),
			AccumulatedFeesX: s.result.RealizedX.String(),
			AccumulatedFeesY: s.result.RealizedY.String(),
			Sharpe:           s.result.Sharpe.String(),
			MaxDrawdown:      s.result.MaxDrawdown.String(),
			Rank:             i + 1,
		})
	}
	return entries
}
