package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/example/kigalisim/internal/engine"
	"github.com/example/kigalisim/internal/progress"
	"github.com/example/kigalisim/internal/results"
)

// translateCtxErr maps a context error observed outside the engine (the
// worker pool's own select) onto the runner-level sentinels §7 pins:
// a scaled-deadline expiry is Timeout, any other cancellation is
// Cancelled.
func translateCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", engine.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", engine.ErrCancelled, err)
}

// Config configures a Runner: how many trial executions may run at
// once, and where engine-level logs/metrics/progress events go.
type Config struct {
	// MaxConcurrency bounds how many (scenario, trial) runs execute at
	// once. Zero selects max(2, runtime.NumCPU()-1), the teacher's
	// worker-pool default (§5).
	MaxConcurrency int
	Logger         *slog.Logger
	Metrics        *MetricsRecorder

	// Progress receives scenario/trial/year lifecycle events as the
	// worker pool runs. Defaults to a NoopBus, so a caller that never
	// subscribes pays nothing for it.
	Progress progress.Bus

	// BaseSeed folds into every (scenario, trial)'s derived RNG seed
	// (the CLI's --seed flag, or config.RunConfig.DefaultSeed). Two
	// runs with the same BaseSeed and the same scenarios reproduce
	// byte-identical output (§5 RNG determinism, P7); changing it
	// reshuffles every trial's draws without touching scenario logic.
	BaseSeed int64

	// PerScenarioTimeout, if positive, is scaled by the number of
	// scenarios RunAll receives to produce the run's wall-clock
	// deadline (§5 "per-run wall-clock deadline scaled by scenario
	// count"). Zero disables the deadline; the caller's ctx is then
	// the only cancellation source.
	PerScenarioTimeout time.Duration
}

// Runner executes a batch of scenarios, each expanded into its
// Trials independent runs, with bounded parallelism and no shared
// mutable state between runs (§5).
type Runner struct {
	cfg Config
}

// NewRunner returns a Runner configured by cfg, filling in defaults.
func NewRunner(cfg Config) *Runner {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = runtime.NumCPU() - 1
		if cfg.MaxConcurrency < 2 {
			cfg.MaxConcurrency = 2
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetricsRecorder()
	}
	if cfg.Progress == nil {
		cfg.Progress = progress.NewNoopBus()
	}
	return &Runner{cfg: cfg}
}

// trialOutcome pairs one Run with its result, so RunAll can report
// partial progress without losing which (scenario, trial) failed.
type trialOutcome struct {
	run  Run
	rows []results.EngineResult
	err  error
}

// RunAll expands every scenario into its trials and executes them with
// bounded parallelism, returning every EngineResult row across all
// scenarios and trials. A cancelled ctx aborts in-flight and pending
// trials; the rows of trials that completed are still returned
// alongside the first error in scenario/trial order (§7 "per-trial abort, other trials unaffected unless the
// run itself is cancelled").
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]results.EngineResult, error) {
	if r.cfg.PerScenarioTimeout > 0 && len(scenarios) > 0 {
		deadline := r.cfg.PerScenarioTimeout * time.Duration(len(scenarios))
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	var runs []Run
	for _, s := range scenarios {
		trials := s.Trials
		if trials <= 0 {
			trials = 1
		}
		for t := 0; t < trials; t++ {
			runs = append(runs, Run{Scenario: s, Trial: t})
		}
	}

	remaining := make(map[string]int, len(scenarios))
	for _, s := range scenarios {
		trials := s.Trials
		if trials <= 0 {
			trials = 1
		}
		remaining[s.Name] += trials
	}
	var remainingMu sync.Mutex

	outcomes := make([]trialOutcome, len(runs))
	semaphore := make(chan struct{}, r.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for i, run := range runs {
		wg.Add(1)
		go func(idx int, run Run) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				outcomes[idx] = trialOutcome{run: run, err: translateCtxErr(ctx.Err())}
				return
			}

			outcomes[idx] = r.runOne(ctx, run)

			remainingMu.Lock()
			remaining[run.Scenario.Name]--
			done := remaining[run.Scenario.Name] == 0
			remainingMu.Unlock()
			if done {
				r.cfg.Progress.Publish(ctx, progress.NewEvent(progress.EventScenarioCompleted, run.Scenario.Name, 0, nil))
			}
		}(i, run)
	}
	wg.Wait()

	var all []results.EngineResult
	var firstErr error
	for _, o := range outcomes {
		all = append(all, o.rows...)
		if o.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("scenario: %s trial %d: %w", o.run.Scenario.Name, o.run.Trial, o.err)
		}
	}
	return all, firstErr
}

// runOne executes a single (scenario, trial) to completion and builds
// its result rows.
func (r *Runner) runOne(ctx context.Context, run Run) trialOutcome {
	start := time.Now()
	r.cfg.Metrics.RecordStart(ctx, run.Scenario.Name)
	r.cfg.Progress.Publish(ctx, progress.NewEvent(progress.EventScenarioStarted, run.Scenario.Name, run.Trial, nil))

	eng := engine.New(engine.Config{
		YearStart: run.Scenario.YearStart,
		YearEnd:   run.Scenario.YearEnd,
		Baseline:  run.Scenario.Baseline,
		Policies:  run.Scenario.Policies,
		Seed:      seedFor(run.Scenario.Name, run.Trial, r.cfg.BaseSeed),
		Logger:    r.cfg.Logger.With("scenario", run.Scenario.Name, "trial", run.Trial),
		OnYearComplete: func(year int) {
			r.cfg.Progress.Publish(ctx, progress.NewEvent(progress.EventYearCompleted, run.Scenario.Name, run.Trial, year))
		},
	})

	if err := eng.Run(ctx); err != nil {
		r.cfg.Metrics.RecordFailure(ctx, run.Scenario.Name, time.Since(start))
		r.cfg.Progress.Publish(ctx, progress.NewEvent(progress.EventTrialFailed, run.Scenario.Name, run.Trial, err.Error()))
		return trialOutcome{run: run, err: err}
	}

	rows, err := results.BuildResults(eng, run.Scenario.Name, run.Trial, run.Scenario.YearStart, run.Scenario.YearEnd)
	if err != nil {
		r.cfg.Metrics.RecordFailure(ctx, run.Scenario.Name, time.Since(start))
		r.cfg.Progress.Publish(ctx, progress.NewEvent(progress.EventTrialFailed, run.Scenario.Name, run.Trial, err.Error()))
		return trialOutcome{run: run, err: err}
	}

	r.cfg.Metrics.RecordSuccess(ctx, run.Scenario.Name, time.Since(start))
	r.cfg.Progress.Publish(ctx, progress.NewEvent(progress.EventTrialSucceeded, run.Scenario.Name, run.Trial, len(rows)))
	return trialOutcome{run: run, rows: rows}
}
