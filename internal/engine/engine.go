package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
)

// Snapshots maps each substance's (UseKey, year) pair to the bank and
// emissions figures computed when that year was finalized. Result
// aggregation (internal/results) reads these alongside the keeper's
// stream history to build one row per (application, substance, year).
type Snapshots map[UseKey]map[int]YearSnapshot

// Config configures one Engine run: one deterministic (scenario,
// trial) pair (§5).
type Config struct {
	YearStart int
	YearEnd   int

	// Baseline holds the "default" stanza's commands, grouped by
	// (application, substance); these execute before any policy stanza
	// in a given year (§5 Ordering guarantees).
	Baseline []Stanza

	// Policies holds policy stanzas in the scenario's application
	// order; within a policy, stanzas execute in definition order.
	Policies []Stanza

	// Seed derives the RNG powering any stochastic QubecTalk
	// expressions the command list encodes as pre-resolved draws.
	// Determinism (P7) requires the caller to derive this from the
	// (scenario, trial) index, not from wall-clock time.
	Seed int64

	Logger *slog.Logger

	// OnYearComplete, if set, is called after a year's commands have
	// run and its bank/emissions figures are finalized. Used by
	// internal/scenario to publish progress events; leaving it nil
	// costs nothing (§5/§6 progress reporting is opt-in).
	OnYearComplete func(year int)
}

// Engine is the single-threaded, deterministic simulation core for one
// (scenario, trial). It owns its StreamKeeper and RNG; no state is
// shared with any other Engine instance (§5 "no shared mutable state
// between workers").
type Engine struct {
	cfg    Config
	keeper *StreamKeeper
	conv   Converter
	rng    *rand.Rand
	logger *slog.Logger

	snapshots Snapshots
}

// New constructs an Engine ready to Run.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		keeper:    NewStreamKeeper(),
		conv:      NewConverter(),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		logger:    logger,
		snapshots: make(Snapshots),
	}
}

// RNG exposes the engine's deterministic random source to callers that
// need to pre-resolve a stochastic expression into a Command value
// before dispatch (the parser/AST are out of scope; this keeps the
// engine itself free of any expression-evaluation concerns).
func (e *Engine) RNG() *rand.Rand { return e.rng }

// Keeper exposes the StreamKeeper for result aggregation once Run
// completes.
func (e *Engine) Keeper() *StreamKeeper { return e.keeper }

// Snapshots exposes the per-(UseKey, year) bank/emissions figures
// computed during Run.
func (e *Engine) Snapshots() Snapshots { return e.snapshots }

// Run steps through [YearStart, YearEnd], dispatching baseline then
// policy commands for each year and finalizing bank/emissions figures
// before moving to the next year (§4.2 Year loop).
func (e *Engine) Run(ctx context.Context) error {
	priorBank := make(map[UseKey]Number)

	for year := e.cfg.YearStart; year <= e.cfg.YearEnd; year++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		e.logger.Debug("simulating year", "year", year)

		// §4.2 step 1 applies to every substance already known to the
		// keeper, not just ones a command happens to touch this year:
		// force the prior->current clone (equipment->priorEquipment,
		// per-year streams reset to zero) up front so an untouched
		// substance still advances instead of going missing for the year.
		for _, key := range e.keeper.UseKeys() {
			e.keeper.StateFor(key, year)
		}

		for _, stanza := range e.cfg.Baseline {
			if err := e.runStanza(stanza, year); err != nil {
				return err
			}
		}
		for _, stanza := range e.cfg.Policies {
			if err := e.runStanza(stanza, year); err != nil {
				return err
			}
		}

		for _, key := range e.keeper.UseKeys() {
			// StateFor rather than AtYear: a substance whose first
			// command fires in this very year was only just created
			// above, and must still get a finalized snapshot/row.
			state := e.keeper.StateFor(key, year)
			prior := priorBank[key]
			if prior.Units == "" {
				prior = Zero(UnitKg)
			}
			snapshot, err := finalizeYear(state, prior, e.conv)
			if err != nil {
				return fmt.Errorf("engine: finalize %s/%s year %d: %w", key.Application, key.Substance, year, err)
			}
			if e.snapshots[key] == nil {
				e.snapshots[key] = make(map[int]YearSnapshot)
			}
			e.snapshots[key][year] = snapshot
			priorBank[key] = state.Get(BankKg)
		}

		e.logger.Info("year complete", "year", year, "substances", len(e.keeper.UseKeys()))
		if e.cfg.OnYearComplete != nil {
			e.cfg.OnYearComplete(year)
		}
	}

	return nil
}

// runStanza executes every command in stanza whose YearMatcher matches
// year, in definition order, scoped to the stanza's (application, substance).
func (e *Engine) runStanza(stanza Stanza, year int) error {
	scope := Scope{Stanza: stanza.Name, Application: stanza.Application, Substance: stanza.Substance}
	if scope.Application == "" || scope.Substance == "" {
		return fmt.Errorf("%w: stanza %q missing application/substance", ErrScope, stanza.Name)
	}

	for _, cmd := range stanza.Commands {
		if !cmd.Years.Matches(year, e.cfg.YearStart, e.cfg.YearEnd) {
			continue // OutOfRange: silently skipped, not an error (§7)
		}
		if err := execute(e.keeper, scope, year, e.cfg.YearStart, e.cfg.YearEnd, cmd, e.conv); err != nil {
			return fmt.Errorf("engine: %s/%s year %d command %v: %w", scope.Application, scope.Substance, year, cmd.Kind, err)
		}
	}
	return nil
}
