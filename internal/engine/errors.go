package engine

import "errors"

// Sentinel error kinds. Runtime errors are wrapped over these with
// fmt.Errorf("engine: ...: %w", ...) so callers can use errors.Is
// against the kind while still getting scope/command context in the
// message.
var (
	// ErrScript is returned when the command list itself is malformed
	// (the parser is out of scope, but a hand-built command list can
	// still violate the contract, e.g. a nil Value where one is required).
	ErrScript = errors.New("engine: script error")

	// ErrScope is returned when a command is dispatched without an
	// application/substance having been selected first.
	ErrScope = errors.New("engine: scope error")

	// ErrUnitMismatch is returned when an arithmetic or assignment
	// operation crosses incompatible units.
	ErrUnitMismatch = errors.New("engine: unit mismatch")

	// ErrSelfReplacement is returned when a replace command names its
	// own substance as the destination.
	ErrSelfReplacement = errors.New("engine: self replacement")

	// ErrDuplicateSingleton is returned when a second equals, retire,
	// or non-unique initial-charge target is issued for a scope.
	ErrDuplicateSingleton = errors.New("engine: duplicate singleton command")

	// ErrMissingContext is returned when a unit conversion needs
	// context (population, amortized unit volume, GWP, energy
	// intensity) that hasn't been established for the scope.
	ErrMissingContext = errors.New("engine: missing conversion context")

	// ErrNoEnabledSalesStream is returned when sales volume must be
	// distributed across domestic/import but neither is enabled.
	ErrNoEnabledSalesStream = errors.New("engine: no enabled sales stream")

	// ErrTimeout is returned by the scenario runner when a run exceeds
	// its wall-clock deadline.
	ErrTimeout = errors.New("engine: timeout")

	// ErrCancelled is returned when a run is aborted via its
	// cancellation signal.
	ErrCancelled = errors.New("engine: cancelled")
)

// OutOfRange is not an error: a command whose YearMatcher excludes the
// current year is silently skipped by the caller.
