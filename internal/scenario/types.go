// Package scenario runs one or more QubecTalk scenarios, each as a
// number of independent trials, across a bounded worker pool (§5). The
// simulation core itself (internal/engine) stays single-threaded and
// deterministic; this package is the only place concurrency appears.
package scenario

import "github.com/example/kigalisim/internal/engine"

// Scenario is one named simulation: a year range, the baseline stanza,
// and zero or more policy stanzas applied in the scenario's declared
// order (§5 "policy application order").
type Scenario struct {
	Name      string
	YearStart int
	YearEnd   int
	Baseline  []engine.Stanza
	Policies  []engine.Stanza
	// Trials is the number of independent stochastic repetitions to
	// run for this scenario. A deterministic scenario (no randomness
	// in its commands) should still set Trials to at least 1.
	Trials int
}

// Run pairs a Scenario with one trial index; it is the unit of
// parallelism the worker pool schedules (§5 "scenario = unit of
// parallelism").
type Run struct {
	Scenario Scenario
	Trial    int
}

// seedFor derives a deterministic RNG seed from the (scenario, trial)
// pair, folded with a caller-supplied base seed, so that re-running the
// same scenario/trial combination with the same base seed always
// reproduces the same draws (§5 P7, §6 CLI --seed), independent of run
// order or wall time. FNV-1a over the scenario name folded with the
// trial index and base seed.
func seedFor(name string, trial int, baseSeed int64) int64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	hash := uint64(offset64)
	for _, b := range []byte(name) {
		hash ^= uint64(b)
		hash *= prime64
	}
	hash ^= uint64(trial)
	hash *= prime64
	hash ^= uint64(baseSeed)
	hash *= prime64
	return int64(hash)
}
