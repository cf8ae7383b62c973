// Package registry looks up default physical properties for common
// refrigerant substances (GWP, energy intensity, typical initial
// charge), so a scenario's commands don't need to restate well-known
// constants for every substance they reference (SPEC_FULL.md
// SUPPLEMENT: substance defaults registry).
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when no default exists for a substance name.
var ErrNotFound = errors.New("registry: substance not found")

// SubstanceDefault is the set of well-known constants a validate pass
// or a scenario author can fall back to when a substance's commands
// don't set them explicitly.
type SubstanceDefault struct {
	Name string

	// GWPTCO2ePerKg is the 100-year global warming potential, already
	// in the tCO2e/kg representation internal/engine expects (I2).
	GWPTCO2ePerKg float64

	// InitialChargeKgPerUnit is a typical amortized charge for new
	// equipment using this substance, kg/unit.
	InitialChargeKgPerUnit float64

	// EnergyIntensityKwhPerUnit is a typical annual energy draw for
	// equipment charged with this substance, kwh/unit. Zero means no
	// default is published.
	EnergyIntensityKwhPerUnit float64

	Source string
}

// Registry looks up substance defaults by name. Implementations must
// be safe for concurrent use; a scenario batch may query the same
// registry from many worker-pool goroutines at once (§5).
type Registry interface {
	Get(ctx context.Context, name string) (SubstanceDefault, error)
	List(ctx context.Context) ([]SubstanceDefault, error)
}

// InMemoryRegistry is the default Registry: a read-mostly, mutex-
// guarded map seeded with common HFC and natural-refrigerant defaults.
type InMemoryRegistry struct {
	mu        sync.RWMutex
	defaults  map[string]SubstanceDefault
	logger    *slog.Logger
}

// Config configures an InMemoryRegistry.
type Config struct {
	Logger          *slog.Logger
	PreloadDefaults bool
}

// DefaultConfig returns sensible defaults: preload the common
// refrigerant table.
func DefaultConfig() Config {
	return Config{PreloadDefaults: true}
}

// NewInMemoryRegistry constructs a registry per cfg.
func NewInMemoryRegistry(cfg Config) *InMemoryRegistry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &InMemoryRegistry{
		defaults: make(map[string]SubstanceDefault),
		logger:   logger,
	}
	if cfg.PreloadDefaults {
		r.seedDefaults()
	}
	return r
}

// NewDefaultRegistry is a convenience constructor equivalent to
// NewInMemoryRegistry(DefaultConfig()).
func NewDefaultRegistry() *InMemoryRegistry {
	return NewInMemoryRegistry(DefaultConfig())
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Get returns the default for name, or ErrNotFound.
func (r *InMemoryRegistry) Get(_ context.Context, name string) (SubstanceDefault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defaults[key(name)]
	if !ok {
		return SubstanceDefault{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// List returns every registered default, sorted by name.
func (r *InMemoryRegistry) List(_ context.Context) ([]SubstanceDefault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SubstanceDefault, 0, len(r.defaults))
	for _, d := range r.defaults {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Register adds or replaces a default.
func (r *InMemoryRegistry) Register(d SubstanceDefault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[key(d.Name)] = d
	r.logger.Debug("registered substance default", "substance", d.Name, "gwp", d.GWPTCO2ePerKg)
}

// seedDefaults preloads the common refrigerants a Montreal/Kigali
// phase-down scenario is most likely to reference. GWP values are
// AR5 100-year figures (IPCC), the convention KigaliSim scripts use.
func (r *InMemoryRegistry) seedDefaults() {
	table := []SubstanceDefault{
		{Name: "HFC-134a", GWPTCO2ePerKg: 1.430, InitialChargeKgPerUnit: 0.65, EnergyIntensityKwhPerUnit: 350, Source: "IPCC AR5"},
		{Name: "HFC-404A", GWPTCO2ePerKg: 3.922, InitialChargeKgPerUnit: 1.20, EnergyIntensityKwhPerUnit: 900, Source: "IPCC AR5"},
		{Name: "HFC-410A", GWPTCO2ePerKg: 2.088, InitialChargeKgPerUnit: 2.00, EnergyIntensityKwhPerUnit: 1100, Source: "IPCC AR5"},
		{Name: "HFC-32", GWPTCO2ePerKg: 0.677, InitialChargeKgPerUnit: 0.90, EnergyIntensityKwhPerUnit: 780, Source: "IPCC AR5"},
		{Name: "R-600a", GWPTCO2ePerKg: 0.003, InitialChargeKgPerUnit: 0.035, EnergyIntensityKwhPerUnit: 250, Source: "IPCC AR5 (isobutane)"},
		{Name: "CO2", GWPTCO2ePerKg: 0.001, InitialChargeKgPerUnit: 1.50, EnergyIntensityKwhPerUnit: 1200, Source: "IPCC AR5 (R-744)"},
		{Name: "Ammonia", GWPTCO2ePerKg: 0.000, InitialChargeKgPerUnit: 3.00, EnergyIntensityKwhPerUnit: 1400, Source: "IPCC AR5 (R-717)"},
	}
	for _, d := range table {
		r.defaults[key(d.Name)] = d
	}
	r.logger.Info("seeded substance defaults registry", "count", len(table))
}
