package scriptload

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/kigalisim/internal/engine"
	"github.com/example/kigalisim/internal/registry"
	"github.com/example/kigalisim/internal/scenario"
)

// ApplyRegistryDefaults fills in missing `equals` commands (GWP, energy
// intensity) for any substance whose stanzas never set them, by
// consulting reg (SPEC_FULL.md SUPPLEMENT: substance defaults
// registry). A substance that already issues its own `equals` command
// is never touched, preserving I2 ("at most one GWP/energy equals is
// active"): the injected command is only added when none exists, so it
// can never create a duplicate singleton.
//
// This is strictly opt-in: callers that don't want registry fallback
// simply don't call this function, and Load's output is unaffected.
func ApplyRegistryDefaults(ctx context.Context, scenarios []scenario.Scenario, reg registry.Registry) ([]scenario.Scenario, error) {
	out := make([]scenario.Scenario, len(scenarios))
	for i, s := range scenarios {
		baseline, err := applyDefaultsToStanzas(ctx, s.Baseline, reg)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		policies, err := applyDefaultsToStanzas(ctx, s.Policies, reg)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		s.Baseline = baseline
		s.Policies = policies
		out[i] = s
	}
	return out, nil
}

func applyDefaultsToStanzas(ctx context.Context, stanzas []engine.Stanza, reg registry.Registry) ([]engine.Stanza, error) {
	out := make([]engine.Stanza, len(stanzas))
	for i, st := range stanzas {
		hasGWP, hasEnergy := false, false
		for _, cmd := range st.Commands {
			if cmd.Kind != engine.CmdEquals {
				continue
			}
			switch cmd.EqualsKind {
			case engine.EqualsGHG:
				hasGWP = true
			case engine.EqualsEnergy:
				hasEnergy = true
			}
		}
		if hasGWP && hasEnergy {
			out[i] = st
			continue
		}

		def, err := reg.Get(ctx, st.Substance)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				out[i] = st
				continue
			}
			return nil, fmt.Errorf("stanza %q: registry lookup for %q: %w", st.Name, st.Substance, err)
		}

		commands := append([]engine.Command(nil), st.Commands...)
		if !hasGWP {
			commands = append([]engine.Command{{
				Kind:       engine.CmdEquals,
				Years:      engine.AllYears(),
				EqualsKind: engine.EqualsGHG,
				Value:      engine.NewNumber(def.GWPTCO2ePerKg, engine.UnitTCO2ePerKg),
			}}, commands...)
		}
		if !hasEnergy && def.EnergyIntensityKwhPerUnit > 0 {
			commands = append([]engine.Command{{
				Kind:       engine.CmdEquals,
				Years:      engine.AllYears(),
				EqualsKind: engine.EqualsEnergy,
				Value:      engine.NewNumber(def.EnergyIntensityKwhPerUnit, engine.UnitKwhPerUnit),
			}}, commands...)
		}

		st.Commands = commands
		out[i] = st
	}
	return out, nil
}
