package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// execute dispatches one command against the keeper at (scope, year).
// It is the engine driver's single entry point into the command
// executors; OutOfRange filtering (YearMatcher) happens in the caller
// (engine.go) so executors never see a command for a year it doesn't apply to.
func execute(keeper *StreamKeeper, scope Scope, year, sceneStart, sceneEnd int, cmd Command, conv Converter) error {
	state := keeper.StateFor(scope.UseKey(), year)

	// A singleton still holding the copy clone() carried over from the
	// previous year is re-declared, not duplicated, by this year's command.
	if prev := keeper.previous(scope.UseKey(), year); prev != nil {
		switch {
		case cmd.Kind == CmdEquals && cmd.EqualsKind == EqualsGHG && state.GWP == prev.GWP:
			state.GWP = nil
		case cmd.Kind == CmdEquals && cmd.EqualsKind == EqualsEnergy && state.EnergyIntensity == prev.EnergyIntensity:
			state.EnergyIntensity = nil
		case cmd.Kind == CmdInitialCharge && state.InitialCharge[cmd.Target] == prev.InitialCharge[cmd.Target]:
			delete(state.InitialCharge, cmd.Target)
		case cmd.Kind == CmdRetire && state.Retirement == prev.Retirement:
			state.Retirement = RetirementSpec{}
		}
	}

	switch cmd.Kind {
	case CmdEnable:
		return executeEnable(state, cmd)
	case CmdEquals:
		return executeEquals(state, cmd)
	case CmdInitialCharge:
		return executeInitialCharge(state, cmd)
	case CmdSet:
		return executeSetOrChange(state, cmd, false, conv)
	case CmdChange:
		return executeSetOrChange(state, cmd, true, conv)
	case CmdRetire:
		return executeRetire(keeper, scope, year, cmd, conv)
	case CmdRecharge:
		return executeRecharge(keeper, scope, year, cmd, conv)
	case CmdRecycle:
		return executeRecycle(keeper, scope, year, cmd, conv)
	case CmdReplace:
		return applyReplace(keeper, scope, year, cmd.Target, cmd.Value, cmd.DestinationSubstance, conv)
	case CmdCap:
		return applyCapFloor(keeper, scope, year, cmd.Target, cmd.Value, true, cmd.DestinationSubstance, conv)
	case CmdFloor:
		return applyCapFloor(keeper, scope, year, cmd.Target, cmd.Value, false, cmd.DestinationSubstance, conv)
	default:
		return fmt.Errorf("%w: unknown command kind %d", ErrScript, cmd.Kind)
	}
}

func executeEnable(state *SubstanceState, cmd Command) error {
	if !cmd.Target.IsSalesStream() {
		return fmt.Errorf("%w: enable target must be domestic, import, or export", ErrScript)
	}
	state.Enabled[cmd.Target] = true
	return nil
}

func executeEquals(state *SubstanceState, cmd Command) error {
	switch cmd.EqualsKind {
	case EqualsGHG:
		if state.GWP != nil {
			return fmt.Errorf("%w: GWP already set for this scope", ErrDuplicateSingleton)
		}
		gwp, err := normalizeGWP(cmd.Value)
		if err != nil {
			return err
		}
		state.GWP = &gwp
	case EqualsEnergy:
		if state.EnergyIntensity != nil {
			return fmt.Errorf("%w: energy intensity already set for this scope", ErrDuplicateSingleton)
		}
		v := cmd.Value
		state.EnergyIntensity = &v
	default:
		return fmt.Errorf("%w: unknown equals kind", ErrScript)
	}
	return nil
}

// normalizeGWP reduces kgCO2e/kg, tCO2e/mt, and tCO2e/kg to a single
// tCO2e-per-kg factor, the representation ConversionContext.GWP
// expects. 1 kgCO2e/kg == 1 tCO2e/mt == 0.001 tCO2e/kg (both the
// numerator and denominator of kgCO2e/kg and tCO2e/mt scale by 1000
// relative to tCO2e/kg, so both divide by 1000 alike).
func normalizeGWP(v Number) (Number, error) {
	switch v.Units {
	case UnitKgCO2ePerKg, UnitTCO2ePerMT:
		return Number{Value: v.Value.Div(decimal.NewFromInt(1000)), Units: UnitTCO2ePerKg}, nil
	case UnitTCO2ePerKg:
		return v, nil
	default:
		return Number{}, fmt.Errorf("%w: unsupported GWP units %q", ErrUnitMismatch, v.Units)
	}
}

func executeInitialCharge(state *SubstanceState, cmd Command) error {
	if !cmd.Target.IsSalesStream() {
		return fmt.Errorf("%w: initial charge target must be domestic, import, or export", ErrScript)
	}
	if _, exists := state.InitialCharge[cmd.Target]; exists {
		return fmt.Errorf("%w: initial charge already set for %s", ErrDuplicateSingleton, cmd.Target)
	}
	state.InitialCharge[cmd.Target] = cmd.Value
	return nil
}

func executeSetOrChange(state *SubstanceState, cmd Command, isChange bool, conv Converter) error {
	resolved, err := resolveAmount(state, cmd.Target, cmd.Value, conv)
	if err != nil {
		return err
	}
	if isChange {
		current := state.Get(cmd.Target)
		resolved, err = current.Add(resolved)
		if err != nil {
			return err
		}
	}

	if cmd.Target.IsSalesStream() && !state.Enabled[cmd.Target] {
		return fmt.Errorf("%w: %s is not enabled", ErrNoEnabledSalesStream, cmd.Target)
	}

	switch cmd.Target {
	case Domestic, Import, Export, Sales, Equipment:
		state.SetUserSpecified(cmd.Target, resolved)
		return recalcSales(state, salesTrigger{Stream: cmd.Target, Value: resolved, HasValue: true}, conv)
	default:
		state.SetUserSpecified(cmd.Target, resolved)
		return nil
	}
}

// resolveAmount applies §4.3.3 percentage resolution: a "%"-unit
// amount is resolved against the stream's last-specified value if
// present, else its current value (I7).
func resolveAmount(state *SubstanceState, stream Stream, value Number, conv Converter) (Number, error) {
	if value.Units != UnitPercent && value.Units != UnitPercentYr {
		return value, nil
	}
	current := state.Get(stream)
	ctx := ConversionContext{CurrentValue: current}
	if last, ok := state.LastSpecified[stream]; ok {
		ctx.LastSpecified = &last
	}
	return conv.Convert(value, current.Units, ctx)
}

func executeRetire(keeper *StreamKeeper, scope Scope, year int, cmd Command, conv Converter) error {
	state := keeper.StateFor(scope.UseKey(), year)
	if state.Retirement.Set {
		return fmt.Errorf("%w: retire already set for this scope", ErrDuplicateSingleton)
	}
	state.Retirement = RetirementSpec{Rate: cmd.Value, WithReplace: cmd.WithReplacement, Set: true}

	replacementVolume := applyRetirementReplacement(state)
	if replacementVolume.IsZero() {
		return recalcSales(state, salesTrigger{}, conv)
	}
	current := state.Get(Sales)
	bumped, err := current.Add(replacementVolume)
	if err != nil {
		return err
	}
	return recalcSales(state, salesTrigger{Stream: Sales, Value: bumped, HasValue: true}, conv)
}

func executeRecharge(keeper *StreamKeeper, scope Scope, year int, cmd Command, conv Converter) error {
	state := keeper.StateFor(scope.UseKey(), year)
	state.Recharge = RechargeSpec{Population: cmd.Value, Intensity: cmd.Intensity, Set: true}
	return recalcSales(state, salesTrigger{}, conv)
}

func executeRecycle(keeper *StreamKeeper, scope Scope, year int, cmd Command, conv Converter) error {
	state := keeper.StateFor(scope.UseKey(), year)
	state.Recycling = append(state.Recycling, RecycleProgram{
		RecoveryRate: cmd.Value,
		YieldRate:    cmd.YieldRate,
		Stage:        cmd.Stage,
		Induction:    cmd.Induction,
		InductionSet: cmd.InductionSet,
		Displacing:   cmd.Displacing,
	})
	return recalcSales(state, salesTrigger{}, conv)
}
