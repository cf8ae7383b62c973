package engine

import "fmt"

// applyCapFloor implements §4.5 cap/floor: after sales recalc, clamp
// stream to value, optionally transferring the delta to/from a
// displaced sibling substance.
func applyCapFloor(keeper *StreamKeeper, scope Scope, year int, stream Stream, value Number, isCap bool, displacing string, conv Converter) error {
	state := keeper.StateFor(scope.UseKey(), year)
	current := state.Get(stream)

	target, err := conv.Convert(value, current.Units, ConversionContext{CurrentValue: current})
	if err != nil {
		return err
	}

	exceeds := current.Value.GreaterThan(target.Value)
	if !isCap {
		exceeds = current.Value.LessThan(target.Value)
	}
	if !exceeds {
		return nil
	}

	delta, err := current.Sub(target)
	if err != nil {
		return err
	}
	state.SetUserSpecified(stream, target)

	if displacing == "" {
		return nil
	}
	if displacing == scope.Substance {
		return fmt.Errorf("%w: cap/floor cannot displace its own substance", ErrSelfReplacement)
	}

	otherScope := scope.WithSubstance(displacing)
	otherState := keeper.StateFor(otherScope.UseKey(), year)
	if !otherState.Enabled[stream] {
		return fmt.Errorf("%w: displacement target %q has stream %s disabled", ErrNoEnabledSalesStream, displacing, stream)
	}
	otherCurrent := otherState.Get(stream)
	moved, err := otherCurrent.Add(delta)
	if err != nil {
		return err
	}
	otherState.SetUserSpecified(stream, moved)
	return nil
}

// applyReplace implements §4.5 replace: move amount from source's
// stream to the destination substance's same stream, translating
// through each side's own initial charge when the amount is given in
// equipment units.
func applyReplace(keeper *StreamKeeper, scope Scope, year int, stream Stream, amount Number, destination string, conv Converter) error {
	if destination == scope.Substance {
		return ErrSelfReplacement
	}

	source := keeper.StateFor(scope.UseKey(), year)
	destScope := scope.WithSubstance(destination)
	dest := keeper.StateFor(destScope.UseKey(), year)

	sourceCharge := representativeInitialCharge(source)
	destCharge := representativeInitialCharge(dest)

	var sourceDeltaKg, destDeltaKg Number
	if amount.Units == UnitUnit || amount.Units == UnitUnits {
		sourceDeltaKg = Number{Value: amount.Value.Mul(sourceCharge.Value), Units: UnitKg}
		destDeltaKg = Number{Value: amount.Value.Mul(destCharge.Value), Units: UnitKg}
	} else {
		kg, err := conv.Convert(amount, UnitKg, ConversionContext{AmortizedUnitVolume: &sourceCharge.Value})
		if err != nil {
			return err
		}
		sourceDeltaKg = kg
		destDeltaKg = kg
	}

	sourceCurrent := source.Get(stream)
	sourceCurrentKg, err := asKg(sourceCurrent, source, conv)
	if err != nil {
		return err
	}
	newSource, err := sourceCurrentKg.Sub(sourceDeltaKg)
	if err != nil {
		return err
	}
	newSource = newSource.ClampNonNegative()
	source.SetUserSpecified(stream, newSource)

	destCurrent := dest.Get(stream)
	destCurrentKg, err := asKg(destCurrent, dest, conv)
	if err != nil {
		return err
	}
	newDest, err := destCurrentKg.Add(destDeltaKg)
	if err != nil {
		return err
	}
	dest.SetUserSpecified(stream, newDest)

	return nil
}
