package engine

import "github.com/shopspring/decimal"

// salesTrigger describes what caused a sales recalculation: either a
// direct user write to a sales stream/equipment target, or a parameter
// change (retire/recharge/recycle) that must be re-folded into the
// existing supplied total without changing what the user asked for.
type salesTrigger struct {
	Stream Stream // Domestic, Import, Export, Sales, or Equipment
	Value  Number // resolved absolute value (percent already applied)
	// HasValue is false for parameter-only triggers (retire/recharge/
	// recycle changed, sales target unchanged).
	HasValue bool
}

var hundred = decimal.NewFromInt(100)

// recalcSales runs the §4.3 sales recalculation strategy for state,
// given the substance's current parameters and trigger. It rewrites
// Domestic/Import/Export/Sales/Equipment/Retired/RecycleEol/
// RecycleRecharge/Recycle/ImplicitRecharge; set/change commands,
// replace, cap/floor displacement and retirement replacement also
// write some of these streams directly.
func recalcSales(state *SubstanceState, trigger salesTrigger, conv Converter) error {
	priorEquipment := state.Get(PriorEquipment)

	retireRate := decimal.Zero
	if state.Retirement.Set {
		retireRate = state.Retirement.Rate.Value.Div(hundred)
	}
	retiredPop := priorEquipment.Value.Mul(retireRate)

	rechargePop := decimal.Zero
	rechargeVolume := decimal.Zero
	if state.Recharge.Set {
		pop := state.Recharge.Population
		if pop.Units == UnitPercent || pop.Units == UnitPercentYr {
			rechargePop = priorEquipment.Value.Mul(pop.Value.Div(hundred))
		} else {
			rechargePop = pop.Value
		}
		rechargeVolume = rechargePop.Mul(state.Recharge.Intensity.Value)
	}

	charge := representativeInitialCharge(state)
	eolVolume := retiredPop.Mul(charge.Value)

	recoveredEol, recycledEol, inductionEol := decimal.Zero, decimal.Zero, decimal.Zero
	recoveredRec, recycledRec, inductionRec := decimal.Zero, decimal.Zero, decimal.Zero
	for _, prog := range state.Recycling {
		var base decimal.Decimal
		if prog.Stage == StageEOL {
			base = eolVolume
		} else {
			base = rechargeVolume
		}
		recovered := base.Mul(prog.RecoveryRate.Value.Div(hundred))
		recycled := recovered.Mul(prog.YieldRate.Value.Div(hundred))

		unitBasedSpec := state.SpecKind == SpecUnitBased
		induction := resolveInduction(prog, unitBasedSpec)

		if prog.Stage == StageEOL {
			recoveredEol = recoveredEol.Add(recovered)
			recycledEol = recycledEol.Add(recycled)
			inductionEol = inductionEol.Add(recycled.Mul(induction))
		} else {
			recoveredRec = recoveredRec.Add(recovered)
			recycledRec = recycledRec.Add(recycled)
			inductionRec = inductionRec.Add(recycled.Mul(induction))
		}
	}
	recycled := recycledEol.Add(recycledRec)
	inductionSum := inductionEol.Add(inductionRec)

	implicitRecharge := state.Get(ImplicitRecharge).Value

	unitBased := trigger.HasValue && (trigger.Value.Units == UnitUnit || trigger.Value.Units == UnitUnits) && !implicitRecharge.IsZero()
	if trigger.HasValue {
		if trigger.Value.Units == UnitUnit || trigger.Value.Units == UnitUnits {
			state.SpecKind = SpecUnitBased
		} else {
			state.SpecKind = SpecVolumeBased
		}
	}
	if unitBased {
		state.SpecKind = SpecUnitBased
	}

	var newPop, requiredVolume decimal.Decimal
	switch {
	case trigger.HasValue && trigger.Stream == Equipment:
		targetEquipment, err := conv.Convert(trigger.Value, UnitUnits, ConversionContext{})
		if err != nil {
			return err
		}
		newPop = targetEquipment.Value.Sub(priorEquipment.Value).Add(retiredPop)
		volumeForNew := newPop.Mul(charge.Value)
		requiredVolume = requiredVirginVolume(state.SpecKind, rechargeVolume, volumeForNew, implicitRecharge, recycled, inductionSum)

	case trigger.HasValue && state.SpecKind == SpecUnitBased:
		suppliedUnits, err := conv.Convert(trigger.Value, UnitUnits, ConversionContext{})
		if err != nil {
			return err
		}
		newPop = suppliedUnits.Value
		volumeForNew := newPop.Mul(charge.Value)
		requiredVolume = requiredVirginVolume(state.SpecKind, rechargeVolume, volumeForNew, implicitRecharge, recycled, inductionSum)

	case trigger.HasValue:
		suppliedKg, err := conv.Convert(trigger.Value, UnitKg, ConversionContext{AmortizedUnitVolume: &charge.Value})
		if err != nil {
			return err
		}
		// Back-solve population change so that forward-computing the
		// required virgin volume reproduces exactly what the user
		// supplied (the Open Question noted in DESIGN.md: the source
		// derives population change from whichever command set the
		// sales target; here we invert the volume-based formula).
		adjusted := suppliedKg.Value.Sub(rechargeVolume).Add(implicitRecharge).Add(recycled).Sub(inductionSum)
		if !charge.Value.IsZero() {
			newPop = adjusted.Div(charge.Value)
		}
		requiredVolume = suppliedKg.Value
		if requiredVolume.IsNegative() {
			requiredVolume = decimal.Zero
		}

	default:
		// Parameter-only retrigger (retire/recharge/recycle changed):
		// keep the existing equipment trajectory and only refresh the
		// volumes that flow from the new parameters.
		newPop = state.Get(Equipment).Value.Sub(priorEquipment.Value).Add(retiredPop)
		volumeForNew := newPop.Mul(charge.Value)
		requiredVolume = requiredVirginVolume(state.SpecKind, rechargeVolume, volumeForNew, implicitRecharge, recycled, inductionSum)
	}

	if newPop.IsNegative() {
		newPop = decimal.Zero
	}

	equipment := priorEquipment.Value.Sub(retiredPop).Add(newPop)
	if equipment.IsNegative() {
		equipment = decimal.Zero
	}

	if err := distributeSales(state, requiredVolume, conv); err != nil {
		return err
	}

	state.Set(Retired, Number{Value: retiredPop, Units: UnitUnits})
	state.Set(Equipment, Number{Value: equipment, Units: UnitUnits})
	state.Set(RecycleEol, Number{Value: recycledEol, Units: UnitKg})
	state.Set(RecycleRecharge, Number{Value: recycledRec, Units: UnitKg})
	state.Set(Recycle, Number{Value: recycled, Units: UnitKg})

	if unitBased {
		state.Set(ImplicitRecharge, Number{Value: rechargeVolume, Units: UnitKg})
	} else if trigger.HasValue && state.SpecKind == SpecVolumeBased {
		state.Set(ImplicitRecharge, Zero(UnitKg))
	}

	return nil
}

// requiredVirginVolume implements §4.3 step 6.
func requiredVirginVolume(kind SpecKind, rechargeVolume, volumeForNew, implicitRecharge, recycled, inductionSum decimal.Decimal) decimal.Decimal {
	if kind == SpecUnitBased {
		return rechargeVolume.Add(volumeForNew).Sub(implicitRecharge).Add(inductionSum)
	}
	required := rechargeVolume.Add(volumeForNew).Sub(implicitRecharge).Sub(recycled).Add(inductionSum)
	if required.IsNegative() {
		return decimal.Zero
	}
	return required
}

// resolveInduction implements §4.3.1.
func resolveInduction(prog RecycleProgram, unitBasedSpec bool) decimal.Decimal {
	if prog.InductionSet {
		return prog.Induction
	}
	if unitBasedSpec {
		return decimal.Zero
	}
	return decimal.NewFromInt(1)
}

// representativeInitialCharge picks the initial charge used for
// retirement/EoL and new-equipment volume math: the enabled sales
// stream's charge, preferring domestic, falling back to the first
// enabled stream with a recorded charge.
func representativeInitialCharge(state *SubstanceState) Number {
	for _, s := range []Stream{Domestic, Import, Export} {
		if state.Enabled[s] {
			if c, ok := state.InitialCharge[s]; ok {
				return c
			}
		}
	}
	for _, s := range []Stream{Domestic, Import, Export} {
		if c, ok := state.InitialCharge[s]; ok {
			return c
		}
	}
	return Zero(UnitKgPerUnit)
}

// distributeSales splits requiredVolume (kg) across enabled
// domestic/import streams per §4.3 step 7, writing export through
// unchanged (export is strictly opt-in, §9 Open Questions).
func distributeSales(state *SubstanceState, requiredVolumeKg decimal.Decimal, conv Converter) error {
	domesticEnabled := state.Enabled[Domestic]
	importEnabled := state.Enabled[Import]

	if !domesticEnabled && !importEnabled {
		return ErrNoEnabledSalesStream
	}

	domesticPct, hasDomesticPct := state.DistributionPercent[Domestic]
	importPct, hasImportPct := state.DistributionPercent[Import]
	switch {
	case hasDomesticPct && hasImportPct:
		// use as given
	case domesticEnabled && !importEnabled:
		domesticPct, importPct = decimal.NewFromInt(100), decimal.Zero
	case importEnabled && !domesticEnabled:
		domesticPct, importPct = decimal.Zero, decimal.NewFromInt(100)
	default:
		domesticPct, importPct = decimal.NewFromInt(50), decimal.NewFromInt(50)
	}

	domesticKg := requiredVolumeKg.Mul(domesticPct).Div(hundred)
	importKg := requiredVolumeKg.Mul(importPct).Div(hundred)

	if domesticEnabled {
		state.Set(Domestic, writeBackStream(state, Domestic, domesticKg, conv))
	} else {
		state.Set(Domestic, Zero(UnitKg))
	}
	if importEnabled {
		state.Set(Import, writeBackStream(state, Import, importKg, conv))
	} else {
		state.Set(Import, Zero(UnitKg))
	}

	domesticKgEq, err := asKg(state.Get(Domestic), state, conv)
	if err != nil {
		return err
	}
	importKgEq, err := asKg(state.Get(Import), state, conv)
	if err != nil {
		return err
	}
	sales := domesticKgEq.MustAdd(importKgEq).MustAdd(state.Get(Recycle))
	state.Set(Sales, sales)
	return nil
}

// asKg returns v converted to kg using the substance's representative
// initial charge, so that streams recorded in equipment units (a
// unit-based write-back) can still be summed into a kg aggregate like
// Sales.
func asKg(v Number, state *SubstanceState, conv Converter) (Number, error) {
	if v.Units == UnitKg {
		return v, nil
	}
	charge := representativeInitialCharge(state)
	return conv.Convert(v, UnitKg, ConversionContext{AmortizedUnitVolume: &charge.Value})
}

// writeBackStream converts volumeKg back to the stream's last
// unit-based representation when the substance is currently
// unit-based (§4.3 step 8 "preserving user intent"), else leaves it in kg.
func writeBackStream(state *SubstanceState, stream Stream, volumeKg decimal.Decimal, conv Converter) Number {
	kg := Number{Value: volumeKg, Units: UnitKg}
	if state.SpecKind != SpecUnitBased {
		return kg
	}
	charge := representativeInitialCharge(state)
	if charge.Value.IsZero() {
		return kg
	}
	converted, err := conv.Convert(kg, UnitUnits, ConversionContext{AmortizedUnitVolume: &charge.Value})
	if err != nil {
		return kg
	}
	return converted
}
