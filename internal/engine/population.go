package engine

import "github.com/shopspring/decimal"

// YearSnapshot carries the bank/emissions figures computed once per
// (scope, year) after all commands for that year have run (§4.2 step 4,
// §4.4). These are consumed by the result aggregator (internal/results)
// rather than stored back onto SubstanceState, since they are
// informational projections rather than stream state the next year's
// clone() should carry forward untouched.
type YearSnapshot struct {
	RechargeEmissions      Number // tCO2e
	EolEmissions           Number // tCO2e
	InitialChargeEmissions Number // tCO2e, informational only (§4.4)
	EnergyConsumption      Number // kwh

	PopulationNew Number // units, new equipment added this year

	DomesticConsumption Number // tCO2e
	ImportConsumption   Number // tCO2e
	ExportConsumption   Number // tCO2e
	RecycleConsumption  Number // tCO2e

	// Import/export trade-attribution figures (§4.6, P5): the portion
	// of import/export volume attributable to new equipment's initial
	// charge, split from the total new-equipment volume by each
	// stream's share of the domestic+import total. AttributeToExporter
	// reads these back off the result row; engine never applies the
	// projection itself.
	ImportInitialChargeValue       Number // kg
	ImportInitialChargeConsumption Number // tCO2e
	ImportPopulation                Number // units
	ExportInitialChargeValue       Number // kg
	ExportInitialChargeConsumption Number // tCO2e
}

// finalizeYear computes bankKg/bankTCO2e/bankChangeKg/bankChangeTCO2e
// and the emissions figures for state, given the prior year's bank and
// the substance's GWP. This is the bank formula flagged in §9 as an
// Open Question; the relationships below are the ones derived from the
// component descriptions in §4.4 and are recorded as the resolution in
// DESIGN.md.
func finalizeYear(state *SubstanceState, priorBankKg Number, conv Converter) (YearSnapshot, error) {
	gwp := decimal.Zero
	if state.GWP != nil {
		gwp = state.GWP.Value
	}

	priorEquipment := state.Get(PriorEquipment).Value
	retiredPop := state.Get(Retired).Value

	charge := representativeInitialCharge(state)
	retiredVolume := retiredPop.Mul(charge.Value).Sub(state.Get(RecycleEol).Value)

	rechargePop := decimal.Zero
	if state.Recharge.Set {
		pop := state.Recharge.Population
		if pop.Units == UnitPercent || pop.Units == UnitPercentYr {
			rechargePop = priorEquipment.Mul(pop.Value.Div(hundred))
		} else {
			rechargePop = pop.Value
		}
	}
	rechargeVolume := decimal.Zero
	if state.Recharge.Set {
		rechargeVolume = rechargePop.Mul(state.Recharge.Intensity.Value)
	}
	leakage := rechargeVolume.Sub(state.Get(RecycleRecharge).Value)

	salesKg, err := asKg(state.Get(Sales), state, conv)
	if err != nil {
		return YearSnapshot{}, err
	}

	bankKg := priorBankKg.Value.Add(salesKg.Value).Sub(retiredVolume).Sub(leakage)
	if bankKg.IsNegative() {
		bankKg = decimal.Zero
	}
	bankTCO2e := bankKg.Mul(gwp)
	bankChangeKg := bankKg.Sub(priorBankKg.Value)
	bankChangeTCO2e := bankChangeKg.Mul(gwp)

	state.Set(BankKg, Number{Value: bankKg, Units: UnitKg})
	state.Set(BankTCO2e, Number{Value: bankTCO2e, Units: UnitTCO2e})
	state.Set(BankChangeKg, Number{Value: bankChangeKg, Units: UnitKg})
	state.Set(BankChangeTCO2e, Number{Value: bankChangeTCO2e, Units: UnitTCO2e})

	newPop := state.Get(Equipment).Value.Sub(priorEquipment).Add(retiredPop)
	if newPop.IsNegative() {
		newPop = decimal.Zero
	}
	initialChargeEmissions := newPop.Mul(charge.Value).Mul(gwp)

	domesticKg, err := asKg(state.Get(Domestic), state, conv)
	if err != nil {
		return YearSnapshot{}, err
	}
	importKg, err := asKg(state.Get(Import), state, conv)
	if err != nil {
		return YearSnapshot{}, err
	}
	exportKg, err := asKg(state.Get(Export), state, conv)
	if err != nil {
		return YearSnapshot{}, err
	}
	recycleKg := state.Get(Recycle)

	// Import's share of the domestic+import total governs how much of
	// the new-equipment volume (and population) is attributed to
	// imported, as opposed to domestically manufactured, equipment
	// (§4.6 trade attribution). Export sits outside the domestic/import
	// split (§9: export is strictly opt-in), so its initial-charge
	// attribution mirrors its own share of domestic+import+export.
	newVolume := newPop.Mul(charge.Value)
	diTotal := domesticKg.Value.Add(importKg.Value)
	importShare := decimal.Zero
	if !diTotal.IsZero() {
		importShare = importKg.Value.Div(diTotal)
	}
	importPop := newPop.Mul(importShare)
	importInitialChargeValue := newVolume.Mul(importShare)

	dieTotal := diTotal.Add(exportKg.Value)
	exportShare := decimal.Zero
	if !dieTotal.IsZero() {
		exportShare = exportKg.Value.Div(dieTotal)
	}
	exportInitialChargeValue := newVolume.Mul(exportShare)

	return YearSnapshot{
		RechargeEmissions:      Number{Value: rechargeVolume.Sub(state.Get(RecycleRecharge).Value).Mul(gwp), Units: UnitTCO2e},
		EolEmissions:           Number{Value: retiredVolume.Mul(gwp), Units: UnitTCO2e},
		InitialChargeEmissions: Number{Value: initialChargeEmissions, Units: UnitTCO2e},
		EnergyConsumption:      computeEnergyConsumption(state, newPop),

		PopulationNew: Number{Value: newPop, Units: UnitUnits},

		DomesticConsumption: Number{Value: domesticKg.Value.Mul(gwp), Units: UnitTCO2e},
		ImportConsumption:   Number{Value: importKg.Value.Mul(gwp), Units: UnitTCO2e},
		ExportConsumption:   Number{Value: exportKg.Value.Mul(gwp), Units: UnitTCO2e},
		RecycleConsumption:  Number{Value: recycleKg.Value.Mul(gwp), Units: UnitTCO2e},

		ImportInitialChargeValue:       Number{Value: importInitialChargeValue, Units: UnitKg},
		ImportInitialChargeConsumption: Number{Value: importInitialChargeValue.Mul(gwp), Units: UnitTCO2e},
		ImportPopulation:               Number{Value: importPop, Units: UnitUnits},
		ExportInitialChargeValue:       Number{Value: exportInitialChargeValue, Units: UnitKg},
		ExportInitialChargeConsumption: Number{Value: exportInitialChargeValue.Mul(gwp), Units: UnitTCO2e},
	}, nil
}

// computeEnergyConsumption converts the equipment population's energy
// intensity into total kwh consumed this year, when an `equals ... kwh
// / unit` command established one (I2).
func computeEnergyConsumption(state *SubstanceState, newPop decimal.Decimal) Number {
	if state.EnergyIntensity == nil {
		return Zero(UnitKwh)
	}
	equipment := state.Get(Equipment).Value
	return Number{Value: equipment.Mul(state.EnergyIntensity.Value), Units: UnitKwh}
}

// applyRetirementReplacement adds replacement units back to Equipment
// when a retire command carries `with replacement` (§4.4), and returns
// the replacement volume that must flow through sales recalc as
// additional demand.
func applyRetirementReplacement(state *SubstanceState) Number {
	if !state.Retirement.WithReplace {
		return Zero(UnitUnits)
	}
	retired := state.Get(Retired)
	equipment := state.Get(Equipment).MustAdd(retired)
	state.Set(Equipment, equipment)
	charge := representativeInitialCharge(state)
	return Number{Value: retired.Value.Mul(charge.Value), Units: UnitKg}
}
