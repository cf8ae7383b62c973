package results

import "fmt"

// Sum folds rows into a single EngineResult by adding every numeric
// field pairwise. Addition is commutative and associative whenever
// units match throughout (P4); a unit mismatch anywhere aborts the
// whole fold rather than silently dropping a row. Sum panics if rows is
// empty; callers should check len(rows) first.
func Sum(rows []EngineResult) (EngineResult, error) {
	acc := rows[0]
	for _, r := range rows[1:] {
		combined, err := combine(acc, r)
		if err != nil {
			return EngineResult{}, err
		}
		acc = combined
	}
	return acc, nil
}

// combine adds every Number field of b into a. Scenario/trial/
// application/substance/year are not reconciled; the caller is
// expected to only combine rows that share the grouping it cares
// about (e.g. all trials of one scenario/application/substance/year,
// for a mean or sum-across-trials view).
func combine(a, b EngineResult) (EngineResult, error) {
	var err error
	add := func(x, y Number) Number {
		if err != nil {
			return x
		}
		var out Number
		out, err = x.Add(y)
		return out
	}

	out := a
	out.Domestic = add(a.Domestic, b.Domestic)
	out.Import = add(a.Import, b.Import)
	out.Export = add(a.Export, b.Export)
	out.Recycle = add(a.Recycle, b.Recycle)
	out.DomesticConsumption = add(a.DomesticConsumption, b.DomesticConsumption)
	out.ImportConsumption = add(a.ImportConsumption, b.ImportConsumption)
	out.ExportConsumption = add(a.ExportConsumption, b.ExportConsumption)
	out.RecycleConsumption = add(a.RecycleConsumption, b.RecycleConsumption)
	out.Population = add(a.Population, b.Population)
	out.PopulationNew = add(a.PopulationNew, b.PopulationNew)
	out.RechargeEmissions = add(a.RechargeEmissions, b.RechargeEmissions)
	out.EolEmissions = add(a.EolEmissions, b.EolEmissions)
	out.InitialChargeEmissions = add(a.InitialChargeEmissions, b.InitialChargeEmissions)
	out.EnergyConsumption = add(a.EnergyConsumption, b.EnergyConsumption)
	out.ImportInitialChargeValue = add(a.ImportInitialChargeValue, b.ImportInitialChargeValue)
	out.ImportInitialChargeConsumption = add(a.ImportInitialChargeConsumption, b.ImportInitialChargeConsumption)
	out.ImportPopulation = add(a.ImportPopulation, b.ImportPopulation)
	out.ExportInitialChargeValue = add(a.ExportInitialChargeValue, b.ExportInitialChargeValue)
	out.ExportInitialChargeConsumption = add(a.ExportInitialChargeConsumption, b.ExportInitialChargeConsumption)
	out.BankKg = add(a.BankKg, b.BankKg)
	out.BankTCO2e = add(a.BankTCO2e, b.BankTCO2e)
	out.BankChangeKg = add(a.BankChangeKg, b.BankChangeKg)
	out.BankChangeTCO2e = add(a.BankChangeTCO2e, b.BankChangeTCO2e)

	if err != nil {
		return EngineResult{}, fmt.Errorf("results: aggregate %s/%s year %d: %w", a.Application, a.Substance, a.Year, err)
	}
	return out, nil
}

// AttributeToExporter re-derives r under the exporter-attributed trade
// convention (§4.6 P5): the default convention counts an imported
// unit's initial charge against the importer; this projection instead
// moves that volume and consumption onto the exporting substance's
// export figures, leaving every other field (population included)
// untouched.
// It is a pure projection over the row, not a wrapper type (§9) — the
// caller decides per-report which convention to emit.
func AttributeToExporter(r EngineResult) (EngineResult, error) {
	out := r

	imp, err := r.Import.Sub(r.ImportInitialChargeValue)
	if err != nil {
		return EngineResult{}, fmt.Errorf("results: attribute-to-exporter %s/%s year %d: %w", r.Application, r.Substance, r.Year, err)
	}
	out.Import = imp

	impConsumption, err := r.ImportConsumption.Sub(r.ImportInitialChargeConsumption)
	if err != nil {
		return EngineResult{}, fmt.Errorf("results: attribute-to-exporter %s/%s year %d: %w", r.Application, r.Substance, r.Year, err)
	}
	out.ImportConsumption = impConsumption

	exp, err := r.Export.Add(r.ExportInitialChargeValue)
	if err != nil {
		return EngineResult{}, fmt.Errorf("results: attribute-to-exporter %s/%s year %d: %w", r.Application, r.Substance, r.Year, err)
	}
	out.Export = exp

	expConsumption, err := r.ExportConsumption.Add(r.ExportInitialChargeConsumption)
	if err != nil {
		return EngineResult{}, fmt.Errorf("results: attribute-to-exporter %s/%s year %d: %w", r.Application, r.Substance, r.Year, err)
	}
	out.ExportConsumption = expConsumption

	return out, nil
}
