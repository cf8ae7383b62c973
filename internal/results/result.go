// Package results turns a finished engine.Engine's stream history and
// year snapshots into the flat per-(scenario, trial, application,
// substance, year) rows the CSV exporter and PDF report consume (§4.6,
// §6). It never mutates engine state; it only reads the keeper and
// snapshots a Run left behind.
package results

import (
	"fmt"

	"github.com/example/kigalisim/internal/engine"
)

// EngineResult is one output row: the exact field set spec.md §6's CSV
// header names, in that order, plus the scenario/trial identifiers that
// distinguish rows across a multi-trial run.
type EngineResult struct {
	Scenario    string
	Trial       int
	Application string
	Substance   string
	Year        int

	Domestic Number
	Import   Number
	Export   Number
	Recycle  Number

	DomesticConsumption Number
	ImportConsumption   Number
	ExportConsumption   Number
	RecycleConsumption  Number

	Population    Number
	PopulationNew Number

	RechargeEmissions      Number
	EolEmissions           Number
	InitialChargeEmissions Number

	EnergyConsumption Number

	ImportInitialChargeValue       Number
	ImportInitialChargeConsumption Number
	ImportPopulation                Number

	ExportInitialChargeValue       Number
	ExportInitialChargeConsumption Number

	BankKg          Number
	BankTCO2e       Number
	BankChangeKg    Number
	BankChangeTCO2e Number
}

// Number is an alias of engine.Number, so rows carry the engine's
// values unchanged and aggregate.go uses its arithmetic directly.
type Number = engine.Number

// BuildResults reads every (application, substance, year) the keeper
// knows about out of eng once eng.Run has completed, producing one
// EngineResult per row. scenario and trial are attached verbatim; they
// are the caller's concern (internal/scenario), not the engine's.
func BuildResults(eng *engine.Engine, scenario string, trial int, yearStart, yearEnd int) ([]EngineResult, error) {
	keeper := eng.Keeper()
	snapshots := eng.Snapshots()

	var rows []EngineResult
	for _, key := range keeper.UseKeys() {
		for year := yearStart; year <= yearEnd; year++ {
			state := keeper.AtYear(key, year)
			if state == nil {
				continue
			}
			snap, ok := snapshots[key][year]
			if !ok {
				return nil, fmt.Errorf("results: no snapshot for %s/%s year %d", key.Application, key.Substance, year)
			}

			rows = append(rows, EngineResult{
				Scenario:    scenario,
				Trial:       trial,
				Application: key.Application,
				Substance:   key.Substance,
				Year:        year,

				Domestic: state.Get(engine.Domestic),
				Import:   state.Get(engine.Import),
				Export:   state.Get(engine.Export),
				Recycle:  state.Get(engine.Recycle),

				DomesticConsumption: snap.DomesticConsumption,
				ImportConsumption:   snap.ImportConsumption,
				ExportConsumption:   snap.ExportConsumption,
				RecycleConsumption:  snap.RecycleConsumption,

				Population:    state.Get(engine.Equipment),
				PopulationNew: snap.PopulationNew,

				RechargeEmissions:      snap.RechargeEmissions,
				EolEmissions:           snap.EolEmissions,
				InitialChargeEmissions: snap.InitialChargeEmissions,

				EnergyConsumption: snap.EnergyConsumption,

				ImportInitialChargeValue:       snap.ImportInitialChargeValue,
				ImportInitialChargeConsumption: snap.ImportInitialChargeConsumption,
				ImportPopulation:                snap.ImportPopulation,

				ExportInitialChargeValue:       snap.ExportInitialChargeValue,
				ExportInitialChargeConsumption: snap.ExportInitialChargeConsumption,

				BankKg:          state.Get(engine.BankKg),
				BankTCO2e:       state.Get(engine.BankTCO2e),
				BankChangeKg:    state.Get(engine.BankChangeKg),
				BankChangeTCO2e: state.Get(engine.BankChangeTCO2e),
			})
		}
	}
	return rows, nil
}
