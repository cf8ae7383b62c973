// Package csvexport writes a batch of engine results to the pinned CSV
// boundary spec.md §6 defines: a fixed header row, one result row per
// (scenario, trial, application, substance, year), globally sorted,
// with every value formatted as "<number> <units>". Adapted from the
// teacher's internal/ingestion/parser/csv.go, mirrored for writing
// instead of reading.
package csvexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/example/kigalisim/internal/results"
)

// Header is the exact, ordered column list spec.md §6 pins. Any change
// here is a wire-format break.
var Header = []string{
	"scenario", "trial", "application", "substance", "year",
	"domestic", "import", "export", "recycle",
	"domesticConsumption", "importConsumption", "exportConsumption", "recycleConsumption",
	"population", "populationNew",
	"rechargeEmissions", "eolEmissions", "initialChargeEmissions",
	"energyConsumption",
	"importInitialChargeValue", "importInitialChargeConsumption", "importPopulation",
	"exportInitialChargeValue", "exportInitialChargeConsumption",
	"bankKg", "bankTCO2e", "bankChangeKg", "bankChangeTCO2e",
}

// Exporter writes EngineResult rows to the §6 CSV boundary.
type Exporter struct {
	logger *slog.Logger
}

// New returns an Exporter. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// Sorted returns rows ordered by (scenario, trial, application,
// substance, year), the "globally sorted" requirement in §6. The input
// slice is not mutated.
func Sorted(rows []results.EngineResult) []results.EngineResult {
	out := append([]results.EngineResult(nil), rows...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Scenario != b.Scenario {
			return a.Scenario < b.Scenario
		}
		if a.Trial != b.Trial {
			return a.Trial < b.Trial
		}
		if a.Application != b.Application {
			return a.Application < b.Application
		}
		if a.Substance != b.Substance {
			return a.Substance < b.Substance
		}
		return a.Year < b.Year
	})
	return out
}

// Write emits rows as CSV to w: a header row, then one row per result,
// pre-sorted via Sorted. encoding/csv handles RFC4180 quoting for
// fields containing commas, quotes, or newlines, satisfying §6's quoting
// rule without any hand-rolled escaping.
func (e *Exporter) Write(ctx context.Context, w io.Writer, rows []results.EngineResult) error {
	exportID := uuid.New().String()
	e.logger.Info("csv export starting", "export_id", exportID, "rows", len(rows))

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("csvexport: write header: %w", err)
	}

	for _, r := range Sorted(rows) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("csvexport: %w", err)
		}
		if err := cw.Write(rowFields(r)); err != nil {
			return fmt.Errorf("csvexport: write row %s/%s/%d: %w", r.Application, r.Substance, r.Year, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csvexport: flush: %w", err)
	}

	e.logger.Info("csv export complete", "export_id", exportID, "rows", len(rows))
	return nil
}

func rowFields(r results.EngineResult) []string {
	return []string{
		r.Scenario,
		fmt.Sprintf("%d", r.Trial),
		r.Application,
		r.Substance,
		fmt.Sprintf("%d", r.Year),

		r.Domestic.String(),
		r.Import.String(),
		r.Export.String(),
		r.Recycle.String(),

		r.DomesticConsumption.String(),
		r.ImportConsumption.String(),
		r.ExportConsumption.String(),
		r.RecycleConsumption.String(),

		r.Population.String(),
		r.PopulationNew.String(),

		r.RechargeEmissions.String(),
		r.EolEmissions.String(),
		r.InitialChargeEmissions.String(),

		r.EnergyConsumption.String(),

		r.ImportInitialChargeValue.String(),
		r.ImportInitialChargeConsumption.String(),
		r.ImportPopulation.String(),

		r.ExportInitialChargeValue.String(),
		r.ExportInitialChargeConsumption.String(),

		r.BankKg.String(),
		r.BankTCO2e.String(),
		r.BankChangeKg.String(),
		r.BankChangeTCO2e.String(),
	}
}
