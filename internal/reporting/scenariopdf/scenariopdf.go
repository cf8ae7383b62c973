// Package scenariopdf renders a one-page PDF comparing scenarios' final-
// year emissions and bank totals, the supplemental export format
// alongside the pinned CSV boundary (spec.md §6). Adapted from the
// teacher's internal/compliance/export.go gofpdf usage.
package scenariopdf

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/example/kigalisim/internal/results"
)

// Summary is one scenario's final-year totals, summed across every
// application/substance the scenario touched, for a single
// representative trial (trial 0 — a Monte-Carlo spread belongs in the
// CSV export, not a one-page summary).
type Summary struct {
	Scenario            string
	FinalYear           int
	DomesticConsumption results.Number
	ImportConsumption   results.Number
	ExportConsumption   results.Number
	BankTCO2e           results.Number
	BankChangeTCO2e     results.Number
}

// Summarize groups rows by scenario, picks each scenario's final
// (latest) year, and sums every application/substance row at that year
// for trial 0. Rows from other trials are ignored; a multi-trial spread
// is the CSV export's concern.
func Summarize(rows []results.EngineResult) ([]Summary, error) {
	type key struct {
		scenario string
		year     int
	}
	grouped := make(map[key][]results.EngineResult)
	finalYear := make(map[string]int)

	for _, r := range rows {
		if r.Trial != 0 {
			continue
		}
		if r.Year > finalYear[r.Scenario] {
			finalYear[r.Scenario] = r.Year
		}
	}
	for _, r := range rows {
		if r.Trial != 0 {
			continue
		}
		if r.Year != finalYear[r.Scenario] {
			continue
		}
		k := key{scenario: r.Scenario, year: r.Year}
		grouped[k] = append(grouped[k], r)
	}

	var scenarios []string
	for k := range grouped {
		scenarios = append(scenarios, k.scenario)
	}
	sort.Strings(scenarios)

	out := make([]Summary, 0, len(scenarios))
	for _, name := range scenarios {
		year := finalYear[name]
		group := grouped[key{scenario: name, year: year}]
		summed, err := results.Sum(group)
		if err != nil {
			return nil, fmt.Errorf("scenariopdf: summarize %q: %w", name, err)
		}
		out = append(out, Summary{
			Scenario:            name,
			FinalYear:           year,
			DomesticConsumption: summed.DomesticConsumption,
			ImportConsumption:   summed.ImportConsumption,
			ExportConsumption:   summed.ExportConsumption,
			BankTCO2e:           summed.BankTCO2e,
			BankChangeTCO2e:     summed.BankChangeTCO2e,
		})
	}
	return out, nil
}

// Render writes a one-page PDF comparing summaries to w.
func Render(summaries []Summary, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Scenario Comparison", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "KigaliSim Scenario Comparison", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)), "", 1, "R", false, 0, "")
	pdf.Ln(5)

	for _, s := range summaries {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s (final year %d)", s.Scenario, s.FinalYear), "", 1, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Domestic consumption: %s", s.DomesticConsumption), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Import consumption: %s", s.ImportConsumption), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Export consumption: %s", s.ExportConsumption), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Bank: %s", s.BankTCO2e), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Bank change: %s", s.BankChangeTCO2e), "", 1, "", false, 0, "")
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("scenariopdf: render: %w", err)
	}
	return nil
}
