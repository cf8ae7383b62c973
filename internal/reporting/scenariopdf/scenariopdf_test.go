package scenariopdf

import (
	"bytes"
	"testing"

	"github.com/example/kigalisim/internal/engine"
	"github.com/example/kigalisim/internal/results"
)

func row(scenario string, trial, year int, domestic float64) results.EngineResult {
	return results.EngineResult{
		Scenario:            scenario,
		Trial:               trial,
		Application:         "refrigeration",
		Substance:           "HFC-134a",
		Year:                year,
		Domestic:            engine.NewNumber(domestic, engine.UnitKg),
		DomesticConsumption: engine.NewNumber(domestic, engine.UnitTCO2ePerMT),
		BankTCO2e:           engine.NewNumber(domestic/10, engine.UnitTCO2ePerMT),
		BankChangeTCO2e:     engine.NewNumber(domestic/100, engine.UnitTCO2ePerMT),
	}
}

func TestSummarizePicksFinalYearAndTrialZero(t *testing.T) {
	rows := []results.EngineResult{
		row("baseline", 0, 2025, 100),
		row("baseline", 0, 2026, 200),
		row("baseline", 1, 2026, 9999), // other trial, must be ignored
		row("policy", 0, 2025, 50),
	}

	summaries, err := Summarize(rows)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}

	// Sorted by scenario name: "baseline" before "policy".
	if summaries[0].Scenario != "baseline" || summaries[0].FinalYear != 2026 {
		t.Errorf("baseline summary = %+v, want final year 2026", summaries[0])
	}
	if summaries[1].Scenario != "policy" || summaries[1].FinalYear != 2025 {
		t.Errorf("policy summary = %+v, want final year 2025", summaries[1])
	}
}

func TestRenderProducesNonEmptyPDF(t *testing.T) {
	summaries, err := Summarize([]results.EngineResult{row("baseline", 0, 2025, 100)})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Render(summaries, &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected non-empty PDF output")
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("expected output to start with a PDF header")
	}
}
