package results

import (
	"testing"

	"github.com/example/kigalisim/internal/engine"
)

func kg(v float64) Number { return engine.NewNumber(v, engine.UnitKg) }

func baseRow() EngineResult {
	return EngineResult{
		Scenario:    "baseline",
		Application: "refrigeration",
		Substance:   "HFC-134a",
		Year:        2025,
		Domestic:    kg(100),
		Import:      kg(50),
		Export:      kg(0),
	}
}

func TestSumPanicsOnEmptyIsAvoidedByCallerCheck(t *testing.T) {
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Sum(nil) should panic")
			}
		}()
		Sum(nil)
	}()

	rows := []EngineResult{baseRow()}
	sum, err := Sum(rows)
	if err != nil {
		t.Fatalf("Sum() error = %v", err)
	}
	if sum.Domestic.Value.String() != "100" {
		t.Errorf("Domestic = %s, want 100", sum.Domestic.Value)
	}
}

func TestSumAddsAcrossRows(t *testing.T) {
	a := baseRow()
	b := baseRow()
	b.Domestic = kg(25)
	b.Import = kg(5)

	sum, err := Sum([]EngineResult{a, b})
	if err != nil {
		t.Fatalf("Sum() error = %v", err)
	}
	if got := sum.Domestic.Value.String(); got != "125" {
		t.Errorf("Domestic = %s, want 125", got)
	}
	if got := sum.Import.Value.String(); got != "55" {
		t.Errorf("Import = %s, want 55", got)
	}
}

func TestSumRejectsUnitMismatch(t *testing.T) {
	a := baseRow()
	b := baseRow()
	b.Domestic = engine.NewNumber(1, engine.UnitMT)

	if _, err := Sum([]EngineResult{a, b}); err == nil {
		t.Fatal("expected an error combining rows with mismatched units")
	}
}

func TestAttributeToExporterMovesInitialChargeVolume(t *testing.T) {
	r := baseRow()
	r.Import = kg(100)
	r.ImportInitialChargeValue = kg(20)
	r.ImportConsumption = kg(100)
	r.ImportInitialChargeConsumption = kg(20)
	r.Export = kg(10)
	r.ExportInitialChargeValue = kg(5)
	r.ExportConsumption = kg(10)
	r.ExportInitialChargeConsumption = kg(5)

	out, err := AttributeToExporter(r)
	if err != nil {
		t.Fatalf("AttributeToExporter() error = %v", err)
	}
	if got := out.Import.Value.String(); got != "80" {
		t.Errorf("Import = %s, want 80", got)
	}
	if got := out.Export.Value.String(); got != "15" {
		t.Errorf("Export = %s, want 15", got)
	}
}
