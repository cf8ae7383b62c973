package csvexport

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/example/kigalisim/internal/engine"
	"github.com/example/kigalisim/internal/results"
)

func kg(v float64) engine.Number { return engine.NewNumber(v, engine.UnitKg) }

func sampleRows() []results.EngineResult {
	return []results.EngineResult{
		{Scenario: "policy", Trial: 0, Application: "refrigeration", Substance: "HFC-134a", Year: 2026, Domestic: kg(50)},
		{Scenario: "baseline", Trial: 1, Application: "refrigeration", Substance: "HFC-134a", Year: 2025, Domestic: kg(10)},
		{Scenario: "baseline", Trial: 0, Application: "refrigeration", Substance: "HFC-134a", Year: 2025, Domestic: kg(100)},
	}
}

func TestWriteHeaderMatchesPinnedColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := New(nil).Write(context.Background(), &buf, nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (header only)", len(rows))
	}
	if len(rows[0]) != len(Header) {
		t.Fatalf("header has %d columns, want %d", len(rows[0]), len(Header))
	}
	for i, col := range Header {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
}

func TestWriteSortsRowsGlobally(t *testing.T) {
	var buf bytes.Buffer
	if err := New(nil).Write(context.Background(), &buf, sampleRows()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	// header + 3 rows, ordered baseline/trial0, baseline/trial1, policy/trial0
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}
	if rows[1][0] != "baseline" || rows[1][1] != "0" {
		t.Errorf("row 1 = %v, want baseline/trial 0 first", rows[1])
	}
	if rows[2][0] != "baseline" || rows[2][1] != "1" {
		t.Errorf("row 2 = %v, want baseline/trial 1 second", rows[2])
	}
	if rows[3][0] != "policy" {
		t.Errorf("row 3 = %v, want policy last", rows[3])
	}
}

func TestWriteFormatsValueAsNumberSpaceUnits(t *testing.T) {
	var buf bytes.Buffer
	rows := []results.EngineResult{{Scenario: "s", Application: "a", Substance: "b", Year: 2025, Domestic: kg(42)}}
	if err := New(nil).Write(context.Background(), &buf, rows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got := parsed[1][5]; got != "42 kg" {
		t.Errorf("domestic field = %q, want %q", got, "42 kg")
	}
}

func TestWriteRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if err := New(nil).Write(ctx, &buf, sampleRows()); err == nil {
		t.Fatal("expected cancellation error")
	}
}
