package scriptload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/kigalisim/internal/scenario"
)

const validScript = `{
  "scenarios": [
    {
      "name": "baseline",
      "yearStart": 2025,
      "yearEnd": 2026,
      "trials": 1,
      "baseline": [
        {
          "name": "default",
          "application": "refrigeration",
          "substance": "HFC-134a",
          "commands": [
            {"kind": "enable", "target": "domestic"},
            {"kind": "equals", "equalsKind": "ghg", "value": {"value": 1430, "units": "tCO2e / mt"}},
            {"kind": "initialCharge", "target": "domestic", "value": {"value": 0.15, "units": "kg / unit"}},
            {"kind": "set", "target": "domestic", "value": {"value": 1000, "units": "kg"}}
          ]
        }
      ]
    }
  ]
}`

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadParsesScenariosAndRunsToCompletion(t *testing.T) {
	path := writeScript(t, validScript)
	scenarios, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(scenarios) != 1 || scenarios[0].Name != "baseline" {
		t.Fatalf("scenarios = %+v, want one scenario named baseline", scenarios)
	}

	r := scenario.NewRunner(scenario.Config{MaxConcurrency: 1})
	rows, err := r.RunAll(context.Background(), scenarios)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (2 years * 1 trial)", len(rows))
	}
}

func TestLoadRejectsUnknownCommandKind(t *testing.T) {
	path := writeScript(t, `{"scenarios":[{"name":"x","yearStart":2025,"yearEnd":2025,"baseline":[{"name":"default","application":"a","substance":"b","commands":[{"kind":"frobnicate"}]}]}]}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown command kind")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeScript(t, `{ not json`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a decode error")
	}
	se, ok := err.(ScriptError)
	if !ok {
		t.Fatalf("error type = %T, want ScriptError", err)
	}
	if se.Line == 0 {
		t.Error("expected a non-zero source line for a syntax error")
	}
}

func TestValidateReturnsEmptyForCleanScript(t *testing.T) {
	path := writeScript(t, validScript)
	errs, err := Validate(path)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("errs = %v, want none", errs)
	}
}

func TestValidateReturnsScriptErrorsForBrokenScript(t *testing.T) {
	path := writeScript(t, `{"scenarios":[{"name":"x","baseline":[{"name":"default","application":"a","substance":"b","commands":[{"kind":"nonsense"}]}]}]}`)
	errs, err := Validate(path)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one", errs)
	}
}

func TestLoadMissingFileReturnsScriptError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if _, ok := err.(ScriptError); !ok {
		t.Fatalf("error type = %T, want ScriptError", err)
	}
}
