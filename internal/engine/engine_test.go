package engine

import (
	"context"
	"testing"
)

// baselineStanza builds a minimal "default" stanza: enable domestic,
// record the substance's GWP and initial charge, then set a fixed
// domestic sales volume every year.
func baselineStanza() Stanza {
	return Stanza{
		Name:        "default",
		Application: "refrigeration",
		Substance:   "HFC-134a",
		Commands: []Command{
			{Kind: CmdEnable, Years: AllYears(), Target: Domestic},
			{Kind: CmdEquals, Years: AllYears(), EqualsKind: EqualsGHG, Value: NewNumber(1430, UnitTCO2ePerMT)},
			{Kind: CmdInitialCharge, Years: AllYears(), Target: Domestic, Value: NewNumber(0.15, UnitKgPerUnit)},
			{Kind: CmdSet, Years: AllYears(), Target: Domestic, Value: NewNumber(1000, UnitKg)},
		},
	}
}

func TestEngineRunSingleYear(t *testing.T) {
	eng := New(Config{
		YearStart: 2025,
		YearEnd:   2025,
		Baseline:  []Stanza{baselineStanza()},
		Seed:      1,
	})

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	key := UseKey{Application: "refrigeration", Substance: "HFC-134a"}
	state := eng.Keeper().AtYear(key, 2025)
	if state == nil {
		t.Fatal("expected state for 2025")
	}
	if got := state.Get(Domestic); got.Value.String() != "1000" {
		t.Errorf("Domestic = %s, want 1000", got.Value)
	}

	snapshot, ok := eng.Snapshots()[key][2025]
	if !ok {
		t.Fatal("expected a finalized snapshot for 2025")
	}
	if snapshot.DomesticConsumption.Units != UnitTCO2e {
		t.Errorf("DomesticConsumption units = %q, want %q", snapshot.DomesticConsumption.Units, UnitTCO2e)
	}
}

func TestEngineRunMultiYearCarriesStateForward(t *testing.T) {
	eng := New(Config{
		YearStart: 2025,
		YearEnd:   2027,
		Baseline:  []Stanza{baselineStanza()},
		Seed:      1,
	})

	var completedYears []int
	eng.cfg.OnYearComplete = func(year int) { completedYears = append(completedYears, year) }

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(completedYears) != 3 {
		t.Fatalf("OnYearComplete fired %d times, want 3", len(completedYears))
	}

	key := UseKey{Application: "refrigeration", Substance: "HFC-134a"}
	for _, year := range []int{2025, 2026, 2027} {
		if eng.Keeper().AtYear(key, year) == nil {
			t.Errorf("missing state for year %d", year)
		}
	}
}

// TestEngineRunAdvancesYearsWithNoMatchingCommand is spec.md S1: every
// command, including the one `set domestic`, only ever matches year
// 2025 ("during year 1"). Years 2026 and 2027 have no command to
// execute at all, yet must still get a cloned state, a finalized
// snapshot, and priorEquipment/equipment/domestic carried forward from
// the year before - not silently dropped because nothing touched them.
func TestEngineRunAdvancesYearsWithNoMatchingCommand(t *testing.T) {
	stanza := Stanza{
		Name:        "default",
		Application: "refrigeration",
		Substance:   "HFC-134a",
		Commands: []Command{
			{Kind: CmdEnable, Years: YearRange(2025, 2025), Target: Domestic},
			{Kind: CmdEquals, Years: YearRange(2025, 2025), EqualsKind: EqualsGHG, Value: NewNumber(1, UnitTCO2ePerKg)},
			{Kind: CmdInitialCharge, Years: YearRange(2025, 2025), Target: Domestic, Value: NewNumber(1, UnitKgPerUnit)},
			{Kind: CmdSet, Years: YearRange(2025, 2025), Target: Domestic, Value: NewNumber(1000, UnitMT)},
		},
	}

	eng := New(Config{YearStart: 2025, YearEnd: 2027, Baseline: []Stanza{stanza}, Seed: 1})
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	key := UseKey{Application: "refrigeration", Substance: "HFC-134a"}
	var lastEquipment string
	for _, year := range []int{2025, 2026, 2027} {
		state := eng.Keeper().AtYear(key, year)
		if state == nil {
			t.Fatalf("missing state for year %d", year)
		}
		if got := state.Get(Domestic); got.Value.String() != "1000000" {
			t.Errorf("year %d Domestic = %s kg, want 1000000 (1000 mt carried forward)", year, got.Value)
		}
		if _, ok := eng.Snapshots()[key][year]; !ok {
			t.Errorf("missing finalized snapshot for year %d", year)
		}

		equipment := state.Get(Equipment).Value.String()
		if equipment == "0" {
			t.Errorf("year %d equipment = 0, want populationNew[2025] carried forward", year)
		}
		if year == 2025 {
			lastEquipment = equipment
			continue
		}
		// No further set/recharge/retire commands match 2026 or 2027, so
		// no new recalcSales runs for this scope - equipment must carry
		// forward unchanged rather than reset or silently disappear.
		if equipment != lastEquipment {
			t.Errorf("year %d equipment = %s, want unchanged carry-forward of %s", year, equipment, lastEquipment)
		}
		if got := state.Get(PriorEquipment).Value.String(); got != lastEquipment {
			t.Errorf("year %d priorEquipment = %s, want prior year's equipment %s", year, got, lastEquipment)
		}
		lastEquipment = equipment
	}
}

func TestEngineRunRejectsMissingScope(t *testing.T) {
	eng := New(Config{
		YearStart: 2025,
		YearEnd:   2025,
		Baseline: []Stanza{{
			Name:     "default",
			Commands: []Command{{Kind: CmdEnable, Years: AllYears(), Target: Domestic}},
		}},
		Seed: 1,
	})

	if err := eng.Run(context.Background()); err == nil {
		t.Fatal("expected scope error for a stanza missing application/substance")
	}
}

func TestEngineRunHonorsYearMatcher(t *testing.T) {
	stanza := baselineStanza()
	stanza.Commands = append(stanza.Commands, Command{
		Kind:   CmdSet,
		Years:  YearRange(2026, 2026),
		Target: Domestic,
		Value:  NewNumber(5000, UnitKg),
	})

	eng := New(Config{YearStart: 2025, YearEnd: 2027, Baseline: []Stanza{stanza}, Seed: 1})
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	key := UseKey{Application: "refrigeration", Substance: "HFC-134a"}
	if got := eng.Keeper().AtYear(key, 2025).Get(Domestic); got.Value.String() != "1000" {
		t.Errorf("2025 Domestic = %s, want 1000 (override out of range)", got.Value)
	}
	if got := eng.Keeper().AtYear(key, 2026).Get(Domestic); got.Value.String() != "5000" {
		t.Errorf("2026 Domestic = %s, want 5000", got.Value)
	}
	if got := eng.Keeper().AtYear(key, 2027).Get(Domestic); got.Value.String() != "1000" {
		t.Errorf("2027 Domestic = %s, want 1000 (override expired)", got.Value)
	}
}

func TestEngineRunRespectsCancellation(t *testing.T) {
	eng := New(Config{YearStart: 2025, YearEnd: 2030, Baseline: []Stanza{baselineStanza()}, Seed: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := eng.Run(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}
