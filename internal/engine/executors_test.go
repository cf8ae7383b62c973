package engine

import "testing"

func testScope() Scope {
	return Scope{Stanza: "default", Application: "refrigeration", Substance: "HFC-134a"}
}

func TestExecuteEnableRejectsNonSalesStream(t *testing.T) {
	state := newSubstanceState(2025)
	err := executeEnable(state, Command{Target: Equipment})
	if err == nil {
		t.Fatal("expected error enabling a non-sales-stream target")
	}
}

func TestExecuteEnableMarksStreamEnabled(t *testing.T) {
	state := newSubstanceState(2025)
	if err := executeEnable(state, Command{Target: Domestic}); err != nil {
		t.Fatalf("executeEnable() error = %v", err)
	}
	if !state.Enabled[Domestic] {
		t.Error("expected Domestic to be enabled")
	}
}

func TestExecuteEqualsRejectsDuplicateGWP(t *testing.T) {
	state := newSubstanceState(2025)
	cmd := Command{EqualsKind: EqualsGHG, Value: NewNumber(1430, UnitTCO2ePerMT)}
	if err := executeEquals(state, cmd); err != nil {
		t.Fatalf("first executeEquals() error = %v", err)
	}
	if err := executeEquals(state, cmd); err == nil {
		t.Fatal("expected duplicate-singleton error on second GWP set")
	}
}

func TestExecuteEqualsNormalizesKgCO2ePerKg(t *testing.T) {
	state := newSubstanceState(2025)
	cmd := Command{EqualsKind: EqualsGHG, Value: NewNumber(1430, UnitKgCO2ePerKg)}
	if err := executeEquals(state, cmd); err != nil {
		t.Fatalf("executeEquals() error = %v", err)
	}
	if state.GWP == nil {
		t.Fatal("expected GWP to be set")
	}
	if got := state.GWP.Value.String(); got != "1.43" {
		t.Errorf("normalized GWP = %s, want 1.43", got)
	}
}

func TestExecuteEqualsNormalizesTCO2ePerMT(t *testing.T) {
	state := newSubstanceState(2025)
	cmd := Command{EqualsKind: EqualsGHG, Value: NewNumber(1430, UnitTCO2ePerMT)}
	if err := executeEquals(state, cmd); err != nil {
		t.Fatalf("executeEquals() error = %v", err)
	}
	if got := state.GWP.Value.String(); got != "1.43" {
		t.Errorf("normalized GWP = %s, want 1.43 (1430 tCO2e/mt == 1430 kgCO2e/kg)", got)
	}
}

func TestExecuteEqualsAcceptsTCO2ePerKgIdentity(t *testing.T) {
	state := newSubstanceState(2025)
	cmd := Command{EqualsKind: EqualsGHG, Value: NewNumber(1, UnitTCO2ePerKg)}
	if err := executeEquals(state, cmd); err != nil {
		t.Fatalf("executeEquals() error = %v", err)
	}
	if got := state.GWP.Value.String(); got != "1" {
		t.Errorf("normalized GWP = %s, want 1 (tCO2e/kg is already the internal unit)", got)
	}
}

func TestExecuteInitialChargeRejectsDuplicate(t *testing.T) {
	state := newSubstanceState(2025)
	cmd := Command{Target: Domestic, Value: NewNumber(0.15, UnitKgPerUnit)}
	if err := executeInitialCharge(state, cmd); err != nil {
		t.Fatalf("first executeInitialCharge() error = %v", err)
	}
	if err := executeInitialCharge(state, cmd); err == nil {
		t.Fatal("expected duplicate-singleton error on second initial charge set")
	}
}

func TestExecuteSetOrChangeRejectsDisabledStream(t *testing.T) {
	keeper := NewStreamKeeper()
	state := keeper.StateFor(testScope().UseKey(), 2025)
	cmd := Command{Target: Domestic, Value: NewNumber(100, UnitKg)}
	if err := executeSetOrChange(state, cmd, false, NewConverter()); err == nil {
		t.Fatal("expected error setting a stream that was never enabled")
	}
}

func TestExecuteSetOrChangeResolvesPercentAgainstLastSpecified(t *testing.T) {
	state := newSubstanceState(2025)
	state.Enabled[Domestic] = true
	state.InitialCharge[Domestic] = NewNumber(1, UnitKgPerUnit)
	state.SetUserSpecified(Domestic, NewNumber(200, UnitKg))
	state.Set(Domestic, NewNumber(100, UnitKg))

	cmd := Command{Target: Domestic, Value: NewNumber(10, UnitPercent)}
	if err := executeSetOrChange(state, cmd, false, NewConverter()); err != nil {
		t.Fatalf("executeSetOrChange() error = %v", err)
	}
	// 10% of the last-specified 200kg = 20kg, not 10% of the running value.
	if got := state.Get(Domestic); got.Value.String() != "20" {
		t.Errorf("Domestic = %s, want 20", got.Value)
	}
}

func TestExecuteSetOrChangeIsChangeAddsToCurrent(t *testing.T) {
	state := newSubstanceState(2025)
	state.Enabled[Domestic] = true
	state.InitialCharge[Domestic] = NewNumber(1, UnitKgPerUnit)
	state.SetUserSpecified(Domestic, NewNumber(100, UnitKg))

	cmd := Command{Target: Domestic, Value: NewNumber(50, UnitKg)}
	if err := executeSetOrChange(state, cmd, true, NewConverter()); err != nil {
		t.Fatalf("executeSetOrChange() error = %v", err)
	}
	if got := state.Get(Domestic); got.Value.String() != "150" {
		t.Errorf("Domestic = %s, want 150", got.Value)
	}
}

func TestExecuteRetireWithReplacementBumpsSales(t *testing.T) {
	keeper := NewStreamKeeper()
	scope := testScope()
	state := keeper.StateFor(scope.UseKey(), 2025)
	state.Enabled[Domestic] = true
	state.InitialCharge[Domestic] = NewNumber(1, UnitKgPerUnit)
	state.Set(Equipment, NewNumber(1000, UnitUnits))
	state.Set(Retired, NewNumber(100, UnitUnits))

	cmd := Command{Value: NewNumber(10, UnitPercent), WithReplacement: true}
	if err := executeRetire(keeper, scope, 2025, cmd, NewConverter()); err != nil {
		t.Fatalf("executeRetire() error = %v", err)
	}
	if !state.Retirement.Set || !state.Retirement.WithReplace {
		t.Error("expected Retirement to be recorded with WithReplace")
	}
	// 100 retired units * 1 kg/unit of replacement volume added to 0 kg sales.
	if got := state.Get(Sales); got.Value.String() != "100" {
		t.Errorf("Sales = %s, want 100", got.Value)
	}
}

func TestExecuteRechargeRecordsSpec(t *testing.T) {
	keeper := NewStreamKeeper()
	scope := testScope()
	state := keeper.StateFor(scope.UseKey(), 2025)
	state.Enabled[Domestic] = true
	state.InitialCharge[Domestic] = NewNumber(1, UnitKgPerUnit)

	cmd := Command{Value: NewNumber(10, UnitPercent), Intensity: NewNumber(0.5, UnitKgPerUnit)}
	if err := executeRecharge(keeper, scope, 2025, cmd, NewConverter()); err != nil {
		t.Fatalf("executeRecharge() error = %v", err)
	}
	if !state.Recharge.Set {
		t.Error("expected Recharge to be recorded")
	}
}

func TestExecuteRecycleAppendsProgram(t *testing.T) {
	keeper := NewStreamKeeper()
	scope := testScope()
	state := keeper.StateFor(scope.UseKey(), 2025)
	state.Enabled[Domestic] = true
	state.InitialCharge[Domestic] = NewNumber(1, UnitKgPerUnit)

	cmd := Command{Value: NewNumber(50, UnitPercent), YieldRate: NewNumber(90, UnitPercent), Stage: StageEOL}
	if err := executeRecycle(keeper, scope, 2025, cmd, NewConverter()); err != nil {
		t.Fatalf("executeRecycle() error = %v", err)
	}
	if len(state.Recycling) != 1 {
		t.Fatalf("len(Recycling) = %d, want 1", len(state.Recycling))
	}
	if state.Recycling[0].Stage != StageEOL {
		t.Errorf("Recycling[0].Stage = %v, want StageEOL", state.Recycling[0].Stage)
	}
}
