package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertSameUnitsIsNoop(t *testing.T) {
	conv := NewConverter()
	n := NewNumber(5, UnitKg)
	out, err := conv.Convert(n, UnitKg, ConversionContext{})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !out.Value.Equal(n.Value) {
		t.Errorf("Convert() = %s, want %s", out.Value, n.Value)
	}
}

func TestConvertKgToMT(t *testing.T) {
	conv := NewConverter()
	out, err := conv.Convert(NewNumber(2000, UnitKg), UnitMT, ConversionContext{})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !out.Value.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Convert() = %s, want 2", out.Value)
	}
	if out.Units != UnitMT {
		t.Errorf("Units = %q, want %q", out.Units, UnitMT)
	}
}

func TestConvertKgToUnitsRequiresAmortizedVolume(t *testing.T) {
	conv := NewConverter()
	if _, err := conv.Convert(NewNumber(10, UnitKg), UnitUnits, ConversionContext{}); err == nil {
		t.Fatal("expected missing-context error without AmortizedUnitVolume")
	}
}

func TestConvertKgToUnits(t *testing.T) {
	conv := NewConverter()
	volume := decimal.NewFromFloat(2.5)
	out, err := conv.Convert(NewNumber(10, UnitKg), UnitUnits, ConversionContext{AmortizedUnitVolume: &volume})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !out.Value.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Convert() = %s, want 4", out.Value)
	}
}

func TestConvertKgToTCO2eRequiresGWP(t *testing.T) {
	conv := NewConverter()
	if _, err := conv.Convert(NewNumber(10, UnitKg), UnitTCO2e, ConversionContext{}); err == nil {
		t.Fatal("expected missing-context error without GWP")
	}
}

func TestConvertKgToTCO2e(t *testing.T) {
	conv := NewConverter()
	gwp := decimal.NewFromInt(1430)
	out, err := conv.Convert(NewNumber(1, UnitKg), UnitTCO2e, ConversionContext{GWP: &gwp})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !out.Value.Equal(decimal.NewFromInt(1430)) {
		t.Errorf("Convert() = %s, want 1430", out.Value)
	}
}

func TestConvertPercentUsesLastSpecified(t *testing.T) {
	conv := NewConverter()
	lastSpecified := NewNumber(200, UnitKg)
	ctx := ConversionContext{
		CurrentValue:  NewNumber(100, UnitKg),
		LastSpecified: &lastSpecified,
	}
	out, err := conv.Convert(NewNumber(10, UnitPercent), UnitKg, ctx)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	// 10% of the last-specified 200kg, not the current 100kg.
	if !out.Value.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Convert() = %s, want 20", out.Value)
	}
}

func TestConvertPercentFallsBackToCurrentValue(t *testing.T) {
	conv := NewConverter()
	ctx := ConversionContext{CurrentValue: NewNumber(50, UnitKg)}
	out, err := conv.Convert(NewNumber(10, UnitPercent), UnitKg, ctx)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !out.Value.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Convert() = %s, want 5", out.Value)
	}
}

func TestConvertNoPathReturnsError(t *testing.T) {
	conv := NewConverter()
	if _, err := conv.Convert(NewNumber(1, UnitKwh), UnitTCO2e, ConversionContext{}); err == nil {
		t.Fatal("expected no-conversion-path error")
	}
}
