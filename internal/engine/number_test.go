package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNumberAddRequiresMatchingUnits(t *testing.T) {
	a := NewNumber(1, UnitKg)
	b := NewNumber(2, UnitMT)
	if _, err := a.Add(b); err == nil {
		t.Fatal("expected unit mismatch error")
	}
}

func TestNumberAdd(t *testing.T) {
	a := NewNumber(1.5, UnitKg)
	b := NewNumber(2.5, UnitKg)
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !sum.Value.Equal(decimal.NewFromFloat(4)) {
		t.Errorf("sum = %s, want 4", sum.Value)
	}
}

func TestMustAddPanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unit mismatch")
		}
	}()
	NewNumber(1, UnitKg).MustAdd(NewNumber(1, UnitMT))
}

func TestClampNonNegative(t *testing.T) {
	neg := NewNumber(-5, UnitKg)
	if got := neg.ClampNonNegative(); !got.Value.IsZero() {
		t.Errorf("ClampNonNegative() = %s, want 0", got.Value)
	}
	pos := NewNumber(5, UnitKg)
	if got := pos.ClampNonNegative(); !got.Value.Equal(decimal.NewFromInt(5)) {
		t.Errorf("ClampNonNegative() = %s, want 5", got.Value)
	}
}

func TestNumberStringPrefersOriginalText(t *testing.T) {
	n, err := NewNumberFromString("10.50", UnitKg)
	if err != nil {
		t.Fatalf("NewNumberFromString() error = %v", err)
	}
	if got, want := n.String(), "10.50 kg"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNumberStringFallsBackToValue(t *testing.T) {
	n := NewNumber(3, UnitKg)
	if got, want := n.String(), "3 kg"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNewNumberFromStringRejectsGarbage(t *testing.T) {
	if _, err := NewNumberFromString("not-a-number", UnitKg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMaxPicksLargerValue(t *testing.T) {
	small := NewNumber(1, UnitKg)
	large := NewNumber(5, UnitKg)
	if got := Max(small, large); !got.Value.Equal(large.Value) {
		t.Errorf("Max() = %s, want %s", got.Value, large.Value)
	}
}
