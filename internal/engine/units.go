package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Unit name constants. Free-form strings, not a closed Go type: the
// parser boundary hands these across as plain labels (§6), and new
// intensity/energy labels can appear without a core change.
const (
	UnitKg        = "kg"
	UnitMT        = "mt"
	UnitUnit      = "unit"
	UnitUnits     = "units"
	UnitPercent   = "%"
	UnitPercentYr = "% / year"
	UnitKwh       = "kwh"
	UnitMwh       = "mwh"
	UnitTCO2e     = "tCO2e"
	UnitKgCO2e    = "kgCO2e"

	UnitKgPerUnit   = "kg / unit"
	UnitKwhPerUnit  = "kwh / unit"
	UnitKgCO2ePerKg = "kgCO2e / kg"
	UnitTCO2ePerMT  = "tCO2e / mt"
	UnitTCO2ePerKg  = "tCO2e / kg"
)

var kiloFactor = decimal.NewFromInt(1000)

// ConversionContext bundles the per-scope data a unit conversion may
// need. It is an immutable record built fresh per command by the
// engine driver and passed down to the converter and recalc
// strategies; no thread-local or converter-owned state is kept (§9).
type ConversionContext struct {
	// CurrentValue is the governing stream's present value, used to
	// resolve "%" when LastSpecified is absent.
	CurrentValue Number

	// LastSpecified is the most recent user-set value for the
	// governing stream, consulted first for "%" resolution (I7).
	LastSpecified *Number

	// Population and PriorPopulation are in equipment units.
	Population      decimal.Decimal
	PriorPopulation decimal.Decimal

	// AmortizedUnitVolume is kg/unit, needed for kg<->units.
	AmortizedUnitVolume *decimal.Decimal

	// GWP is tCO2e per kg (kgCO2e/kg and tCO2e/mt both reduce to this
	// single factor), needed for kg<->tCO2e.
	GWP *decimal.Decimal

	// EnergyIntensityPerUnit is kwh/unit, needed for kwh<->units paths.
	EnergyIntensityPerUnit *decimal.Decimal
}

// Converter converts EngineNumbers between units within a
// ConversionContext. It holds no state of its own; every method call is
// pure given its arguments.
type Converter struct{}

// NewConverter returns a stateless Converter.
func NewConverter() Converter { return Converter{} }

// Convert converts value to targetUnits within ctx. Conversion is
// exact decimal arithmetic throughout; there is no early truncation.
func (Converter) Convert(value Number, targetUnits string, ctx ConversionContext) (Number, error) {
	if value.Units == targetUnits {
		return value, nil
	}

	if value.Units == UnitPercent || value.Units == UnitPercentYr {
		base := ctx.CurrentValue
		if ctx.LastSpecified != nil {
			base = *ctx.LastSpecified
		}
		resolved := base.Scale(value.Value.Div(decimal.NewFromInt(100)))
		if resolved.Units == targetUnits {
			return resolved, nil
		}
		return Converter{}.Convert(resolved, targetUnits, ctx)
	}

	switch {
	case value.Units == UnitKg && targetUnits == UnitMT:
		return value.WithValue(value.Value.Div(kiloFactor)).withUnits(UnitMT), nil
	case value.Units == UnitMT && targetUnits == UnitKg:
		return value.WithValue(value.Value.Mul(kiloFactor)).withUnits(UnitKg), nil

	case value.Units == UnitKwh && targetUnits == UnitMwh:
		return value.WithValue(value.Value.Div(kiloFactor)).withUnits(UnitMwh), nil
	case value.Units == UnitMwh && targetUnits == UnitKwh:
		return value.WithValue(value.Value.Mul(kiloFactor)).withUnits(UnitKwh), nil

	case value.Units == UnitKg && (targetUnits == UnitUnit || targetUnits == UnitUnits):
		if ctx.AmortizedUnitVolume == nil || ctx.AmortizedUnitVolume.IsZero() {
			return Number{}, fmt.Errorf("%w: amortized unit volume needed for kg -> %s", ErrMissingContext, targetUnits)
		}
		return value.WithValue(value.Value.Div(*ctx.AmortizedUnitVolume)).withUnits(targetUnits), nil
	case (value.Units == UnitUnit || value.Units == UnitUnits) && targetUnits == UnitKg:
		if ctx.AmortizedUnitVolume == nil {
			return Number{}, fmt.Errorf("%w: amortized unit volume needed for %s -> kg", ErrMissingContext, value.Units)
		}
		return value.WithValue(value.Value.Mul(*ctx.AmortizedUnitVolume)).withUnits(UnitKg), nil

	case value.Units == UnitKg && targetUnits == UnitTCO2e:
		if ctx.GWP == nil {
			return Number{}, fmt.Errorf("%w: GWP needed for kg -> tCO2e", ErrMissingContext)
		}
		return value.WithValue(value.Value.Mul(*ctx.GWP)).withUnits(UnitTCO2e), nil
	case value.Units == UnitTCO2e && targetUnits == UnitKg:
		if ctx.GWP == nil || ctx.GWP.IsZero() {
			return Number{}, fmt.Errorf("%w: GWP needed for tCO2e -> kg", ErrMissingContext)
		}
		return value.WithValue(value.Value.Div(*ctx.GWP)).withUnits(UnitKg), nil

	case value.Units == UnitMT && targetUnits == UnitTCO2e:
		kg, err := Converter{}.Convert(value, UnitKg, ctx)
		if err != nil {
			return Number{}, err
		}
		return Converter{}.Convert(kg, UnitTCO2e, ctx)
	case value.Units == UnitTCO2e && targetUnits == UnitMT:
		kg, err := Converter{}.Convert(value, UnitKg, ctx)
		if err != nil {
			return Number{}, err
		}
		return Converter{}.Convert(kg, UnitMT, ctx)

	case (value.Units == UnitUnit || value.Units == UnitUnits) && targetUnits == UnitKwh:
		if ctx.EnergyIntensityPerUnit == nil {
			return Number{}, fmt.Errorf("%w: energy intensity needed for %s -> kwh", ErrMissingContext, value.Units)
		}
		return value.WithValue(value.Value.Mul(*ctx.EnergyIntensityPerUnit)).withUnits(UnitKwh), nil
	case value.Units == UnitKwh && (targetUnits == UnitUnit || targetUnits == UnitUnits):
		if ctx.EnergyIntensityPerUnit == nil || ctx.EnergyIntensityPerUnit.IsZero() {
			return Number{}, fmt.Errorf("%w: energy intensity needed for kwh -> %s", ErrMissingContext, targetUnits)
		}
		return value.WithValue(value.Value.Div(*ctx.EnergyIntensityPerUnit)).withUnits(targetUnits), nil
	}

	return Number{}, fmt.Errorf("%w: no conversion path from %s to %s", ErrUnitMismatch, value.Units, targetUnits)
}

// withUnits returns a copy of n with units replaced, dropping any
// preserved original text (the value has been transformed).
func (n Number) withUnits(units string) Number {
	return Number{Value: n.Value, Units: units}
}
