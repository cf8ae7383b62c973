// Package engine implements the KigaliSim simulation core: the
// per-(application, substance) stream state machine, its unit
// conversions, the sales/population/bank recalculation strategies, and
// the year-stepping driver that ties them together.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Number is an exact-decimal (value, units) pair. value never loses
// precision through truncation; units is a free-form label drawn from
// the set documented in units.go. OriginalText, when set, is the
// user's original literal and is preferred over a re-derived string
// for faithful re-emission (CSV round-trip, P6).
type Number struct {
	Value        decimal.Decimal
	Units        string
	OriginalText string
}

// NewNumber builds a Number from a float64 literal. Used for internal
// constants (zero, defaults); command values built from user input
// should go through NewNumberFromString to avoid binary float noise.
func NewNumber(value float64, units string) Number {
	return Number{Value: decimal.NewFromFloat(value), Units: units}
}

// NewNumberFromString parses an exact decimal literal, preserving the
// original text for re-emission.
func NewNumberFromString(literal, units string) (Number, error) {
	v, err := decimal.NewFromString(literal)
	if err != nil {
		return Number{}, fmt.Errorf("%w: %q is not a decimal literal: %v", ErrScript, literal, err)
	}
	return Number{Value: v, Units: units, OriginalText: literal}, nil
}

// Zero returns the additive identity in the given units.
func Zero(units string) Number {
	return Number{Value: decimal.Zero, Units: units}
}

// IsZero reports whether the value is exactly zero, ignoring units.
func (n Number) IsZero() bool {
	return n.Value.IsZero()
}

// WithValue returns a copy of n with a new value and no preserved
// original text, since the value no longer matches what the user typed.
func (n Number) WithValue(v decimal.Decimal) Number {
	return Number{Value: v, Units: n.Units}
}

// Add returns n + other. Both operands must share units (I1).
func (n Number) Add(other Number) (Number, error) {
	if n.Units != other.Units {
		return Number{}, fmt.Errorf("%w: cannot add %s to %s", ErrUnitMismatch, other.Units, n.Units)
	}
	return n.WithValue(n.Value.Add(other.Value)), nil
}

// MustAdd panics on a unit mismatch. Used where callers have already
// established matching units (e.g. accumulating into a stream of known
// units) and a mismatch would indicate a bug rather than bad input.
func (n Number) MustAdd(other Number) Number {
	out, err := n.Add(other)
	if err != nil {
		panic(err)
	}
	return out
}

// Sub returns n - other, subject to the same unit constraint as Add.
func (n Number) Sub(other Number) (Number, error) {
	if n.Units != other.Units {
		return Number{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrUnitMismatch, other.Units, n.Units)
	}
	return n.WithValue(n.Value.Sub(other.Value)), nil
}

// Scale multiplies the value by a dimensionless factor, keeping units.
func (n Number) Scale(factor decimal.Decimal) Number {
	return n.WithValue(n.Value.Mul(factor))
}

// Negate returns -n in the same units.
func (n Number) Negate() Number {
	return n.WithValue(n.Value.Neg())
}

// Max returns the larger of n and other by value. Units are not
// checked; callers are expected to only compare like streams.
func Max(a, b Number) Number {
	if a.Value.GreaterThan(b.Value) {
		return a
	}
	return b
}

// ClampNonNegative returns n with its value floored at zero.
func (n Number) ClampNonNegative() Number {
	if n.Value.IsNegative() {
		return n.WithValue(decimal.Zero)
	}
	return n
}

// String formats the number the way CSV output requires: "<number> <units>".
// The original literal is preferred when present so that values the
// user typed but the engine never touched round-trip byte-identically.
func (n Number) String() string {
	if n.OriginalText != "" {
		return n.OriginalText + " " + n.Units
	}
	return n.Value.String() + " " + n.Units
}
