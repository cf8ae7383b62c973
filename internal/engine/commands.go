package engine

import "github.com/shopspring/decimal"

// CommandKind is the closed set of command types the (external) parser
// is assumed to produce (§6). The parser and AST are out of scope; this
// is the contract a QubecTalk front end would target.
type CommandKind int

const (
	CmdEnable CommandKind = iota
	CmdEquals
	CmdInitialCharge
	CmdSet
	CmdChange
	CmdRetire
	CmdRecharge
	CmdRecycle
	CmdReplace
	CmdCap
	CmdFloor
)

// EqualsKind distinguishes the two singleton `equals` targets (I2).
type EqualsKind int

const (
	EqualsGHG EqualsKind = iota
	EqualsEnergy
)

// Command is one typed, year-gated instruction within a stanza.
// A []Command per stanza is exactly the stable contract spec.md §6
// describes the parser as producing; tests build these by hand in
// place of running a real QubecTalk parser.
type Command struct {
	Kind  CommandKind
	Years YearMatcher

	// Target names the stream a set/change/cap/floor/initial-charge/
	// enable command acts on. Unused for equals/retire/recharge.
	Target Stream

	// Value is the command's primary amount (may carry "%" units,
	// resolved at execution time against LastSpecified/current value).
	Value Number

	// EqualsKind distinguishes GHG vs energy for CmdEquals.
	EqualsKind EqualsKind

	// WithReplacement marks a retire command as replacing retired
	// units rather than letting equipment shrink.
	WithReplacement bool

	// Recharge-only: Value carries the population (% or units); Intensity
	// carries kg/unit.
	Intensity Number

	// Recycle-only fields.
	YieldRate    Number
	Stage        RecycleStage
	Induction    decimal.Decimal
	InductionSet bool
	Displacing   string

	// Replace/cap/floor-only: the sibling substance name a volume
	// moves to or from. Empty for cap/floor with no displacement.
	DestinationSubstance string

	// SourcePosition is where the command came from, when its producer
	// records it. Zero value means "unknown". scriptload leaves it zero
	// and ScriptError does not read it.
	SourcePosition SourcePosition
}

// SourcePosition is the script location a command was parsed from.
type SourcePosition struct {
	Line   int
	Column int
}

// Stanza is an ordered command list scoped to one policy name (or
// "default"/"simulations"). Commands execute in the order given
// (§5 Ordering guarantees).
type Stanza struct {
	Name        string
	Application string
	Substance   string
	Commands    []Command
}
