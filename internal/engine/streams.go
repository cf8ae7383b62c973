package engine

import "github.com/shopspring/decimal"

// Stream is the closed set of named per-substance, per-year quantities
// the engine tracks. Replacing the source's dynamic string-keyed
// streams (§9) with a tagged enum catches typos at compile time; string
// names appear only at the CSV/command boundary (see commands.go,
// ../csvexport).
type Stream int

const (
	Domestic Stream = iota
	Import
	Export
	Sales
	Equipment
	PriorEquipment
	Retired
	RecycleEol
	RecycleRecharge
	Recycle
	ImplicitRecharge
	BankKg
	BankTCO2e
	BankChangeKg
	BankChangeTCO2e
)

// salesStreams are the user-enableable volume streams.
var salesStreams = [...]Stream{Domestic, Import, Export}

// IsSalesStream reports whether s is one of domestic/import/export.
func (s Stream) IsSalesStream() bool {
	return s == Domestic || s == Import || s == Export
}

func (s Stream) String() string {
	switch s {
	case Domestic:
		return "domestic"
	case Import:
		return "import"
	case Export:
		return "export"
	case Sales:
		return "sales"
	case Equipment:
		return "equipment"
	case PriorEquipment:
		return "priorEquipment"
	case Retired:
		return "retired"
	case RecycleEol:
		return "recycleEol"
	case RecycleRecharge:
		return "recycleRecharge"
	case Recycle:
		return "recycle"
	case ImplicitRecharge:
		return "implicitRecharge"
	case BankKg:
		return "bankKg"
	case BankTCO2e:
		return "bankTCO2e"
	case BankChangeKg:
		return "bankChangeKg"
	case BankChangeTCO2e:
		return "bankChangeTCO2e"
	default:
		return "unknown"
	}
}

// RecycleStage identifies which volume a recycle program recovers from.
type RecycleStage int

const (
	StageEOL RecycleStage = iota
	StageRecharge
)

// RecycleProgram is one (recoveryRate, yieldRate, stage, induction?)
// entry from a recycle/recover command. InductionSet distinguishes "not
// specified, resolve by spec kind" from "explicitly zero" (§4.3.1).
type RecycleProgram struct {
	RecoveryRate  Number
	YieldRate     Number
	Stage         RecycleStage
	Induction     decimal.Decimal
	InductionSet  bool
	Displacing    string // substance name, or "" for proportional virgin-sales displacement
}

// RetirementSpec is the substance's retire command, if any.
type RetirementSpec struct {
	Rate          Number // "X % / year"
	WithReplace   bool
	Set           bool
}

// RechargeSpec is the substance's recharge command, if any.
type RechargeSpec struct {
	Population Number // % or units, per year
	Intensity  Number // kg/unit
	Set        bool
}

// SpecKind records whether the most recent sales-stream write was in
// equipment units (unit-based) or volume units (volume-based); the
// sales recalc's "specification discriminator" (§4.3 step 5).
type SpecKind int

const (
	SpecUnknown SpecKind = iota
	SpecUnitBased
	SpecVolumeBased
)

// SubstanceState is the full per-(scope, year) state for one
// (application, substance): the mapping from Stream to Number plus the
// parameters that govern how streams are derived (§3).
type SubstanceState struct {
	Year int

	Streams map[Stream]Number

	// Enabled streams, subset of {Domestic, Import, Export}.
	Enabled map[Stream]bool

	// InitialCharge is kg/unit per sales stream.
	InitialCharge map[Stream]Number

	// GWP is tCO2e per kg, from an `equals ... tCO2e / kg` command (I2).
	GWP *Number

	// EnergyIntensity is kwh/unit, from an `equals ... kwh / unit` command (I2).
	EnergyIntensity *Number

	Retirement RetirementSpec
	Recharge   RechargeSpec
	Recycling  []RecycleProgram

	// LastSpecified holds the most recent user-set value per stream,
	// consulted by percentage commands and the spec-kind discriminator
	// (I7, §9).
	LastSpecified map[Stream]Number

	// DistributionPercent splits required virgin volume across
	// enabled sales streams (defaults to 100% domestic if only
	// domestic is enabled, etc.). No command writes it; clone copies it
	// forward, and when it is empty the split is inferred from the
	// enabled streams.
	DistributionPercent map[Stream]decimal.Decimal

	SpecKind SpecKind
}

// newSubstanceState returns a zero-valued state for year y: equipment
// and all derived streams start at zero, enabled streams are closed
// until an `enable` command opens them.
func newSubstanceState(year int) *SubstanceState {
	s := &SubstanceState{
		Year:                year,
		Streams:             make(map[Stream]Number),
		Enabled:             make(map[Stream]bool),
		InitialCharge:       make(map[Stream]Number),
		LastSpecified:       make(map[Stream]Number),
		DistributionPercent: make(map[Stream]decimal.Decimal),
	}
	for _, st := range allStreams() {
		units := UnitKg
		if st == Equipment || st == PriorEquipment || st == Retired {
			units = UnitUnits
		}
		if st == BankTCO2e || st == BankChangeTCO2e {
			units = UnitTCO2e
		}
		s.Streams[st] = Zero(units)
	}
	return s
}

func allStreams() []Stream {
	return []Stream{
		Domestic, Import, Export, Sales, Equipment, PriorEquipment, Retired,
		RecycleEol, RecycleRecharge, Recycle, ImplicitRecharge,
		BankKg, BankTCO2e, BankChangeKg, BankChangeTCO2e,
	}
}

// Get returns the current value of stream s, defaulting to zero kg if
// the state hasn't recorded it yet.
func (s *SubstanceState) Get(stream Stream) Number {
	if v, ok := s.Streams[stream]; ok {
		return v
	}
	return Zero(UnitKg)
}

// Set records the current value of stream s, without touching
// LastSpecified (internal/derived writes use this; user commands use
// SetUserSpecified).
func (s *SubstanceState) Set(stream Stream, value Number) {
	s.Streams[stream] = value
}

// SetUserSpecified records both the stream's value and the
// last-specified intent table (I7, "Lifecycles").
func (s *SubstanceState) SetUserSpecified(stream Stream, value Number) {
	s.Streams[stream] = value
	s.LastSpecified[stream] = value
}

// clone produces next year's starting state: priorEquipment takes the
// outgoing equipment value, retired/recycle*/implicitRecharge/
// bankChange* reset to zero, enabled flags, charges, GWP, energy,
// retirement/recharge specs, recycling programs, and last-specified
// intents carry forward unchanged (they are only mutated by new user
// commands, per "Lifecycles").
func (s *SubstanceState) clone(nextYear int) *SubstanceState {
	next := newSubstanceState(nextYear)

	next.Set(PriorEquipment, s.Get(Equipment))
	next.Set(Equipment, s.Get(Equipment))
	next.Set(Domestic, s.Get(Domestic))
	next.Set(Import, s.Get(Import))
	next.Set(Export, s.Get(Export))
	next.Set(Sales, s.Get(Sales))
	next.Set(BankKg, s.Get(BankKg))
	next.Set(BankTCO2e, s.Get(BankTCO2e))

	for stream, enabled := range s.Enabled {
		next.Enabled[stream] = enabled
	}
	for stream, charge := range s.InitialCharge {
		next.InitialCharge[stream] = charge
	}
	for stream, pct := range s.DistributionPercent {
		next.DistributionPercent[stream] = pct
	}
	for stream, v := range s.LastSpecified {
		next.LastSpecified[stream] = v
	}
	next.GWP = s.GWP
	next.EnergyIntensity = s.EnergyIntensity
	next.Retirement = s.Retirement
	next.Recharge = s.Recharge
	next.Recycling = append([]RecycleProgram(nil), s.Recycling...)
	next.SpecKind = s.SpecKind

	return next
}

// StreamKeeper owns all per-scope state across the simulated year
// range. It is the sole writer of SubstanceState; scopes and UseKeys
// are values, never aliased into it (§3 Ownership).
type StreamKeeper struct {
	// history[useKey][year] holds the substance's state as of the end
	// of that year's recalculation.
	history map[UseKey]map[int]*SubstanceState
	// order preserves first-seen (application, substance) order so
	// result emission can fall back to a stable order before the
	// final (scenario, trial, application, substance, year) sort.
	order []UseKey
}

// NewStreamKeeper returns an empty keeper.
func NewStreamKeeper() *StreamKeeper {
	return &StreamKeeper{history: make(map[UseKey]map[int]*SubstanceState)}
}

// UseKeys returns every (application, substance) pair known to the
// keeper, in first-seen order.
func (k *StreamKeeper) UseKeys() []UseKey {
	return append([]UseKey(nil), k.order...)
}

// StateFor returns the substance state for key at year, creating it on
// first access as a clone of the latest earlier year's state, or as a
// fresh zero state when the substance has no earlier year. This
// is the "a substance is created when its enable/definitional commands
// first execute" lifecycle rule (§3 Lifecycles).
func (k *StreamKeeper) StateFor(key UseKey, year int) *SubstanceState {
	years, ok := k.history[key]
	if !ok {
		years = make(map[int]*SubstanceState)
		k.history[key] = years
		k.order = append(k.order, key)
	}
	if st, ok := years[year]; ok {
		return st
	}

	prev := k.previous(key, year)
	var st *SubstanceState
	if prev == nil {
		st = newSubstanceState(year)
	} else {
		st = prev.clone(year)
	}
	years[year] = st
	return st
}

// previous returns the latest known state strictly before year, or nil
// if this is the substance's first year.
func (k *StreamKeeper) previous(key UseKey, year int) *SubstanceState {
	years := k.history[key]
	var best *SubstanceState
	for y, st := range years {
		if y < year && (best == nil || y > best.Year) {
			best = st
		}
	}
	return best
}

// AtYear returns the recorded state for key at year, or nil if the
// substance has no history at that year (never simulated, or future).
func (k *StreamKeeper) AtYear(key UseKey, year int) *SubstanceState {
	years, ok := k.history[key]
	if !ok {
		return nil
	}
	return years[year]
}
