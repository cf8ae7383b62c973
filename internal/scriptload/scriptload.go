// Package scriptload reads a script document from disk into the typed
// []engine.Command contract commands.go assumes a QubecTalk parser
// would produce (spec.md §6; the parser itself is explicitly out of
// scope). JSON is the concrete wire format: each scenario names its
// baseline/policy stanzas and their commands directly in the shape
// internal/engine already consumes, so `run`/`validate` have something
// real to load without inventing a parser this repository doesn't own.
package scriptload

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/kigalisim/internal/engine"
	"github.com/example/kigalisim/internal/scenario"
)

// ScriptError reports a malformed script document, with a source
// position when the decoder can recover one (spec.md §7 "Script-level
// errors are reported with source position").
type ScriptError struct {
	Line    int
	Column  int
	Message string
}

func (e ScriptError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// document is the on-disk JSON shape: a list of scenarios, each a year
// range plus baseline/policy stanzas.
type document struct {
	Scenarios []scenarioDoc `json:"scenarios"`
}

type scenarioDoc struct {
	Name      string      `json:"name"`
	YearStart int         `json:"yearStart"`
	YearEnd   int         `json:"yearEnd"`
	Trials    int         `json:"trials"`
	Baseline  []stanzaDoc `json:"baseline"`
	Policies  []stanzaDoc `json:"policies"`
}

type stanzaDoc struct {
	Name        string       `json:"name"`
	Application string       `json:"application"`
	Substance   string       `json:"substance"`
	Commands    []commandDoc `json:"commands"`
}

type yearsDoc struct {
	Start json.RawMessage `json:"start"`
	End   json.RawMessage `json:"end"`
}

type numberDoc struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
	Text  string  `json:"text"`
}

func (n numberDoc) toNumber() engine.Number {
	if n.Text != "" {
		num, err := engine.NewNumberFromString(n.Text, n.Units)
		if err == nil {
			return num
		}
	}
	return engine.NewNumber(n.Value, n.Units)
}

type commandDoc struct {
	Kind                 string    `json:"kind"`
	Years                yearsDoc  `json:"years"`
	Target               string    `json:"target"`
	Value                numberDoc `json:"value"`
	EqualsKind           string    `json:"equalsKind"`
	WithReplacement      bool      `json:"withReplacement"`
	Intensity            numberDoc `json:"intensity"`
	YieldRate            numberDoc `json:"yieldRate"`
	Stage                string    `json:"stage"`
	Induction            float64   `json:"induction"`
	InductionSet         bool      `json:"inductionSet"`
	Displacing           string    `json:"displacing"`
	DestinationSubstance string    `json:"destinationSubstance"`
}

var commandKinds = map[string]engine.CommandKind{
	"enable":        engine.CmdEnable,
	"equals":        engine.CmdEquals,
	"initialCharge": engine.CmdInitialCharge,
	"set":           engine.CmdSet,
	"change":        engine.CmdChange,
	"retire":        engine.CmdRetire,
	"recharge":      engine.CmdRecharge,
	"recycle":       engine.CmdRecycle,
	"replace":       engine.CmdReplace,
	"cap":           engine.CmdCap,
	"floor":         engine.CmdFloor,
}

var streamNames = map[string]engine.Stream{
	"domestic":       engine.Domestic,
	"import":         engine.Import,
	"export":         engine.Export,
	"sales":          engine.Sales,
	"equipment":      engine.Equipment,
	"priorEquipment": engine.PriorEquipment,
}

var stageNames = map[string]engine.RecycleStage{
	"eol":      engine.StageEOL,
	"recharge": engine.StageRecharge,
}

// Load reads and decodes path into a []scenario.Scenario ready for
// internal/scenario.Runner. Read and JSON errors are returned as
// ScriptError; an error from a command is wrapped with its stanza name.
func Load(path string) ([]scenario.Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ScriptError{Message: fmt.Sprintf("read %s: %v", path, err)}
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, decodeError(raw, err)
	}

	scenarios := make([]scenario.Scenario, 0, len(doc.Scenarios))
	for _, s := range doc.Scenarios {
		sc, err := toScenario(s)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// Validate parses path without constructing a runnable scenario list
// beyond what Load already builds; a script that decodes cleanly into
// typed commands is, by construction, type-checked (every Kind/Target/
// Stage string must resolve to a known enum value). It is the `validate`
// subcommand's entry point.
func Validate(path string) ([]ScriptError, error) {
	_, err := Load(path)
	if err == nil {
		return nil, nil
	}
	if se, ok := err.(ScriptError); ok {
		return []ScriptError{se}, nil
	}
	return []ScriptError{{Message: err.Error()}}, nil
}

func toScenario(s scenarioDoc) (scenario.Scenario, error) {
	baseline, err := toStanzas(s.Baseline)
	if err != nil {
		return scenario.Scenario{}, err
	}
	policies, err := toStanzas(s.Policies)
	if err != nil {
		return scenario.Scenario{}, err
	}
	trials := s.Trials
	if trials <= 0 {
		trials = 1
	}
	return scenario.Scenario{
		Name:      s.Name,
		YearStart: s.YearStart,
		YearEnd:   s.YearEnd,
		Trials:    trials,
		Baseline:  baseline,
		Policies:  policies,
	}, nil
}

func toStanzas(docs []stanzaDoc) ([]engine.Stanza, error) {
	out := make([]engine.Stanza, 0, len(docs))
	for _, d := range docs {
		commands := make([]engine.Command, 0, len(d.Commands))
		for _, c := range d.Commands {
			cmd, err := toCommand(c)
			if err != nil {
				return nil, fmt.Errorf("stanza %q: %w", d.Name, err)
			}
			commands = append(commands, cmd)
		}
		out = append(out, engine.Stanza{
			Name:        d.Name,
			Application: d.Application,
			Substance:   d.Substance,
			Commands:    commands,
		})
	}
	return out, nil
}

func toCommand(c commandDoc) (engine.Command, error) {
	kind, ok := commandKinds[c.Kind]
	if !ok {
		return engine.Command{}, ScriptError{Message: fmt.Sprintf("unknown command kind %q", c.Kind)}
	}

	years, err := toYearMatcher(c.Years)
	if err != nil {
		return engine.Command{}, err
	}

	cmd := engine.Command{
		Kind:                 kind,
		Years:                years,
		Value:                c.Value.toNumber(),
		WithReplacement:      c.WithReplacement,
		Intensity:            c.Intensity.toNumber(),
		YieldRate:            c.YieldRate.toNumber(),
		Induction:            decimalFromFloat(c.Induction),
		InductionSet:         c.InductionSet,
		Displacing:           c.Displacing,
		DestinationSubstance: c.DestinationSubstance,
	}

	if c.Target != "" {
		stream, ok := streamNames[c.Target]
		if !ok {
			return engine.Command{}, ScriptError{Message: fmt.Sprintf("unknown target stream %q", c.Target)}
		}
		cmd.Target = stream
	}

	switch strings.ToLower(c.EqualsKind) {
	case "", "ghg":
		cmd.EqualsKind = engine.EqualsGHG
	case "energy":
		cmd.EqualsKind = engine.EqualsEnergy
	default:
		return engine.Command{}, ScriptError{Message: fmt.Sprintf("unknown equals kind %q", c.EqualsKind)}
	}

	if c.Stage != "" {
		stage, ok := stageNames[strings.ToLower(c.Stage)]
		if !ok {
			return engine.Command{}, ScriptError{Message: fmt.Sprintf("unknown recycle stage %q", c.Stage)}
		}
		cmd.Stage = stage
	}

	return cmd, nil
}

func toYearMatcher(y yearsDoc) (engine.YearMatcher, error) {
	if len(y.Start) == 0 && len(y.End) == 0 {
		return engine.AllYears(), nil
	}
	start, startSentinel, err := parseYearBound(y.Start)
	if err != nil {
		return engine.YearMatcher{}, err
	}
	end, endSentinel, err := parseYearBound(y.End)
	if err != nil {
		return engine.YearMatcher{}, err
	}

	switch {
	case startSentinel && endSentinel:
		return engine.AllYears(), nil
	case startSentinel:
		return engine.YearAtMost(end), nil
	case endSentinel:
		return engine.YearAtLeast(start), nil
	default:
		return engine.YearRange(start, end), nil
	}
}

// parseYearBound decodes a bound that is either an integer year or one
// of the sentinel strings "beginning"/"onwards".
func parseYearBound(raw json.RawMessage) (year int, sentinel bool, err error) {
	if len(raw) == 0 {
		return 0, true, nil
	}
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return asInt, false, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "beginning" || asString == "onwards" {
			return 0, true, nil
		}
		return 0, false, ScriptError{Message: fmt.Sprintf("unknown year bound %q", asString)}
	}
	return 0, false, ScriptError{Message: "year bound must be an integer or a sentinel string"}
}

func decodeError(raw []byte, err error) ScriptError {
	se := ScriptError{Message: err.Error()}
	if syn, ok := err.(*json.SyntaxError); ok {
		se.Line, se.Column = lineColumn(raw, syn.Offset)
	}
	return se
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func lineColumn(raw []byte, offset int64) (line, col int) {
	line = 1
	col = 1
	for i := int64(0); i < offset && int(i) < len(raw); i++ {
		if raw[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
