package timeline

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/syncarch/pkg/arch"
	"github.com/matzehuels/syncarch/pkg/buildinfo"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Option configures timeline rendering via [RenderJSON].
type Option func(*renderer)

type renderer struct {
	runID    uuid.UUID
	analysis *arch.InterArchAnalysis
}

// WithRunID records a caller-chosen run identifier instead of a fresh one.
func WithRunID(id uuid.UUID) Option { return func(r *renderer) { r.runID = id } }

// WithAnalysis adds the values each stage imports from other elements and
// the non-skippable states of every element.
func WithAnalysis(iea *arch.InterArchAnalysis) Option {
	return func(r *renderer) { r.analysis = iea }
}

type jsonOutput struct {
	RunID     string        `json:"run_id"`
	Generator string        `json:"generator"`
	Netlist   string        `json:"netlist"`
	ClkPeriod int64         `json:"clk_period"`
	Elements  []jsonElement `json:"elements"`
}

type jsonElement struct {
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Stages       []jsonStage      `json:"stages"`
	Transitions  []jsonTransition `json:"transitions,omitempty"`
	StateReg     *jsonStateReg    `json:"state_reg,omitempty"`
	NonSkippable []int            `json:"non_skippable,omitempty"`
}

type jsonStage struct {
	Clk       int          `json:"clk"`
	Nodes     []jsonNode   `json:"nodes"`
	Registers []string     `json:"registers,omitempty"`
	Imports   []jsonImport `json:"imports,omitempty"`
	ExtraCond string       `json:"extra_cond,omitempty"`
	SkipWhen  string       `json:"skip_when,omitempty"`
}

type jsonNode struct {
	ID   int32   `json:"id"`
	Name string  `json:"name"`
	Kind string  `json:"kind"`
	In   []int64 `json:"in,omitempty"`
	Out  []int64 `json:"out,omitempty"`
}

type jsonImport struct {
	From  string `json:"from"`
	Owner string `json:"owner"`
}

type jsonTransition struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Cond string `json:"cond"`
}

type jsonStateReg struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
	Reset int    `json:"reset"`
}

// RenderJSON exports the per-clock schedule of every element as an
// indented JSON document: the nodes of each stage with their absolute
// port times, the stage handshake when allocated, and the FSM transition
// tables. Every document carries a run ID so dumps of one compilation can
// be correlated.
func RenderJSON(nl *netlist.Netlist, elements []arch.ArchElement, opts ...Option) ([]byte, error) {
	r := renderer{}
	for _, opt := range opts {
		opt(&r)
	}
	if r.runID == uuid.Nil {
		r.runID = uuid.New()
	}

	out := jsonOutput{
		RunID:     r.runID.String(),
		Generator: buildinfo.Generator(),
		Netlist:   nl.Name,
		ClkPeriod: nl.ClkPeriod,
		Elements:  make([]jsonElement, 0, len(elements)),
	}
	for _, el := range elements {
		out.Elements = append(out.Elements, r.element(nl, el))
	}
	return json.MarshalIndent(out, "", "  ")
}

func (r *renderer) element(nl *netlist.Netlist, el arch.ArchElement) jsonElement {
	je := jsonElement{Name: el.Name(), Kind: el.Kind().String()}
	for _, st := range el.Stages() {
		je.Stages = append(je.Stages, buildStage(nl, st))
	}
	if f, ok := el.(*arch.Fsm); ok {
		table := f.TransitionTable()
		for _, from := range f.States() {
			for _, to := range slices.Sorted(maps.Keys(table[from])) {
				je.Transitions = append(je.Transitions, jsonTransition{From: from, To: to, Cond: table[from][to].String()})
			}
		}
		if reg := f.StateReg; reg != nil {
			je.StateReg = &jsonStateReg{Name: reg.Name, Width: reg.Width, Reset: reg.Reset}
		}
	}
	if r.analysis != nil {
		je.NonSkippable = r.analysis.NonSkippable(el)
	}
	return je
}

func buildStage(nl *netlist.Netlist, st *arch.ConnectionsOfStage) jsonStage {
	js := jsonStage{Clk: st.Clk, Nodes: make([]jsonNode, 0, len(st.Nodes))}
	for _, id := range st.Nodes {
		n := nl.MustNode(id)
		js.Nodes = append(js.Nodes, jsonNode{
			ID:   int32(id),
			Name: n.Name,
			Kind: n.Kind.String(),
			In:   n.ScheduledIn,
			Out:  n.ScheduledOut,
		})
	}
	for _, reg := range st.Registers {
		js.Registers = append(js.Registers, reg.Name)
	}
	for _, imp := range st.Imports {
		n := nl.MustNode(imp.From.Node)
		js.Imports = append(js.Imports, jsonImport{From: n.String() + "." + n.Outputs[imp.From.Index].Name, Owner: imp.Owner})
	}
	if st.Sync != nil {
		js.ExtraCond = st.Sync.ExtraCond.String()
		js.SkipWhen = st.Sync.SkipWhen.String()
	}
	return js
}
