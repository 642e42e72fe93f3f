package arch

import (
	"fmt"
	"maps"
	"math/bits"
	"slices"

	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// StateRegister is the explicit state of an FSM with more than one state.
type StateRegister struct {
	Name  string
	Width int
	// Reset is the clock index of the state the register resets to.
	Reset int
}

// Fsm is an IoFsm: an element sequencing accesses to interfaces that are
// used more often than they have ports. Each state is one scheduled clock.
type Fsm struct {
	element
	Ifaces []string

	// StateReg is nil for a single-state FSM.
	StateReg     *StateRegister
	transitions  map[int]map[int]*expr.Expr
	nonSkippable []int
}

func newFsm(e *env, seed *fsmSeed) (*Fsm, error) {
	nodes := slices.Collect(maps.Keys(seed.nodes))
	f := &Fsm{element: newElement(e, seed.name(), nodes), Ifaces: seed.ifaces}
	if err := f.buildStages(false); err != nil {
		return nil, err
	}
	return f, nil
}

// Kind returns KindFsm.
func (f *Fsm) Kind() Kind { return KindFsm }

// States returns the clock index of every state, in state order.
func (f *Fsm) States() []int {
	out := make([]int, 0, len(f.stages))
	for _, st := range f.stages {
		out = append(out, st.Clk)
	}
	return out
}

// StateVar is the condition "the FSM is in the state of clock clk".
func (f *Fsm) StateVar(clk int) *expr.Expr {
	return expr.Var(fmt.Sprintf("%s.st_%d", f.name, clk))
}

// TransitionTable returns, for every state, the condition of moving to
// each successor state. Keys are clock indexes. Valid after AllocateSync.
func (f *Fsm) TransitionTable() map[int]map[int]*expr.Expr { return f.transitions }

// AllocateDataPath records registers and imports and remembers which
// states other elements rely on.
func (f *Fsm) AllocateDataPath(iea *InterArchAnalysis) error {
	if iea != nil {
		f.nonSkippable = iea.NonSkippable(f)
	}
	return f.allocateDataPath(iea, f)
}

// AllocateSync derives the transition table and state register and builds
// the handshake of every state.
//
// The default transition is to the next state, cyclic. A backedge channel
// read and written inside the FSM jumps from the writing state back to the
// reading state when the write fires. A jump that would skip a
// non-skippable state is dropped and the default transition kept.
func (f *Fsm) AllocateSync() error {
	states := f.States()
	f.transitions = make(map[int]map[int]*expr.Expr, len(states))
	for i, s := range states {
		next := states[(i+1)%len(states)]
		f.transitions[s] = map[int]*expr.Expr{next: expr.True}
	}
	for _, ch := range f.nl.Channels() {
		f.backedge(ch, states)
	}

	f.StateReg = nil
	if len(states) > 1 {
		f.StateReg = &StateRegister{
			Name:  f.name + ".st",
			Width: bits.Len(uint(len(states) - 1)),
			Reset: states[0],
		}
	}

	f.allocateStageSyncs(func(st *ConnectionsOfStage) *expr.Expr {
		if f.StateReg == nil {
			return f.top
		}
		return expr.And(f.top, f.StateVar(st.Clk))
	})
	return nil
}

func (f *Fsm) backedge(ch *netlist.Channel, states []int) {
	if ch.Kind != netlist.Backedge || !f.owned[ch.Read] || !f.owned[ch.Write] {
		return
	}
	r, w := f.nl.Clk(ch.Read), f.nl.Clk(ch.Write)
	if r > w {
		return
	}
	wi := slices.Index(states, w)
	next := states[(wi+1)%len(states)]
	if next == r {
		return
	}
	for _, s := range states {
		if (s > w || s < r) && slices.Contains(f.nonSkippable, s) {
			f.logger.Debug("backedge transition rejected: skips non-skippable state",
				"fsm", f.name, "channel", ch.Name, "from", w, "to", r, "state", s)
			return
		}
	}
	fire := expr.And(f.conds.ExtraCond(ch.Write), expr.Not(f.conds.SkipWhen(ch.Write)))
	row := f.transitions[w]
	if prev, ok := row[r]; ok {
		row[r] = expr.Or(prev, fire)
	} else {
		row[r] = fire
	}
	row[next] = expr.And(row[next], expr.Not(fire))
	if row[next].IsFalse() {
		delete(row, next)
	}
}
