package arch

import (
	"slices"
	"testing"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/cond"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

func detect(t *testing.T, nl *netlist.Netlist) []ArchElement {
	t.Helper()
	p := island.Discover(nl, reach.New(nl))
	elements, err := Detect(nl, p, Options{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	return elements
}

func allocate(t *testing.T, nl *netlist.Netlist, elements []ArchElement) *InterArchAnalysis {
	t.Helper()
	iea, err := Analyze(nl, elements)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for _, el := range elements {
		if err := el.AllocateDataPath(iea); err != nil {
			t.Fatalf("%s.AllocateDataPath() error = %v", el.Name(), err)
		}
		if err := el.AllocateSync(); err != nil {
			t.Fatalf("%s.AllocateSync() error = %v", el.Name(), err)
		}
	}
	return iea
}

func TestFsmTwoAccesses(t *testing.T) {
	nl := netlist.New("a", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	r0 := nl.Read("r0", in, 0)
	r1 := nl.Read("r1", in, 20)
	nl.Operator("sum", "add", 20, nl.DataOut(r0), nl.DataOut(r1))

	elements := detect(t, nl)
	if len(elements) != 1 {
		t.Fatalf("Detect() returned %d elements, want 1", len(elements))
	}
	f, ok := elements[0].(*Fsm)
	if !ok {
		t.Fatalf("element is %T, want *Fsm", elements[0])
	}
	if f.Name() != "fsm_in" {
		t.Errorf("Name() = %q, want %q", f.Name(), "fsm_in")
	}
	allocate(t, nl, elements)

	if got := f.States(); !slices.Equal(got, []int{0, 2}) {
		t.Errorf("States() = %v, want [0 2]", got)
	}
	want := map[int]map[int]*expr.Expr{0: {2: expr.True}, 2: {0: expr.True}}
	table := f.TransitionTable()
	if len(table) != len(want) {
		t.Fatalf("TransitionTable() has %d states, want %d", len(table), len(want))
	}
	for from, row := range want {
		if len(table[from]) != len(row) {
			t.Errorf("TransitionTable()[%d] = %v, want %v", from, table[from], row)
			continue
		}
		for to, c := range row {
			if got := table[from][to]; got == nil || !expr.Equal(got, c) {
				t.Errorf("TransitionTable()[%d][%d] = %v, want %v", from, to, got, c)
			}
		}
	}
	if f.StateReg == nil || f.StateReg.Width != 1 || f.StateReg.Reset != 0 {
		t.Errorf("StateReg = %+v, want width 1 reset 0", f.StateReg)
	}
	// r0 is held for the read of r1 two cycles later.
	if regs := f.Stage(0).Registers; len(regs) != 1 || regs[0].From != nl.DataOut(r0) {
		t.Errorf("Stage(0).Registers = %v, want one register of r0", regs)
	}
	sync := f.Stage(2).Sync
	if sync == nil {
		t.Fatal("Stage(2).Sync = nil")
	}
	if !expr.Equal(sync.ExtraCond, f.StateVar(2)) {
		t.Errorf("Stage(2).Sync.ExtraCond = %v, want %v", sync.ExtraCond, f.StateVar(2))
	}
}

func TestSingleStateFsmHasNoRegister(t *testing.T) {
	nl := netlist.New("one", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	a := nl.Read("a", in, 0)
	b := nl.Read("b", in, 0)
	nl.Operator("sum", "add", 0, nl.DataOut(a), nl.DataOut(b))

	elements := detect(t, nl)
	allocate(t, nl, elements)
	f := elements[0].(*Fsm)
	if f.StateReg != nil {
		t.Errorf("StateReg = %+v, want nil", f.StateReg)
	}
	if got := f.TransitionTable()[0][0]; got == nil || !got.IsTrue() {
		t.Errorf("TransitionTable()[0][0] = %v, want 1", got)
	}
}

func TestMakeSyncNodePairsConditions(t *testing.T) {
	a, b, c, d := expr.Var("A"), expr.Var("B"), expr.Var("C"), expr.Var("D")
	masters := []IOConn{{Port: "x", Blocking: true, ExtraCond: c, SkipWhen: b, Signal: expr.Var("x.valid")}}
	slaves := []IOConn{{Port: "y", Blocking: true, ExtraCond: d, SkipWhen: a, Signal: expr.Var("y.ready")}}

	s := MakeSyncNode(masters, slaves, nil, nil)
	if want := expr.And(a, b); !expr.Equivalent(s.SkipWhen, want) {
		t.Errorf("SkipWhen = %v, want %v", s.SkipWhen, want)
	}
	want := expr.Or(expr.And(c, expr.Not(b)), expr.And(d, expr.Not(a)))
	if !expr.Equivalent(s.ExtraCond, want) {
		t.Errorf("ExtraCond = %v, want %v", s.ExtraCond, want)
	}
}

func TestMakeSyncNodeEmpty(t *testing.T) {
	top := expr.Var("top")
	s := MakeSyncNode(nil, nil, nil, top)
	if !expr.Equal(s.ExtraCond, top) || !s.SkipWhen.IsFalse() {
		t.Errorf("MakeSyncNode() = (%v, %v), want (top, 0)", s.ExtraCond, s.SkipWhen)
	}
	if !s.Ack().IsTrue() {
		t.Errorf("Ack() = %v, want 1", s.Ack())
	}
}

func TestStreamNodeHandshake(t *testing.T) {
	blocking := IOConn{Port: "x", Blocking: true, ExtraCond: expr.True, SkipWhen: expr.Var("sw"), Signal: expr.Var("x.valid")}
	free := IOConn{Port: "y", Blocking: false, ExtraCond: expr.True, SkipWhen: expr.False, Signal: expr.Var("y.ready")}
	s := MakeSyncNode([]IOConn{blocking}, []IOConn{free}, nil, nil)

	tests := []struct {
		valid, sw bool
		wantAck   bool
		wantEn    bool
	}{
		{valid: false, sw: false, wantAck: false, wantEn: false},
		{valid: true, sw: false, wantAck: true, wantEn: true},
		{valid: false, sw: true, wantAck: true, wantEn: false},
	}
	for _, tt := range tests {
		env := map[string]bool{"x.valid": tt.valid, "sw": tt.sw, "y.ready": false}
		if got := s.Ack().Eval(env); got != tt.wantAck {
			t.Errorf("Ack(valid=%v sw=%v) = %v, want %v", tt.valid, tt.sw, got, tt.wantAck)
		}
		if got := s.Enable(blocking).Eval(env); got != tt.wantEn {
			t.Errorf("Enable(x)(valid=%v sw=%v) = %v, want %v", tt.valid, tt.sw, got, tt.wantEn)
		}
	}
}

func TestDetectPipelinesFollowIslands(t *testing.T) {
	nl := netlist.New("chain", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	out := nl.AddInterface("out", netlist.DirOut, 1)
	rd := nl.Read("rd", in, 0)
	s1 := nl.ExplicitSync("s1", 0, nl.DataOut(rd))
	inc := nl.Operator("inc", "add", 10, nl.DataOut(s1))
	s2 := nl.ExplicitSync("s2", 10, nl.DataOut(inc))
	wr := nl.Write("wr", out, 20, nl.DataOut(s2))

	elements := detect(t, nl)
	want := [][]netlist.NodeID{{rd}, {s1, inc}, {s2, wr}}
	if len(elements) != len(want) {
		t.Fatalf("Detect() returned %d elements, want %d", len(elements), len(want))
	}
	for i, el := range elements {
		if el.Kind() != KindPipeline {
			t.Errorf("elements[%d].Kind() = %v, want pipeline", i, el.Kind())
		}
		if !slices.Equal(el.Nodes(), want[i]) {
			t.Errorf("elements[%d].Nodes() = %v, want %v", i, el.Nodes(), want[i])
		}
	}

	mid := elements[1].(*Pipeline)
	if len(mid.Stages()) != 2 {
		t.Fatalf("Stages() = %d, want 2", len(mid.Stages()))
	}
	if got := mid.Stage(0).ExtraSyncs; len(got) != 1 || got[0].Node != s1 {
		t.Errorf("Stage(0).ExtraSyncs = %v, want [s1]", got)
	}

	iea := allocate(t, nl, elements)
	if len(iea.Values) != 2 {
		t.Errorf("Values = %d, want 2", len(iea.Values))
	}
	if got := iea.OwnerOf(inc); got != elements[1] {
		t.Errorf("OwnerOf(inc) = %v, want %s", got, elements[1].Name())
	}
	last := elements[2].Stages()
	if len(last[0].Imports) != 1 || last[0].Imports[0].Owner != mid.Name() {
		t.Errorf("Stages()[0].Imports = %v, want one import from %s", last[0].Imports, mid.Name())
	}
}

func TestDetectMergesSharingFsms(t *testing.T) {
	nl := netlist.New("merge", 10)
	a := nl.AddInterface("a", netlist.DirIn, 1)
	b := nl.AddInterface("b", netlist.DirIn, 1)
	a0 := nl.Read("a0", a, 0)
	b0 := nl.Read("b0", b, 0)
	nl.Operator("join", "add", 0, nl.DataOut(a0), nl.DataOut(b0))
	nl.Read("a1", a, 10)
	nl.Read("b1", b, 10)

	elements := detect(t, nl)
	if len(elements) != 1 {
		t.Fatalf("Detect() returned %d elements, want 1", len(elements))
	}
	f := elements[0].(*Fsm)
	if f.Name() != "fsm_a_b" {
		t.Errorf("Name() = %q, want %q", f.Name(), "fsm_a_b")
	}
	if len(f.Nodes()) != 5 {
		t.Errorf("Nodes() = %v, want all 5 nodes", f.Nodes())
	}
}

func TestAnalyzeNonSkippable(t *testing.T) {
	nl := netlist.New("share", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	rd := nl.Read("rd", in, 0)
	early := nl.Operator("early", "not", 10, nl.DataOut(rd))
	late := nl.Operator("late", "not", 20, nl.DataOut(rd))

	e, err := newEnv(nl, Options{})
	if err != nil {
		t.Fatalf("newEnv() error = %v", err)
	}
	var elements []ArchElement
	for i, id := range []netlist.NodeID{rd, early, late} {
		p, err := newPipeline(e, island.ID(i), []netlist.NodeID{id})
		if err != nil {
			t.Fatalf("newPipeline() error = %v", err)
		}
		elements = append(elements, p)
	}

	iea, err := Analyze(nl, elements)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(iea.Values) != 1 {
		t.Fatalf("Values = %d, want 1", len(iea.Values))
	}
	v := iea.Values[0]
	if len(v.Consumers) != 2 || v.Consumers[0].FirstUse != 1 || v.Consumers[1].FirstUse != 2 {
		t.Errorf("Consumers = %+v, want first uses 1 and 2", v.Consumers)
	}
	if !iea.IsNonSkippable(elements[0], 0) {
		t.Errorf("IsNonSkippable(producer, 0) = false, want true")
	}
	if iea.IsNonSkippable(elements[1], 1) {
		t.Errorf("IsNonSkippable(early, 1) = true, want false")
	}

	dup, _ := newPipeline(e, 9, []netlist.NodeID{rd})
	_, err = Analyze(nl, append(elements, dup))
	if !errors.Is(err, errors.ErrCodeStructuralInvariant) {
		t.Errorf("Analyze(duplicate owner) error = %v, want structural", err)
	}
}

// backedgeFsm builds a four-state FSM whose channel jumps from state 1
// back to state 0 when the write's extra condition holds.
func backedgeFsm(t *testing.T) (*netlist.Netlist, *Fsm, *expr.Expr) {
	t.Helper()
	nl := netlist.New("loop", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	r0 := nl.Read("r0", in, 0)
	r1 := nl.Read("r1", in, 10)
	nl.Read("r2", in, 20)
	nl.Read("r3", in, 30)
	_, cr, cw := nl.NewChannel("acc", netlist.Backedge, []int64{0}, 0, 10, nl.DataOut(r1))
	nl.Operator("sum", "add", 0, nl.DataOut(r0), nl.DataOut(cr))
	if _, err := nl.SetCondition(cw, netlist.PortExtraCond, nl.DataOut(r1)); err != nil {
		t.Fatalf("SetCondition() error = %v", err)
	}

	elements := detect(t, nl)
	if len(elements) != 1 {
		t.Fatalf("Detect() returned %d elements, want 1", len(elements))
	}
	return nl, elements[0].(*Fsm), expr.Var(cond.VarName(nl, nl.DataOut(r1)))
}

func TestFsmBackedgeTransition(t *testing.T) {
	nl, f, fire := backedgeFsm(t)
	allocate(t, nl, []ArchElement{f})

	row := f.TransitionTable()[1]
	if got := row[0]; got == nil || !expr.Equal(got, fire) {
		t.Errorf("TransitionTable()[1][0] = %v, want %v", got, fire)
	}
	if got := row[2]; got == nil || !expr.Equal(got, expr.Not(fire)) {
		t.Errorf("TransitionTable()[1][2] = %v, want %v", got, expr.Not(fire))
	}
	if f.StateReg == nil || f.StateReg.Width != 2 {
		t.Errorf("StateReg = %+v, want width 2", f.StateReg)
	}
}

func TestFsmBackedgeRejectedOverNonSkippable(t *testing.T) {
	_, f, _ := backedgeFsm(t)
	if err := f.AllocateDataPath(nil); err != nil {
		t.Fatalf("AllocateDataPath() error = %v", err)
	}
	f.nonSkippable = []int{3}
	if err := f.AllocateSync(); err != nil {
		t.Fatalf("AllocateSync() error = %v", err)
	}
	row := f.TransitionTable()[1]
	if len(row) != 1 || row[2] == nil || !row[2].IsTrue() {
		t.Errorf("TransitionTable()[1] = %v, want {2: 1}", row)
	}
}
