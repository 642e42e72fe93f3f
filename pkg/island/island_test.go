package island

import (
	"maps"
	"slices"
	"testing"

	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

// chain builds rd -> s1 -> inc -> s2 -> wr.
func chain(t *testing.T) (nl *netlist.Netlist, rd, s1, inc, s2, wr netlist.NodeID) {
	t.Helper()
	nl = netlist.New("chain", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	out := nl.AddInterface("out", netlist.DirOut, 1)
	rd = nl.Read("rd", in, 0)
	s1 = nl.ExplicitSync("s1", 0, nl.DataOut(rd))
	inc = nl.Operator("inc", "add", 10, nl.DataOut(s1))
	s2 = nl.ExplicitSync("s2", 10, nl.DataOut(inc))
	wr = nl.Write("wr", out, 20, nl.DataOut(s2))
	return
}

// partitioned verifies the partition invariants.
func partitioned(t *testing.T, p *Islands) {
	t.Helper()
	nl := p.Netlist()
	inputs, outputs, owners := map[netlist.NodeID]int{}, map[netlist.NodeID]int{}, map[netlist.NodeID]int{}
	for _, is := range p.List() {
		if is.Empty() {
			t.Errorf("island %d is empty", is.ID)
		}
		for _, s := range is.Inputs {
			inputs[s]++
		}
		for _, s := range is.Outputs() {
			outputs[s]++
		}
		for _, n := range is.Nodes {
			owners[n]++
		}
	}
	for _, n := range nl.Nodes() {
		switch {
		case n.IsSync():
			if inputs[n.ID] != 1 || outputs[n.ID] != 1 {
				t.Errorf("%s: input of %d islands, output of %d, want 1 and 1", n, inputs[n.ID], outputs[n.ID])
			}
		case n.Kind == netlist.KindIoClusterCore:
		default:
			if owners[n.ID] != 1 {
				t.Errorf("%s: owned by %d islands, want 1", n, owners[n.ID])
			}
		}
	}
}

func TestDiscoverChain(t *testing.T) {
	nl, rd, s1, inc, s2, wr := chain(t)
	p := Discover(nl, reach.New(nl))
	partitioned(t, p)

	if p.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", p.Len())
	}
	mid := p.Of(inc)
	if !slices.Equal(mid.Inputs, []netlist.NodeID{s1}) {
		t.Errorf("middle Inputs = %v, want [%d]", mid.Inputs, s1)
	}
	if !slices.Equal(mid.DataOutputs, []netlist.NodeID{s2}) {
		t.Errorf("middle DataOutputs = %v, want [%d]", mid.DataOutputs, s2)
	}
	if p.OutputOf(s1) != p.Of(rd) {
		t.Errorf("OutputOf(s1) = %v, want island of rd", p.OutputOf(s1).ID)
	}
	if p.InputOf(s2) != p.Of(wr) {
		t.Errorf("InputOf(s2) = %v, want island of wr", p.InputOf(s2).ID)
	}
	if p.Of(s1) != mid {
		t.Errorf("Of(s1) = island %d, want the island it is input of (%d)", p.Of(s1).ID, mid.ID)
	}

	order := p.Order()
	want := []ID{p.Of(rd).ID, mid.ID, p.Of(wr).ID}
	var got []ID
	for _, is := range order {
		got = append(got, is.ID)
	}
	if !slices.Equal(got, want) {
		t.Errorf("Order() = %v, want %v", got, want)
	}
}

func TestDiscoverControlOutput(t *testing.T) {
	nl := netlist.New("ctl", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	nl.Read("rd", in, 0)
	c := nl.Const("c", 1, 0)
	s := nl.ExplicitSync("s", 0, netlist.OutRef{})
	if _, err := nl.SetCondition(s, netlist.PortExtraCond, nl.DataOut(c)); err != nil {
		t.Fatalf("SetCondition() error = %v", err)
	}
	p := Discover(nl, reach.New(nl))
	partitioned(t, p)
	if got := p.OutputOf(s).ControlOutputs; !slices.Equal(got, []netlist.NodeID{s}) {
		t.Errorf("ControlOutputs = %v, want [%d]", got, s)
	}
}

func TestLoopInputsReclassified(t *testing.T) {
	nl := netlist.New("loop", 10)
	head := nl.ExplicitSync("head", 0, netlist.OutRef{})
	body := nl.Operator("body", "add", 0, nl.DataOut(head))
	tail := nl.ExplicitSync("tail", 0, nl.DataOut(body))
	back := nl.Operator("back", "add", 0, nl.DataOut(tail))
	nl.MustConnect(nl.DataOut(back), netlist.InRef{Node: head, Index: 0})

	p := Discover(nl, reach.New(nl))
	partitioned(t, p)
	is := p.Of(body)
	if !is.IsLoopInput(head) {
		t.Errorf("LoopInputs = %v, want head %d reclassified", is.LoopInputs, head)
	}
	if len(p.Order()) != p.Len() {
		t.Errorf("Order() dropped islands")
	}
	for _, pred := range p.Predecessors(is) {
		if pred == p.Of(back) {
			t.Errorf("Predecessors() follows the reclassified loop input")
		}
	}
}

func TestMergeChainCollapses(t *testing.T) {
	nl, _, _, _, _, _ := chain(t)
	oracle := reach.New(nl)
	p := Discover(nl, oracle)
	before := p.Accesses()

	n := Merge(p, oracle, MergeOptions{})
	partitioned(t, p)
	if n != 2 || p.Len() != 1 {
		t.Errorf("Merge() = %d merges, %d islands, want 2 and 1", n, p.Len())
	}
	if after := p.Accesses(); !maps.Equal(before, after) {
		t.Errorf("Accesses() changed: %v -> %v", before, after)
	}
	if again := Merge(p, oracle, MergeOptions{}); again != 0 {
		t.Errorf("second Merge() = %d, want 0", again)
	}
}

func TestMergeKeepsLoopRolesApart(t *testing.T) {
	nl := netlist.New("roles", 10)
	a := nl.AddInterface("a", netlist.DirIn, 1)
	b := nl.AddInterface("b", netlist.DirIn, 1)
	rdA := nl.Read("rdA", a, 0)
	sA := nl.ExplicitSync("sA", 0, nl.DataOut(rdA))
	ce := nl.Operator("ce", "not", 0, nl.DataOut(sA))
	rdB := nl.Read("rdB", b, 0)
	sB := nl.ExplicitSync("sB", 0, nl.DataOut(rdB))
	cr := nl.Operator("cr", "not", 0, nl.DataOut(sB))
	l := nl.LoopStatus("L", 0)
	nl.AddLoopPort(l, netlist.PortEnter, nl.DataOut(ce))
	nl.AddLoopPort(l, netlist.PortReenter, nl.DataOut(cr))

	oracle := reach.New(nl)
	p := Discover(nl, oracle)
	before := p.Accesses()
	Merge(p, oracle, MergeOptions{})
	partitioned(t, p)

	if p.OutputOf(sA) == p.OutputOf(sB) {
		t.Errorf("enter and reenter condition producers merged into island %d", p.OutputOf(sA).ID)
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
	if after := p.Accesses(); !maps.Equal(before, after) {
		t.Errorf("Accesses() changed: %v -> %v", before, after)
	}
}

func TestMergeRejectsIslandCycle(t *testing.T) {
	// x feeds y through s2 and z through s4; y feeds z through s3.
	nl := netlist.New("diamond", 10)
	s1 := nl.ExplicitSync("s1", 0, netlist.OutRef{})
	x := nl.Operator("x", "add", 0, nl.DataOut(s1))
	s2 := nl.ExplicitSync("s2", 0, nl.DataOut(x))
	s4 := nl.ExplicitSync("s4", 0, nl.DataOut(x))
	y := nl.Operator("y", "add", 0, nl.DataOut(s2))
	s3 := nl.ExplicitSync("s3", 0, nl.DataOut(y))
	z := nl.Operator("z", "add", 0, nl.DataOut(s3), nl.DataOut(s4))

	oracle := reach.New(nl)
	p := Discover(nl, oracle)
	m := &merger{p: p, oracle: oracle, logger: discard()}
	if m.allowed(p.Of(x), p.Of(z), "test") {
		t.Errorf("allowed(x, z) = true, want false (y lies between them)")
	}
	if !m.allowed(p.Of(x), p.Of(y), "test") {
		t.Errorf("allowed(x, y) = false, want true")
	}
}
