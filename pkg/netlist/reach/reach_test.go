package reach

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/matzehuels/syncarch/pkg/netlist"
)

// bruteReach walks the current graph from a.
func bruteReach(nl *netlist.Netlist, a netlist.NodeID, dataOnly bool) []netlist.NodeID {
	seen := map[netlist.NodeID]bool{}
	stack := []netlist.NodeID{a}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, o := range nl.MustNode(id).Outputs {
			for _, u := range o.Users {
				if dataOnly && !nl.IsDataEdge(u) {
					continue
				}
				if !seen[u.Node] {
					seen[u.Node] = true
					stack = append(stack, u.Node)
				}
			}
		}
	}
	var out []netlist.NodeID
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func agree(t *testing.T, o *Oracle, nl *netlist.Netlist, step string) {
	t.Helper()
	for _, n := range nl.Nodes() {
		if got, want := o.Successors(n.ID), bruteReach(nl, n.ID, false); !slices.Equal(got, want) {
			t.Fatalf("%s: Successors(%s) = %v, want %v", step, n, got, want)
		}
		if got, want := o.DataSuccessors(n.ID), bruteReach(nl, n.ID, true); !slices.Equal(got, want) {
			t.Fatalf("%s: DataSuccessors(%s) = %v, want %v", step, n, got, want)
		}
	}
}

func TestDataAndControlReach(t *testing.T) {
	nl := netlist.New("r", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	out := nl.AddInterface("out", netlist.DirOut, 1)
	rd := nl.Read("rd", in, 0)
	add := nl.Operator("add", "add", 0, nl.DataOut(rd))
	wr := nl.Write("wr", out, 0, nl.DataOut(add))
	other := nl.Read("other", in, 0)
	o := New(nl)

	if !o.DoesReachTo(rd, wr) {
		t.Errorf("DoesReachTo(rd, wr) = false, want true")
	}
	if o.DoesReachTo(wr, rd) {
		t.Errorf("DoesReachTo(wr, rd) = true, want false")
	}
	if o.DoesReachToControl(wr, other) {
		t.Errorf("DoesReachToControl(wr, other) before ordering = true, want false")
	}

	if _, err := nl.AddOrdering(wr, other); err != nil {
		t.Fatalf("AddOrdering() error = %v", err)
	}
	if !o.DoesReachToControl(rd, other) {
		t.Errorf("DoesReachToControl(rd, other) = false, want true")
	}
	if o.DoesReachTo(rd, other) {
		t.Errorf("DoesReachTo(rd, other) through ordering = true, want false")
	}
	if !o.WouldCreateCycle(other, rd) {
		t.Errorf("WouldCreateCycle(other, rd) = false, want true")
	}
	if o.WouldCreateCycle(rd, other) {
		t.Errorf("WouldCreateCycle(rd, other) = true, want false")
	}
	if !o.PortReaches(nl.DataOut(rd), wr) {
		t.Errorf("PortReaches(rd.data, wr) = false, want true")
	}
	if o.PortReaches(netlist.OutRef{Node: rd, Index: 1}, wr) {
		t.Errorf("PortReaches(rd.order, wr) = true, want false")
	}
	agree(t, o, nl, "ordering")
}

func TestDisconnectShrinks(t *testing.T) {
	nl := netlist.New("r", 10)
	a := nl.Const("a", 1, 0)
	b := nl.Operator("b", "not", 0, nl.DataOut(a))
	c := nl.Operator("c", "not", 0, nl.DataOut(b))
	d := nl.Operator("d", "and", 0, nl.DataOut(a), nl.DataOut(c))
	o := New(nl)

	if !o.DoesReachTo(a, d) || !o.DoesReachTo(b, d) {
		t.Fatalf("initial reach incorrect")
	}
	nl.Disconnect(netlist.InRef{Node: d, Index: 1})
	if o.DoesReachTo(b, d) {
		t.Errorf("DoesReachTo(b, d) after disconnect = true, want false")
	}
	if !o.DoesReachTo(a, d) {
		t.Errorf("DoesReachTo(a, d) after disconnect = false, want true (direct edge)")
	}
	if got := o.Predecessors(d); !slices.Equal(got, []netlist.NodeID{a}) {
		t.Errorf("Predecessors(d) = %v, want [%d]", got, a)
	}
	agree(t, o, nl, "disconnect")
}

func TestRemoveAndCompact(t *testing.T) {
	nl := netlist.New("r", 10)
	a := nl.Const("a", 1, 0)
	b := nl.Operator("b", "not", 0, nl.DataOut(a))
	c := nl.Operator("c", "not", 0, nl.DataOut(b))
	o := New(nl)

	nl.Remove(b)
	if o.DoesReachTo(a, c) {
		t.Errorf("DoesReachTo(a, c) after Remove(b) = true, want false")
	}
	remap := nl.Compact()
	na, nc := remap[a], remap[c]
	idx := nl.AddInput(nc, netlist.PortData, "x")
	nl.MustConnect(nl.DataOut(na), netlist.InRef{Node: nc, Index: idx})
	if !o.DoesReachTo(na, nc) {
		t.Errorf("DoesReachTo after Compact and reconnect = false, want true")
	}
	agree(t, o, nl, "compact")
}

func TestRestoreRebuilds(t *testing.T) {
	nl := netlist.New("r", 10)
	a := nl.Const("a", 1, 0)
	b := nl.Operator("b", "not", 0, netlist.OutRef{})
	o := New(nl)
	snap := nl.Snapshot()
	nl.MustConnect(nl.DataOut(a), netlist.InRef{Node: b, Index: 0})
	if !o.DoesReachTo(a, b) {
		t.Fatalf("DoesReachTo(a, b) = false, want true")
	}
	nl.Restore(snap)
	if o.DoesReachTo(a, b) {
		t.Errorf("DoesReachTo(a, b) after Restore = true, want false")
	}
}

func TestRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nl := netlist.New("rand", 10)
	const n = 24
	ids := make([]netlist.NodeID, n)
	for i := range ids {
		ids[i] = nl.Operator("n", "op", 0, netlist.OutRef{}, netlist.OutRef{}, netlist.OutRef{})
		nl.AddOutput(ids[i], netlist.PortOrdering, "order")
	}
	o := New(nl)

	for step := 0; step < 300; step++ {
		// edges only go from lower to higher index, so the graph stays acyclic
		i, j := rng.Intn(n), rng.Intn(n)
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		in := netlist.InRef{Node: ids[j], Index: rng.Intn(3)}
		if nl.Driver(in).Connected() {
			nl.Disconnect(in)
		} else {
			nl.MustConnect(netlist.OutRef{Node: ids[i], Index: rng.Intn(2)}, in)
		}
		if step%5 == 0 {
			agree(t, o, nl, "random")
		}
	}
	agree(t, o, nl, "final")
}
