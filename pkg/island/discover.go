package island

import (
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

// part is one flood element: a non-sync node, or one half of a sync node.
type part struct {
	id   netlist.NodeID
	half uint8
}

const (
	whole uint8 = iota
	inHalf
	outHalf
)

// Discover partitions nl into sync islands.
//
// Every sync node is split into the half owning its inputs and the half
// owning its outputs. Starting from each sync half in ascending ID order
// (then from any non-sync node not reached yet), the flood follows every
// edge and stops at sync halves: an edge into a sync input pulls in the
// sync's input half (the sync becomes an island output), an edge out of a
// sync output pulls in its output half (the sync becomes an island input).
// A sync is therefore input of exactly one island and output of exactly
// one island.
//
// IoClusterCore nodes carry no edges and are not part of any island.
func Discover(nl *netlist.Netlist, oracle *reach.Oracle) *Islands {
	p := newIslands(nl)
	seen := map[part]bool{}
	next := ID(0)

	flood := func(seed part) {
		if seen[seed] {
			return
		}
		is := &Island{ID: next}
		next++
		seen[seed] = true
		queue := []part{seed}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			switch cur.half {
			case whole:
				is.Nodes = append(is.Nodes, cur.id)
			case inHalf:
				if dataDriven(nl, cur.id) {
					is.DataOutputs = append(is.DataOutputs, cur.id)
				} else {
					is.ControlOutputs = append(is.ControlOutputs, cur.id)
				}
			case outHalf:
				is.Inputs = append(is.Inputs, cur.id)
			}
			for _, nb := range neighbours(nl, cur) {
				if !seen[nb] {
					seen[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		p.add(is)
	}

	for _, n := range nl.NodesOf(netlist.KindExplicitSync) {
		flood(part{n.ID, outHalf})
		flood(part{n.ID, inHalf})
	}
	for _, n := range nl.Nodes() {
		if n.IsSync() || n.Kind == netlist.KindIoClusterCore {
			continue
		}
		flood(part{n.ID, whole})
	}

	for _, is := range p.list {
		classifyLoopInputs(oracle, is)
	}
	return p
}

// classifyLoopInputs records inputs reachable from the island's own
// outputs so island ordering does not see a spurious cycle.
func classifyLoopInputs(oracle *reach.Oracle, is *Island) {
	is.LoopInputs = is.LoopInputs[:0]
	outs := is.Outputs()
	for _, in := range is.Inputs {
		for _, o := range outs {
			if o == in || oracle.DoesReachToControl(o, in) {
				is.LoopInputs = append(is.LoopInputs, in)
				break
			}
		}
	}
}

func dataDriven(nl *netlist.Netlist, s netlist.NodeID) bool {
	i, ok := nl.MustNode(s).InputOf(netlist.PortData)
	return ok && nl.IsDataEdge(netlist.InRef{Node: s, Index: i})
}

// as returns the flood element an edge endpoint belongs to. src is true
// for the driving end of the edge.
func as(nl *netlist.Netlist, id netlist.NodeID, src bool) part {
	if !nl.MustNode(id).IsSync() {
		return part{id, whole}
	}
	if src {
		return part{id, outHalf}
	}
	return part{id, inHalf}
}

func neighbours(nl *netlist.Netlist, p part) []part {
	n := nl.MustNode(p.id)
	var out []part
	if p.half != outHalf {
		for _, in := range n.Inputs {
			if in.Driver.Connected() {
				out = append(out, as(nl, in.Driver.Node, true))
			}
		}
	}
	if p.half != inHalf {
		for _, o := range n.Outputs {
			for _, u := range o.Users {
				out = append(out, as(nl, u.Node, false))
			}
		}
	}
	return out
}
