package netlist

import (
	"errors"
	"slices"
)

// ErrCycle is returned by TopoOrder when the edge graph has a cycle.
var ErrCycle = errors.New("netlist contains a cycle")

// DirectDataSuccessors walks data edges forward from id and stops at the
// first ExplicitSync on every path. It returns the non-sync nodes visited
// and the sync nodes where the walk stopped, both in ascending ID order.
func (nl *Netlist) DirectDataSuccessors(id NodeID) (nodes, syncs []NodeID) {
	return nl.directData(id, true)
}

// DirectDataPredecessors is DirectDataSuccessors walking backwards.
func (nl *Netlist) DirectDataPredecessors(id NodeID) (nodes, syncs []NodeID) {
	return nl.directData(id, false)
}

func (nl *Netlist) directData(start NodeID, forward bool) (nodes, syncs []NodeID) {
	seen := map[NodeID]bool{start: true}
	queue := []NodeID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range nl.dataNeighbours(id, forward) {
			if seen[next] {
				continue
			}
			seen[next] = true
			if nl.MustNode(next).IsSync() {
				syncs = append(syncs, next)
				continue
			}
			nodes = append(nodes, next)
			queue = append(queue, next)
		}
	}
	slices.Sort(nodes)
	slices.Sort(syncs)
	return nodes, syncs
}

func (nl *Netlist) dataNeighbours(id NodeID, forward bool) []NodeID {
	n := nl.MustNode(id)
	var out []NodeID
	if forward {
		for o, port := range n.Outputs {
			if port.Kind != PortData {
				continue
			}
			for _, u := range n.Outputs[o].Users {
				if nl.In(u).Kind == PortData {
					out = append(out, u.Node)
				}
			}
		}
		return out
	}
	for i, port := range n.Inputs {
		if port.Driver.Connected() && nl.IsDataEdge(InRef{Node: id, Index: i}) {
			out = append(out, port.Driver.Node)
		}
	}
	return out
}

// TopoOrder returns the live nodes in a topological order of all edges
// (data and control), ties broken by ascending ID. Channel read/write
// partners are not edges, so loops through channels are not cycles.
func (nl *Netlist) TopoOrder() ([]NodeID, error) {
	indeg := make([]int, len(nl.nodes))
	var ready []NodeID
	for _, n := range nl.Nodes() {
		for _, in := range n.Inputs {
			if in.Driver.Connected() {
				indeg[n.ID]++
			}
		}
		if indeg[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	order := make([]NodeID, 0, len(nl.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, o := range nl.nodes[id].Outputs {
			for _, u := range o.Users {
				indeg[u.Node]--
				if indeg[u.Node] == 0 {
					i, _ := slices.BinarySearch(ready, u.Node)
					ready = slices.Insert(ready, i, u.Node)
				}
			}
		}
	}

	if len(order) != nl.NodeCount() {
		return order, ErrCycle
	}
	return order, nil
}
