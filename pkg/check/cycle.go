package check

import (
	"strings"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Acyclic verifies that the data and control edges of nl form a DAG.
// Channels are not edges, so loop-carried values through backedges are
// fine. The error names the nodes of one cycle.
func Acyclic(nl *netlist.Netlist) error {
	if cycle := FindCycle(nl); cycle != nil {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = nl.MustNode(id).String()
		}
		return errors.Structural("cycle: %s", strings.Join(names, " -> "))
	}
	return nil
}

// FindCycle returns the nodes of one edge cycle in nl, or nil. It is an
// iterative three-colour depth-first search started from every node in
// ascending ID order.
func FindCycle(nl *netlist.Netlist) []netlist.NodeID {
	const (
		white = iota
		gray
		black
	)
	color := make([]uint8, nl.Cap())

	type frame struct {
		id   netlist.NodeID
		next []netlist.NodeID
	}
	for _, root := range nl.Nodes() {
		if color[root.ID] != white {
			continue
		}
		color[root.ID] = gray
		stack := []frame{{root.ID, nl.Users(root.ID)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if len(top.next) == 0 {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := top.next[0]
			top.next = top.next[1:]
			switch color[child] {
			case white:
				color[child] = gray
				stack = append(stack, frame{child, nl.Users(child)})
			case gray:
				var cycle []netlist.NodeID
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append(cycle, stack[i].id)
					if stack[i].id == child {
						break
					}
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
		}
	}
	return nil
}
