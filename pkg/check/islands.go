package check

import (
	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Islands verifies the partition invariants of p: every sync node is
// input of exactly one island and output of exactly one island, every other
// live node except IoClusterCore markers belongs to exactly one island, no
// island is empty and no island refers to a removed node.
func Islands(p *island.Islands) error {
	nl := p.Netlist()
	inputs := map[netlist.NodeID]island.ID{}
	outputs := map[netlist.NodeID]island.ID{}
	owners := map[netlist.NodeID]island.ID{}

	claim := func(m map[netlist.NodeID]island.ID, id netlist.NodeID, is *island.Island, role string) error {
		if !nl.Live(id) {
			return errors.Structural("island %d: %s %d is not a live node", is.ID, role, id)
		}
		if prev, ok := m[id]; ok {
			return errors.StructuralAt(nl.MustNode(id), "%s of islands %d and %d", role, prev, is.ID)
		}
		m[id] = is.ID
		return nil
	}

	for _, is := range p.List() {
		if is.Empty() {
			return errors.Structural("island %d is empty", is.ID)
		}
		for _, s := range is.Inputs {
			if err := claim(inputs, s, is, "input"); err != nil {
				return err
			}
		}
		for _, s := range is.Outputs() {
			if err := claim(outputs, s, is, "output"); err != nil {
				return err
			}
		}
		for _, id := range is.Nodes {
			if err := claim(owners, id, is, "member"); err != nil {
				return err
			}
		}
	}

	for _, n := range nl.Nodes() {
		switch {
		case n.IsSync():
			if _, ok := inputs[n.ID]; !ok {
				return errors.StructuralAt(n, "not an input of any island")
			}
			if _, ok := outputs[n.ID]; !ok {
				return errors.StructuralAt(n, "not an output of any island")
			}
			if _, ok := owners[n.ID]; ok {
				return errors.StructuralAt(n, "sync node listed as island member")
			}
		case n.Kind == netlist.KindIoClusterCore:
		default:
			if _, ok := owners[n.ID]; !ok {
				return errors.StructuralAt(n, "not a member of any island")
			}
		}
	}
	return nil
}
