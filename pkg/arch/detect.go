package arch

import (
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Options configures element construction.
type Options struct {
	// TopExtraCond gates every stage of every element. Nil means 1.
	TopExtraCond *expr.Expr
	// Logger receives rejected transitions at debug level. Nil discards.
	Logger *log.Logger
}

// Detect splits nl into elements. Every interface accessed by more live
// read/write nodes than it has ports gets an IoFsm with one state per
// distinct access clock; FSMs claiming a common node are merged. Nodes not
// claimed by an FSM form one pipeline per island, visited in island order.
// Loop status nodes are compiled here, so a malformed loop fails detection.
func Detect(nl *netlist.Netlist, p *island.Islands, opts Options) ([]ArchElement, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	e, err := newEnv(nl, opts)
	if err != nil {
		return nil, err
	}

	var elements []ArchElement
	claimed := map[netlist.NodeID]bool{}
	for _, seed := range detectFsms(nl) {
		f, err := newFsm(e, seed)
		if err != nil {
			return nil, err
		}
		for _, id := range f.Nodes() {
			claimed[id] = true
		}
		elements = append(elements, f)
	}

	for _, is := range p.Order() {
		var nodes []netlist.NodeID
		for _, id := range slices.Concat(is.Nodes, is.Inputs) {
			if nl.Live(id) && !claimed[id] {
				nodes = append(nodes, id)
				claimed[id] = true
			}
		}
		if len(nodes) == 0 {
			continue
		}
		pl, err := newPipeline(e, is.ID, nodes)
		if err != nil {
			return nil, err
		}
		elements = append(elements, pl)
	}

	for _, n := range nl.Nodes() {
		if n.Kind != netlist.KindIoClusterCore && !claimed[n.ID] {
			return nil, errors.StructuralAt(n, "not covered by any island")
		}
	}
	return elements, nil
}

type fsmSeed struct {
	ifaces []string
	nodes  map[netlist.NodeID]bool
}

// detectFsms returns one seed per multiply-accessed interface, merged where
// seeds share nodes.
func detectFsms(nl *netlist.Netlist) []*fsmSeed {
	accesses := map[*netlist.Interface][]netlist.NodeID{}
	for _, n := range nl.Nodes() {
		if acc := n.IO(); acc != nil && acc.Iface != nil {
			accesses[acc.Iface] = append(accesses[acc.Iface], n.ID)
		}
	}
	multi := map[netlist.NodeID]*netlist.Interface{}
	var ifaces []*netlist.Interface
	for _, i := range nl.Interfaces() {
		if len(accesses[i]) > i.Ports {
			ifaces = append(ifaces, i)
			for _, id := range accesses[i] {
				multi[id] = i
			}
		}
	}

	var seeds []*fsmSeed
	for _, i := range ifaces {
		s := &fsmSeed{ifaces: []string{i.Name}, nodes: map[netlist.NodeID]bool{}}
		for _, a := range accesses[i] {
			floodState(nl, a, i, multi, s.nodes)
		}
		seeds = append(seeds, s)
	}
	return mergeSeeds(seeds)
}

// floodState collects the nodes scheduled in the same clock as access a
// and connected to it without crossing an access of another
// multiply-accessed interface.
func floodState(nl *netlist.Netlist, a netlist.NodeID, iface *netlist.Interface,
	multi map[netlist.NodeID]*netlist.Interface, into map[netlist.NodeID]bool) {
	clk := nl.Clk(a)
	into[a] = true
	stack := []netlist.NodeID{a}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range slices.Concat(nl.Drivers(id), nl.Users(id)) {
			if into[nb] || nl.Clk(nb) != clk {
				continue
			}
			if other, ok := multi[nb]; ok && other != iface {
				continue
			}
			if nl.MustNode(nb).Kind == netlist.KindIoClusterCore {
				continue
			}
			into[nb] = true
			stack = append(stack, nb)
		}
	}
}

func mergeSeeds(seeds []*fsmSeed) []*fsmSeed {
	for changed := true; changed; {
		changed = false
	outer:
		for i := 0; i < len(seeds); i++ {
			for j := i + 1; j < len(seeds); j++ {
				if !overlaps(seeds[i].nodes, seeds[j].nodes) {
					continue
				}
				for id := range seeds[j].nodes {
					seeds[i].nodes[id] = true
				}
				seeds[i].ifaces = append(seeds[i].ifaces, seeds[j].ifaces...)
				seeds = slices.Delete(seeds, j, j+1)
				changed = true
				break outer
			}
		}
	}
	return seeds
}

func overlaps(a, b map[netlist.NodeID]bool) bool {
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}

func (s *fsmSeed) name() string {
	return "fsm_" + strings.Join(s.ifaces, "_")
}
