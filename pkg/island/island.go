package island

import (
	"slices"

	"github.com/matzehuels/syncarch/pkg/netlist"
)

// ID identifies an island within one Islands partition.
type ID int

// Island is a maximal region of the netlist bounded by ExplicitSync nodes.
//
// Inputs are sync nodes whose outputs feed the island; outputs are sync
// nodes whose inputs are driven from it. A sync whose data input is driven
// from inside the island is a data output, any other output is a control
// output. Nodes holds the non-sync members.
type Island struct {
	ID             ID
	Inputs         []netlist.NodeID
	ControlOutputs []netlist.NodeID
	DataOutputs    []netlist.NodeID
	Nodes          []netlist.NodeID
	// LoopInputs lists inputs reachable from the island's own outputs.
	// They stay in Inputs but are treated as outputs when ordering islands.
	LoopInputs []netlist.NodeID
}

// Outputs returns the data and control outputs, ascending.
func (is *Island) Outputs() []netlist.NodeID {
	out := slices.Concat(is.DataOutputs, is.ControlOutputs)
	slices.Sort(out)
	return out
}

// Empty reports whether the island has no members at all.
func (is *Island) Empty() bool {
	return len(is.Inputs) == 0 && len(is.DataOutputs) == 0 &&
		len(is.ControlOutputs) == 0 && len(is.Nodes) == 0
}

// IsLoopInput reports whether sync node s is a reclassified input.
func (is *Island) IsLoopInput(s netlist.NodeID) bool {
	return slices.Contains(is.LoopInputs, s)
}

// Islands is a partition of a netlist into sync islands.
type Islands struct {
	nl   *netlist.Netlist
	list []*Island

	inputOf  map[netlist.NodeID]*Island
	outputOf map[netlist.NodeID]*Island
	nodeOf   map[netlist.NodeID]*Island
}

func newIslands(nl *netlist.Netlist) *Islands {
	return &Islands{
		nl:       nl,
		inputOf:  map[netlist.NodeID]*Island{},
		outputOf: map[netlist.NodeID]*Island{},
		nodeOf:   map[netlist.NodeID]*Island{},
	}
}

// Netlist returns the partitioned netlist.
func (p *Islands) Netlist() *netlist.Netlist { return p.nl }

// List returns the islands in ascending ID order.
func (p *Islands) List() []*Island { return p.list }

// Len returns the number of islands.
func (p *Islands) Len() int { return len(p.list) }

// Get returns the island with the given ID, or nil.
func (p *Islands) Get(id ID) *Island {
	i, ok := slices.BinarySearchFunc(p.list, id, func(is *Island, id ID) int { return int(is.ID - id) })
	if !ok {
		return nil
	}
	return p.list[i]
}

// InputOf returns the island sync node s is an input of.
func (p *Islands) InputOf(s netlist.NodeID) *Island { return p.inputOf[s] }

// OutputOf returns the island sync node s is an output of.
func (p *Islands) OutputOf(s netlist.NodeID) *Island { return p.outputOf[s] }

// Of returns the island owning node id. Sync nodes belong to the island
// they are an input of.
func (p *Islands) Of(id netlist.NodeID) *Island {
	if is, ok := p.nodeOf[id]; ok {
		return is
	}
	return p.inputOf[id]
}

// Successors returns the islands fed by the outputs of is, ascending,
// skipping edges into loop inputs.
func (p *Islands) Successors(is *Island) []*Island {
	var out []*Island
	for _, s := range is.Outputs() {
		next := p.inputOf[s]
		if next == nil || next == is || next.IsLoopInput(s) || slices.Contains(out, next) {
			continue
		}
		out = append(out, next)
	}
	slices.SortFunc(out, byID)
	return out
}

// Predecessors returns the islands feeding the inputs of is, ascending,
// skipping loop inputs.
func (p *Islands) Predecessors(is *Island) []*Island {
	var out []*Island
	for _, s := range is.Inputs {
		prev := p.outputOf[s]
		if prev == nil || prev == is || is.IsLoopInput(s) || slices.Contains(out, prev) {
			continue
		}
		out = append(out, prev)
	}
	slices.SortFunc(out, byID)
	return out
}

// Order returns the islands in topological order of the island graph, ties
// broken by ID. Islands left on a cycle are appended in ID order.
func (p *Islands) Order() []*Island {
	indeg := make(map[ID]int, len(p.list))
	for _, is := range p.list {
		indeg[is.ID] = len(p.Predecessors(is))
	}
	var ready, order []*Island
	for _, is := range p.list {
		if indeg[is.ID] == 0 {
			ready = append(ready, is)
		}
	}
	done := map[ID]bool{}
	for len(ready) > 0 {
		is := ready[0]
		ready = ready[1:]
		order = append(order, is)
		done[is.ID] = true
		for _, next := range p.Successors(is) {
			indeg[next.ID]--
			if indeg[next.ID] == 0 {
				i, _ := slices.BinarySearchFunc(ready, next, byID)
				ready = slices.Insert(ready, i, next)
			}
		}
	}
	for _, is := range p.list {
		if !done[is.ID] {
			order = append(order, is)
		}
	}
	return order
}

// Reaches reports whether island b is reachable from a in the island
// graph through at least one edge.
func (p *Islands) Reaches(a, b *Island) bool {
	seen := map[ID]bool{}
	stack := p.Successors(a)
	for len(stack) > 0 {
		is := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if is == b {
			return true
		}
		if seen[is.ID] {
			continue
		}
		seen[is.ID] = true
		stack = append(stack, p.Successors(is)...)
	}
	return false
}

// Access is one (interface, clock) pair touched by a read or write.
type Access struct {
	Iface string
	Clk   int
}

// Accesses returns the set of interface accesses performed by the nodes of
// all islands. Merging never changes it.
func (p *Islands) Accesses() map[Access]int {
	acc := map[Access]int{}
	for _, is := range p.list {
		for _, id := range is.Nodes {
			n := p.nl.MustNode(id)
			if io := n.IO(); io != nil && io.Iface != nil {
				acc[Access{Iface: io.Iface.Name, Clk: p.nl.Clk(id)}]++
			}
		}
	}
	return acc
}

// Clks returns the distinct clock indexes of the non-sync members of is,
// ascending.
func (p *Islands) Clks(is *Island) []int {
	var clks []int
	for _, id := range is.Nodes {
		c := p.nl.Clk(id)
		if i, ok := slices.BinarySearch(clks, c); !ok {
			clks = slices.Insert(clks, i, c)
		}
	}
	return clks
}

func (p *Islands) add(is *Island) {
	slices.Sort(is.Inputs)
	slices.Sort(is.DataOutputs)
	slices.Sort(is.ControlOutputs)
	slices.Sort(is.Nodes)
	for _, s := range is.Inputs {
		p.inputOf[s] = is
	}
	for _, s := range is.Outputs() {
		p.outputOf[s] = is
	}
	for _, n := range is.Nodes {
		p.nodeOf[n] = is
	}
	i, _ := slices.BinarySearchFunc(p.list, is, byID)
	p.list = slices.Insert(p.list, i, is)
}

func (p *Islands) remove(is *Island) {
	p.list = slices.DeleteFunc(p.list, func(x *Island) bool { return x == is })
}

func byID(a, b *Island) int { return int(a.ID - b.ID) }
