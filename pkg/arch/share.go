package arch

import (
	"slices"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Consumer is one element reading a shared value.
type Consumer struct {
	Element ArchElement
	// FirstUse is the earliest clock index any user in Element reads the
	// value.
	FirstUse int
	Users    []netlist.InRef
}

// SharedValue is an output crossing an element boundary.
type SharedValue struct {
	Out   netlist.OutRef
	Owner ArchElement
	// Clk is the clock index the value is produced in.
	Clk       int
	Consumers []Consumer
}

// InterArchAnalysis resolves, for every value crossing an element
// boundary, its owner, its consumers and when each consumer first uses it.
type InterArchAnalysis struct {
	Values []*SharedValue

	owner        map[netlist.NodeID]ArchElement
	nonSkippable map[ArchElement][]int
}

// Analyze builds the sharing analysis. Every live node except cluster
// markers must be owned by exactly one element.
func Analyze(nl *netlist.Netlist, elements []ArchElement) (*InterArchAnalysis, error) {
	a := &InterArchAnalysis{
		owner:        map[netlist.NodeID]ArchElement{},
		nonSkippable: map[ArchElement][]int{},
	}
	for _, el := range elements {
		for _, id := range el.Nodes() {
			if prev, ok := a.owner[id]; ok {
				return nil, errors.StructuralAt(nl.MustNode(id), "owned by %s and %s", prev.Name(), el.Name())
			}
			a.owner[id] = el
		}
	}

	for _, el := range elements {
		for _, id := range el.Nodes() {
			n := nl.MustNode(id)
			for o, out := range n.Outputs {
				if out.Kind == netlist.PortOrdering || len(out.Users) == 0 {
					continue
				}
				v, err := a.share(nl, el, netlist.OutRef{Node: id, Index: o})
				if err != nil {
					return nil, err
				}
				if v != nil {
					a.Values = append(a.Values, v)
				}
			}
		}
	}
	a.markNonSkippable()
	return a, nil
}

func (a *InterArchAnalysis) share(nl *netlist.Netlist, el ArchElement, ref netlist.OutRef) (*SharedValue, error) {
	var v *SharedValue
	for _, u := range nl.Out(ref).Users {
		owner, ok := a.owner[u.Node]
		if !ok {
			return nil, errors.StructuralAt(nl.MustNode(ref.Node), "user %s is not owned by any element", nl.MustNode(u.Node))
		}
		if owner == el {
			continue
		}
		if v == nil {
			v = &SharedValue{Out: ref, Owner: el, Clk: nl.Clk(ref.Node)}
		}
		at := nl.ClkIndex(nl.MustNode(u.Node).ScheduledIn[u.Index])
		i := slices.IndexFunc(v.Consumers, func(c Consumer) bool { return c.Element == owner })
		if i < 0 {
			v.Consumers = append(v.Consumers, Consumer{Element: owner, FirstUse: at})
			i = len(v.Consumers) - 1
		}
		c := &v.Consumers[i]
		c.FirstUse = min(c.FirstUse, at)
		c.Users = append(c.Users, u)
	}
	return v, nil
}

// markNonSkippable finds the producer states whose values are first
// observed by two different elements at two different clocks. Skipping
// such a state would reorder what those elements see.
func (a *InterArchAnalysis) markNonSkippable() {
	type use struct {
		el  ArchElement
		clk int
	}
	uses := map[ArchElement]map[int][]use{}
	for _, v := range a.Values {
		if uses[v.Owner] == nil {
			uses[v.Owner] = map[int][]use{}
		}
		for _, c := range v.Consumers {
			uses[v.Owner][v.Clk] = append(uses[v.Owner][v.Clk], use{c.Element, c.FirstUse})
		}
	}
	for el, byClk := range uses {
		for clk, us := range byClk {
			if conflicting(us, func(x, y use) bool { return x.el != y.el && x.clk != y.clk }) {
				a.nonSkippable[el] = append(a.nonSkippable[el], clk)
			}
		}
		slices.Sort(a.nonSkippable[el])
	}
}

func conflicting[T any](xs []T, differ func(x, y T) bool) bool {
	for i := range xs {
		for j := i + 1; j < len(xs); j++ {
			if differ(xs[i], xs[j]) {
				return true
			}
		}
	}
	return false
}

// OwnerOf returns the element owning node id, or nil.
func (a *InterArchAnalysis) OwnerOf(id netlist.NodeID) ArchElement { return a.owner[id] }

// NonSkippable returns the clock indexes of el's non-skippable states.
func (a *InterArchAnalysis) NonSkippable(el ArchElement) []int { return a.nonSkippable[el] }

// IsNonSkippable reports whether el's state at clk is non-skippable.
func (a *InterArchAnalysis) IsNonSkippable(el ArchElement, clk int) bool {
	return slices.Contains(a.nonSkippable[el], clk)
}
