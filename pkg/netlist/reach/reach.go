// Package reach maintains transitive reachability over a netlist.
//
// An [Oracle] keeps, for every node, the set of nodes it transitively drives
// and the set of nodes that transitively drive it. Two edge families are
// tracked: data edges only ([Oracle.DoesReachTo]) and all edges including
// ordering, condition and loop ports ([Oracle.DoesReachToControl]).
//
// The oracle consumes the netlist edit log. Every query first applies the
// edits recorded since the previous query, so answers always reflect the
// current graph even in the middle of a rewrite:
//
//   - connect u→v: every ancestor of u (and u) gains v and its descendants
//   - disconnect u→v: ancestors of u are recomputed in reverse topological
//     order, descendants of v in topological order
//   - snapshot restore or compaction (new epoch): full rebuild
package reach

import (
	"github.com/matzehuels/syncarch/pkg/netlist"
)

type family struct {
	data bool
	succ []bitset
	pred []bitset
}

// Oracle answers reachability queries over a netlist.
type Oracle struct {
	nl      *netlist.Netlist
	epoch   int
	version int
	data    family
	all     family
}

// New builds an oracle for nl.
func New(nl *netlist.Netlist) *Oracle {
	o := &Oracle{nl: nl, data: family{data: true}}
	o.rebuild()
	return o
}

// DoesReachTo reports whether a drives b through data edges only.
func (o *Oracle) DoesReachTo(a, b netlist.NodeID) bool {
	o.sync()
	return o.data.succ[a].has(int(b))
}

// DoesReachToControl reports whether a drives b through any edges.
func (o *Oracle) DoesReachToControl(a, b netlist.NodeID) bool {
	o.sync()
	return o.all.succ[a].has(int(b))
}

// PortReaches reports whether output out drives b through any edges.
func (o *Oracle) PortReaches(out netlist.OutRef, b netlist.NodeID) bool {
	for _, u := range o.nl.Out(out).Users {
		if u.Node == b || o.DoesReachToControl(u.Node, b) {
			return true
		}
	}
	return false
}

// WouldCreateCycle reports whether adding an edge from → to would close a
// cycle.
func (o *Oracle) WouldCreateCycle(from, to netlist.NodeID) bool {
	return from == to || o.DoesReachToControl(to, from)
}

// Successors returns every node a drives through any edges, ascending.
func (o *Oracle) Successors(a netlist.NodeID) []netlist.NodeID {
	o.sync()
	return ids(o.all.succ[a])
}

// Predecessors returns every node driving a through any edges, ascending.
func (o *Oracle) Predecessors(a netlist.NodeID) []netlist.NodeID {
	o.sync()
	return ids(o.all.pred[a])
}

// DataSuccessors returns every node a drives through data edges, ascending.
func (o *Oracle) DataSuccessors(a netlist.NodeID) []netlist.NodeID {
	o.sync()
	return ids(o.data.succ[a])
}

func ids(b bitset) []netlist.NodeID {
	var out []netlist.NodeID
	b.each(func(i int) { out = append(out, netlist.NodeID(i)) })
	return out
}

func (o *Oracle) sync() {
	if o.epoch != o.nl.Epoch() {
		o.rebuild()
		return
	}
	edits := o.nl.EditsSince(o.version)
	if len(edits) == 0 {
		return
	}
	o.ensure()
	for _, e := range edits {
		o.apply(e)
	}
	o.version = o.nl.Version()
}

func (o *Oracle) ensure() {
	n := o.nl.Cap()
	for _, f := range []*family{&o.data, &o.all} {
		for len(f.succ) < n {
			f.succ = append(f.succ, nil)
			f.pred = append(f.pred, nil)
		}
	}
}

func (o *Oracle) apply(e netlist.Edit) {
	switch e.Op {
	case netlist.EditAddNode:
	case netlist.EditRemoveNode:
		for _, f := range []*family{&o.data, &o.all} {
			f.succ[e.Node].clear()
			f.pred[e.Node].clear()
		}
	case netlist.EditConnect:
		o.connect(&o.all, e.From.Node, e.To.Node)
		if e.Data {
			o.connect(&o.data, e.From.Node, e.To.Node)
		}
	case netlist.EditDisconnect:
		o.disconnect(&o.all, e.From.Node, e.To.Node)
		if e.Data {
			o.disconnect(&o.data, e.From.Node, e.To.Node)
		}
	}
}

func (o *Oracle) connect(f *family, u, v netlist.NodeID) {
	var anc, desc bitset
	anc.set(int(u))
	anc.or(f.pred[u])
	desc.set(int(v))
	desc.or(f.succ[v])
	anc.each(func(x int) { f.succ[x].or(desc) })
	desc.each(func(y int) { f.pred[y].or(anc) })
}

func (o *Oracle) disconnect(f *family, u, v netlist.NodeID) {
	var anc, desc bitset
	anc.set(int(u))
	anc.or(f.pred[u])
	desc.set(int(v))
	desc.or(f.succ[v])

	order, err := o.nl.TopoOrder()
	if err != nil {
		// a cycle is a structural violation reported by package check;
		// keep answers sound by recomputing everything to a fixed point
		o.closure(f, order, true)
		return
	}
	for i := len(order) - 1; i >= 0; i-- {
		if x := order[i]; anc.has(int(x)) {
			o.recomputeSucc(f, x)
		}
	}
	for _, y := range order {
		if desc.has(int(y)) {
			o.recomputePred(f, y)
		}
	}
}

func (o *Oracle) recomputeSucc(f *family, x netlist.NodeID) bool {
	var s bitset
	for _, y := range o.direct(f, x, true) {
		s.set(int(y))
		s.or(f.succ[y])
	}
	changed := s.count() != f.succ[x].count()
	f.succ[x] = s
	return changed
}

func (o *Oracle) recomputePred(f *family, y netlist.NodeID) bool {
	var p bitset
	for _, x := range o.direct(f, y, false) {
		p.set(int(x))
		p.or(f.pred[x])
	}
	changed := p.count() != f.pred[y].count()
	f.pred[y] = p
	return changed
}

// direct lists the immediate neighbours of id within the family.
func (o *Oracle) direct(f *family, id netlist.NodeID, forward bool) []netlist.NodeID {
	n := o.nl.MustNode(id)
	if n.Removed {
		return nil
	}
	var out []netlist.NodeID
	if forward {
		for _, p := range n.Outputs {
			if f.data && p.Kind != netlist.PortData {
				continue
			}
			for _, u := range p.Users {
				if !f.data || o.nl.In(u).Kind == netlist.PortData {
					out = append(out, u.Node)
				}
			}
		}
		return out
	}
	for i, p := range n.Inputs {
		if !p.Driver.Connected() {
			continue
		}
		if f.data && !o.nl.IsDataEdge(netlist.InRef{Node: id, Index: i}) {
			continue
		}
		out = append(out, p.Driver.Node)
	}
	return out
}

func (o *Oracle) rebuild() {
	o.epoch = o.nl.Epoch()
	o.version = o.nl.Version()
	o.data = family{data: true}
	o.all = family{}

	order, err := o.nl.TopoOrder()
	o.closure(&o.data, order, err != nil)
	o.closure(&o.all, order, err != nil)
}

// closure recomputes a family over the whole graph from scratch. With
// cyclic set, order is incomplete and the computation iterates to a fixed
// point instead.
func (o *Oracle) closure(f *family, order []netlist.NodeID, cyclic bool) {
	n := o.nl.Cap()
	f.succ = make([]bitset, n)
	f.pred = make([]bitset, n)
	if cyclic {
		order = order[:0:0]
		for _, n := range o.nl.Nodes() {
			order = append(order, n.ID)
		}
	}
	for {
		changed := false
		for i := len(order) - 1; i >= 0; i-- {
			if o.recomputeSucc(f, order[i]) {
				changed = true
			}
		}
		for _, y := range order {
			if o.recomputePred(f, y) {
				changed = true
			}
		}
		if !cyclic || !changed {
			return
		}
	}
}
