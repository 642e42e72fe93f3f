package island

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

// MergeOptions configures Merge.
type MergeOptions struct {
	// Logger receives rejected merges at debug level. Nil discards them.
	Logger *log.Logger
}

// loopTag marks an island as producing the condition of one role of one
// loop. anchor is the sync node bounding the condition cone; the tagged
// island is the one anchor is an output of.
type loopTag struct {
	loop   netlist.NodeID
	role   netlist.PortKind
	anchor netlist.NodeID
}

type merger struct {
	p      *Islands
	oracle *reach.Oracle
	tags   []loopTag
	logger *log.Logger
}

// Merge collapses redundant islands in place and returns the number of
// merges performed. Heuristics, tried in order for every island until a
// fixed point:
//
//  1. an island without blocking IO, or without time-consuming nodes, joins
//     its unique predecessor, else its unique successor
//  2. an island whose sole predecessor is also its sole successor joins it
//  3. an island joins a neighbour scheduled in the same set of clock cycles
//
// A merge is rejected when it would put conditions of different roles
// (enter, reenter, exit) of one loop into one island, or when it would
// close a cycle in the island graph. Rejections are logged, never returned.
func Merge(p *Islands, oracle *reach.Oracle, opts MergeOptions) int {
	m := &merger{p: p, oracle: oracle, logger: opts.Logger}
	if m.logger == nil {
		m.logger = discard()
	}
	m.tags = loopTags(p.nl)

	merged := 0
	for changed := true; changed; {
		changed = false
		for _, is := range slices.Clone(p.list) {
			if p.Get(is.ID) != is {
				continue
			}
			if into := m.target(is); into != nil {
				m.merge(is, into)
				merged++
				changed = true
			}
		}
	}
	return merged
}

func (m *merger) target(is *Island) *Island {
	preds, succs := m.p.Predecessors(is), m.p.Successors(is)

	if m.trivial(is) {
		if len(preds) == 1 && m.allowed(is, preds[0], "trivial") {
			return preds[0]
		}
		if len(succs) == 1 && m.allowed(is, succs[0], "trivial") {
			return succs[0]
		}
	}
	if len(preds) == 1 && len(succs) == 1 && preds[0] == succs[0] && m.allowed(is, preds[0], "pred-is-succ") {
		return preds[0]
	}
	clks := m.p.Clks(is)
	if len(clks) == 0 {
		return nil
	}
	for _, nb := range neighbourIslands(preds, succs) {
		if slices.Equal(clks, m.p.Clks(nb)) && m.allowed(is, nb, "congruent") {
			return nb
		}
	}
	return nil
}

// trivial reports whether the island has no blocking IO or no
// time-consuming node.
func (m *merger) trivial(is *Island) bool {
	blocking, timed := false, false
	for _, id := range is.Nodes {
		n := m.p.nl.MustNode(id)
		if acc := n.IO(); acc != nil && acc.Blocking {
			blocking = true
		}
		if m.p.nl.IsTimeConsuming(id) {
			timed = true
		}
	}
	return !blocking || !timed
}

func (m *merger) allowed(a, b *Island, rule string) bool {
	if t1, t2, ok := m.roleConflict(a, b); ok {
		m.logger.Debug("merge rejected: loop role conflict",
			"rule", rule, "island", a.ID, "into", b.ID,
			"loop", m.p.nl.MustNode(t1.loop).String(), "roles", t1.role.String()+"/"+t2.role.String())
		return false
	}
	if m.closesCycle(a, b) || m.closesCycle(b, a) {
		m.logger.Debug("merge rejected: island cycle", "rule", rule, "island", a.ID, "into", b.ID)
		return false
	}
	return true
}

// closesCycle reports whether a reaches b through some third island.
func (m *merger) closesCycle(a, b *Island) bool {
	for _, s := range m.p.Successors(a) {
		if s != b && m.p.Reaches(s, b) {
			return true
		}
	}
	return false
}

func (m *merger) roleConflict(a, b *Island) (loopTag, loopTag, bool) {
	ta, tb := m.tagsOf(a), m.tagsOf(b)
	for _, x := range ta {
		for _, y := range tb {
			if x.loop == y.loop && x.role != y.role {
				return x, y, true
			}
		}
	}
	return loopTag{}, loopTag{}, false
}

func (m *merger) tagsOf(is *Island) []loopTag {
	var out []loopTag
	for _, t := range m.tags {
		if m.p.OutputOf(t.anchor) == is {
			out = append(out, t)
		}
	}
	return out
}

func (m *merger) merge(src, dst *Island) {
	m.logger.Debug("merge islands", "island", src.ID, "into", dst.ID)
	m.p.remove(src)
	dst.Inputs = append(dst.Inputs, src.Inputs...)
	dst.DataOutputs = append(dst.DataOutputs, src.DataOutputs...)
	dst.ControlOutputs = append(dst.ControlOutputs, src.ControlOutputs...)
	dst.Nodes = append(dst.Nodes, src.Nodes...)
	m.p.remove(dst)
	m.p.add(dst)
	classifyLoopInputs(m.oracle, dst)
}

// loopTags finds, for every loop port, the sync nodes bounding the cone of
// logic computing its condition.
func loopTags(nl *netlist.Netlist) []loopTag {
	var tags []loopTag
	for _, n := range nl.NodesOf(netlist.KindLoopStatus) {
		for _, in := range n.Inputs {
			switch in.Kind {
			case netlist.PortEnter, netlist.PortReenter, netlist.PortExit:
			default:
				continue
			}
			d := in.Driver
			if !d.Connected() {
				continue
			}
			var anchors []netlist.NodeID
			if nl.MustNode(d.Node).IsSync() {
				anchors = append(anchors, d.Node)
			} else {
				_, anchors = nl.DirectDataPredecessors(d.Node)
			}
			for _, a := range anchors {
				tags = append(tags, loopTag{loop: n.ID, role: in.Kind, anchor: a})
			}
		}
	}
	return tags
}

func neighbourIslands(preds, succs []*Island) []*Island {
	out := slices.Clone(preds)
	for _, s := range succs {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, byID)
	return out
}

func discard() *log.Logger { return log.NewWithOptions(io.Discard, log.Options{}) }
