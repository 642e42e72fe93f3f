// Package check validates the structural invariants every pass relies on.
//
// Violations are compiler bugs, not user errors: every function returns a
// [errors.ErrCodeStructuralInvariant] error naming the offending node, and
// callers abort the run. Passes call these checks after every rewrite when
// running in debug mode.
package check

import (
	"slices"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Netlist verifies nl and returns the first violation found:
//
//  1. every input driver and every output user refers to a live node and a
//     valid port, and the two directions mirror each other
//  2. no output lists the same user twice
//  3. payloads match node kinds, schedules match port counts
//  4. channels and loop payloads refer to live nodes and valid ports
//  5. the edge graph is acyclic
func Netlist(nl *netlist.Netlist) error {
	for _, n := range nl.Nodes() {
		if err := ports(nl, n); err != nil {
			return err
		}
		if err := payload(nl, n); err != nil {
			return err
		}
	}
	if err := channels(nl); err != nil {
		return err
	}
	return Acyclic(nl)
}

func ports(nl *netlist.Netlist, n *netlist.Node) error {
	if len(n.ScheduledIn) != len(n.Inputs) || len(n.ScheduledOut) != len(n.Outputs) {
		return errors.StructuralAt(n, "%d/%d input times, %d/%d output times", len(n.ScheduledIn), len(n.Inputs), len(n.ScheduledOut), len(n.Outputs))
	}
	for i, in := range n.Inputs {
		d := in.Driver
		if !d.Connected() {
			continue
		}
		src := nl.Node(d.Node)
		if src == nil || src.Removed {
			return errors.StructuralAt(n, "input %d (%s): driven by dead node %d", i, in.Name, d.Node)
		}
		if d.Index < 0 || d.Index >= len(src.Outputs) {
			return errors.StructuralAt(n, "input %d (%s): driver %s has no output %d", i, in.Name, src, d.Index)
		}
		if !slices.Contains(src.Outputs[d.Index].Users, netlist.InRef{Node: n.ID, Index: i}) {
			return errors.StructuralAt(n, "input %d (%s): not a user of %s output %d", i, in.Name, src, d.Index)
		}
	}
	for o, out := range n.Outputs {
		seen := make(map[netlist.InRef]bool, len(out.Users))
		for _, u := range out.Users {
			if seen[u] {
				return errors.StructuralAt(n, "output %d (%s): duplicate user %d.%d", o, out.Name, u.Node, u.Index)
			}
			seen[u] = true
			dst := nl.Node(u.Node)
			if dst == nil || dst.Removed {
				return errors.StructuralAt(n, "output %d (%s): used by dead node %d", o, out.Name, u.Node)
			}
			if u.Index < 0 || u.Index >= len(dst.Inputs) {
				return errors.StructuralAt(n, "output %d (%s): user %s has no input %d", o, out.Name, dst, u.Index)
			}
			if got := dst.Inputs[u.Index].Driver; got != (netlist.OutRef{Node: n.ID, Index: o}) {
				return errors.StructuralAt(n, "output %d (%s): user %s input %d is driven by %d.%d", o, out.Name, dst, u.Index, got.Node, got.Index)
			}
		}
	}
	return nil
}

func payload(nl *netlist.Netlist, n *netlist.Node) error {
	switch n.Kind {
	case netlist.KindOperator:
		if _, ok := n.Payload.(*netlist.Operator); !ok {
			return wrongPayload(n)
		}
	case netlist.KindConst:
		if _, ok := n.Payload.(*netlist.Constant); !ok {
			return wrongPayload(n)
		}
	case netlist.KindRead, netlist.KindWrite:
		io := n.IO()
		if io == nil {
			return wrongPayload(n)
		}
		if io.Iface == nil {
			return errors.StructuralAt(n, "IO node without interface")
		}
	case netlist.KindExplicitSync:
		if _, ok := n.Payload.(*netlist.SyncGate); !ok {
			return wrongPayload(n)
		}
		for _, k := range []netlist.PortKind{netlist.PortExtraCond, netlist.PortSkipWhen} {
			if count(n, k) > 1 {
				return errors.StructuralAt(n, "%d %s inputs, want at most 1", count(n, k), k)
			}
		}
	case netlist.KindBufferRead, netlist.KindBufferWrite:
		b := n.Buffer()
		if b == nil {
			return wrongPayload(n)
		}
		if nl.Channel(b.Channel) == nil {
			return errors.StructuralAt(n, "unknown channel %d", b.Channel)
		}
	case netlist.KindLoopStatus:
		l := n.Loop()
		if l == nil {
			return wrongPayload(n)
		}
		return loopPorts(n, l)
	case netlist.KindIoClusterCore:
		c, ok := n.Payload.(*netlist.Cluster)
		if !ok {
			return wrongPayload(n)
		}
		for _, id := range slices.Concat(c.Inputs, c.Outputs) {
			if !nl.Live(id) || !nl.MustNode(id).IsSync() {
				return errors.StructuralAt(n, "cluster member %d is not a live sync node", id)
			}
		}
	default:
		netlist.UnknownKind(n.Kind)
	}
	return nil
}

func loopPorts(n *netlist.Node, l *netlist.Loop) error {
	if len(l.EnterFromExit) != len(l.Enter) {
		return errors.StructuralAt(n, "%d enter ports, %d enter-from-exit flags", len(l.Enter), len(l.EnterFromExit))
	}
	roles := []struct {
		kind netlist.PortKind
		idx  []int
	}{{netlist.PortEnter, l.Enter}, {netlist.PortReenter, l.Reenter}, {netlist.PortExit, l.Exit}}
	for _, r := range roles {
		for _, i := range r.idx {
			if i < 0 || i >= len(n.Inputs) || n.Inputs[i].Kind != r.kind {
				return errors.StructuralAt(n, "%s port %d does not exist", r.kind, i)
			}
			o, ok := l.Enable[i]
			if !ok || o < 0 || o >= len(n.Outputs) || n.Outputs[o].Kind != netlist.PortEnable {
				return errors.StructuralAt(n, "%s port %d has no enable output", r.kind, i)
			}
		}
	}
	return nil
}

func channels(nl *netlist.Netlist) error {
	for _, c := range nl.Channels() {
		for _, end := range []struct {
			id   netlist.NodeID
			kind netlist.Kind
		}{{c.Read, netlist.KindBufferRead}, {c.Write, netlist.KindBufferWrite}} {
			if !nl.Live(end.id) {
				continue
			}
			n := nl.MustNode(end.id)
			if n.Kind != end.kind || n.Buffer() == nil || n.Buffer().Channel != c.ID {
				return errors.StructuralAt(n, "not the %s of channel %s", end.kind, c.Name)
			}
		}
		if c.Loop != netlist.NoNode && (!nl.Live(c.Loop) || nl.MustNode(c.Loop).Kind != netlist.KindLoopStatus) {
			return errors.Structural("channel %s: loop %d is not a live loop status node", c.Name, c.Loop)
		}
	}
	return nil
}

func wrongPayload(n *netlist.Node) error {
	return errors.StructuralAt(n, "payload %T does not match kind %s", n.Payload, n.Kind)
}

func count(n *netlist.Node, kind netlist.PortKind) int {
	c := 0
	for _, in := range n.Inputs {
		if in.Kind == kind {
			c++
		}
	}
	return c
}
