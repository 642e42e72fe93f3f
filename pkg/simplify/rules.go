package simplify

import (
	"slices"

	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/cond"
)

// gated reports whether nodes of this kind take extraCond/skipWhen inputs.
func gated(k netlist.Kind) bool {
	switch k {
	case netlist.KindExplicitSync, netlist.KindRead, netlist.KindWrite,
		netlist.KindBufferRead, netlist.KindBufferWrite:
		return true
	case netlist.KindOperator, netlist.KindConst, netlist.KindLoopStatus, netlist.KindIoClusterCore:
		return false
	default:
		netlist.UnknownKind(k)
	}
	return false
}

// dropConstCond removes extraCond inputs that resolve to constant 1 and
// skipWhen inputs that resolve to constant 0, together with unconnected
// condition inputs. The defaults take over.
func (s *simplifier) dropConstCond(id netlist.NodeID) ([]netlist.NodeID, bool, error) {
	n := s.nl.MustNode(id)
	if !gated(n.Kind) {
		return nil, false, nil
	}
	x := cond.New(s.nl)
	var drop []netlist.InRef
	var drivers []netlist.NodeID
	for i, in := range n.Inputs {
		var def bool
		switch in.Kind {
		case netlist.PortExtraCond:
			def = true
		case netlist.PortSkipWhen:
			def = false
		default:
			continue
		}
		if in.Driver.Connected() {
			v, ok := x.Of(in.Driver).IsConst()
			if !ok || v != def {
				continue
			}
			drivers = append(drivers, in.Driver.Node)
		}
		drop = append(drop, netlist.InRef{Node: id, Index: i})
	}
	if len(drop) == 0 {
		return nil, false, nil
	}
	s.removeInputs(drop)
	dirty := slices.Clone(drivers)
	for _, d := range drivers {
		dirty = append(dirty, s.sweep(d)...)
	}
	return dirty, true, nil
}

// dissolveSync removes an ExplicitSync without conditions whose handshake
// outputs are unused. Data users move to the data driver; ordering users
// inherit the sync's ordering drivers.
func (s *simplifier) dissolveSync(id netlist.NodeID) ([]netlist.NodeID, bool, error) {
	n := s.nl.MustNode(id)
	if !n.IsSync() || s.clustered(id) {
		return nil, false, nil
	}
	var data netlist.OutRef
	var order []netlist.NodeID
	for _, in := range n.Inputs {
		switch in.Kind {
		case netlist.PortExtraCond, netlist.PortSkipWhen:
			return nil, false, nil
		case netlist.PortData:
			data = in.Driver
		case netlist.PortOrdering:
			if in.Driver.Connected() && !slices.Contains(order, in.Driver.Node) {
				order = append(order, in.Driver.Node)
			}
		}
	}
	var dataUsers, orderUsers []netlist.InRef
	for _, out := range n.Outputs {
		switch out.Kind {
		case netlist.PortData:
			dataUsers = append(dataUsers, out.Users...)
		case netlist.PortOrdering:
			orderUsers = append(orderUsers, out.Users...)
		default:
			if len(out.Users) > 0 {
				return nil, false, nil
			}
		}
	}
	if len(dataUsers) > 0 && !data.Connected() {
		return nil, false, nil
	}

	dirty := s.neighbours(id)
	for _, u := range dataUsers {
		if err := s.nl.Reconnect(data, u); err != nil {
			return nil, false, err
		}
	}
	var orphaned []netlist.InRef
	for _, u := range orderUsers {
		s.nl.Disconnect(u)
		if len(order) == 0 {
			orphaned = append(orphaned, u)
			continue
		}
		if err := s.nl.Connect(s.nl.OrderingOut(order[0]), u); err != nil {
			return nil, false, err
		}
		for _, d := range order[1:] {
			if _, err := s.nl.AddOrdering(d, u.Node); err != nil {
				return nil, false, err
			}
		}
	}
	s.removeInputs(orphaned)
	s.nl.Remove(id)
	return dirty, true, nil
}

func (s *simplifier) clustered(id netlist.NodeID) bool {
	for _, c := range s.nl.NodesOf(netlist.KindIoClusterCore) {
		in, out := s.nl.ClusterSyncs(c.ID)
		if slices.Contains(in, id) || slices.Contains(out, id) {
			return true
		}
	}
	return false
}

// cancelOrdering removes ordering inputs that are implied by another input:
// a second edge from the same driver, or an edge whose driver already
// reaches another driver of the node. Ordering on constants and
// unconnected ordering inputs are dropped too.
func (s *simplifier) cancelOrdering(id netlist.NodeID) ([]netlist.NodeID, bool, error) {
	n := s.nl.MustNode(id)
	var drop []netlist.InRef
	var dirty []netlist.NodeID
	for i, in := range n.Inputs {
		if in.Kind != netlist.PortOrdering {
			continue
		}
		if !in.Driver.Connected() {
			drop = append(drop, netlist.InRef{Node: id, Index: i})
			continue
		}
		d := in.Driver.Node
		if s.nl.MustNode(d).Kind == netlist.KindConst || s.implied(n, i) {
			drop = append(drop, netlist.InRef{Node: id, Index: i})
			dirty = append(dirty, d)
		}
	}
	if len(drop) == 0 {
		return nil, false, nil
	}
	s.removeInputs(drop)
	return dirty, true, nil
}

func (s *simplifier) implied(n *netlist.Node, i int) bool {
	d := n.Inputs[i].Driver.Node
	for j, other := range n.Inputs {
		if j == i || !other.Driver.Connected() {
			continue
		}
		d2 := other.Driver.Node
		if d2 == d {
			if j < i || other.Kind != netlist.PortOrdering {
				return true
			}
			continue
		}
		if s.oracle.DoesReachToControl(d, d2) {
			return true
		}
	}
	return false
}

// constBackedge turns a backedge whose write always stores the value its
// initial tokens hold into a control-only channel: the read's data users
// get a local constant and the write loses its data input.
func (s *simplifier) constBackedge(id netlist.NodeID) ([]netlist.NodeID, bool, error) {
	w := s.nl.MustNode(id)
	if w.Kind != netlist.KindBufferWrite {
		return nil, false, nil
	}
	ch := s.nl.Channel(w.Buffer().Channel)
	if ch == nil || ch.Kind != netlist.Backedge || ch.ControlOnly {
		return nil, false, nil
	}
	di, ok := w.InputOf(netlist.PortData)
	if !ok || !w.Inputs[di].Driver.Connected() {
		return nil, false, nil
	}
	src := s.nl.MustNode(w.Inputs[di].Driver.Node)
	c, ok := src.Payload.(*netlist.Constant)
	if !ok {
		return nil, false, nil
	}
	for _, v := range ch.Init {
		if v != c.Value {
			return nil, false, nil
		}
	}

	dirty := []netlist.NodeID{src.ID}
	if r := ch.Read; s.nl.Live(r) {
		rd := s.nl.MustNode(r)
		if o, ok := rd.OutputOf(netlist.PortData); ok && len(rd.Outputs[o].Users) > 0 {
			k := s.nl.Const(src.Name+"_"+ch.Name, c.Value, rd.ScheduledOut[o])
			s.nl.MustNode(k).Payload.(*netlist.Constant).Width = c.Width
			dirty = append(dirty, s.nl.Users(r)...)
			if err := s.nl.RedirectUsers(netlist.OutRef{Node: r, Index: o}, s.nl.DataOut(k)); err != nil {
				return nil, false, err
			}
			dirty = append(dirty, k)
		}
		dirty = append(dirty, r)
	}
	s.nl.RemoveInput(netlist.InRef{Node: id, Index: di})
	ch.ControlOnly = true
	dirty = append(dirty, s.sweep(src.ID)...)
	return dirty, true, nil
}

// straightenBackedge replaces a backedge that is written no later than it
// is read, carries no initial tokens and is ungated, with plain wires from
// the written value to the read's users.
func (s *simplifier) straightenBackedge(id netlist.NodeID) ([]netlist.NodeID, bool, error) {
	w := s.nl.MustNode(id)
	if w.Kind != netlist.KindBufferWrite {
		return nil, false, nil
	}
	ch := s.nl.Channel(w.Buffer().Channel)
	if ch == nil || ch.Kind != netlist.Backedge || ch.ControlOnly || len(ch.Init) > 0 || ch.Loop != netlist.NoNode {
		return nil, false, nil
	}
	r := ch.Read
	if !s.nl.Live(r) || s.nl.Clk(id) > s.nl.Clk(r) {
		return nil, false, nil
	}
	rd := s.nl.MustNode(r)
	if len(rd.Inputs) > 0 {
		return nil, false, nil
	}
	var src netlist.OutRef
	for _, in := range w.Inputs {
		if in.Kind != netlist.PortData {
			return nil, false, nil
		}
		src = in.Driver
	}
	// A write without a value is a control pulse; its ordering has no
	// other source to move to.
	if !src.Connected() {
		return nil, false, nil
	}

	var dataUsers, orderUsers []netlist.InRef
	for _, out := range rd.Outputs {
		switch out.Kind {
		case netlist.PortData:
			dataUsers = append(dataUsers, out.Users...)
		case netlist.PortOrdering:
			orderUsers = append(orderUsers, out.Users...)
		default:
			if len(out.Users) > 0 {
				return nil, false, nil
			}
		}
	}
	for _, out := range w.Outputs {
		orderUsers = append(orderUsers, out.Users...)
	}
	for _, u := range slices.Concat(dataUsers, orderUsers) {
		if s.oracle.WouldCreateCycle(src.Node, u.Node) {
			s.logger.Debug("straighten rejected: would close a cycle",
				"channel", ch.Name, "from", s.nl.MustNode(src.Node), "to", s.nl.MustNode(u.Node))
			return nil, false, nil
		}
	}

	dirty := slices.Concat(s.neighbours(id), s.neighbours(r))
	for _, u := range dataUsers {
		if err := s.nl.Reconnect(src, u); err != nil {
			return nil, false, err
		}
	}
	for _, u := range orderUsers {
		if err := s.nl.Reconnect(s.nl.OrderingOut(src.Node), u); err != nil {
			return nil, false, err
		}
	}
	s.nl.Remove(r)
	s.nl.Remove(id)
	return dirty, true, nil
}

// extractNonBlocking rewrites a blocking read guarded by a sync that skips
// exactly when the read has no data into a non-blocking read: the read no
// longer stalls and the sync's skip follows the read's non-blocking valid.
func (s *simplifier) extractNonBlocking(id netlist.NodeID) ([]netlist.NodeID, bool, error) {
	n := s.nl.MustNode(id)
	if !n.IsSync() {
		return nil, false, nil
	}
	di, ok := n.InputOf(netlist.PortData)
	if !ok || !n.Inputs[di].Driver.Connected() {
		return nil, false, nil
	}
	srcID := n.Inputs[di].Driver.Node
	src := s.nl.MustNode(srcID)
	if src.Kind != netlist.KindRead || !src.IO().Blocking {
		return nil, false, nil
	}
	sw, ok := s.nl.Condition(id, netlist.PortSkipWhen)
	if !ok {
		return nil, false, nil
	}
	inv := s.nl.MustNode(sw.Node)
	if op, ok := inv.Payload.(*netlist.Operator); !ok || op.Op != "not" || len(inv.Inputs) != 1 {
		return nil, false, nil
	}
	valid := inv.Inputs[0].Driver
	if valid.Node != srcID || s.nl.Out(valid).Kind != netlist.PortValid {
		return nil, false, nil
	}

	s.nl.SetBlocking(srcID, false)
	nb := s.nl.SyncOutput(srcID, netlist.PortValidNB)
	if err := s.nl.RedirectUsers(valid, nb); err != nil {
		return nil, false, err
	}
	if err := s.nl.RemoveOutput(valid); err != nil {
		return nil, false, err
	}
	return []netlist.NodeID{srcID, inv.ID}, true, nil
}
