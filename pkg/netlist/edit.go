package netlist

import (
	"fmt"
	"slices"
)

// EditOp identifies a logged graph mutation.
type EditOp uint8

const (
	EditAddNode EditOp = iota
	EditRemoveNode
	EditConnect
	EditDisconnect
)

// Edit is one entry of the netlist edit log. From/To are set for connect
// and disconnect; Data tells whether the edge was a data edge.
type Edit struct {
	Op   EditOp
	Node NodeID
	From OutRef
	To   InRef
	Data bool
}

// Version returns the number of edits logged in the current epoch.
func (nl *Netlist) Version() int { return len(nl.edits) }

// Epoch changes whenever node IDs are renumbered or the graph is restored
// from a snapshot. Analyses holding per-node state must rebuild when it
// changes.
func (nl *Netlist) Epoch() int { return nl.epoch }

// EditsSince returns the edits logged after version v of the current epoch.
// The returned slice must not be modified.
func (nl *Netlist) EditsSince(v int) []Edit {
	if v >= len(nl.edits) {
		return nil
	}
	return nl.edits[v:]
}

func (nl *Netlist) log(e Edit) { nl.edits = append(nl.edits, e) }

func (nl *Netlist) addNode(n *Node) NodeID {
	if n.Payload != nil && !n.Payload.accepts(n.Kind) {
		panic(fmt.Sprintf("netlist: %s: %v", n.Name, ErrInvalidPayload))
	}
	n.ID = NodeID(len(nl.nodes))
	nl.nodes = append(nl.nodes, n)
	nl.log(Edit{Op: EditAddNode, Node: n.ID})
	return n.ID
}

// Connect drives input to with output from.
func (nl *Netlist) Connect(from OutRef, to InRef) error {
	src, err := nl.checkLive(from.Node)
	if err != nil {
		return err
	}
	dst, err := nl.checkLive(to.Node)
	if err != nil {
		return err
	}
	if from.Index < 0 || from.Index >= len(src.Outputs) {
		return fmt.Errorf("%s output %d: %w", src, from.Index, ErrInvalidPort)
	}
	if to.Index < 0 || to.Index >= len(dst.Inputs) {
		return fmt.Errorf("%s input %d: %w", dst, to.Index, ErrInvalidPort)
	}
	if dst.Inputs[to.Index].Driver.Connected() {
		return fmt.Errorf("%s input %d: %w", dst, to.Index, ErrAlreadyDriven)
	}
	dst.Inputs[to.Index].Driver = from
	src.Outputs[from.Index].Users = append(src.Outputs[from.Index].Users, to)
	nl.log(Edit{Op: EditConnect, From: from, To: to, Data: nl.IsDataEdge(to)})
	return nil
}

// MustConnect is Connect for construction code where a failure is a bug.
func (nl *Netlist) MustConnect(from OutRef, to InRef) {
	if err := nl.Connect(from, to); err != nil {
		panic(fmt.Sprintf("netlist: connect: %v", err))
	}
}

// Disconnect detaches input to from its driver. It is a no-op for an
// unconnected input.
func (nl *Netlist) Disconnect(to InRef) {
	dst := nl.MustNode(to.Node)
	in := &dst.Inputs[to.Index]
	if !in.Driver.Connected() {
		return
	}
	from := in.Driver
	data := nl.IsDataEdge(to)
	out := &nl.MustNode(from.Node).Outputs[from.Index]
	out.Users = slices.DeleteFunc(out.Users, func(u InRef) bool { return u == to })
	in.Driver = OutRef{}
	nl.log(Edit{Op: EditDisconnect, From: from, To: to, Data: data})
}

// Reconnect moves input to onto a new driver.
func (nl *Netlist) Reconnect(from OutRef, to InRef) error {
	nl.Disconnect(to)
	return nl.Connect(from, to)
}

// RedirectUsers moves every user of from onto to.
func (nl *Netlist) RedirectUsers(from, to OutRef) error {
	users := slices.Clone(nl.Out(from).Users)
	for _, u := range users {
		if err := nl.Reconnect(to, u); err != nil {
			return err
		}
	}
	return nil
}

// AddInput appends an input port scheduled at the node's zero time and
// returns its index.
func (nl *Netlist) AddInput(id NodeID, kind PortKind, name string) int {
	n := nl.MustNode(id)
	t := n.ZeroTime()
	n.Inputs = append(n.Inputs, InPort{Kind: kind, Name: name})
	n.ScheduledIn = append(n.ScheduledIn, t)
	return len(n.Inputs) - 1
}

// AddOutput appends an output port scheduled at the node's zero time and
// returns its index.
func (nl *Netlist) AddOutput(id NodeID, kind PortKind, name string) int {
	n := nl.MustNode(id)
	t := n.ZeroTime()
	n.Outputs = append(n.Outputs, OutPort{Kind: kind, Name: name})
	n.ScheduledOut = append(n.ScheduledOut, t)
	return len(n.Outputs) - 1
}

// RemoveInput disconnects and deletes an input port. Later ports shift
// down by one and their drivers' user lists are updated accordingly.
func (nl *Netlist) RemoveInput(in InRef) {
	nl.Disconnect(in)
	n := nl.MustNode(in.Node)
	for j := in.Index + 1; j < len(n.Inputs); j++ {
		d := n.Inputs[j].Driver
		if !d.Connected() {
			continue
		}
		users := nl.MustNode(d.Node).Outputs[d.Index].Users
		for k, u := range users {
			if u == (InRef{Node: in.Node, Index: j}) {
				users[k].Index = j - 1
			}
		}
	}
	n.Inputs = slices.Delete(n.Inputs, in.Index, in.Index+1)
	n.ScheduledIn = slices.Delete(n.ScheduledIn, in.Index, in.Index+1)
	if l := n.Loop(); l != nil {
		l.removeInput(in.Index)
	}
}

// RemoveOutput deletes an output port without users. Later ports shift
// down by one and their users' drivers are updated accordingly.
func (nl *Netlist) RemoveOutput(out OutRef) error {
	n := nl.MustNode(out.Node)
	if len(n.Outputs[out.Index].Users) > 0 {
		return fmt.Errorf("%s output %d: %w", n, out.Index, ErrStillConnected)
	}
	for j := out.Index + 1; j < len(n.Outputs); j++ {
		for _, u := range n.Outputs[j].Users {
			nl.MustNode(u.Node).Inputs[u.Index].Driver.Index = j - 1
		}
	}
	n.Outputs = slices.Delete(n.Outputs, out.Index, out.Index+1)
	n.ScheduledOut = slices.Delete(n.ScheduledOut, out.Index, out.Index+1)
	if l := n.Loop(); l != nil {
		l.removeOutput(out.Index)
	}
	return nil
}

func (l *Loop) removeInput(i int) {
	shift := func(idx []int) []int {
		idx = slices.DeleteFunc(idx, func(v int) bool { return v == i })
		for k, v := range idx {
			if v > i {
				idx[k] = v - 1
			}
		}
		return idx
	}
	if k := slices.Index(l.Enter, i); k >= 0 && k < len(l.EnterFromExit) {
		l.EnterFromExit = slices.Delete(l.EnterFromExit, k, k+1)
	}
	l.Enter = shift(l.Enter)
	l.Reenter = shift(l.Reenter)
	l.Exit = shift(l.Exit)
	enable := make(map[int]int, len(l.Enable))
	for in, out := range l.Enable {
		switch {
		case in < i:
			enable[in] = out
		case in > i:
			enable[in-1] = out
		}
	}
	l.Enable = enable
}

func (l *Loop) removeOutput(o int) {
	for in, out := range l.Enable {
		switch {
		case out == o:
			delete(l.Enable, in)
		case out > o:
			l.Enable[in] = out - 1
		}
	}
}

// Remove disconnects every port of the node and tombstones it.
func (nl *Netlist) Remove(id NodeID) {
	n := nl.MustNode(id)
	if n.Removed {
		return
	}
	for i := range n.Inputs {
		nl.Disconnect(InRef{Node: id, Index: i})
	}
	for _, o := range n.Outputs {
		for _, u := range slices.Clone(o.Users) {
			nl.Disconnect(u)
		}
	}
	n.Removed = true
	if b := n.Buffer(); b != nil {
		ch := nl.channels[b.Channel]
		if (ch.Read == id || !nl.Live(ch.Read)) && (ch.Write == id || !nl.Live(ch.Write)) {
			ch.Removed = true
		}
	}
	nl.log(Edit{Op: EditRemoveNode, Node: id})
}

// Snapshot is a deep copy of the arena used to roll back edits.
type Snapshot struct {
	nodes    []*Node
	channels []*Channel
}

// Snapshot captures the current graph.
func (nl *Netlist) Snapshot() *Snapshot {
	s := &Snapshot{nodes: make([]*Node, len(nl.nodes))}
	for i, n := range nl.nodes[1:] {
		s.nodes[i+1] = n.clone()
	}
	for _, c := range nl.channels {
		cc := *c
		cc.Init = slices.Clone(c.Init)
		s.channels = append(s.channels, &cc)
	}
	return s
}

// Restore replaces the graph with a snapshot. Node IDs allocated after
// the snapshot disappear, so the epoch advances.
func (nl *Netlist) Restore(s *Snapshot) {
	nl.nodes = make([]*Node, len(s.nodes))
	for i, n := range s.nodes[1:] {
		nl.nodes[i+1] = n.clone()
	}
	nl.channels = make([]*Channel, len(s.channels))
	for i, c := range s.channels {
		cc := *c
		cc.Init = slices.Clone(c.Init)
		nl.channels[i] = &cc
	}
	nl.newEpoch()
}

// Batch runs fn as one transaction: if fn returns an error every edit it
// made is rolled back and the error is returned.
func (nl *Netlist) Batch(fn func() error) error {
	snap := nl.Snapshot()
	if err := fn(); err != nil {
		nl.Restore(snap)
		return err
	}
	return nil
}

func (nl *Netlist) newEpoch() {
	nl.edits = nil
	nl.epoch++
}

// Compact drops removed nodes and renumbers the arena. It returns the
// old→new NodeID mapping for live nodes. Channels keep their IDs: a
// removed channel is still returned by [Netlist.Channel], flagged Removed
// with both ends reset to NoNode.
func (nl *Netlist) Compact() map[NodeID]NodeID {
	remap := make(map[NodeID]NodeID, len(nl.nodes))
	nodes := []*Node{nil}
	for _, n := range nl.nodes[1:] {
		if n.Removed {
			continue
		}
		remap[n.ID] = NodeID(len(nodes))
		nodes = append(nodes, n)
	}
	for _, n := range nodes[1:] {
		n.ID = remap[n.ID]
		for i := range n.Inputs {
			if d := n.Inputs[i].Driver; d.Connected() {
				n.Inputs[i].Driver.Node = remap[d.Node]
			}
		}
		for o := range n.Outputs {
			for k, u := range n.Outputs[o].Users {
				n.Outputs[o].Users[k].Node = remap[u.Node]
			}
		}
		if c, ok := n.Payload.(*Cluster); ok {
			c.Inputs = remapIDs(c.Inputs, remap)
			c.Outputs = remapIDs(c.Outputs, remap)
		}
	}
	for _, c := range nl.channels {
		c.Read = remap[c.Read]
		c.Write = remap[c.Write]
		c.Loop = remap[c.Loop]
	}
	nl.nodes = nodes
	nl.newEpoch()
	return remap
}

func remapIDs(ids []NodeID, remap map[NodeID]NodeID) []NodeID {
	out := ids[:0]
	for _, id := range ids {
		if n, ok := remap[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
