package netlist

import "fmt"

// Constructors create nodes scheduled at a single time `at`; use
// SetLatency for multi-cycle operators.

// Operator adds an operator with one data input per driver and one data
// output.
func (nl *Netlist) Operator(name, op string, at int64, ins ...OutRef) NodeID {
	n := &Node{
		Name:    name,
		Kind:    KindOperator,
		Payload: &Operator{Op: op},
		Outputs: []OutPort{{Kind: PortData, Name: "o"}},
	}
	n.ScheduledOut = []int64{at}
	id := nl.addNode(n)
	for i, d := range ins {
		idx := nl.addInputAt(id, PortData, fmt.Sprintf("i%d", i), at)
		if d.Connected() {
			nl.MustConnect(d, InRef{Node: id, Index: idx})
		}
	}
	return id
}

// Const adds a constant node.
func (nl *Netlist) Const(name string, value int64, at int64) NodeID {
	return nl.addNode(&Node{
		Name:         name,
		Kind:         KindConst,
		Payload:      &Constant{Value: value, Width: 1},
		Outputs:      []OutPort{{Kind: PortData, Name: "o"}},
		ScheduledOut: []int64{at},
	})
}

// Read adds a blocking read of iface with outputs [data, ordering].
func (nl *Netlist) Read(name string, iface *Interface, at int64) NodeID {
	return nl.addNode(&Node{
		Name:    name,
		Kind:    KindRead,
		Payload: &IO{Iface: iface, Blocking: true},
		Outputs: []OutPort{
			{Kind: PortData, Name: "data"},
			{Kind: PortOrdering, Name: "order"},
		},
		ScheduledOut: []int64{at, at},
	})
}

// Write adds a blocking write of data to iface with output [ordering].
func (nl *Netlist) Write(name string, iface *Interface, at int64, data OutRef) NodeID {
	id := nl.addNode(&Node{
		Name:         name,
		Kind:         KindWrite,
		Payload:      &IO{Iface: iface, Blocking: true},
		Outputs:      []OutPort{{Kind: PortOrdering, Name: "order"}},
		ScheduledOut: []int64{at},
	})
	idx := nl.addInputAt(id, PortData, "data", at)
	if data.Connected() {
		nl.MustConnect(data, InRef{Node: id, Index: idx})
	}
	return id
}

// ExplicitSync adds a stall/skip gate passing data through. Outputs are
// [data, ordering].
func (nl *Netlist) ExplicitSync(name string, at int64, data OutRef) NodeID {
	id := nl.addNode(&Node{
		Name:    name,
		Kind:    KindExplicitSync,
		Payload: &SyncGate{},
		Outputs: []OutPort{
			{Kind: PortData, Name: "data"},
			{Kind: PortOrdering, Name: "order"},
		},
		ScheduledOut: []int64{at, at},
	})
	idx := nl.addInputAt(id, PortData, "data", at)
	if data.Connected() {
		nl.MustConnect(data, InRef{Node: id, Index: idx})
	}
	return id
}

// NewChannel adds a channel with its write end scheduled at writeAt
// (consuming data) and its read end at readAt. It returns the channel and
// the read and write node IDs.
func (nl *Netlist) NewChannel(name string, kind ChannelKind, init []int64, readAt, writeAt int64, data OutRef) (ChannelID, NodeID, NodeID) {
	ch := &Channel{ID: ChannelID(len(nl.channels)), Name: name, Kind: kind, Init: init}
	nl.channels = append(nl.channels, ch)

	ch.Read = nl.addNode(&Node{
		Name:    name + "_rd",
		Kind:    KindBufferRead,
		Payload: &Buffer{Channel: ch.ID},
		Outputs: []OutPort{
			{Kind: PortData, Name: "data"},
			{Kind: PortOrdering, Name: "order"},
		},
		ScheduledOut: []int64{readAt, readAt},
	})
	ch.Write = nl.addNode(&Node{
		Name:         name + "_wr",
		Kind:         KindBufferWrite,
		Payload:      &Buffer{Channel: ch.ID},
		Outputs:      []OutPort{{Kind: PortOrdering, Name: "order"}},
		ScheduledOut: []int64{writeAt},
	})
	idx := nl.addInputAt(ch.Write, PortData, "data", writeAt)
	if data.Connected() {
		nl.MustConnect(data, InRef{Node: ch.Write, Index: idx})
	}
	return ch.ID, ch.Read, ch.Write
}

// ConnectChannelData connects the write end of a channel after creation,
// for loop-carried values produced downstream of the read.
func (nl *Netlist) ConnectChannelData(ch ChannelID, data OutRef) error {
	w := nl.channels[ch].Write
	i, ok := nl.MustNode(w).InputOf(PortData)
	if !ok {
		return fmt.Errorf("channel %s: write has no data input: %w", nl.channels[ch].Name, ErrInvalidPort)
	}
	return nl.Connect(data, InRef{Node: w, Index: i})
}

// LoopStatus adds a loop controller. Output 0 is the busy flag; ports are
// added with AddLoopPort.
func (nl *Netlist) LoopStatus(name string, at int64) NodeID {
	return nl.addNode(&Node{
		Name:         name,
		Kind:         KindLoopStatus,
		Payload:      &Loop{Enable: map[int]int{}},
		Outputs:      []OutPort{{Kind: PortBusy, Name: "busy"}},
		ScheduledOut: []int64{at},
	})
}

// AddLoopPort adds an enter, reenter or exit port driven by cond and its
// enable output. It returns the input and output indexes.
func (nl *Netlist) AddLoopPort(loop NodeID, role PortKind, cond OutRef) (int, int) {
	n := nl.MustNode(loop)
	l := n.Loop()
	if l == nil {
		panic(fmt.Sprintf("netlist: %s is not a loop status node", n))
	}
	in := nl.AddInput(loop, role, fmt.Sprintf("%s%d", role, len(n.Inputs)))
	out := nl.AddOutput(loop, PortEnable, fmt.Sprintf("%s%d_en", role, in))
	switch role {
	case PortEnter:
		l.Enter = append(l.Enter, in)
		l.EnterFromExit = append(l.EnterFromExit, false)
	case PortReenter:
		l.Reenter = append(l.Reenter, in)
	case PortExit:
		l.Exit = append(l.Exit, in)
	default:
		panic(fmt.Sprintf("netlist: %s is not a loop port role", role))
	}
	l.Enable[in] = out
	if cond.Connected() {
		nl.MustConnect(cond, InRef{Node: loop, Index: in})
	}
	return in, out
}

// IoClusterCore adds a grouping node for the given sync nodes.
func (nl *Netlist) IoClusterCore(name string, inputs, outputs []NodeID) NodeID {
	return nl.addNode(&Node{
		Name:    name,
		Kind:    KindIoClusterCore,
		Payload: &Cluster{Inputs: inputs, Outputs: outputs},
	})
}

// ClusterSyncs returns the sync nodes grouped by an IoClusterCore: all sync
// nodes reachable from the cluster without crossing another sync node.
func (nl *Netlist) ClusterSyncs(core NodeID) (inputs, outputs []NodeID) {
	c, ok := nl.MustNode(core).Payload.(*Cluster)
	if !ok {
		return nil, nil
	}
	return c.Inputs, c.Outputs
}

// SetCondition connects cond to the extraCond or skipWhen input of id,
// creating the port when missing. It returns the input index.
func (nl *Netlist) SetCondition(id NodeID, kind PortKind, cond OutRef) (int, error) {
	if kind != PortExtraCond && kind != PortSkipWhen {
		return -1, fmt.Errorf("%s: %w", kind, ErrInvalidPort)
	}
	n := nl.MustNode(id)
	idx, ok := n.InputOf(kind)
	if !ok {
		idx = nl.AddInput(id, kind, kind.String())
	}
	if err := nl.Reconnect(cond, InRef{Node: id, Index: idx}); err != nil {
		return -1, err
	}
	return idx, nil
}

// Condition returns the driver of the extraCond or skipWhen input of id.
func (nl *Netlist) Condition(id NodeID, kind PortKind) (OutRef, bool) {
	n := nl.MustNode(id)
	idx, ok := n.InputOf(kind)
	if !ok || !n.Inputs[idx].Driver.Connected() {
		return OutRef{}, false
	}
	return n.Inputs[idx].Driver, true
}

// OrderingOut returns the ordering output of id, creating it if missing.
func (nl *Netlist) OrderingOut(id NodeID) OutRef {
	n := nl.MustNode(id)
	if i, ok := n.OutputOf(PortOrdering); ok {
		return OutRef{Node: id, Index: i}
	}
	return OutRef{Node: id, Index: nl.AddOutput(id, PortOrdering, "order")}
}

// AddOrdering makes to wait for from with an ordering-only edge.
func (nl *Netlist) AddOrdering(from, to NodeID) (InRef, error) {
	out := nl.OrderingOut(from)
	in := InRef{Node: to, Index: nl.AddInput(to, PortOrdering, "order")}
	return in, nl.Connect(out, in)
}

// SyncOutput returns the valid/ready style output of the given kind,
// creating it if missing.
func (nl *Netlist) SyncOutput(id NodeID, kind PortKind) OutRef {
	n := nl.MustNode(id)
	if i, ok := n.OutputOf(kind); ok {
		return OutRef{Node: id, Index: i}
	}
	return OutRef{Node: id, Index: nl.AddOutput(id, kind, kind.String())}
}

// SetLatency shifts every output of the node to its zero time plus
// latency.
func (nl *Netlist) SetLatency(id NodeID, latency int64) {
	n := nl.MustNode(id)
	t := n.ZeroTime()
	for i := range n.ScheduledOut {
		n.ScheduledOut[i] = t + latency
	}
}

// SetBlocking switches an IO node between blocking and non-blocking.
func (nl *Netlist) SetBlocking(id NodeID, blocking bool) {
	if io := nl.MustNode(id).IO(); io != nil {
		io.Blocking = blocking
	}
}

func (nl *Netlist) addInputAt(id NodeID, kind PortKind, name string, at int64) int {
	n := nl.MustNode(id)
	n.Inputs = append(n.Inputs, InPort{Kind: kind, Name: name})
	n.ScheduledIn = append(n.ScheduledIn, at)
	return len(n.Inputs) - 1
}
