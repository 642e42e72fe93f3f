package netlist

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownNode is returned when a NodeID is out of range or refers to a
	// removed node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidPort is returned when a port index is out of range.
	ErrInvalidPort = errors.New("invalid port index")

	// ErrAlreadyDriven is returned by [Netlist.Connect] when the input port
	// already has a driver. Inputs have exactly one driver.
	ErrAlreadyDriven = errors.New("input already driven")

	// ErrStillConnected is returned when removing a port that still has users.
	ErrStillConnected = errors.New("port still connected")

	// ErrInvalidPayload is returned when a payload does not match its node kind.
	ErrInvalidPayload = errors.New("payload does not match node kind")
)

// Direction of an interface relative to the synthesized design.
type Direction uint8

const (
	DirIn Direction = iota
	DirOut
)

func (d Direction) String() string {
	if d == DirOut {
		return "out"
	}
	return "in"
}

// Interface is an IO port of the design. Ports is the number of accesses
// the interface can issue per clock cycle.
type Interface struct {
	Name  string
	Dir   Direction
	Ports int
}

// ChannelID indexes a channel in the netlist.
type ChannelID int32

// ChannelKind distinguishes loop-carried and forward buffers.
type ChannelKind uint8

const (
	// Backedge carries a value to a later loop iteration (read scheduled
	// before write).
	Backedge ChannelKind = iota
	// Forwardedge carries a value forward across stages or elements.
	Forwardedge
)

func (k ChannelKind) String() string {
	if k == Forwardedge {
		return "forwardedge"
	}
	return "backedge"
}

// Channel is a modeled register/buffer between a write node and its
// partner read node.
type Channel struct {
	ID   ChannelID
	Name string
	Kind ChannelKind
	// Init holds the values present before the first write (loop-carried
	// state). Each value is consumed by one read.
	Init  []int64
	Read  NodeID
	Write NodeID
	// Loop is the loop status node gating this channel, if any.
	Loop NodeID
	// ControlOnly channels carry no data, only the write→read pulse.
	ControlOnly bool
	Removed     bool
}

// Realizer lets the RTL backend attach leaf realizations. Both hooks are
// optional: a nil Realizer on the netlist skips them.
type Realizer interface {
	ResolveRealization(n *Node) error
	AllocateRtlInstance(element string, n *Node) error
}

// Netlist is an arena of nodes with an append-only edit log.
//
// The zero value is not usable - use New. Netlist is not safe for
// concurrent use.
type Netlist struct {
	Name string
	// ClkPeriod is the normalized clock period in scheduler time units.
	ClkPeriod int64
	Realizer  Realizer

	nodes      []*Node
	interfaces []*Interface
	channels   []*Channel

	edits []Edit
	epoch int
}

// New creates an empty netlist. clkPeriod must be positive.
func New(name string, clkPeriod int64) *Netlist {
	if clkPeriod <= 0 {
		panic("netlist: clock period must be positive")
	}
	return &Netlist{
		Name:      name,
		ClkPeriod: clkPeriod,
		nodes:     []*Node{nil},
	}
}

// ClkIndex maps an absolute time to its clock cycle index.
func (nl *Netlist) ClkIndex(t int64) int {
	q := t / nl.ClkPeriod
	if t%nl.ClkPeriod != 0 && t < 0 {
		q--
	}
	return int(q)
}

// Clk returns the clock cycle index of the node.
func (nl *Netlist) Clk(id NodeID) int {
	return nl.ClkIndex(nl.MustNode(id).ZeroTime())
}

// IsTimeConsuming reports whether the node holds a value across a clock
// edge: a multi-cycle operator, or any buffer end.
func (nl *Netlist) IsTimeConsuming(id NodeID) bool {
	n := nl.MustNode(id)
	switch n.Kind {
	case KindBufferRead, KindBufferWrite, KindLoopStatus:
		return true
	case KindOperator, KindConst, KindRead, KindWrite, KindExplicitSync, KindIoClusterCore:
	default:
		UnknownKind(n.Kind)
	}
	start := nl.ClkIndex(n.ZeroTime())
	for _, t := range n.ScheduledOut {
		if nl.ClkIndex(t) != start {
			return true
		}
	}
	return false
}

// AddInterface registers an interface.
func (nl *Netlist) AddInterface(name string, dir Direction, ports int) *Interface {
	if ports < 1 {
		ports = 1
	}
	i := &Interface{Name: name, Dir: dir, Ports: ports}
	nl.interfaces = append(nl.interfaces, i)
	return i
}

// Interfaces returns the registered interfaces in registration order.
func (nl *Netlist) Interfaces() []*Interface { return nl.interfaces }

// Interface returns the interface with the given name.
func (nl *Netlist) Interface(name string) (*Interface, bool) {
	for _, i := range nl.interfaces {
		if i.Name == name {
			return i, true
		}
	}
	return nil, false
}

// Channel returns the channel with the given ID, or nil.
func (nl *Netlist) Channel(id ChannelID) *Channel {
	if id < 0 || int(id) >= len(nl.channels) {
		return nil
	}
	return nl.channels[id]
}

// Channels returns the live channels in ID order.
func (nl *Netlist) Channels() []*Channel {
	var out []*Channel
	for _, c := range nl.channels {
		if !c.Removed {
			out = append(out, c)
		}
	}
	return out
}

// Node returns the node with the given ID, or nil if the ID is out of range.
// Removed nodes are returned with Removed set.
func (nl *Netlist) Node(id NodeID) *Node {
	if id <= NoNode || int(id) >= len(nl.nodes) {
		return nil
	}
	return nl.nodes[id]
}

// MustNode is Node for IDs the caller knows to be valid. It panics
// otherwise.
func (nl *Netlist) MustNode(id NodeID) *Node {
	n := nl.Node(id)
	if n == nil {
		panic(fmt.Sprintf("netlist: %v: node %d", ErrUnknownNode, id))
	}
	return n
}

// Live reports whether id refers to a node that has not been removed.
func (nl *Netlist) Live(id NodeID) bool {
	n := nl.Node(id)
	return n != nil && !n.Removed
}

// Nodes returns all live nodes in ascending ID order.
func (nl *Netlist) Nodes() []*Node {
	out := make([]*Node, 0, len(nl.nodes))
	for _, n := range nl.nodes[1:] {
		if !n.Removed {
			out = append(out, n)
		}
	}
	return out
}

// NodesOf returns the live nodes of one kind in ascending ID order.
func (nl *Netlist) NodesOf(kind Kind) []*Node {
	var out []*Node
	for _, n := range nl.nodes[1:] {
		if !n.Removed && n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Cap returns one past the highest NodeID ever allocated. Analyses size
// their per-node tables with it.
func (nl *Netlist) Cap() int { return len(nl.nodes) }

// NodeCount returns the number of live nodes.
func (nl *Netlist) NodeCount() int {
	c := 0
	for _, n := range nl.nodes[1:] {
		if !n.Removed {
			c++
		}
	}
	return c
}

// Driver returns the output driving the input, or the zero OutRef.
func (nl *Netlist) Driver(in InRef) OutRef {
	return nl.MustNode(in.Node).Inputs[in.Index].Driver
}

// DataOut returns the first data output of the node.
func (nl *Netlist) DataOut(id NodeID) OutRef {
	n := nl.MustNode(id)
	i, ok := n.OutputOf(PortData)
	if !ok {
		panic(fmt.Sprintf("netlist: %s has no data output", n))
	}
	return OutRef{Node: id, Index: i}
}

// Out returns output port index of the node.
func (nl *Netlist) Out(ref OutRef) *OutPort {
	return &nl.MustNode(ref.Node).Outputs[ref.Index]
}

// In returns input port index of the node.
func (nl *Netlist) In(ref InRef) *InPort {
	return &nl.MustNode(ref.Node).Inputs[ref.Index]
}

// IsDataEdge reports whether the connection carries data (both ends are
// data ports).
func (nl *Netlist) IsDataEdge(to InRef) bool {
	in := nl.In(to)
	if !in.Driver.Connected() || in.Kind != PortData {
		return false
	}
	return nl.Out(in.Driver).Kind == PortData
}

// Drivers returns the distinct nodes driving any input of id, in port
// order.
func (nl *Netlist) Drivers(id NodeID) []NodeID {
	var out []NodeID
	for _, in := range nl.MustNode(id).Inputs {
		if in.Driver.Connected() && !slices.Contains(out, in.Driver.Node) {
			out = append(out, in.Driver.Node)
		}
	}
	return out
}

// Users returns the distinct nodes using any output of id, in port order.
func (nl *Netlist) Users(id NodeID) []NodeID {
	var out []NodeID
	for _, o := range nl.MustNode(id).Outputs {
		for _, u := range o.Users {
			if !slices.Contains(out, u.Node) {
				out = append(out, u.Node)
			}
		}
	}
	return out
}

func (nl *Netlist) checkLive(id NodeID) (*Node, error) {
	n := nl.Node(id)
	if n == nil || n.Removed {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return n, nil
}
