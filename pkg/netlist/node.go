package netlist

import (
	"fmt"
	"maps"
	"slices"
)

// NodeID indexes a node in the netlist arena. The zero value means "no node".
type NodeID int32

// NoNode is the zero NodeID.
const NoNode NodeID = 0

// Kind enumerates node kinds.
type Kind uint8

const (
	KindOperator Kind = iota + 1
	KindConst
	KindRead
	KindWrite
	KindExplicitSync
	KindBufferRead
	KindBufferWrite
	KindLoopStatus
	KindIoClusterCore
)

var kindNames = map[Kind]string{
	KindOperator:      "operator",
	KindConst:         "const",
	KindRead:          "read",
	KindWrite:         "write",
	KindExplicitSync:  "sync",
	KindBufferRead:    "buffer_read",
	KindBufferWrite:   "buffer_write",
	KindLoopStatus:    "loop_status",
	KindIoClusterCore: "io_cluster",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", k)
}

// KindFromString parses a kind name as produced by Kind.String.
func KindFromString(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// UnknownKind panics. Exhaustive switches over Kind call it from their
// default branch.
func UnknownKind(k Kind) {
	panic(fmt.Sprintf("netlist: unhandled node kind %s", k))
}

// PortKind classifies ports. Only PortData edges carry data; every other
// kind is a control edge.
type PortKind uint8

const (
	PortData PortKind = iota
	PortExtraCond
	PortSkipWhen
	PortOrdering
	PortEnter
	PortReenter
	PortExit
	PortValid
	PortValidNB
	PortReady
	PortReadyNB
	PortBusy
	PortEnable
)

var portKindNames = [...]string{
	PortData:      "data",
	PortExtraCond: "extraCond",
	PortSkipWhen:  "skipWhen",
	PortOrdering:  "ordering",
	PortEnter:     "enter",
	PortReenter:   "reenter",
	PortExit:      "exit",
	PortValid:     "valid",
	PortValidNB:   "validNB",
	PortReady:     "ready",
	PortReadyNB:   "readyNB",
	PortBusy:      "busy",
	PortEnable:    "enable",
}

func (k PortKind) String() string {
	if int(k) < len(portKindNames) {
		return portKindNames[k]
	}
	return fmt.Sprintf("port(%d)", k)
}

// OutRef addresses output port Index of Node.
type OutRef struct {
	Node  NodeID
	Index int
}

// Connected reports whether r refers to a node.
func (r OutRef) Connected() bool { return r.Node != NoNode }

// InRef addresses input port Index of Node.
type InRef struct {
	Node  NodeID
	Index int
}

// InPort is an input port. Driver is the zero OutRef when unconnected.
type InPort struct {
	Kind   PortKind
	Name   string
	Driver OutRef
}

// OutPort is an output port with the inputs it drives.
type OutPort struct {
	Kind  PortKind
	Name  string
	Users []InRef
}

// Node is a vertex of the netlist.
type Node struct {
	ID      NodeID
	Name    string
	Kind    Kind
	Inputs  []InPort
	Outputs []OutPort

	// Absolute times assigned by the scheduler, parallel to Inputs/Outputs.
	ScheduledIn  []int64
	ScheduledOut []int64

	Payload Payload
	Removed bool
}

// String returns "name#id".
func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.Name, n.ID)
}

// ZeroTime is the time the node starts: its latest input, or its earliest
// output for nodes without inputs.
func (n *Node) ZeroTime() int64 {
	if len(n.ScheduledIn) > 0 {
		return slices.Max(n.ScheduledIn)
	}
	if len(n.ScheduledOut) > 0 {
		return slices.Min(n.ScheduledOut)
	}
	return 0
}

// InputOf returns the index of the first input of the given kind.
func (n *Node) InputOf(kind PortKind) (int, bool) {
	for i, p := range n.Inputs {
		if p.Kind == kind {
			return i, true
		}
	}
	return -1, false
}

// OutputOf returns the index of the first output of the given kind.
func (n *Node) OutputOf(kind PortKind) (int, bool) {
	for i, p := range n.Outputs {
		if p.Kind == kind {
			return i, true
		}
	}
	return -1, false
}

// IsIO reports whether the node accesses an interface.
func (n *Node) IsIO() bool { return n.Kind == KindRead || n.Kind == KindWrite }

// IsSync reports whether the node is an ExplicitSync gate.
func (n *Node) IsSync() bool { return n.Kind == KindExplicitSync }

// IO returns the interface payload of a read or write node.
func (n *Node) IO() *IO {
	io, _ := n.Payload.(*IO)
	return io
}

// Buffer returns the channel payload of a buffer read or write node.
func (n *Node) Buffer() *Buffer {
	b, _ := n.Payload.(*Buffer)
	return b
}

// Loop returns the payload of a loop status node.
func (n *Node) Loop() *Loop {
	l, _ := n.Payload.(*Loop)
	return l
}

func (n *Node) clone() *Node {
	c := *n
	c.Inputs = slices.Clone(n.Inputs)
	c.Outputs = make([]OutPort, len(n.Outputs))
	for i, o := range n.Outputs {
		c.Outputs[i] = OutPort{Kind: o.Kind, Name: o.Name, Users: slices.Clone(o.Users)}
	}
	c.ScheduledIn = slices.Clone(n.ScheduledIn)
	c.ScheduledOut = slices.Clone(n.ScheduledOut)
	if n.Payload != nil {
		c.Payload = n.Payload.clone()
	}
	return &c
}

// Payload is the kind-specific data of a node. The interface is sealed.
type Payload interface {
	clone() Payload
	accepts(Kind) bool
}

// Operator is the payload of KindOperator nodes. Op names the operation;
// "and", "or" and "not" are understood by the condition extraction in
// package arch, every other name is opaque.
type Operator struct {
	Op string
}

func (p *Operator) clone() Payload      { c := *p; return &c }
func (p *Operator) accepts(k Kind) bool { return k == KindOperator }

// Constant is the payload of KindConst nodes.
type Constant struct {
	Value int64
	Width int
}

func (p *Constant) clone() Payload      { c := *p; return &c }
func (p *Constant) accepts(k Kind) bool { return k == KindConst }

// IO is the payload of read and write nodes.
type IO struct {
	Iface *Interface
	// Blocking accesses stall until the interface handshakes. Non-blocking
	// accesses never gate other participants.
	Blocking bool
}

func (p *IO) clone() Payload      { c := *p; return &c }
func (p *IO) accepts(k Kind) bool { return k == KindRead || k == KindWrite }

// SyncGate is the payload of ExplicitSync nodes.
type SyncGate struct{}

func (p *SyncGate) clone() Payload      { return &SyncGate{} }
func (p *SyncGate) accepts(k Kind) bool { return k == KindExplicitSync }

// Buffer is the payload of channel read and write nodes.
type Buffer struct {
	Channel ChannelID
}

func (p *Buffer) clone() Payload      { c := *p; return &c }
func (p *Buffer) accepts(k Kind) bool { return k == KindBufferRead || k == KindBufferWrite }

// Loop is the payload of loop status nodes. Enter, Reenter and Exit hold
// input port indexes; output 0 is the busy flag and every loop port i owns
// the enable output recorded in Enable[i].
type Loop struct {
	Enter   []int
	Reenter []int
	Exit    []int
	// EnterFromExit marks enter ports whose only trigger is this loop's own
	// exit, parallel to Enter.
	EnterFromExit []bool
	// Enable maps a loop input port index to its enable output index.
	Enable map[int]int
}

func (p *Loop) clone() Payload {
	return &Loop{
		Enter:         slices.Clone(p.Enter),
		Reenter:       slices.Clone(p.Reenter),
		Exit:          slices.Clone(p.Exit),
		EnterFromExit: slices.Clone(p.EnterFromExit),
		Enable:        maps.Clone(p.Enable),
	}
}
func (p *Loop) accepts(k Kind) bool { return k == KindLoopStatus }

// Cluster is the payload of IoClusterCore nodes.
type Cluster struct {
	Inputs  []NodeID
	Outputs []NodeID
}

func (p *Cluster) clone() Payload {
	return &Cluster{Inputs: slices.Clone(p.Inputs), Outputs: slices.Clone(p.Outputs)}
}
func (p *Cluster) accepts(k Kind) bool { return k == KindIoClusterCore }

// SyncMode is the meaning of an (extraCond, skipWhen) pair.
type SyncMode uint8

const (
	ModeBlock       SyncMode = iota // (0,0) wait
	ModeAccept                      // (1,0) transact
	ModeSkip                        // (0,1) bypass
	ModeNonBlocking                 // (1,1) transact if possible, never wait
)

// ModeOf evaluates the truth table of an ExplicitSync gate.
func ModeOf(extraCond, skipWhen bool) SyncMode {
	switch {
	case extraCond && skipWhen:
		return ModeNonBlocking
	case skipWhen:
		return ModeSkip
	case extraCond:
		return ModeAccept
	}
	return ModeBlock
}

func (m SyncMode) String() string {
	return [...]string{"block", "accept", "skip", "non-blocking"}[m]
}
