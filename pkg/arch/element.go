package arch

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/loop"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/cond"
)

// Kind distinguishes element implementations.
type Kind uint8

const (
	KindPipeline Kind = iota
	KindFsm
)

func (k Kind) String() string {
	if k == KindFsm {
		return "fsm"
	}
	return "pipeline"
}

// ArchElement is an independently clocked hardware unit owning a set of
// scheduled clock-cycle stages. RTL emission calls AllocateDataPath and
// then AllocateSync on every element.
type ArchElement interface {
	Name() string
	Kind() Kind
	// Stages returns the stages in clock order.
	Stages() []*ConnectionsOfStage
	// Nodes returns the owned nodes, ascending.
	Nodes() []netlist.NodeID
	Owns(id netlist.NodeID) bool
	AllocateDataPath(iea *InterArchAnalysis) error
	AllocateSync() error
}

// IOConn is one synchronized participant of a stage: an interface access,
// a buffer end or an extra ExplicitSync gate.
type IOConn struct {
	Node netlist.NodeID
	// Port names the interface, channel or sync node.
	Port     string
	Blocking bool
	// ExtraCond and SkipWhen are the participant's own gating conditions.
	ExtraCond *expr.Expr
	SkipWhen  *expr.Expr
	// Signal is the handshake input of the participant: valid for masters,
	// ready for slaves. Constant 1 for non-blocking participants.
	Signal *expr.Expr
}

// Register holds a value produced in one stage for a later one.
type Register struct {
	Name string
	From netlist.OutRef
	// Clk is the clock index the register is written in.
	Clk int
}

// Import is a value of another element consumed in a stage.
type Import struct {
	From  netlist.OutRef
	Owner string
	Users []netlist.InRef
}

// ConnectionsOfStage is everything one element does in one clock cycle.
type ConnectionsOfStage struct {
	Clk   int
	Nodes []netlist.NodeID
	// Inputs are reads and buffer reads, Outputs writes and buffer writes.
	Inputs  []IOConn
	Outputs []IOConn
	// ExtraSyncs are ExplicitSync gates scheduled in this stage.
	ExtraSyncs []IOConn

	Registers []Register
	Imports   []Import

	// Sync is the stage handshake, set by AllocateSync.
	Sync *StreamNode
}

// Empty reports whether the stage schedules nothing.
func (s *ConnectionsOfStage) Empty() bool { return len(s.Nodes) == 0 }

// env is shared by all elements of one synthesis run.
type env struct {
	nl     *netlist.Netlist
	conds  *cond.Extractor
	loops  map[netlist.NodeID]*loop.Control
	top    *expr.Expr
	logger *log.Logger
}

func newEnv(nl *netlist.Netlist, opts Options) (*env, error) {
	e := &env{nl: nl, conds: cond.New(nl), top: opts.TopExtraCond, logger: opts.Logger}
	if e.top == nil {
		e.top = expr.True
	}
	loops, err := loop.CompileAll(nl, cond.New(nl))
	if err != nil {
		return nil, err
	}
	e.loops = loops
	e.conds.Override = func(ref netlist.OutRef) (*expr.Expr, bool) {
		if c, ok := e.loops[ref.Node]; ok {
			return c.Output(ref.Index)
		}
		return nil, false
	}
	return e, nil
}

// element is the state shared by Pipeline and Fsm.
type element struct {
	*env
	name   string
	nodes  []netlist.NodeID
	owned  map[netlist.NodeID]bool
	stages []*ConnectionsOfStage
}

func newElement(e *env, name string, nodes []netlist.NodeID) element {
	nodes = slices.Clone(nodes)
	slices.Sort(nodes)
	nodes = slices.Compact(nodes)
	owned := make(map[netlist.NodeID]bool, len(nodes))
	for _, id := range nodes {
		owned[id] = true
	}
	return element{env: e, name: name, nodes: nodes, owned: owned}
}

func (el *element) Name() string                  { return el.name }
func (el *element) Nodes() []netlist.NodeID       { return el.nodes }
func (el *element) Owns(id netlist.NodeID) bool   { return el.owned[id] }
func (el *element) Stages() []*ConnectionsOfStage { return el.stages }

// Stage returns the stage at clock clk, or nil.
func (el *element) Stage(clk int) *ConnectionsOfStage {
	for _, s := range el.stages {
		if s.Clk == clk {
			return s
		}
	}
	return nil
}

// buildStages groups the owned nodes by clock. With dense set every clock
// between the first and last is present, empty or not.
func (el *element) buildStages(dense bool) error {
	byClk := map[int][]netlist.NodeID{}
	var clks []int
	for _, id := range el.nodes {
		c := el.nl.Clk(id)
		if _, ok := byClk[c]; !ok {
			clks = append(clks, c)
		}
		byClk[c] = append(byClk[c], id)
	}
	slices.Sort(clks)
	if dense && len(clks) > 0 {
		all := make([]int, 0, clks[len(clks)-1]-clks[0]+1)
		for c := clks[0]; c <= clks[len(clks)-1]; c++ {
			all = append(all, c)
		}
		clks = all
	}
	el.stages = el.stages[:0]
	for _, c := range clks {
		st := &ConnectionsOfStage{Clk: c, Nodes: byClk[c]}
		for _, id := range st.Nodes {
			if err := el.classify(st, id); err != nil {
				return err
			}
		}
		el.stages = append(el.stages, st)
	}
	return nil
}

func (el *element) classify(st *ConnectionsOfStage, id netlist.NodeID) error {
	n := el.nl.MustNode(id)
	conn := IOConn{
		Node:      id,
		Blocking:  true,
		ExtraCond: el.conds.ExtraCond(id),
		SkipWhen:  el.conds.SkipWhen(id),
	}
	switch n.Kind {
	case netlist.KindRead, netlist.KindWrite:
		acc := n.IO()
		conn.Port = acc.Iface.Name
		conn.Blocking = acc.Blocking
		sig := "valid"
		if n.Kind == netlist.KindWrite {
			sig = "ready"
		}
		conn.Signal = signal(conn.Blocking, fmt.Sprintf("%s.%s", acc.Iface.Name, sig))
		if n.Kind == netlist.KindRead {
			st.Inputs = append(st.Inputs, conn)
		} else {
			st.Outputs = append(st.Outputs, conn)
		}
	case netlist.KindBufferRead, netlist.KindBufferWrite:
		ch := el.nl.Channel(n.Buffer().Channel)
		if ch == nil {
			return errors.StructuralAt(n, "unknown channel")
		}
		conn.Port = ch.Name
		if n.Kind == netlist.KindBufferRead {
			conn.Signal = signal(true, ch.Name+".vld")
			st.Inputs = append(st.Inputs, conn)
		} else {
			conn.Signal = signal(true, ch.Name+".rd")
			st.Outputs = append(st.Outputs, conn)
		}
	case netlist.KindExplicitSync:
		conn.Port = n.String()
		conn.Signal = expr.True
		st.ExtraSyncs = append(st.ExtraSyncs, conn)
	case netlist.KindOperator, netlist.KindConst, netlist.KindLoopStatus:
	case netlist.KindIoClusterCore:
		return errors.StructuralAt(n, "cluster marker owned by element")
	default:
		netlist.UnknownKind(n.Kind)
	}
	return nil
}

func signal(blocking bool, name string) *expr.Expr {
	if !blocking {
		return expr.True
	}
	return expr.Var(name)
}

// allocateDataPath records pipeline registers and imports and hands every
// owned node to the realizer.
func (el *element) allocateDataPath(iea *InterArchAnalysis, self ArchElement) error {
	for _, st := range el.stages {
		st.Registers, st.Imports = nil, nil
	}
	for _, id := range el.nodes {
		n := el.nl.MustNode(id)
		if r := el.nl.Realizer; r != nil {
			if err := r.ResolveRealization(n); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "%s: resolve realization", n)
			}
			if err := r.AllocateRtlInstance(el.name, n); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "%s: allocate in %s", n, el.name)
			}
		}
		from := el.nl.Clk(id)
		for o, out := range n.Outputs {
			if out.Kind != netlist.PortData {
				continue
			}
			last := from
			for _, u := range out.Users {
				if !el.owned[u.Node] {
					continue
				}
				if c := el.nl.ClkIndex(el.nl.MustNode(u.Node).ScheduledIn[u.Index]); c > last {
					last = c
				}
			}
			for c := from; c < last; c++ {
				st := el.Stage(c)
				if st == nil {
					continue
				}
				st.Registers = append(st.Registers, Register{
					Name: fmt.Sprintf("%s_%s_delay%d", n.Name, out.Name, c-from),
					From: netlist.OutRef{Node: id, Index: o},
					Clk:  c,
				})
			}
		}
	}
	if iea == nil {
		return nil
	}
	for _, v := range iea.Values {
		for _, c := range v.Consumers {
			if c.Element != self {
				continue
			}
			if st := el.Stage(c.FirstUse); st != nil {
				st.Imports = append(st.Imports, Import{From: v.Out, Owner: v.Owner.Name(), Users: c.Users})
			}
		}
	}
	return nil
}

// allocateStageSyncs builds the handshake of every non-empty stage. top
// returns the extra condition gating stage st as a whole.
func (el *element) allocateStageSyncs(top func(st *ConnectionsOfStage) *expr.Expr) {
	for _, st := range el.stages {
		if st.Empty() {
			st.Sync = nil
			continue
		}
		st.Sync = MakeSyncNode(st.Inputs, st.Outputs, st.ExtraSyncs, top(st))
	}
}
