// Package cond reads boolean gating conditions out of a netlist.
//
// A condition is the logic cone driving an extraCond, skipWhen or loop
// port. Constants and the "and", "or" and "not" operators are translated
// into [expr] trees; every other output becomes an opaque variable named
// after the node and port ("en#4.data"), which RTL emission maps to the
// corresponding signal.
package cond

import (
	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Extractor translates netlist outputs into expressions. It memoizes
// results, so it must not be reused across edits to the cones it has
// already visited; create a new one per pass.
type Extractor struct {
	nl *netlist.Netlist
	// Override, when set, replaces the translation of selected outputs.
	// Package arch uses it to inline compiled loop status signals.
	Override func(ref netlist.OutRef) (*expr.Expr, bool)

	memo   map[netlist.OutRef]*expr.Expr
	active map[netlist.OutRef]bool
}

// New returns an extractor over nl.
func New(nl *netlist.Netlist) *Extractor {
	return &Extractor{
		nl:     nl,
		memo:   map[netlist.OutRef]*expr.Expr{},
		active: map[netlist.OutRef]bool{},
	}
}

// VarName is the name of the opaque variable standing for ref.
func VarName(nl *netlist.Netlist, ref netlist.OutRef) string {
	n := nl.MustNode(ref.Node)
	return n.String() + "." + n.Outputs[ref.Index].Name
}

// Of returns the expression computed by output ref.
func (x *Extractor) Of(ref netlist.OutRef) *expr.Expr {
	if !ref.Connected() {
		return expr.False
	}
	if e, ok := x.memo[ref]; ok {
		return e
	}
	if x.Override != nil {
		if e, ok := x.Override(ref); ok {
			x.memo[ref] = e
			return e
		}
	}
	// a combinational loop through the cone stays opaque
	if x.active[ref] {
		return expr.Var(VarName(x.nl, ref))
	}
	x.active[ref] = true
	e := x.translate(ref)
	delete(x.active, ref)
	x.memo[ref] = e
	return e
}

// Input returns the condition driving input port kind of node id, or def
// when the port is absent or unconnected.
func (x *Extractor) Input(id netlist.NodeID, kind netlist.PortKind, def *expr.Expr) *expr.Expr {
	if d, ok := x.nl.Condition(id, kind); ok {
		return x.Of(d)
	}
	return def
}

// ExtraCond returns the extraCond of id, true when absent.
func (x *Extractor) ExtraCond(id netlist.NodeID) *expr.Expr {
	return x.Input(id, netlist.PortExtraCond, expr.True)
}

// SkipWhen returns the skipWhen of id, false when absent.
func (x *Extractor) SkipWhen(id netlist.NodeID) *expr.Expr {
	return x.Input(id, netlist.PortSkipWhen, expr.False)
}

func (x *Extractor) translate(ref netlist.OutRef) *expr.Expr {
	n := x.nl.MustNode(ref.Node)
	switch n.Kind {
	case netlist.KindConst:
		return expr.Const(n.Payload.(*netlist.Constant).Value != 0)
	case netlist.KindOperator:
		if n.Outputs[ref.Index].Kind != netlist.PortData {
			break
		}
		args := x.dataArgs(n)
		switch n.Payload.(*netlist.Operator).Op {
		case "and":
			return expr.And(args...)
		case "or":
			return expr.Or(args...)
		case "not":
			if len(args) == 1 {
				return expr.Not(args[0])
			}
		}
	case netlist.KindRead, netlist.KindWrite, netlist.KindExplicitSync,
		netlist.KindBufferRead, netlist.KindBufferWrite, netlist.KindLoopStatus,
		netlist.KindIoClusterCore:
	default:
		netlist.UnknownKind(n.Kind)
	}
	return expr.Var(VarName(x.nl, ref))
}

func (x *Extractor) dataArgs(n *netlist.Node) []*expr.Expr {
	var args []*expr.Expr
	for _, in := range n.Inputs {
		if in.Kind == netlist.PortData {
			args = append(args, x.Of(in.Driver))
		}
	}
	return args
}
