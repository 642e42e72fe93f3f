// Package loop compiles LoopStatus nodes into busy-bit controllers.
//
// A loop status node tracks whether a loop body currently holds its
// execution token. Enter ports start an iteration from outside the loop,
// reenter ports continue it through a backedge and exit ports release it:
//
//	becomesBusy = anyEnter & !anyExit
//	becomesFree = !anyEnter & anyExit
//	busy'       = becomesBusy | (busy & !becomesFree)
//
// Enter is admitted while idle or while the loop exits in the same cycle,
// so back-to-back invocations need no bubble. Reenter and exit are only
// meaningful while busy and never change the token themselves.
//
// When every enter port is driven by the loop's own exit, the busy
// register is dropped and the enter enables are the raw port conditions.
package loop

import (
	"fmt"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/cond"
)

// Control is a compiled loop status node.
type Control struct {
	Node netlist.NodeID
	Name string

	// Busy is the current value of the busy register, or True when the
	// register is elided.
	Busy *expr.Expr
	// HasBusyReg is false when the register is elided: the loop is
	// re-entered exactly when it exits, or nothing outside ever enters it.
	HasBusyReg bool
	// EnterOnExit is set when every enter port is triggered only by this
	// loop's own exit.
	EnterOnExit bool

	AnyEnter, AnyExit        *expr.Expr
	BecomesBusy, BecomesFree *expr.Expr
	// Next is the value of the busy register after the clock edge. The
	// register resets to 0.
	Next *expr.Expr

	// Enable holds the enable of every loop port, keyed by input index.
	Enable map[int]*expr.Expr

	outputs map[int]*expr.Expr
}

// BusyRegName is the register name RTL emission uses for n's busy bit.
func BusyRegName(n *netlist.Node) string { return n.String() + ".busy" }

// Compile builds the controller for loop status node id, reading port
// conditions through x. A node without a reenter port does not model a
// loop and is a structural error.
func Compile(nl *netlist.Netlist, id netlist.NodeID, x *cond.Extractor) (*Control, error) {
	n := nl.MustNode(id)
	l := n.Loop()
	if l == nil {
		return nil, errors.StructuralAt(n, "not a loop status node")
	}
	if len(l.Reenter) == 0 {
		return nil, errors.StructuralAt(n, "loop status without reenter port does not model a loop")
	}

	port := func(i int) *expr.Expr {
		return x.Of(n.Inputs[i].Driver)
	}
	ports := func(idx []int) []*expr.Expr {
		out := make([]*expr.Expr, len(idx))
		for k, i := range idx {
			out[k] = port(i)
		}
		return out
	}

	c := &Control{
		Node:     id,
		Name:     n.String(),
		AnyEnter: expr.Or(ports(l.Enter)...),
		AnyExit:  expr.Or(ports(l.Exit)...),
		Enable:   make(map[int]*expr.Expr, len(l.Enable)),
		outputs:  map[int]*expr.Expr{},
	}
	c.EnterOnExit = len(l.Enter) > 0
	for _, fromExit := range l.EnterFromExit {
		c.EnterOnExit = c.EnterOnExit && fromExit
	}

	switch {
	case c.EnterOnExit, len(l.Enter) == 0:
		// the token never leaves the loop: no register, always busy.
		// An enter fires only on an exit, so it needs no admission gate.
		c.Busy = expr.True
		c.BecomesBusy, c.BecomesFree = expr.False, expr.False
		c.Next = expr.True
		for _, i := range l.Enter {
			c.Enable[i] = port(i)
		}
	default:
		c.HasBusyReg = true
		c.Busy = expr.Var(BusyRegName(n))
		c.BecomesBusy = expr.And(c.AnyEnter, expr.Not(c.AnyExit))
		c.BecomesFree = expr.And(expr.Not(c.AnyEnter), c.AnyExit)
		c.Next = expr.Or(c.BecomesBusy, expr.And(c.Busy, expr.Not(c.BecomesFree)))
		admit := expr.Or(expr.Not(c.Busy), c.AnyExit)
		for _, i := range l.Enter {
			c.Enable[i] = expr.And(port(i), admit)
		}
	}
	for _, i := range l.Reenter {
		c.Enable[i] = expr.And(port(i), c.Busy)
	}
	for _, i := range l.Exit {
		c.Enable[i] = expr.And(port(i), c.Busy)
	}

	for o, p := range n.Outputs {
		switch p.Kind {
		case netlist.PortBusy:
			c.outputs[o] = c.Busy
		case netlist.PortEnable:
		default:
			return nil, errors.StructuralAt(n, "unexpected %s output %q", p.Kind, p.Name)
		}
	}
	for in, o := range l.Enable {
		e, ok := c.Enable[in]
		if !ok {
			return nil, errors.StructuralAt(n, "enable output %d belongs to unknown port %d", o, in)
		}
		c.outputs[o] = e
	}
	return c, nil
}

// Output returns the expression driven on output index o.
func (c *Control) Output(o int) (*expr.Expr, bool) {
	e, ok := c.outputs[o]
	return e, ok
}

func (c *Control) String() string {
	if !c.HasBusyReg {
		return fmt.Sprintf("%s: busy=1 (no register)", c.Name)
	}
	return fmt.Sprintf("%s: busy' = %s", c.Name, c.Next)
}

// CompileAll compiles every loop status node of nl in ascending ID order.
func CompileAll(nl *netlist.Netlist, x *cond.Extractor) (map[netlist.NodeID]*Control, error) {
	out := map[netlist.NodeID]*Control{}
	for _, n := range nl.NodesOf(netlist.KindLoopStatus) {
		c, err := Compile(nl, n.ID, x)
		if err != nil {
			return nil, err
		}
		out[n.ID] = c
	}
	return out, nil
}
