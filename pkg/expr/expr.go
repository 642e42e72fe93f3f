package expr

import (
	"maps"
	"slices"
	"strings"
)

// Op identifies the operator at the root of an expression.
type Op uint8

const (
	OpConst Op = iota
	OpVar
	OpNot
	OpAnd
	OpOr
)

// Expr is an immutable boolean expression. The zero value is not usable;
// build expressions with the package constructors.
type Expr struct {
	op   Op
	val  bool
	name string
	args []*Expr
	key  string
}

var (
	// True is the constant 1.
	True = &Expr{op: OpConst, val: true, key: "1"}
	// False is the constant 0.
	False = &Expr{op: OpConst, val: false, key: "0"}
)

// Const returns True or False.
func Const(v bool) *Expr {
	if v {
		return True
	}
	return False
}

// Var returns a named input signal.
func Var(name string) *Expr {
	return &Expr{op: OpVar, name: name, key: name}
}

// Not returns the negation of e.
func Not(e *Expr) *Expr {
	switch e.op {
	case OpConst:
		return Const(!e.val)
	case OpNot:
		return e.args[0]
	}
	n := &Expr{op: OpNot, args: []*Expr{e}}
	n.key = "!" + wrap(e, OpNot)
	return n
}

// And returns the conjunction of es. And() is True.
func And(es ...*Expr) *Expr { return nary(OpAnd, es) }

// Or returns the disjunction of es. Or() is False.
func Or(es ...*Expr) *Expr { return nary(OpOr, es) }

func nary(op Op, es []*Expr) *Expr {
	// identity is the neutral element, absorbing the dominant one
	identity, absorbing := True, False
	if op == OpOr {
		identity, absorbing = False, True
	}

	seen := make(map[string]*Expr, len(es))
	stack := slices.Clone(es)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch {
		case e == nil:
			continue
		case e.op == op:
			stack = append(stack, e.args...)
			continue
		case e.op == OpConst:
			if e.val == absorbing.val {
				return absorbing
			}
			continue
		}
		seen[e.key] = e
	}

	for _, e := range seen {
		if _, ok := seen[Not(e).key]; ok {
			return absorbing
		}
	}

	args := slices.Collect(maps.Values(seen))
	switch len(args) {
	case 0:
		return identity
	case 1:
		return args[0]
	}
	slices.SortFunc(args, compare)

	sep := " & "
	if op == OpOr {
		sep = " | "
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = wrap(a, op)
	}
	return &Expr{op: op, args: args, key: strings.Join(parts, sep)}
}

// wrap parenthesizes e when it appears as an operand of parent.
func wrap(e *Expr, parent Op) string {
	if (e.op == OpAnd || e.op == OpOr) && e.op != parent {
		return "(" + e.key + ")"
	}
	return e.key
}

// compare orders operands by the signals they mention first, so a literal
// and its negation sort next to each other.
func compare(a, b *Expr) int {
	if c := strings.Compare(bareKey(a.key), bareKey(b.key)); c != 0 {
		return c
	}
	return strings.Compare(a.key, b.key)
}

func bareKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '!', '(', ')':
			return -1
		}
		return r
	}, k)
}

// Op returns the root operator.
func (e *Expr) Op() Op { return e.op }

// Name returns the signal name of a Var, or "".
func (e *Expr) Name() string { return e.name }

// Args returns the operands of Not/And/Or. The slice must not be modified.
func (e *Expr) Args() []*Expr { return e.args }

// String renders e using !, & and | with minimal parentheses.
func (e *Expr) String() string { return e.key }

// IsConst reports whether e is a constant and its value.
func (e *Expr) IsConst() (value, ok bool) {
	if e.op == OpConst {
		return e.val, true
	}
	return false, false
}

// IsTrue reports whether e is the constant 1.
func (e *Expr) IsTrue() bool { return e.op == OpConst && e.val }

// IsFalse reports whether e is the constant 0.
func (e *Expr) IsFalse() bool { return e.op == OpConst && !e.val }

// Equal reports structural equality. Canonical operand ordering makes this
// insensitive to the order operands were combined in.
func Equal(a, b *Expr) bool { return a.key == b.key }

// Vars returns the sorted names of all signals e depends on.
func (e *Expr) Vars() []string {
	set := map[string]struct{}{}
	stack := []*Expr{e}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.op == OpVar {
			set[n.name] = struct{}{}
		}
		stack = append(stack, n.args...)
	}
	return slices.Sorted(maps.Keys(set))
}

// Eval evaluates e. Signals missing from env read as 0.
func (e *Expr) Eval(env map[string]bool) bool {
	switch e.op {
	case OpConst:
		return e.val
	case OpVar:
		return env[e.name]
	case OpNot:
		return !e.args[0].Eval(env)
	case OpAnd:
		for _, a := range e.args {
			if !a.Eval(env) {
				return false
			}
		}
		return true
	case OpOr:
		for _, a := range e.args {
			if a.Eval(env) {
				return true
			}
		}
		return false
	}
	panic("expr: unknown op")
}

// Substitute replaces signals by expressions and re-simplifies.
func (e *Expr) Substitute(repl map[string]*Expr) *Expr {
	switch e.op {
	case OpConst:
		return e
	case OpVar:
		if r, ok := repl[e.name]; ok {
			return r
		}
		return e
	case OpNot:
		return Not(e.args[0].Substitute(repl))
	}
	args := make([]*Expr, len(e.args))
	for i, a := range e.args {
		args[i] = a.Substitute(repl)
	}
	return nary(e.op, args)
}

// maxEquivalenceVars bounds truth-table enumeration in Equivalent.
const maxEquivalenceVars = 20

// Equivalent reports whether a and b compute the same function. Above 20
// distinct signals it falls back to structural equality.
func Equivalent(a, b *Expr) bool {
	if Equal(a, b) {
		return true
	}
	vars := slices.Compact(slices.Sorted(slices.Values(append(a.Vars(), b.Vars()...))))
	if len(vars) > maxEquivalenceVars {
		return false
	}
	env := make(map[string]bool, len(vars))
	for m := 0; m < 1<<len(vars); m++ {
		for i, v := range vars {
			env[v] = m&(1<<i) != 0
		}
		if a.Eval(env) != b.Eval(env) {
			return false
		}
	}
	return true
}
