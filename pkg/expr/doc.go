// Package expr provides the boolean expression algebra used for handshake
// and enable logic.
//
// # Overview
//
// Synchronization conditions in the netlist (extraCond, skipWhen, valid,
// ready, loop enables, FSM transition conditions) are boolean functions of
// signals that only exist once RTL is emitted. This package represents them
// as immutable expression trees built from [Const], [Var], [Not], [And] and
// [Or].
//
// Constructors simplify eagerly:
//
//   - constants fold (x & 0 = 0, x | 1 = 1, !1 = 0)
//   - nested And/Or flatten and duplicate operands collapse
//   - complementary operands resolve (x & !x = 0, x | !x = 1)
//   - double negation cancels
//
// Operands of And/Or are kept in a canonical order, so the same set of
// conditions always yields the same tree regardless of the order callers
// combined them in. Passes that merge conditions from a worklist rely on
// this to reach the same fixed point for any processing order.
//
// # Usage
//
//	a, b := expr.Var("a"), expr.Var("b")
//	e := expr.Or(expr.And(a, expr.Not(b)), expr.And(b, expr.Not(a)))
//	fmt.Println(e)                          // (!a & b) | (a & !b)
//	expr.Equivalent(e, expr.Not(expr.Or(expr.And(a, b), expr.And(expr.Not(a), expr.Not(b)))))
//
// [Equivalent] decides semantic equality by truth-table enumeration and is
// intended for tests and small conditions.
package expr
