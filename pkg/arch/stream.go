package arch

import (
	"github.com/matzehuels/syncarch/pkg/expr"
)

// StreamNode is the aggregated ready/valid handshake of one stage.
//
// Masters deliver data to the stage (reads), slaves accept data from it
// (writes). A participant is satisfied when its handshake signal is high or
// when it is skipped; the stage fires when every participant is satisfied
// and the aggregated extra condition (or the aggregated skip) holds.
type StreamNode struct {
	Masters    []IOConn
	Slaves     []IOConn
	ExtraSyncs []IOConn

	// ExtraCond = top & OR(p.ExtraCond & !p.SkipWhen)
	ExtraCond *expr.Expr
	// SkipWhen = AND(p.SkipWhen)
	SkipWhen *expr.Expr
}

// MakeSyncNode aggregates the gating conditions of everything concurrently
// scheduled in one stage. The stage is skipped only if every participant
// agrees to skip; it is enabled by top together with any participant that
// both wants to transact and is not skipped. Non-blocking participants
// carry a constant 1 handshake signal so they never stall the others.
func MakeSyncNode(masters, slaves, extraSyncs []IOConn, top *expr.Expr) *StreamNode {
	if top == nil {
		top = expr.True
	}
	s := &StreamNode{Masters: masters, Slaves: slaves, ExtraSyncs: extraSyncs}
	all := s.participants()
	if len(all) == 0 {
		s.ExtraCond, s.SkipWhen = top, expr.False
		return s
	}

	skips := make([]*expr.Expr, len(all))
	accepts := make([]*expr.Expr, len(all))
	for i, p := range all {
		skips[i] = p.SkipWhen
		accepts[i] = expr.And(p.ExtraCond, expr.Not(p.SkipWhen))
	}
	s.SkipWhen = expr.And(skips...)
	s.ExtraCond = expr.And(top, expr.Or(accepts...))
	return s
}

func (s *StreamNode) participants() []IOConn {
	out := make([]IOConn, 0, len(s.Masters)+len(s.Slaves)+len(s.ExtraSyncs))
	out = append(out, s.Masters...)
	out = append(out, s.Slaves...)
	return append(out, s.ExtraSyncs...)
}

// Ack is high when every participant has handshaked or is skipped.
func (s *StreamNode) Ack() *expr.Expr {
	all := s.participants()
	terms := make([]*expr.Expr, len(all))
	for i, p := range all {
		sig := p.Signal
		if sig == nil || !p.Blocking {
			sig = expr.True
		}
		terms[i] = expr.Or(sig, p.SkipWhen)
	}
	return expr.And(terms...)
}

// Sync is high when the stage commits in this cycle. Registers of the
// stage update on it.
func (s *StreamNode) Sync() *expr.Expr {
	return expr.And(s.Ack(), expr.Or(s.ExtraCond, s.SkipWhen))
}

// Enable is the transaction enable of participant p: the stage commits,
// p wants to transact and is not skipped. It drives valid for slaves and
// ready for masters.
func (s *StreamNode) Enable(p IOConn) *expr.Expr {
	return expr.And(s.Sync(), p.ExtraCond, expr.Not(p.SkipWhen))
}
