package simplify

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/syncarch/pkg/check"
	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

// DefaultMaxRewrites bounds a single Run. A netlist needing more rewrites
// than this is assumed to oscillate.
const DefaultMaxRewrites = 100000

// Options configures Run.
type Options struct {
	// Debug re-runs the full consistency check after every rewrite.
	Debug bool
	// MaxRewrites aborts the run with an internal error once exceeded.
	// Zero means DefaultMaxRewrites.
	MaxRewrites int
	// Logger receives one debug line per rewrite and per rejected
	// candidate. Nil discards.
	Logger *log.Logger

	// order permutes the initial worklist in place. Nil keeps ascending
	// ID order.
	order func([]netlist.NodeID)
}

// rule rewrites the graph around id. It reports whether it changed
// anything and which nodes must be revisited.
type rule struct {
	name  string
	apply func(s *simplifier, id netlist.NodeID) ([]netlist.NodeID, bool, error)
}

// rules are tried in order on every popped node; the first rule that
// changes the graph wins and the node is queued again.
var rules = []rule{
	{"drop-const-cond", (*simplifier).dropConstCond},
	{"dissolve-sync", (*simplifier).dissolveSync},
	{"cancel-ordering", (*simplifier).cancelOrdering},
	{"const-backedge", (*simplifier).constBackedge},
	{"straighten-backedge", (*simplifier).straightenBackedge},
	{"extract-nonblocking", (*simplifier).extractNonBlocking},
}

type simplifier struct {
	nl     *netlist.Netlist
	oracle *reach.Oracle
	logger *log.Logger

	queue  []netlist.NodeID
	queued map[netlist.NodeID]bool
}

// Run applies the simplification rules until no rule fires on any node and
// returns the number of rewrites. A second Run on its output returns 0.
//
// The worklist starts with every live node in ascending ID order. Rewrites
// that would close a cycle are rejected and the next rule is tried.
func Run(nl *netlist.Netlist, oracle *reach.Oracle, opts Options) (int, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.MaxRewrites <= 0 {
		opts.MaxRewrites = DefaultMaxRewrites
	}
	if oracle == nil {
		oracle = reach.New(nl)
	}
	s := &simplifier{nl: nl, oracle: oracle, logger: opts.Logger, queued: map[netlist.NodeID]bool{}}
	seed := make([]netlist.NodeID, 0, nl.NodeCount())
	for _, n := range nl.Nodes() {
		seed = append(seed, n.ID)
	}
	if opts.order != nil {
		opts.order(seed)
	}
	for _, id := range seed {
		s.push(id)
	}

	rewrites := 0
	for len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]
		delete(s.queued, id)
		if !nl.Live(id) {
			continue
		}
		for _, r := range rules {
			dirty, changed, err := r.apply(s, id)
			if err != nil {
				return rewrites, err
			}
			if !changed {
				continue
			}
			rewrites++
			s.logger.Debug("rewrite", "rule", r.name, "node", nl.MustNode(id))
			if opts.Debug {
				if err := check.Netlist(nl); err != nil {
					return rewrites, errors.Wrap(errors.ErrCodeStructuralInvariant, err, "after %s on %s", r.name, nl.MustNode(id))
				}
			}
			if rewrites > opts.MaxRewrites {
				return rewrites, errors.New(errors.ErrCodeInternal, "simplify: more than %d rewrites", opts.MaxRewrites)
			}
			s.push(id)
			for _, d := range dirty {
				s.push(d)
			}
			break
		}
	}
	return rewrites, nil
}

func (s *simplifier) push(id netlist.NodeID) {
	if id == netlist.NoNode || s.queued[id] || !s.nl.Live(id) {
		return
	}
	s.queued[id] = true
	s.queue = append(s.queue, id)
}

// neighbours returns the drivers and users of id.
func (s *simplifier) neighbours(id netlist.NodeID) []netlist.NodeID {
	return slices.Concat(s.nl.Drivers(id), s.nl.Users(id))
}

// sweep removes dead constants and operators left behind by a rewrite,
// walking up their drivers.
func (s *simplifier) sweep(id netlist.NodeID) []netlist.NodeID {
	var touched []netlist.NodeID
	stack := []netlist.NodeID{id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !s.nl.Live(id) || len(s.nl.Users(id)) > 0 {
			continue
		}
		n := s.nl.MustNode(id)
		if n.Kind != netlist.KindConst && n.Kind != netlist.KindOperator {
			continue
		}
		drivers := s.nl.Drivers(id)
		s.nl.Remove(id)
		touched = append(touched, drivers...)
		stack = append(stack, drivers...)
	}
	return touched
}

// removeInputs deletes the given inputs of one node, highest index first so
// earlier indexes stay valid.
func (s *simplifier) removeInputs(ins []netlist.InRef) {
	slices.SortFunc(ins, func(a, b netlist.InRef) int {
		if a.Node != b.Node {
			return int(a.Node - b.Node)
		}
		return b.Index - a.Index
	})
	for _, in := range ins {
		s.nl.RemoveInput(in)
	}
}
