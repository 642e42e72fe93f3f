package arch

import (
	"fmt"

	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Pipeline is pure per-cycle dataflow: one stage per clock between its
// first and last scheduled node, all stages advancing together.
type Pipeline struct {
	element
	Island island.ID
}

func newPipeline(e *env, is island.ID, nodes []netlist.NodeID) (*Pipeline, error) {
	p := &Pipeline{element: newElement(e, fmt.Sprintf("pipeline%d", is), nodes), Island: is}
	if err := p.buildStages(true); err != nil {
		return nil, err
	}
	return p, nil
}

// Kind returns KindPipeline.
func (p *Pipeline) Kind() Kind { return KindPipeline }

// AllocateDataPath records pipeline registers and imported values.
func (p *Pipeline) AllocateDataPath(iea *InterArchAnalysis) error {
	return p.allocateDataPath(iea, p)
}

// AllocateSync builds the handshake of every non-empty stage.
func (p *Pipeline) AllocateSync() error {
	p.allocateStageSyncs(func(*ConnectionsOfStage) *expr.Expr { return p.top })
	return nil
}
