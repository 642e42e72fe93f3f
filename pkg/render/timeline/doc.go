// Package timeline dumps the clock-cycle schedule of synthesized elements
// as JSON.
//
// The dump lists, per element and stage, the scheduled nodes with their
// absolute input and output times, pipeline registers, imported values and
// the aggregated handshake conditions. FSMs add their transition table and
// state register. Each document carries a run ID
// ([github.com/google/uuid]) so dumps written by one compilation can be
// matched; pass [WithRunID] to reuse an ID across several dumps.
//
//	data, err := timeline.RenderJSON(nl, elements, timeline.WithAnalysis(iea))
//
// The format is a debugging aid, not a stable contract.
package timeline
