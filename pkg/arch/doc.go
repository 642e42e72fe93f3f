// Package arch partitions a scheduled netlist into architecture elements and
// synthesizes their control.
//
// Two element kinds exist. A [Pipeline] covers one sync island and advances
// all of its stages together. An [Fsm] sequences the accesses of an
// interface used more often per iteration than it has ports; each distinct
// access clock becomes one state.
//
// # Flow
//
//	elements, err := arch.Detect(nl, islands, arch.Options{})
//	iea, err := arch.Analyze(nl, elements)
//	for _, el := range elements {
//	    el.AllocateDataPath(iea)
//	    el.AllocateSync()
//	}
//
// After AllocateSync every non-empty stage carries a [StreamNode]: the
// aggregated ready/valid handshake built by [MakeSyncNode].
//
// # Sharing
//
// [Analyze] records, for every value crossing an element boundary, the
// owner and the first clock each consumer reads it in. A producer state
// whose values are first observed by two elements at two different clocks
// is non-skippable: an FSM never takes a backedge transition that jumps
// over such a state.
package arch
