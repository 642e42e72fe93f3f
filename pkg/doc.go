// Package pkg provides the architecture-synthesis libraries of syncarch.
//
// # Overview
//
// Syncarch turns a scheduled HLS netlist into hardware architecture
// elements: finite state machines for interfaces accessed more often than
// they have ports, and pipelines for everything else. Each element stage
// gets handshake logic built from the extraCond/skipWhen conditions of
// the sync nodes it owns.
//
// # Architecture
//
// The data flow through syncarch:
//
//	Netlist fixture (TOML) or scheduler
//	         ↓
//	    [netlist] package (arena, edit log, builders)
//	         ↓
//	    [simplify] package (sync-simplification fixed point)
//	         ↓
//	    [island] package (sync islands + merge heuristics)
//	         ↓
//	    [arch] package (detect, analyze, allocate FSMs and pipelines)
//	         ↓
//	    DOT/SVG/JSON diagnostics
//
// # Quick Start
//
// Synthesize a netlist fixture:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/syncarch/pkg/io"
//	    "github.com/matzehuels/syncarch/pkg/pipeline"
//	)
//
//	// 1. Load the netlist
//	nl, _ := io.ImportTOML("examples/scenario_a.toml")
//
//	// 2. Run every pass
//	result, _ := pipeline.NewRunner(nil).Execute(context.Background(), nl, pipeline.DefaultOptions())
//
//	// 3. Inspect the elements
//	for _, el := range result.Elements {
//	    fmt.Println(el.Name(), el.Kind(), len(el.Stages()))
//	}
//
// # Main Packages
//
// ## Netlist Model
//
// [netlist] - Arena of nodes with typed ports, tombstones and an edit log.
// Builders create scheduled operators, constants, interface accesses, sync
// gates, channels and loop controllers.
//
// [netlist/reach] - Incremental reachability oracle over data and control
// edges, kept in sync with the edit log.
//
// [netlist/cond] - Extraction of boolean conditions from operator cones.
//
// [expr] - Canonical boolean expressions used for all handshake logic.
//
// ## Passes
//
// [check] - Consistency checker: port biconsistency, payloads, channels,
// acyclicity and island partitions.
//
// [simplify] - Rewrite rules removing redundant sync nodes, ordering edges
// and backedges, and extracting non-blocking accesses.
//
// [island] - Sync-island discovery and merge heuristics.
//
// [loop] - Compilation of LoopStatus nodes into busy registers and enables.
//
// [arch] - FSM and pipeline detection, inter-element sharing analysis and
// the MakeSyncNode handshake.
//
// ## Orchestration and Output
//
// [pipeline] - Pass runner used by the CLI and library callers, with TOML
// options and artifact rendering.
//
// [io] - TOML netlist fixtures.
//
// [render/dot] - Graphviz diagrams of elements, stages and channels.
//
// [render/timeline] - JSON dump of element stages with a run ID.
//
// [observability] - Hooks around passes and artifacts.
//
// [errors] - Error codes separating fatal structural errors from input
// errors.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/simplify/...           # Specific package
//	go test -run Example ./pkg/...       # Examples only
package pkg
