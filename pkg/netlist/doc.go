// Package netlist provides the scheduled dataflow graph the architecture
// synthesis passes operate on.
//
// # Overview
//
// A [Netlist] is an arena of [Node] values indexed by [NodeID]. Every node has
// ordered input ports and output ports; an input port records the output
// that drives it ([OutRef]) and an output port records every input it drives
// ([InRef]). The two directions are kept mutually consistent by the edit
// primitives, which are the only way to change connectivity:
//
//	nl := netlist.New("top", 10)
//	a := nl.AddInterface("a", netlist.DirIn, 1)
//	rd := nl.Read("rd_a", a, 0)
//	add := nl.Operator("inc", "add", 3, nl.DataOut(rd))
//	nl.Write("wr_b", b, 5, nl.DataOut(add))
//
// # Node kinds
//
// [Kind] is a closed enumeration. The payload of a node ([Node.Payload]) is a
// sealed interface whose concrete type is fixed by the kind:
//
//   - [KindOperator]: combinational or pipelined operator ([*Operator])
//   - [KindConst]: constant ([*Constant])
//   - [KindRead], [KindWrite]: interface access ([*IO])
//   - [KindExplicitSync]: stall/skip gate ([*SyncGate])
//   - [KindBufferRead], [KindBufferWrite]: backedge/forwardedge channel ends ([*Buffer])
//   - [KindLoopStatus]: per-loop busy-bit controller ([*Loop])
//   - [KindIoClusterCore]: grouping of sync nodes ([*Cluster])
//
// Passes switch over [Kind] exhaustively; the default branch panics via
// [UnknownKind] so a new kind cannot be silently ignored.
//
// # Edit log
//
// Every connect, disconnect, node addition and removal appends an [Edit] to
// the netlist log. Incremental analyses (see package reach) consume the log
// before answering any query, so they never observe a stale graph. [Netlist.Batch]
// groups edits into a transaction that is rolled back from a snapshot when
// the callback fails.
//
// # Liveness
//
// Removed nodes are tombstoned and keep their ID until [Netlist.Compact]
// renumbers the arena. NodeID 0 is reserved so that the zero [OutRef] means
// "unconnected".
//
// # Timing
//
// The scheduler annotates every port with an absolute time. [Netlist.ClkPeriod]
// is the normalized clock period; [Netlist.Clk] maps a node to its clock
// index.
package netlist
