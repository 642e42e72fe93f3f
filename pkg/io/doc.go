// Package io provides TOML import and export for scheduled netlists.
//
// # Overview
//
// Fixtures make synthesis scenarios reproducible from files: a netlist
// built by a test, or dumped from the scheduler, can be written out,
// inspected, edited by hand and fed to the CLI.
//
// # TOML Format
//
// A fixture has a name, a clock period and three arrays of tables:
//
//	name = "a"
//	clk_period = 10
//
//	[[interface]]
//	name = "in"
//	dir = "in"          # "in" or "out"
//	ports = 1           # accesses per clock cycle, default 1
//
//	[[channel]]
//	name = "acc"
//	kind = "backedge"   # or "forwardedge"
//	init = [0]
//	read_at = 0
//	write_at = 10
//	data = "sum"
//
//	[[node]]
//	name = "r0"
//	kind = "read"
//	iface = "in"
//	at = 0
//
// # Node Fields
//
// Required:
//   - name: Unique identifier, without '.'
//   - kind: operator, const, read, write, sync, loop_status, io_cluster,
//     buffer_read or buffer_write
//
// Optional:
//   - at: Scheduled time in scheduler units
//   - latency: Operator output delay relative to its inputs
//   - op: Operator name ("and", "or" and "not" are understood as logic)
//   - value, width: Constant value and bit width (width defaults to 1)
//   - iface, non_blocking: Interface access of read and write nodes
//   - inputs: Data inputs; "" leaves an operator input unconnected
//   - extra_cond, skip_when: Sync conditions
//   - ordering: Nodes this node must wait for
//   - enter, reenter, exit, enter_from_exit: Loop status ports
//   - cluster_in, cluster_out: Sync nodes grouped by an io_cluster
//
// # References
//
// Inputs refer to outputs by name. "r0" is the data output of r0;
// "r0.valid" is its valid output, created on first use; "loop.enter1_en"
// is the enable output of loop port 1. Channel ends are named
// "<channel>_rd" and "<channel>_wr".
//
// # Import
//
// Use [ImportTOML] to read a netlist from a file path, or [ReadTOML] to
// read from any io.Reader:
//
//	nl, err := io.ImportTOML("testdata/scenario_a.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Export
//
// Use [ExportTOML] to write a netlist to a file, or [WriteTOML] to write to
// any io.Writer. Tombstoned nodes and removed channels are not exported.
// Export followed by import is structurally lossless up to input port
// order, and exporting the re-imported netlist gives the same document.
package io
