// Package island partitions a scheduled netlist into sync islands.
//
// A sync island is a maximal region bounded by ExplicitSync nodes and is
// the unit of synchronization: everything inside one island advances under
// one handshake. [Discover] builds the partition with a worklist flood,
// [Merge] then collapses islands that do not need their own handshake.
//
// Invariants of every partition, checked by package check:
//
//   - every ExplicitSync is input of exactly one island and output of
//     exactly one island
//   - every other live node (IoClusterCore excepted) belongs to exactly one
//     island
//   - no island is empty
package island
