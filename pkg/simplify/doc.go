// Package simplify removes redundant synchronization from a netlist before
// sync islands are built.
//
// [Run] drains a worklist of nodes and tries these rules on each, in order:
//
//   - drop-const-cond: constant extraCond/skipWhen inputs are dropped
//   - dissolve-sync: an always-executing explicit sync is bypassed
//   - cancel-ordering: ordering inputs implied by another input are removed
//   - const-backedge: a backedge that always stores its initial value keeps
//     only its control pulse
//   - straighten-backedge: a backedge written no later than it is read
//     becomes a wire
//   - extract-nonblocking: a blocking read skipped on its own valid becomes
//     non-blocking
//
// Non-blocking extraction only handles reads; writes stay blocking. Implied
// ordering edges are cancelled, never hoisted to an earlier driver.
//
// The result does not depend on the order nodes are visited in, and a
// second Run on the output performs no rewrites.
package simplify
