// Package dot renders synthesized architecture elements as Graphviz
// diagrams.
//
// # Usage
//
//	src := dot.Elements(nl, elements, iea, dot.Options{Detailed: true})
//	svg, err := dot.RenderSVG(src)
//
// Every element becomes a cluster with one box per stage. Pipeline stages
// are chained in clock order; FSM stages are connected by the transition
// table, labeled with the transition condition when it is not constant 1.
// Values read by another element are drawn as dashed edges from the
// producing stage to the consumer's first-use stage, channels as dotted
// edges (red for backedges, blue for forward edges).
//
// The output is a debugging aid, not a stable format.
//
// # Dependencies
//
// [RenderSVG] uses [github.com/goccy/go-graphviz] for in-process rendering.
package dot
