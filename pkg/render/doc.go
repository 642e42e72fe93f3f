// Package render groups the diagnostic outputs of a synthesis run.
//
// Neither output is a stable contract; both exist to inspect what the
// passes decided.
//
//   - [dot]: Graphviz diagrams of elements, stages, shared values and
//     channels, with in-process SVG rendering.
//   - [timeline]: a JSON dump of the per-clock schedule of every element.
//
//	src := dot.Elements(nl, elements, iea, dot.Options{})
//	svg, err := dot.RenderSVG(src)
//	data, err := timeline.RenderJSON(nl, elements, timeline.WithAnalysis(iea))
//
// [dot]: github.com/matzehuels/syncarch/pkg/render/dot
// [timeline]: github.com/matzehuels/syncarch/pkg/render/timeline
package render
