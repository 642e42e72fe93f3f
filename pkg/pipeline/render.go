package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/observability"
	"github.com/matzehuels/syncarch/pkg/render/dot"
	"github.com/matzehuels/syncarch/pkg/render/timeline"
)

// RenderOptions configures Render.
type RenderOptions struct {
	// Detailed lists nodes and handshake conditions in DOT stage labels.
	Detailed bool
	// Timeline options are passed through to timeline.RenderJSON.
	Timeline []timeline.Option
}

// Render generates diagnostic artifacts of a finished run in the requested
// formats, keyed by format.
func Render(ctx context.Context, nl *netlist.Netlist, result *Result, formats []string, opts RenderOptions) (map[string][]byte, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}

	var graph string
	dotGraph := func() string {
		if graph == "" {
			graph = dot.Elements(nl, result.Elements, result.Analysis, dot.Options{Detailed: opts.Detailed})
		}
		return graph
	}

	artifacts := make(map[string][]byte)
	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case FormatDOT:
			data = []byte(dotGraph())
		case FormatSVG:
			data, err = dot.RenderSVG(dotGraph())
		case FormatJSON:
			topts := append([]timeline.Option{timeline.WithAnalysis(result.Analysis)}, opts.Timeline...)
			data, err = timeline.RenderJSON(nl, result.Elements, topts...)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		observability.Artifact().OnArtifact(ctx, format, len(data))
		artifacts[format] = data
	}

	return artifacts, nil
}
