package dot

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/syncarch/pkg/arch"
	"github.com/matzehuels/syncarch/pkg/netlist"
)

// Options configures element diagram rendering.
type Options struct {
	// Detailed lists the nodes and handshake participants of every stage.
	// When false, stages are labeled with their clock index only.
	Detailed bool
}

// Elements converts synthesized elements to Graphviz DOT. Each element is a
// cluster of stage nodes; solid edges are stage transitions, dashed edges
// are values shared between elements and dotted edges are channels.
//
// iea may be nil, in which case shared values are not drawn.
func Elements(nl *netlist.Netlist, elements []arch.ArchElement, iea *arch.InterArchAnalysis, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, el := range elements {
		fmt.Fprintf(&buf, "  subgraph %q {\n", "cluster_"+el.Name())
		fmt.Fprintf(&buf, "    label=%q;\n", fmt.Sprintf("%s (%s)", el.Name(), el.Kind()))
		for _, st := range el.Stages() {
			fmt.Fprintf(&buf, "    %q [%s];\n", stageID(el, st.Clk), strings.Join(stageAttrs(nl, st, opts.Detailed), ", "))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, el := range elements {
		writeTransitions(&buf, el)
	}
	if iea != nil {
		for _, v := range iea.Values {
			for _, c := range v.Consumers {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed, label=%q];\n",
					stageID(v.Owner, v.Clk), stageID(c.Element, c.FirstUse), outLabel(nl, v.Out))
			}
		}
	}
	for _, ch := range nl.Channels() {
		w, r := ownerOf(elements, ch.Write), ownerOf(elements, ch.Read)
		if w == nil || r == nil {
			continue
		}
		color := "blue"
		if ch.Kind == netlist.Backedge {
			color = "red"
		}
		fmt.Fprintf(&buf, "  %q -> %q [style=dotted, color=%s, label=%q];\n",
			stageID(w, nl.Clk(ch.Write)), stageID(r, nl.Clk(ch.Read)), color, ch.Name)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeTransitions(buf *bytes.Buffer, el arch.ArchElement) {
	if f, ok := el.(*arch.Fsm); ok && f.TransitionTable() != nil {
		table := f.TransitionTable()
		for _, from := range f.States() {
			row := table[from]
			for _, to := range slices.Sorted(maps.Keys(row)) {
				attrs := ""
				if c := row[to]; !c.IsTrue() {
					attrs = fmt.Sprintf(" [label=%q]", c.String())
				}
				fmt.Fprintf(buf, "  %q -> %q%s;\n", stageID(el, from), stageID(el, to), attrs)
			}
		}
		return
	}
	stages := el.Stages()
	for i := 1; i < len(stages); i++ {
		fmt.Fprintf(buf, "  %q -> %q;\n", stageID(el, stages[i-1].Clk), stageID(el, stages[i].Clk))
	}
}

func stageID(el arch.ArchElement, clk int) string {
	return fmt.Sprintf("%s/%d", el.Name(), clk)
}

func stageAttrs(nl *netlist.Netlist, st *arch.ConnectionsOfStage, detailed bool) []string {
	label := fmt.Sprintf("clk %d", st.Clk)
	if detailed {
		var parts []string
		for _, id := range st.Nodes {
			parts = append(parts, nl.MustNode(id).String())
		}
		if st.Sync != nil {
			parts = append(parts, "extraCond: "+st.Sync.ExtraCond.String(), "skipWhen: "+st.Sync.SkipWhen.String())
		}
		if len(parts) > 0 {
			label += "\n" + strings.Join(parts, "\n")
		}
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if st.Empty() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

func outLabel(nl *netlist.Netlist, ref netlist.OutRef) string {
	n := nl.MustNode(ref.Node)
	return n.String() + "." + n.Outputs[ref.Index].Name
}

func ownerOf(elements []arch.ArchElement, id netlist.NodeID) arch.ArchElement {
	for _, el := range elements {
		if el.Owns(id) {
			return el
		}
	}
	return nil
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
