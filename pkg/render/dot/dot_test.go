package dot

import (
	"strings"
	"testing"

	"github.com/matzehuels/syncarch/pkg/arch"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

func synth(t *testing.T, nl *netlist.Netlist) ([]arch.ArchElement, *arch.InterArchAnalysis) {
	t.Helper()
	elements, err := arch.Detect(nl, island.Discover(nl, reach.New(nl)), arch.Options{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	iea, err := arch.Analyze(nl, elements)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for _, el := range elements {
		if err := el.AllocateDataPath(iea); err != nil {
			t.Fatalf("AllocateDataPath() error = %v", err)
		}
		if err := el.AllocateSync(); err != nil {
			t.Fatalf("AllocateSync() error = %v", err)
		}
	}
	return elements, iea
}

func TestElementsPipelineChain(t *testing.T) {
	nl := netlist.New("chain", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	out := nl.AddInterface("out", netlist.DirOut, 1)
	rd := nl.Read("rd", in, 0)
	s := nl.ExplicitSync("s", 0, nl.DataOut(rd))
	inc := nl.Operator("inc", "add", 10, nl.DataOut(s))
	nl.Write("wr", out, 10, nl.DataOut(inc))

	elements, iea := synth(t, nl)
	got := Elements(nl, elements, iea, Options{})

	for _, want := range []string{
		"digraph G {",
		`subgraph "cluster_` + elements[0].Name() + `"`,
		`"` + elements[1].Name() + `/0" -> "` + elements[1].Name() + `/1";`,
		`style=dashed, label="rd#1.data"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Elements() missing %q\n%s", want, got)
		}
	}
}

func TestElementsFsmTransitions(t *testing.T) {
	nl := netlist.New("a", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	r0 := nl.Read("r0", in, 0)
	r1 := nl.Read("r1", in, 20)
	nl.Operator("sum", "add", 20, nl.DataOut(r0), nl.DataOut(r1))

	elements, iea := synth(t, nl)
	got := Elements(nl, elements, iea, Options{Detailed: true})

	for _, want := range []string{
		`"fsm_in/0" -> "fsm_in/2";`,
		`"fsm_in/2" -> "fsm_in/0";`,
		`label="fsm_in (fsm)"`,
		`r1#2`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Elements() missing %q\n%s", want, got)
		}
	}
}

func TestElementsChannels(t *testing.T) {
	nl := netlist.New("ch", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	rd := nl.Read("rd", in, 0)
	_, r, _ := nl.NewChannel("acc", netlist.Backedge, []int64{0}, 0, 10, nl.DataOut(rd))
	nl.Operator("use", "not", 0, nl.DataOut(r))

	elements, iea := synth(t, nl)
	got := Elements(nl, elements, iea, Options{})
	if !strings.Contains(got, `style=dotted, color=red, label="acc"`) {
		t.Errorf("Elements() missing backedge channel\n%s", got)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.00 50.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %q, want %q", got, want)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("normalizeViewBox(no viewBox) = %q, want unchanged", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering in short mode")
	}
	svg, err := RenderSVG("digraph G { a -> b; }")
	if err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("RenderSVG() = %q, want svg document", svg)
	}
}
