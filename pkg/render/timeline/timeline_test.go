package timeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/syncarch/pkg/arch"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

func scenario(t *testing.T) (*netlist.Netlist, []arch.ArchElement, *arch.InterArchAnalysis) {
	t.Helper()
	nl := netlist.New("a", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	r0 := nl.Read("r0", in, 0)
	r1 := nl.Read("r1", in, 20)
	nl.Operator("sum", "add", 20, nl.DataOut(r0), nl.DataOut(r1))

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
	return nl, elements, iea
}

func TestRenderJSON(t *testing.T) {
	nl, elements, iea := scenario(t)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	data, err := RenderJSON(nl, elements, WithRunID(id), WithAnalysis(iea))
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	if out.RunID != id.String() {
		t.Errorf("RunID = %q, want %q", out.RunID, id)
	}
	if !strings.HasPrefix(out.Generator, "syncarch ") {
		t.Errorf("Generator = %q, want syncarch prefix", out.Generator)
	}
	if out.ClkPeriod != 10 {
		t.Errorf("ClkPeriod = %d, want 10", out.ClkPeriod)
	}
	if len(out.Elements) != 1 {
		t.Fatalf("Elements count = %d, want 1", len(out.Elements))
	}
	el := out.Elements[0]
	if el.Kind != "fsm" {
		t.Errorf("Kind = %q, want fsm", el.Kind)
	}
	if len(el.Stages) != 2 || el.Stages[0].Clk != 0 || el.Stages[1].Clk != 2 {
		t.Errorf("Stages = %+v, want clocks 0 and 2", el.Stages)
	}
	if len(el.Transitions) != 2 {
		t.Errorf("Transitions = %+v, want 2", el.Transitions)
	}
	if el.StateReg == nil || el.StateReg.Width != 1 {
		t.Errorf("StateReg = %+v, want width 1", el.StateReg)
	}
	if len(el.Stages[0].Registers) != 1 {
		t.Errorf("Stages[0].Registers = %v, want 1", el.Stages[0].Registers)
	}
}

func TestRenderJSONFreshRunID(t *testing.T) {
	nl, elements, _ := scenario(t)
	a, err := RenderJSON(nl, elements)
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	b, err := RenderJSON(nl, elements)
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var oa, ob jsonOutput
	if err := json.Unmarshal(a, &oa); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if err := json.Unmarshal(b, &ob); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if _, err := uuid.Parse(oa.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", oa.RunID, err)
	}
	if oa.RunID == ob.RunID {
		t.Errorf("two renders share RunID %q", oa.RunID)
	}
}
