package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/observability"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"dot", false},
		{"svg", false},
		{"json", false},
		{"png", true},
		{"DOT", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"dot", "json"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"dot", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
		wantMax int
	}{
		{"zero value", Options{}, false, DefaultMaxSimplifyIterations},
		{"explicit bound", Options{MaxSimplifyIterations: 7}, false, 7},
		{"negative bound", Options{MaxSimplifyIterations: -1}, true, 0},
		{"valid top cond", Options{TopExtraCond: "en"}, false, DefaultMaxSimplifyIterations},
		{"invalid top cond", Options{TopExtraCond: "not a name"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if opts.MaxSimplifyIterations != tt.wantMax {
				t.Errorf("MaxSimplifyIterations = %d, want %d", opts.MaxSimplifyIterations, tt.wantMax)
			}
			if opts.Logger == nil {
				t.Error("Logger = nil, want discard logger")
			}
		})
	}
}

func TestTopCond(t *testing.T) {
	opts := Options{}
	if c := opts.TopCond(); c != nil {
		t.Errorf("TopCond() = %v, want nil", c)
	}
	opts.TopExtraCond = "en"
	if got := opts.TopCond().String(); got != "en" {
		t.Errorf("TopCond() = %q, want %q", got, "en")
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.toml")
		writeFile(t, path, "debug = true\ntop_extra_cond = \"en\"\n")
		opts, err := LoadOptions(path)
		if err != nil {
			t.Fatalf("LoadOptions() error = %v", err)
		}
		if !opts.Debug || !opts.Simplify || !opts.MergeIslands {
			t.Errorf("LoadOptions() = %+v, want debug plus defaults", opts)
		}
		if opts.TopExtraCond != "en" {
			t.Errorf("TopExtraCond = %q, want %q", opts.TopExtraCond, "en")
		}
		if opts.MaxSimplifyIterations != DefaultMaxSimplifyIterations {
			t.Errorf("MaxSimplifyIterations = %d, want %d", opts.MaxSimplifyIterations, DefaultMaxSimplifyIterations)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.toml")
		writeFile(t, path, "simplfy = false\n")
		if _, err := LoadOptions(path); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("LoadOptions() error = %v, want %s", err, errors.ErrCodeInvalidInput)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadOptions(filepath.Join(dir, "missing.toml")); err == nil {
			t.Error("LoadOptions() error = nil, want error")
		}
	})
}

// dissolvable builds a read feeding an always-execute sync that feeds a
// write and an adder.
func dissolvable(t *testing.T) *netlist.Netlist {
	t.Helper()
	nl := netlist.New("d", 10)
	in := nl.AddInterface("in", netlist.DirIn, 1)
	out := nl.AddInterface("out", netlist.DirOut, 1)
	rd := nl.Read("rd", in, 0)
	s := nl.ExplicitSync("s", 0, nl.DataOut(rd))
	if _, err := nl.SetCondition(s, netlist.PortSkipWhen, nl.DataOut(nl.Const("zero", 0, 0))); err != nil {
		t.Fatalf("SetCondition() error = %v", err)
	}
	nl.Write("wr", out, 10, nl.DataOut(s))
	nl.Operator("inc", "add", 0, nl.DataOut(s))
	return nl
}

func TestExecute(t *testing.T) {
	nl := dissolvable(t)
	opts := DefaultOptions()
	opts.Debug = true

	result, err := NewRunner(nil).Execute(context.Background(), nl, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Stats.Rewrites != 2 {
		t.Errorf("Stats.Rewrites = %d, want 2", result.Stats.Rewrites)
	}
	if result.Stats.ElementCount == 0 || len(result.Elements) != result.Stats.ElementCount {
		t.Errorf("Elements = %d, Stats.ElementCount = %d", len(result.Elements), result.Stats.ElementCount)
	}
	if nl.Cap() != nl.NodeCount()+1 {
		t.Errorf("Cap() = %d, want %d (removed nodes compacted)", nl.Cap(), nl.NodeCount()+1)
	}
	if result.Stats.NodeCount != nl.NodeCount() {
		t.Errorf("Stats.NodeCount = %d, want %d", result.Stats.NodeCount, nl.NodeCount())
	}
	for _, n := range nl.Nodes() {
		if result.Analysis.OwnerOf(n.ID) == nil {
			t.Errorf("%s has no owner", n)
		}
	}
	for _, pass := range []string{PassCheck, PassSimplify, PassIslands, PassMerge, PassDetect, PassAnalyze, PassAllocate} {
		if _, ok := result.Stats.Durations[pass]; !ok {
			t.Errorf("Stats.Durations missing %q", pass)
		}
	}
}

func TestExecuteWithoutSimplify(t *testing.T) {
	nl := dissolvable(t)
	opts := DefaultOptions()
	opts.Simplify = false

	result, err := NewRunner(nil).Execute(context.Background(), nl, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Stats.Rewrites != 0 {
		t.Errorf("Stats.Rewrites = %d, want 0", result.Stats.Rewrites)
	}
	if _, ok := result.Stats.Durations[PassSimplify]; ok {
		t.Error("simplify pass ran with Simplify = false")
	}
}

func TestExecuteSimplifyRollsBack(t *testing.T) {
	nl := dissolvable(t)
	before := nl.NodeCount()
	opts := DefaultOptions()
	opts.MaxSimplifyIterations = 1

	if _, err := NewRunner(nil).Execute(context.Background(), nl, opts); err == nil {
		t.Fatal("Execute() error = nil, want rewrite limit error")
	}
	if got := nl.NodeCount(); got != before {
		t.Errorf("NodeCount() after failed simplify = %d, want %d", got, before)
	}
	syncs := nl.NodesOf(netlist.KindExplicitSync)
	if len(syncs) != 1 {
		t.Fatalf("explicit syncs = %d, want 1", len(syncs))
	}
	if _, ok := nl.Condition(syncs[0].ID, netlist.PortSkipWhen); !ok {
		t.Errorf("%s lost its skipWhen condition", syncs[0])
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(nil).Execute(ctx, dissolvable(t), DefaultOptions())
	if !errors.Is(err, errors.ErrCodeCanceled) {
		t.Errorf("Execute() error = %v, want %s", err, errors.ErrCodeCanceled)
	}
}

func TestExecuteReportsPasses(t *testing.T) {
	rec := observability.NewRecorder()
	observability.SetPipelineHooks(rec)
	observability.SetArtifactHooks(rec)
	defer observability.Reset()

	nl := dissolvable(t)
	result, err := NewRunner(nil).Execute(context.Background(), nl, DefaultOptions())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got []string
	for _, p := range rec.Passes() {
		got = append(got, p.Pass)
		if p.Runs != 1 || p.Failures != 0 {
			t.Errorf("pass %s: runs = %d, failures = %d, want 1 and 0", p.Pass, p.Runs, p.Failures)
		}
	}
	want := []string{PassSimplify, PassIslands, PassMerge, PassDetect, PassAnalyze, PassAllocate}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("passes = %v, want %v", got, want)
	}
	if simplified := rec.Passes()[0]; simplified.Changes != 2 {
		t.Errorf("simplify changes = %d, want 2", simplified.Changes)
	}

	artifacts, err := Render(context.Background(), nl, result, []string{FormatDOT}, RenderOptions{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := rec.ArtifactBytes(FormatDOT); got != len(artifacts[FormatDOT]) {
		t.Errorf("ArtifactBytes(dot) = %d, want %d", got, len(artifacts[FormatDOT]))
	}
}

func TestRender(t *testing.T) {
	nl := dissolvable(t)
	result, err := NewRunner(nil).Execute(context.Background(), nl, DefaultOptions())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	artifacts, err := Render(context.Background(), nl, result, []string{FormatDOT, FormatJSON}, RenderOptions{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(string(artifacts[FormatDOT]), "digraph G {") {
		t.Errorf("dot artifact = %q, want digraph", artifacts[FormatDOT])
	}
	var doc map[string]any
	if err := json.Unmarshal(artifacts[FormatJSON], &doc); err != nil {
		t.Fatalf("json artifact does not parse: %v", err)
	}
	if doc["netlist"] != "d" {
		t.Errorf("netlist = %v, want %q", doc["netlist"], "d")
	}

	if _, err := Render(context.Background(), nl, result, []string{"png"}, RenderOptions{}); err == nil {
		t.Error("Render(png) error = nil, want error")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
