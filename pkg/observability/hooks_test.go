package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T, want NoopPipelineHooks", Pipeline())
	}
	if _, ok := Artifact().(NoopArtifactHooks); !ok {
		t.Errorf("Artifact() = %T, want NoopArtifactHooks", Artifact())
	}

	rec := NewRecorder()
	SetPipelineHooks(rec)
	SetArtifactHooks(rec)
	SetPipelineHooks(nil)
	if Pipeline() != PipelineHooks(rec) {
		t.Error("SetPipelineHooks(nil) replaced the registered hooks")
	}
	if Artifact() != ArtifactHooks(rec) {
		t.Error("SetArtifactHooks() did not register the recorder")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() did not restore NoopPipelineHooks")
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder()

	rec.OnPassStart(ctx, "simplify", 12)
	rec.OnPassComplete(ctx, "simplify", 3, 2*time.Millisecond, nil)
	rec.OnPassStart(ctx, "islands", 9)
	rec.OnPassComplete(ctx, "islands", 2, time.Millisecond, nil)
	rec.OnPassStart(ctx, "simplify", 9)
	rec.OnPassComplete(ctx, "simplify", 0, time.Millisecond, errors.New("cycle"))
	rec.OnArtifact(ctx, "dot", 100)
	rec.OnArtifact(ctx, "dot", 20)

	passes := rec.Passes()
	if len(passes) != 2 {
		t.Fatalf("Passes() = %v, want 2 records", passes)
	}
	want := PassRecord{Pass: "simplify", Runs: 2, Changes: 3, Failures: 1, Duration: 3 * time.Millisecond, Nodes: 9}
	if passes[0] != want {
		t.Errorf("Passes()[0] = %+v, want %+v", passes[0], want)
	}
	if passes[1].Pass != "islands" || passes[1].Changes != 2 {
		t.Errorf("Passes()[1] = %+v, want islands with 2 changes", passes[1])
	}
	if got := rec.ArtifactBytes("dot"); got != 120 {
		t.Errorf("ArtifactBytes(dot) = %d, want 120", got)
	}
	if got := rec.ArtifactBytes("svg"); got != 0 {
		t.Errorf("ArtifactBytes(svg) = %d, want 0", got)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.OnPassComplete(ctx, "merge", 1, time.Microsecond, nil)
			rec.OnArtifact(ctx, "json", 1)
		}()
	}
	wg.Wait()

	if got := rec.Passes()[0].Changes; got != 8 {
		t.Errorf("Changes = %d, want 8", got)
	}
	if got := rec.ArtifactBytes("json"); got != 8 {
		t.Errorf("ArtifactBytes(json) = %d, want 8", got)
	}
}
