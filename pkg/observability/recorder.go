package observability

import (
	"context"
	"sync"
	"time"
)

// PassRecord aggregates the events of one pass name.
type PassRecord struct {
	Pass     string
	Runs     int
	Changes  int
	Failures int
	Duration time.Duration
	// Nodes is the live node count seen by the last OnPassStart.
	Nodes int
}

// Recorder implements PipelineHooks and ArtifactHooks by keeping counters
// in memory. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	order     []string
	passes    map[string]*PassRecord
	artifacts map[string]int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{passes: make(map[string]*PassRecord), artifacts: make(map[string]int)}
}

func (r *Recorder) record(pass string) *PassRecord {
	rec, ok := r.passes[pass]
	if !ok {
		rec = &PassRecord{Pass: pass}
		r.passes[pass] = rec
		r.order = append(r.order, pass)
	}
	return rec
}

func (r *Recorder) OnPassStart(_ context.Context, pass string, nodes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(pass).Nodes = nodes
}

func (r *Recorder) OnPassComplete(_ context.Context, pass string, changes int, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.record(pass)
	rec.Runs++
	rec.Changes += changes
	rec.Duration += d
	if err != nil {
		rec.Failures++
	}
}

func (r *Recorder) OnArtifact(_ context.Context, format string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[format] += size
}

// Passes returns copies of the pass records in first-seen order.
func (r *Recorder) Passes() []PassRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PassRecord, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, *r.passes[p])
	}
	return out
}

// ArtifactBytes returns the total bytes rendered in format.
func (r *Recorder) ArtifactBytes(format string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifacts[format]
}
