// Package observability provides hooks around synthesis passes and
// rendered artifacts.
//
// Hooks are registered by main, not by libraries, so the passes stay free of
// any metrics framework. The defaults are no-ops; [Recorder] aggregates
// events in memory.
//
// # Usage
//
// Register hooks at application startup:
//
//	rec := observability.NewRecorder()
//	observability.SetPipelineHooks(rec)
//	observability.SetArtifactHooks(rec)
//
// The pipeline runner emits events around every pass:
//
//	observability.Pipeline().OnPassStart(ctx, "simplify", nl.NodeCount())
//	// ... run the pass ...
//	observability.Pipeline().OnPassComplete(ctx, "simplify", rewrites, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the synthesis pipeline.
type PipelineHooks interface {
	// OnPassStart fires before a pass runs on a netlist of nodes live nodes.
	OnPassStart(ctx context.Context, pass string, nodes int)
	// OnPassComplete reports how many changes the pass made (rewrites,
	// merges, elements, ...).
	OnPassComplete(ctx context.Context, pass string, changes int, duration time.Duration, err error)
}

// =============================================================================
// Artifact Hooks
// =============================================================================

// ArtifactHooks receives events when diagnostic outputs are produced.
type ArtifactHooks interface {
	// OnArtifact records a rendered output of the given format and size.
	OnArtifact(ctx context.Context, format string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnPassStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnPassComplete(context.Context, string, int, time.Duration, error) {}

// NoopArtifactHooks is a no-op implementation of ArtifactHooks.
type NoopArtifactHooks struct{}

func (NoopArtifactHooks) OnArtifact(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	artifactHooks ArtifactHooks = NoopArtifactHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetArtifactHooks registers custom artifact hooks.
func SetArtifactHooks(h ArtifactHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		artifactHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Artifact returns the registered artifact hooks.
func Artifact() ArtifactHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return artifactHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	artifactHooks = NoopArtifactHooks{}
}
