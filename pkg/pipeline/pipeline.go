// Package pipeline runs the architecture-synthesis passes over a scheduled
// netlist.
//
// This package centralizes the pass order so the CLI and library callers
// behave identically.
//
// # Architecture
//
// The passes run in a fixed order:
//
//  1. Check: the consistency checker (debug runs only)
//  2. Simplify: the sync-simplification fixed point
//  3. Islands: sync-island discovery
//  4. Merge: island merge heuristics
//  5. Detect: FSM and pipeline detection
//  6. Analyze: inter-element sharing analysis
//  7. Allocate: AllocateDataPath and AllocateSync on every element
//
// Cancellation is checked between passes; a pass itself always runs to
// completion.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	opts := pipeline.DefaultOptions()
//	result, err := runner.Execute(ctx, nl, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	artifacts, err := pipeline.Render(ctx, nl, result, []string{"dot", "json"}, pipeline.RenderOptions{})
//
// Options can also be loaded from a TOML file:
//
//	opts, err := pipeline.LoadOptions("syncarch.toml")
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/syncarch/pkg/arch"
	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/expr"
	"github.com/matzehuels/syncarch/pkg/island"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxSimplifyIterations bounds the rewrites of one simplification
	// run.
	DefaultMaxSimplifyIterations = 100000
)

// Pass names reported to logs and observability hooks.
const (
	PassCheck    = "check"
	PassSimplify = "simplify"
	PassIslands  = "islands"
	PassMerge    = "merge"
	PassDetect   = "detect"
	PassAnalyze  = "analyze"
	PassAllocate = "allocate"
)

// Passes lists the pass names in execution order.
var Passes = []string{PassCheck, PassSimplify, PassIslands, PassMerge, PassDetect, PassAnalyze, PassAllocate}

// Format constants for diagnostic outputs.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a synthesis run.
type Options struct {
	// Debug re-runs the consistency checker after every rewrite and pass.
	Debug bool `toml:"debug" json:"debug,omitempty"`
	// MergeIslands enables the island merge heuristics.
	MergeIslands bool `toml:"merge_islands" json:"merge_islands,omitempty"`
	// Simplify enables the sync-simplification fixed point.
	Simplify bool `toml:"simplify" json:"simplify,omitempty"`
	// MaxSimplifyIterations bounds the simplification rewrites.
	MaxSimplifyIterations int `toml:"max_simplify_iterations" json:"max_simplify_iterations,omitempty"`
	// TopExtraCond names the signal gating every stage of every element.
	// Empty means constant 1.
	TopExtraCond string `toml:"top_extra_cond" json:"top_extra_cond,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `toml:"-" json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// DefaultOptions returns the options of a normal run: simplification and
// island merging on, debug checks off.
func DefaultOptions() Options {
	return Options{
		MergeIslands:          true,
		Simplify:              true,
		MaxSimplifyIterations: DefaultMaxSimplifyIterations,
	}
}

// LoadOptions reads options from a TOML file. Keys missing from the file
// keep their DefaultOptions value; unknown keys are rejected.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	md, err := toml.DecodeFile(path, &opts)
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "options %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Options{}, errors.New(errors.ErrCodeInvalidInput, "options %s: unknown key %q", path, undecoded[0].String())
	}
	return opts, opts.ValidateAndSetDefaults()
}

// Result contains the outputs of a synthesis run.
type Result struct {
	// Islands is the final sync-island partition.
	Islands *island.Islands

	// Elements are the synthesized architecture elements.
	Elements []arch.ArchElement

	// Analysis is the inter-element sharing analysis.
	Analysis *arch.InterArchAnalysis

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	Rewrites     int
	IslandCount  int
	Merges       int
	ElementCount int
	Durations    map[string]time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.MaxSimplifyIterations < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_simplify_iterations must not be negative, got %d", o.MaxSimplifyIterations)
	}
	if o.MaxSimplifyIterations == 0 {
		o.MaxSimplifyIterations = DefaultMaxSimplifyIterations
	}
	if o.TopExtraCond != "" {
		if err := errors.ValidateIdentifier("top_extra_cond", o.TopExtraCond); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// TopCond returns the stage gating condition, nil for constant 1.
func (o *Options) TopCond() *expr.Expr {
	if o.TopExtraCond == "" {
		return nil
	}
	return expr.Var(o.TopExtraCond)
}
