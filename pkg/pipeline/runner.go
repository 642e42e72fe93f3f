package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/syncarch/pkg/arch"
	"github.com/matzehuels/syncarch/pkg/check"
	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
	"github.com/matzehuels/syncarch/pkg/observability"
	"github.com/matzehuels/syncarch/pkg/simplify"
)

// Runner executes the synthesis passes.
//
// The Runner is stateless except for its logger - it doesn't store
// results. Multiple goroutines can use the same Runner on different
// netlists.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs every pass on nl, which is modified in place by the
// simplification pass. A failed simplification leaves nl as it was. Once
// simplified, removed nodes are compacted away and node IDs renumbered.
// Any error is fatal to the run: partial results are not returned.
func (r *Runner) Execute(ctx context.Context, nl *netlist.Netlist, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{Stats: Stats{Durations: make(map[string]time.Duration)}}
	oracle := reach.New(nl)

	if opts.Debug {
		if err := r.pass(ctx, nl, result, PassCheck, func() (int, error) {
			return 0, check.Netlist(nl)
		}); err != nil {
			return nil, err
		}
	}

	if opts.Simplify {
		if err := r.pass(ctx, nl, result, PassSimplify, func() (int, error) {
			err := nl.Batch(func() error {
				n, err := simplify.Run(nl, oracle, simplify.Options{
					Debug:       opts.Debug,
					MaxRewrites: opts.MaxSimplifyIterations,
					Logger:      opts.Logger,
				})
				result.Stats.Rewrites = n
				return err
			})
			return result.Stats.Rewrites, err
		}); err != nil {
			return nil, err
		}
		r.Logger.Info("simplified syncs", "rewrites", result.Stats.Rewrites, "duration", result.Stats.Durations[PassSimplify])
	}

	// The oracle rebuilds itself on the epoch change.
	if removed := nl.Cap() - 1 - nl.NodeCount(); removed > 0 {
		nl.Compact()
		r.Logger.Debug("compacted netlist", "removed", removed)
	}
	result.Stats.NodeCount = nl.NodeCount()

	if err := r.pass(ctx, nl, result, PassIslands, func() (int, error) {
		result.Islands = island.Discover(nl, oracle)
		return result.Islands.Len(), nil
	}); err != nil {
		return nil, err
	}

	if opts.MergeIslands {
		if err := r.pass(ctx, nl, result, PassMerge, func() (int, error) {
			result.Stats.Merges = island.Merge(result.Islands, oracle, island.MergeOptions{Logger: opts.Logger})
			if opts.Debug {
				if err := check.Islands(result.Islands); err != nil {
					return result.Stats.Merges, err
				}
			}
			return result.Stats.Merges, nil
		}); err != nil {
			return nil, err
		}
	}
	result.Stats.IslandCount = result.Islands.Len()
	r.Logger.Info("built sync islands", "islands", result.Stats.IslandCount, "merges", result.Stats.Merges)

	if err := r.pass(ctx, nl, result, PassDetect, func() (int, error) {
		elements, err := arch.Detect(nl, result.Islands, arch.Options{
			TopExtraCond: opts.TopCond(),
			Logger:       opts.Logger,
		})
		result.Elements = elements
		return len(elements), err
	}); err != nil {
		return nil, err
	}
	result.Stats.ElementCount = len(result.Elements)

	if err := r.pass(ctx, nl, result, PassAnalyze, func() (int, error) {
		iea, err := arch.Analyze(nl, result.Elements)
		result.Analysis = iea
		if iea == nil {
			return 0, err
		}
		return len(iea.Values), err
	}); err != nil {
		return nil, err
	}

	if err := r.pass(ctx, nl, result, PassAllocate, func() (int, error) {
		for _, el := range result.Elements {
			if err := el.AllocateDataPath(result.Analysis); err != nil {
				return 0, errors.Wrap(errors.GetCode(err), err, "allocate data path of %s", el.Name())
			}
		}
		for _, el := range result.Elements {
			if err := el.AllocateSync(); err != nil {
				return 0, errors.Wrap(errors.GetCode(err), err, "allocate sync of %s", el.Name())
			}
		}
		return len(result.Elements), nil
	}); err != nil {
		return nil, err
	}

	r.Logger.Info("synthesized architecture",
		"netlist", nl.Name,
		"elements", result.Stats.ElementCount,
		"duration", totalDuration(result.Stats.Durations))
	return result, nil
}

// pass runs fn as the named pass: it checks for cancellation first, then
// reports start and completion to the observability hooks.
func (r *Runner) pass(ctx context.Context, nl *netlist.Netlist, result *Result, name string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCanceled, err, "before %s", name)
	}

	hooks := observability.Pipeline()
	hooks.OnPassStart(ctx, name, nl.NodeCount())
	start := time.Now()
	changes, err := fn()
	d := time.Since(start)
	result.Stats.Durations[name] = d
	hooks.OnPassComplete(ctx, name, changes, d, err)

	if err != nil {
		r.Logger.Debug("pass failed", "pass", name, "error", err)
		if errors.GetCode(err) == "" {
			return errors.Wrap(errors.ErrCodeInternal, err, "%s", name)
		}
		return err
	}
	r.Logger.Debug("pass complete", "pass", name, "changes", changes, "duration", d)
	return nil
}

func totalDuration(ds map[string]time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}
