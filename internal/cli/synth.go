package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/syncarch/pkg/io"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/pipeline"
)

// synthFlags holds the flags shared by commands that run the passes.
type synthFlags struct {
	config       string // options file (TOML)
	debug        bool   // run the consistency checker after every rewrite and pass
	noSimplify   bool   // skip sync simplification
	noMerge      bool   // skip island merging
	topExtraCond string // signal gating every stage
}

func (f *synthFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "options file (default: ~/.config/syncarch/syncarch.toml if present)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "check netlist consistency after every rewrite and pass")
	cmd.Flags().BoolVar(&f.noSimplify, "no-simplify", false, "skip sync simplification")
	cmd.Flags().BoolVar(&f.noMerge, "no-merge", false, "skip island merging")
	cmd.Flags().StringVar(&f.topExtraCond, "top-extra-cond", "", "signal gating every stage of every element")
}

// options loads the options file and applies explicitly set flags on top.
func (f *synthFlags) options(cmd *cobra.Command) (pipeline.Options, error) {
	opts, err := loadOptions(f.config)
	if err != nil {
		return pipeline.Options{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		opts.Debug = f.debug
	}
	if flags.Changed("no-simplify") {
		opts.Simplify = !f.noSimplify
	}
	if flags.Changed("no-merge") {
		opts.MergeIslands = !f.noMerge
	}
	if flags.Changed("top-extra-cond") {
		opts.TopExtraCond = f.topExtraCond
	}
	return opts, nil
}

// synthCommand creates the synth command running every pass on a fixture.
func (c *CLI) synthCommand() *cobra.Command {
	var (
		flags      synthFlags
		formatsStr string
		output     string
		detailed   bool
	)

	cmd := &cobra.Command{
		Use:   "synth [netlist.toml]",
		Short: "Synthesize FSMs and pipelines from a netlist fixture",
		Long: `Synthesize FSMs and pipelines from a netlist fixture.

The synth command imports a TOML netlist fixture, simplifies its sync nodes,
discovers and merges sync islands, then builds and allocates every
architecture element. A summary of the elements is printed.

Diagnostic outputs are written with --format: dot (Graphviz source),
svg (rendered diagram) and json (per-stage timeline).`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFixture,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			return c.runSynth(cmd.Context(), newConsole(cmd.OutOrStdout()), args[0], opts, formats, output, detailed)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): dot, svg, json (comma-separated)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "list nodes and handshake conditions in diagrams")

	return cmd
}

func (c *CLI) runSynth(ctx context.Context, con *console, input string, opts pipeline.Options, formats []string, output string, detailed bool) error {
	logger := fixtureLogger(loggerFromContext(ctx), input)

	nl, err := loadFixture(input)
	if err != nil {
		return err
	}

	opts.Logger = logger
	prog := newProgress(logger)
	result, err := c.newRunner().Execute(ctx, nl, opts)
	if err != nil {
		return fmt.Errorf("synthesize %s: %w", input, err)
	}
	logPasses(logger, result.Stats)
	prog.done(fmt.Sprintf("Synthesized %d elements", len(result.Elements)))

	con.result(nl, result)

	if len(formats) == 0 {
		return nil
	}
	artifacts, err := pipeline.Render(ctx, nl, result, formats, pipeline.RenderOptions{Detailed: detailed})
	if err != nil {
		return err
	}
	con.newline()
	return writeArtifacts(con, artifacts, formats, input, output)
}

func loadFixture(path string) (*netlist.Netlist, error) {
	nl, err := io.ImportTOML(path)
	if err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", path, err)
	}
	return nl, nil
}

// writeArtifacts writes one file per format. A single format goes to
// output verbatim; otherwise output (or the input path without extension)
// is used as base name.
func writeArtifacts(con *console, artifacts map[string][]byte, formats []string, input, output string) error {
	base := output
	if base == "" || len(formats) > 1 {
		if base == "" {
			base = strings.TrimSuffix(input, filepath.Ext(input))
		} else {
			base = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	for _, format := range formats {
		path := base + "." + format
		if output != "" && len(formats) == 1 {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		con.file(path)
	}
	return nil
}
