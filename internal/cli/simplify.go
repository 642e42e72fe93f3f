package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/syncarch/pkg/io"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
	"github.com/matzehuels/syncarch/pkg/simplify"
)

// simplifyCommand creates the simplify command rewriting a fixture.
func (c *CLI) simplifyCommand() *cobra.Command {
	var (
		output string
		debug  bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "simplify [netlist.toml]",
		Short: "Simplify the sync nodes of a fixture and export the result",
		Long: `Simplify the sync nodes of a fixture and export the result.

The simplify command runs the sync-simplification rewrites to a fixed point
and writes the rewritten netlist as a TOML fixture. Use --verbose to log
every rewrite.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFixture,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSimplify(cmd.Context(), newConsole(cmd.OutOrStdout()), args[0], output, debug, limit)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&debug, "debug", false, "check netlist consistency after every rewrite")
	cmd.Flags().IntVar(&limit, "max-rewrites", simplify.DefaultMaxRewrites, "abort after this many rewrites")

	return cmd
}

func (c *CLI) runSimplify(ctx context.Context, con *console, input, output string, debug bool, limit int) error {
	logger := fixtureLogger(loggerFromContext(ctx), input)

	nl, err := loadFixture(input)
	if err != nil {
		return err
	}
	before := nl.NodeCount()

	prog := newProgress(logger)
	n, err := simplify.Run(nl, reach.New(nl), simplify.Options{Debug: debug, MaxRewrites: limit, Logger: logger})
	if err != nil {
		return fmt.Errorf("simplify %s: %w", input, err)
	}
	prog.done(fmt.Sprintf("Applied %d rewrites (%d → %d nodes)", n, before, nl.NodeCount()))

	if output == "" {
		return io.WriteTOML(nl, con.w)
	}
	if err := io.ExportTOML(nl, output); err != nil {
		return err
	}
	con.file(output)
	return nil
}
