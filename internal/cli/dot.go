package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/syncarch/pkg/pipeline"
	"github.com/matzehuels/syncarch/pkg/render/dot"
)

// dotCommand creates the dot command printing the element diagram.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		flags    synthFlags
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "dot [netlist.toml]",
		Short: "Print the Graphviz diagram of the synthesized elements",
		Long: `Print the Graphviz diagram of the synthesized elements.

Each element is a cluster of stage nodes. Solid edges are stage transitions
(labeled with their condition in FSMs), dashed edges are values shared
between elements and dotted edges are channels, red for backedges.

The output can be piped to Graphviz:

  syncarch dot design.toml | dot -Tpng -o design.png`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFixture,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			return c.runDot(cmd.Context(), newConsole(cmd.OutOrStdout()), args[0], opts, output, detailed)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "list nodes and handshake conditions of every stage")

	return cmd
}

func (c *CLI) runDot(ctx context.Context, con *console, input string, opts pipeline.Options, output string, detailed bool) error {
	nl, err := loadFixture(input)
	if err != nil {
		return err
	}
	opts.Logger = fixtureLogger(loggerFromContext(ctx), input)
	result, err := c.newRunner().Execute(ctx, nl, opts)
	if err != nil {
		return fmt.Errorf("synthesize %s: %w", input, err)
	}
	logPasses(opts.Logger, result.Stats)

	graph := dot.Elements(nl, result.Elements, result.Analysis, dot.Options{Detailed: detailed})
	if output == "" {
		_, err := fmt.Fprint(con.w, graph)
		return err
	}
	if err := os.WriteFile(output, []byte(graph), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	con.file(output)
	return nil
}
