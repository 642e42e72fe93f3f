package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/syncarch/pkg/check"
	"github.com/matzehuels/syncarch/pkg/errors"
	"github.com/matzehuels/syncarch/pkg/island"
	"github.com/matzehuels/syncarch/pkg/netlist/reach"
)

// checkCommand creates the check command validating a fixture.
func (c *CLI) checkCommand() *cobra.Command {
	var noMerge bool

	cmd := &cobra.Command{
		Use:   "check [netlist.toml]",
		Short: "Check the consistency of a netlist fixture",
		Long: `Check the consistency of a netlist fixture.

The check command verifies port biconsistency, payloads, channels and
acyclicity of the netlist, then discovers (and merges, unless --no-merge)
sync islands and verifies the island partition.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFixture,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), newConsole(cmd.OutOrStdout()), args[0], !noMerge)
		},
	}

	cmd.Flags().BoolVar(&noMerge, "no-merge", false, "check the islands before merging")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, con *console, input string, merge bool) error {
	logger := fixtureLogger(loggerFromContext(ctx), input)

	nl, err := loadFixture(input)
	if err != nil {
		return err
	}
	if err := check.Netlist(nl); err != nil {
		reportInconsistent(con, input, "netlist", err)
		return err
	}

	oracle := reach.New(nl)
	p := island.Discover(nl, oracle)
	found := p.Len()
	if merge {
		island.Merge(p, oracle, island.MergeOptions{Logger: logger})
	}
	if err := check.Islands(p); err != nil {
		reportInconsistent(con, input, "island partition", err)
		return err
	}

	con.success("%s is consistent", input)
	con.detail("%d nodes · %d channels · %d islands (%d before merging)",
		nl.NodeCount(), len(nl.Channels()), p.Len(), found)
	return nil
}

func reportInconsistent(con *console, input, what string, err error) {
	if node := errors.NodeOf(err); node != "" {
		con.failure("%s: %s is inconsistent at %s", input, what, node)
		return
	}
	con.failure("%s: %s is inconsistent", input, what)
}
