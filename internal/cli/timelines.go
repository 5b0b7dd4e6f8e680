package cli

import (
	"github.com/spf13/cobra"
)

// NewTimelinesCommand creates the timelines command.
func NewTimelinesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timelines",
		Short: "Append status checkpoints for undelivered shipments",
		Long: `Fetch and append new timeline checkpoints for shipments not yet in a
terminal status, newest first, bounded per run. Runs on its own cadence so
a slow timeline endpoint cannot starve the order/shipment sync.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			rep := a.orch.SyncUndeliveredTimelines(cmd.Context())
			return finishRun(rootOpts, cmd, rep)
		},
	}

	return cmd
}

// NewBackfillCommand creates the backfill command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Repopulate missing child rows for recent parents",
		Long: `Scan recently created orders and shipments that have zero child rows,
re-fetch each parent from the provider, and populate its items and
cartons. Bounded per run; repeated scheduled runs converge.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			rep := a.orch.BackfillMissingItems(cmd.Context())
			return finishRun(rootOpts, cmd, rep)
		},
	}

	return cmd
}
