package cli

import (
	"github.com/spf13/cobra"

	"github.com/jetpackmatt/dashboard-sub019/internal/syncer"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Reconcile   bool
	MinutesBack int
	DaysBack    int
}

// NewSyncCommand creates the sync command: the order/shipment entry point.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize orders and shipments",
		Long: `Synchronize orders with their items, shipments and cartons for every
tenant with a provisioned credential.

Without --reconcile a narrow incremental window is fetched (minute-level
freshness). With --reconcile a wide window is fetched and local records
absent from the complete upstream listing are soft-deleted.

Example:
  fulfillsyncd sync --config ./fulfillsync.yaml
  fulfillsyncd sync --reconcile --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.RootOptions, func(so *syncer.Options) {
				if opts.MinutesBack > 0 {
					so.IncrementalMinutes = opts.MinutesBack
				}
				if opts.DaysBack > 0 {
					so.ReconcileDays = opts.DaysBack
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			rep := a.orch.SyncAll(cmd.Context(), opts.Reconcile)
			return finishRun(opts.RootOptions, cmd, rep)
		},
	}

	cmd.Flags().BoolVar(&opts.Reconcile, "reconcile", false, "wide window with soft-delete reconciliation")
	cmd.Flags().IntVar(&opts.MinutesBack, "minutes-back", 0, "override the incremental window width in minutes")
	cmd.Flags().IntVar(&opts.DaysBack, "days-back", 0, "override the reconcile window width in days")

	return cmd
}
