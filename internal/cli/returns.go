package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jetpackmatt/dashboard-sub019/internal/syncer"
)

// NewReturnsCommand creates the returns command.
func NewReturnsCommand(rootOpts *RootOptions) *cobra.Command {
	var daysBack int

	cmd := &cobra.Command{
		Use:           "returns",
		Short:         "Synchronize return orders",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			w := syncer.ReconcileWindow(time.Now(), daysBack)
			rep := a.orch.SyncReturns(cmd.Context(), w)
			return finishRun(rootOpts, cmd, rep)
		},
	}

	cmd.Flags().IntVar(&daysBack, "days-back", 7, "window width in days")

	return cmd
}

// NewReceivingCommand creates the receiving command.
func NewReceivingCommand(rootOpts *RootOptions) *cobra.Command {
	var daysBack int

	cmd := &cobra.Command{
		Use:           "receiving",
		Short:         "Synchronize warehouse receiving orders",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			w := syncer.ReconcileWindow(time.Now(), daysBack)
			rep := a.orch.SyncReceivingOrders(cmd.Context(), w)
			return finishRun(rootOpts, cmd, rep)
		},
	}

	cmd.Flags().IntVar(&daysBack, "days-back", 7, "window width in days")

	return cmd
}
