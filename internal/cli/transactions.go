package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jetpackmatt/dashboard-sub019/internal/syncer"
)

// TransactionsOptions holds flags for the transactions command.
type TransactionsOptions struct {
	*RootOptions
	DaysBack int
	From     string
	To       string
}

// NewTransactionsCommand creates the transactions command.
func NewTransactionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransactionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Synchronize billable transactions",
		Long: `Synchronize billable transactions for every tenant.

By default the window covers the last --days-back days. An explicit
[--from, --to) pair targets a historical billing period instead.

Example:
  fulfillsyncd transactions --days-back 3
  fulfillsyncd transactions --from 2026-01-01T00:00:00Z --to 2026-02-01T00:00:00Z`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := transactionWindow(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid window flags", err)
			}

			a, err := newApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.close()

			rep := a.orch.SyncTransactions(cmd.Context(), w)
			return finishRun(opts.RootOptions, cmd, rep)
		},
	}

	cmd.Flags().IntVar(&opts.DaysBack, "days-back", 3, "window width in days")
	cmd.Flags().StringVar(&opts.From, "from", "", "explicit window start (RFC 3339)")
	cmd.Flags().StringVar(&opts.To, "to", "", "explicit window end (RFC 3339)")

	return cmd
}

func transactionWindow(opts *TransactionsOptions) (syncer.Window, error) {
	if opts.From == "" && opts.To == "" {
		return syncer.ReconcileWindow(time.Now(), opts.DaysBack), nil
	}
	if opts.From == "" || opts.To == "" {
		return syncer.Window{}, fmt.Errorf("--from and --to must be given together")
	}
	start, err := time.Parse(time.RFC3339, opts.From)
	if err != nil {
		return syncer.Window{}, fmt.Errorf("parse --from: %w", err)
	}
	end, err := time.Parse(time.RFC3339, opts.To)
	if err != nil {
		return syncer.Window{}, fmt.Errorf("parse --to: %w", err)
	}
	if !start.Before(end) {
		return syncer.Window{}, fmt.Errorf("--from must be before --to")
	}
	return syncer.Window{Start: start, End: end}, nil
}
