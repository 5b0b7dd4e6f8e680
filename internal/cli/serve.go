package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jetpackmatt/dashboard-sub019/internal/httpapi"
)

// NewServeCommand creates the serve command: the HTTP trigger surface for an
// external scheduler, plus /healthz and /metrics.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose sync entry points over HTTP",
		Long: `Run an HTTP server exposing the sync entry points for an external
scheduler, along with Prometheus metrics.

The scheduler is trusted to serialize runs of the same cadence; runs of
different cadences are safe to overlap because all writes are idempotent
upserts.

Example:
  fulfillsyncd serve --listen :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			srv := &http.Server{
				Addr:              listen,
				Handler:           httpapi.NewRouter(a.orch, a.opts, a.registry),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			parentCtx := cmd.Context()
			if parentCtx == nil {
				parentCtx = context.Background()
			}
			ctx, cancel := context.WithCancel(parentCtx)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				select {
				case sig := <-sigChan:
					slog.Info("received signal, shutting down", "signal", sig)
					cancel()
				case <-ctx.Done():
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			slog.Info("http server listening", "addr", listen)
			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return WrapExitError(ExitFailure, "http server error", err)
				}
			case <-ctx.Done():
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return WrapExitError(ExitFailure, "shutdown error", err)
				}
			}

			slog.Info("server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "listen address")

	return cmd
}
