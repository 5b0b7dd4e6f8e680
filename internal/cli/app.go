package cli

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jetpackmatt/dashboard-sub019/internal/config"
	"github.com/jetpackmatt/dashboard-sub019/internal/provider"
	"github.com/jetpackmatt/dashboard-sub019/internal/store"
	"github.com/jetpackmatt/dashboard-sub019/internal/syncer"
	"github.com/jetpackmatt/dashboard-sub019/internal/syncmetrics"
)

// app bundles the wired-up collaborators every command needs.
type app struct {
	cfg      config.Config
	store    *store.Store
	orch     *syncer.Orchestrator
	opts     syncer.Options
	registry *prometheus.Registry
}

// newApp loads configuration and constructs the store, provider client,
// credential source and orchestrator. Commands may pass tune functions to
// override config-derived options from their own flags. Callers must close()
// when done.
func newApp(rootOpts *RootOptions, tune ...func(*syncer.Options)) (*app, error) {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load credentials", err)
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	registry := prometheus.NewRegistry()
	metrics := syncmetrics.New(registry)

	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.UserAgent,
		provider.WithPageObserver(metrics.ObservePage))

	opts := syncer.Options{
		IncrementalMinutes:       cfg.Sync.IncrementalMinutes,
		IncrementalMarginMinutes: cfg.Sync.IncrementalMarginMinutes,
		ReconcileDays:            cfg.Sync.ReconcileDays,
		BackfillParentDays:       cfg.Sync.BackfillParentDays,
		BackfillMaxParents:       cfg.Sync.BackfillMaxParents,
		TimelineMaxShipments:     cfg.Sync.TimelineMaxShipments,
		TimelineMaxAgeDays:       cfg.Sync.TimelineMaxAgeDays,
		MaxPages:                 cfg.Provider.MaxPages,
		RequestsPerMinute:        cfg.Provider.RequestsPerMinute,
	}
	for _, fn := range tune {
		fn(&opts)
	}

	return &app{
		cfg:      cfg,
		store:    st,
		orch:     syncer.New(st, client, creds, opts, metrics),
		opts:     opts,
		registry: registry,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// finishRun prints the report and converts a did-not-execute run into a
// non-zero exit code.
func finishRun(rootOpts *RootOptions, cmd *cobra.Command, rep *syncer.Report) error {
	f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	if err := f.Report(rep); err != nil {
		return WrapExitError(ExitCommandError, "failed to render report", err)
	}
	if !rep.Success {
		return WrapExitError(ExitFailure, "sync run did not execute", nil)
	}
	return nil
}
