package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jetpackmatt/dashboard-sub019/internal/provider"
	"github.com/jetpackmatt/dashboard-sub019/internal/store"
	"github.com/jetpackmatt/dashboard-sub019/internal/syncmetrics"
)

// CredentialSource resolves a tenant to its provider API token. An absent
// credential means "skip this tenant, no error".
type CredentialSource interface {
	Token(clientID int64) (string, bool)
}

// Options are the scheduling-policy knobs for the orchestrator. Window
// widths are tunables, not constants; see config.Default for the values used
// in production.
type Options struct {
	IncrementalMinutes       int
	IncrementalMarginMinutes int
	ReconcileDays            int
	BackfillParentDays       int
	BackfillMaxParents       int
	TimelineMaxShipments     int
	TimelineMaxAgeDays       int
	MaxPages                 int
	RequestsPerMinute        int
}

// Orchestrator drives the per-tenant sync pipeline: plan window, fetch
// pages, map records, upsert rows, and - on wide windows - reconcile.
//
// All state for one tenant's pass lives in an explicit tenantPass value;
// the orchestrator itself holds only immutable collaborators and is safe to
// reuse across runs.
type Orchestrator struct {
	store   *store.Store
	client  *provider.Client
	creds   CredentialSource
	opts    Options
	metrics *syncmetrics.Metrics

	// Injected for tests; defaults to time.Now.
	now func() time.Time
}

// New creates an orchestrator.
func New(st *store.Store, client *provider.Client, creds CredentialSource, opts Options, metrics *syncmetrics.Metrics) *Orchestrator {
	return &Orchestrator{
		store:   st,
		client:  client,
		creds:   creds,
		opts:    opts,
		metrics: metrics,
		now:     time.Now,
	}
}

// tenantPass carries one tenant's per-run state through the pipeline:
// credential, throttle bookkeeping, and result accumulators. Nothing is
// shared between tenants, so a reimplementation could run passes in
// parallel.
type tenantPass struct {
	clientID  int64
	token     string
	throttler *provider.Throttler
	report    *TenantReport
}

// run wraps an entry point with report bookkeeping and the top-level
// catch-all. Tenant-scoped failures are recorded inside fn; only a
// programming error escapes to the recover, which reports a run-level
// failure with zero tenants so callers can tell "did not execute" from
// "executed with partial failures".
func (o *Orchestrator) run(mode string, fn func(rep *Report)) (rep *Report) {
	started := o.now()
	rep = &Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: started,
		Success:   true,
		Counts:    make(map[string]int),
	}

	defer func() {
		if r := recover(); r != nil {
			rep.Success = false
			rep.Tenants = nil
			rep.Errors = append(rep.Errors, fmt.Sprintf("run aborted: %v", r))
			slog.Error("sync run aborted", "mode", mode, "run_id", rep.RunID, "panic", r)
		}
		rep.Duration = o.now().Sub(started)

		status := "ok"
		if !rep.Success {
			status = "failed"
		}
		o.metrics.RunsTotal.WithLabelValues(mode, status).Inc()
		o.metrics.RunDuration.WithLabelValues(mode).Observe(rep.Duration.Seconds())
		slog.Info("sync run finished",
			"mode", mode, "run_id", rep.RunID, "success", rep.Success,
			"tenants", len(rep.Tenants), "duration", rep.Duration)
	}()

	fn(rep)
	return rep
}

// forEachTenant iterates tenants sequentially, creating a fresh tenantPass
// per tenant. Tenants without a provisioned credential are skipped silently.
// An error returned by fn is recorded on that tenant's summary and never
// propagates to the other tenants.
func (o *Orchestrator) forEachTenant(ctx context.Context, rep *Report, fn func(ctx context.Context, tp *tenantPass) error) {
	tenants, err := o.store.ListTenants(ctx)
	if err != nil {
		rep.Success = false
		rep.Errors = append(rep.Errors, fmt.Sprintf("list tenants: %v", err))
		return
	}

	for _, t := range tenants {
		token, ok := o.creds.Token(t.ClientID)
		if !ok {
			slog.Debug("no credential provisioned, skipping tenant", "client_id", t.ClientID)
			continue
		}

		tp := &tenantPass{
			clientID:  t.ClientID,
			token:     token,
			throttler: provider.NewThrottler(o.opts.RequestsPerMinute),
			report:    newTenantReport(t.ClientID),
		}

		if err := fn(ctx, tp); err != nil {
			tp.report.addError(err.Error())
		}
		if len(tp.report.Errors) > 0 {
			o.metrics.TenantErrors.Add(float64(len(tp.report.Errors)))
		}
		rep.merge(tp.report)
	}
}

// recordFetchError classifies a paging error into the tenant's summary.
// Rate limits are warnings - the next run's overlapping window recovers the
// remainder. Provider 5xx and other transport failures are tenant-scoped
// errors, distinguished so operators can tell an upstream outage from a
// local fault. In all cases paging for the current entity has already
// stopped; the caller continues with whatever items were fetched.
func (o *Orchestrator) recordFetchError(tp *tenantPass, entity string, err error) {
	switch {
	case provider.IsRateLimited(err):
		o.metrics.RateLimitedTotal.Inc()
		tp.report.addWarning(fmt.Sprintf("%s: rate limited, deferring remainder to next run: %v", entity, err))
		slog.Warn("rate limited", "client_id", tp.clientID, "entity", entity)
	case provider.IsAuthError(err):
		tp.report.addError(fmt.Sprintf("%s: credential rejected: %v", entity, err))
		slog.Warn("credential rejected", "client_id", tp.clientID, "entity", entity)
	case provider.IsServerError(err):
		tp.report.addError(fmt.Sprintf("%s: provider server error: %v", entity, err))
		slog.Error("provider server error", "client_id", tp.clientID, "entity", entity, "error", err)
	default:
		tp.report.addError(fmt.Sprintf("%s: fetch failed: %v", entity, err))
		slog.Error("fetch failed", "client_id", tp.clientID, "entity", entity, "error", err)
	}
}
