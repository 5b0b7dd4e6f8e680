// Package httpapi exposes the sync entry points over HTTP for the external
// scheduler, plus health and metrics endpoints.
//
// Each trigger is idempotent and re-triggerable; the scheduler is trusted to
// serialize runs of the same cadence. The response body is the run's Report.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jetpackmatt/dashboard-sub019/internal/syncer"
)

// Server wires the orchestrator's entry points into a chi router.
type Server struct {
	orch *syncer.Orchestrator
	opts syncer.Options
	now  func() time.Time
}

// NewRouter builds the HTTP routing table.
func NewRouter(orch *syncer.Orchestrator, opts syncer.Options, gatherer prometheus.Gatherer) http.Handler {
	s := &Server{orch: orch, opts: opts, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/sync", func(r chi.Router) {
		r.Post("/all", s.handleSyncAll)
		r.Post("/transactions", s.handleSyncTransactions)
		r.Post("/returns", s.handleSyncReturns)
		r.Post("/receiving-orders", s.handleSyncReceivingOrders)
		r.Post("/timelines", s.handleSyncTimelines)
		r.Post("/backfill", s.handleBackfill)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	reconcile := r.URL.Query().Get("reconcile") == "true"
	writeReport(w, s.orch.SyncAll(r.Context(), reconcile))
}

func (s *Server) handleSyncTransactions(w http.ResponseWriter, r *http.Request) {
	window := syncer.ReconcileWindow(s.now(), s.opts.ReconcileDays)
	writeReport(w, s.orch.SyncTransactions(r.Context(), window))
}

func (s *Server) handleSyncReturns(w http.ResponseWriter, r *http.Request) {
	window := syncer.ReconcileWindow(s.now(), s.opts.ReconcileDays)
	writeReport(w, s.orch.SyncReturns(r.Context(), window))
}

func (s *Server) handleSyncReceivingOrders(w http.ResponseWriter, r *http.Request) {
	window := syncer.ReconcileWindow(s.now(), s.opts.ReconcileDays)
	writeReport(w, s.orch.SyncReceivingOrders(r.Context(), window))
}

func (s *Server) handleSyncTimelines(w http.ResponseWriter, r *http.Request) {
	writeReport(w, s.orch.SyncUndeliveredTimelines(r.Context()))
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	writeReport(w, s.orch.BackfillMissingItems(r.Context()))
}

// writeReport serializes a run report. A run that did not execute at all
// (success=false, no tenants) is a 500; partial failures are still 200
// because the run itself completed.
func writeReport(w http.ResponseWriter, rep *syncer.Report) {
	w.Header().Set("Content-Type", "application/json")
	if !rep.Success {
		w.WriteHeader(http.StatusInternalServerError)
	}
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		slog.Error("encode report", "error", err)
	}
}
