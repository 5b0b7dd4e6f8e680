// Package syncer is the synchronization and reconciliation engine.
//
// An external scheduler invokes one of the orchestrator's entry points on a
// fixed cadence. Each entry point plans a time window, pages through the
// provider's collections for every tenant, maps wire records to local rows,
// and upserts them idempotently. Wide-window runs additionally reconcile:
// locally known records absent from a complete upstream listing are marked
// soft-deleted, because the provider never sends deletion events.
//
// Tenants are processed sequentially and independently. A failure in one
// tenant's pass is recorded in that tenant's summary and never aborts the
// run for the others.
package syncer
