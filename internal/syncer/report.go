package syncer

import "time"

// Report is the structured result of one orchestrator run. It is the entry
// points' only side channel: callers get counts and messages here, never
// exceptions.
//
// Success=false with an empty Tenants slice means the run did not execute at
// all. Success=true with populated tenant error lists means the run executed
// with partial failures.
type Report struct {
	RunID     string         `json:"run_id"`
	Mode      string         `json:"mode"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
	Window    *Window        `json:"window,omitempty"`
	Success   bool           `json:"success"`
	Counts    map[string]int `json:"counts"`
	Tenants   []TenantReport `json:"tenants"`
	Errors    []string       `json:"errors,omitempty"`
}

// TenantReport summarizes one tenant's pass within a run.
type TenantReport struct {
	ClientID              int64          `json:"client_id"`
	Upserted              map[string]int `json:"upserted"`
	Created               map[string]int `json:"created"`
	SoftDeleted           map[string]int `json:"soft_deleted,omitempty"`
	ReconciliationSkipped bool           `json:"reconciliation_skipped,omitempty"`
	Errors                []string       `json:"errors,omitempty"`
	Warnings              []string       `json:"warnings,omitempty"`
}

func newTenantReport(clientID int64) *TenantReport {
	return &TenantReport{
		ClientID: clientID,
		Upserted: make(map[string]int),
		Created:  make(map[string]int),
	}
}

// bump records one upserted row for an entity, tracking creations separately
// so overlap refetches cannot double-count them.
func (tr *TenantReport) bump(entity string, created bool) {
	tr.Upserted[entity]++
	if created {
		tr.Created[entity]++
	}
}

func (tr *TenantReport) softDeleted(entity string, n int64) {
	if n == 0 {
		return
	}
	if tr.SoftDeleted == nil {
		tr.SoftDeleted = make(map[string]int)
	}
	tr.SoftDeleted[entity] += int(n)
}

func (tr *TenantReport) addError(msg string) {
	tr.Errors = append(tr.Errors, msg)
}

func (tr *TenantReport) addWarning(msg string) {
	tr.Warnings = append(tr.Warnings, msg)
}

// merge folds a tenant summary into the run-level counts.
func (r *Report) merge(tr *TenantReport) {
	r.Tenants = append(r.Tenants, *tr)
	for entity, n := range tr.Upserted {
		r.Counts[entity] += n
	}
	for entity, n := range tr.SoftDeleted {
		r.Counts[entity+"_deleted"] += n
	}
}
