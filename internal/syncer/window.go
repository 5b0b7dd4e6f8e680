package syncer

import "time"

// Window is a half-open [Start, End) interval requested from the provider.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// IncrementalWindow plans a narrow minute-level window ending now. prevEnd is
// the recorded end of the previous incremental window (zero when none has
// been recorded, e.g. the first run against a fresh database).
//
// The start is the earlier of two anchors: minutesBack+marginMinutes behind
// now, and marginMinutes behind the previous window's end. Anchoring on the
// watermark keeps window N+1 starting at or before window N's end minus the
// margin no matter how late the run fired; the now anchor keeps a cold start
// covered. The overlap region is refetched redundantly; upserts make that
// harmless.
//
// Incremental windows are too narrow to diff safely - reconciliation never
// runs on them.
func IncrementalWindow(now, prevEnd time.Time, minutesBack, marginMinutes int) Window {
	margin := time.Duration(marginMinutes) * time.Minute
	start := now.Add(-time.Duration(minutesBack)*time.Minute - margin)
	if !prevEnd.IsZero() {
		if s := prevEnd.Add(-margin); s.Before(start) {
			start = s
		}
	}
	return Window{Start: start, End: now}
}

// ReconcileWindow plans a wide day-level window ending now. Daily windows
// overlap by construction, so no extra margin is applied. A daysBack window
// is wide enough to be authoritative for soft-delete decisions.
func ReconcileWindow(now time.Time, daysBack int) Window {
	return Window{Start: now.AddDate(0, 0, -daysBack), End: now}
}
