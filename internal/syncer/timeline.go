package syncer

import (
	"context"
	"fmt"
	"strings"
)

// Shipment statuses after which no further timeline checkpoints arrive.
var terminalShipmentStatuses = []string{"Completed", "Delivered", "Cancelled"}

// SyncUndeliveredTimelines appends new status checkpoints for shipments not
// yet in a terminal state, newest shipments first, bounded per run by a
// shipment cap and a maximum age.
//
// This runs on its own cadence against its own endpoint so a slow timeline
// API cannot starve the order/shipment/transaction sync.
func (o *Orchestrator) SyncUndeliveredTimelines(ctx context.Context) *Report {
	return o.run("timelines", func(rep *Report) {
		o.forEachTenant(ctx, rep, func(ctx context.Context, tp *tenantPass) error {
			createdAfter := o.now().AddDate(0, 0, -o.opts.TimelineMaxAgeDays)
			refs, err := o.store.ListUndeliveredShipments(ctx, tp.clientID, createdAfter, terminalShipmentStatuses, o.opts.TimelineMaxShipments)
			if err != nil {
				return fmt.Errorf("list undelivered shipments: %w", err)
			}

			for _, ref := range refs {
				events, err := o.client.GetShipmentTimeline(ctx, tp.token, tp.throttler, ref.ProviderID)
				if err != nil {
					// One failed endpoint call ends this tenant's timeline
					// pass; the remaining shipments wait for the next run.
					o.recordFetchError(tp, entityTimelineEvents, err)
					return nil
				}

				delivered := false
				for _, e := range events {
					inserted, err := o.store.InsertTimelineEvent(ctx, mapTimelineEvent(tp.clientID, ref.ID, e))
					if err != nil {
						tp.report.addError(fmt.Sprintf("shipment %d timeline event %s: %v", ref.ProviderID, e.EventID, err))
						continue
					}
					tp.report.bump(entityTimelineEvents, inserted)
					if inserted {
						o.metrics.RowsUpserted.WithLabelValues(entityTimelineEvents).Inc()
					}
					if isDeliveredEvent(e.Name) {
						delivered = true
					}
				}

				if delivered {
					if err := o.store.SetTimelineComplete(ctx, ref.ID); err != nil {
						tp.report.addError(fmt.Sprintf("shipment %d: %v", ref.ProviderID, err))
					}
				}
			}
			return nil
		})
	})
}

func isDeliveredEvent(name string) bool {
	return strings.EqualFold(name, "Delivered")
}
