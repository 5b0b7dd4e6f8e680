package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jetpackmatt/dashboard-sub019/internal/provider"
)

// reconcileTenant diffs local state against complete upstream listings and
// soft-deletes what upstream no longer knows. The provider never sends
// deletion events, so these full-listing diffs are the only deletion signal.
//
// Each diff compares populations windowed the same way. Orders come from the
// order listing passed by SyncAll; shipments need their own listing, because
// both the upstream shipment collection and the local shipment read are
// windowed by shipment creation date while the order listing is windowed by
// order creation date. A shipment created in-window under an order older than
// the window appears locally but never in the order listing, and diffing
// against the order listing's embedded shipments would falsely delete it.
//
// Callers must only pass order listings whose every page was fetched. The
// ReconciliationSkipped gate in SyncAll guarantees that; the shipment listing
// enforces its own completeness gate here. Running a diff on a partial
// listing would mark live records deleted.
func (o *Orchestrator) reconcileTenant(ctx context.Context, tp *tenantPass, w Window, upstream []provider.Order) error {
	now := o.now()

	upstreamOrders := make(map[int64]struct{}, len(upstream))
	for _, ord := range upstream {
		upstreamOrders[ord.ID] = struct{}{}
	}

	localOrders, err := o.store.ListOrderProviderIDs(ctx, tp.clientID, w.Start, w.End)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	missingOrders := missingFrom(localOrders, upstreamOrders)
	if len(missingOrders) > 0 {
		n, err := o.store.MarkOrdersDeleted(ctx, tp.clientID, missingOrders, now)
		if err != nil {
			return fmt.Errorf("reconcile orders: %w", err)
		}
		tp.report.softDeleted(entityOrders, n)
		o.metrics.SoftDeletesTotal.WithLabelValues(entityOrders).Add(float64(n))
		slog.Info("soft-deleted orders absent upstream", "client_id", tp.clientID, "count", n)
	}

	shipments, complete, err := o.client.ListShipments(ctx, tp.token, tp.throttler, w.Start, w.End, "", o.opts.MaxPages)
	if err != nil {
		o.recordFetchError(tp, entityShipments, err)
	}
	if !complete {
		tp.report.addWarning("shipment listing incomplete, shipment reconciliation skipped")
		return nil
	}
	upstreamShipments := make(map[int64]struct{}, len(shipments))
	for _, sh := range shipments {
		upstreamShipments[sh.ID] = struct{}{}
	}

	localShipments, err := o.store.ListShipmentProviderIDs(ctx, tp.clientID, w.Start, w.End)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	missingShipments := missingFrom(localShipments, upstreamShipments)
	if len(missingShipments) > 0 {
		n, err := o.store.MarkShipmentsDeleted(ctx, tp.clientID, missingShipments, now)
		if err != nil {
			return fmt.Errorf("reconcile shipments: %w", err)
		}
		tp.report.softDeleted(entityShipments, n)
		o.metrics.SoftDeletesTotal.WithLabelValues(entityShipments).Add(float64(n))
		slog.Info("soft-deleted shipments absent upstream", "client_id", tp.clientID, "count", n)
	}

	return nil
}

// missingFrom returns the locally known IDs absent from the upstream set.
func missingFrom(local []int64, upstream map[int64]struct{}) []int64 {
	var missing []int64
	for _, id := range local {
		if _, ok := upstream[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
