package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jetpackmatt/dashboard-sub019/internal/provider"
)

// Entity labels used in reports and metrics.
const (
	entityOrders         = "orders"
	entityOrderItems     = "order_items"
	entityShipments      = "shipments"
	entityShipmentItems  = "shipment_items"
	entityCartons        = "shipment_cartons"
	entityTransactions   = "transactions"
	entityReturns        = "returns"
	entityReceiving      = "receiving_orders"
	entityTimelineEvents = "timeline_events"
)

// SyncAll synchronizes orders with their embedded shipments, items and
// cartons for every tenant.
//
// reconcile=false plans a narrow incremental window and never soft-deletes.
// reconcile=true plans a wide daysBack window and, when the upstream listing
// was complete, diffs it against local state to detect upstream deletions.
func (o *Orchestrator) SyncAll(ctx context.Context, reconcile bool) *Report {
	mode := "incremental"
	if reconcile {
		mode = "reconcile"
	}

	return o.run(mode, func(rep *Report) {
		now := o.now()
		var w Window
		if reconcile {
			w = ReconcileWindow(now, o.opts.ReconcileDays)
		} else {
			prevEnd, err := o.store.Watermark(ctx, mode)
			if err != nil {
				slog.Warn("read sync watermark, planning without it", "error", err)
			}
			w = IncrementalWindow(now, prevEnd, o.opts.IncrementalMinutes, o.opts.IncrementalMarginMinutes)
		}
		rep.Window = &w

		o.forEachTenant(ctx, rep, func(ctx context.Context, tp *tenantPass) error {
			orders, complete, err := o.client.ListOrders(ctx, tp.token, tp.throttler, w.Start, w.End, o.opts.MaxPages)
			if err != nil {
				o.recordFetchError(tp, entityOrders, err)
				if provider.IsAuthError(err) {
					return nil
				}
			}

			for _, ord := range orders {
				o.upsertOrderTree(ctx, tp, ord)
			}

			if !reconcile {
				return nil
			}
			if !complete {
				// A truncated listing must never drive deletions.
				tp.report.ReconciliationSkipped = true
				tp.report.addWarning("upstream listing incomplete, reconciliation skipped")
				return nil
			}
			return o.reconcileTenant(ctx, tp, w, orders)
		})

		if !reconcile {
			// Recording the planned end lets the next run anchor its start on
			// it, so late runs still overlap this window by the margin.
			if err := o.store.SetWatermark(ctx, mode, w.End); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("record sync watermark: %v", err))
			}
		}
	})
}

// upsertOrderTree writes one order and its children in dependency order:
// order, order items, then each shipment with its items and cartons. A
// row-level failure is recorded and skipped without aborting the batch; a
// failed order insert skips its children since they need the parent row id.
func (o *Orchestrator) upsertOrderTree(ctx context.Context, tp *tenantPass, ord provider.Order) {
	syncedAt := o.now()

	orderID, created, err := o.store.UpsertOrder(ctx, mapOrder(tp.clientID, ord, syncedAt))
	if err != nil {
		tp.report.addError(fmt.Sprintf("order %d: %v", ord.ID, err))
		return
	}
	tp.report.bump(entityOrders, created)
	o.metrics.RowsUpserted.WithLabelValues(entityOrders).Inc()

	for _, p := range ord.Products {
		created, err := o.store.UpsertOrderItem(ctx, mapOrderItem(tp.clientID, orderID, p))
		if err != nil {
			tp.report.addError(fmt.Sprintf("order %d item %d: %v", ord.ID, p.ID, err))
			continue
		}
		tp.report.bump(entityOrderItems, created)
		o.metrics.RowsUpserted.WithLabelValues(entityOrderItems).Inc()
	}

	for _, sh := range ord.Shipments {
		o.upsertShipmentTree(ctx, tp, orderID, ord.ID, sh, ord.Products)
	}
}

// upsertShipmentTree writes one shipment and its children. orderProducts is
// the parent order's line items, used as a quantity fallback for shipment
// items.
func (o *Orchestrator) upsertShipmentTree(ctx context.Context, tp *tenantPass, orderID, providerOrderID int64, sh provider.Shipment, orderProducts []provider.OrderProduct) {
	syncedAt := o.now()

	shipmentID, created, err := o.store.UpsertShipment(ctx, mapShipment(tp.clientID, orderID, providerOrderID, sh, syncedAt))
	if err != nil {
		tp.report.addError(fmt.Sprintf("shipment %d: %v", sh.ID, err))
		return
	}
	tp.report.bump(entityShipments, created)
	o.metrics.RowsUpserted.WithLabelValues(entityShipments).Inc()

	for _, sp := range sh.Products {
		created, err := o.store.UpsertShipmentItem(ctx, mapShipmentItem(tp.clientID, shipmentID, sp, orderProducts))
		if err != nil {
			tp.report.addError(fmt.Sprintf("shipment %d item %d: %v", sh.ID, sp.ID, err))
			continue
		}
		tp.report.bump(entityShipmentItems, created)
		o.metrics.RowsUpserted.WithLabelValues(entityShipmentItems).Inc()
	}

	for i, c := range sh.Cartons {
		created, err := o.store.UpsertShipmentCarton(ctx, mapCarton(tp.clientID, shipmentID, i, c))
		if err != nil {
			tp.report.addError(fmt.Sprintf("shipment %d carton %d: %v", sh.ID, i, err))
			continue
		}
		tp.report.bump(entityCartons, created)
		o.metrics.RowsUpserted.WithLabelValues(entityCartons).Inc()
	}
}
