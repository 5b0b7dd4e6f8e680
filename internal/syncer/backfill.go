package syncer

import (
	"context"
	"fmt"
)

// BackfillMissingItems repairs parents that were synced before their child
// rows were available upstream: recently created orders with zero line items
// and shipments with zero items get their single parent record re-fetched
// and children populated.
//
// The scan is bounded by a parent age and a per-run parent cap, and every
// re-fetch goes through the tenant throttler, so repeated scheduled runs
// converge without unbounded run time.
func (o *Orchestrator) BackfillMissingItems(ctx context.Context) *Report {
	return o.run("backfill", func(rep *Report) {
		o.forEachTenant(ctx, rep, func(ctx context.Context, tp *tenantPass) error {
			since := o.now().AddDate(0, 0, -o.opts.BackfillParentDays)
			budget := o.opts.BackfillMaxParents

			orderRefs, err := o.store.ListOrdersMissingItems(ctx, tp.clientID, since, budget)
			if err != nil {
				return fmt.Errorf("list orders missing items: %w", err)
			}
			for _, ref := range orderRefs {
				ord, err := o.client.GetOrder(ctx, tp.token, tp.throttler, ref.ProviderID)
				if err != nil {
					o.recordFetchError(tp, entityOrders, err)
					return nil
				}
				o.upsertOrderTree(ctx, tp, *ord)
			}

			budget -= len(orderRefs)
			if budget <= 0 {
				return nil
			}

			shipmentRefs, err := o.store.ListShipmentsMissingItems(ctx, tp.clientID, since, budget)
			if err != nil {
				return fmt.Errorf("list shipments missing items: %w", err)
			}
			for _, ref := range shipmentRefs {
				sh, err := o.client.GetShipment(ctx, tp.token, tp.throttler, ref.ProviderID)
				if err != nil {
					o.recordFetchError(tp, entityShipments, err)
					return nil
				}

				orderID, err := o.store.OrderIDByProvider(ctx, tp.clientID, sh.OrderID)
				if err != nil {
					tp.report.addError(fmt.Sprintf("backfill shipment %d: parent order %d: %v", sh.ID, sh.OrderID, err))
					continue
				}
				// The parent order's line items are not on hand here, so the
				// quantity fallback chain runs without them.
				o.upsertShipmentTree(ctx, tp, orderID, sh.OrderID, *sh, nil)
			}
			return nil
		})
	})
}
