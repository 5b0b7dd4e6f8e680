package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jetpackmatt/dashboard-sub019/internal/provider"
	"github.com/jetpackmatt/dashboard-sub019/internal/store"
)

// SyncTransactions synchronizes billable events dated within the given
// window for every tenant. The window is explicit so targeted backfills of
// historical billing periods reuse the same entry point.
//
// Attribution comes from the transaction's reference, not from the
// credential that fetched it: a reference resolving to a locally known
// shipment attributes the transaction to that shipment's tenant, anything
// else is stored unattributed (client_id = null) for a later pass to claim.
func (o *Orchestrator) SyncTransactions(ctx context.Context, w Window) *Report {
	return o.run("transactions", func(rep *Report) {
		rep.Window = &w

		o.forEachTenant(ctx, rep, func(ctx context.Context, tp *tenantPass) error {
			txns, _, err := o.client.ListTransactions(ctx, tp.token, tp.throttler, w.Start, w.End, o.opts.MaxPages)
			if err != nil {
				o.recordFetchError(tp, entityTransactions, err)
				if provider.IsAuthError(err) {
					return nil
				}
			}

			syncedAt := o.now()
			for _, txn := range txns {
				clientID, err := o.attributeTransaction(ctx, txn)
				if err != nil {
					tp.report.addError(fmt.Sprintf("transaction %s: attribution: %v", txn.TransactionID, err))
					continue
				}

				created, err := o.store.UpsertTransaction(ctx, mapTransaction(clientID, txn, syncedAt))
				if err != nil {
					tp.report.addError(fmt.Sprintf("transaction %s: %v", txn.TransactionID, err))
					continue
				}
				tp.report.bump(entityTransactions, created)
				o.metrics.RowsUpserted.WithLabelValues(entityTransactions).Inc()
			}
			return nil
		})
	})
}

// attributeTransaction resolves a transaction reference to a tenant. Only
// shipment references are resolvable today; an unknown reference yields
// (nil, nil), i.e. an orphaned transaction, never an error. Errors are
// reserved for store failures.
func (o *Orchestrator) attributeTransaction(ctx context.Context, txn provider.Transaction) (*int64, error) {
	if !strings.EqualFold(txn.ReferenceType, "shipment") {
		return nil, nil
	}
	providerShipmentID, err := strconv.ParseInt(txn.ReferenceID, 10, 64)
	if err != nil {
		return nil, nil
	}

	_, clientID, err := o.store.ShipmentByProvider(ctx, providerShipmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &clientID, nil
}
