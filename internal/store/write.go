package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Upserts are keyed by each entity's natural key and are safe to re-run: the
// same window synced twice converges to identical rows. deleted_at is never
// in any SET list - once reconciliation marks a row deleted, sync cannot
// resurrect it.
//
// Each upsert reports whether it created a new row so run counters are not
// double-incremented on overlap refetches.

// InsertTenant creates a tenant row. Tenants are normally created by an
// external admin workflow; this exists for provisioning tooling and tests.
func (s *Store) InsertTenant(ctx context.Context, t Tenant) error {
	_, err := s.exec(ctx, `
		INSERT INTO tenants (client_id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (client_id) DO NOTHING
	`, t.ClientID, t.Name, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// ListTenants returns all tenants ordered by client_id.
func (s *Store) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.query(ctx, `SELECT client_id, name, created_at FROM tenants ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ClientID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertOrder inserts or updates one order row. Returns the local row id and
// whether a new row was created.
func (s *Store) UpsertOrder(ctx context.Context, row OrderRow) (id int64, created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM orders WHERE client_id = ? AND provider_order_id = ?`,
		row.ClientID, row.ProviderOrderID)
	if err != nil {
		return 0, false, fmt.Errorf("upsert order: %w", err)
	}

	err = s.queryRow(ctx, `
		INSERT INTO orders
		(client_id, provider_order_id, reference_id, status, order_type,
		 recipient_name, recipient_email, created_at, purchased_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, provider_order_id) DO UPDATE SET
			reference_id = excluded.reference_id,
			status = excluded.status,
			order_type = excluded.order_type,
			recipient_name = excluded.recipient_name,
			recipient_email = excluded.recipient_email,
			purchased_at = excluded.purchased_at,
			synced_at = excluded.synced_at
		RETURNING id
	`,
		row.ClientID, row.ProviderOrderID, row.ReferenceID, row.Status, row.OrderType,
		row.RecipientName, row.RecipientEmail, row.CreatedAt.UTC(), nullTime(row.PurchasedAt), row.SyncedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("upsert order: %w", err)
	}
	return id, created, nil
}

// UpsertShipment inserts or updates one shipment row. The parent order row
// must already exist (sync order: orders before shipments).
func (s *Store) UpsertShipment(ctx context.Context, row ShipmentRow) (id int64, created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM shipments WHERE client_id = ? AND provider_shipment_id = ?`,
		row.ClientID, row.ProviderShipmentID)
	if err != nil {
		return 0, false, fmt.Errorf("upsert shipment: %w", err)
	}

	err = s.queryRow(ctx, `
		INSERT INTO shipments
		(client_id, provider_shipment_id, order_id, provider_order_id, status,
		 tracking_number, carrier, ship_option, created_at,
		 estimated_fulfillment_at, actual_fulfillment_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, provider_shipment_id) DO UPDATE SET
			order_id = excluded.order_id,
			provider_order_id = excluded.provider_order_id,
			status = excluded.status,
			tracking_number = excluded.tracking_number,
			carrier = excluded.carrier,
			ship_option = excluded.ship_option,
			estimated_fulfillment_at = excluded.estimated_fulfillment_at,
			actual_fulfillment_at = excluded.actual_fulfillment_at,
			synced_at = excluded.synced_at
		RETURNING id
	`,
		row.ClientID, row.ProviderShipmentID, row.OrderID, row.ProviderOrderID, row.Status,
		row.TrackingNumber, row.Carrier, row.ShipOption, row.CreatedAt.UTC(),
		nullTime(row.EstimatedFulfillmentAt), nullTime(row.ActualFulfillmentAt), row.SyncedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("upsert shipment: %w", err)
	}
	return id, created, nil
}

// UpsertOrderItem inserts or updates one order line.
func (s *Store) UpsertOrderItem(ctx context.Context, row OrderItemRow) (created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM order_items WHERE order_id = ? AND provider_product_id = ?`,
		row.OrderID, row.ProviderProductID)
	if err != nil {
		return false, fmt.Errorf("upsert order item: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO order_items
		(client_id, order_id, provider_product_id, sku, name, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id, provider_product_id) DO UPDATE SET
			sku = excluded.sku,
			name = excluded.name,
			quantity = excluded.quantity,
			unit_price = excluded.unit_price
	`,
		row.ClientID, row.OrderID, row.ProviderProductID, row.SKU, row.Name,
		row.Quantity, row.UnitPrice.String(),
	)
	if err != nil {
		return false, fmt.Errorf("upsert order item: %w", err)
	}
	return created, nil
}

// UpsertShipmentItem inserts or updates one shipment line.
func (s *Store) UpsertShipmentItem(ctx context.Context, row ShipmentItemRow) (created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM shipment_items WHERE shipment_id = ? AND provider_product_id = ?`,
		row.ShipmentID, row.ProviderProductID)
	if err != nil {
		return false, fmt.Errorf("upsert shipment item: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO shipment_items
		(client_id, shipment_id, provider_product_id, sku, name, quantity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (shipment_id, provider_product_id) DO UPDATE SET
			sku = excluded.sku,
			name = excluded.name,
			quantity = excluded.quantity
	`,
		row.ClientID, row.ShipmentID, row.ProviderProductID, row.SKU, row.Name,
		nullInt(row.Quantity),
	)
	if err != nil {
		return false, fmt.Errorf("upsert shipment item: %w", err)
	}
	return created, nil
}

// UpsertShipmentCarton inserts or updates one carton row.
func (s *Store) UpsertShipmentCarton(ctx context.Context, row ShipmentCartonRow) (created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM shipment_cartons WHERE shipment_id = ? AND carton_index = ?`,
		row.ShipmentID, row.CartonIndex)
	if err != nil {
		return false, fmt.Errorf("upsert shipment carton: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO shipment_cartons
		(client_id, shipment_id, carton_index, provider_carton_id, carton_type, barcode_id, weight_grams)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (shipment_id, carton_index) DO UPDATE SET
			provider_carton_id = excluded.provider_carton_id,
			carton_type = excluded.carton_type,
			barcode_id = excluded.barcode_id,
			weight_grams = excluded.weight_grams
	`,
		row.ClientID, row.ShipmentID, row.CartonIndex, row.ProviderCartonID,
		row.CartonType, row.BarcodeID, nullInt(row.WeightGrams),
	)
	if err != nil {
		return false, fmt.Errorf("upsert shipment carton: %w", err)
	}
	return created, nil
}

// UpsertTransaction inserts or updates one billable event. A nil ClientID
// stores the transaction unattributed; an attribution established by a later
// run is applied, but an already-attributed transaction is never demoted back
// to orphaned by a nil ClientID.
func (s *Store) UpsertTransaction(ctx context.Context, row TransactionRow) (created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM transactions WHERE provider_transaction_id = ?`,
		row.ProviderTransactionID)
	if err != nil {
		return false, fmt.Errorf("upsert transaction: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO transactions
		(client_id, provider_transaction_id, reference_type, reference_id,
		 amount, currency, description, occurred_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_transaction_id) DO UPDATE SET
			client_id = COALESCE(excluded.client_id, transactions.client_id),
			reference_type = excluded.reference_type,
			reference_id = excluded.reference_id,
			amount = excluded.amount,
			currency = excluded.currency,
			description = excluded.description,
			occurred_at = excluded.occurred_at,
			synced_at = excluded.synced_at
	`,
		nullInt(row.ClientID), row.ProviderTransactionID, row.ReferenceType, row.ReferenceID,
		row.Amount.String(), row.Currency, row.Description, row.OccurredAt, row.SyncedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert transaction: %w", err)
	}
	return created, nil
}

// UpsertReturn inserts or updates one return order.
func (s *Store) UpsertReturn(ctx context.Context, row ReturnRow) (created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM returns WHERE client_id = ? AND provider_return_id = ?`,
		row.ClientID, row.ProviderReturnID)
	if err != nil {
		return false, fmt.Errorf("upsert return: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO returns
		(client_id, provider_return_id, original_shipment_id, reference_id,
		 status, item_count, inserted_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, provider_return_id) DO UPDATE SET
			original_shipment_id = excluded.original_shipment_id,
			reference_id = excluded.reference_id,
			status = excluded.status,
			item_count = excluded.item_count,
			synced_at = excluded.synced_at
	`,
		row.ClientID, row.ProviderReturnID, nullInt(row.OriginalShipmentID), row.ReferenceID,
		row.Status, row.ItemCount, row.InsertedAt, row.SyncedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert return: %w", err)
	}
	return created, nil
}

// UpsertReceivingOrder inserts or updates one receiving order.
func (s *Store) UpsertReceivingOrder(ctx context.Context, row ReceivingOrderRow) (created bool, err error) {
	created, err = s.rowMissing(ctx,
		`SELECT id FROM receiving_orders WHERE client_id = ? AND provider_receiving_id = ?`,
		row.ClientID, row.ProviderReceivingID)
	if err != nil {
		return false, fmt.Errorf("upsert receiving order: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO receiving_orders
		(client_id, provider_receiving_id, status, purchase_order_number,
		 box_count, expected_arrival_at, inserted_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, provider_receiving_id) DO UPDATE SET
			status = excluded.status,
			purchase_order_number = excluded.purchase_order_number,
			box_count = excluded.box_count,
			expected_arrival_at = excluded.expected_arrival_at,
			synced_at = excluded.synced_at
	`,
		row.ClientID, row.ProviderReceivingID, row.Status, row.PurchaseOrderNumber,
		nullInt(row.BoxCount), nullTime(row.ExpectedArrivalAt), row.InsertedAt, row.SyncedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert receiving order: %w", err)
	}
	return created, nil
}

// InsertTimelineEvent appends one checkpoint. The timeline is append-only, so
// a duplicate (shipment_id, event_id) is silently ignored rather than
// updated. Returns whether a new row was inserted.
func (s *Store) InsertTimelineEvent(ctx context.Context, row TimelineEventRow) (inserted bool, err error) {
	res, err := s.exec(ctx, `
		INSERT INTO timeline_events
		(client_id, shipment_id, event_id, name, description, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (shipment_id, event_id) DO NOTHING
	`,
		row.ClientID, row.ShipmentID, row.EventID, row.Name, row.Description, row.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert timeline event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert timeline event: rows affected: %w", err)
	}
	return n > 0, nil
}

// SetTimelineComplete marks a shipment's timeline as fully captured so the
// timeline pass stops re-fetching it.
func (s *Store) SetTimelineComplete(ctx context.Context, shipmentID int64) error {
	_, err := s.exec(ctx, `UPDATE shipments SET timeline_complete = 1 WHERE id = ?`, shipmentID)
	if err != nil {
		return fmt.Errorf("set timeline complete: %w", err)
	}
	return nil
}

// MarkOrdersDeleted soft-deletes the given provider order IDs for one tenant.
// Rows already marked keep their original deleted_at (monotonic).
func (s *Store) MarkOrdersDeleted(ctx context.Context, clientID int64, providerIDs []int64, now time.Time) (int64, error) {
	return s.markDeleted(ctx, "orders", "provider_order_id", clientID, providerIDs, now)
}

// MarkShipmentsDeleted soft-deletes the given provider shipment IDs for one
// tenant. Rows already marked keep their original deleted_at (monotonic).
func (s *Store) MarkShipmentsDeleted(ctx context.Context, clientID int64, providerIDs []int64, now time.Time) (int64, error) {
	return s.markDeleted(ctx, "shipments", "provider_shipment_id", clientID, providerIDs, now)
}

// SetWatermark records the end of the window a run planned for a mode,
// replacing any earlier value.
func (s *Store) SetWatermark(ctx context.Context, mode string, end time.Time) error {
	_, err := s.exec(ctx, `
		INSERT INTO sync_watermarks (mode, window_end)
		VALUES (?, ?)
		ON CONFLICT (mode) DO UPDATE SET window_end = excluded.window_end
	`, mode, end.UTC())
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}

func (s *Store) markDeleted(ctx context.Context, table, idColumn string, clientID int64, providerIDs []int64, now time.Time) (int64, error) {
	var total int64
	for _, pid := range providerIDs {
		res, err := s.exec(ctx,
			`UPDATE `+table+` SET deleted_at = ? WHERE client_id = ? AND `+idColumn+` = ? AND deleted_at IS NULL`,
			now.UTC(), clientID, pid,
		)
		if err != nil {
			return total, fmt.Errorf("mark %s deleted: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("mark %s deleted: rows affected: %w", table, err)
		}
		total += n
	}
	return total, nil
}

// rowMissing reports whether the existence probe found no row, i.e. the
// following upsert will create one.
func (s *Store) rowMissing(ctx context.Context, probe string, args ...any) (bool, error) {
	var id int64
	err := s.queryRow(ctx, probe, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
