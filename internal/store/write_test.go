package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrderRow(clientID, providerOrderID int64) OrderRow {
	return OrderRow{
		ClientID:        clientID,
		ProviderOrderID: providerOrderID,
		ReferenceID:     "REF-1",
		Status:          "Processing",
		OrderType:       "DTC",
		RecipientName:   "Pat Example",
		RecipientEmail:  "pat@example.com",
		CreatedAt:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		SyncedAt:        time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func testShipmentRow(clientID, providerShipmentID, orderID int64) ShipmentRow {
	return ShipmentRow{
		ClientID:           clientID,
		ProviderShipmentID: providerShipmentID,
		OrderID:            orderID,
		ProviderOrderID:    1,
		Status:             "Processing",
		TrackingNumber:     "1Z999",
		Carrier:            "UPS",
		CreatedAt:          time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC),
		SyncedAt:           time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertOrder_IdempotentAndReportsCreated(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	id1, created, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)
	assert.True(t, created)

	row := testOrderRow(1, 100)
	row.Status = "Completed"
	id2, created, err := s.UpsertOrder(ctx, row)
	require.NoError(t, err)
	assert.False(t, created, "refetching the same order is an update, not a create")
	assert.Equal(t, id1, id2, "the local row id is stable across upserts")

	var status string
	require.NoError(t, s.db.QueryRow(
		`SELECT status FROM orders WHERE id = ?`, id1).Scan(&status))
	assert.Equal(t, "Completed", status)
}

func TestUpsertOrder_DoesNotResurrectDeletedRow(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	_, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)

	deletedAt := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	n, err := s.MarkOrdersDeleted(ctx, 1, []int64{100}, deletedAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// A stale listing that still contains the order must not clear the mark.
	_, created, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)
	assert.False(t, created)

	var got sql.NullTime
	require.NoError(t, s.db.QueryRow(
		`SELECT deleted_at FROM orders WHERE client_id = 1 AND provider_order_id = 100`).Scan(&got))
	require.True(t, got.Valid, "upsert must not clear deleted_at")
	assert.WithinDuration(t, deletedAt, got.Time, time.Second)
}

func TestMarkShipmentsDeleted_Monotonic(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	orderID, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)
	_, _, err = s.UpsertShipment(ctx, testShipmentRow(1, 500, orderID))
	require.NoError(t, err)

	first := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	n, err := s.MarkShipmentsDeleted(ctx, 1, []int64{500}, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// A second reconciliation pass must not move the timestamp.
	n, err = s.MarkShipmentsDeleted(ctx, 1, []int64{500}, first.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	var got sql.NullTime
	require.NoError(t, s.db.QueryRow(
		`SELECT deleted_at FROM shipments WHERE provider_shipment_id = 500`).Scan(&got))
	require.True(t, got.Valid)
	assert.WithinDuration(t, first, got.Time, time.Second)
}

func TestMarkOrdersDeleted_ScopedToTenant(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	seedTenant(t, s, 2)
	ctx := context.Background()

	_, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)
	_, _, err = s.UpsertOrder(ctx, testOrderRow(2, 100))
	require.NoError(t, err)

	n, err := s.MarkOrdersDeleted(ctx, 1, []int64{100}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only tenant 1's row is touched")

	var got sql.NullTime
	require.NoError(t, s.db.QueryRow(
		`SELECT deleted_at FROM orders WHERE client_id = 2 AND provider_order_id = 100`).Scan(&got))
	assert.False(t, got.Valid)
}

func TestUpsertTransaction_AttributionNeverDemoted(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	clientID := int64(1)
	row := TransactionRow{
		ClientID:              nil,
		ProviderTransactionID: "txn-1",
		ReferenceType:         "shipment",
		ReferenceID:           "500",
		Amount:                decimal.RequireFromString("4.20"),
		Currency:              "USD",
		OccurredAt:            time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		SyncedAt:              time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	created, err := s.UpsertTransaction(ctx, row)
	require.NoError(t, err)
	assert.True(t, created)

	// Attribution established on a later run is applied.
	row.ClientID = &clientID
	created, err = s.UpsertTransaction(ctx, row)
	require.NoError(t, err)
	assert.False(t, created)

	var got sql.NullInt64
	require.NoError(t, s.db.QueryRow(
		`SELECT client_id FROM transactions WHERE provider_transaction_id = 'txn-1'`).Scan(&got))
	require.True(t, got.Valid)
	assert.Equal(t, clientID, got.Int64)

	// A nil ClientID afterwards must not orphan it again.
	row.ClientID = nil
	_, err = s.UpsertTransaction(ctx, row)
	require.NoError(t, err)

	require.NoError(t, s.db.QueryRow(
		`SELECT client_id FROM transactions WHERE provider_transaction_id = 'txn-1'`).Scan(&got))
	require.True(t, got.Valid, "existing attribution survives an orphaned refetch")
	assert.Equal(t, clientID, got.Int64)
}

func TestInsertTimelineEvent_DuplicateIgnored(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	orderID, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)
	shipID, _, err := s.UpsertShipment(ctx, testShipmentRow(1, 500, orderID))
	require.NoError(t, err)

	ev := TimelineEventRow{
		ClientID:   1,
		ShipmentID: shipID,
		EventID:    "LT1",
		Name:       "Picked",
		OccurredAt: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}

	inserted, err := s.InsertTimelineEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertTimelineEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, inserted, "timeline is append-only; duplicates are dropped")

	var count int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM timeline_events WHERE shipment_id = ?`, shipID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSetTimelineComplete(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	orderID, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)
	shipID, _, err := s.UpsertShipment(ctx, testShipmentRow(1, 500, orderID))
	require.NoError(t, err)

	require.NoError(t, s.SetTimelineComplete(ctx, shipID))

	var flag int
	require.NoError(t, s.db.QueryRow(
		`SELECT timeline_complete FROM shipments WHERE id = ?`, shipID).Scan(&flag))
	assert.Equal(t, 1, flag)
}

func TestUpsertShipmentItem_NullableQuantity(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	orderID, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)
	shipID, _, err := s.UpsertShipment(ctx, testShipmentRow(1, 500, orderID))
	require.NoError(t, err)

	created, err := s.UpsertShipmentItem(ctx, ShipmentItemRow{
		ClientID:          1,
		ShipmentID:        shipID,
		ProviderProductID: 9,
		SKU:               "WIDGET-1",
		Name:              "Widget",
		Quantity:          nil,
	})
	require.NoError(t, err)
	assert.True(t, created)

	var qty sql.NullInt64
	require.NoError(t, s.db.QueryRow(
		`SELECT quantity FROM shipment_items WHERE shipment_id = ? AND provider_product_id = 9`,
		shipID).Scan(&qty))
	assert.False(t, qty.Valid, "unknown quantity is stored as NULL, not zero")

	// A later sync that resolves the quantity updates in place.
	qty5 := int64(5)
	created, err = s.UpsertShipmentItem(ctx, ShipmentItemRow{
		ClientID: 1, ShipmentID: shipID, ProviderProductID: 9,
		SKU: "WIDGET-1", Name: "Widget", Quantity: &qty5,
	})
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, s.db.QueryRow(
		`SELECT quantity FROM shipment_items WHERE shipment_id = ? AND provider_product_id = 9`,
		shipID).Scan(&qty))
	require.True(t, qty.Valid)
	assert.Equal(t, int64(5), qty.Int64)
}

func TestUpsertOrderItem_PriceRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	orderID, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)

	_, err = s.UpsertOrderItem(ctx, OrderItemRow{
		ClientID: 1, OrderID: orderID, ProviderProductID: 9,
		SKU: "WIDGET-1", Name: "Widget", Quantity: 2,
		UnitPrice: decimal.RequireFromString("19.99"),
	})
	require.NoError(t, err)

	var price string
	require.NoError(t, s.db.QueryRow(
		`SELECT unit_price FROM order_items WHERE order_id = ? AND provider_product_id = 9`,
		orderID).Scan(&price))
	assert.True(t, decimal.RequireFromString("19.99").Equal(decimal.RequireFromString(price)))
}
