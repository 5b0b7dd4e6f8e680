package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIDByProvider(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	id, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)

	got, err := s.OrderIDByProvider(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = s.OrderIDByProvider(ctx, 1, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.OrderIDByProvider(ctx, 2, 100)
	assert.ErrorIs(t, err, ErrNotFound, "lookups are tenant-scoped")
}

func TestShipmentByProvider_GlobalLookup(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 7)
	ctx := context.Background()

	orderID, _, err := s.UpsertOrder(ctx, testOrderRow(7, 100))
	require.NoError(t, err)
	shipID, _, err := s.UpsertShipment(ctx, testShipmentRow(7, 500, orderID))
	require.NoError(t, err)

	id, clientID, err := s.ShipmentByProvider(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, shipID, id)
	assert.Equal(t, int64(7), clientID, "attribution recovers the owning tenant")

	_, _, err = s.ShipmentByProvider(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderProviderIDs_WindowAndDeletionFiltering(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	mkOrder := func(providerID int64, created time.Time) {
		row := testOrderRow(1, providerID)
		row.CreatedAt = created
		_, _, err := s.UpsertOrder(ctx, row)
		require.NoError(t, err)
	}

	winStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	winEnd := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	mkOrder(1, winStart)                      // inclusive start
	mkOrder(2, winStart.Add(72*time.Hour))    // inside
	mkOrder(3, winEnd)                        // exclusive end
	mkOrder(4, winStart.Add(-time.Hour))      // before window
	mkOrder(5, winStart.Add(24*time.Hour))    // inside but deleted
	_, err := s.MarkOrdersDeleted(ctx, 1, []int64{5}, time.Now())
	require.NoError(t, err)

	ids, err := s.ListOrderProviderIDs(ctx, 1, winStart, winEnd)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestListOrdersMissingItems(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	older := testOrderRow(1, 100)
	older.CreatedAt = since.Add(time.Hour)
	olderID, _, err := s.UpsertOrder(ctx, older)
	require.NoError(t, err)

	newer := testOrderRow(1, 101)
	newer.CreatedAt = since.Add(48 * time.Hour)
	_, _, err = s.UpsertOrder(ctx, newer)
	require.NoError(t, err)

	withItems := testOrderRow(1, 102)
	withItems.CreatedAt = since.Add(2 * time.Hour)
	withItemsID, _, err := s.UpsertOrder(ctx, withItems)
	require.NoError(t, err)
	_, err = s.UpsertOrderItem(ctx, OrderItemRow{
		ClientID: 1, OrderID: withItemsID, ProviderProductID: 1,
		SKU: "A", Quantity: 1, UnitPrice: decimal.Zero,
	})
	require.NoError(t, err)

	tooOld := testOrderRow(1, 103)
	tooOld.CreatedAt = since.Add(-time.Hour)
	_, _, err = s.UpsertOrder(ctx, tooOld)
	require.NoError(t, err)

	refs, err := s.ListOrdersMissingItems(ctx, 1, since, 10)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, int64(100), refs[0].ProviderID, "oldest first")
	assert.Equal(t, olderID, refs[0].ID)
	assert.Equal(t, int64(101), refs[1].ProviderID)

	refs, err = s.ListOrdersMissingItems(ctx, 1, since, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1, "limit caps the scan")
	assert.Equal(t, int64(100), refs[0].ProviderID)
}

func TestListUndeliveredShipments(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	orderID, _, err := s.UpsertOrder(ctx, testOrderRow(1, 100))
	require.NoError(t, err)

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	terminal := []string{"Completed", "Delivered", "Cancelled"}

	mkShipment := func(providerID int64, status string, created time.Time) int64 {
		row := testShipmentRow(1, providerID, orderID)
		row.Status = status
		row.CreatedAt = created
		id, _, err := s.UpsertShipment(ctx, row)
		require.NoError(t, err)
		return id
	}

	mkShipment(500, "Processing", cutoff.Add(24*time.Hour))
	mkShipment(501, "Shipped", cutoff.Add(48*time.Hour))
	mkShipment(502, "Delivered", cutoff.Add(24*time.Hour)) // terminal status
	mkShipment(503, "Processing", cutoff.Add(-time.Hour))  // too old
	doneID := mkShipment(504, "Shipped", cutoff.Add(72*time.Hour))
	require.NoError(t, s.SetTimelineComplete(ctx, doneID)) // timeline captured

	refs, err := s.ListUndeliveredShipments(ctx, 1, cutoff, terminal, 10)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, int64(501), refs[0].ProviderID, "newest first")
	assert.Equal(t, int64(500), refs[1].ProviderID)

	refs, err = s.ListUndeliveredShipments(ctx, 1, cutoff, terminal, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, int64(501), refs[0].ProviderID)
}

func TestTransactionListings(t *testing.T) {
	s := openTestStore(t)
	seedTenant(t, s, 1)
	ctx := context.Background()

	clientID := int64(1)
	base := TransactionRow{
		ReferenceType: "shipment",
		ReferenceID:   "500",
		Amount:        decimal.RequireFromString("1.25"),
		Currency:      "USD",
		OccurredAt:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		SyncedAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	attributed := base
	attributed.ProviderTransactionID = "txn-attributed"
	attributed.ClientID = &clientID
	_, err := s.UpsertTransaction(ctx, attributed)
	require.NoError(t, err)

	orphanNew := base
	orphanNew.ProviderTransactionID = "txn-orphan-new"
	orphanNew.OccurredAt = base.OccurredAt.Add(time.Hour)
	_, err = s.UpsertTransaction(ctx, orphanNew)
	require.NoError(t, err)

	orphanOld := base
	orphanOld.ProviderTransactionID = "txn-orphan-old"
	orphanOld.OccurredAt = base.OccurredAt.Add(-time.Hour)
	_, err = s.UpsertTransaction(ctx, orphanOld)
	require.NoError(t, err)

	orphans, err := s.ListUnattributedTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	assert.Equal(t, "txn-orphan-old", orphans[0].ProviderTransactionID, "oldest first")
	assert.Equal(t, "txn-orphan-new", orphans[1].ProviderTransactionID)
	assert.Nil(t, orphans[0].ClientID)

	forTenant, err := s.ListTransactionsForTenant(ctx, 1)
	require.NoError(t, err)
	require.Len(t, forTenant, 1, "orphans never appear in tenant-scoped reads")
	assert.Equal(t, "txn-attributed", forTenant[0].ProviderTransactionID)
	assert.True(t, forTenant[0].Amount.Equal(decimal.RequireFromString("1.25")))
}
