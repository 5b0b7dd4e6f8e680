package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row shapes for the mirror tables. Mapping from provider wire records to
// these shapes lives in the syncer package; the store only persists them.

// Tenant is one client. Created by an external admin workflow; the sync
// engine only ever reads this table (tests insert rows directly).
type Tenant struct {
	ClientID  int64
	Name      string
	CreatedAt time.Time
}

// OrderRow mirrors one provider order, keyed by (client_id, provider_order_id).
type OrderRow struct {
	ClientID        int64
	ProviderOrderID int64
	ReferenceID     string
	Status          string
	OrderType       string
	RecipientName   string
	RecipientEmail  string
	CreatedAt       time.Time
	PurchasedAt     *time.Time
	SyncedAt        time.Time
}

// ShipmentRow mirrors one provider shipment, keyed by
// (client_id, provider_shipment_id). OrderID is the local parent row id.
type ShipmentRow struct {
	ClientID               int64
	ProviderShipmentID     int64
	OrderID                int64
	ProviderOrderID        int64
	Status                 string
	TrackingNumber         string
	Carrier                string
	ShipOption             string
	CreatedAt              time.Time
	EstimatedFulfillmentAt *time.Time
	ActualFulfillmentAt    *time.Time
	SyncedAt               time.Time
}

// OrderItemRow is one order line, keyed by (order_id, provider_product_id).
type OrderItemRow struct {
	ClientID          int64
	OrderID           int64
	ProviderProductID int64
	SKU               string
	Name              string
	Quantity          int64
	UnitPrice         decimal.Decimal
}

// ShipmentItemRow is one shipment line, keyed by
// (shipment_id, provider_product_id). Quantity is nil when no source in the
// fallback chain produced a value.
type ShipmentItemRow struct {
	ClientID          int64
	ShipmentID        int64
	ProviderProductID int64
	SKU               string
	Name              string
	Quantity          *int64
}

// ShipmentCartonRow is one physical package, keyed by
// (shipment_id, carton_index).
type ShipmentCartonRow struct {
	ClientID         int64
	ShipmentID       int64
	CartonIndex      int64
	ProviderCartonID int64
	CartonType       string
	BarcodeID        string
	WeightGrams      *int64
}

// TransactionRow is one billable event, keyed by provider_transaction_id
// alone. ClientID is nil for orphaned transactions whose reference has not
// resolved to a tenant yet.
type TransactionRow struct {
	ClientID              *int64
	ProviderTransactionID string
	ReferenceType         string
	ReferenceID           string
	Amount                decimal.Decimal
	Currency              string
	Description           string
	OccurredAt            time.Time
	SyncedAt              time.Time
}

// ReturnRow mirrors one return order.
type ReturnRow struct {
	ClientID           int64
	ProviderReturnID   int64
	OriginalShipmentID *int64
	ReferenceID        string
	Status             string
	ItemCount          int64
	InsertedAt         time.Time
	SyncedAt           time.Time
}

// ReceivingOrderRow mirrors one warehouse receiving order.
type ReceivingOrderRow struct {
	ClientID            int64
	ProviderReceivingID int64
	Status              string
	PurchaseOrderNumber string
	BoxCount            *int64
	ExpectedArrivalAt   *time.Time
	InsertedAt          time.Time
	SyncedAt            time.Time
}

// TimelineEventRow is one status checkpoint, keyed by (shipment_id, event_id).
type TimelineEventRow struct {
	ClientID    int64
	ShipmentID  int64
	EventID     string
	Name        string
	Description string
	OccurredAt  time.Time
}

// ParentRef identifies a parent row plus its provider ID, used by the
// backfill scan to re-fetch single records upstream.
type ParentRef struct {
	ID         int64
	ProviderID int64
}
