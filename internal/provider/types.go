package provider

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Wire records for the provider's collections.
//
// Every top-level record carries an Extra bucket holding fields the provider
// added after these shapes were written. Decoding never fails on an unknown
// field and never fails on a missing optional field - mapping applies
// explicit defaults downstream.

// Order is one upstream order, with its line items and shipments embedded.
type Order struct {
	ID          int64          `json:"id"`
	ReferenceID string         `json:"reference_id"`
	Status      string         `json:"status"`
	OrderType   string         `json:"order_type"`
	Created     time.Time      `json:"created_date"`
	Purchased   *time.Time     `json:"purchase_date"`
	Recipient   *Recipient     `json:"recipient"`
	Products    []OrderProduct `json:"products"`
	Shipments   []Shipment     `json:"shipments"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Recipient is the order's ship-to contact.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderProduct is one order line item.
type OrderProduct struct {
	ID        int64           `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Shipment is one upstream shipment. Appears embedded in Order payloads and
// as a standalone record from the shipments collection.
type Shipment struct {
	ID                   int64             `json:"id"`
	OrderID              int64             `json:"order_id"`
	Status               string            `json:"status"`
	TrackingNumber       string            `json:"tracking_number"`
	Carrier              string            `json:"carrier"`
	ShipOption           string            `json:"ship_option"`
	Created              time.Time         `json:"created_date"`
	EstimatedFulfillment *time.Time        `json:"estimated_fulfillment_date"`
	ActualFulfillment    *time.Time        `json:"actual_fulfillment_date"`
	Products             []ShipmentProduct `json:"products"`
	Cartons              []Carton          `json:"cartons"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ShipmentProduct is one shipment line item. Quantity may be absent at the
// product level and only present per inventory lot.
type ShipmentProduct struct {
	ID                int64           `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	RequestedQuantity *int64          `json:"requested_quantity"`
	Inventory         []InventoryItem `json:"inventory"`
}

// InventoryItem is a per-lot quantity within a shipment product.
type InventoryItem struct {
	ID       int64 `json:"id"`
	Quantity int64 `json:"quantity"`
}

// Carton is one physical package within a shipment.
type Carton struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	BarcodeID   string `json:"barcode_id"`
	WeightGrams *int64 `json:"weight_grams"`
}

// Transaction is one billable event from the financial collection. Its
// reference may not resolve to a tenant yet; attribution is the caller's
// problem, not the wire format's.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"transaction_date"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Return is one upstream return order.
type Return struct {
	ID                 int64        `json:"id"`
	OriginalShipmentID *int64       `json:"original_shipment_id"`
	ReferenceID        string       `json:"reference_id"`
	Status             string       `json:"status"`
	Items              []ReturnItem `json:"inventory"`
	Inserted           time.Time    `json:"insert_date"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ReturnItem is one inventory line on a return.
type ReturnItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// ReceivingOrder is one upstream warehouse receiving order.
type ReceivingOrder struct {
	ID                  int64      `json:"id"`
	Status              string     `json:"status"`
	PurchaseOrderNumber string     `json:"purchase_order_number"`
	BoxCount            *int64     `json:"box_count"`
	ExpectedArrival     *time.Time `json:"expected_arrival_date"`
	Inserted            time.Time  `json:"insert_date"`

	Extra map[string]json.RawMessage `json:"-"`
}

// TimelineEvent is one status checkpoint in a shipment's timeline.
type TimelineEvent struct {
	EventID     string    `json:"log_type_id"`
	Name        string    `json:"log_type_name"`
	Description string    `json:"log_type_text"`
	Timestamp   time.Time `json:"timestamp"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = Order(a)
	extra, err := extraFields(data, o)
	if err != nil {
		return err
	}
	o.Extra = extra
	return nil
}

func (s *Shipment) UnmarshalJSON(data []byte) error {
	type alias Shipment
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Shipment(a)
	extra, err := extraFields(data, s)
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Transaction(a)
	extra, err := extraFields(data, t)
	if err != nil {
		return err
	}
	t.Extra = extra
	return nil
}

func (r *Return) UnmarshalJSON(data []byte) error {
	type alias Return
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Return(a)
	extra, err := extraFields(data, r)
	if err != nil {
		return err
	}
	r.Extra = extra
	return nil
}

func (r *ReceivingOrder) UnmarshalJSON(data []byte) error {
	type alias ReceivingOrder
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = ReceivingOrder(a)
	extra, err := extraFields(data, r)
	if err != nil {
		return err
	}
	r.Extra = extra
	return nil
}
