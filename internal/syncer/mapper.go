package syncer

import (
	"time"

	"golang.org/x/text/cases"

	"github.com/jetpackmatt/dashboard-sub019/internal/provider"
	"github.com/jetpackmatt/dashboard-sub019/internal/store"
)

// Pure mapping functions from provider wire records to local rows. Missing
// optional fields map to explicit defaults; mapping never fails.

func mapOrder(clientID int64, o provider.Order, syncedAt time.Time) store.OrderRow {
	row := store.OrderRow{
		ClientID:        clientID,
		ProviderOrderID: o.ID,
		ReferenceID:     o.ReferenceID,
		Status:          o.Status,
		OrderType:       o.OrderType,
		CreatedAt:       o.Created,
		PurchasedAt:     o.Purchased,
		SyncedAt:        syncedAt,
	}
	if o.Recipient != nil {
		row.RecipientName = o.Recipient.Name
		row.RecipientEmail = o.Recipient.Email
	}
	return row
}

func mapOrderItem(clientID, orderID int64, p provider.OrderProduct) store.OrderItemRow {
	return store.OrderItemRow{
		ClientID:          clientID,
		OrderID:           orderID,
		ProviderProductID: p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Quantity:          p.Quantity,
		UnitPrice:         p.UnitPrice,
	}
}

func mapShipment(clientID, orderID int64, providerOrderID int64, s provider.Shipment, syncedAt time.Time) store.ShipmentRow {
	if s.OrderID != 0 {
		providerOrderID = s.OrderID
	}
	return store.ShipmentRow{
		ClientID:               clientID,
		ProviderShipmentID:     s.ID,
		OrderID:                orderID,
		ProviderOrderID:        providerOrderID,
		Status:                 s.Status,
		TrackingNumber:         s.TrackingNumber,
		Carrier:                s.Carrier,
		ShipOption:             s.ShipOption,
		CreatedAt:              s.Created,
		EstimatedFulfillmentAt: s.EstimatedFulfillment,
		ActualFulfillmentAt:    s.ActualFulfillment,
		SyncedAt:               syncedAt,
	}
}

func mapShipmentItem(clientID, shipmentID int64, sp provider.ShipmentProduct, orderProducts []provider.OrderProduct) store.ShipmentItemRow {
	return store.ShipmentItemRow{
		ClientID:          clientID,
		ShipmentID:        shipmentID,
		ProviderProductID: sp.ID,
		SKU:               sp.SKU,
		Name:              sp.Name,
		Quantity:          shipmentItemQuantity(sp, orderProducts),
	}
}

// shipmentItemQuantity resolves the quantity for a shipment line. The
// shipment payload does not always carry it, so sources are tried in
// priority order:
//
//  1. summed inventory lot quantities on the shipment product
//  2. the order item with the same provider product ID
//  3. the order item with the same SKU (case-folded comparison)
//  4. the raw requested quantity on the shipment product
//
// nil when no source produced a value.
func shipmentItemQuantity(sp provider.ShipmentProduct, orderProducts []provider.OrderProduct) *int64 {
	if len(sp.Inventory) > 0 {
		var total int64
		for _, inv := range sp.Inventory {
			total += inv.Quantity
		}
		return &total
	}

	for _, op := range orderProducts {
		if op.ID == sp.ID {
			qty := op.Quantity
			return &qty
		}
	}

	if sp.SKU != "" {
		folded := cases.Fold().String(sp.SKU)
		for _, op := range orderProducts {
			if op.SKU != "" && cases.Fold().String(op.SKU) == folded {
				qty := op.Quantity
				return &qty
			}
		}
	}

	if sp.RequestedQuantity != nil {
		qty := *sp.RequestedQuantity
		return &qty
	}
	return nil
}

func mapCarton(clientID, shipmentID int64, index int, c provider.Carton) store.ShipmentCartonRow {
	return store.ShipmentCartonRow{
		ClientID:         clientID,
		ShipmentID:       shipmentID,
		CartonIndex:      int64(index),
		ProviderCartonID: c.ID,
		CartonType:       c.Type,
		BarcodeID:        c.BarcodeID,
		WeightGrams:      c.WeightGrams,
	}
}

// mapTransaction maps a billable event. clientID is nil for orphans; the
// caller resolves attribution from the transaction's reference beforehand.
func mapTransaction(clientID *int64, t provider.Transaction, syncedAt time.Time) store.TransactionRow {
	return store.TransactionRow{
		ClientID:              clientID,
		ProviderTransactionID: t.TransactionID,
		ReferenceType:         t.ReferenceType,
		ReferenceID:           t.ReferenceID,
		Amount:                t.Amount,
		Currency:              t.Currency,
		Description:           t.Description,
		OccurredAt:            t.Date,
		SyncedAt:              syncedAt,
	}
}

func mapReturn(clientID int64, r provider.Return, syncedAt time.Time) store.ReturnRow {
	var itemCount int64
	for _, item := range r.Items {
		itemCount += item.Quantity
	}
	return store.ReturnRow{
		ClientID:           clientID,
		ProviderReturnID:   r.ID,
		OriginalShipmentID: r.OriginalShipmentID,
		ReferenceID:        r.ReferenceID,
		Status:             r.Status,
		ItemCount:          itemCount,
		InsertedAt:         r.Inserted,
		SyncedAt:           syncedAt,
	}
}

func mapReceivingOrder(clientID int64, ro provider.ReceivingOrder, syncedAt time.Time) store.ReceivingOrderRow {
	return store.ReceivingOrderRow{
		ClientID:            clientID,
		ProviderReceivingID: ro.ID,
		Status:              ro.Status,
		PurchaseOrderNumber: ro.PurchaseOrderNumber,
		BoxCount:            ro.BoxCount,
		ExpectedArrivalAt:   ro.ExpectedArrival,
		InsertedAt:          ro.Inserted,
		SyncedAt:            syncedAt,
	}
}

func mapTimelineEvent(clientID, shipmentID int64, e provider.TimelineEvent) store.TimelineEventRow {
	return store.TimelineEventRow{
		ClientID:    clientID,
		ShipmentID:  shipmentID,
		EventID:     e.EventID,
		Name:        e.Name,
		Description: e.Description,
		OccurredAt:  e.Timestamp,
	}
}
