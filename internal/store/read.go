package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// OrderIDByProvider resolves a provider order ID to the local row id for one
// tenant. Returns ErrNotFound when the order has not been synced yet.
func (s *Store) OrderIDByProvider(ctx context.Context, clientID, providerOrderID int64) (int64, error) {
	var id int64
	err := s.queryRow(ctx,
		`SELECT id FROM orders WHERE client_id = ? AND provider_order_id = ?`,
		clientID, providerOrderID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("order id by provider: %w", err)
	}
	return id, nil
}

// ShipmentByProvider resolves a provider shipment ID to (local id, client_id).
// Used by transaction attribution. Returns ErrNotFound when unknown.
func (s *Store) ShipmentByProvider(ctx context.Context, providerShipmentID int64) (id, clientID int64, err error) {
	err = s.queryRow(ctx,
		`SELECT id, client_id FROM shipments WHERE provider_shipment_id = ?`,
		providerShipmentID,
	).Scan(&id, &clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("shipment by provider: %w", err)
	}
	return id, clientID, nil
}

// Watermark returns the recorded end of the last planned sync window for a
// run mode, or the zero time when none has been recorded yet.
func (s *Store) Watermark(ctx context.Context, mode string) (time.Time, error) {
	var end time.Time
	err := s.queryRow(ctx,
		`SELECT window_end FROM sync_watermarks WHERE mode = ?`, mode,
	).Scan(&end)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("watermark: %w", err)
	}
	return end, nil
}

// ListOrderProviderIDs returns the provider IDs of non-deleted orders created
// within [start, end) for one tenant. This is the local half of the
// reconciliation diff.
func (s *Store) ListOrderProviderIDs(ctx context.Context, clientID int64, start, end time.Time) ([]int64, error) {
	return s.listProviderIDs(ctx, "orders", "provider_order_id", clientID, start, end)
}

// ListShipmentProviderIDs returns the provider IDs of non-deleted shipments
// created within [start, end) for one tenant.
func (s *Store) ListShipmentProviderIDs(ctx context.Context, clientID int64, start, end time.Time) ([]int64, error) {
	return s.listProviderIDs(ctx, "shipments", "provider_shipment_id", clientID, start, end)
}

func (s *Store) listProviderIDs(ctx context.Context, table, idColumn string, clientID int64, start, end time.Time) ([]int64, error) {
	rows, err := s.query(ctx,
		`SELECT `+idColumn+` FROM `+table+`
		 WHERE client_id = ? AND deleted_at IS NULL AND created_at >= ? AND created_at < ?`,
		clientID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s provider ids: %w", table, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s provider id: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListOrdersMissingItems returns recently created orders that have zero
// order_items rows, oldest first, capped at limit. Feeds the backfill pass.
func (s *Store) ListOrdersMissingItems(ctx context.Context, clientID int64, since time.Time, limit int) ([]ParentRef, error) {
	return s.listParentsMissingChildren(ctx,
		`SELECT o.id, o.provider_order_id FROM orders o
		 WHERE o.client_id = ? AND o.deleted_at IS NULL AND o.created_at >= ?
		   AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)
		 ORDER BY o.created_at ASC
		 LIMIT ?`,
		clientID, since.UTC(), limit)
}

// ListShipmentsMissingItems returns recently created shipments that have zero
// shipment_items rows, oldest first, capped at limit.
func (s *Store) ListShipmentsMissingItems(ctx context.Context, clientID int64, since time.Time, limit int) ([]ParentRef, error) {
	return s.listParentsMissingChildren(ctx,
		`SELECT sh.id, sh.provider_shipment_id FROM shipments sh
		 WHERE sh.client_id = ? AND sh.deleted_at IS NULL AND sh.created_at >= ?
		   AND NOT EXISTS (SELECT 1 FROM shipment_items i WHERE i.shipment_id = sh.id)
		 ORDER BY sh.created_at ASC
		 LIMIT ?`,
		clientID, since.UTC(), limit)
}

func (s *Store) listParentsMissingChildren(ctx context.Context, query string, args ...any) ([]ParentRef, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list parents missing children: %w", err)
	}
	defer rows.Close()

	var refs []ParentRef
	for rows.Next() {
		var r ParentRef
		if err := rows.Scan(&r.ID, &r.ProviderID); err != nil {
			return nil, fmt.Errorf("scan parent ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ListUndeliveredShipments returns non-deleted shipments whose status is not
// terminal and whose timeline has not been confirmed complete, newest first,
// bounded by a minimum creation time and a row cap. Feeds the timeline pass.
func (s *Store) ListUndeliveredShipments(ctx context.Context, clientID int64, createdAfter time.Time, terminalStatuses []string, limit int) ([]ParentRef, error) {
	query := `SELECT id, provider_shipment_id FROM shipments
	 WHERE client_id = ? AND deleted_at IS NULL AND timeline_complete = 0
	   AND created_at >= ?`
	args := []any{clientID, createdAfter.UTC()}
	if len(terminalStatuses) > 0 {
		query += ` AND status NOT IN (?` + strings.Repeat(", ?", len(terminalStatuses)-1) + `)`
		for _, st := range terminalStatuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list undelivered shipments: %w", err)
	}
	defer rows.Close()

	var refs []ParentRef
	for rows.Next() {
		var r ParentRef
		if err := rows.Scan(&r.ID, &r.ProviderID); err != nil {
			return nil, fmt.Errorf("scan shipment ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ListUnattributedTransactions returns transactions whose client_id is still
// null, oldest first. The attribution pass and operator tooling consume this.
func (s *Store) ListUnattributedTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := s.query(ctx, `
		SELECT client_id, provider_transaction_id, reference_type, reference_id,
		       amount, currency, description, occurred_at, synced_at
		FROM transactions
		WHERE client_id IS NULL
		ORDER BY occurred_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list unattributed transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListTransactionsForTenant returns one tenant's transactions, oldest first.
// Orphaned transactions never match a tenant-scoped read.
func (s *Store) ListTransactionsForTenant(ctx context.Context, clientID int64) ([]TransactionRow, error) {
	rows, err := s.query(ctx, `
		SELECT client_id, provider_transaction_id, reference_type, reference_id,
		       amount, currency, description, occurred_at, synced_at
		FROM transactions
		WHERE client_id = ?
		ORDER BY occurred_at ASC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for tenant: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]TransactionRow, error) {
	var out []TransactionRow
	for rows.Next() {
		var (
			t        TransactionRow
			clientID sql.NullInt64
			amount   string
		)
		if err := rows.Scan(&clientID, &t.ProviderTransactionID, &t.ReferenceType,
			&t.ReferenceID, &amount, &t.Currency, &t.Description, &t.OccurredAt, &t.SyncedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if clientID.Valid {
			v := clientID.Int64
			t.ClientID = &v
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse transaction amount %q: %w", amount, err)
		}
		t.Amount = amt
		out = append(out, t)
	}
	return out, rows.Err()
}
