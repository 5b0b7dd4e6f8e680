// Package store persists the local mirror of the fulfillment provider's
// data.
//
// Every synchronized table is partitioned by client_id and keyed by a
// provider-assigned natural identifier, making each write an idempotent
// insert-or-update. Soft deletion (deleted_at) is set only by the
// reconciliation pass and is monotonic: the store never clears it.
//
// Downstream billing and analytics code reads these tables directly; they are
// the sole contract this service exposes.
package store
