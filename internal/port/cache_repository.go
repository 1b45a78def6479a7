package port

import "context"

// Reservation is the outcome of a stock-guard reservation attempt.
type Reservation int

const (
	// ReservationUnknown means the item is not tracked by the guard; the
	// purchase proceeds and the database transaction decides alone.
	ReservationUnknown Reservation = iota

	// ReservationHeld means the guard decremented its counter. The caller
	// must release the hold if the database commit fails.
	ReservationHeld

	// ReservationSoldOut means the guard's counter cannot cover the
	// request; the purchase fails fast without touching the database.
	ReservationSoldOut
)

// StockCache is an optional fast-path guard in front of the catalog store.
// It keeps per-item stock counters and claims purchase request IDs. It is
// never authoritative: the store's conditional decrement upholds the
// no-oversell invariant with or without it.
type StockCache interface {
	// ReserveStock conditionally decrements the item's cached counter.
	ReserveStock(ctx context.Context, itemID string, quantity int) (Reservation, error)

	// ReleaseStock restores a held reservation after a failed commit.
	ReleaseStock(ctx context.Context, itemID string, quantity int) error

	// SetStock seeds or resets the cached counter for an item.
	SetStock(ctx context.Context, itemID string, quantity int) error

	// ClaimRequest claims a purchase request ID, returning false if the
	// same ID was already claimed.
	ClaimRequest(ctx context.Context, requestID string) (bool, error)
}
