package domain

import "time"

// LedgerEntry records one committed purchase. Entries are append-only:
// once written they are never mutated or deleted, so the ledger is the
// authoritative history even for sold-out items.
type LedgerEntry struct {
	ID           string
	SellerID     string
	BuyerID      string
	ItemID       string
	Quantity     int
	BuyerMessage string
	CreatedAt    time.Time
}
