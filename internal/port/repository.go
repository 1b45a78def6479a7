package port

import (
	"context"

	"github.com/isakhq/marketplace/internal/core/domain"
)

// CatalogRepository is the data-access surface for catalog items. It holds
// no policy: validation and ordering belong to the core services.
type CatalogRepository interface {
	// CreateItem persists a new item. ID and PublishedAt must already be set.
	CreateItem(ctx context.Context, item *domain.CatalogItem) error

	// GetItem retrieves an item by ID, or domain.ErrItemNotFound.
	GetItem(ctx context.Context, id string) (*domain.CatalogItem, error)

	// ListItems returns every item in store order (oldest published first).
	ListItems(ctx context.Context) ([]domain.CatalogItem, error)

	// ItemsByOwner returns the items listed by one principal, store order.
	ItemsByOwner(ctx context.Context, ownerID string) ([]domain.CatalogItem, error)
}

// LedgerRepository owns the append-only purchase history.
type LedgerRepository interface {
	// CommitPurchase atomically decrements the item's quantity by
	// entry.Quantity and appends the entry: both effects or neither.
	// The decrement is guarded against the current quantity, so two
	// concurrent commits can never oversell. Returns the post-purchase
	// item, or domain.ErrItemNotFound, domain.ErrInsufficientStock, or a
	// retryable domain.ErrConflict.
	CommitPurchase(ctx context.Context, entry *domain.LedgerEntry) (*domain.CatalogItem, error)

	// EntriesByPrincipal returns entries where the principal is buyer or
	// seller, newest first.
	EntriesByPrincipal(ctx context.Context, principalID string) ([]domain.LedgerEntry, error)
}

// Store is the full persistence surface a backend must provide.
type Store interface {
	CatalogRepository
	LedgerRepository

	// Close releases any resources held by the store.
	Close() error
}
