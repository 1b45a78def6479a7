package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/isakhq/marketplace/internal/core/asset"
	"github.com/isakhq/marketplace/internal/core/catalog"
	"github.com/isakhq/marketplace/internal/core/domain"
	"github.com/isakhq/marketplace/internal/metrics"
	"github.com/isakhq/marketplace/internal/port"
)

const (
	maxListingQuantity   = 500
	maxDescriptionLength = 200
	expirationDateLayout = "2006-01-02"
)

// CatalogService serves catalog queries and listing creation. Queries are
// plain reads: they run against whatever snapshot the store yields and
// never block on purchases.
type CatalogService struct {
	store port.CatalogRepository
	cache port.StockCache // optional; seeds the stock guard on new listings
}

func NewCatalogService(store port.CatalogRepository, cache port.StockCache) *CatalogService {
	return &CatalogService{store: store, cache: cache}
}

// Query returns the catalog narrowed by term and category and ordered by
// mode. An empty term browses everything; no matches is an empty slice,
// never an error.
func (s *CatalogService) Query(ctx context.Context, term string, mode domain.SortMode, category domain.Category) ([]domain.CatalogItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items = catalog.Filter(items, term, category)
	return catalog.Apply(items, mode), nil
}

// GetItem returns a single item or domain.ErrItemNotFound.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	return s.store.GetItem(ctx, id)
}

// ItemsByOwner returns the items a principal has listed.
func (s *CatalogService) ItemsByOwner(ctx context.Context, ownerID string) ([]domain.CatalogItem, error) {
	return s.store.ItemsByOwner(ctx, ownerID)
}

// ListingInput carries the raw attributes of a sell request. Category and
// ExpirationDate arrive as strings and are validated here, before anything
// reaches the store.
type ListingInput struct {
	Name           string
	Quantity       int
	Price          int
	Category       string
	ExpirationDate string // YYYY-MM-DD, optional
	Description    string
	AssetName      string // raw user-supplied file name, optional
}

// CreateListing validates the input, sanitizes the asset name, and
// persists a new catalog item owned by the requesting principal.
func (s *CatalogService) CreateListing(ctx context.Context, owner *domain.Principal, in ListingInput) (*domain.CatalogItem, error) {
	if owner == nil || owner.ID == "" {
		return nil, domain.ErrUnauthenticated
	}

	if in.Name == "" {
		return nil, domain.Validationf("name", "name must not be empty")
	}
	if in.Quantity < 1 || in.Quantity > maxListingQuantity {
		return nil, domain.Validationf("quantity", "quantity must be between 1 and %d", maxListingQuantity)
	}
	if in.Price < 1 {
		return nil, domain.Validationf("price", "price must be a positive integer")
	}
	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return nil, domain.Validationf("category", "%v", err)
	}
	// Counted in characters, not bytes, so multibyte text gets the full limit.
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return nil, domain.Validationf("description", "description must be at most %d characters", maxDescriptionLength)
	}

	var expiration *time.Time
	if in.ExpirationDate != "" {
		t, err := time.Parse(expirationDateLayout, in.ExpirationDate)
		if err != nil {
			return nil, domain.Validationf("expiration_date", "date must be in the form YYYY-MM-DD")
		}
		expiration = &t
	}

	assetRef := asset.DefaultImage
	if in.AssetName != "" {
		assetRef = asset.Sanitize(in.AssetName)
	}

	item := &domain.CatalogItem{
		ID:             uuid.New().String(),
		Name:           in.Name,
		Quantity:       in.Quantity,
		Price:          in.Price,
		Category:       category,
		ExpirationDate: expiration,
		Description:    in.Description,
		AssetRef:       assetRef,
		PublishedAt:    time.Now().UTC(),
		OwnerID:        owner.ID,
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetStock(ctx, item.ID, item.Quantity); err != nil {
			// Guard seeding is best effort; unseeded items pass through it.
			slog.Warn("failed to seed stock guard", "item_id", item.ID, "error", err)
		}
	}

	metrics.ListingsTotal.Inc()
	slog.Info("listing created",
		"item_id", item.ID,
		"owner_id", item.OwnerID,
		"category", item.Category,
		"quantity", item.Quantity,
	)
	return item, nil
}
