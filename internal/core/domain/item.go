package domain

import (
	"fmt"
	"time"
)

// Category is the closed set of catalog categories. Unknown values are
// rejected at the boundary by ParseCategory.
type Category string

const (
	CategoryFood    Category = "Food"
	CategoryDrink   Category = "Drink"
	CategoryClothes Category = "Clothes"
	CategoryTech    Category = "Tech"
	CategoryBooks   Category = "Books"
	CategoryOther   Category = "Other"

	// CategoryAll is a filter sentinel, never stored on an item.
	CategoryAll Category = "All"
)

var categories = map[Category]bool{
	CategoryFood:    true,
	CategoryDrink:   true,
	CategoryClothes: true,
	CategoryTech:    true,
	CategoryBooks:   true,
	CategoryOther:   true,
}

// ParseCategory maps a raw string to a Category an item may carry.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !categories[c] {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// ParseFilterCategory is ParseCategory plus the All sentinel, for query
// inputs. An empty string means All.
func ParseFilterCategory(s string) (Category, error) {
	if s == "" || Category(s) == CategoryAll {
		return CategoryAll, nil
	}
	return ParseCategory(s)
}

// SortMode selects the ordering of a catalog query.
type SortMode string

const (
	SortNewOld       SortMode = "new-old"
	SortOldNew       SortMode = "old-new"
	SortPriceHighLow SortMode = "price-high-low"
	SortPriceLowHigh SortMode = "price-low-high"
)

// ParseSortMode maps a raw string to a SortMode. An empty string defaults
// to newest-first, matching the storefront default.
func ParseSortMode(s string) (SortMode, error) {
	if s == "" {
		return SortNewOld, nil
	}
	switch m := SortMode(s); m {
	case SortNewOld, SortOldNew, SortPriceHighLow, SortPriceLowHigh:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// CatalogItem is a listing in the shared catalog. Quantity is mutated only
// through a committed purchase; everything else is immutable after creation.
// Items are never deleted: a quantity of zero renders as sold out so ledger
// entries keep a live item reference.
type CatalogItem struct {
	ID             string
	Name           string
	Quantity       int
	Price          int
	Category       Category
	ExpirationDate *time.Time
	Description    string
	AssetRef       string
	PublishedAt    time.Time
	OwnerID        string
}

// SoldOut reports whether the item has no remaining stock.
func (i *CatalogItem) SoldOut() bool {
	return i.Quantity <= 0
}
