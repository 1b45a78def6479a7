package catalog

import (
	"sort"

	"github.com/isakhq/marketplace/internal/core/domain"
)

// Metric is the item field a sort operates over.
type Metric string

const (
	MetricPrice       Metric = "price"
	MetricPublishDate Metric = "publishDate"
)

// SortAscending returns a new slice ordered non-decreasing by metric,
// using a stable comparison: equal-key items retain their input order.
// Zero or one item is returned as a copy, unchanged.
func SortAscending(items []domain.CatalogItem, metric Metric) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	copy(out, items)
	if len(out) <= 1 {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch metric {
		case MetricPrice:
			return out[i].Price < out[j].Price
		default:
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
	})
	return out
}

// SortDescending is defined as the exact reverse of SortAscending, not an
// independent descending stable sort. Equal-key groups therefore come out
// in reversed input order in the descending direction. Callers relying on
// tie order should know this quirk; it is observable behavior the
// storefront has always had, so it stays.
func SortDescending(items []domain.CatalogItem, metric Metric) []domain.CatalogItem {
	out := SortAscending(items, metric)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Apply orders items according to a query sort mode.
func Apply(items []domain.CatalogItem, mode domain.SortMode) []domain.CatalogItem {
	switch mode {
	case domain.SortOldNew:
		return SortAscending(items, MetricPublishDate)
	case domain.SortPriceHighLow:
		return SortDescending(items, MetricPrice)
	case domain.SortPriceLowHigh:
		return SortAscending(items, MetricPrice)
	default: // SortNewOld, the storefront default
		return SortDescending(items, MetricPublishDate)
	}
}
