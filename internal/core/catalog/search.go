// Package catalog implements the pure query engine for the shared catalog:
// free-text filtering with deduplication, and stable sorting by price or
// publish date. It never touches storage; callers pass in materialized
// item slices and get new slices back.
package catalog

import (
	"strings"

	"github.com/isakhq/marketplace/internal/core/domain"
)

// Filter narrows items to those matching term, deduplicated by item id.
//
// The result is the name-matching items first, then description-matching
// items not already present, each preserving the relative order in which
// the store yielded them. Matching is case-insensitive. An empty term
// matches every item: substring of the empty string is universally true,
// and that is the intended "browse everything" behavior, not a skipped
// filter.
//
// The category guard runs before substring matching: items whose category
// differs from the requested one are excluded, unless the request is the
// All sentinel.
func Filter(items []domain.CatalogItem, term string, category domain.Category) []domain.CatalogItem {
	if category != domain.CategoryAll {
		kept := make([]domain.CatalogItem, 0, len(items))
		for _, it := range items {
			if it.Category == category {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	result := make([]domain.CatalogItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	term = strings.ToLower(term)

	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), term) {
			result = append(result, it)
			seen[it.ID] = true
		}
	}
	for _, it := range items {
		if !seen[it.ID] && strings.Contains(strings.ToLower(it.Description), term) {
			result = append(result, it)
			seen[it.ID] = true
		}
	}

	return result
}
