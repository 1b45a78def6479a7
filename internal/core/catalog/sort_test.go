package catalog

import (
	"testing"
	"time"

	"github.com/isakhq/marketplace/internal/core/domain"
)

func priced(id string, price int) domain.CatalogItem {
	return domain.CatalogItem{ID: id, Price: price}
}

func published(id string, offset time.Duration) domain.CatalogItem {
	base := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.CatalogItem{ID: id, PublishedAt: base.Add(offset)}
}

func TestSortAscending_ByPrice(t *testing.T) {
	items := []domain.CatalogItem{
		priced("1", 300),
		priced("2", 100),
		priced("3", 200),
	}

	got := SortAscending(items, MetricPrice)

	assertIDs(t, got, "2", "3", "1")
}

func TestSortAscending_ByPublishDate(t *testing.T) {
	items := []domain.CatalogItem{
		published("1", 2*time.Hour),
		published("2", 0),
		published("3", time.Hour),
	}

	got := SortAscending(items, MetricPublishDate)

	assertIDs(t, got, "2", "3", "1")
}

func TestSortAscending_IsStable(t *testing.T) {
	items := []domain.CatalogItem{
		priced("a", 100),
		priced("b", 50),
		priced("c", 100),
		priced("d", 100),
	}

	got := SortAscending(items, MetricPrice)

	// The equal-price group keeps its input order.
	assertIDs(t, got, "b", "a", "c", "d")
}

func TestSortDescending_IsExactReverseOfAscending(t *testing.T) {
	items := []domain.CatalogItem{
		priced("a", 100),
		priced("b", 50),
		priced("c", 100),
		priced("d", 75),
		priced("e", 100),
	}

	asc := SortAscending(items, MetricPrice)
	desc := SortDescending(items, MetricPrice)

	if len(asc) != len(desc) {
		t.Fatalf("length mismatch: %d vs %d", len(asc), len(desc))
	}
	for i := range asc {
		if asc[i].ID != desc[len(desc)-1-i].ID {
			t.Fatalf("descending is not the reverse of ascending: asc=%v desc=%v",
				ids(asc), ids(desc))
		}
	}

	// Tie groups come out reversed, not input-ordered.
	assertIDs(t, desc, "e", "c", "a", "d", "b")
}

func TestSort_ZeroAndOneItem(t *testing.T) {
	if got := SortAscending(nil, MetricPrice); len(got) != 0 {
		t.Errorf("expected empty slice, got %v", ids(got))
	}

	one := []domain.CatalogItem{priced("1", 10)}
	got := SortDescending(one, MetricPublishDate)
	assertIDs(t, got, "1")
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	items := []domain.CatalogItem{
		priced("1", 300),
		priced("2", 100),
	}

	SortAscending(items, MetricPrice)

	assertIDs(t, items, "1", "2")
}

func TestApply_Modes(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: "1", Price: 200, PublishedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Price: 100, PublishedAt: time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "3", Price: 300, PublishedAt: time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	cases := []struct {
		mode domain.SortMode
		want []string
	}{
		{domain.SortNewOld, []string{"2", "3", "1"}},
		{domain.SortOldNew, []string{"1", "3", "2"}},
		{domain.SortPriceHighLow, []string{"3", "1", "2"}},
		{domain.SortPriceLowHigh, []string{"2", "1", "3"}},
	}

	for _, tc := range cases {
		got := Apply(items, tc.mode)
		assertIDs(t, got, tc.want...)
	}
}
