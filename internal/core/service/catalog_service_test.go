package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/isakhq/marketplace/internal/core/domain"
)

var seller = &domain.Principal{ID: "seller-1", Name: "Seller", Email: "seller@example.com"}

func validListing() ListingInput {
	return ListingInput{
		Name:        "rice cooker",
		Quantity:    2,
		Price:       1500,
		Category:    "Tech",
		Description: "barely used",
	}
}

func TestCreateListing_Success(t *testing.T) {
	store := newMockStore()
	svc := NewCatalogService(store, nil)

	in := validListing()
	in.ExpirationDate = "2021-06-30"
	in.AssetName = "kitchen photo.jpg"

	item, err := svc.CreateListing(context.Background(), seller, in)
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}

	if item.ID == "" {
		t.Error("expected assigned ID")
	}
	if item.OwnerID != seller.ID {
		t.Errorf("expected owner %s, got %s", seller.ID, item.OwnerID)
	}
	if item.Category != domain.CategoryTech {
		t.Errorf("expected Tech category, got %s", item.Category)
	}
	if item.AssetRef != "kitchen photo.jpg" {
		t.Errorf("unexpected asset ref: %q", item.AssetRef)
	}
	if item.ExpirationDate == nil || item.ExpirationDate.Format("2006-01-02") != "2021-06-30" {
		t.Errorf("unexpected expiration date: %v", item.ExpirationDate)
	}
	if item.PublishedAt.IsZero() {
		t.Error("expected publish timestamp")
	}
}

func TestCreateListing_SanitizesAssetName(t *testing.T) {
	store := newMockStore()
	svc := NewCatalogService(store, nil)

	in := validListing()
	in.AssetName = "a/b.png"
	item, err := svc.CreateListing(context.Background(), seller, in)
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}
	if item.AssetRef != "a_b.png" {
		t.Errorf("expected sanitized a_b.png, got %q", item.AssetRef)
	}

	// No asset at all falls back to the default reference.
	in = validListing()
	item, err = svc.CreateListing(context.Background(), seller, in)
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}
	if item.AssetRef != "default_img.png" {
		t.Errorf("expected default_img.png, got %q", item.AssetRef)
	}

	// A name without an extension is discarded for the default too.
	in = validListing()
	in.AssetName = "noextension"
	item, err = svc.CreateListing(context.Background(), seller, in)
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}
	if item.AssetRef != "default_img.png" {
		t.Errorf("expected default_img.png, got %q", item.AssetRef)
	}
}

func TestCreateListing_Validation(t *testing.T) {
	store := newMockStore()
	svc := NewCatalogService(store, nil)

	cases := []struct {
		name   string
		mutate func(*ListingInput)
		field  string
	}{
		{"empty name", func(in *ListingInput) { in.Name = "" }, "name"},
		{"zero quantity", func(in *ListingInput) { in.Quantity = 0 }, "quantity"},
		{"quantity over limit", func(in *ListingInput) { in.Quantity = 501 }, "quantity"},
		{"zero price", func(in *ListingInput) { in.Price = 0 }, "price"},
		{"negative price", func(in *ListingInput) { in.Price = -100 }, "price"},
		{"unknown category", func(in *ListingInput) { in.Category = "Gadgets" }, "category"},
		{"all is not a listing category", func(in *ListingInput) { in.Category = "All" }, "category"},
		{"description too long", func(in *ListingInput) { in.Description = strings.Repeat("x", 201) }, "description"},
		{"malformed date", func(in *ListingInput) { in.ExpirationDate = "30-06-2021" }, "expiration_date"},
		{"garbage date", func(in *ListingInput) { in.ExpirationDate = "soon" }, "expiration_date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validListing()
			tc.mutate(&in)

			_, err := svc.CreateListing(context.Background(), seller, in)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got: %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q (%s)", tc.field, verr.Field, verr.Message)
			}
		})
	}
}

func TestCreateListing_BoundaryValues(t *testing.T) {
	store := newMockStore()
	svc := NewCatalogService(store, nil)

	// Description of exactly 200 characters is accepted.
	in := validListing()
	in.Description = strings.Repeat("x", 200)
	if _, err := svc.CreateListing(context.Background(), seller, in); err != nil {
		t.Errorf("description length 200 should pass, got: %v", err)
	}

	// The limit counts characters, not bytes: 200 multibyte characters
	// are 600 bytes and still fit.
	in = validListing()
	in.Description = strings.Repeat("あ", 200)
	if _, err := svc.CreateListing(context.Background(), seller, in); err != nil {
		t.Errorf("200 multibyte characters should pass, got: %v", err)
	}

	in = validListing()
	in.Description = strings.Repeat("あ", 201)
	if _, err := svc.CreateListing(context.Background(), seller, in); err == nil {
		t.Error("201 characters should be rejected")
	}

	// Quantity of exactly 500 is accepted.
	in = validListing()
	in.Quantity = 500
	if _, err := svc.CreateListing(context.Background(), seller, in); err != nil {
		t.Errorf("quantity 500 should pass, got: %v", err)
	}
}

func TestCreateListing_Unauthenticated(t *testing.T) {
	store := newMockStore()
	svc := NewCatalogService(store, nil)

	_, err := svc.CreateListing(context.Background(), nil, validListing())
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got: %v", err)
	}
}

func TestCreateListing_SeedsStockGuard(t *testing.T) {
	store := newMockStore()
	cache := newMockCache()
	svc := NewCatalogService(store, cache)

	item, err := svc.CreateListing(context.Background(), seller, validListing())
	if err != nil {
		t.Fatalf("CreateListing failed: %v", err)
	}
	if !cache.tracked[item.ID] || cache.stock[item.ID] != 2 {
		t.Errorf("expected guard seeded with 2, got tracked=%v stock=%d",
			cache.tracked[item.ID], cache.stock[item.ID])
	}
}

func TestQuery_FiltersAndSorts(t *testing.T) {
	store := newMockStore()
	svc := NewCatalogService(store, nil)

	base := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	seed := []domain.CatalogItem{
		{ID: "1", Name: "green tea", Description: "", Category: domain.CategoryDrink, Price: 300, PublishedAt: base},
		{ID: "2", Name: "cola", Description: "with tea extract", Category: domain.CategoryDrink, Price: 150, PublishedAt: base.Add(time.Hour)},
		{ID: "3", Name: "tea towel", Description: "", Category: domain.CategoryOther, Price: 500, PublishedAt: base.Add(2 * time.Hour)},
	}
	for i := range seed {
		if err := store.CreateItem(context.Background(), &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// Category narrows before matching; price ascending.
	items, err := svc.Query(context.Background(), "tea", domain.SortPriceLowHigh, domain.CategoryDrink)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != "2" || items[1].ID != "1" {
		got := make([]string, len(items))
		for i, it := range items {
			got[i] = it.ID
		}
		t.Errorf("expected [2 1], got %v", got)
	}

	// Empty term browses everything, newest first by default mode.
	items, err = svc.Query(context.Background(), "", domain.SortNewOld, domain.CategoryAll)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(items) != 3 || items[0].ID != "3" {
		t.Errorf("expected 3 items newest first, got %d items", len(items))
	}
}
