// Command stress hammers the purchase coordinator with concurrent
// single-unit purchases against one item and checks that exactly the
// available stock was sold, the invariant the coordinator exists for.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/isakhq/marketplace/internal/adapter/storage"
	"github.com/isakhq/marketplace/internal/core/domain"
	"github.com/isakhq/marketplace/internal/core/service"
)

const (
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "marketplace-stress-")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "stress.db"))
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	seller := &domain.Principal{ID: "seller-1", Name: "Seller"}
	catalogSvc := service.NewCatalogService(store, nil)
	purchaseSvc := service.NewPurchaseService(store, nil)

	item, err := catalogSvc.CreateListing(ctx, seller, service.ListingInput{
		Name:     "stress test item",
		Quantity: initialStock,
		Price:    100,
		Category: string(domain.CategoryOther),
	})
	if err != nil {
		log.Fatalf("failed to create listing: %v", err)
	}

	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(buyerID int) {
			defer wg.Done()

			buyer := &domain.Principal{ID: fmt.Sprintf("buyer-%d", buyerID)}
			_, _, err := purchaseSvc.Purchase(ctx, buyer, service.PurchaseInput{
				ItemID:   item.ID,
				Quantity: 1,
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && fail == totalRequests-initialStock {
		fmt.Printf("PASS: exactly %d purchases succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	final, err := store.GetItem(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to reload item: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", final.Quantity)
	if final.Quantity == 0 {
		fmt.Println("PASS: stock depleted to 0")
	} else {
		fmt.Printf("FAIL: expected stock 0, got %d\n", final.Quantity)
	}

	entries, err := store.EntriesByPrincipal(ctx, seller.ID)
	if err != nil {
		log.Fatalf("failed to read ledger: %v", err)
	}
	sold := 0
	for _, e := range entries {
		sold += e.Quantity
	}
	fmt.Printf("Ledger Entries: %d (units sold: %d)\n", len(entries), sold)
	if sold == initialStock {
		fmt.Println("PASS: ledger total matches initial stock")
	} else {
		fmt.Printf("FAIL: expected %d units in ledger, got %d\n", initialStock, sold)
	}
}
