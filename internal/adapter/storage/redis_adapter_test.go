package storage

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/isakhq/marketplace/internal/port"
)

func getStockGuard(t *testing.T) *RedisStockGuard {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisStockGuard(client)
}

func TestRedis_ReserveStock(t *testing.T) {
	guard := getStockGuard(t)
	ctx := context.Background()
	itemID := "test-" + uuid.New().String()

	if err := guard.SetStock(ctx, itemID, 3); err != nil {
		t.Fatalf("SetStock failed: %v", err)
	}

	res, err := guard.ReserveStock(ctx, itemID, 2)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if res != port.ReservationHeld {
		t.Errorf("expected hold, got %v", res)
	}

	// Only one unit left; two cannot be held.
	res, err = guard.ReserveStock(ctx, itemID, 2)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if res != port.ReservationSoldOut {
		t.Errorf("expected sold out, got %v", res)
	}

	res, err = guard.ReserveStock(ctx, itemID, 1)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if res != port.ReservationHeld {
		t.Errorf("expected hold on last unit, got %v", res)
	}
}

func TestRedis_ReserveStock_UntrackedItem(t *testing.T) {
	guard := getStockGuard(t)

	res, err := guard.ReserveStock(context.Background(), "never-seeded-"+uuid.New().String(), 1)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if res != port.ReservationUnknown {
		t.Errorf("expected unknown for untracked item, got %v", res)
	}
}

func TestRedis_ReleaseStock(t *testing.T) {
	guard := getStockGuard(t)
	ctx := context.Background()
	itemID := "test-" + uuid.New().String()

	if err := guard.SetStock(ctx, itemID, 1); err != nil {
		t.Fatalf("SetStock failed: %v", err)
	}
	if res, _ := guard.ReserveStock(ctx, itemID, 1); res != port.ReservationHeld {
		t.Fatalf("expected hold, got %v", res)
	}
	if err := guard.ReleaseStock(ctx, itemID, 1); err != nil {
		t.Fatalf("ReleaseStock failed: %v", err)
	}

	// The released unit is available again.
	if res, _ := guard.ReserveStock(ctx, itemID, 1); res != port.ReservationHeld {
		t.Errorf("expected hold after release, got %v", res)
	}
}

func TestRedis_ClaimRequest(t *testing.T) {
	guard := getStockGuard(t)
	ctx := context.Background()
	requestID := uuid.New().String()

	first, err := guard.ClaimRequest(ctx, requestID)
	if err != nil {
		t.Fatalf("ClaimRequest failed: %v", err)
	}
	if !first {
		t.Error("expected first claim to succeed")
	}

	second, err := guard.ClaimRequest(ctx, requestID)
	if err != nil {
		t.Fatalf("ClaimRequest failed: %v", err)
	}
	if second {
		t.Error("expected replayed claim to fail")
	}
}

func TestRedis_ConcurrentReserve(t *testing.T) {
	guard := getStockGuard(t)
	ctx := context.Background()
	itemID := "test-" + uuid.New().String()

	const stock = 10
	const attempts = 30

	if err := guard.SetStock(ctx, itemID, stock); err != nil {
		t.Fatalf("SetStock failed: %v", err)
	}

	var held int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := guard.ReserveStock(ctx, itemID, 1)
			if err != nil {
				t.Errorf("ReserveStock failed: %v", err)
				return
			}
			if res == port.ReservationHeld {
				mu.Lock()
				held++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if held != stock {
		t.Errorf("expected exactly %d holds, got %d", stock, held)
	}
}
