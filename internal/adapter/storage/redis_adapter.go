package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/isakhq/marketplace/internal/port"
)

var _ port.StockCache = (*RedisStockGuard)(nil)

const (
	stockKeyPrefix   = "stock:"
	requestKeyPrefix = "purchase-req:"
	requestClaimTTL  = 24 * time.Hour
)

// reserveStockScript conditionally decrements a stock counter. It returns
// 1 when the hold was taken, 0 when the counter cannot cover the request,
// and -1 when the item is not tracked at all: the guard must never block
// a purchase just because a counter was not seeded.
var reserveStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return -1
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

// RedisStockGuard implements port.StockCache on Redis. It fast-fails
// purchases of sold-out items before they reach the catalog store and
// claims purchase request IDs for idempotency.
type RedisStockGuard struct {
	client *redis.Client
}

func NewRedisStockGuard(client *redis.Client) *RedisStockGuard {
	return &RedisStockGuard{client: client}
}

func (g *RedisStockGuard) ReserveStock(ctx context.Context, itemID string, quantity int) (port.Reservation, error) {
	result, err := reserveStockScript.Run(ctx, g.client, []string{stockKeyPrefix + itemID}, quantity).Int()
	if err != nil {
		return port.ReservationUnknown, err
	}

	switch result {
	case 1:
		return port.ReservationHeld, nil
	case 0:
		return port.ReservationSoldOut, nil
	default:
		return port.ReservationUnknown, nil
	}
}

func (g *RedisStockGuard) ReleaseStock(ctx context.Context, itemID string, quantity int) error {
	return g.client.IncrBy(ctx, stockKeyPrefix+itemID, int64(quantity)).Err()
}

func (g *RedisStockGuard) SetStock(ctx context.Context, itemID string, quantity int) error {
	return g.client.Set(ctx, stockKeyPrefix+itemID, quantity, 0).Err()
}

func (g *RedisStockGuard) ClaimRequest(ctx context.Context, requestID string) (bool, error) {
	return g.client.SetNX(ctx, requestKeyPrefix+requestID, 1, requestClaimTTL).Result()
}
