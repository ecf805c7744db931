package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.PriceCache = (*PriceCache)(nil)

// PriceCache implements domain.PriceCache using Redis hashes. Each asset's
// last known price lives at key "price:{mint}" with fields "price" and "ts"
// (Unix nanosecond timestamp). A TTL keeps dead launches from accumulating.
type PriceCache struct {
	rdb *redis.Client
}

// priceTTL expires marks for assets nothing has quoted in a day.
const priceTTL = 24 * time.Hour

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(mint string) string {
	return "price:" + mint
}

// SetPrice stores the latest price and timestamp for an asset.
func (pc *PriceCache) SetPrice(ctx context.Context, mint string, price float64, ts time.Time) error {
	key := priceKey(mint)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", mint, err)
	}
	if err := pc.rdb.Expire(ctx, key, priceTTL).Err(); err != nil {
		return fmt.Errorf("redis: expire price %s: %w", mint, err)
	}
	return nil
}

// GetPrice retrieves the latest price and timestamp for an asset. It returns
// domain.ErrNotFound when no mark has been cached.
func (pc *PriceCache) GetPrice(ctx context.Context, mint string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(mint)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", mint, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", mint, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", mint, err)
	}

	return price, time.Unix(0, tsNano), nil
}
