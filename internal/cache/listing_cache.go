package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dom "github.com/AlvinLandedSpecialist/mydreamhouse-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyFeed = "listings:feed:"

// Page is one cached slice of the public listing feed.
type Page struct {
	Items []dom.Listing `json:"items"`
	Total int64         `json:"total"`
}

// ListingCache caches pages of the unauthenticated listing feed in Redis.
// Every write to any listing invalidates the whole feed.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewListingCache returns a new ListingCache.
func NewListingCache(rdb *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl}
}

// FeedKey builds the cache key for one page of the feed.
func FeedKey(page, pageSize int, priceMax *float64) string {
	if priceMax == nil {
		return fmt.Sprintf("%s%d:%d:any", keyFeed, page, pageSize)
	}
	return fmt.Sprintf("%s%d:%d:%g", keyFeed, page, pageSize, *priceMax)
}

// GetFeed returns the cached page or nil on miss.
func (c *ListingCache) GetFeed(ctx context.Context, key string) (*Page, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Page
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetFeed stores one page of the feed.
func (c *ListingCache) SetFeed(ctx context.Context, key string, p *Page) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// InvalidateFeed removes every cached feed page (cache invalidation on write).
func (c *ListingCache) InvalidateFeed(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, keyFeed+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
