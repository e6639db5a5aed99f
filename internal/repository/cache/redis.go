package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storefront-plugins/product-reviews/internal/domain"
)

// RedisCache caches per-product stats and review list pages
type RedisCache struct {
	client         *redis.Client
	statsTTL       time.Duration
	reviewsListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, statsTTL, reviewsListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		statsTTL:       statsTTL,
		reviewsListTTL: reviewsListTTL,
	}
}

func (c *RedisCache) statsKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:review_stats", productID.String())
}

func (c *RedisCache) reviewsListKey(productID uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("product:%s:reviews:limit:%d:offset:%d", productID.String(), limit, offset)
}

func (c *RedisCache) productCacheKeysSet(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:cache_keys", productID.String())
}

// GetStats retrieves cached stats for a product
func (c *RedisCache) GetStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error) {
	val, err := c.client.Get(ctx, c.statsKey(productID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var stats domain.ReviewStats
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

// SetStats stores stats for a product
func (c *RedisCache) SetStats(ctx context.Context, stats *domain.ReviewStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.statsKey(stats.ProductID), data, c.statsTTL).Err()
}

type cachedReviewsPage struct {
	Reviews []*domain.Review `json:"reviews"`
	Total   int              `json:"total"`
}

// GetReviewsList retrieves a cached review page for a product
func (c *RedisCache) GetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	val, err := c.client.Get(ctx, c.reviewsListKey(productID, limit, offset)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, err
	}

	var page cachedReviewsPage
	if err := json.Unmarshal([]byte(val), &page); err != nil {
		return nil, 0, err
	}

	return page.Reviews, page.Total, nil
}

// SetReviewsList stores a review page and tracks the key in a SET so
// invalidation can find every cached page for the product
func (c *RedisCache) SetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.Review, total int) error {
	key := c.reviewsListKey(productID, limit, offset)
	trackingKey := c.productCacheKeysSet(productID)

	data, err := json.Marshal(cachedReviewsPage{Reviews: reviews, Total: total})
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateProduct removes the product's stats and every tracked page
func (c *RedisCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	trackingKey := c.productCacheKeysSet(productID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	keys = append(keys, trackingKey, c.statsKey(productID))
	return c.client.Unlink(ctx, keys...).Err()
}
