package cache

import (
	"time"

	"marketplace-rest-api/internal/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ReviewCache holds per-user review counts and review lists. Both LRUs
// are bounded in size and every entry expires after the configured TTL.
type ReviewCache struct {
	reviewCountCache     *expirable.LRU[string, int64]
	userReviewsListCache *expirable.LRU[string, []model.Review]
}

// NewReviewCache creates both LRUs with size entries each.
func NewReviewCache(size int, ttl time.Duration) *ReviewCache {
	if size <= 0 {
		size = 500
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReviewCache{
		reviewCountCache:     expirable.NewLRU[string, int64](size, nil, ttl),
		userReviewsListCache: expirable.NewLRU[string, []model.Review](size, nil, ttl),
	}
}

// GetCount returns the cached review count for userID.
func (c *ReviewCache) GetCount(userID string) (int64, bool) {
	return c.reviewCountCache.Get(userID)
}

// SetCount caches the review count for userID.
func (c *ReviewCache) SetCount(userID string, n int64) {
	c.reviewCountCache.Add(userID, n)
}

// GetList returns the cached review list for userID.
func (c *ReviewCache) GetList(userID string) ([]model.Review, bool) {
	return c.userReviewsListCache.Get(userID)
}

// SetList caches a copy of the review list for userID.
func (c *ReviewCache) SetList(userID string, reviews []model.Review) {
	c.userReviewsListCache.Add(userID, append([]model.Review{}, reviews...))
}

// Invalidate drops both entries for userID.
func (c *ReviewCache) Invalidate(userID string) {
	c.reviewCountCache.Remove(userID)
	c.userReviewsListCache.Remove(userID)
}

// Len returns the entry counts of the count and list caches.
func (c *ReviewCache) Len() (counts, lists int) {
	return c.reviewCountCache.Len(), c.userReviewsListCache.Len()
}
