package service

import (
	"context"

	"marketplace-rest-api/internal/cache"
	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
)

const reviewListLimit = 50

// ReviewService reads reviews through the review LRU caches.
type ReviewService struct {
	repo  repository.ReviewRepository
	cache *cache.ReviewCache
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, c *cache.ReviewCache) *ReviewService {
	return &ReviewService{repo: repo, cache: c}
}

// Count returns the number of reviews received by userID.
func (s *ReviewService) Count(ctx context.Context, userID string) (int64, error) {
	if n, ok := s.cache.GetCount(userID); ok {
		return n, nil
	}

	n, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.cache.SetCount(userID, n)
	return n, nil
}

// List returns the newest reviews received by userID.
func (s *ReviewService) List(ctx context.Context, userID string) ([]model.Review, error) {
	if reviews, ok := s.cache.GetList(userID); ok {
		return reviews, nil
	}

	reviews, err := s.repo.ListForUser(ctx, userID, reviewListLimit)
	if err != nil {
		return nil, err
	}
	s.cache.SetList(userID, reviews)
	return reviews, nil
}
