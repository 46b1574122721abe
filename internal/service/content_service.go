package service

import (
	"context"
	"fmt"
	"math/rand"

	"sinfiltro/internal/model"
	"sinfiltro/internal/repository"
)

// ContentService picks randomized, non-repeating prompts from the pool.
type ContentService struct {
	contentRepo repository.ContentRepo
}

// NewContentService creates a new content service
func NewContentService(contentRepo repository.ContentRepo) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
	}
}

// GetRandomContent returns a uniformly random active prompt in the given
// categories, avoiding excludeIDs. Once the filtered pool is exhausted it
// falls back to the full pool, so a round never fails just because every
// prompt has been seen.
func (s *ContentService) GetRandomContent(ctx context.Context, categories []model.Category, excludeIDs []string) (*model.GameContent, error) {
	candidates, err := s.contentRepo.FindActive(ctx, categories, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load content pool: %w", err)
	}

	if len(candidates) == 0 {
		candidates, err = s.contentRepo.FindActive(ctx, categories, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load content pool: %w", err)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoContent
	}

	return candidates[rand.Intn(len(candidates))], nil
}
