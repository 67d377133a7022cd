package service

import (
	"context"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/recommend"
)

// RecommendationService suggests products based on a user's recent list.
type RecommendationService struct {
	recent *RecentListService
	engine *recommend.Engine
}

// NewRecommendationService constructs a RecommendationService.
func NewRecommendationService(recent *RecentListService, engine *recommend.Engine) *RecommendationService {
	return &RecommendationService{recent: recent, engine: engine}
}

// Recommend returns products similar to those the user viewed recently.
func (s *RecommendationService) Recommend(ctx context.Context, user *models.User) ([]models.Product, error) {
	recent, err := s.recent.List(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.engine.Recommend(ctx, recent)
}
