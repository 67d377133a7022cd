package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/pricewatch_api/internal/middleware"
	"github.com/GTDGit/pricewatch_api/internal/service"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// RecommendationHandler serves personalised suggestions.
type RecommendationHandler struct {
	recommendations *service.RecommendationService
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommendations *service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

// Recommend handles GET /api/users/recommendations
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	products, err := h.recommendations.Recommend(c.Request.Context(), middleware.GetUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.List(c, "Recommendations retrieved", products, len(products))
}
