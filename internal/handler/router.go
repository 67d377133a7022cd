package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/pricewatch_api/internal/metrics"
	"github.com/GTDGit/pricewatch_api/internal/middleware"
	"github.com/GTDGit/pricewatch_api/internal/models"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health         *HealthHandler
	Auth           *AuthHandler
	Product        *ProductHandler
	UserList       *UserListHandler
	Recommendation *RecommendationHandler
	User           *UserHandler
	Ingest         *IngestHandler
}

// RegisterRoutes registers all routes. Admin routes answer deniedStatus when
// the caller is not an admin.
func RegisterRoutes(router *gin.Engine, h *Handlers, authMw *middleware.AuthMiddleware, deniedStatus int) {
	router.GET("/v1/health", h.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.POST("/logout", authMw.Handle(), h.Auth.Logout)
	}

	adminOnly := middleware.RequireRole(models.UserTypeAdmin, deniedStatus)

	products := router.Group("/api/products")
	{
		products.GET("", h.Product.List)
		products.GET("/views", h.Product.ByViews)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id/views", h.Product.IncrementViews)
		products.PUT("/:id/impressions", h.Product.IncrementImpressions)

		products.POST("", authMw.Handle(), adminOnly, h.Product.Create)
		products.POST("/ingest", authMw.Handle(), adminOnly, h.Ingest.Ingest)
		products.PUT("/:id", authMw.Handle(), adminOnly, h.Product.Update)
		products.DELETE("/:id", authMw.Handle(), adminOnly, h.Product.Delete)
	}

	users := router.Group("/api/users")
	users.Use(authMw.Handle())
	{
		users.GET("", adminOnly, h.User.List)

		users.GET("/userProductList", h.UserList.ListSaved)
		users.GET("/userProductList/:code", h.UserList.SavedExists)
		users.POST("/userProductList/:code", h.UserList.Save)
		users.DELETE("/userProductList/:code", h.UserList.Unsave)
		users.POST("/userProductList/mailing/:code", h.UserList.EnableNotification)
		users.DELETE("/userProductList/mailing/:code", h.UserList.DisableNotification)

		users.GET("/recentProductList", h.UserList.ListRecent)
		users.DELETE("/recentProductList", h.UserList.ClearRecent)
		users.GET("/recentProductList/:code", h.UserList.RecentExists)
		users.POST("/recentProductList/:code", h.UserList.TouchRecent)
		users.DELETE("/recentProductList/:code", h.UserList.RemoveRecent)

		users.GET("/recommendations", h.Recommendation.Recommend)
	}
}
