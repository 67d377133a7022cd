package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/pricewatch_api/internal/middleware"
	"github.com/GTDGit/pricewatch_api/internal/service"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// UserListHandler serves the authenticated user's saved and recent lists.
type UserListHandler struct {
	saved  *service.SavedListService
	recent *service.RecentListService
}

// NewUserListHandler creates a new UserListHandler.
func NewUserListHandler(saved *service.SavedListService, recent *service.RecentListService) *UserListHandler {
	return &UserListHandler{saved: saved, recent: recent}
}

func existence(found bool) string {
	if found {
		return "exists"
	}
	return "not_exists"
}

// Save handles POST /api/users/userProductList/:code
func (h *UserListHandler) Save(c *gin.Context) {
	saved, err := h.saved.Save(c.Request.Context(), middleware.GetUser(c), c.Param("code"))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product saved", gin.H{"savedProducts": saved})
}

// Unsave handles DELETE /api/users/userProductList/:code
func (h *UserListHandler) Unsave(c *gin.Context) {
	saved, err := h.saved.Unsave(c.Request.Context(), middleware.GetUser(c), c.Param("code"))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product removed", gin.H{"savedProducts": saved})
}

// ListSaved handles GET /api/users/userProductList
func (h *UserListHandler) ListSaved(c *gin.Context) {
	views, err := h.saved.ListSaved(c.Request.Context(), middleware.GetUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.List(c, "Saved products retrieved", views, len(views))
}

// SavedExists handles GET /api/users/userProductList/:code
func (h *UserListHandler) SavedExists(c *gin.Context) {
	status := existence(h.saved.IsSaved(middleware.GetUser(c), c.Param("code")))
	utils.Success(c, http.StatusOK, status, gin.H{"status": status})
}

func (h *UserListHandler) setNotification(c *gin.Context, enabled bool) {
	saved, err := h.saved.SetNotification(c.Request.Context(), middleware.GetUser(c), c.Param("code"), enabled)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Notification updated", gin.H{"savedProducts": saved})
}

// EnableNotification handles POST /api/users/userProductList/mailing/:code
func (h *UserListHandler) EnableNotification(c *gin.Context) {
	h.setNotification(c, true)
}

// DisableNotification handles DELETE /api/users/userProductList/mailing/:code
func (h *UserListHandler) DisableNotification(c *gin.Context) {
	h.setNotification(c, false)
}

// TouchRecent handles POST /api/users/recentProductList/:code
func (h *UserListHandler) TouchRecent(c *gin.Context) {
	recent, err := h.recent.Touch(c.Request.Context(), middleware.GetUser(c), c.Param("code"))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Recent products updated", gin.H{"recentProducts": recent})
}

// ListRecent handles GET /api/users/recentProductList
func (h *UserListHandler) ListRecent(c *gin.Context) {
	products, err := h.recent.List(c.Request.Context(), middleware.GetUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.List(c, "Recent products retrieved", products, len(products))
}

// RecentExists handles GET /api/users/recentProductList/:code
func (h *UserListHandler) RecentExists(c *gin.Context) {
	status := existence(h.recent.IsRecent(middleware.GetUser(c), c.Param("code")))
	utils.Success(c, http.StatusOK, status, gin.H{"status": status})
}

// RemoveRecent handles DELETE /api/users/recentProductList/:code
func (h *UserListHandler) RemoveRecent(c *gin.Context) {
	recent, err := h.recent.Remove(c.Request.Context(), middleware.GetUser(c), c.Param("code"))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Recent product removed", gin.H{"recentProducts": recent})
}

// ClearRecent handles DELETE /api/users/recentProductList
func (h *UserListHandler) ClearRecent(c *gin.Context) {
	if err := h.recent.Clear(c.Request.Context(), middleware.GetUser(c)); err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Recent products cleared", nil)
}
