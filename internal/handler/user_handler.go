package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// UserLister lists every account.
type UserLister interface {
	List(ctx context.Context) ([]models.User, error)
}

// UserHandler serves admin user management.
type UserHandler struct {
	users UserLister
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserLister) *UserHandler {
	return &UserHandler{users: users}
}

// List handles GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	utils.List(c, "Users retrieved", users, len(users))
}
