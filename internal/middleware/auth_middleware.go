package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/service"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// ForbiddenMessage is returned when the role gate denies a request.
const ForbiddenMessage = "Forbidden: user does not have necessary permissions"

// AuthMiddleware authenticates bearer tokens against the stored session.
type AuthMiddleware struct {
	authService *service.AuthService
	rateLimiter *InvalidAuthRateLimiter
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(authService *service.AuthService, rateLimiter *InvalidAuthRateLimiter) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		rateLimiter: rateLimiter,
	}
}

// Handle returns a Gin middleware function that enforces authentication.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			m.handleAuthError(c, "Missing authorization header")
			return
		}

		user, err := m.authService.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if !errors.Is(err, utils.ErrUnauthenticated) {
				log.Error().Err(err).Msg("Authentication lookup failed")
				utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				c.Abort()
				return
			}
			m.handleAuthError(c, "Invalid or expired token")
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("token", service.CleanCredential(raw))
		c.Next()
	}
}

func (m *AuthMiddleware) handleAuthError(c *gin.Context, message string) {
	if m.rateLimiter != nil && !m.rateLimiter.Allow(c.ClientIP()) {
		utils.Error(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}

	utils.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", message)
	c.Abort()
}

// RequireRole allows only users whose type equals role. deniedStatus is the
// status returned otherwise.
func RequireRole(role models.UserType, deniedStatus int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil || user.Type != role {
			utils.Error(c, deniedStatus, "FORBIDDEN", ForbiddenMessage)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUser returns the authenticated user from context.
func GetUser(c *gin.Context) *models.User {
	user, _ := c.Get("user")
	if user == nil {
		return nil
	}
	return user.(*models.User)
}

// GetToken returns the credential the request authenticated with.
func GetToken(c *gin.Context) string {
	return c.GetString("token")
}
