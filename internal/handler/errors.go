package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// detail returns the message a service attached to a sentinel error,
// e.g. "BAD_REQUEST: product code is required" yields the part after the colon.
func detail(err error, fallback string) string {
	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, ": "); ok && rest != "" {
		return rest
	}
	return fallback
}

// handleError maps service errors to the response envelope.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrUnauthenticated):
		utils.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", detail(err, "Unauthenticated"))
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, utils.ErrEmailExists):
		utils.Error(c, http.StatusBadRequest, "EMAIL_EXISTS", "Email already registered")
	case errors.Is(err, utils.ErrBadRequest):
		utils.Error(c, http.StatusBadRequest, "BAD_REQUEST", detail(err, "Bad request"))
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, http.StatusNotFound, "NOT_FOUND", detail(err, "Not found"))
	case errors.Is(err, utils.ErrConflict):
		utils.Error(c, http.StatusConflict, "CONFLICT", detail(err, "Conflict"))
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
