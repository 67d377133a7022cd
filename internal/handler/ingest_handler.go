package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/service"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// IngestHandler accepts scraper output over HTTP.
type IngestHandler struct {
	ingest *service.IngestService
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// Ingest handles POST /api/products/ingest
func (h *IngestHandler) Ingest(c *gin.Context) {
	var items []service.ScrapedProduct
	if err := c.ShouldBindJSON(&items); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Body must be a JSON array of products")
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), items)
	if err != nil {
		log.Error().Err(err).Interface("partial", result).Msg("Ingestion aborted")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Ingestion aborted")
		return
	}
	utils.Success(c, http.StatusOK, "Products ingested", result)
}
