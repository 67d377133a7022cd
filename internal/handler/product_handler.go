package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/pricewatch_api/internal/repository"
	"github.com/GTDGit/pricewatch_api/internal/service"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// ProductHandler handles catalog endpoints.
type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// isDescending accepts DESC, desc and -1.
func isDescending(order string) bool {
	order = strings.TrimSpace(order)
	return strings.EqualFold(order, "desc") || order == "-1"
}

// isExtended is true unless extendedProduct=false is given.
func isExtended(c *gin.Context) bool {
	return !strings.EqualFold(strings.TrimSpace(c.Query("extendedProduct")), "false")
}

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", utils.ErrBadRequest, key)
	}
	return &v, nil
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", utils.ErrBadRequest, key)
	}
	return &v, nil
}

// parseProductQuery reads listing parameters. Empty values count as absent.
func parseProductQuery(c *gin.Context) (repository.ProductQuery, error) {
	q := repository.ProductQuery{
		Filter: repository.ProductFilter{
			Name:         c.Query("name"),
			ProductCode:  strings.TrimSpace(c.Query("productCode")),
			Manufacturer: strings.TrimSpace(c.Query("manufacturer")),
			Field:        strings.TrimSpace(c.Query("filterField")),
			Value:        c.Query("filterValue"),
		},
		Sort: repository.ProductSort{
			Field:      strings.TrimSpace(c.Query("sortField")),
			Descending: isDescending(c.Query("sortOrder")),
		},
		Extended: isExtended(c),
	}

	var err error
	if q.Filter.MinPrice, err = optionalFloat(c, "minPrice"); err != nil {
		return q, err
	}
	if q.Filter.MaxPrice, err = optionalFloat(c, "maxPrice"); err != nil {
		return q, err
	}

	size, err := optionalInt(c, "pageSize")
	if err != nil {
		return q, err
	}
	number, err := optionalInt(c, "pageNumber")
	if err != nil {
		return q, err
	}
	if size != nil && number != nil {
		q.Page = &repository.Page{Size: *size, Number: *number}
	}
	return q, nil
}

// List handles GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	q, err := parseProductQuery(c)
	if err != nil {
		handleError(c, err)
		return
	}

	page, err := h.productService.List(c.Request.Context(), q)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.List(c, "Products retrieved", page.Products, page.Count)
}

// ByViews handles GET /api/products/views
func (h *ProductHandler) ByViews(c *gin.Context) {
	limit := service.DefaultTopViewsLimit
	if v, err := optionalInt(c, "limit"); err != nil {
		handleError(c, err)
		return
	} else if v != nil {
		limit = *v
	}

	ascending := strings.EqualFold(strings.TrimSpace(c.Query("sortOrder")), "asc") || c.Query("sortOrder") == "1"
	products, err := h.productService.TopByViews(c.Request.Context(), ascending, limit, isExtended(c))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.List(c, "Products retrieved", products, len(products))
}

// Get handles GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.productService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product retrieved", p)
}

// IncrementViews handles PUT /api/products/:id/views
func (h *ProductHandler) IncrementViews(c *gin.Context) {
	views, err := h.productService.IncrementViews(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Views updated", gin.H{"views": views})
}

// IncrementImpressions handles PUT /api/products/:id/impressions
func (h *ProductHandler) IncrementImpressions(c *gin.Context) {
	impressions, err := h.productService.IncrementImpressions(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Impressions updated", gin.H{"impressions": impressions})
}

// Create handles POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	p, err := h.productService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Product created", p)
}

// Update handles PUT /api/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	p, err := h.productService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product updated", p)
}

// Delete handles DELETE /api/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
