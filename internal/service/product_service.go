package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/cache"
	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/repository"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// DefaultTopViewsLimit is used when byViews is called without a limit.
const DefaultTopViewsLimit = 10

// MaxTopViewsLimit caps the byViews limit before it reaches the cache key or the store.
const MaxTopViewsLimit = 100

// ProductService implements catalog queries, counters and product maintenance.
type ProductService struct {
	products ProductStore
	cache    TopViewsCache
	metrics  CatalogMetrics
	now      func() time.Time
}

// NewProductService constructs a ProductService. cache and metrics may be nil.
func NewProductService(products ProductStore, cache TopViewsCache, metrics CatalogMetrics) *ProductService {
	return &ProductService{
		products: products,
		cache:    cache,
		metrics:  metrics,
		now:      time.Now,
	}
}

// ProductRequest is the body of product create and update calls.
type ProductRequest struct {
	ProductCode      string            `json:"product_code" binding:"required"`
	OnlineMag        string            `json:"online_mag" binding:"required"`
	Name             string            `json:"name" binding:"required"`
	Price            float64           `json:"price" binding:"gte=0"`
	RecommendedPrice *float64          `json:"recommended_price"`
	Rating           float64           `json:"rating" binding:"gte=0"`
	NumberOfReviews  int               `json:"number_of_reviews" binding:"gte=0"`
	IsInStoc         int               `json:"is_in_stoc"`
	URL              string            `json:"url"`
	Manufacturer     string            `json:"manufacturer"`
	Category         string            `json:"category"`
	Specifications   map[string]string `json:"specifications"`
	Timestamp        string            `json:"timestamp"`
}

func (r *ProductRequest) apply(p *models.Product, now time.Time) {
	p.ProductCode = r.ProductCode
	p.OnlineMag = r.OnlineMag
	p.Name = r.Name
	p.Price = r.Price
	p.RecommendedPrice = r.RecommendedPrice
	p.Rating = r.Rating
	p.NumberOfReviews = r.NumberOfReviews
	p.IsInStoc = r.IsInStoc
	p.URL = r.URL
	p.Manufacturer = r.Manufacturer
	p.Category = r.Category
	p.Specifications = r.Specifications
	p.Timestamp = r.Timestamp
	if p.Timestamp == "" {
		p.Timestamp = models.FormatHistoryTimestamp(now)
	}
}

// validID reports whether id can name a stored product. Anything else is
// treated as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// List runs a filtered, sorted and optionally paginated listing.
func (s *ProductService) List(ctx context.Context, q repository.ProductQuery) (*repository.ProductPage, error) {
	if q.Filter.Field != "" && !repository.IsFilterableField(q.Filter.Field) {
		return nil, fmt.Errorf("%w: field %q cannot be filtered", utils.ErrBadRequest, q.Filter.Field)
	}
	if q.Page != nil && (q.Page.Size <= 0 || q.Page.Number < 0) {
		return nil, fmt.Errorf("%w: pageSize must be positive and pageNumber non-negative", utils.ErrBadRequest)
	}
	if q.Page != nil && q.Page.Number > 0 && q.Page.Size > math.MaxInt/q.Page.Number {
		return nil, fmt.Errorf("%w: page out of range", utils.ErrBadRequest)
	}
	return s.products.List(ctx, q)
}

// GetByID returns a single product.
func (s *ProductService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if !validID(id) {
		return nil, utils.ErrNotFound
	}
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// IncrementViews adds one view and returns the new total.
func (s *ProductService) IncrementViews(ctx context.Context, id string) (int64, error) {
	if !validID(id) {
		return 0, utils.ErrNotFound
	}
	views, err := s.products.IncrementViews(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, utils.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ProductViewed()
	}
	return views, nil
}

// IncrementImpressions adds one impression and returns the new total.
func (s *ProductService) IncrementImpressions(ctx context.Context, id string) (int64, error) {
	if !validID(id) {
		return 0, utils.ErrNotFound
	}
	impressions, err := s.products.IncrementImpressions(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, utils.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment impressions: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ProductImpression()
	}
	return impressions, nil
}

// TopByViews returns the limit most viewed products, or least viewed when
// ascending is set.
func (s *ProductService) TopByViews(ctx context.Context, ascending bool, limit int, extended bool) ([]models.Product, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", utils.ErrBadRequest)
	}
	if limit > MaxTopViewsLimit {
		limit = MaxTopViewsLimit
	}

	if s.cache != nil {
		products, err := s.cache.Get(ctx, ascending, limit, extended)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Msg("Top views cache read failed")
		}
	}

	products, err := s.products.TopByViews(ctx, ascending, limit, extended)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ascending, limit, extended, products); err != nil {
			log.Warn().Err(err).Msg("Top views cache write failed")
		}
	}
	return products, nil
}

// Create stores a new product. Its price history starts with the current price.
func (s *ProductService) Create(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	p := &models.Product{}
	req.apply(p, s.now())
	p.PriceHistory = models.PriceHistory{{Price: p.Price, Timestamp: p.Timestamp}}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)

	log.Info().Str("product_id", p.ID).Str("product_code", p.ProductCode).Msg("Product created")
	return p, nil
}

// Update overwrites the attributes of a product. Counters and price history
// are kept as stored.
func (s *ProductService) Update(ctx context.Context, id string, req *ProductRequest) (*models.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.apply(p, s.now())
	err = s.products.Update(ctx, p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return utils.ErrNotFound
	}
	err := s.products.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return utils.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx)

	log.Info().Str("product_id", id).Msg("Product deleted")
	return nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Top views cache invalidation failed")
	}
}
