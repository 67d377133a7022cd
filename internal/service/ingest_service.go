package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

// ScrapedProduct is one listing produced by a shop scraper.
type ScrapedProduct struct {
	ProductCode      string            `json:"product_code"`
	OnlineMag        string            `json:"online_mag"`
	Name             string            `json:"name"`
	Price            float64           `json:"price"`
	RecommendedPrice *float64          `json:"recommended_price,omitempty"`
	Rating           float64           `json:"rating"`
	NumberOfReviews  int               `json:"number_of_reviews"`
	IsInStoc         int               `json:"is_in_stoc"`
	URL              string            `json:"url"`
	Manufacturer     string            `json:"manufacturer"`
	Category         string            `json:"category"`
	Specifications   map[string]string `json:"specifications,omitempty"`
	Timestamp        string            `json:"timestamp,omitempty"`
}

func (sp *ScrapedProduct) validate() error {
	switch {
	case sp.ProductCode == "":
		return fmt.Errorf("missing product_code")
	case sp.OnlineMag == "":
		return fmt.Errorf("missing online_mag")
	case sp.Name == "":
		return fmt.Errorf("missing name")
	case sp.Price < 0:
		return fmt.Errorf("negative price")
	}
	return nil
}

// IngestResult summarises one ingestion run.
type IngestResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// IngestService merges scraper output into the catalog.
type IngestService struct {
	products ProductStore
	cache    TopViewsCache
	now      func() time.Time
}

// NewIngestService constructs an IngestService. cache may be nil.
func NewIngestService(products ProductStore, cache TopViewsCache) *IngestService {
	return &IngestService{
		products: products,
		cache:    cache,
		now:      time.Now,
	}
}

// DecodeScraped reads a JSON array of scraped products.
func DecodeScraped(r io.Reader) ([]ScrapedProduct, error) {
	var items []ScrapedProduct
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode scraped products: %w", err)
	}
	return items, nil
}

// Ingest upserts each listing by (product_code, online_mag) and appends its
// price to the listing's history. Invalid listings are skipped. A store
// error stops the run and is returned with the counts so far.
func (s *IngestService) Ingest(ctx context.Context, items []ScrapedProduct) (*IngestResult, error) {
	result := &IngestResult{}
	defaultTimestamp := models.FormatHistoryTimestamp(s.now())

	defer func() {
		if result.Inserted+result.Updated > 0 && s.cache != nil {
			if err := s.cache.Invalidate(ctx); err != nil {
				log.Warn().Err(err).Msg("Top views cache invalidation failed")
			}
		}
	}()

	for i := range items {
		item := &items[i]
		if err := item.validate(); err != nil {
			log.Warn().Err(err).Int("index", i).Str("product_code", item.ProductCode).Msg("Skipping scraped product")
			result.Skipped++
			continue
		}

		timestamp := item.Timestamp
		if timestamp == "" {
			timestamp = defaultTimestamp
		}
		p := &models.Product{
			ProductCode:      item.ProductCode,
			OnlineMag:        item.OnlineMag,
			Name:             item.Name,
			Price:            item.Price,
			RecommendedPrice: item.RecommendedPrice,
			Rating:           item.Rating,
			NumberOfReviews:  item.NumberOfReviews,
			IsInStoc:         item.IsInStoc,
			URL:              item.URL,
			Manufacturer:     item.Manufacturer,
			Category:         item.Category,
			Specifications:   item.Specifications,
			Timestamp:        timestamp,
		}

		inserted, err := s.products.UpsertScraped(ctx, p, models.PricePoint{Price: item.Price, Timestamp: timestamp})
		if err != nil {
			return result, err
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	log.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Msg("Ingestion completed")
	return result, nil
}
