package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// HistoryTimestampLayout is the layout of price history timestamps
// (YYYY_MM_DD_HH_MM). Values sort lexically in time order.
const HistoryTimestampLayout = "2006_01_02_15_04"

// FormatHistoryTimestamp renders t in HistoryTimestampLayout. History
// timestamps are always UTC, including those supplied by scrape feeds.
func FormatHistoryTimestamp(t time.Time) string {
	return t.UTC().Format(HistoryTimestampLayout)
}

// PricePoint is one observed price of a product.
type PricePoint struct {
	Price     float64 `json:"price" bson:"price"`
	Timestamp string  `json:"timestamp" bson:"timestamp"`
}

// Value implements driver.Valuer for database storage
func (p PricePoint) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// PriceHistory is the append-only list of observed prices, oldest first.
type PriceHistory []PricePoint

// Value implements driver.Valuer for database storage
func (h PriceHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]PricePoint(h))
}

// Scan implements sql.Scanner for database retrieval
func (h *PriceHistory) Scan(value interface{}) error {
	if value == nil {
		*h = PriceHistory{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan PriceHistory")
	}
	return json.Unmarshal(bytes, h)
}

// LastDrop reports the two most recent prices when the latest one is lower
// than the one before it.
func (h PriceHistory) LastDrop() (previous, current PricePoint, ok bool) {
	if len(h) < 2 {
		return PricePoint{}, PricePoint{}, false
	}
	previous, current = h[len(h)-2], h[len(h)-1]
	return previous, current, current.Price < previous.Price
}

// Specifications is the free-form attribute map scraped from a listing.
type Specifications map[string]string

// Value implements driver.Valuer for database storage
func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(s))
}

// Scan implements sql.Scanner for database retrieval
func (s *Specifications) Scan(value interface{}) error {
	if value == nil {
		*s = Specifications{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan Specifications")
	}
	return json.Unmarshal(bytes, s)
}

// Product is one listing of an item in one online shop. Several products may
// share a ProductCode when the same item is sold by different shops.
type Product struct {
	ID               string         `db:"id" json:"id" bson:"_id"`
	ProductCode      string         `db:"product_code" json:"product_code" bson:"product_code"`
	OnlineMag        string         `db:"online_mag" json:"online_mag" bson:"online_mag"`
	Name             string         `db:"name" json:"name" bson:"name"`
	Price            float64        `db:"price" json:"price" bson:"price"`
	RecommendedPrice *float64       `db:"recommended_price" json:"recommended_price,omitempty" bson:"recommended_price,omitempty"`
	Rating           float64        `db:"rating" json:"rating" bson:"rating"`
	NumberOfReviews  int            `db:"number_of_reviews" json:"number_of_reviews" bson:"number_of_reviews"`
	Views            int64          `db:"views" json:"views" bson:"views"`
	Impressions      int64          `db:"impressions" json:"impressions" bson:"impressions"`
	IsInStoc         int            `db:"is_in_stoc" json:"is_in_stoc" bson:"is_in_stoc"`
	URL              string         `db:"url" json:"url" bson:"url"`
	Manufacturer     string         `db:"manufacturer" json:"manufacturer" bson:"manufacturer"`
	Category         string         `db:"category" json:"category" bson:"category"`
	Specifications   Specifications `db:"specifications" json:"specifications,omitzero" bson:"specifications,omitempty"`
	Timestamp        string         `db:"timestamp" json:"timestamp" bson:"timestamp"`
	PriceHistory     PriceHistory   `db:"price_history" json:"price_history" bson:"price_history"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt" bson:"updated_at"`
}
