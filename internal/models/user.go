package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// UserType enumerates the account roles.
type UserType string

const (
	UserTypeUser  UserType = "user"
	UserTypeAdmin UserType = "admin"
)

// MaxRecentProducts caps the recently viewed list.
const MaxRecentProducts = 30

// SavedProduct is a bookmarked product code with its price alert flag.
type SavedProduct struct {
	ProductCode       string `json:"product_code" bson:"product_code"`
	EmailNotification bool   `json:"email_notification" bson:"email_notification"`
}

// SavedProducts keeps insertion order; codes are unique within the list.
type SavedProducts []SavedProduct

// Value implements driver.Valuer for database storage
func (s SavedProducts) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]SavedProduct(s))
}

// Scan implements sql.Scanner for database retrieval
func (s *SavedProducts) Scan(value interface{}) error {
	if value == nil {
		*s = SavedProducts{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan SavedProducts")
	}
	return json.Unmarshal(bytes, s)
}

// Find returns the entry for code, or nil.
func (s SavedProducts) Find(code string) *SavedProduct {
	for i := range s {
		if s[i].ProductCode == code {
			return &s[i]
		}
	}
	return nil
}

// Codes returns the product codes in list order.
func (s SavedProducts) Codes() []string {
	codes := make([]string, 0, len(s))
	for _, e := range s {
		codes = append(codes, e.ProductCode)
	}
	return codes
}

// RecentProduct is one entry of the recently viewed list.
type RecentProduct struct {
	ProductCode string `json:"product_code" bson:"product_code"`
}

// RecentProducts is ordered most recent first and holds each code once.
type RecentProducts []RecentProduct

// Value implements driver.Valuer for database storage
func (r RecentProducts) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]RecentProduct(r))
}

// Scan implements sql.Scanner for database retrieval
func (r *RecentProducts) Scan(value interface{}) error {
	if value == nil {
		*r = RecentProducts{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan RecentProducts")
	}
	return json.Unmarshal(bytes, r)
}

// Contains reports whether code is on the list.
func (r RecentProducts) Contains(code string) bool {
	for _, e := range r {
		if e.ProductCode == code {
			return true
		}
	}
	return false
}

// Codes returns the product codes in list order.
func (r RecentProducts) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, e := range r {
		codes = append(codes, e.ProductCode)
	}
	return codes
}

// Touch moves code to the front, dropping any older entry for it, and
// truncates the list to limit entries.
func (r RecentProducts) Touch(code string, limit int) RecentProducts {
	out := make(RecentProducts, 0, len(r)+1)
	out = append(out, RecentProduct{ProductCode: code})
	for _, e := range r {
		if e.ProductCode != code {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// User is an account with its saved and recently viewed product lists.
type User struct {
	ID             string         `db:"id" json:"id" bson:"_id"`
	Email          string         `db:"email" json:"email" bson:"email"`
	PasswordHash   string         `db:"password_hash" json:"-" bson:"password_hash"`
	Token          *string        `db:"token" json:"-" bson:"token,omitempty"`
	TokenIssuedAt  *time.Time     `db:"token_issued_at" json:"-" bson:"token_issued_at,omitempty"`
	Type           UserType       `db:"type" json:"type" bson:"type"`
	SavedProducts  SavedProducts  `db:"saved_products" json:"savedProducts" bson:"saved_products"`
	RecentProducts RecentProducts `db:"recent_products" json:"recentProducts" bson:"recent_products"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt" bson:"updated_at"`
}
