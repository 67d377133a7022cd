// Package memstore keeps products and users in memory. It mirrors the
// semantics of the database stores and backs service and handler tests.
package memstore

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/repository"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

var fold = cases.Fold()

func containsFold(s, substr string) bool {
	return strings.Contains(fold.String(s), fold.String(substr))
}

// ProductStore is an in-memory product store.
type ProductStore struct {
	mu       sync.Mutex
	products []*models.Product
	now      func() time.Time
}

// NewProductStore creates an empty ProductStore.
func NewProductStore() *ProductStore {
	return &ProductStore{now: time.Now}
}

func (s *ProductStore) find(id string) *models.Product {
	for _, p := range s.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func copyProduct(p *models.Product, extended bool) models.Product {
	out := *p
	out.PriceHistory = slices.Clone(p.PriceHistory)
	if out.PriceHistory == nil {
		out.PriceHistory = models.PriceHistory{}
	}
	if extended {
		out.Specifications = models.Specifications{}
		for k, v := range p.Specifications {
			out.Specifications[k] = v
		}
	} else {
		out.Specifications = nil
	}
	return out
}

func fieldValue(p *models.Product, field string) string {
	switch field {
	case "name":
		return p.Name
	case "product_code":
		return p.ProductCode
	case "online_mag":
		return p.OnlineMag
	case "manufacturer":
		return p.Manufacturer
	case "category":
		return p.Category
	case "url":
		return p.URL
	case "timestamp":
		return p.Timestamp
	}
	return ""
}

func matches(p *models.Product, f repository.ProductFilter) bool {
	for _, token := range repository.NameTokens(f.Name) {
		if !containsFold(p.Name, token) {
			return false
		}
	}
	if f.ProductCode != "" && p.ProductCode != f.ProductCode {
		return false
	}
	if f.Manufacturer != "" && !containsFold(p.Manufacturer, f.Manufacturer) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if repository.IsFilterableField(f.Field) && f.Value != "" && !containsFold(fieldValue(p, f.Field), f.Value) {
		return false
	}
	return true
}

func compareBy(field string) func(a, b *models.Product) int {
	switch field {
	case "price":
		return func(a, b *models.Product) int { return cmp.Compare(a.Price, b.Price) }
	case "recommended_price":
		return func(a, b *models.Product) int {
			return cmp.Compare(derefOr(a.RecommendedPrice, -1), derefOr(b.RecommendedPrice, -1))
		}
	case "rating":
		return func(a, b *models.Product) int { return cmp.Compare(a.Rating, b.Rating) }
	case "number_of_reviews":
		return func(a, b *models.Product) int { return cmp.Compare(a.NumberOfReviews, b.NumberOfReviews) }
	case "views":
		return func(a, b *models.Product) int { return cmp.Compare(a.Views, b.Views) }
	case "impressions":
		return func(a, b *models.Product) int { return cmp.Compare(a.Impressions, b.Impressions) }
	case "is_in_stoc":
		return func(a, b *models.Product) int { return cmp.Compare(a.IsInStoc, b.IsInStoc) }
	case "createdAt":
		return func(a, b *models.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case "updatedAt":
		return func(a, b *models.Product) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	case "name", "product_code", "online_mag", "manufacturer", "category", "timestamp":
		return func(a, b *models.Product) int { return cmp.Compare(fieldValue(a, field), fieldValue(b, field)) }
	}
	return nil
}

func derefOr(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}

func sortProducts(products []*models.Product, s repository.ProductSort) {
	primary := compareBy(s.Field)
	descending := s.Descending
	if primary == nil {
		primary = func(a, b *models.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
		descending = false
	}
	slices.SortStableFunc(products, func(a, b *models.Product) int {
		c := primary(a, b)
		if descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// List implements the catalog listing.
func (s *ProductStore) List(_ context.Context, q repository.ProductQuery) (*repository.ProductPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Product
	for _, p := range s.products {
		if matches(p, q.Filter) {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, q.Sort)

	total := len(matched)
	if q.Page != nil {
		start := min(q.Page.Offset(), total)
		end := min(start+q.Page.Size, total)
		matched = matched[start:end]
	}

	out := make([]models.Product, 0, len(matched))
	for _, p := range matched {
		out = append(out, copyProduct(p, q.Extended))
	}
	return &repository.ProductPage{Products: out, Count: total}, nil
}

// GetByID returns a product or sql.ErrNoRows.
func (s *ProductStore) GetByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.find(id)
	if p == nil {
		return nil, sql.ErrNoRows
	}
	out := copyProduct(p, true)
	return &out, nil
}

// FindByCodes returns every product whose code is in codes.
func (s *ProductStore) FindByCodes(_ context.Context, codes []string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Product{}
	for _, p := range s.products {
		if slices.Contains(codes, p.ProductCode) {
			out = append(out, copyProduct(p, true))
		}
	}
	return out, nil
}

// ExistsByCode reports whether any product carries code.
func (s *ProductStore) ExistsByCode(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.ProductCode == code {
			return true, nil
		}
	}
	return false, nil
}

// IncrementViews adds one view.
func (s *ProductStore) IncrementViews(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.find(id)
	if p == nil {
		return 0, sql.ErrNoRows
	}
	p.Views++
	return p.Views, nil
}

// IncrementImpressions adds one impression.
func (s *ProductStore) IncrementImpressions(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.find(id)
	if p == nil {
		return 0, sql.ErrNoRows
	}
	p.Impressions++
	return p.Impressions, nil
}

// TopByViews sorts every product by views and keeps the first limit.
func (s *ProductStore) TopByViews(_ context.Context, ascending bool, limit int, extended bool) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := slices.Clone(s.products)
	sortProducts(all, repository.ProductSort{Field: "views", Descending: !ascending})
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		out = append(out, copyProduct(p, extended))
	}
	return out, nil
}

// Create stores p and assigns its id and timestamps.
func (s *ProductStore) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	stored := copyProduct(p, true)
	s.products = append(s.products, &stored)
	return nil
}

// Update overwrites attributes, keeping counters and price history.
func (s *ProductStore) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.find(p.ID)
	if existing == nil {
		return sql.ErrNoRows
	}
	stored := copyProduct(p, true)
	stored.Views, stored.Impressions = existing.Views, existing.Impressions
	stored.PriceHistory = existing.PriceHistory
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = s.now()
	*existing = stored
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes a product.
func (s *ProductStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.products {
		if p.ID == id {
			s.products = slices.Delete(s.products, i, i+1)
			return nil
		}
	}
	return sql.ErrNoRows
}

// UpsertScraped inserts or refreshes the (product_code, online_mag) listing
// and appends point to its history.
func (s *ProductStore) UpsertScraped(_ context.Context, p *models.Product, point models.PricePoint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, existing := range s.products {
		if existing.ProductCode == p.ProductCode && existing.OnlineMag == p.OnlineMag {
			history := append(existing.PriceHistory, point)
			stored := copyProduct(p, true)
			stored.ID = existing.ID
			stored.Views, stored.Impressions = existing.Views, existing.Impressions
			stored.CreatedAt = existing.CreatedAt
			stored.UpdatedAt = now
			stored.PriceHistory = history
			*existing = stored
			p.ID = existing.ID
			return false, nil
		}
	}

	stored := copyProduct(p, true)
	stored.ID = uuid.NewString()
	stored.PriceHistory = models.PriceHistory{point}
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.products = append(s.products, &stored)
	p.ID = stored.ID
	return true, nil
}

// UserStore is an in-memory user store.
type UserStore struct {
	mu    sync.Mutex
	users []*models.User
	now   func() time.Time
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{now: time.Now}
}

func copyUser(u *models.User) *models.User {
	out := *u
	out.SavedProducts = slices.Clone(u.SavedProducts)
	if out.SavedProducts == nil {
		out.SavedProducts = models.SavedProducts{}
	}
	out.RecentProducts = slices.Clone(u.RecentProducts)
	if out.RecentProducts == nil {
		out.RecentProducts = models.RecentProducts{}
	}
	return &out
}

func (s *UserStore) find(match func(*models.User) bool) *models.User {
	for _, u := range s.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (s *UserStore) byID(id string) *models.User {
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s *UserStore) get(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.find(match)
	if u == nil {
		return nil, sql.ErrNoRows
	}
	return copyUser(u), nil
}

// Create stores u. It returns utils.ErrEmailExists for a taken email.
func (s *UserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(func(o *models.User) bool { return strings.EqualFold(o.Email, u.Email) }) != nil {
		return utils.ErrEmailExists
	}
	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	u.SavedProducts = models.SavedProducts{}
	u.RecentProducts = models.RecentProducts{}
	s.users = append(s.users, copyUser(u))
	return nil
}

// GetByID returns a user or sql.ErrNoRows.
func (s *UserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	return s.get(func(u *models.User) bool { return u.ID == id })
}

// GetByEmail returns a user by case-insensitive email.
func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.get(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

// GetByToken returns the user holding token.
func (s *UserStore) GetByToken(_ context.Context, token string) (*models.User, error) {
	return s.get(func(u *models.User) bool { return u.Token != nil && *u.Token == token })
}

// SetToken replaces the user's session.
func (s *UserStore) SetToken(_ context.Context, userID, token string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID(userID)
	if u == nil {
		return sql.ErrNoRows
	}
	u.Token = &token
	u.TokenIssuedAt = &issuedAt
	return nil
}

// ClearToken ends the session holding token.
func (s *UserStore) ClearToken(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.find(func(u *models.User) bool { return u.Token != nil && *u.Token == token })
	if u == nil {
		return false, nil
	}
	u.Token, u.TokenIssuedAt = nil, nil
	return true, nil
}

// List returns every user.
func (s *UserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *copyUser(u))
	}
	return out, nil
}

// ListWithNotifications returns users with any notification enabled.
func (s *UserStore) ListWithNotifications(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.User{}
	for _, u := range s.users {
		if slices.ContainsFunc(u.SavedProducts, func(e models.SavedProduct) bool { return e.EmailNotification }) {
			out = append(out, *copyUser(u))
		}
	}
	return out, nil
}

// AddSaved appends code unless present.
func (s *UserStore) AddSaved(_ context.Context, userID, code string) (models.SavedProducts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID(userID)
	if u == nil || u.SavedProducts.Find(code) != nil {
		return nil, sql.ErrNoRows
	}
	u.SavedProducts = append(u.SavedProducts, models.SavedProduct{ProductCode: code})
	return slices.Clone(u.SavedProducts), nil
}

// RemoveSaved drops code if present.
func (s *UserStore) RemoveSaved(_ context.Context, userID, code string) (models.SavedProducts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID(userID)
	if u == nil || u.SavedProducts.Find(code) == nil {
		return nil, sql.ErrNoRows
	}
	u.SavedProducts = slices.DeleteFunc(u.SavedProducts, func(e models.SavedProduct) bool { return e.ProductCode == code })
	return slices.Clone(u.SavedProducts), nil
}

// SetSavedNotification sets the flag of the entry for code.
func (s *UserStore) SetSavedNotification(_ context.Context, userID, code string, enabled bool) (models.SavedProducts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID(userID)
	if u == nil {
		return nil, sql.ErrNoRows
	}
	entry := u.SavedProducts.Find(code)
	if entry == nil {
		return nil, sql.ErrNoRows
	}
	entry.EmailNotification = enabled
	return slices.Clone(u.SavedProducts), nil
}

// TouchRecent moves code to the front and caps the list at limit.
func (s *UserStore) TouchRecent(_ context.Context, userID, code string, limit int) (models.RecentProducts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID(userID)
	if u == nil {
		return nil, sql.ErrNoRows
	}
	u.RecentProducts = u.RecentProducts.Touch(code, limit)
	return slices.Clone(u.RecentProducts), nil
}

// RemoveRecent drops code if present.
func (s *UserStore) RemoveRecent(_ context.Context, userID, code string) (models.RecentProducts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID(userID)
	if u == nil || !u.RecentProducts.Contains(code) {
		return nil, sql.ErrNoRows
	}
	u.RecentProducts = slices.DeleteFunc(u.RecentProducts, func(e models.RecentProduct) bool { return e.ProductCode == code })
	return slices.Clone(u.RecentProducts), nil
}

// ClearRecent empties the recent list.
func (s *UserStore) ClearRecent(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u := s.byID(userID); u != nil {
		u.RecentProducts = models.RecentProducts{}
	}
	return nil
}
