package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// RecentListService manages a user's recently viewed products.
type RecentListService struct {
	users    UserStore
	products ProductStore
	limit    int
}

// NewRecentListService constructs a RecentListService keeping
// models.MaxRecentProducts entries.
func NewRecentListService(users UserStore, products ProductStore) *RecentListService {
	return &RecentListService{users: users, products: products, limit: models.MaxRecentProducts}
}

// Touch moves code to the front of the user's recent list.
func (s *RecentListService) Touch(ctx context.Context, user *models.User, code string) (models.RecentProducts, error) {
	if err := requireCode(code); err != nil {
		return nil, err
	}
	exists, err := s.products.ExistsByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: product not found", utils.ErrNotFound)
	}

	recent, err := s.users.TouchRecent(ctx, user.ID, code, s.limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("touch recent product: %w", err)
	}
	return recent, nil
}

// List resolves the recent list to products, most recent first. Codes that
// no longer match any product are dropped.
func (s *RecentListService) List(ctx context.Context, user *models.User) ([]models.Product, error) {
	result := []models.Product{}
	if len(user.RecentProducts) == 0 {
		return result, nil
	}

	products, err := s.products.FindByCodes(ctx, user.RecentProducts.Codes())
	if err != nil {
		return nil, err
	}
	byCode := groupByCode(products)

	for _, code := range user.RecentProducts.Codes() {
		result = append(result, byCode[code]...)
	}
	return result, nil
}

// IsRecent reports whether code is on the user's recent list.
func (s *RecentListService) IsRecent(user *models.User, code string) bool {
	return user.RecentProducts.Contains(code)
}

// Remove drops code from the user's recent list.
func (s *RecentListService) Remove(ctx context.Context, user *models.User, code string) (models.RecentProducts, error) {
	if err := requireCode(code); err != nil {
		return nil, err
	}

	recent, err := s.users.RemoveRecent(ctx, user.ID, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product not in recent list", utils.ErrBadRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("remove recent product: %w", err)
	}
	return recent, nil
}

// Clear empties the user's recent list.
func (s *RecentListService) Clear(ctx context.Context, user *models.User) error {
	if err := s.users.ClearRecent(ctx, user.ID); err != nil {
		return fmt.Errorf("clear recent products: %w", err)
	}
	return nil
}
