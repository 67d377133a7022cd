package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// SavedListService manages a user's saved products.
type SavedListService struct {
	users    UserStore
	products ProductStore
}

// NewSavedListService constructs a SavedListService.
func NewSavedListService(users UserStore, products ProductStore) *SavedListService {
	return &SavedListService{users: users, products: products}
}

// SavedProductView is a saved product annotated with its notification flag.
type SavedProductView struct {
	models.Product
	EmailNotification bool `json:"email_notification"`
}

func requireCode(code string) error {
	if code == "" {
		return fmt.Errorf("%w: product code is required", utils.ErrBadRequest)
	}
	return nil
}

func (s *SavedListService) requireProduct(ctx context.Context, code string) error {
	exists, err := s.products.ExistsByCode(ctx, code)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: product not found", utils.ErrNotFound)
	}
	return nil
}

// Save appends code to the user's saved list with notifications off.
func (s *SavedListService) Save(ctx context.Context, user *models.User, code string) (models.SavedProducts, error) {
	if err := requireCode(code); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, code); err != nil {
		return nil, err
	}

	saved, err := s.users.AddSaved(ctx, user.ID, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product already in saved list", utils.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("add saved product: %w", err)
	}

	log.Debug().Str("user_id", user.ID).Str("product_code", code).Msg("Product saved")
	return saved, nil
}

// Unsave removes code from the user's saved list.
func (s *SavedListService) Unsave(ctx context.Context, user *models.User, code string) (models.SavedProducts, error) {
	if err := requireCode(code); err != nil {
		return nil, err
	}

	saved, err := s.users.RemoveSaved(ctx, user.ID, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product not in saved list", utils.ErrBadRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("remove saved product: %w", err)
	}
	return saved, nil
}

// SetNotification switches price alert emails for a saved product.
func (s *SavedListService) SetNotification(ctx context.Context, user *models.User, code string, enabled bool) (models.SavedProducts, error) {
	if err := requireCode(code); err != nil {
		return nil, err
	}

	saved, err := s.users.SetSavedNotification(ctx, user.ID, code, enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product not in saved list", utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("set notification: %w", err)
	}
	return saved, nil
}

// ListSaved resolves the saved list to products in saved order. Every
// product sharing a saved code is returned with that entry's flag.
func (s *SavedListService) ListSaved(ctx context.Context, user *models.User) ([]SavedProductView, error) {
	views := []SavedProductView{}
	if len(user.SavedProducts) == 0 {
		return views, nil
	}

	products, err := s.products.FindByCodes(ctx, user.SavedProducts.Codes())
	if err != nil {
		return nil, err
	}
	byCode := groupByCode(products)

	for _, entry := range user.SavedProducts {
		for _, p := range byCode[entry.ProductCode] {
			views = append(views, SavedProductView{Product: p, EmailNotification: entry.EmailNotification})
		}
	}
	return views, nil
}

// IsSaved reports whether code is on the user's saved list.
func (s *SavedListService) IsSaved(user *models.User, code string) bool {
	return user.SavedProducts.Find(code) != nil
}

func groupByCode(products []models.Product) map[string][]models.Product {
	byCode := make(map[string][]models.Product, len(products))
	for _, p := range products {
		byCode[p.ProductCode] = append(byCode[p.ProductCode], p)
	}
	return byCode
}
