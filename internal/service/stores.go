package service

import (
	"context"
	"time"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/repository"
	"github.com/GTDGit/pricewatch_api/internal/repository/mongostore"
)

// ProductStore persists products. A missing row is reported as sql.ErrNoRows.
type ProductStore interface {
	List(ctx context.Context, q repository.ProductQuery) (*repository.ProductPage, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	FindByCodes(ctx context.Context, codes []string) ([]models.Product, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
	IncrementImpressions(ctx context.Context, id string) (int64, error)
	TopByViews(ctx context.Context, ascending bool, limit int, extended bool) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	UpsertScraped(ctx context.Context, p *models.Product, point models.PricePoint) (bool, error)
}

// UserStore persists users. A missing row, or a list mutation whose
// precondition does not hold, is reported as sql.ErrNoRows.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByToken(ctx context.Context, token string) (*models.User, error)
	SetToken(ctx context.Context, userID, token string, issuedAt time.Time) error
	ClearToken(ctx context.Context, token string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	ListWithNotifications(ctx context.Context) ([]models.User, error)

	AddSaved(ctx context.Context, userID, code string) (models.SavedProducts, error)
	RemoveSaved(ctx context.Context, userID, code string) (models.SavedProducts, error)
	SetSavedNotification(ctx context.Context, userID, code string, enabled bool) (models.SavedProducts, error)
	TouchRecent(ctx context.Context, userID, code string, limit int) (models.RecentProducts, error)
	RemoveRecent(ctx context.Context, userID, code string) (models.RecentProducts, error)
	ClearRecent(ctx context.Context, userID string) error
}

// TopViewsCache caches most/least viewed listings.
type TopViewsCache interface {
	Get(ctx context.Context, ascending bool, limit int, extended bool) ([]models.Product, error)
	Set(ctx context.Context, ascending bool, limit int, extended bool, products []models.Product) error
	Invalidate(ctx context.Context) error
}

// CatalogMetrics receives product counter events.
type CatalogMetrics interface {
	ProductViewed()
	ProductImpression()
}

var (
	_ ProductStore = (*repository.ProductRepository)(nil)
	_ UserStore    = (*repository.UserRepository)(nil)
	_ ProductStore = (*mongostore.ProductStore)(nil)
	_ UserStore    = (*mongostore.UserStore)(nil)
)
