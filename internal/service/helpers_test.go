package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GTDGit/pricewatch_api/internal/auth"
	"github.com/GTDGit/pricewatch_api/internal/cache"
	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/repository/memstore"
)

var (
	_ ProductStore = (*memstore.ProductStore)(nil)
	_ UserStore    = (*memstore.UserStore)(nil)
)

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]models.Product
	gets        int
	hits        int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]models.Product{}}
}

func cacheKey(ascending bool, limit int, extended bool) string {
	return fmt.Sprintf("%t:%d:%t", ascending, limit, extended)
}

func (c *fakeCache) Get(_ context.Context, ascending bool, limit int, extended bool) ([]models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	products, ok := c.entries[cacheKey(ascending, limit, extended)]
	if !ok {
		return nil, cache.ErrMiss
	}
	c.hits++
	return products, nil
}

func (c *fakeCache) Set(_ context.Context, ascending bool, limit int, extended bool, products []models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(ascending, limit, extended)] = products
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]models.Product{}
	c.invalidated++
	return nil
}

type fakeMetrics struct {
	views       atomic.Int64
	impressions atomic.Int64
}

func (m *fakeMetrics) ProductViewed()     { m.views.Add(1) }
func (m *fakeMetrics) ProductImpression() { m.impressions.Add(1) }

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[to]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fixture struct {
	products *memstore.ProductStore
	users    *memstore.UserStore
	auth     *AuthService
}

func newFixture() *fixture {
	products := memstore.NewProductStore()
	users := memstore.NewUserStore()
	return &fixture{
		products: products,
		users:    users,
		auth:     NewAuthService(users, auth.NewIssuer("test-secret", time.Hour)),
	}
}

// seed stores a product and returns it with its assigned id.
func (f *fixture) seed(t *testing.T, code, shop, manufacturer string, price float64) models.Product {
	t.Helper()
	p := &models.Product{
		ProductCode:  code,
		OnlineMag:    shop,
		Name:         manufacturer + " " + code,
		Price:        price,
		Manufacturer: manufacturer,
		PriceHistory: models.PriceHistory{{Price: price, Timestamp: "2024_01_01_00_00"}},
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return *p
}

// register creates a user and returns the stored record.
func (f *fixture) register(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), &RegisterRequest{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return u
}

// reload returns the current stored state of user.
func (f *fixture) reload(t *testing.T, user *models.User) *models.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	return u
}
