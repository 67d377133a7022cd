package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/pricewatch_api/internal/repository"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

func ptr(f float64) *float64 { return &f }

func TestProductService_ListPriceRangeSortedPaged(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products, nil, nil)
	for i, price := range []float64{50, 150, 120, 180, 250} {
		f.seed(t, "PC-"+string(rune('A'+i)), "shop", "Acme", price)
	}

	page, err := svc.List(context.Background(), repository.ProductQuery{
		Filter: repository.ProductFilter{MinPrice: ptr(100), MaxPrice: ptr(200)},
		Sort:   repository.ProductSort{Field: "price", Descending: true},
		Page:   &repository.Page{Size: 2, Number: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Products, 2)
	assert.Equal(t, 180.0, page.Products[0].Price)
	assert.Equal(t, 150.0, page.Products[1].Price)
}

func TestProductService_ListWithoutFilterReturnsAll(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products, nil, nil)
	f.seed(t, "A", "shop", "Acme", 1)
	f.seed(t, "B", "shop", "Acme", 2)

	page, err := svc.List(context.Background(), repository.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Len(t, page.Products, 2)
	assert.Nil(t, page.Products[0].Specifications)
}

func TestProductService_NameTokensOrderIndependent(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products, nil, nil)
	f.seed(t, "A", "shop", "Red", 1)
	f.seed(t, "B", "shop", "Blue", 1)

	first, err := svc.List(context.Background(), repository.ProductQuery{Filter: repository.ProductFilter{Name: "red a"}})
	require.NoError(t, err)
	second, err := svc.List(context.Background(), repository.ProductQuery{Filter: repository.ProductFilter{Name: "A  RED"}})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, first.Products, second.Products)
}

func TestProductService_ListValidation(t *testing.T) {
	svc := NewProductService(newFixture().products, nil, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, repository.ProductQuery{Filter: repository.ProductFilter{Field: "password_hash", Value: "x"}})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = svc.List(ctx, repository.ProductQuery{Page: &repository.Page{Size: 0}})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = svc.List(ctx, repository.ProductQuery{Page: &repository.Page{Size: 5, Number: -1}})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = svc.List(ctx, repository.ProductQuery{Page: &repository.Page{Size: 1 << 62, Number: 3}})
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}

func TestProductService_GetByIDNotFound(t *testing.T) {
	svc := NewProductService(newFixture().products, nil, nil)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestProductService_ConcurrentIncrements(t *testing.T) {
	f := newFixture()
	metrics := &fakeMetrics{}
	svc := NewProductService(f.products, nil, metrics)
	p := f.seed(t, "A", "shop", "Acme", 10)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementViews(context.Background(), p.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.IncrementImpressions(context.Background(), p.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.Views)
	assert.Equal(t, int64(n), got.Impressions)
	assert.Equal(t, int64(n), metrics.views.Load())
	assert.Equal(t, int64(n), metrics.impressions.Load())
}

func TestProductService_IncrementMissing(t *testing.T) {
	metrics := &fakeMetrics{}
	svc := NewProductService(newFixture().products, nil, metrics)

	_, err := svc.IncrementViews(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.Zero(t, metrics.views.Load())
}

func TestProductService_TopByViewsCached(t *testing.T) {
	f := newFixture()
	c := newFakeCache()
	svc := NewProductService(f.products, c, nil)
	ctx := context.Background()

	a := f.seed(t, "A", "shop", "Acme", 1)
	f.seed(t, "B", "shop", "Acme", 1)
	_, err := svc.IncrementViews(ctx, a.ID)
	require.NoError(t, err)

	top, err := svc.TopByViews(ctx, false, 1, false)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, a.ID, top[0].ID)

	_, err = svc.TopByViews(ctx, false, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, c.hits)

	_, err = svc.Create(ctx, &ProductRequest{ProductCode: "C", OnlineMag: "shop", Name: "New", Price: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, c.invalidated)
	assert.Empty(t, c.entries)

	_, err = svc.TopByViews(ctx, false, 0, false)
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}

func TestProductService_TopByViewsLimitCapped(t *testing.T) {
	f := newFixture()
	c := newFakeCache()
	svc := NewProductService(f.products, c, nil)

	for i := 0; i < MaxTopViewsLimit+5; i++ {
		f.seed(t, fmt.Sprintf("P%d", i), "shop", "Acme", 1)
	}

	top, err := svc.TopByViews(context.Background(), false, 1_000_000, true)
	require.NoError(t, err)
	assert.Len(t, top, MaxTopViewsLimit)
	assert.Len(t, c.entries, 1)
	assert.Contains(t, c.entries, fmt.Sprintf("false:%d:true", MaxTopViewsLimit))
}

func TestProductService_CreateUpdateDelete(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products, newFakeCache(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &ProductRequest{ProductCode: "PC", OnlineMag: "shop", Name: "Phone", Price: 100})
	require.NoError(t, err)
	require.Len(t, created.PriceHistory, 1)
	assert.Equal(t, 100.0, created.PriceHistory[0].Price)
	assert.NotEmpty(t, created.Timestamp)

	_, err = svc.IncrementViews(ctx, created.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, &ProductRequest{ProductCode: "PC", OnlineMag: "shop", Name: "Phone 2", Price: 90})
	require.NoError(t, err)
	assert.Equal(t, "Phone 2", updated.Name)

	stored, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Views)
	assert.Len(t, stored.PriceHistory, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), utils.ErrNotFound)
	_, err = svc.Update(ctx, created.ID, &ProductRequest{ProductCode: "PC", OnlineMag: "shop", Name: "x"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
