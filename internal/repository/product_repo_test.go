package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var listColumns = []string{
	"id", "product_code", "online_mag", "name", "price", "recommended_price", "rating",
	"number_of_reviews", "views", "impressions", "is_in_stoc", "url", "manufacturer", "category",
	"timestamp", "price_history", "created_at", "updated_at",
}

func productRow(rows *sqlmock.Rows, id string, price float64) *sqlmock.Rows {
	return rows.AddRow(id, "PC", "shop", "Phone "+id, price, nil, 4.5, 10, 0, 0, 1,
		"https://shop/"+id, "Acme", "phones", "2024_01_01_00_00", []byte(`[]`), time.Now(), time.Now())
}

func TestProductList_PriceRangeSortedPaged(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`^SELECT COUNT\(1\) FROM products WHERE price >= \$1 AND price <= \$2$`).
		WithArgs(100.0, 200.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rows := sqlmock.NewRows(listColumns)
	productRow(rows, "p180", 180)
	productRow(rows, "p150", 150)
	mock.ExpectQuery(`(?s)^SELECT id, product_code.*updated_at FROM products WHERE price >= \$1 AND price <= \$2 ORDER BY price DESC, id ASC LIMIT \$3 OFFSET \$4$`).
		WithArgs(100.0, 200.0, 2, 0).
		WillReturnRows(rows)

	page, err := repo.List(context.Background(), ProductQuery{
		Filter: ProductFilter{MinPrice: ptr(100), MaxPrice: ptr(200)},
		Sort:   ProductSort{Field: "price", Descending: true},
		Page:   &Page{Size: 2, Number: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Products, 2)
	assert.Equal(t, 180.0, page.Products[0].Price)
	assert.Equal(t, 150.0, page.Products[1].Price)
	assert.Nil(t, page.Products[0].Specifications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductList_NoPaginationExtended(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`^SELECT COUNT\(1\) FROM products $`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)^SELECT id, .*, specifications FROM products  ORDER BY created_at ASC, id ASC$`).
		WillReturnRows(sqlmock.NewRows(append(listColumns, "specifications")))

	page, err := repo.List(context.Background(), ProductQuery{Extended: true})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)
	assert.NotNil(t, page.Products)
	assert.Empty(t, page.Products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductList_CountError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`^SELECT COUNT`).WillReturnError(errors.New("db down"))

	_, err := repo.List(context.Background(), ProductQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count products")
}

func TestIncrementViews(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`^UPDATE products SET views = views \+ 1 WHERE id = \$1 RETURNING views$`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"views"}).AddRow(int64(8)))

	views, err := repo.IncrementViews(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), views)
}

func TestIncrementImpressions_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`^UPDATE products SET impressions = impressions \+ 1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.IncrementImpressions(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTopByViews_SortsWholeTableThenLimits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`(?s)FROM products ORDER BY views DESC, id ASC LIMIT \$1$`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(listColumns))

	_, err := repo.TopByViews(context.Background(), false, 5, false)
	require.NoError(t, err)

	mock.ExpectQuery(`(?s)FROM products ORDER BY views ASC, id ASC LIMIT \$1$`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(listColumns))

	_, err = repo.TopByViews(context.Background(), true, 3, false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByCodes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	got, err := repo.FindByCodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	mock.ExpectQuery(`(?s)WHERE product_code = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(append(listColumns, "specifications")))

	_, err = repo.FindByCodes(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`^DELETE FROM products WHERE id = \$1$`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "p1"), sql.ErrNoRows)
}

func TestUpsertScraped_AppendsHistory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`(?s)INSERT INTO products .*ON CONFLICT \(product_code, online_mag\) DO UPDATE SET.*price_history = products.price_history \|\| EXCLUDED.price_history`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow("p1", false))

	p := &models.Product{ProductCode: "PC", OnlineMag: "shop", Name: "Phone", Price: 99}
	inserted, err := repo.UpsertScraped(context.Background(), p, models.PricePoint{Price: 99, Timestamp: "2024_01_01_00_00"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "p1", p.ID)
}
