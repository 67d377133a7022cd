package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

const (
	productListColumns = `id, product_code, online_mag, name, price, recommended_price, rating,
        number_of_reviews, views, impressions, is_in_stoc, url, manufacturer, category,
        timestamp, price_history, created_at, updated_at`

	productColumns = productListColumns + `, specifications`
)

func columnsFor(extended bool) string {
	if extended {
		return productColumns
	}
	return productListColumns
}

// ProductRepository handles data access for products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns the requested page of products matching q.Filter together with
// the number of matching products before pagination.
func (r *ProductRepository) List(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	where, args := buildWhere(q.Filter)

	countQuery := `SELECT COUNT(1) FROM products ` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM products %s %s`, columnsFor(q.Extended), where, buildOrder(q.Sort))
	if q.Page != nil {
		listQuery += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, q.Page.Size, q.Page.Offset())
	}

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &ProductPage{Products: products, Count: total}, nil
}

// GetByID returns a single product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p models.Product
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByCodes returns every product whose product_code is in codes. A code may
// match zero or many products.
func (r *ProductRepository) FindByCodes(ctx context.Context, codes []string) ([]models.Product, error) {
	products := []models.Product{}
	if len(codes) == 0 {
		return products, nil
	}

	q := `SELECT ` + productColumns + ` FROM products WHERE product_code = ANY($1) ORDER BY product_code, online_mag`
	if err := r.db.SelectContext(ctx, &products, q, pq.Array(codes)); err != nil {
		return nil, fmt.Errorf("find products by code: %w", err)
	}
	return products, nil
}

// ExistsByCode reports whether at least one product carries code.
func (r *ProductRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM products WHERE product_code = $1)`, code)
	if err != nil {
		return false, fmt.Errorf("check product code: %w", err)
	}
	return exists, nil
}

// IncrementViews atomically adds one view and returns the new total.
func (r *ProductRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.db.QueryRowxContext(ctx,
		`UPDATE products SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	return views, err
}

// IncrementImpressions atomically adds one impression and returns the new total.
func (r *ProductRepository) IncrementImpressions(ctx context.Context, id string) (int64, error) {
	var impressions int64
	err := r.db.QueryRowxContext(ctx,
		`UPDATE products SET impressions = impressions + 1 WHERE id = $1 RETURNING impressions`, id).Scan(&impressions)
	return impressions, err
}

// TopByViews sorts the whole collection by views and returns the first limit products.
func (r *ProductRepository) TopByViews(ctx context.Context, ascending bool, limit int, extended bool) ([]models.Product, error) {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	q := fmt.Sprintf(`SELECT %s FROM products ORDER BY views %s, id ASC LIMIT $1`, columnsFor(extended), dir)

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, limit); err != nil {
		return nil, fmt.Errorf("top products by views: %w", err)
	}
	return products, nil
}

// Create inserts a product and fills in its generated fields.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `
        INSERT INTO products (product_code, online_mag, name, price, recommended_price, rating,
            number_of_reviews, is_in_stoc, url, manufacturer, category, specifications, timestamp, price_history)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, views, impressions, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, q,
		p.ProductCode,
		p.OnlineMag,
		p.Name,
		p.Price,
		p.RecommendedPrice,
		p.Rating,
		p.NumberOfReviews,
		p.IsInStoc,
		p.URL,
		p.Manufacturer,
		p.Category,
		p.Specifications,
		p.Timestamp,
		p.PriceHistory,
	).Scan(&p.ID, &p.Views, &p.Impressions, &p.CreatedAt, &p.UpdatedAt)
}

// Update overwrites the mutable attributes of a product. Counters and
// price_history are left untouched.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	const q = `
        UPDATE products
        SET product_code = $1, online_mag = $2, name = $3, price = $4, recommended_price = $5,
            rating = $6, number_of_reviews = $7, is_in_stoc = $8, url = $9, manufacturer = $10,
            category = $11, specifications = $12, timestamp = $13, updated_at = NOW()
        WHERE id = $14
        RETURNING updated_at`

	return r.db.QueryRowxContext(ctx, q,
		p.ProductCode,
		p.OnlineMag,
		p.Name,
		p.Price,
		p.RecommendedPrice,
		p.Rating,
		p.NumberOfReviews,
		p.IsInStoc,
		p.URL,
		p.Manufacturer,
		p.Category,
		p.Specifications,
		p.Timestamp,
		p.ID,
	).Scan(&p.UpdatedAt)
}

// Delete removes a product by id. It returns sql.ErrNoRows when nothing was deleted.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertScraped inserts or refreshes the listing identified by
// (product_code, online_mag) and appends point to its price history.
// It reports whether a new row was inserted.
func (r *ProductRepository) UpsertScraped(ctx context.Context, p *models.Product, point models.PricePoint) (bool, error) {
	const q = `
        INSERT INTO products (product_code, online_mag, name, price, recommended_price, rating,
            number_of_reviews, is_in_stoc, url, manufacturer, category, specifications, timestamp, price_history)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, jsonb_build_array($14::jsonb))
        ON CONFLICT (product_code, online_mag) DO UPDATE SET
            name = EXCLUDED.name,
            price = EXCLUDED.price,
            recommended_price = EXCLUDED.recommended_price,
            rating = EXCLUDED.rating,
            number_of_reviews = EXCLUDED.number_of_reviews,
            is_in_stoc = EXCLUDED.is_in_stoc,
            url = EXCLUDED.url,
            manufacturer = EXCLUDED.manufacturer,
            category = EXCLUDED.category,
            specifications = EXCLUDED.specifications,
            timestamp = EXCLUDED.timestamp,
            price_history = products.price_history || EXCLUDED.price_history,
            updated_at = NOW()
        RETURNING id, (xmax = 0) AS inserted`

	var inserted bool
	err := r.db.QueryRowxContext(ctx, q,
		p.ProductCode,
		p.OnlineMag,
		p.Name,
		p.Price,
		p.RecommendedPrice,
		p.Rating,
		p.NumberOfReviews,
		p.IsInStoc,
		p.URL,
		p.Manufacturer,
		p.Category,
		p.Specifications,
		p.Timestamp,
		point,
	).Scan(&p.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert product %s/%s: %w", p.OnlineMag, p.ProductCode, err)
	}
	return inserted, nil
}
