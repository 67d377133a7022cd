package mongostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/repository"
)

const (
	productsCollection = "products"

	readTimeout  = 5 * time.Second
	listTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// notFound maps a missing document onto the store contract.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sql.ErrNoRows
	}
	return err
}

// normalizeProduct replaces null lists with empty ones.
func normalizeProduct(p *models.Product, extended bool) {
	if p.PriceHistory == nil {
		p.PriceHistory = models.PriceHistory{}
	}
	if extended && p.Specifications == nil {
		p.Specifications = models.Specifications{}
	}
}

// ProductStore keeps products in a MongoDB collection.
type ProductStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewProductStore creates a ProductStore on db.
func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{collection: db.Collection(productsCollection), now: time.Now}
}

func (s *ProductStore) findMany(ctx context.Context, filter interface{}, opts *options.FindOptions, extended bool) ([]models.Product, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	for i := range products {
		normalizeProduct(&products[i], extended)
	}
	return products, nil
}

// List returns the requested page of products matching q.Filter together with
// the number of matching products before pagination.
func (s *ProductStore) List(ctx context.Context, q repository.ProductQuery) (*repository.ProductPage, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	filter := buildFilter(q.Filter)
	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().SetSort(buildSort(q.Sort))
	if proj := projectionFor(q.Extended); proj != nil {
		opts.SetProjection(proj)
	}
	if q.Page != nil {
		opts.SetSkip(int64(q.Page.Offset())).SetLimit(int64(q.Page.Size))
	}

	products, err := s.findMany(ctx, filter, opts, q.Extended)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &repository.ProductPage{Products: products, Count: int(total)}, nil
}

// GetByID returns a single product by id.
func (s *ProductStore) GetByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var p models.Product
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	normalizeProduct(&p, true)
	return &p, nil
}

// FindByCodes returns every product whose product_code is in codes.
func (s *ProductStore) FindByCodes(ctx context.Context, codes []string) ([]models.Product, error) {
	if len(codes) == 0 {
		return []models.Product{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "product_code", Value: 1}, {Key: "online_mag", Value: 1}})
	products, err := s.findMany(ctx, bson.M{"product_code": bson.M{"$in": codes}}, opts, true)
	if err != nil {
		return nil, fmt.Errorf("find products by code: %w", err)
	}
	return products, nil
}

// ExistsByCode reports whether at least one product carries code.
func (s *ProductStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, bson.M{"product_code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check product code: %w", err)
	}
	return n > 0, nil
}

func (s *ProductStore) increment(ctx context.Context, id, field string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{field: 1})

	var doc bson.M
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: int64(1)}}, opts).Decode(&doc)
	if err != nil {
		return 0, notFound(err)
	}
	switch v := doc[field].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	}
	return 0, fmt.Errorf("unexpected %s type %T", field, doc[field])
}

// IncrementViews atomically adds one view and returns the new total.
func (s *ProductStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	return s.increment(ctx, id, "views")
}

// IncrementImpressions atomically adds one impression and returns the new total.
func (s *ProductStore) IncrementImpressions(ctx context.Context, id string) (int64, error) {
	return s.increment(ctx, id, "impressions")
}

// TopByViews sorts the whole collection by views and returns the first limit products.
func (s *ProductStore) TopByViews(ctx context.Context, ascending bool, limit int, extended bool) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	dir := -1
	if ascending {
		dir = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "views", Value: dir}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	if proj := projectionFor(extended); proj != nil {
		opts.SetProjection(proj)
	}

	products, err := s.findMany(ctx, bson.M{}, opts, extended)
	if err != nil {
		return nil, fmt.Errorf("top products by views: %w", err)
	}
	return products, nil
}

// Create inserts a product and fills in its generated fields.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := s.now().UTC()
	p.ID = uuid.NewString()
	p.Views, p.Impressions = 0, 0
	p.CreatedAt, p.UpdatedAt = now, now
	if p.PriceHistory == nil {
		p.PriceHistory = models.PriceHistory{}
	}

	if _, err := s.collection.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// attributes lists the fields a listing refresh overwrites.
func attributes(p *models.Product) bson.M {
	set := bson.M{
		"product_code":      p.ProductCode,
		"online_mag":        p.OnlineMag,
		"name":              p.Name,
		"price":             p.Price,
		"recommended_price": p.RecommendedPrice,
		"rating":            p.Rating,
		"number_of_reviews": p.NumberOfReviews,
		"is_in_stoc":        p.IsInStoc,
		"url":               p.URL,
		"manufacturer":      p.Manufacturer,
		"category":          p.Category,
		"specifications":    p.Specifications,
		"timestamp":         p.Timestamp,
	}
	if p.Specifications == nil {
		set["specifications"] = models.Specifications{}
	}
	return set
}

// Update overwrites the mutable attributes of a product. Counters and
// price_history are left untouched.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	set := attributes(p)
	p.UpdatedAt = s.now().UTC()
	set["updated_at"] = p.UpdatedAt

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a product by id. It returns sql.ErrNoRows when nothing was deleted.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// upsertUpdate refreshes the listing attributes, appends point to the
// history and seeds identity and counters on insert.
func upsertUpdate(p *models.Product, point models.PricePoint, newID string, now time.Time) bson.M {
	set := attributes(p)
	set["updated_at"] = now
	return bson.M{
		"$set":  set,
		"$push": bson.M{"price_history": point},
		"$setOnInsert": bson.M{
			"_id":         newID,
			"views":       int64(0),
			"impressions": int64(0),
			"created_at":  now,
		},
	}
}

// UpsertScraped inserts or refreshes the listing identified by
// (product_code, online_mag) and appends point to its price history.
// It reports whether a new document was inserted.
func (s *ProductStore) UpsertScraped(ctx context.Context, p *models.Product, point models.PricePoint) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	newID := uuid.NewString()
	filter := bson.M{"product_code": p.ProductCode, "online_mag": p.OnlineMag}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"_id": 1})

	var doc struct {
		ID string `bson:"_id"`
	}
	err := s.collection.FindOneAndUpdate(ctx, filter, upsertUpdate(p, point, newID, s.now().UTC()), opts).Decode(&doc)
	if err != nil {
		return false, fmt.Errorf("upsert product %s/%s: %w", p.OnlineMag, p.ProductCode, err)
	}
	p.ID = doc.ID
	return doc.ID == newID, nil
}
