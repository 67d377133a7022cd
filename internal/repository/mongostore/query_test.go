package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GTDGit/pricewatch_api/internal/repository"
)

func ptr(f float64) *float64 { return &f }

func TestBuildFilter_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, buildFilter(repository.ProductFilter{}))
}

func TestBuildFilter_SinglePredicate(t *testing.T) {
	assert.Equal(t, bson.M{"product_code": "PC-1"}, buildFilter(repository.ProductFilter{ProductCode: "PC-1"}))
}

func TestBuildFilter_AllPredicates(t *testing.T) {
	f := buildFilter(repository.ProductFilter{
		Name:         "red shirt",
		Manufacturer: "Acme",
		MinPrice:     ptr(10),
		MaxPrice:     ptr(20),
		Field:        "category",
		Value:        "tops",
	})

	and, ok := f["$and"].([]bson.M)
	require.True(t, ok)
	assert.Equal(t, []bson.M{
		{"name": primitive.Regex{Pattern: "red", Options: "i"}},
		{"name": primitive.Regex{Pattern: "shirt", Options: "i"}},
		{"manufacturer": primitive.Regex{Pattern: "Acme", Options: "i"}},
		{"price": bson.M{"$gte": 10.0}},
		{"price": bson.M{"$lte": 20.0}},
		{"category": primitive.Regex{Pattern: "tops", Options: "i"}},
	}, and)
}

func TestBuildFilter_QuotesRegexInput(t *testing.T) {
	f := buildFilter(repository.ProductFilter{Manufacturer: "a.b*(c)"})
	assert.Equal(t, primitive.Regex{Pattern: `a\.b\*\(c\)`, Options: "i"}, f["manufacturer"])
}

func TestBuildFilter_UnknownFieldIgnored(t *testing.T) {
	assert.Equal(t, bson.M{}, buildFilter(repository.ProductFilter{Field: "password_hash", Value: "x"}))
}

func TestBuildSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, buildSort(repository.ProductSort{}))
	assert.Equal(t, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, buildSort(repository.ProductSort{Field: "$where"}))
	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}, buildSort(repository.ProductSort{Field: "price", Descending: true}))
	assert.Equal(t, bson.D{{Key: "updated_at", Value: 1}, {Key: "_id", Value: 1}}, buildSort(repository.ProductSort{Field: "updatedAt"}))
}

func TestProjectionFor(t *testing.T) {
	assert.Nil(t, projectionFor(true))
	assert.Equal(t, bson.M{"specifications": 0}, projectionFor(false))
}

func TestTouchRecentPipeline_TreatsCodeAsLiteral(t *testing.T) {
	p := touchRecentPipeline("$name", 30)
	require.Len(t, p, 1)

	set := p[0][0].Value.(bson.D)
	assert.Equal(t, "recent_products", set[0].Key)
	assert.Equal(t, "updated_at", set[1].Key)

	slice := set[0].Value.(bson.D)[0].Value.(bson.A)
	assert.Equal(t, 30, slice[1])

	concat := slice[0].(bson.D)[0].Value.(bson.A)
	front := concat[0].(bson.A)
	assert.Equal(t, bson.D{{Key: "product_code", Value: bson.D{{Key: "$literal", Value: "$name"}}}}, front[0])
}
