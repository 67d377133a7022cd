// Package mongostore implements the product and user stores on MongoDB.
package mongostore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/GTDGit/pricewatch_api/internal/repository"
)

// containsRegex matches s literally anywhere in the field, ignoring case.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// buildFilter renders f as a query document. Every predicate must match.
func buildFilter(f repository.ProductFilter) bson.M {
	var conds []bson.M
	for _, token := range repository.NameTokens(f.Name) {
		conds = append(conds, bson.M{"name": containsRegex(token)})
	}
	if f.ProductCode != "" {
		conds = append(conds, bson.M{"product_code": f.ProductCode})
	}
	if f.Manufacturer != "" {
		conds = append(conds, bson.M{"manufacturer": containsRegex(f.Manufacturer)})
	}
	if f.MinPrice != nil {
		conds = append(conds, bson.M{"price": bson.M{"$gte": *f.MinPrice}})
	}
	if f.MaxPrice != nil {
		conds = append(conds, bson.M{"price": bson.M{"$lte": *f.MaxPrice}})
	}
	if col, ok := repository.FilterColumn(f.Field); ok && f.Value != "" {
		conds = append(conds, bson.M{col: containsRegex(f.Value)})
	}

	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0]
	}
	return bson.M{"$and": conds}
}

// buildSort renders the sort document. _id breaks ties so pages are stable.
func buildSort(s repository.ProductSort) bson.D {
	col, ok := repository.SortColumn(s.Field)
	if !ok {
		return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	}
	dir := 1
	if s.Descending {
		dir = -1
	}
	return bson.D{{Key: col, Value: dir}, {Key: "_id", Value: 1}}
}

// projectionFor hides specifications outside extended listings.
func projectionFor(extended bool) bson.M {
	if extended {
		return nil
	}
	return bson.M{"specifications": 0}
}

// touchRecentPipeline moves code to the front of recent_products and keeps
// at most limit entries.
func touchRecentPipeline(code string, limit int) mongo.Pipeline {
	literal := bson.D{{Key: "$literal", Value: code}}
	kept := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$recent_products", bson.A{}}}}},
		{Key: "as", Value: "e"},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$e.product_code", literal}}}},
	}}}
	front := bson.A{bson.D{{Key: "product_code", Value: literal}}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "recent_products", Value: bson.D{{Key: "$slice", Value: bson.A{
				bson.D{{Key: "$concatArrays", Value: bson.A{front, kept}}},
				limit,
			}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}
}
