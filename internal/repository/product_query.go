package repository

import (
	"fmt"
	"strings"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

// filterableFields maps the field names accepted by the generic field filter
// to their columns. Only text columns are listed since the filter is a
// case-insensitive substring match.
var filterableFields = map[string]string{
	"name":         "name",
	"product_code": "product_code",
	"online_mag":   "online_mag",
	"manufacturer": "manufacturer",
	"category":     "category",
	"url":          "url",
	"timestamp":    "timestamp",
}

// sortableFields maps accepted sort field names to their columns.
var sortableFields = map[string]string{
	"name":              "name",
	"price":             "price",
	"recommended_price": "recommended_price",
	"rating":            "rating",
	"number_of_reviews": "number_of_reviews",
	"views":             "views",
	"impressions":       "impressions",
	"is_in_stoc":        "is_in_stoc",
	"product_code":      "product_code",
	"online_mag":        "online_mag",
	"manufacturer":      "manufacturer",
	"category":          "category",
	"timestamp":         "timestamp",
	"createdAt":         "created_at",
	"updatedAt":         "updated_at",
}

// IsFilterableField reports whether field may be used with the generic field filter.
func IsFilterableField(field string) bool {
	_, ok := filterableFields[field]
	return ok
}

// ProductFilter holds the optional listing predicates. All set predicates must match.
type ProductFilter struct {
	// Name is split on whitespace; every token must occur in the product name.
	Name         string
	ProductCode  string
	Manufacturer string
	MinPrice     *float64
	MaxPrice     *float64
	// Field/Value is a substring match on one of the filterable fields.
	Field string
	Value string
}

// ProductSort orders a listing. Unknown fields leave the default order.
type ProductSort struct {
	Field      string
	Descending bool
}

// Page selects [Size*Number, Size*Number+Size) of the filtered set.
type Page struct {
	Size   int
	Number int
}

// Offset returns the index of the first row on the page.
func (p Page) Offset() int {
	return p.Size * p.Number
}

// ProductQuery is a complete listing request.
type ProductQuery struct {
	Filter ProductFilter
	Sort   ProductSort
	// Page is nil when the whole filtered set is requested.
	Page *Page
	// Extended includes the specifications map in results.
	Extended bool
}

// ProductPage is one page of a listing plus the size of the unpaginated set.
type ProductPage struct {
	Products []models.Product `json:"data"`
	Count    int              `json:"count"`
}

// likeEscaper makes user input literal inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// SortColumn returns the column for an accepted sort field.
func SortColumn(field string) (string, bool) {
	col, ok := sortableFields[field]
	return col, ok
}

// FilterColumn returns the column for a filterable field.
func FilterColumn(field string) (string, bool) {
	col, ok := filterableFields[field]
	return col, ok
}

// NameTokens splits a name filter into its search tokens.
func NameTokens(name string) []string {
	return strings.Fields(name)
}

// buildWhere renders the WHERE clause for f with positional arguments starting at $1.
func buildWhere(f ProductFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(format string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	for _, token := range NameTokens(f.Name) {
		add("name ILIKE $%d", containsPattern(token))
	}
	if f.ProductCode != "" {
		add("product_code = $%d", f.ProductCode)
	}
	if f.Manufacturer != "" {
		add("manufacturer ILIKE $%d", containsPattern(f.Manufacturer))
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if col, ok := filterableFields[f.Field]; ok && f.Value != "" {
		add(col+" ILIKE $%d", containsPattern(f.Value))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// buildOrder renders the ORDER BY clause. id breaks ties so pages are stable.
func buildOrder(s ProductSort) string {
	col, ok := sortableFields[s.Field]
	if !ok {
		return "ORDER BY created_at ASC, id ASC"
	}
	dir := "ASC"
	if s.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", col, dir)
}
