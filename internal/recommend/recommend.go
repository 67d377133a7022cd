// Package recommend suggests products priced like the ones a user viewed
// recently, grouped by manufacturer.
package recommend

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/repository"
)

const (
	// DefaultBudget is the number of recommendations returned.
	DefaultBudget = 30

	bandLow   = 0.85
	bandHigh  = 1.15
	overFetch = 2
)

// Lister is the catalog listing operation recommendations are drawn from.
type Lister interface {
	List(ctx context.Context, q repository.ProductQuery) (*repository.ProductPage, error)
}

// Bucket groups recent products sharing a manufacturer.
type Bucket struct {
	Key   string
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// Engine produces recommendations from a recent product list.
type Engine struct {
	lister Lister
	budget int

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an Engine. A nil rng uses a randomly seeded source.
func New(lister Lister, budget int, rng *rand.Rand) *Engine {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{lister: lister, budget: budget, rng: rng}
}

// Buckets groups products by manufacturer and computes each group's price
// band. Products without a manufacturer are left out. Buckets are sorted by key.
func Buckets(products []models.Product) []Bucket {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, p := range products {
		key := strings.TrimSpace(p.Manufacturer)
		if key == "" {
			continue
		}
		sums[key] += p.Price
		counts[key]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for key, n := range counts {
		mean := sums[key] / float64(n)
		buckets = append(buckets, Bucket{
			Key:   key,
			Count: n,
			Mean:  mean,
			Min:   mean * bandLow,
			Max:   mean * bandHigh,
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}

// Allocate splits budget across buckets in proportion to each bucket's share
// of total, rounded to the nearest integer. The sum may differ from budget.
func Allocate(buckets []Bucket, total, budget int) []int {
	alloc := make([]int, len(buckets))
	if total <= 0 {
		return alloc
	}
	for i, b := range buckets {
		alloc[i] = int(math.Round(float64(budget) * float64(b.Count) / float64(total)))
	}
	return alloc
}

// Recommend returns up to the engine budget of products similar in
// manufacturer and price to recent, excluding recent itself, in random order.
func (e *Engine) Recommend(ctx context.Context, recent []models.Product) ([]models.Product, error) {
	result := []models.Product{}
	if len(recent) == 0 {
		return result, nil
	}

	seen := make(map[string]bool, len(recent))
	for _, p := range recent {
		seen[p.ID] = true
	}

	buckets := Buckets(recent)
	alloc := Allocate(buckets, len(recent), e.budget)
	for i, b := range buckets {
		if alloc[i] <= 0 || b.Mean <= 0 {
			continue
		}
		minPrice, maxPrice := b.Min, b.Max
		page, err := e.lister.List(ctx, repository.ProductQuery{
			Filter: repository.ProductFilter{
				Manufacturer: b.Key,
				MinPrice:     &minPrice,
				MaxPrice:     &maxPrice,
			},
			Page: &repository.Page{Size: alloc[i] * overFetch},
		})
		if err != nil {
			return nil, fmt.Errorf("list candidates for %q: %w", b.Key, err)
		}
		for _, p := range page.Products {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			result = append(result, p)
		}
	}

	e.mu.Lock()
	e.rng.Shuffle(len(result), func(i, j int) { result[i], result[j] = result[j], result[i] })
	e.mu.Unlock()
	if len(result) > e.budget {
		result = result[:e.budget]
	}
	return result, nil
}
