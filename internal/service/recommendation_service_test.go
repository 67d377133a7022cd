package service

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/pricewatch_api/internal/recommend"
)

func TestRecommendation_FromRecentList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	catalog := NewProductService(f.products, nil, nil)
	recent := NewRecentListService(f.users, f.products)
	engine := recommend.New(catalog, recommend.DefaultBudget, rand.New(rand.NewPCG(1, 2)))
	svc := NewRecommendationService(recent, engine)

	f.seed(t, "VIEWED", "shop", "Acme", 100)
	similar := f.seed(t, "SIMILAR", "shop", "Acme", 110)
	f.seed(t, "PRICEY", "shop", "Acme", 200)
	f.seed(t, "OTHER", "shop", "Globex", 100)

	user := f.register(t, "rec@example.com")
	out, err := svc.Recommend(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = recent.Touch(ctx, user, "VIEWED")
	require.NoError(t, err)

	out, err = svc.Recommend(ctx, f.reload(t, user))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, similar.ID, out[0].ID)
}
