package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

func TestTopViewsCache_Key(t *testing.T) {
	c := NewTopViewsCache(nil, 0)
	assert.Equal(t, "products:top:desc:10:true", c.key(false, 10, true))
	assert.Equal(t, "products:top:asc:3:false", c.key(true, 3, false))
}

func TestTopViewsCache_DisabledWithZeroTTL(t *testing.T) {
	c := NewTopViewsCache(nil, 0)

	_, err := c.Get(context.Background(), false, 10, true)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(context.Background(), false, 10, true, []models.Product{{ID: "p1"}}))
}
