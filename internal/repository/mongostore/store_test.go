package mongostore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

func TestProductStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get missing product", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.products", mtest.FirstBatch))

		_, err := store.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	mt.Run("get product fills empty lists", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.products", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "p1"},
			{Key: "product_code", Value: "PC"},
			{Key: "price", Value: 9.5},
		}))

		p, err := store.GetByID(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", p.ID)
		assert.NotNil(t, p.PriceHistory)
		assert.NotNil(t, p.Specifications)
	})

	mt.Run("increment returns new total", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{{Key: "_id", Value: "p1"}, {Key: "views", Value: int64(4)}}},
		})

		views, err := store.IncrementViews(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), views)
	})

	mt.Run("delete missing product", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		assert.ErrorIs(t, store.Delete(context.Background(), "p1"), sql.ErrNoRows)
	})
}

func TestUserStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate email", func(mt *mtest.T) {
		store := NewUserStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := store.Create(context.Background(), &models.User{Email: "a@b.c"})
		assert.ErrorIs(t, err, utils.ErrEmailExists)
	})

	mt.Run("create assigns id and empty lists", func(mt *mtest.T) {
		store := NewUserStore(mt.DB)
		store.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := &models.User{Email: "a@b.c", Type: models.UserTypeUser}
		require.NoError(t, store.Create(context.Background(), u))
		assert.NotEmpty(t, u.ID)
		assert.NotNil(t, u.SavedProducts)
		assert.NotNil(t, u.RecentProducts)
		assert.Equal(t, 2024, u.CreatedAt.Year())
	})

	mt.Run("add saved when already present", func(mt *mtest.T) {
		store := NewUserStore(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		_, err := store.AddSaved(context.Background(), "u1", "PC-1")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	mt.Run("touch recent returns list", func(mt *mtest.T) {
		store := NewUserStore(mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "_id", Value: "u1"},
				{Key: "recent_products", Value: bson.A{
					bson.D{{Key: "product_code", Value: "B"}},
					bson.D{{Key: "product_code", Value: "A"}},
				}},
			}},
		})

		recent, err := store.TouchRecent(context.Background(), "u1", "B", models.MaxRecentProducts)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A"}, recent.Codes())
	})

	mt.Run("clear token without session", func(mt *mtest.T) {
		store := NewUserStore(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		ok, err := store.ClearToken(context.Background(), "stale")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
