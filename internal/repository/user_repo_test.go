package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

func TestUserCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users \(email, password_hash, type\)`).
		WithArgs("a@b.c", "hash", models.UserTypeUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "saved_products", "recent_products", "created_at", "updated_at"}).
			AddRow("u1", []byte(`[]`), []byte(`[]`), now, now))

	u := &models.User{Email: "a@b.c", PasswordHash: "hash", Type: models.UserTypeUser}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, "u1", u.ID)
	assert.Empty(t, u.SavedProducts)
	assert.NotNil(t, u.RecentProducts)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: pgUniqueViolation})

	err := repo.Create(context.Background(), &models.User{Email: "a@b.c"})
	assert.ErrorIs(t, err, utils.ErrEmailExists)
}

func TestGetByEmail_CaseInsensitive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("A@B.C").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "A@B.C")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestClearToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET token = NULL`).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.ClearToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(`UPDATE users SET token = NULL`).
		WithArgs("stale").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.ClearToken(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddSaved(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)UPDATE users.*saved_products \|\| jsonb_build_array.*AND NOT saved_products @>`).
		WithArgs("u1", "PC-1").
		WillReturnRows(sqlmock.NewRows([]string{"saved_products"}).
			AddRow([]byte(`[{"product_code":"PC-1","email_notification":false}]`)))

	saved, err := repo.AddSaved(context.Background(), "u1", "PC-1")
	require.NoError(t, err)
	assert.Equal(t, models.SavedProducts{{ProductCode: "PC-1"}}, saved)
}

func TestAddSaved_AlreadyPresent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)UPDATE users.*AND NOT saved_products @>`).
		WithArgs("u1", "PC-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.AddSaved(context.Background(), "u1", "PC-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSetSavedNotification(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)jsonb_set\(elem, '\{email_notification\}', to_jsonb\(\$3::boolean\)\)`).
		WithArgs("u1", "PC-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"saved_products"}).
			AddRow([]byte(`[{"product_code":"PC-1","email_notification":true}]`)))

	saved, err := repo.SetSavedNotification(context.Background(), "u1", "PC-1", true)
	require.NoError(t, err)
	require.NotNil(t, saved.Find("PC-1"))
	assert.True(t, saved.Find("PC-1").EmailNotification)
}

func TestTouchRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)SET recent_products = .*LIMIT \$3`).
		WithArgs("u1", "B", models.MaxRecentProducts).
		WillReturnRows(sqlmock.NewRows([]string{"recent_products"}).
			AddRow([]byte(`[{"product_code":"B"},{"product_code":"A"}]`)))

	recent, err := repo.TouchRecent(context.Background(), "u1", "B", models.MaxRecentProducts)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, recent.Codes())
}

func TestRemoveRecent_NotPresent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)AND recent_products @>`).
		WithArgs("u1", "X").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.RemoveRecent(context.Background(), "u1", "X")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
