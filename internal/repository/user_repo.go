package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

const userColumns = `id, email, password_hash, token, token_issued_at, type, saved_products, recent_products, created_at, updated_at`

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Saved and recent lists are mutated with single conditional UPDATE
// statements so concurrent requests for one user never overwrite each other.
// A statement whose precondition does not hold matches no row and surfaces
// as sql.ErrNoRows.
const (
	addSavedQuery = `
        UPDATE users
        SET saved_products = saved_products || jsonb_build_array(
                jsonb_build_object('product_code', $2::text, 'email_notification', false)),
            updated_at = NOW()
        WHERE id = $1
          AND NOT saved_products @> jsonb_build_array(jsonb_build_object('product_code', $2::text))
        RETURNING saved_products`

	removeSavedQuery = `
        UPDATE users
        SET saved_products = (
                SELECT COALESCE(jsonb_agg(elem ORDER BY pos), '[]'::jsonb)
                FROM jsonb_array_elements(saved_products) WITH ORDINALITY AS t(elem, pos)
                WHERE elem->>'product_code' <> $2),
            updated_at = NOW()
        WHERE id = $1
          AND saved_products @> jsonb_build_array(jsonb_build_object('product_code', $2::text))
        RETURNING saved_products`

	setSavedNotificationQuery = `
        UPDATE users
        SET saved_products = (
                SELECT jsonb_agg(
                    CASE WHEN elem->>'product_code' = $2
                         THEN jsonb_set(elem, '{email_notification}', to_jsonb($3::boolean))
                         ELSE elem END
                    ORDER BY pos)
                FROM jsonb_array_elements(saved_products) WITH ORDINALITY AS t(elem, pos)),
            updated_at = NOW()
        WHERE id = $1
          AND saved_products @> jsonb_build_array(jsonb_build_object('product_code', $2::text))
        RETURNING saved_products`

	touchRecentQuery = `
        UPDATE users
        SET recent_products = (
                SELECT COALESCE(jsonb_agg(kept.elem ORDER BY kept.pos), '[]'::jsonb)
                FROM (
                    SELECT jsonb_build_object('product_code', $2::text) AS elem, 0::bigint AS pos
                    UNION ALL
                    SELECT elem, pos
                    FROM jsonb_array_elements(recent_products) WITH ORDINALITY AS t(elem, pos)
                    WHERE elem->>'product_code' <> $2
                    ORDER BY pos
                    LIMIT $3
                ) AS kept),
            updated_at = NOW()
        WHERE id = $1
        RETURNING recent_products`

	removeRecentQuery = `
        UPDATE users
        SET recent_products = (
                SELECT COALESCE(jsonb_agg(elem ORDER BY pos), '[]'::jsonb)
                FROM jsonb_array_elements(recent_products) WITH ORDINALITY AS t(elem, pos)
                WHERE elem->>'product_code' <> $2),
            updated_at = NOW()
        WHERE id = $1
          AND recent_products @> jsonb_build_array(jsonb_build_object('product_code', $2::text))
        RETURNING recent_products`
)

// UserRepository handles data access for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. It returns utils.ErrEmailExists when the email is taken.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	const q = `
        INSERT INTO users (email, password_hash, type)
        VALUES ($1, $2, $3)
        RETURNING id, saved_products, recent_products, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, q, u.Email, u.PasswordHash, u.Type).
		Scan(&u.ID, &u.SavedProducts, &u.RecentProducts, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return utils.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID returns a single user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a single user by email, compared case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// GetByToken returns the user currently holding token.
func (r *UserRepository) GetByToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE token = $1`, token)
}

func (r *UserRepository) getOne(ctx context.Context, q string, arg interface{}) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, q, arg); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetToken stores token as the user's only active session.
func (r *UserRepository) SetToken(ctx context.Context, userID, token string, issuedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET token = $2, token_issued_at = $3, updated_at = NOW() WHERE id = $1`,
		userID, token, issuedAt)
	return err
}

// ClearToken ends the session holding token. It reports whether a session was found.
func (r *UserRepository) ClearToken(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET token = NULL, token_issued_at = NULL, updated_at = NOW() WHERE token = $1`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every user ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListWithNotifications returns users with at least one saved product that has
// email notification enabled.
func (r *UserRepository) ListWithNotifications(ctx context.Context) ([]models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
        WHERE saved_products @> '[{"email_notification": true}]'::jsonb
        ORDER BY created_at, id`

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, q); err != nil {
		return nil, fmt.Errorf("list users with notifications: %w", err)
	}
	return users, nil
}

// AddSaved appends code to the saved list unless it is already present.
func (r *UserRepository) AddSaved(ctx context.Context, userID, code string) (models.SavedProducts, error) {
	var saved models.SavedProducts
	err := r.db.QueryRowxContext(ctx, addSavedQuery, userID, code).Scan(&saved)
	return saved, err
}

// RemoveSaved drops code from the saved list if present.
func (r *UserRepository) RemoveSaved(ctx context.Context, userID, code string) (models.SavedProducts, error) {
	var saved models.SavedProducts
	err := r.db.QueryRowxContext(ctx, removeSavedQuery, userID, code).Scan(&saved)
	return saved, err
}

// SetSavedNotification sets the email flag of the saved entry for code.
func (r *UserRepository) SetSavedNotification(ctx context.Context, userID, code string, enabled bool) (models.SavedProducts, error) {
	var saved models.SavedProducts
	err := r.db.QueryRowxContext(ctx, setSavedNotificationQuery, userID, code, enabled).Scan(&saved)
	return saved, err
}

// TouchRecent moves code to the front of the recent list and keeps at most limit entries.
func (r *UserRepository) TouchRecent(ctx context.Context, userID, code string, limit int) (models.RecentProducts, error) {
	var recent models.RecentProducts
	err := r.db.QueryRowxContext(ctx, touchRecentQuery, userID, code, limit).Scan(&recent)
	return recent, err
}

// RemoveRecent drops code from the recent list if present.
func (r *UserRepository) RemoveRecent(ctx context.Context, userID, code string) (models.RecentProducts, error) {
	var recent models.RecentProducts
	err := r.db.QueryRowxContext(ctx, removeRecentQuery, userID, code).Scan(&recent)
	return recent, err
}

// ClearRecent empties the recent list.
func (r *UserRepository) ClearRecent(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET recent_products = '[]'::jsonb, updated_at = NOW() WHERE id = $1`, userID)
	return err
}
