package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/pricewatch_api/internal/auth"
	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

// AuthService registers users and manages their sessions.
type AuthService struct {
	users  UserStore
	issuer *auth.Issuer
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users UserStore, issuer *auth.Issuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued session.
type LoginResponse struct {
	Token     string          `json:"token"`
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Type      models.UserType `json:"type"`
	IssuedAt  time.Time       `json:"issuedAt"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a regular user account.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	return s.create(ctx, req.Email, req.Password, models.UserTypeUser)
}

// CreateAdmin creates an admin account.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password string) (*models.User, error) {
	return s.create(ctx, email, password, models.UserTypeAdmin)
}

func (s *AuthService) create(ctx context.Context, email, password string, userType models.UserType) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", utils.ErrBadRequest)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Type:         userType,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Str("type", string(userType)).Msg("User registered")
	return user, nil
}

// Login verifies credentials and stores a fresh session on the user,
// replacing any previous one.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	email := NormalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug().Str("email", email).Msg("Login for unknown email")
		return nil, utils.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Debug().Str("user_id", user.ID).Msg("Password verification failed")
		return nil, utils.ErrInvalidCredentials
	}

	session, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	if err := s.users.SetToken(ctx, user.ID, session.Token, session.IssuedAt); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("Login successful")
	return &LoginResponse{
		Token:     session.Token,
		ID:        user.ID,
		Email:     user.Email,
		Type:      user.Type,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout ends the session holding token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	ok, err := s.users.ClearToken(ctx, token)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: invalid token", utils.ErrUnauthenticated)
	}
	return nil
}

// CleanCredential strips an optional "Bearer " prefix from an Authorization value.
func CleanCredential(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "Bearer ") {
		raw = raw[7:]
	}
	return strings.TrimSpace(raw)
}

// Authenticate resolves a raw Authorization value to the user currently
// holding that session.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	token := CleanCredential(raw)
	if token == "" {
		return nil, fmt.Errorf("%w: missing credential", utils.ErrUnauthenticated)
	}

	session, err := s.issuer.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrUnauthenticated, err)
	}

	user, err := s.users.GetByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session is not active", utils.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by token: %w", err)
	}
	if user.ID != session.UserID {
		return nil, fmt.Errorf("%w: session owner mismatch", utils.ErrUnauthenticated)
	}
	return user, nil
}
