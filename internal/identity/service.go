package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/finlitworks/finlit-platform/internal/identity/jwt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// TokenPair bundles access and refresh tokens for a login response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserStore is the persistence surface the service needs (implemented by
// UserRepository).
type UserStore interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// Service handles local accounts and token issuance.
type Service struct {
	users  UserStore
	tokens *jwt.Manager
	logger zerolog.Logger
}

type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
}

func NewService(users UserStore, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: jwt.NewManager(opts.TokenConfig),
		logger: logger.With().Str("component", "identity_service").Logger(),
	}
}

// Register creates a local account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	if displayName == "" {
		displayName = email
	}
	user, err := s.users.Create(ctx, &User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Provider:     "local",
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, pair, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if user.PasswordHash == "" {
		// OAuth-only account
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(user)
}

// ValidateToken checks an access token and returns its claims.
func (s *Service) ValidateToken(token string) (*jwt.Claims, error) {
	return s.tokens.ValidateAccessToken(token)
}

// IssueTokens creates a pair for an already-authenticated user (OAuth path).
func (s *Service) IssueTokens(user *User) (*TokenPair, error) {
	return s.generateTokenPair(user)
}

func (s *Service) generateTokenPair(user *User) (*TokenPair, error) {
	sub := jwt.Subject{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}

	access, err := s.tokens.GenerateAccessToken(sub)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(sub)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
