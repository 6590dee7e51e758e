package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
)

// User search bounds.
const (
	MinUserSearchQueryLen = 2
	UserSearchLimit       = 10
)

// UserService handles registration, login, and the member-picker user
// search. Token issuance and password hashing are delegated to the auth
// collaborators; this service owns only the orchestration.
type UserService struct {
	userStore  store.UserStore
	hasher     auth.PasswordHasher
	verifier   auth.PasswordVerifier
	jwtService auth.JWTService
}

// NewUserService creates a UserService.
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	jwtService auth.JWTService,
) *UserService {
	return &UserService{
		userStore:  userStore,
		hasher:     hasher,
		verifier:   verifier,
		jwtService: jwtService,
	}
}

// Register creates a user account and returns the user plus a fresh
// session token. A duplicate email is rejected with store.ErrEmailExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	user, err := domain.NewUser(name, email, password)
	if err != nil {
		return nil, "", err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := s.userStore.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.jwtService.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	log := logger.FromContextOrDefault(ctx, slog.Default())
	log.Info("user registered", slog.String("user_id", user.ID.String()))

	return user, token, nil
}

// Login verifies credentials and returns the user plus a fresh session
// token. Unknown email and wrong password both map to
// ErrInvalidCredentials so callers cannot probe for registered addresses.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.userStore.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

// SearchUsers performs a case-insensitive partial match on name and email.
// Queries shorter than two characters are rejected; at most ten summaries
// are returned.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]domain.UserSummary, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinUserSearchQueryLen {
		return nil, ErrQueryTooShort
	}

	summaries, err := s.userStore.Search(ctx, query, UserSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return summaries, nil
}
