package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurselink/nurselink/internal/platform/auth"
	"github.com/nurselink/nurselink/internal/platform/token"
)

type Service struct {
	users  UserDirectory
	tokens *token.Service
	ttl    time.Duration
}

func NewService(users UserDirectory, tokens *token.Service, ttl time.Duration) *Service {
	return &Service{users: users, tokens: tokens, ttl: ttl}
}

// LoginResult is the response body for a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Login checks the password for the given email and issues a credential.
// Unknown email, wrong password and deactivated account all return
// ErrInvalidCredentials; storage failures are returned as-is.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u.ID.String(), string(u.Role), u.Email, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &LoginResult{
		Token:     tok,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
		User:      u,
	}, nil
}

// CreateUser registers a new account. It backs the bootstrap CLI; there is
// no HTTP endpoint for user management.
func (s *Service) CreateUser(ctx context.Context, email, name, password string, role auth.Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email: %q", email)
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &User{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.FindByID(ctx, id)
}
