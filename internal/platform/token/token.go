// Package token issues and verifies the signed identity claims that every
// authenticated request carries. Credentials are HS256 JWTs signed with a
// symmetric secret shared only within the service cluster; there is no
// server-side session state and no implicit refresh.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid indicates a credential whose signature, structure, or
	// claims failed validation.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates a well-formed, correctly signed credential
	// past its expiry. Callers must re-issue; there is no refresh path.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed payload identifying a principal. The structure is
// fixed: a credential missing any required field fails verification rather
// than surfacing a partially-populated identity.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the subject the credential was issued for.
func (c *Claims) UserID() string { return c.Subject }

// Service signs and verifies credentials. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	secret []byte
	issuer string
}

// NewService creates a token service. The secret must be non-empty; the
// issuer is embedded in every credential and checked on verification.
func NewService(secret []byte, issuer string) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("token: issuer is required")
	}
	return &Service{secret: secret, issuer: issuer}, nil
}

// Issue signs a credential for the given user. issued_at is now and
// expires_at is now + ttl; apart from those two fields the output is
// deterministic for identical inputs.
func (s *Service) Issue(userID, role, email string, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("token: userID is required")
	}
	if strings.TrimSpace(role) == "" {
		return "", errors.New("token: role is required")
	}
	if ttl <= 0 {
		return "", errors.New("token: ttl must be greater than zero")
	}

	now := time.Now().UTC()
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the credential's signature and claims and returns the
// embedded Claims. Expiry is reported as ErrTokenExpired; every other
// failure (bad signature, foreign issuer, malformed or incomplete payload,
// unexpected algorithm) is ErrTokenInvalid.
func (s *Service) Verify(credential string) (*Claims, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrTokenInvalid
	}

	parsed, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if err := s.validateClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) validateClaims(claims *Claims) error {
	if claims.Issuer != s.issuer {
		return ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Role) == "" {
		return ErrTokenInvalid
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return ErrTokenInvalid
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return ErrTokenInvalid
	}
	now := time.Now().UTC()
	// Allow a small clock skew when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return ErrTokenInvalid
	}
	if now.After(claims.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	return nil
}
