// Package auth validates the bearer tokens presented to the API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the Stocker-specific JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// TokenService signs and validates HS256 access tokens. Tokens are normally
// issued by the identity provider sharing the secret; Issue exists for
// tooling and tests.
type TokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	exp := cfg.AccessTokenExpiration
	if exp <= 0 {
		exp = 15 * time.Minute
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: exp,
		now:        time.Now,
	}
}

// IssueInput describes the subject of a new token.
type IssueInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Username string
	Roles    []string
}

// Issue signs an access token. It returns the token and its expiry.
func (s *TokenService) Issue(in IssueInput) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID: in.TenantID.String(),
		UserID:   in.UserID.String(),
		Username: in.Username,
		Roles:    in.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses tokenString and checks signature, time window, issuer
// and the tenant and user claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if _, err := uuid.Parse(claims.TenantID); err != nil {
		return nil, ErrMissingTenantID
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

func (c *Claims) TenantUUID() uuid.UUID { return uuid.MustParse(c.TenantID) }
func (c *Claims) UserUUID() uuid.UUID   { return uuid.MustParse(c.UserID) }

// RemainingTTL is the time left until the token expires.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}
