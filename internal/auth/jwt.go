// Package auth implements credentials, tokens, cookies, sessions and the
// authentication strategies behind the /api/auth endpoints.
//
// TOKEN MODEL:
// Two TokenService instances exist at runtime, one per token kind:
//
//	access  → signed with JWT_SECRET,         lives 15 minutes
//	refresh → signed with JWT_REFRESH_SECRET, lives 7 days
//
// Distinct secrets mean an access token never verifies as a refresh token and
// vice versa, even though both carry the same {id, nickname} payload.
//
// Tokens are never stored server-side. Logging out only clears cookies, so a
// stolen token stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/chat-auth/internal/model"
)

const (
	issuer = "chat-auth"

	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService signs and verifies one kind of JWT.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// The secret must be at least 16 characters.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of tokens issued by this service.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Claims is the JWT payload. "id" is the user-id (email), not the record ID.
type Claims struct {
	UserID   string `json:"id"`
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

// Identity returns the identity the token was issued for.
func (c *Claims) Identity() model.Identity {
	return model.Identity{ID: c.UserID, Nickname: c.Nickname}
}

// Generate signs a token for the identity and returns it with its expiry.
// The expiry is truncated to whole seconds, matching the "exp" claim.
func (s *TokenService) Generate(id model.Identity) (string, time.Time, error) {
	now := s.now().Truncate(time.Second)
	exp := now.Add(s.ttl)

	c := Claims{
		UserID:   id.ID,
		Nickname: id.Nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, exp, nil
}

// Validate parses and verifies a token and returns its claims.
//
// Rejected: wrong signature or secret, algorithm other than HS256, wrong
// issuer, missing or past expiry, or an empty "id" claim.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.UserID == "" {
		return nil, fmt.Errorf("%w: token has no id", ErrTokenInvalid)
	}
	return c, nil
}
