package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID is the subject the token was issued for.
func (c *Claims) UserID() string { return c.Subject }

// Verifier is what the HTTP middleware and the socket handshake need.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (m *JWTManager) Issue(userID, role string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify distinguishes an expired token from any other failure so clients can
// choose between re-login and re-sending the credential.
func (m *JWTManager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, apperrors.ErrAuthMissing
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperrors.ErrAuthExpired
	case err != nil, !token.Valid:
		return nil, apperrors.ErrAuthInvalid
	case claims.Subject == "":
		return nil, apperrors.ErrAuthInvalid
	}
	return claims, nil
}

// ParseBearerToken extracts the token from an "Authorization: Bearer <t>" header.
func ParseBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperrors.ErrAuthMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.ErrAuthInvalid
	}
	return strings.TrimSpace(parts[1]), nil
}

// TokenFromRequest prefers the Authorization header and falls back to a token
// query parameter, which browsers need for websocket handshakes and <img> tags.
func TokenFromRequest(header, query string) (string, error) {
	if strings.TrimSpace(header) != "" {
		return ParseBearerToken(header)
	}
	if query != "" {
		return query, nil
	}
	return "", apperrors.ErrAuthMissing
}
