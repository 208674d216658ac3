// Package token issues and verifies HS256 access tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const TypeAccess = "access"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims carries the owner identity resolved by the auth middleware.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type Manager struct {
	cfg Config
	now func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &Manager{cfg: cfg, now: time.Now}
}

// Issue signs an access token for the user and returns it with its expiry.
func (m *Manager) Issue(userID, email string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.cfg.TTL)
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies signature, expiry, issuer and token type.
func (m *Manager) Parse(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.cfg.Secret), nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" || claims.TokenType != TypeAccess {
		return nil, ErrInvalidToken
	}
	if m.cfg.Issuer != "" && !claims.VerifyIssuer(m.cfg.Issuer, true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
