package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// ServiceTokenSigner mints short-lived HS256 bearer tokens for calls to the
// Identity Provider admin API.
type ServiceTokenSigner struct {
	Secret []byte
	Issuer string
	Role   string
	TTL    time.Duration
}

type serviceClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s ServiceTokenSigner) Sign() (string, error) {
	ttl := s.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	role := s.Role
	if role == "" {
		role = "service"
	}
	now := time.Now()
	claims := serviceClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// Parse validates a service token and returns its role claim. Used by tests
// and by local stub providers.
func (s ServiceTokenSigner) Parse(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &serviceClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.Secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*serviceClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Role, nil
}
