package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL matches the lifetime of the identity provider's ID tokens, which the
// gateway token carries for calls to the backend.
const TokenTTL = time.Hour

// Subject is the signed-in user a gateway token is issued for.
type Subject struct {
	UserID   string
	Email    string
	Name     string
	PhotoURL string
	Role     string
	// Upstream is the ID token forwarded to the backend as a bearer token.
	Upstream string
}

type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
	Role     string `json:"role"`
	Upstream string `json:"upstream"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, s Subject) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   s.UserID,
		Email:    s.Email,
		Name:     s.Name,
		PhotoURL: s.PhotoURL,
		Role:     s.Role,
		Upstream: s.Upstream,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Identity returns the user the claims were issued for.
func (c *Claims) Identity() Subject {
	return Subject{
		UserID:   c.UserID,
		Email:    c.Email,
		Name:     c.Name,
		PhotoURL: c.PhotoURL,
		Role:     c.Role,
		Upstream: c.Upstream,
	}
}
