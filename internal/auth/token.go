package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"
)

// OperatorRole distinguishes what engine surfaces a caller may touch.
type OperatorRole string

const (
	RoleAdmin OperatorRole = "ADMIN"
	RoleAgent OperatorRole = "AGENT"
)

// Claims describes the JWT payload issued by the external auth service. The
// engine only verifies tokens; it never issues them.
type Claims struct {
	SubjectID string       `json:"sub"`
	Role      OperatorRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens against the shared secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// ParseToken validates and returns claims.
func (tv *TokenVerifier) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tv.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
