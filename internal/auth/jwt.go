// Package auth validates bearer tokens issued by the identity service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the claims carried by identity tokens. The subject is the
// user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTValidator validates HMAC-signed JWTs and yields their subject.
type JWTValidator struct {
	secret []byte
	now    func() time.Time
}

func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), now: time.Now}
}

// Validate parses token and returns its subject email.
func (v *JWTValidator) Validate(_ context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// BearerToken strips an optional "Bearer " prefix and surrounding space.
func BearerToken(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 6 && strings.EqualFold(value[:6], "Bearer") && (len(value) == 6 || value[6] == ' ') {
		value = strings.TrimSpace(value[6:])
	}
	return value
}
