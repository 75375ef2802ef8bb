// Package hubtoken issues and verifies the HS256 bearer tokens exchanged
// with the hub when a shared secret is configured.
package hubtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const bearerPrefix = "Bearer "

// DefaultTTL is the validity of an issued token.
var DefaultTTL = time.Minute

var (
	// ErrMissingToken is returned if the Authorization header carries no bearer
	// token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned if the token is malformed, expired or not
	// signed with the shared secret.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// AuthorizationHeader returns the value of an Authorization header carrying a
// fresh token signed with secret on behalf of issuer.
func AuthorizationHeader(secret, issuer string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Issuer:    issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(DefaultTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s", bearerPrefix, signed), nil
}

// VerifyAuthorizationHeader checks that the given Authorization header value
// carries a valid token signed with secret.
func VerifyAuthorizationHeader(secret, header string) error {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ErrMissingToken
	}
	tokenString := strings.TrimPrefix(header, bearerPrefix)

	token, err := jwt.ParseWithClaims(
		tokenString, &jwt.StandardClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
