package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier checks HS256 tokens issued by the auth collaborator. The token
// payload carries the user id under "id"; this service never issues
// credentials itself outside of tests.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses the token and returns the authenticated user id.
func (v *Verifier) Verify(token string) (int, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return 0, ErrInvalidToken
	}
	return int(id), nil
}

// Sign issues a token for the given user. Used by tests and local tooling.
func (v *Verifier) Sign(userID int, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}
