// internal/session/token.go
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// tokenClaims is the payload embedded in the session token: subject account
// id, role, and expiry. The token is signed with the CSRF token as a
// symmetric secret, which makes it an opaque capability artifact, not an
// access-control mechanism; any real authorization boundary lives behind the
// remote backend.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// newCSRFToken returns a fresh random CSRF token.
func newCSRFToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// signToken issues an HS256 session token for the account.
func signToken(accountID string, role string, secret string, expiresAt time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// decodeClaims extracts the claims of a structured (three-segment) token
// without verifying the signature, mirroring what a client can check
// locally. structured reports whether the token has three segments; a
// structured token whose payload cannot be decoded yields (nil, true).
func decodeClaims(token string) (claims *tokenClaims, structured bool) {
	if strings.Count(token, ".") != 2 {
		return nil, false
	}
	var decoded tokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &decoded); err != nil {
		return nil, true
	}
	return &decoded, true
}
