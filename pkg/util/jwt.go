package util

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes carried by tokens. Recipients read their own feed; producers may
// originate notifications for anyone. Token issuance lives in the auth
// service; this package only validates.
const (
	ScopeRecipient = "recipient"
	ScopeProducer  = "producer"
)

// Identity is what a validated token resolves to.
type Identity struct {
	RecipientID string
	Scope       string
}

// GenerateJWT creates a token for a recipient identity. Used by tests and
// local tooling; production tokens come from the auth service.
func GenerateJWT(recipientID, scope, secret string) (string, error) {
	claims := jwt.MapClaims{
		"recipient_id": recipientID,
		"scope":        scope,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates a token and extracts the identity it carries.
func ParseJWT(tokenStr, secret string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}

	if !token.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, jwt.ErrTokenMalformed
	}

	recipientID, ok := claims["recipient_id"].(string)
	if !ok || recipientID == "" {
		return Identity{}, jwt.ErrTokenMalformed
	}

	scope, _ := claims["scope"].(string)
	if scope == "" {
		scope = ScopeRecipient
	}

	return Identity{RecipientID: recipientID, Scope: scope}, nil
}

// ExtractToken pulls the bearer token from an Authorization header, falling
// back to the token query parameter (browser WebSocket clients cannot set
// headers).
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth != "" {
		parts := strings.Split(auth, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	return r.URL.Query().Get("token")
}
