package authorization

import (
	"errors"
	"os"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
)

const (
	identityKey    = "user_id"
	defaultTimeout = time.Hour
)

// AuthenticatedUser is the identity recovered from a bearer token. Tokens
// are issued elsewhere; this service only validates them and reads the
// stable user identifier and role claims.
type AuthenticatedUser struct {
	ID    string
	Roles []string
}

// Module wraps the JWT middleware validating inbound tokens.
type Module struct {
	jwtMiddleware *jwt.GinJWTMiddleware
}

// NewModuleFromEnv builds the token validator from JWT_SECRET.
func NewModuleFromEnv() (*Module, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return nil, errors.New("authorization: JWT_SECRET environment variable is required")
	}

	middleware, err := jwt.New(&jwt.GinJWTMiddleware{
		Realm:       "holocard",
		Key:         []byte(secret),
		Timeout:     defaultTimeout,
		MaxRefresh:  24 * time.Hour,
		IdentityKey: identityKey,
	})
	if err != nil {
		return nil, err
	}

	return &Module{jwtMiddleware: middleware}, nil
}

func extractRoles(claims jwt.MapClaims) []string {
	if claims == nil {
		return []string{}
	}

	switch raw := claims["roles"].(type) {
	case []string:
		return append([]string{}, raw...)
	case []interface{}:
		roles := make([]string, 0, len(raw))
		for _, role := range raw {
			if name, ok := role.(string); ok {
				roles = append(roles, name)
			}
		}
		return roles
	default:
		return []string{}
	}
}

func extractUserID(claims jwt.MapClaims) string {
	if claims == nil {
		return ""
	}
	switch v := claims[identityKey].(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}
