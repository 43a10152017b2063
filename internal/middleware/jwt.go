package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/mentora-api/internal/utils"
)

const bearerPrefix = "bearer "

// JWTProtected verifies HMAC-signed bearer tokens and places the caller identity
// (user id, role, email) on the request locals. Tokens without a usable user id are rejected.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(header[len(bearerPrefix):]), claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		identity, err := identityFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		c.Locals(LocalUserID, identity.ID)
		if identity.Role != "" {
			c.Locals(LocalUserRole, identity.Role)
		}
		if identity.Email != "" {
			c.Locals(LocalUserEmail, identity.Email)
		}

		return c.Next()
	}
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	var identity Identity
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if id, err := claimUserID(value); err == nil && id != 0 {
				identity.ID = id
				break
			}
		}
	}
	if identity.ID == 0 {
		return Identity{}, errors.New("token carries no user id")
	}

	for _, key := range []string{"role", "roles"} {
		if role := claimRole(claims[key]); role != "" {
			identity.Role = role
			break
		}
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = strings.ToLower(strings.TrimSpace(email))
	}
	return identity, nil
}

func claimUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 1 {
			return 0, fmt.Errorf("invalid user id %v", v)
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported user id type %T", value)
	}
}

// claimRole accepts either a single role string or a list, taking the first non-empty entry.
func claimRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if role := claimRole(item); role != "" {
				return role
			}
		}
	}
	return ""
}
