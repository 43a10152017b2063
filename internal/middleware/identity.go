package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals populated by the JWT and correlation middlewares.
const (
	LocalUserID    = "user_id"
	LocalUserRole  = "user_role"
	LocalUserEmail = "user_email"

	LocalCorrelationID = "correlation_id"
)

// Platform roles.
const (
	RoleAdmin  = "admin"
	RoleMentor = "mentor"
	RoleMentee = "mentee"
)

// Identity is the authenticated caller supplied by the upstream auth layer.
type Identity struct {
	ID    uint
	Role  string
	Email string
}

// IdentityFromContext reads the caller identity from fiber locals. It reports false when
// the user id or role is missing or malformed.
func IdentityFromContext(c *fiber.Ctx) (Identity, bool) {
	if c == nil {
		return Identity{}, false
	}

	var id uint
	switch v := c.Locals(LocalUserID).(type) {
	case uint:
		id = v
	case int:
		if v > 0 {
			id = uint(v)
		}
	}

	role := normalizeRoleValue(c.Locals(LocalUserRole))
	if id == 0 || role == "" {
		return Identity{}, false
	}

	email, _ := c.Locals(LocalUserEmail).(string)
	return Identity{
		ID:    id,
		Role:  role,
		Email: strings.ToLower(strings.TrimSpace(email)),
	}, true
}
