package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mentora-api/internal/utils"
)

// AccessGrant gives monitoring access to specific accounts holding a role.
type AccessGrant struct {
	Role   string
	Emails []string
}

// MonitoringAccessConfig lists who may read and resolve monitoring data: every holder of
// Roles, plus the explicit (role, email) pairs in Grants.
type MonitoringAccessConfig struct {
	Roles  []string
	Grants []AccessGrant
}

// MonitoringAccessGate decides whether an identity may view or resolve monitoring data.
type MonitoringAccessGate struct {
	roles  map[string]struct{}
	grants map[string]map[string]struct{}
}

// NewMonitoringAccessGate builds the gate from configuration.
func NewMonitoringAccessGate(cfg MonitoringAccessConfig) *MonitoringAccessGate {
	gate := &MonitoringAccessGate{
		roles:  make(map[string]struct{}, len(cfg.Roles)),
		grants: make(map[string]map[string]struct{}, len(cfg.Grants)),
	}
	for _, role := range cfg.Roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			gate.roles[normalized] = struct{}{}
		}
	}
	for _, grant := range cfg.Grants {
		role := strings.ToLower(strings.TrimSpace(grant.Role))
		if role == "" {
			continue
		}
		for _, email := range grant.Emails {
			normalized := strings.ToLower(strings.TrimSpace(email))
			if normalized == "" {
				continue
			}
			if gate.grants[role] == nil {
				gate.grants[role] = make(map[string]struct{})
			}
			gate.grants[role][normalized] = struct{}{}
		}
	}
	return gate
}

// IsAuthorized reports whether the identity holds a full-access role or an explicit grant.
func (g *MonitoringAccessGate) IsAuthorized(identity *Identity) bool {
	if g == nil || identity == nil || identity.ID == 0 {
		return false
	}

	role := strings.ToLower(strings.TrimSpace(identity.Role))
	if role == "" {
		return false
	}
	if _, ok := g.roles[role]; ok {
		return true
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return false
	}
	_, ok := g.grants[role][email]
	return ok
}

// RequireMonitoringAccess rejects requests whose identity is missing (401) or not allowed by the gate (403).
func RequireMonitoringAccess(gate *MonitoringAccessGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !gate.IsAuthorized(&identity) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
