package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func defaultGate() *MonitoringAccessGate {
	return NewMonitoringAccessGate(MonitoringAccessConfig{
		Roles:  []string{RoleAdmin},
		Grants: []AccessGrant{{Role: RoleMentor, Emails: []string{" Lead.Mentor@Mentora.io "}}},
	})
}

func TestMonitoringAccessGateTruthTable(t *testing.T) {
	gate := defaultGate()

	cases := []struct {
		name     string
		identity *Identity
		want     bool
	}{
		{name: "admin", identity: &Identity{ID: 1, Role: "admin"}, want: true},
		{name: "admin uppercase role", identity: &Identity{ID: 1, Role: "ADMIN"}, want: true},
		{name: "granted mentor", identity: &Identity{ID: 2, Role: "mentor", Email: "lead.mentor@mentora.io"}, want: true},
		{name: "granted mentor mixed case", identity: &Identity{ID: 2, Role: "mentor", Email: "LEAD.MENTOR@mentora.IO"}, want: true},
		{name: "other mentor", identity: &Identity{ID: 3, Role: "mentor", Email: "someone@mentora.io"}, want: false},
		{name: "mentor without email", identity: &Identity{ID: 3, Role: "mentor"}, want: false},
		{name: "mentee with granted email", identity: &Identity{ID: 4, Role: "mentee", Email: "lead.mentor@mentora.io"}, want: false},
		{name: "empty role", identity: &Identity{ID: 5, Email: "lead.mentor@mentora.io"}, want: false},
		{name: "zero id", identity: &Identity{Role: "admin"}, want: false},
		{name: "nil identity", identity: nil, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, gate.IsAuthorized(tc.identity))
		})
	}
}

func TestMonitoringAccessGateFailsClosed(t *testing.T) {
	var nilGate *MonitoringAccessGate
	require.False(t, nilGate.IsAuthorized(&Identity{ID: 1, Role: "admin"}))

	empty := NewMonitoringAccessGate(MonitoringAccessConfig{})
	require.False(t, empty.IsAuthorized(&Identity{ID: 1, Role: "admin"}))
	require.False(t, empty.IsAuthorized(&Identity{ID: 2, Role: "mentor", Email: "lead.mentor@mentora.io"}))
}

func TestRequireMonitoringAccess(t *testing.T) {
	gate := defaultGate()

	newApp := func(identity *Identity) *fiber.App {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			if identity != nil {
				c.Locals(LocalUserID, identity.ID)
				c.Locals(LocalUserRole, identity.Role)
				c.Locals(LocalUserEmail, identity.Email)
			}
			return c.Next()
		})
		app.Use(RequireMonitoringAccess(gate))
		app.Get("/monitored-users", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		return app
	}

	cases := []struct {
		name     string
		identity *Identity
		status   int
	}{
		{name: "anonymous", identity: nil, status: fiber.StatusUnauthorized},
		{name: "admin", identity: &Identity{ID: 1, Role: RoleAdmin}, status: fiber.StatusOK},
		{name: "granted mentor", identity: &Identity{ID: 2, Role: RoleMentor, Email: "lead.mentor@mentora.io"}, status: fiber.StatusOK},
		{name: "other mentor", identity: &Identity{ID: 3, Role: RoleMentor, Email: "other@mentora.io"}, status: fiber.StatusForbidden},
		{name: "mentee", identity: &Identity{ID: 4, Role: RoleMentee}, status: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/monitored-users", nil)
			resp, err := newApp(tc.identity).Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
