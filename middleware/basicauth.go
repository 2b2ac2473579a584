package middleware

import (
	"crypto/subtle"

	"github.com/beladevo/redirector/config"
	"github.com/beladevo/redirector/types"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// DashboardAuth guards the dashboard page and API with HTTP Basic auth when
// dashboard_auth is configured. Without configuration it is a no-op.
func DashboardAuth(cfg *config.Config) fiber.Handler {
	if !cfg.AuthEnabled() {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	user := []byte(cfg.AuthUser())
	pass := []byte(cfg.AuthPassword())

	return basicauth.New(basicauth.Config{
		Realm: "Restricted",
		Authorizer: func(u, p string) bool {
			// Constant-time compare; both halves always run.
			userOK := subtle.ConstantTimeCompare([]byte(u), user) == 1
			passOK := subtle.ConstantTimeCompare([]byte(p), pass) == 1
			return userOK && passOK
		},
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Restricted"`)
			return c.Status(fiber.StatusUnauthorized).
				JSON(types.ErrorResponse{Error: "Missing or invalid credentials"})
		},
	})
}
