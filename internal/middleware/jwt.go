package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/auth"
)

const localTokenVersion = "token_version"

// JWTAuth returns a middleware that validates bearer access tokens through the
// auth service, which also rejects tokens whose version was revoked.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Verify(c.UserContext(), strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}

		c.Locals(auth.LocalUserID, claims.Subject)
		c.Locals(localTokenVersion, claims.Version)
		return c.Next()
	}
}
