package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/auth"
	"github.com/lakay-market/storefront/internal/identity"
)

// RegisterAuthRoutes wires authentication and profile endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, ids *identity.Service, rateLimiter, jwtmw fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	group.Post("/login", rateLimiter, h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", jwtmw, h.Logout)

	r.Get("/me", jwtmw, func(c *fiber.Ctx) error {
		user, err := ids.Get(c.UserContext(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":          user.ID,
			"phone":            user.Phone,
			"name":             user.Name,
			"email":            user.Email,
			"union_plus_until": user.UnionPlusUntil,
			"created_at":       user.CreatedAt,
			"last_login":       user.LastLogin,
		})
	})
}
