package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/payments"
)

const healthTimeout = 2 * time.Second

// RegisterHealthRoutes reports storage reachability and the payment methods
// checkout can offer. Backends running in memory are reported as such and
// never fail the check.
func RegisterHealthRoutes(app *fiber.App, d Deps, dispatcher *payments.Dispatcher) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		healthy := true
		check := func(configured bool, ping func(context.Context) error) string {
			if !configured {
				return "memory"
			}
			if err := ping(ctx); err != nil {
				healthy = false
				return err.Error()
			}
			return "ok"
		}
		storage := fiber.Map{
			"postgres": check(d.DB != nil, func(ctx context.Context) error { return d.DB.Ping(ctx) }),
			"redis":    check(d.Cache != nil, func(ctx context.Context) error { return d.Cache.Ping(ctx).Err() }),
		}

		status, overall := http.StatusOK, "ok"
		if !healthy {
			status, overall = http.StatusServiceUnavailable, "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":          overall,
			"environment":     d.Cfg.Env,
			"storage":         storage,
			"payment_methods": dispatcher.Methods(),
			"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
