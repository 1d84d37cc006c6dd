package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lakay-market/storefront/internal/auth"
	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/catalog"
	"github.com/lakay-market/storefront/internal/checkout"
	"github.com/lakay-market/storefront/internal/config"
	"github.com/lakay-market/storefront/internal/funding"
	"github.com/lakay-market/storefront/internal/gateway"
	"github.com/lakay-market/storefront/internal/identity"
	"github.com/lakay-market/storefront/internal/ledger"
	"github.com/lakay-market/storefront/internal/loyalty"
	"github.com/lakay-market/storefront/internal/membership"
	"github.com/lakay-market/storefront/internal/metrics"
	"github.com/lakay-market/storefront/internal/middleware"
	"github.com/lakay-market/storefront/internal/notification"
	"github.com/lakay-market/storefront/internal/order"
	"github.com/lakay-market/storefront/internal/payments"
	"github.com/lakay-market/storefront/internal/pricing"
	"github.com/lakay-market/storefront/internal/wallet"
)

const loginAttemptsPerMinute = 5

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// HTTPClient is used for gateway and messaging calls; nil means a default client.
	HTTPClient *http.Client
}

// backends holds the storage implementations chosen for the environment.
type backends struct {
	ledger  ledger.Ledger
	users   identity.Repository
	wallets wallet.Repository
	offers  catalog.Repository
	carts   cart.Repository
	orders  order.Repository
}

// newBackends uses Postgres and Redis when connected and in-memory stores otherwise.
func newBackends(d Deps) backends {
	var b backends
	if d.DB != nil {
		b.ledger = ledger.NewPostgresLedger(d.DB)
		b.users = identity.NewPostgresRepository(d.DB)
		b.wallets = wallet.NewPostgresRepository(d.DB)
		b.offers = catalog.NewPostgresRepository(d.DB)
		b.orders = order.NewPostgresRepository(d.DB)
	} else {
		b.ledger = ledger.NewInMemory()
		b.users = identity.NewMemoryRepository()
		b.wallets = wallet.NewMemoryRepository()
		b.offers = catalog.NewMemoryRepository()
		b.orders = order.NewMemoryRepository()
	}
	if d.Cache != nil {
		b.carts = cart.NewRedisRepository(d.Cache, d.Cfg.CartTTL)
	} else {
		b.carts = cart.NewMemoryRepository()
	}
	return b
}

// redirectGateways builds the mobile-money clients that have credentials configured.
func redirectGateways(cfg config.Config, client *http.Client) []gateway.RedirectGateway {
	var gws []gateway.RedirectGateway
	if cfg.MonCash.Enabled() {
		gws = append(gws, gateway.NewMonCash(cfg.MonCash, cfg.GatewayRPS, client))
	}
	if cfg.NatCash.Enabled() {
		gws = append(gws, gateway.NewNatCash(cfg.NatCash, cfg.GatewayRPS, client))
	}
	return gws
}

func newNotifier(d Deps) notification.Notifier {
	if d.Cfg.MessagingAPIURL != "" {
		return notification.NewHTTPNotifier(d.Cfg.MessagingAPIURL, d.Cfg.MessagingAPIToken, d.HTTPClient)
	}
	return notification.NewLoggerNotifier(d.Logger)
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !config.IsDev(d.Cfg.Env) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	app.Get("/metrics", d.Metrics.Handler())

	ctx := context.Background()
	b := newBackends(d)
	if err := ledger.EnsureSystemAccounts(ctx, b.ledger); err != nil {
		return fmt.Errorf("ensure system accounts: %w", err)
	}

	notifier := newNotifier(d)
	identitySvc := identity.NewService(b.users)
	authSvc := auth.NewService(d.Cfg, b.users)
	walletSvc := wallet.NewService(b.wallets, b.ledger)
	catalogSvc := catalog.NewService(b.offers, d.Cfg.Pricing.Currency)
	cartSvc := cart.NewService(b.carts, catalogSvc)
	loyaltySvc := loyalty.NewService(b.ledger, d.Metrics, d.Logger)
	dispatcher := payments.NewDispatcher(
		gateway.StaticCardProcessor{},
		walletSvc,
		redirectGateways(d.Cfg, d.HTTPClient),
		payments.RetryPolicy{MaxRetries: d.Cfg.PaymentMaxRetries, Initial: d.Cfg.PaymentRetryInitial},
		d.Metrics,
		d.Logger,
	)
	checkoutSvc := checkout.NewService(checkout.Dependencies{
		Carts:         cartSvc,
		Pricing:       pricing.NewCalculator(d.Cfg.Pricing),
		Users:         identitySvc,
		Loyalty:       loyaltySvc,
		Payments:      dispatcher,
		Orders:        b.orders,
		Stock:         catalogSvc,
		Notifier:      notifier,
		Metrics:       d.Metrics,
		Logger:        d.Logger,
		PublicBaseURL: d.Cfg.PublicBaseURL,
	})
	fundingSvc, err := funding.NewService(ctx, b.ledger, walletSvc, gateway.StaticCardProcessor{}, identitySvc, notifier, d.Logger)
	if err != nil {
		return err
	}
	membershipSvc := membership.NewService(
		membership.Plan{Fee: d.Cfg.UnionPlusFee, Period: d.Cfg.UnionPlusPeriod},
		identitySvc, walletSvc, notifier, d.Logger,
	)

	RegisterHealthRoutes(app, d, dispatcher)

	idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	jwtmw := middleware.JWTAuth(authSvc)
	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, authSvc, walletSvc, d.Logger), identitySvc, middleware.LoginRateLimit(d.Cache, loginAttemptsPerMinute), jwtmw)
	checkoutHandler := checkout.NewHandler(checkoutSvc)
	RegisterCatalogRoutes(api, catalog.NewHandler(catalogSvc), jwtmw)
	RegisterPaymentRoutes(api, payments.NewHandler(dispatcher), checkoutHandler)

	// Protected routes
	protected := api.Group("", jwtmw)
	RegisterCartRoutes(protected, cart.NewHandler(cartSvc), checkoutHandler)
	RegisterCheckoutRoutes(protected, checkoutHandler, idem)
	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc), funding.NewHandler(fundingSvc), idem)
	RegisterLoyaltyRoutes(protected, loyalty.NewHandler(loyaltySvc), membership.NewHandler(membershipSvc), idem)

	return nil
}
