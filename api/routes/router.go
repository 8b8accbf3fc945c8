package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies groups everything the HTTP surface needs.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Catalog  catalog.Service
	Cart     cart.Service
	Orders   orders.Service
	Payments payments.Service
	Users    users.Service
	Auth     auth.Service

	Sessions    session.AccessSessionChecker
	Idempotency redis.IdempotencyStore
	Limiter     middleware.FixedWindowLimiter

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Ready          map[string]controllers.Pinger
}

func NewRouter(d Dependencies) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, d.Ready, logg))
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	orderLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:   "orders",
		Window: cfg.RateLimit.Window,
		Limit:  cfg.RateLimit.OrderLimit,
	}, d.Limiter, logg)
	webhookLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:   "payment_webhook",
		Window: cfg.RateLimit.Window,
		Limit:  cfg.RateLimit.WebhookLimit,
	}, d.Limiter, logg)
	loginLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:   "admin_login",
		Window: cfg.RateLimit.LoginWindow,
		Limit:  cfg.RateLimit.LoginLimit,
	}, d.Limiter, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", controllers.ListCategories(d.Catalog, logg))
		r.Get("/categories/{slug}", controllers.GetCategory(d.Catalog, logg))
		r.Get("/products", controllers.ListProducts(d.Catalog, logg))
		r.Get("/products/{slug}", controllers.GetProduct(d.Catalog, logg))

		r.Route("/cart/{token}", func(r chi.Router) {
			r.Get("/", controllers.GetCart(d.Cart, logg))
			r.Delete("/", controllers.ClearCart(d.Cart, logg))
			r.With(middleware.Idempotency(d.Idempotency, middleware.CartIdempotencyTTL, logg)).Post("/items", controllers.AddCartItem(d.Cart, logg))
			r.Patch("/items", controllers.UpdateCartItem(d.Cart, logg))
			r.Delete("/items", controllers.RemoveCartItem(d.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(orderLimit, middleware.Idempotency(d.Idempotency, middleware.OrderIdempotencyTTL, logg)).Post("/", controllers.SubmitOrder(d.Orders, logg))
			r.Get("/", controllers.ListOrdersByEmail(d.Orders, logg))
			r.Get("/{orderNumber}", controllers.GetOrderByNumber(d.Orders, logg))
		})

		r.With(webhookLimit).Post("/webhooks/payments", controllers.PaymentNotification(d.Payments, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/login", controllers.AdminLogin(d.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWT, d.Sessions, logg))

			r.Post("/auth/logout", controllers.AdminLogout(d.Auth, logg))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.AdminListCategories(d.Catalog, logg))
				r.Post("/", controllers.AdminCreateCategory(d.Catalog, logg))
				r.Patch("/{id}", controllers.AdminUpdateCategory(d.Catalog, logg))
				r.Delete("/{id}", controllers.AdminDeleteCategory(d.Catalog, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminListProducts(d.Catalog, logg))
				r.Post("/", controllers.AdminCreateProduct(d.Catalog, logg))
				r.Get("/{id}", controllers.AdminGetProduct(d.Catalog, logg))
				r.Patch("/{id}", controllers.AdminUpdateProduct(d.Catalog, logg))
				r.Delete("/{id}", controllers.AdminDeleteProduct(d.Catalog, logg))
				r.Put("/{id}/stock", controllers.AdminSetProductStock(d.Catalog, logg))
				r.Post("/{id}/variants", controllers.AdminCreateVariant(d.Catalog, logg))
			})

			r.Route("/variants", func(r chi.Router) {
				r.Patch("/{id}", controllers.AdminUpdateVariant(d.Catalog, logg))
				r.Delete("/{id}", controllers.AdminDeleteVariant(d.Catalog, logg))
				r.Put("/{id}/stock", controllers.AdminSetVariantStock(d.Catalog, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(d.Orders, logg))
				r.Get("/{id}", controllers.AdminGetOrder(d.Orders, logg))
				r.Patch("/{id}/status", controllers.AdminUpdateOrderStatus(d.Orders, logg))
				r.Post("/{id}/refund", controllers.AdminRefundOrder(d.Orders, logg))
				r.Delete("/{id}", controllers.AdminDeleteOrder(d.Orders, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Get("/", controllers.AdminListUsers(d.Users, logg))
				r.Post("/", controllers.AdminCreateUser(d.Users, logg))
				r.Get("/{id}", controllers.AdminGetUser(d.Users, logg))
				r.Patch("/{id}", controllers.AdminUpdateUser(d.Users, logg))
				r.Delete("/{id}", controllers.AdminDeleteUser(d.Users, logg))
			})
		})
	})

	return r
}
