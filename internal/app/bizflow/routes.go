package bizflow

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/auth/login"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/auth/register"
	customerscreate "github.com/bizflowhq/bizflow-backend/internal/api/handlers/customers/create"
	customerslist "github.com/bizflowhq/bizflow-backend/internal/api/handlers/customers/list"
	customersread "github.com/bizflowhq/bizflow-backend/internal/api/handlers/customers/read"
	customersremove "github.com/bizflowhq/bizflow-backend/internal/api/handlers/customers/remove"
	customersupdate "github.com/bizflowhq/bizflow-backend/internal/api/handlers/customers/update"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/dashboard"
	expensescreate "github.com/bizflowhq/bizflow-backend/internal/api/handlers/expenses/create"
	expenseslist "github.com/bizflowhq/bizflow-backend/internal/api/handlers/expenses/list"
	expensesremove "github.com/bizflowhq/bizflow-backend/internal/api/handlers/expenses/remove"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/health"
	invoicescreate "github.com/bizflowhq/bizflow-backend/internal/api/handlers/invoices/create"
	invoiceslist "github.com/bizflowhq/bizflow-backend/internal/api/handlers/invoices/list"
	invoicesmarkpaid "github.com/bizflowhq/bizflow-backend/internal/api/handlers/invoices/markpaid"
	invoicesread "github.com/bizflowhq/bizflow-backend/internal/api/handlers/invoices/read"
	invoicesremove "github.com/bizflowhq/bizflow-backend/internal/api/handlers/invoices/remove"
	invoicessend "github.com/bizflowhq/bizflow-backend/internal/api/handlers/invoices/send"
	notificationslist "github.com/bizflowhq/bizflow-backend/internal/api/handlers/notifications/list"
	notificationsmarkread "github.com/bizflowhq/bizflow-backend/internal/api/handlers/notifications/markread"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/payments/webhook"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/products/adjuststock"
	productscreate "github.com/bizflowhq/bizflow-backend/internal/api/handlers/products/create"
	productslist "github.com/bizflowhq/bizflow-backend/internal/api/handlers/products/list"
	productsread "github.com/bizflowhq/bizflow-backend/internal/api/handlers/products/read"
	productsremove "github.com/bizflowhq/bizflow-backend/internal/api/handlers/products/remove"
	productsupdate "github.com/bizflowhq/bizflow-backend/internal/api/handlers/products/update"
	salescreate "github.com/bizflowhq/bizflow-backend/internal/api/handlers/sales/create"
	saleslist "github.com/bizflowhq/bizflow-backend/internal/api/handlers/sales/list"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/search"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/subscription/plans"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/subscription/status"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/subscription/transactions"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/subscription/upgrade"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/subscription/usagestats"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/subscription/validateusage"
	"github.com/bizflowhq/bizflow-backend/internal/api/handlers/subscription/verify"
	"github.com/bizflowhq/bizflow-backend/internal/api/middlewarectx"
	"github.com/bizflowhq/bizflow-backend/internal/config"
	analyticsservice "github.com/bizflowhq/bizflow-backend/internal/services/analytics"
	authservice "github.com/bizflowhq/bizflow-backend/internal/services/auth"
	customerservice "github.com/bizflowhq/bizflow-backend/internal/services/customers"
	expenseservice "github.com/bizflowhq/bizflow-backend/internal/services/expenses"
	invoiceservice "github.com/bizflowhq/bizflow-backend/internal/services/invoices"
	notificationservice "github.com/bizflowhq/bizflow-backend/internal/services/notifications"
	productservice "github.com/bizflowhq/bizflow-backend/internal/services/products"
	saleservice "github.com/bizflowhq/bizflow-backend/internal/services/sales"
	subscriptionservice "github.com/bizflowhq/bizflow-backend/internal/services/subscription"
	usageservice "github.com/bizflowhq/bizflow-backend/internal/services/usage"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

// Services groups everything the route table needs.
type Services struct {
	Auth          *authservice.AuthService
	Usage         *usageservice.UsageService
	Subscription  *subscriptionservice.SubscriptionService
	Customers     *customerservice.CustomerService
	Products      *productservice.ProductService
	Invoices      *invoiceservice.InvoiceService
	Sales         *saleservice.SaleService
	Expenses      *expenseservice.ExpenseService
	Notifications *notificationservice.NotificationService
	Analytics     *analyticsservice.AnalyticsService
}

// RegisterRoutes mounts every endpoint. Subscription management and
// notifications stay reachable on an expired plan so the user can pay their
// way back in; the business routes sit behind the status gate.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, store storage.Store, svc *Services) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTPServer.AllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Open endpoints
		r.Get("/health", health.New(logger, store).ServeHTTP)
		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
		r.Get("/subscription/plans", plans.New(logger, svc.Subscription).ServeHTTP)
		r.Post("/payments/webhook", webhook.New(logger, svc.Subscription, cfg.Paystack.WebhookSecret).ServeHTTP)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, 20, 40))

			r.Get("/subscription/status", status.New(logger, svc.Subscription).ServeHTTP)
			r.Post("/subscription/upgrade", upgrade.New(logger, svc.Subscription).ServeHTTP)
			r.Post("/subscription/verify", verify.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/subscription/transactions", transactions.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/subscription/usage", usagestats.New(logger, svc.Usage).ServeHTTP)
			r.Post("/subscription/usage/validate", validateusage.New(logger, svc.Usage).ServeHTTP)
			r.Get("/notifications", notificationslist.New(logger, svc.Notifications).ServeHTTP)
			r.Post("/notifications/{id}/read", notificationsmarkread.New(logger, svc.Notifications).ServeHTTP)

			// Business endpoints, blocked while the subscription is expired
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.SubscriptionStatusMiddleware(logger, store))

				r.Post("/customers", customerscreate.New(logger, svc.Customers).ServeHTTP)
				r.Get("/customers", customerslist.New(logger, svc.Customers).ServeHTTP)
				r.Get("/customers/{id}", customersread.New(logger, svc.Customers).ServeHTTP)
				r.Put("/customers/{id}", customersupdate.New(logger, svc.Customers).ServeHTTP)
				r.Delete("/customers/{id}", customersremove.New(logger, svc.Customers).ServeHTTP)

				r.Post("/products", productscreate.New(logger, svc.Products).ServeHTTP)
				r.Get("/products", productslist.New(logger, svc.Products).ServeHTTP)
				r.Get("/products/{id}", productsread.New(logger, svc.Products).ServeHTTP)
				r.Put("/products/{id}", productsupdate.New(logger, svc.Products).ServeHTTP)
				r.Delete("/products/{id}", productsremove.New(logger, svc.Products).ServeHTTP)
				r.Post("/products/{id}/stock", adjuststock.New(logger, svc.Products).ServeHTTP)

				r.Post("/invoices", invoicescreate.New(logger, svc.Invoices).ServeHTTP)
				r.Get("/invoices", invoiceslist.New(logger, svc.Invoices).ServeHTTP)
				r.Get("/invoices/{id}", invoicesread.New(logger, svc.Invoices).ServeHTTP)
				r.Delete("/invoices/{id}", invoicesremove.New(logger, svc.Invoices).ServeHTTP)
				r.Post("/invoices/{id}/send", invoicessend.New(logger, svc.Invoices).ServeHTTP)
				r.Post("/invoices/{id}/pay", invoicesmarkpaid.New(logger, svc.Invoices).ServeHTTP)

				r.Post("/sales", salescreate.New(logger, svc.Sales).ServeHTTP)
				r.Get("/sales", saleslist.New(logger, svc.Sales).ServeHTTP)

				r.Post("/expenses", expensescreate.New(logger, svc.Expenses).ServeHTTP)
				r.Get("/expenses", expenseslist.New(logger, svc.Expenses).ServeHTTP)
				r.Delete("/expenses/{id}", expensesremove.New(logger, svc.Expenses).ServeHTTP)

				r.Get("/dashboard", dashboard.New(logger, svc.Analytics).ServeHTTP)
				r.Get("/search", search.New(logger, svc.Analytics).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
