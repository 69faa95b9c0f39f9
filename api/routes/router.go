package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SaifAzz/kiosk/api/controllers"
	"github.com/SaifAzz/kiosk/api/middleware"
	"github.com/SaifAzz/kiosk/internal/auth"
	"github.com/SaifAzz/kiosk/internal/countries"
	"github.com/SaifAzz/kiosk/internal/pettycash"
	"github.com/SaifAzz/kiosk/internal/products"
	"github.com/SaifAzz/kiosk/internal/reports"
	"github.com/SaifAzz/kiosk/internal/settlements"
	"github.com/SaifAzz/kiosk/internal/transactions"
	"github.com/SaifAzz/kiosk/internal/users"
	"github.com/SaifAzz/kiosk/pkg/auth/session"
	"github.com/SaifAzz/kiosk/pkg/config"
	"github.com/SaifAzz/kiosk/pkg/db"
	"github.com/SaifAzz/kiosk/pkg/logger"
	"github.com/SaifAzz/kiosk/pkg/metrics"
	"github.com/SaifAzz/kiosk/pkg/redis"
)

// Deps gathers everything the HTTP surface needs. Grouped into a struct so
// main wires it once instead of threading a dozen positional arguments.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	Session session.AccessSessionChecker

	Auth         auth.Service
	Countries    *countries.Repository
	Users        *users.Repository
	Products     products.Service
	Transactions transactions.Service
	Settlements  settlements.Service
	PettyCash    pettycash.Service
	Reports      reports.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		metrics.HTTPMiddleware,
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/admin/login", controllers.AdminAuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, d.Redis, logg)).Post("/otp/send", controllers.AuthSendOTP(d.Auth, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, d.Redis, logg)).Post("/otp/verify", controllers.AuthVerifyOTP(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Session, logg))
		r.Use(middleware.CountryContext(logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Get("/countries", controllers.CountryList(d.Countries, logg))
		r.Get("/countries/{countryId}", controllers.CountryGet(d.Countries, logg))
		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/transactions", controllers.TransactionList(d.Transactions, logg))
		r.Post("/transactions", controllers.TransactionCheckout(d.Transactions, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Session, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.CountryContext(logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Post("/products", controllers.AdminProductCreate(d.Products, logg))
		r.Post("/products/{productId}/restock", controllers.AdminProductRestock(d.Products, logg))
		r.Post("/settlements", controllers.AdminSettle(d.Settlements, logg))
		r.Get("/petty-cash", controllers.AdminPettyCashGet(d.PettyCash, logg))
		r.Post("/petty-cash", controllers.AdminPettyCashAdjust(d.PettyCash, logg))
		r.Get("/country-info", controllers.AdminCountryInfo(d.Reports, logg))
		r.Get("/users", controllers.AdminUserList(d.Users, logg))
		r.Get("/reports/users", controllers.AdminReportUsers(d.Reports, logg))
		r.Get("/reports/user-balances", controllers.AdminReportUserBalances(d.Reports, logg))
	})

	return r
}
