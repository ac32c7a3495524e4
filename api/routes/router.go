package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stackfinderz-backend/api/controllers"
	"github.com/angelmondragon/stackfinderz-backend/api/middleware"
	"github.com/angelmondragon/stackfinderz-backend/internal/auth"
	"github.com/angelmondragon/stackfinderz-backend/internal/bookmarks"
	"github.com/angelmondragon/stackfinderz-backend/internal/contributions"
	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/internal/stats"
	"github.com/angelmondragon/stackfinderz-backend/pkg/auth/session"
	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/stackfinderz-backend/pkg/redis"
)

// Cache is the redis surface the HTTP layer needs. A nil Cache disables idempotency and rate limits.
type Cache interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache Cache,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	authService auth.Service,
	stackService stacks.Service,
	bookmarkService bookmarks.Service,
	contributionService contributions.Service,
	statsService stats.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		rateStore        interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		}
		deps = map[string]controllers.Pinger{"db": dbP}
	)
	if cache != nil {
		idempotencyStore, rateStore = cache, cache
		deps["redis"] = cache
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	contributionPolicy := middleware.NewUserRateLimitPolicy(
		"contributions",
		cfg.AuthRateLimit.ContributionWindow,
		cfg.AuthRateLimit.ContributionUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
	})

	r.Route("/api/v1/stacks", func(r chi.Router) {
		r.Get("/", controllers.StacksList(stackService, logg))
		r.Get("/{stackId}", controllers.StackGet(stackService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/me", controllers.Me(authService, logg))
		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", controllers.BookmarksList(bookmarkService, logg))
			r.Post("/", controllers.BookmarkToggle(bookmarkService, logg))
		})
		r.With(middleware.UserRateLimit(contributionPolicy, rateStore, logg)).
			Post("/contributions", controllers.ContributionSubmit(contributionService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/contributions", func(r chi.Router) {
			r.Get("/", controllers.AdminContributionsList(contributionService, logg))
			r.Post("/{contributionId}/review", controllers.AdminContributionReview(contributionService, logg))
		})
		r.Get("/stats", controllers.AdminStats(statsService, logg))
	})

	return r
}
