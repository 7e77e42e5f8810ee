package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/taskengine/internal/api/middleware"
	"github.com/phrazzld/taskengine/internal/service/auth"
	"github.com/phrazzld/taskengine/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	Engine   *task.Engine
	Keyed    *task.KeyedEngine
	Tokens   auth.TokenService
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	engineHandler := NewEngineHandler(cfg.Engine, cfg.Keyed)
	jobHandler := NewJobHandler(cfg.Engine, cfg.Keyed)
	authMiddleware := apiMiddleware.NewAuthMiddleware(cfg.Tokens)

	r.Get("/health", engineHandler.Health)
	r.Get("/ready", engineHandler.Ready)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/engine/stats", engineHandler.Stats)
		r.Get("/engine/keyed/stats", engineHandler.KeyedStats)
		r.Post("/jobs/sleep", jobHandler.SubmitSleep)
	})

	return r
}
