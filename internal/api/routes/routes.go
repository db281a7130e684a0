package routes

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	_ "github.com/hsm-gustavo/todo-go/docs"
	"github.com/hsm-gustavo/todo-go/internal/api/auth"
	"github.com/hsm-gustavo/todo-go/internal/api/health"
	"github.com/hsm-gustavo/todo-go/internal/api/middleware"
	"github.com/hsm-gustavo/todo-go/internal/api/task"
	"github.com/hsm-gustavo/todo-go/internal/api/user"
	"github.com/hsm-gustavo/todo-go/internal/config"
	"github.com/hsm-gustavo/todo-go/internal/db"
	httpSwagger "github.com/swaggo/http-swagger"
)

// StoreProvider is satisfied by *db.Manager.
type StoreProvider interface {
	db.Acquirer
	health.StoreState
}

func SetupRoutes(cfg *config.Config, stores StoreProvider, authService *auth.AuthService, log zerolog.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	corsMiddleware := cors.New(corsOptions(cfg.Server.CORSOrigins))

	r.Use(corsMiddleware.Handler)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.Prometheus)
	r.Use(middleware.NewSecure(cfg.IsDevelopment()))
	r.Use(chimw.Timeout(2 * time.Minute))

	authLimiter, err := middleware.NewIPRateLimiter(cfg.RateLimit.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit: %w", err)
	}

	// init handlers
	authHandler := auth.NewAuthHandler(authService)
	userHandler := user.NewHandler()
	taskHandler := task.NewHandler()

	r.Get("/health", health.HealthHandler)
	r.Get("/health/ready", health.ReadyHandler(stores))
	r.Handle("/metrics", promhttp.Handler())

	// public auth routes
	r.Group(func(r chi.Router) {
		r.Use(authLimiter)
		r.Use(middleware.RequireStore(stores))
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
	})

	// protected routes: token first, then store
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(authService))
		r.Use(middleware.RequireStore(stores))

		r.Get("/profile", userHandler.GetProfile)
		r.Put("/profile", userHandler.UpdateProfile)

		r.Post("/tasks", taskHandler.Create)
		r.Get("/tasks", taskHandler.List)
		r.Put("/tasks/{id}", taskHandler.Update)
		r.Delete("/tasks/{id}", taskHandler.Delete)
	})

	// init swagger
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.WrapHandler)

	return r, nil
}

// corsOptions only allows credentialed requests for an explicit origin list.
func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300, // max time in seconds for OPTIONS preflight response cache
	}
}
