package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"service-finder/internal/feed"
	"service-finder/internal/providers"
	"service-finder/internal/session"
	"service-finder/internal/users"
	"service-finder/pkg/config"
	"service-finder/pkg/httpx"
	"service-finder/pkg/jwt"
)

type routerDeps struct {
	log         zerolog.Logger
	cfg         *config.Config
	users       *users.Service
	providers   *providers.Service
	revocations session.Revocations
	limiter     httpx.RateLimiter
	hub         *feed.Hub
	metrics     *httpx.Metrics
	registry    *prometheus.Registry
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(httpx.RequestLogger(d.log)...)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))
	r.Use(d.metrics.Middleware)
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "service-finder"})
	})
	if d.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	}

	loginGate := httpx.RateLimit(d.limiter, "login", d.cfg.HTTP.LoginRateLimit, d.cfg.HTTP.LoginRateWindow, d.metrics)
	r.Route("/api", func(r chi.Router) {
		users.NewHandler(d.users, loginGate).Mount(r)
		providers.NewHandler(d.providers, loginGate).Mount(r)
		session.NewHandler(d.revocations).Mount(r)
	})
	d.hub.RequireProvider(func(ctx context.Context, id string) error {
		_, err := d.providers.GetByID(ctx, id)
		return err
	})
	r.Mount("/ws", d.hub.Routes())
	return r
}
