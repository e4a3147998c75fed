package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/auth"
)

// Router assembles the HTTP API.
type Router struct {
	authHandler     *AuthHandler
	catalogHandler  *CatalogHandler
	deletionHandler *DeletionHandler
	authenticator   *auth.Authenticator
	writeAPIKey     string
	metricsHandler  http.Handler
	middleware      []func(http.Handler) http.Handler
	logger          zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler     *AuthHandler
	CatalogHandler  *CatalogHandler
	DeletionHandler *DeletionHandler
	Authenticator   *auth.Authenticator

	// WriteAPIKey guards the legacy v1 write routes. Empty disables them.
	WriteAPIKey string

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler

	// Middleware wraps every route, outermost first.
	Middleware []func(http.Handler) http.Handler

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		authHandler:     config.AuthHandler,
		catalogHandler:  config.CatalogHandler,
		deletionHandler: config.DeletionHandler,
		authenticator:   config.Authenticator,
		writeAPIKey:     config.WriteAPIKey,
		metricsHandler:  config.MetricsHandler,
		middleware:      config.Middleware,
		logger:          config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	for _, mw := range rt.middleware {
		r.Use(mw)
	}

	r.Get("/healthz", rt.handleHealth)
	if rt.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", rt.metricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", rt.authHandler.Login)
		r.Post("/register", rt.authHandler.Register)
		r.Post("/create-admin", rt.authHandler.CreateAdmin)

		r.Group(func(r chi.Router) {
			r.Use(rt.authenticator.RequireAuth)
			r.Get("/me", rt.authHandler.Me)
			r.Patch("/me", rt.authHandler.UpdateProfile)
			r.Post("/logout", rt.authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.authenticator.RequireAuth, rt.authenticator.RequireAdmin)
			r.Get("/users", rt.authHandler.ListUsers)
			r.Delete("/users/{id}", rt.authHandler.DeleteUser)
		})
	})

	r.Route("/api/v2", func(r chi.Router) {
		// Public catalog reads.
		r.Get("/candles", rt.catalogHandler.ListCandles)
		r.Get("/candles/{id}", rt.catalogHandler.GetCandle)
		r.Get("/candles/{id}/images", rt.catalogHandler.ListImages)
		r.Get("/categories", rt.catalogHandler.ListCategories)
		r.Get("/categories/{id}", rt.catalogHandler.GetCategory)
		r.Get("/tags", rt.catalogHandler.ListTags)

		// Admin writes.
		r.Group(func(r chi.Router) {
			r.Use(rt.authenticator.RequireAuth, rt.authenticator.RequireAdmin)

			r.Post("/candles", rt.catalogHandler.CreateCandle)
			r.Put("/candles/{id}", rt.catalogHandler.UpdateCandle)
			r.Delete("/candles/{id}", rt.deletionHandler.DeleteCandle)
			r.Post("/candles/batch-delete", rt.deletionHandler.BatchDeleteCandles)
			r.Get("/candles/{id}/references", rt.deletionHandler.GetReferences)
			r.Post("/candles/{id}/images", rt.catalogHandler.UploadImage)

			r.Post("/categories", rt.catalogHandler.CreateCategory)
			r.Put("/categories/{id}", rt.catalogHandler.UpdateCategory)
			r.Delete("/categories/{id}", rt.catalogHandler.DeleteCategory)
		})
	})

	// Legacy v1 writes guarded by a static key instead of a user token.
	// Kept for callers that predate account-based auth.
	if rt.writeAPIKey != "" {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(auth.RequireAPIKey(rt.writeAPIKey))

			r.Post("/candles", rt.catalogHandler.CreateCandle)
			r.Put("/candles/{id}", rt.catalogHandler.UpdateCandle)
			r.Delete("/candles/{id}", rt.deletionHandler.DeleteCandle)
		})
	}

	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
