package router

import (
	"net/http"

	"offerhub-catalogue-api/internal/handler"
	"offerhub-catalogue-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	ProductHandler *handler.ProductHandler
	AuthHandler    *handler.AuthHandler
	AuthMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Access-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}

	// User registration is the entry point to get an access token
	if cfg.AuthHandler != nil {
		r.Post("/api/v1/auth", cfg.AuthHandler.Register)
	}

	// AUTHENTICATED catalogue routes
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		if cfg.AuthHandler != nil {
			r.Get("/api/v1/auth/me", cfg.AuthHandler.Me)
		}

		if cfg.ProductHandler != nil {
			r.Route("/api/v1/products", func(r chi.Router) {
				r.Post("/", cfg.ProductHandler.CreateProduct)
				r.Get("/", cfg.ProductHandler.ListProducts)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.ProductHandler.GetProduct)
					r.Put("/", cfg.ProductHandler.UpdateProduct)
					r.Delete("/", cfg.ProductHandler.DeleteProduct)
					r.Get("/price_change", cfg.ProductHandler.PriceChange)
				})
			})
		}
	})

	return r
}
