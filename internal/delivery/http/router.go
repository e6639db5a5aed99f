package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/storefront-plugins/product-reviews/internal/config"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/handler"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/middleware"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/response"
	"github.com/storefront-plugins/product-reviews/internal/pkg/auth"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	storeHandler  *handler.StoreReviewHandler
	adminHandler  *handler.AdminReviewHandler
	uploadHandler *handler.UploadHandler
	tokens        *auth.TokenService
	logger        *logger.Logger
	cfg           *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	storeHandler *handler.StoreReviewHandler,
	adminHandler *handler.AdminReviewHandler,
	uploadHandler *handler.UploadHandler,
	tokens *auth.TokenService,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		storeHandler:  storeHandler,
		adminHandler:  adminHandler,
		uploadHandler: uploadHandler,
		tokens:        tokens,
		logger:        log,
		cfg:           cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	customerAuth := middleware.Auth(rt.tokens, auth.ScopeCustomer)
	staffAuth := middleware.Auth(rt.tokens, auth.ScopeStaff)

	r.Route("/store/product-reviews", func(r chi.Router) {
		r.Get("/", rt.storeHandler.List)
		r.Get("/stats", rt.storeHandler.Stats)
		r.Post("/upload", rt.uploadHandler.Upload)

		r.Group(func(r chi.Router) {
			r.Use(customerAuth)
			r.Post("/", rt.storeHandler.Create)
			r.Post("/{id}", rt.storeHandler.Update)
		})
	})

	r.Route("/admin/product-reviews", func(r chi.Router) {
		r.Use(staffAuth)
		r.Get("/", rt.adminHandler.List)
		r.Get("/stats", rt.adminHandler.Stats)
		r.Get("/by-order", rt.adminHandler.ByOrder)
		r.Post("/import", rt.adminHandler.CreateImport)
		r.Get("/import/{id}", rt.adminHandler.GetImport)
		r.Post("/{id}", rt.adminHandler.Reply)
		r.Delete("/{id}", rt.adminHandler.Delete)
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
