// Package http provides the HTTP delivery layer for the URL registry.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadimbarashkov/url-registry/internal/adapter/auth"

	httpSwagger "github.com/swaggo/http-swagger"
)

func newValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the registry API.
func NewRouter(logger *httplog.Logger, registry registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	h := newMappingHandler(registry, newValidate())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)
		r.Get("/stats", h.getTotalMappings)

		r.Route("/mappings", func(r chi.Router) {
			r.With(auth.Middleware).Post("/", h.createMapping)

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", h.getMapping)
				r.Get("/resolve", h.resolve)
			})
		})
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}
