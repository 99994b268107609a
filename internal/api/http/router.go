// Package http provides the HTTP delivery layer for the URL shortener service.
// Handlers are thin glue: they validate input, pass the requester identity and
// click metadata to the service, and map domain errors to stable responses.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/mbelyaev/url-shortener/internal/models"
	httpSwagger "github.com/swaggo/http-swagger"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// ShortenURL creates a shortened version of the provided original URL
	// on behalf of the owner, with an optional expiry moment.
	ShortenURL(ctx context.Context, originalURL string, ownerID int64, expiresAt *time.Time) (*models.URL, error)

	// ResolveRedirect resolves a short code into its destination URL and
	// records the visit. The handler performs the actual HTTP redirect.
	ResolveRedirect(ctx context.Context, shortCode string, click models.ClickMeta) (*models.URL, error)

	// ResolveDetails retrieves URL details without counting a visit.
	ResolveDetails(ctx context.Context, shortCode string) (*models.URL, error)

	// ListURLs returns the owner's URLs in creation order.
	ListURLs(ctx context.Context, ownerID int64, offset, limit int) ([]models.URL, error)

	// SetURLStatus activates or deactivates a URL on behalf of the requester.
	SetURLStatus(ctx context.Context, shortCode string, active bool, requesterID int64, isPrivileged bool) (*models.URL, error)

	// DeleteURL deletes a URL and its click events on behalf of the requester.
	DeleteURL(ctx context.Context, shortCode string, requesterID int64, isPrivileged bool) (*models.URL, error)
}

// getValidate initializes a validator instance for incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
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

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Get("/{shortCode}", handleRedirect(urlSvc))

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Get("/{shortCode}", handleGetURLDetails(urlSvc))

			r.Group(func(r chi.Router) {
				r.Use(requireIdentity([]byte(jwtSecret)))

				r.Post("/", handleCreateURL(urlSvc, validate))
				r.Get("/", handleListURLs(urlSvc))
				r.Patch("/{shortCode}", handleSetURLStatus(urlSvc, validate))
				r.Delete("/{shortCode}", handleDeleteURL(urlSvc))
			})
		})
	})

	return r
}
