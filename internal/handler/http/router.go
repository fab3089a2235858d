package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fnxL/favorit/internal/auth"
	"github.com/fnxL/favorit/internal/service"
	"github.com/fnxL/favorit/pkg/health"
	"github.com/fnxL/favorit/pkg/middleware"
)

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	facade *service.AuthFacade,
	userService *service.UserService,
	tokens *auth.TokenManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("auth"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to the internal token manager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := tokens.VerifyAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:   claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
		}, nil
	}

	authHandler := NewAuthHandler(facade, logger)
	userHandler := NewUserHandler(userService, logger)

	// Session lifecycle endpoints
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/login", authHandler.Login)
		r.Post("/token", authHandler.RefreshToken)
		r.Post("/logout", authHandler.Logout)

		// Logout-all requires a valid access token to name the account.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Post("/logout-all", authHandler.LogoutAll)
		})
	})

	// Account endpoints
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/signup", userHandler.Signup)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Get("/me", userHandler.GetProfile)
		})
	})

	return r
}
