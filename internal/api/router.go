// Package api assembles the HTTP surface: middleware, route groups and
// handlers.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"reviewhub/internal/api/handler"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/service"
	"reviewhub/internal/metrics"
	"reviewhub/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Services are the use cases the router exposes.
type Services struct {
	Auth       service.AuthService
	Categories service.CatalogService
	Genres     service.CatalogService
	Titles     service.TitleService
	Reviews    service.ReviewService
	Comments   service.CommentService
	Users      service.UserService
}

type Options struct {
	Logger      *slog.Logger
	Users       middleware.UserFinder
	Database    handler.Pinger
	AuthLimiter *ratelimit.Limiter // nil disables rate limiting on /auth
	CORSOrigins []string
	Metrics     bool
}

// NewRouter builds the gin engine with every route under /api/v1.
func NewRouter(svc Services, opts Options) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	if opts.Metrics {
		r.Use(metrics.Middleware())
		r.GET("/metrics", metrics.Handler())
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	v1 := r.Group("/api/v1")
	if opts.Database != nil {
		v1.GET("/health", handler.NewHealthHandler(opts.Database, logger).Health)
	}

	// /auth ignores stale tokens
	authGroup := v1.Group("/auth", middleware.AuthenticateOptional(svc.Auth, opts.Users))
	if opts.AuthLimiter != nil {
		authGroup.Use(opts.AuthLimiter.Middleware())
	}
	handler.NewAuthHandler(svc.Auth, logger).RegisterRoutes(authGroup)

	// every other route resolves the caller first
	authed := v1.Group("", middleware.Authenticate(svc.Auth, opts.Users))

	handler.NewCategoryHandler(svc.Categories, logger).RegisterRoutes(authed.Group("/categories"))
	handler.NewGenreHandler(svc.Genres, logger).RegisterRoutes(authed.Group("/genres"))

	titles := authed.Group("/titles")
	handler.NewTitleHandler(svc.Titles, logger).RegisterRoutes(titles)
	handler.NewReviewHandler(svc.Reviews, logger).RegisterRoutes(titles)
	handler.NewCommentHandler(svc.Comments, logger).RegisterRoutes(titles)

	handler.NewUserHandler(svc.Users, logger).RegisterRoutes(authed.Group("/users"))

	return r, nil
}
