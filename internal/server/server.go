package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"geekshelf/internal/config"
	"geekshelf/internal/media"
	"geekshelf/internal/metrics"
	custommiddleware "geekshelf/internal/middleware"
	"geekshelf/internal/repository"
	"geekshelf/internal/service"
	"geekshelf/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, health func() map[string]string) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware; chi requires the full stack before any route
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))

	// HTTP metrics
	registry := prometheus.NewRegistry()
	router.Use(metrics.New(registry).Middleware())

	// Optional rate limiting backed by redis
	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			KeyPrefix:         "ratelimit",
		}, logger))
	}

	// Operational endpoints
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, health())
	})

	// Any unmapped route answers the legacy 404 payload
	router.NotFound(custommiddleware.NotFoundHandler())

	// Initialize the media store for disk copies of product images
	mediaStore, err := media.NewStore(cfg.Media.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, categoryRepo, mediaStore, logger)

	// Initialize the page renderer
	view, err := transport.NewView(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize views: %w", err)
	}

	// Initialize handlers
	pageHandler := transport.NewPageHandler(catalogService, view, logger)
	apiHandler := transport.NewAPIHandler(catalogService, logger)

	// Register routes
	pageHandler.RegisterRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
		apiHandler.RegisterRoutes(r)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
