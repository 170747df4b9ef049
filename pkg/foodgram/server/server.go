// Package server assembles the gin engine and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/foodgram/foodgram/pkg/foodgram/admin"
	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/favorites"
	"github.com/foodgram/foodgram/pkg/foodgram/ingredients"
	"github.com/foodgram/foodgram/pkg/foodgram/logging"
	"github.com/foodgram/foodgram/pkg/foodgram/ratelimit"
	"github.com/foodgram/foodgram/pkg/foodgram/recipes"
	"github.com/foodgram/foodgram/pkg/foodgram/shopping"
	"github.com/foodgram/foodgram/pkg/foodgram/shortlinks"
	"github.com/foodgram/foodgram/pkg/foodgram/subscriptions"
	"github.com/foodgram/foodgram/pkg/foodgram/tags"
	"github.com/foodgram/foodgram/pkg/foodgram/users"
	"github.com/foodgram/foodgram/pkg/foodgram/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "github.com/foodgram/foodgram/api/swagger"
)

// Server owns the router and its dependencies
type Server struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *zap.Logger
	engine *gin.Engine
}

// New builds the router with every route registered
func New(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Server {
	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	validation.Register()

	s := &Server{cfg: cfg, db: db, logger: logger, engine: gin.New()}
	s.engine.Use(logging.Middleware(logger), logging.Recovery(logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	srv := s.cfg.Server

	r.GET("/health", s.health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	recipeSvc := recipes.NewService(s.db, s.logger)
	shortLinkSvc := shortlinks.NewService(s.db, s.logger, s.cfg.ShortLink)

	api := r.Group("/api")
	{
		api.GET("/health", s.health)

		// Auth routes (public)
		auth.NewHandler(s.db).RegisterRoutes(api.Group("/auth"))

		// Users and subscriptions share /api/users
		usersGroup := api.Group("/users", auth.OptionalAuth())
		users.NewHandler(s.db, s.logger, srv).RegisterRoutes(usersGroup)
		subscriptions.NewHandler(s.db, subscriptions.NewService(s.db, s.logger), s.logger, srv).
			RegisterRoutes(usersGroup)

		// Recipes and the per-recipe actions share /api/recipes
		recipesGroup := api.Group("/recipes", auth.OptionalAuth())
		recipes.NewHandler(s.db, recipeSvc, s.logger, srv).RegisterRoutes(recipesGroup)
		favorites.NewHandler(favorites.NewService(s.db, s.logger), s.logger, srv).RegisterRoutes(recipesGroup)
		shopping.NewHandler(shopping.NewService(s.db, s.logger), s.logger, srv).RegisterRoutes(recipesGroup)
		shortlinks.NewHandler(shortLinkSvc, s.logger, srv).RegisterRoutes(recipesGroup)

		// Reference data (public)
		ingredients.NewHandler(s.db, s.logger).RegisterRoutes(api.Group("/ingredients"))
		tags.NewHandler(s.db, s.logger).RegisterRoutes(api.Group("/tags"))

		// Admin routes (admin role required)
		adminGroup := api.Group("/admin", auth.AuthMiddleware(), auth.RequireAdmin())
		admin.NewHandler(s.db, ingredients.NewImporter(s.db, s.logger), s.logger).RegisterRoutes(adminGroup)
	}

	// Short link redirects are public, so they are rate limited per client
	var middleware []gin.HandlerFunc
	if rl := s.cfg.RateLimit; rl.RequestsPerSecond > 0 {
		middleware = append(middleware, ratelimit.New(rl.RequestsPerSecond, rl.Burst).Middleware())
	}
	shortlinks.NewHandler(shortLinkSvc, s.logger, srv).RegisterRedirect(r, middleware...)
}

func (s *Server) health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "service": "foodgram"})
}

// Engine returns the bare router, without CORS
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", logging.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", logging.RequestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(s.engine)
}

// Run serves until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting Foodgram server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
