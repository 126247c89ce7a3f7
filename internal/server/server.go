package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Deps are the collaborators the HTTP layer is assembled from.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Logger   *zap.Logger
	Images   service.ImageStore
	Renderer service.ShoppingListRenderer
}

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	logger *zap.Logger
}

// New wires the services and handlers into a gin engine.
func New(deps Deps) *Server {
	cfg := deps.Config
	if !cfg.Env.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	auth := service.NewAuthService(deps.DB, cfg.JWT.Secret, cfg.JWT.TTL)
	catalog := service.NewCatalogService(deps.DB)
	recipes := service.NewRecipeService(deps.DB, catalog, deps.Images, deps.Logger)
	users := service.NewUserService(deps.DB, recipes)
	shopping := service.NewShoppingListService(deps.DB, deps.Renderer)

	var createLimiter, modifyLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled && deps.Redis != nil {
		createLimiter = middleware.NewRecipeCreationRateLimiter(deps.Redis, cfg.RateLimit, deps.Logger)
		modifyLimiter = middleware.NewRecipeModificationRateLimiter(deps.Redis, cfg.RateLimit, deps.Logger)
	}

	r := gin.New()
	r.Use(
		middleware.RequestLogger(deps.Logger),
		middleware.ErrorHandler(deps.Logger),
		middleware.Metrics(),
		middleware.CORS(cfg.CORS.Origins),
	)

	r.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), deps.DB); err != nil {
			deps.Logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if _, local := deps.Images.(*service.LocalImageStore); local {
		r.Static(cfg.Media.URL, cfg.Media.Root)
	}

	pages := api.NewPaginator(cfg.API)
	group := r.Group("/api", middleware.BodyLimit(cfg.API.MaxBodyBytes), middleware.Authenticate(auth))
	api.NewAuthHandler(auth).RegisterRoutes(group)
	api.NewCatalogHandler(catalog).RegisterRoutes(group)
	api.NewUserHandler(users, pages).RegisterRoutes(group)
	api.NewRecipeHandler(recipes, shopping, pages, createLimiter, modifyLimiter).RegisterRoutes(group)

	return &Server{cfg: cfg, engine: r, logger: deps.Logger}
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	defer signal.Stop(quit)

	s.logger.Info("server starting",
		zap.String("addr", s.cfg.Server.Addr()),
		zap.String("env", string(s.cfg.Env)),
	)
	return s.run(ctx, quit)
}

func (s *Server) run(ctx context.Context, quit <-chan os.Signal) error {
	serv := &http.Server{
		Addr:    s.cfg.Server.Addr(),
		Handler: s.engine,
	}

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := serv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		defer func() {
			s.logger.Info("server stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := serv.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("graceful shutdown failed", zap.Error(err))
			}
		}()

		select {
		case <-groupCtx.Done():
			return groupCtx.Err()
		case sig := <-quit:
			s.logger.Info("received signal", zap.String("signal", sig.String()))
			return nil
		}
	})

	err := eg.Wait()
	s.logger.Info("server stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
