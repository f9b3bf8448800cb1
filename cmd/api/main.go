package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/personashop/internal/api"
	"github.com/timmy/personashop/internal/api/middleware"
	"github.com/timmy/personashop/internal/auth"
	"github.com/timmy/personashop/internal/config"
	"github.com/timmy/personashop/internal/llm"
	"github.com/timmy/personashop/internal/lock"
	"github.com/timmy/personashop/internal/logger"
	"github.com/timmy/personashop/internal/repository"
	"github.com/timmy/personashop/internal/service"
)

func main() {
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to get database handle")
	}
	defer sqlDB.Close()

	profileRepo := repository.NewProfileRepository(db)
	productRepo := repository.NewProductRepository(db)
	recordRepo := repository.NewRecommendationRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)

	provider, err := llm.NewProvider(&cfg.Completion)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize completion provider")
	}
	appLogger.WithFields(logger.Fields{
		"provider": provider.Name(),
		"model":    cfg.Completion.Active().Model,
		"breaker":  cfg.Completion.Breaker.Enabled,
	}).Info("Completion provider ready")

	var locker lock.Locker = lock.Noop{}
	if cfg.Redis.Addr != "" {
		redisLock, err := lock.NewRedis(&cfg.Redis)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to redis")
		}
		defer redisLock.Close()
		locker = redisLock
		appLogger.WithField("addr", cfg.Redis.Addr).Info("Distributed generation lock enabled")
	}

	completer := service.NewCompletionClient(provider, cfg.Completion.Temperature, appLogger)
	cache := service.NewCacheStore(profileRepo, recordRepo, completer, locker, appLogger, service.CacheConfig{
		ProfileTTL: cfg.Recommendation.ProfileCacheTTL,
		RecordTTL:  cfg.Recommendation.RecordTTL,
	})

	services := api.Services{
		Profiles: service.NewProfileService(profileRepo, cache),
		Products: service.NewProductService(productRepo, completer),
		Recommendations: service.NewRecommendationService(profileRepo, productRepo, cache, completer, service.RecommendationConfig{
			DefaultLimit:  cfg.Recommendation.DefaultLimit,
			MaxLimit:      cfg.Recommendation.MaxLimit,
			CandidatePool: cfg.Recommendation.CandidatePool,
		}),
		Wishlist: service.NewWishlistService(wishlistRepo, productRepo, profileRepo),
	}

	routerCfg := api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		DB: sqlDB,
	}
	if cfg.Auth.Enabled {
		routerCfg.Verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		appLogger.Warn("Token auth disabled, trusting the X-User-ID header")
	}

	router := api.SetupRouter(services, routerCfg, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Completion calls can take a while; give in-flight generations time to land.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
