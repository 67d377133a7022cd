package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/auth"
	"github.com/GTDGit/pricewatch_api/internal/bootstrap"
	"github.com/GTDGit/pricewatch_api/internal/cache"
	"github.com/GTDGit/pricewatch_api/internal/config"
	"github.com/GTDGit/pricewatch_api/internal/handler"
	"github.com/GTDGit/pricewatch_api/internal/metrics"
	"github.com/GTDGit/pricewatch_api/internal/middleware"
	"github.com/GTDGit/pricewatch_api/internal/recommend"
	"github.com/GTDGit/pricewatch_api/internal/service"
	"github.com/GTDGit/pricewatch_api/internal/worker"
	"github.com/GTDGit/pricewatch_api/pkg/mailer"
)

// main is the application entrypoint for the price watch API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	bootstrap.SetupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("store", cfg.Store).Msg("starting pricewatch api")

	// 3. Connect store and prepare schema
	stores, err := bootstrap.OpenStores(context.Background(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("store connection failed")
		fmt.Fprintf(os.Stderr, "store connection failed: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	// 4. Connect Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize services
	topViews := cache.NewTopViewsCache(redisClient, cfg.Cache.TopViewsTTL)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)

	authSvc := service.NewAuthService(stores.Users, issuer)
	productSvc := service.NewProductService(stores.Products, topViews, metrics.Catalog{})
	savedSvc := service.NewSavedListService(stores.Users, stores.Products)
	recentSvc := service.NewRecentListService(stores.Users, stores.Products)
	ingestSvc := service.NewIngestService(stores.Products, topViews)
	recommendationSvc := service.NewRecommendationService(recentSvc, recommend.New(productSvc, recommend.DefaultBudget, nil))

	// 6. Initialize handlers
	handlers := &handler.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Check{
			stores.Driver: stores.Ping,
			"redis":       redisClient.Ping,
		}),
		Auth:           handler.NewAuthHandler(authSvc),
		Product:        handler.NewProductHandler(productSvc),
		UserList:       handler.NewUserListHandler(savedSvc, recentSvc),
		Recommendation: handler.NewRecommendationHandler(recommendationSvc),
		User:           handler.NewUserHandler(stores.Users),
		Ingest:         handler.NewIngestHandler(ingestSvc),
	}

	// 7. Initialize middleware
	rateLimiter := middleware.NewInvalidAuthRateLimiter()
	defer rateLimiter.Close()
	authMw := middleware.NewAuthMiddleware(authSvc, rateLimiter)

	// 8. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	handler.RegisterRoutes(router, handlers, authMw, cfg.RoleDeniedStatus)

	// 9. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 10. Start workers
	if cfg.SMTP.Enabled() {
		mail := mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		alertSvc := service.NewPriceAlertService(stores.Users, stores.Products, mail)
		go worker.NewPriceAlertWorker(alertSvc, cfg.Worker.PriceAlertInterval).Start(ctx)
	} else {
		log.Info().Msg("SMTP_HOST not set, price alerts disabled")
	}

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 13. Cancel context to stop workers
	cancel()

	// 14. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
