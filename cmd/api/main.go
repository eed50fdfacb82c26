package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-platform-api/config"
	"rental-platform-api/handlers"
	"rental-platform-api/logging"
	"rental-platform-api/middleware"
	"rental-platform-api/models"
	"rental-platform-api/predictive"
	"rental-platform-api/services"
	"rental-platform-api/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get sql db handle", "error", err)
		os.Exit(1)
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, running without cache and live notifications", "error", err)
	}
	defer cache.Close()

	var model *predictive.RiskModel
	if cfg.Prediction.RiskModelPath != "" {
		if model, err = predictive.LoadRiskModel(cfg.Prediction.RiskModelPath); err != nil {
			logger.Error("failed to load risk model", "path", cfg.Prediction.RiskModelPath, "error", err)
			os.Exit(1)
		}
	}

	authService := services.NewAuthService(cfg.JWT)
	lookups := store.NewGormStore(db)
	predictiveService := services.NewPredictiveService(predictive.NewEngine(model), lookups, lookups, cache, cfg.Prediction)

	router := newRouter(cfg, db, cache, authService, predictiveService, logger, prometheus.DefaultRegisterer)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func newRouter(
	cfg *config.Config,
	db *gorm.DB,
	cache *services.CacheService,
	authService *services.AuthService,
	predictiveService *services.PredictiveService,
	logger *slog.Logger,
	reg prometheus.Registerer,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.NewHTTPMetrics(reg).Handler())
	router.Use(middleware.SetupCORS(cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Rental Platform API is running",
			"redis":   cache.Available(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(db, authService)
	propertyHandler := handlers.NewPropertyHandler(db)
	maintenanceHandler := handlers.NewMaintenanceHandler(db, predictiveService)
	notificationHandler := handlers.NewNotificationHandler(db)
	predictiveHandler := handlers.NewPredictiveHandler(predictiveService, cfg.Prediction.MaxMonthsAhead)

	router.GET("/ws/notifications", handlers.NotificationsWebSocket(cache, authService))

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), authHandler.Me)

		secured := api.Group("", middleware.RequireAuth(authService))

		secured.POST("/properties", propertyHandler.Create)
		secured.GET("/properties", propertyHandler.List)
		secured.GET("/properties/:id", propertyHandler.Get)
		secured.POST("/properties/:id/maintenance", maintenanceHandler.Create)
		secured.GET("/properties/:id/maintenance", maintenanceHandler.List)
		secured.PATCH("/maintenance/:id/complete", maintenanceHandler.Complete)

		secured.GET("/notifications", notificationHandler.List)
		secured.PATCH("/notifications/:id/read", notificationHandler.MarkRead)

		pm := secured.Group("/predictive-maintenance")
		pm.GET("/properties/:id", predictiveHandler.PropertyPredictions)
		pm.GET("/properties/:id/history", predictiveHandler.PropertyHistory)
		pm.GET("/portfolio", predictiveHandler.Portfolio)
		pm.GET("/alerts", predictiveHandler.Alerts)
	}

	return router
}
