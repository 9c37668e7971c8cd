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
	"github.com/sensor-platform/alert-engine/internal/api"
	"github.com/sensor-platform/alert-engine/internal/app"
	"github.com/sensor-platform/alert-engine/internal/config"
	"github.com/sensor-platform/alert-engine/internal/ingest"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/notifier"
	"github.com/sensor-platform/alert-engine/internal/observability/metrics"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"github.com/sensor-platform/alert-engine/internal/repository"
	"github.com/sensor-platform/alert-engine/internal/service"
	"github.com/sensor-platform/alert-engine/internal/websocket"
	"gorm.io/gorm"
)

// Package-level variables for application components
var (
	cfg           *config.Config
	appCtx        context.Context
	appCancel     context.CancelFunc
	postgresDB    *gorm.DB
	eventBus      *processor.EventBus
	wsHub         *websocket.Hub
	dispatcher    *notifier.Dispatcher
	ruleEngine    *processor.Engine
	ruleService   service.RuleService
	alertService  service.AlertService
	kafkaConsumer *ingest.KafkaConsumer
	deps          *app.Dependencies
)

func init() {
	// 1. Load configuration
	var err error
	cfg, err = config.Load("configs/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger and metrics
	logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info().Msg("Starting Alert Engine...")
	metrics.Init()

	// 3. Create application context for graceful shutdown
	appCtx, appCancel = context.WithCancel(context.Background())

	// 4. Initialize infrastructure (Database)
	postgresDB, err = initDatabase(cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL")
	}

	// 5. Initialize repositories
	ruleRepo := repository.NewPostgresRuleRepo(postgresDB)
	templateRepo := repository.NewPostgresTemplateRepo(postgresDB)
	alertRepo := repository.NewPostgresAlertRepo(postgresDB)
	notificationRepo := repository.NewPostgresNotificationRepo(postgresDB)
	logger.Info().Msg("Repositories initialized (PostgreSQL)")

	// 6. Initialize the evaluation pipeline
	eventBus = initEventBus(appCtx)
	wsHub = initWebSocketHub(appCtx, eventBus)
	dispatcher = initDispatcher(appCtx, cfg, notificationRepo, wsHub)
	ruleEngine = initEngine(appCtx, cfg.Engine, ruleRepo, alertRepo, dispatcher, eventBus)

	// 7. Initialize services
	ruleService, alertService = initServices(appCtx, ruleRepo, templateRepo, alertRepo, notificationRepo, ruleEngine)

	// 8. Optional Kafka readings consumer
	kafkaConsumer = initKafkaConsumer(appCtx, cfg.Kafka, ruleEngine)

	logger.Info().Msg("Alert pipeline initialized: Readings -> Evaluation -> Alerts -> Notifications + WebSocket")

	// 9. Create dependencies container
	deps, err = initDependencies(postgresDB, ruleEngine, ruleService, alertService, dispatcher, eventBus, wsHub)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create dependencies container")
	}
}

func main() {
	defer appCancel()

	// Setup HTTP server
	srv := setupHTTPServer()

	// Start HTTP server in background
	startServer(srv)

	logger.Info().Msg("Alert Engine is running")

	// Wait for shutdown signal
	waitForShutdown()

	// Graceful cleanup
	shutdown(srv)
}

func setupHTTPServer() *http.Server {
	gin.SetMode(gin.ReleaseMode)
	appEngine := gin.New()
	appEngine.Use(gin.Recovery())

	api.RegisterRoutes(deps, appEngine)

	return &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        appEngine,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func startServer(srv *http.Server) {
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
}

func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down server...")
}

func shutdown(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Cancel application context to stop all goroutines
	appCancel()

	// Stop pipeline components in reverse order
	logger.Info().Msg("Stopping pipeline components...")
	if kafkaConsumer != nil {
		kafkaConsumer.Stop()
	}
	ruleEngine.Stop()
	dispatcher.Stop()
	eventBus.Stop()
	logger.Info().Msg("All pipeline components stopped")

	// Close database connection
	closeDatabase(postgresDB)

	logger.Info().Msg("Server exited successfully")
}
