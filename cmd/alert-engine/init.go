package main

import (
	"context"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sensor-platform/alert-engine/internal/app"
	"github.com/sensor-platform/alert-engine/internal/config"
	"github.com/sensor-platform/alert-engine/internal/ingest"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/notifier"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"github.com/sensor-platform/alert-engine/internal/repository"
	"github.com/sensor-platform/alert-engine/internal/service"
	"github.com/sensor-platform/alert-engine/internal/storage"
	"github.com/sensor-platform/alert-engine/internal/websocket"
	"gorm.io/gorm"
)

// initDatabase initializes the PostgreSQL connection
func initDatabase(cfg config.PostgresConfig) (*gorm.DB, error) {
	postgresDB, err := storage.Connect(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("PostgreSQL initialized")

	// Run migrations if auto_migrate is enabled
	if cfg.AutoMigrate {
		if err := runMigrations(cfg); err != nil {
			logger.Warn().Err(err).Msg("Failed to run migrations automatically")
		}
	}

	return postgresDB, nil
}

// runMigrations runs database migrations using golang-migrate
func runMigrations(cfg config.PostgresConfig) error {
	m, err := migrate.New(cfg.MigrationSourceURL(), cfg.MigrationDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Info().Msg("No new migrations to apply")
	} else {
		logger.Info().Msg("Database migrations applied successfully")
	}

	return nil
}

// initEventBus initializes the alert event bus
func initEventBus(ctx context.Context) *processor.EventBus {
	eventBus := processor.NewEventBus()
	eventBus.Start(ctx)
	logger.Info().Msg("Alert event bus started")
	return eventBus
}

// initWebSocketHub initializes the WebSocket hub for real-time alerts
func initWebSocketHub(ctx context.Context, eventBus *processor.EventBus) *websocket.Hub {
	wsHub := websocket.NewHub()
	eventBus.Subscribe(wsHub)
	go wsHub.Run(ctx)
	logger.Info().Msg("WebSocket hub started (real-time alert streaming)")
	return wsHub
}

// initDispatcher initializes the notification dispatcher and its channels
func initDispatcher(
	ctx context.Context,
	cfg *config.Config,
	records repository.NotificationRepo,
	wsHub *websocket.Hub,
) *notifier.Dispatcher {
	dispatcher := notifier.NewDispatcher(
		records,
		cfg.Notifications.MaxAttempts,
		cfg.Notifications.Backoff(),
		cfg.Notifications.Workers,
		cfg.Notifications.QueueSize,
	)

	if cfg.Email.Enabled {
		if cfg.Email.SMTPHost != "" && cfg.Email.From != "" {
			dispatcher.Register(notifier.NewEmailChannel(cfg.Email))
			logger.Info().
				Str("smtp_host", cfg.Email.SMTPHost).
				Strs("to", cfg.Email.To).
				Msg("Email channel enabled")
		} else {
			logger.Warn().Msg("Email configuration incomplete - channel disabled")
		}
	}

	if cfg.SMS.Enabled {
		if cfg.SMS.GatewayURL != "" {
			dispatcher.Register(notifier.NewSMSChannel(cfg.SMS))
			logger.Info().Str("gateway_url", cfg.SMS.GatewayURL).Msg("SMS channel enabled")
		} else {
			logger.Warn().Msg("SMS configuration incomplete - channel disabled")
		}
	}

	if cfg.Webhook.Enabled {
		if cfg.Webhook.URL != "" {
			dispatcher.Register(notifier.NewWebhookChannel(cfg.Webhook))
			logger.Info().Str("url", cfg.Webhook.URL).Msg("Webhook channel enabled")
		} else {
			logger.Warn().Msg("Webhook configuration incomplete - channel disabled")
		}
	}

	// In-app delivery rides the WebSocket hub and is always available.
	dispatcher.Register(notifier.NewInAppChannel(wsHub))

	dispatcher.Start(ctx)
	logger.Info().
		Int("workers", cfg.Notifications.Workers).
		Int("max_attempts", cfg.Notifications.MaxAttempts).
		Msg("Notification dispatcher started")

	return dispatcher
}

// initEngine initializes the rule evaluation engine
func initEngine(
	ctx context.Context,
	cfg config.EngineConfig,
	ruleRepo repository.RuleRepo,
	alertRepo repository.AlertRepo,
	dispatcher *notifier.Dispatcher,
	eventBus *processor.EventBus,
) *processor.Engine {
	engine := processor.NewEngine(ruleRepo, alertRepo, dispatcher, eventBus, cfg.Workers, cfg.QueueSize)
	engine.Start(ctx)
	logger.Info().Msg("Rule evaluation engine started")
	return engine
}

// initServices initializes the rule and alert services
func initServices(
	ctx context.Context,
	ruleRepo repository.RuleRepo,
	templateRepo repository.TemplateRepo,
	alertRepo repository.AlertRepo,
	notificationRepo repository.NotificationRepo,
	engine *processor.Engine,
) (service.RuleService, service.AlertService) {
	ruleService := service.NewRuleService(ruleRepo, templateRepo, alertRepo, engine)
	if err := ruleService.EnsureDefaultTemplates(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default rule templates")
	}
	logger.Info().Msg("Rule service initialized")

	alertService := service.NewAlertService(alertRepo, notificationRepo)
	logger.Info().Msg("Alert service initialized")

	return ruleService, alertService
}

// initKafkaConsumer starts the optional Kafka readings consumer
func initKafkaConsumer(ctx context.Context, cfg config.KafkaConfig, engine *processor.Engine) *ingest.KafkaConsumer {
	if !cfg.Enabled() {
		logger.Info().Msg("Kafka readings consumer disabled (no brokers configured)")
		return nil
	}

	consumer := ingest.NewKafkaConsumer(cfg, engine)
	consumer.Start(ctx)
	return consumer
}

// initDependencies creates and validates the dependencies container
func initDependencies(
	postgresDB *gorm.DB,
	engine *processor.Engine,
	ruleService service.RuleService,
	alertService service.AlertService,
	dispatcher *notifier.Dispatcher,
	eventBus *processor.EventBus,
	wsHub *websocket.Hub,
) (*app.Dependencies, error) {
	deps, err := app.NewDependencies(postgresDB, engine, ruleService, alertService, dispatcher, eventBus, wsHub)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("Dependencies container initialized")
	return deps, nil
}

// closeDatabase closes the database connection
func closeDatabase(postgresDB *gorm.DB) {
	storage.Close(postgresDB)
	logger.Info().Msg("Database connection closed")
}
