package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sensor-platform/alert-engine/internal/config"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the PostgreSQL connection, applies pool settings, and verifies
// it with a ping before handing it out. Gorm's own query logging is silenced;
// the engine logs at the repository layer instead.
func Connect(cfg config.PostgresConfig) (*gorm.DB, error) {
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Str("sslmode", cfg.SSLMode).
		Msg("Connecting to PostgreSQL")

	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections())
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections())
	sqlDB.SetConnMaxLifetime(cfg.ConnectionLifetime())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info().
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections()).
		Msg("PostgreSQL connection established")

	return db, nil
}

// HealthCheck pings the database with a short deadline. Used by the health
// endpoint, so it must never block a request for long.
func HealthCheck(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database instance is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool. Safe on a nil or already
// closed handle.
func Close(db *gorm.DB) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	sqlDB.Close()
}
