package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"gorm.io/gorm"
)

// NotificationRepo interface for delivery outcome storage
type NotificationRepo interface {
	Save(ctx context.Context, record *models.NotificationRecord) error
	ListByAlertInstance(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error)
}

// InMemoryNotificationRepo stores delivery records in memory
type InMemoryNotificationRepo struct {
	records []*models.NotificationRecord
	mu      sync.RWMutex
}

func NewInMemoryNotificationRepo() NotificationRepo {
	return &InMemoryNotificationRepo{}
}

func (r *InMemoryNotificationRepo) Save(ctx context.Context, record *models.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.records = append(r.records, record)
	return nil
}

func (r *InMemoryNotificationRepo) ListByAlertInstance(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.NotificationRecord
	for _, record := range r.records {
		if record.AlertInstanceID == alertInstanceID {
			out = append(out, record)
		}
	}
	return out, nil
}

// PostgresNotificationRepo stores delivery records in PostgreSQL
type PostgresNotificationRepo struct {
	db *gorm.DB
}

func NewPostgresNotificationRepo(db *gorm.DB) NotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

func (r *PostgresNotificationRepo) Save(ctx context.Context, record *models.NotificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *PostgresNotificationRepo) ListByAlertInstance(ctx context.Context, alertInstanceID uuid.UUID) ([]*models.NotificationRecord, error) {
	var records []*models.NotificationRecord
	err := r.db.WithContext(ctx).
		Where("alert_instance_id = ?", alertInstanceID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}
