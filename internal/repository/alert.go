package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"gorm.io/gorm"
)

// AlertRepo interface for alert instance storage. GetOpen, ListOpenByRule and
// Save make every implementation usable as the state machine's AlertStore.
type AlertRepo interface {
	GetOpen(ctx context.Context, ruleID uuid.UUID, deviceSensorID string) (*models.AlertInstance, error)
	ListOpenByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.AlertInstance, error)
	Save(ctx context.Context, instance *models.AlertInstance) error
	GetRecent(ctx context.Context, limit int) ([]*models.AlertInstance, error)
	ListForDeviceSensor(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error)
	Count(ctx context.Context) (int64, error)
	CountOpen(ctx context.Context) (int64, error)
	CountBySeverity(ctx context.Context, severity string) (int64, error)
	DeleteByRule(ctx context.Context, ruleID uuid.UUID) error
}

// InMemoryAlertRepo stores alert instances in memory
type InMemoryAlertRepo struct {
	instances map[uuid.UUID]*models.AlertInstance
	order     []uuid.UUID
	mu        sync.RWMutex
}

func NewInMemoryAlertRepo() AlertRepo {
	return &InMemoryAlertRepo{
		instances: make(map[uuid.UUID]*models.AlertInstance),
	}
}

func (r *InMemoryAlertRepo) GetOpen(ctx context.Context, ruleID uuid.UUID, deviceSensorID string) (*models.AlertInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.instances {
		if inst.RuleID == ruleID && inst.DeviceSensorID == deviceSensorID && inst.IsOpen() {
			return inst, nil
		}
	}
	return nil, nil
}

func (r *InMemoryAlertRepo) ListOpenByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.AlertInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.AlertInstance
	for _, inst := range r.instances {
		if inst.RuleID == ruleID && inst.IsOpen() {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (r *InMemoryAlertRepo) Save(ctx context.Context, instance *models.AlertInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if instance.ID == uuid.Nil {
		instance.ID = uuid.New()
	}
	if _, ok := r.instances[instance.ID]; !ok {
		r.order = append(r.order, instance.ID)
	}
	r.instances[instance.ID] = instance
	return nil
}

func (r *InMemoryAlertRepo) GetRecent(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	start := len(r.order) - limit
	if start < 0 {
		start = 0
	}
	out := make([]*models.AlertInstance, 0, len(r.order)-start)
	for i := len(r.order) - 1; i >= start; i-- {
		out = append(out, r.instances[r.order[i]])
	}
	return out, nil
}

func (r *InMemoryAlertRepo) ListForDeviceSensor(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.AlertInstance
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		inst := r.instances[r.order[i]]
		if inst.DeviceSensorID == deviceSensorID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (r *InMemoryAlertRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.instances)), nil
}

func (r *InMemoryAlertRepo) CountOpen(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := int64(0)
	for _, inst := range r.instances {
		if inst.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryAlertRepo) CountBySeverity(ctx context.Context, severity string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := int64(0)
	for _, inst := range r.instances {
		if inst.Severity == severity && inst.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryAlertRepo) DeleteByRule(ctx context.Context, ruleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, inst := range r.instances {
		if inst.RuleID == ruleID {
			delete(r.instances, id)
		}
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if _, ok := r.instances[id]; ok {
			kept = append(kept, id)
		}
	}
	r.order = kept
	return nil
}

// PostgresAlertRepo stores alert instances in PostgreSQL
type PostgresAlertRepo struct {
	db *gorm.DB
}

func NewPostgresAlertRepo(db *gorm.DB) AlertRepo {
	return &PostgresAlertRepo{db: db}
}

func (r *PostgresAlertRepo) GetOpen(ctx context.Context, ruleID uuid.UUID, deviceSensorID string) (*models.AlertInstance, error) {
	var instance models.AlertInstance
	err := r.db.WithContext(ctx).
		Where("rule_id = ? AND device_sensor_id = ? AND state <> ?", ruleID, deviceSensorID, models.StateNormal).
		First(&instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *PostgresAlertRepo) ListOpenByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.AlertInstance, error) {
	var instances []*models.AlertInstance
	err := r.db.WithContext(ctx).
		Where("rule_id = ? AND state <> ?", ruleID, models.StateNormal).
		Find(&instances).Error
	return instances, err
}

func (r *PostgresAlertRepo) Save(ctx context.Context, instance *models.AlertInstance) error {
	return r.db.WithContext(ctx).Save(instance).Error
}

func (r *PostgresAlertRepo) GetRecent(ctx context.Context, limit int) ([]*models.AlertInstance, error) {
	var instances []*models.AlertInstance
	err := r.db.WithContext(ctx).
		Order("opened_at DESC").
		Limit(limit).
		Find(&instances).Error
	return instances, err
}

func (r *PostgresAlertRepo) ListForDeviceSensor(ctx context.Context, deviceSensorID string, limit int) ([]*models.AlertInstance, error) {
	var instances []*models.AlertInstance
	err := r.db.WithContext(ctx).
		Where("device_sensor_id = ?", deviceSensorID).
		Order("opened_at DESC").
		Limit(limit).
		Find(&instances).Error
	return instances, err
}

func (r *PostgresAlertRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AlertInstance{}).
		Count(&count).Error
	return count, err
}

func (r *PostgresAlertRepo) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AlertInstance{}).
		Where("state <> ?", models.StateNormal).
		Count(&count).Error
	return count, err
}

func (r *PostgresAlertRepo) CountBySeverity(ctx context.Context, severity string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AlertInstance{}).
		Where("severity = ? AND state <> ?", severity, models.StateNormal).
		Count(&count).Error
	return count, err
}

func (r *PostgresAlertRepo) DeleteByRule(ctx context.Context, ruleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.AlertInstance{}, "rule_id = ?", ruleID).Error
}
