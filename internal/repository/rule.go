package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"gorm.io/gorm"
)

// RuleRepo interface for sensor rule storage. RulesForSensor returns disabled
// rules too, so the evaluation engine can observe disable signals.
type RuleRepo interface {
	Create(ctx context.Context, rule *models.SensorRule) error
	Update(ctx context.Context, rule *models.SensorRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SensorRule, error)
	List(ctx context.Context) ([]*models.SensorRule, error)
	RulesForSensor(ctx context.Context, deviceSensorID string) ([]*models.SensorRule, error)
}

// InMemoryRuleRepo stores rules in memory
type InMemoryRuleRepo struct {
	rules map[uuid.UUID]*models.SensorRule
	mu    sync.RWMutex
}

func NewInMemoryRuleRepo() RuleRepo {
	return &InMemoryRuleRepo{
		rules: make(map[uuid.UUID]*models.SensorRule),
	}
}

func (r *InMemoryRuleRepo) Create(ctx context.Context, rule *models.SensorRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *InMemoryRuleRepo) Update(ctx context.Context, rule *models.SensorRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return errors.New("rule not found")
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *InMemoryRuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

func (r *InMemoryRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SensorRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, nil
	}
	return rule, nil
}

func (r *InMemoryRuleRepo) List(ctx context.Context) ([]*models.SensorRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.SensorRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

func (r *InMemoryRuleRepo) RulesForSensor(ctx context.Context, deviceSensorID string) ([]*models.SensorRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.SensorRule
	for _, rule := range r.rules {
		if rule.DeviceSensorID == deviceSensorID {
			out = append(out, rule)
		}
	}
	return out, nil
}

// PostgresRuleRepo stores rules in PostgreSQL with a read-through cache keyed
// by device sensor. The cache keeps parsed condition trees alive between
// readings; any write invalidates the affected sensor so the next evaluation
// re-parses the updated definition.
type PostgresRuleRepo struct {
	db    *gorm.DB
	cache map[string][]*models.SensorRule
	mu    sync.RWMutex
}

func NewPostgresRuleRepo(db *gorm.DB) RuleRepo {
	return &PostgresRuleRepo{
		db:    db,
		cache: make(map[string][]*models.SensorRule),
	}
}

func (r *PostgresRuleRepo) invalidate(deviceSensorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, deviceSensorID)
}

func (r *PostgresRuleRepo) Create(ctx context.Context, rule *models.SensorRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return err
	}
	r.invalidate(rule.DeviceSensorID)
	return nil
}

func (r *PostgresRuleRepo) Update(ctx context.Context, rule *models.SensorRule) error {
	// An update may move the rule to another device sensor; the prior
	// sensor's cached list goes stale too.
	prev, err := r.GetByID(ctx, rule.ID)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return err
	}
	if prev != nil && prev.DeviceSensorID != rule.DeviceSensorID {
		r.invalidate(prev.DeviceSensorID)
	}
	r.invalidate(rule.DeviceSensorID)
	return nil
}

func (r *PostgresRuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	rule, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.SensorRule{}, "id = ?", id).Error; err != nil {
		return err
	}
	if rule != nil {
		r.invalidate(rule.DeviceSensorID)
	}
	return nil
}

func (r *PostgresRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SensorRule, error) {
	var rule models.SensorRule
	err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *PostgresRuleRepo) List(ctx context.Context) ([]*models.SensorRule, error) {
	var rules []*models.SensorRule
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rules).Error
	return rules, err
}

func (r *PostgresRuleRepo) RulesForSensor(ctx context.Context, deviceSensorID string) ([]*models.SensorRule, error) {
	r.mu.RLock()
	cached, ok := r.cache[deviceSensorID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var rules []*models.SensorRule
	err := r.db.WithContext(ctx).
		Where("device_sensor_id = ?", deviceSensorID).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[deviceSensorID] = rules
	r.mu.Unlock()
	return rules, nil
}
