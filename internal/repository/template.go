package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/models"
	"gorm.io/gorm"
)

// TemplateRepo interface for rule template storage
type TemplateRepo interface {
	Create(ctx context.Context, tmpl *models.RuleTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RuleTemplate, error)
	GetByName(ctx context.Context, name string) (*models.RuleTemplate, error)
	List(ctx context.Context) ([]*models.RuleTemplate, error)
}

// InMemoryTemplateRepo stores templates in memory
type InMemoryTemplateRepo struct {
	templates map[uuid.UUID]*models.RuleTemplate
	mu        sync.RWMutex
}

func NewInMemoryTemplateRepo() TemplateRepo {
	return &InMemoryTemplateRepo{
		templates: make(map[uuid.UUID]*models.RuleTemplate),
	}
}

func (r *InMemoryTemplateRepo) Create(ctx context.Context, tmpl *models.RuleTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl.ID == uuid.Nil {
		tmpl.ID = uuid.New()
	}
	r.templates[tmpl.ID] = tmpl
	return nil
}

func (r *InMemoryTemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RuleTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	return tmpl, nil
}

func (r *InMemoryTemplateRepo) GetByName(ctx context.Context, name string) (*models.RuleTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tmpl := range r.templates {
		if tmpl.Name == name {
			return tmpl, nil
		}
	}
	return nil, nil
}

func (r *InMemoryTemplateRepo) List(ctx context.Context) ([]*models.RuleTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.RuleTemplate, 0, len(r.templates))
	for _, tmpl := range r.templates {
		out = append(out, tmpl)
	}
	return out, nil
}

// PostgresTemplateRepo stores templates in PostgreSQL
type PostgresTemplateRepo struct {
	db *gorm.DB
}

func NewPostgresTemplateRepo(db *gorm.DB) TemplateRepo {
	return &PostgresTemplateRepo{db: db}
}

func (r *PostgresTemplateRepo) Create(ctx context.Context, tmpl *models.RuleTemplate) error {
	return r.db.WithContext(ctx).Create(tmpl).Error
}

func (r *PostgresTemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RuleTemplate, error) {
	var tmpl models.RuleTemplate
	err := r.db.WithContext(ctx).First(&tmpl, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *PostgresTemplateRepo) GetByName(ctx context.Context, name string) (*models.RuleTemplate, error) {
	var tmpl models.RuleTemplate
	err := r.db.WithContext(ctx).First(&tmpl, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *PostgresTemplateRepo) List(ctx context.Context) ([]*models.RuleTemplate, error) {
	var templates []*models.RuleTemplate
	err := r.db.WithContext(ctx).Order("name ASC").Find(&templates).Error
	return templates, err
}
