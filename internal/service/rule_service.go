package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"github.com/sensor-platform/alert-engine/internal/repository"
)

// StateCleaner clears evaluation state for a rule. The engine implements this;
// rule disable and delete must not leave stale tracker or alert state behind.
type StateCleaner interface {
	ClearRule(ctx context.Context, ruleID uuid.UUID) error
}

// RuleService handles rule management business logic
type RuleService interface {
	CreateRule(ctx context.Context, rule *models.SensorRule) error
	CreateFromTemplate(ctx context.Context, templateName, deviceSensorID, ruleName, sensorType string) (*models.SensorRule, error)
	UpdateRule(ctx context.Context, rule *models.SensorRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	GetRule(ctx context.Context, id uuid.UUID) (*models.SensorRule, error)
	ListRules(ctx context.Context) ([]*models.SensorRule, error)
	ListTemplates(ctx context.Context) ([]*models.RuleTemplate, error)
	EnsureDefaultTemplates(ctx context.Context) error
}

type ruleService struct {
	rules     repository.RuleRepo
	templates repository.TemplateRepo
	alerts    repository.AlertRepo
	cleaner   StateCleaner
}

// NewRuleService creates a new rule service
func NewRuleService(rules repository.RuleRepo, templates repository.TemplateRepo, alerts repository.AlertRepo, cleaner StateCleaner) RuleService {
	return &ruleService{
		rules:     rules,
		templates: templates,
		alerts:    alerts,
		cleaner:   cleaner,
	}
}

func (s *ruleService) CreateRule(ctx context.Context, rule *models.SensorRule) error {
	applyRuleDefaults(rule)
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.rules.Create(ctx, rule)
}

func (s *ruleService) CreateFromTemplate(ctx context.Context, templateName, deviceSensorID, ruleName, sensorType string) (*models.SensorRule, error) {
	tmpl, err := s.templates.GetByName(ctx, templateName)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tmpl == nil {
		return nil, &processor.RuleConfigError{Reason: fmt.Sprintf("template %q not found", templateName)}
	}

	rule, err := ResolveTemplate(tmpl, deviceSensorID, ruleName, sensorType)
	if err != nil {
		return nil, err
	}

	if err := s.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *ruleService) UpdateRule(ctx context.Context, rule *models.SensorRule) error {
	applyRuleDefaults(rule)
	if err := validateRule(rule); err != nil {
		return err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return err
	}
	if !rule.Enabled {
		return s.cleaner.ClearRule(ctx, rule.ID)
	}
	return nil
}

func (s *ruleService) DeleteRule(ctx context.Context, id uuid.UUID) error {
	// Clearing first closes open alert instances; the cascade then drops them.
	if err := s.cleaner.ClearRule(ctx, id); err != nil {
		return err
	}
	if err := s.alerts.DeleteByRule(ctx, id); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info().Str("rule_id", id.String()).Msg("Rule deleted with cascaded state")
	return nil
}

func (s *ruleService) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule %s not found", id)
	}

	rule.Enabled = enabled
	if err := s.rules.Update(ctx, rule); err != nil {
		return err
	}

	if !enabled {
		// Disable clears tracker and closes open alerts; re-enabling later
		// starts from a clean slate.
		return s.cleaner.ClearRule(ctx, id)
	}
	return nil
}

func (s *ruleService) GetRule(ctx context.Context, id uuid.UUID) (*models.SensorRule, error) {
	return s.rules.GetByID(ctx, id)
}

func (s *ruleService) ListRules(ctx context.Context) ([]*models.SensorRule, error) {
	return s.rules.List(ctx)
}

func (s *ruleService) ListTemplates(ctx context.Context) ([]*models.RuleTemplate, error) {
	return s.templates.List(ctx)
}

func (s *ruleService) EnsureDefaultTemplates(ctx context.Context) error {
	for _, tmpl := range DefaultTemplates() {
		existing, err := s.templates.GetByName(ctx, tmpl.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.templates.Create(ctx, tmpl); err != nil {
			return err
		}
		logger.Info().Str("template", tmpl.Name).Msg("Seeded rule template")
	}
	return nil
}

func applyRuleDefaults(rule *models.SensorRule) {
	if rule.RuleType == "" {
		rule.RuleType = models.RuleTypeSimple
	}
	if rule.Severity == "" {
		rule.Severity = models.SeverityMedium
	}
	if rule.EvaluationWindowMinutes == 0 {
		rule.EvaluationWindowMinutes = 5
	}
	if rule.ConsecutiveViolationsRequired == 0 {
		rule.ConsecutiveViolationsRequired = 1
	}
}

// validateRule enforces the save-time contract: invalid configurations are
// rejected here and never reach the evaluation path.
func validateRule(rule *models.SensorRule) error {
	if rule.RuleName == "" {
		return &processor.RuleConfigError{Reason: "rule_name is required"}
	}
	if rule.DeviceSensorID == "" {
		return &processor.RuleConfigError{Reason: "device_sensor_id is required"}
	}

	switch rule.RuleType {
	case models.RuleTypeSimple, models.RuleTypeComplex, models.RuleTypeTemplate:
	default:
		return &processor.RuleConfigError{Reason: fmt.Sprintf("unknown rule_type %q", rule.RuleType)}
	}

	switch rule.Severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
	default:
		return &processor.RuleConfigError{Reason: fmt.Sprintf("unknown severity %q", rule.Severity)}
	}

	if rule.ConsecutiveViolationsRequired < 1 {
		return &processor.RuleConfigError{Reason: "consecutive_violations_required must be >= 1"}
	}
	if rule.CooldownMinutes < 0 {
		return &processor.RuleConfigError{Reason: "cooldown_minutes must be >= 0"}
	}
	if rule.EvaluationWindowMinutes < 1 {
		return &processor.RuleConfigError{Reason: "evaluation_window_minutes must be >= 1"}
	}

	if len(rule.NotificationChannels) == 0 {
		return &processor.RuleConfigError{Reason: "notification_channels must not be empty"}
	}
	for _, channel := range rule.NotificationChannels {
		switch channel {
		case models.ChannelEmail, models.ChannelSMS, models.ChannelWebhook, models.ChannelInApp:
		default:
			return &processor.RuleConfigError{Reason: fmt.Sprintf("unknown notification channel %q", channel)}
		}
	}

	if rule.RuleType == models.RuleTypeComplex || len(rule.ComplexConditions) > 0 {
		if _, err := rule.ConditionTree(); err != nil {
			return &processor.RuleConfigError{Reason: "invalid complex_conditions", Err: err}
		}
		return nil
	}

	switch rule.Condition {
	case models.ConditionGreaterThan, models.ConditionLessThan, models.ConditionEquals, models.ConditionNotEquals:
		if rule.ThresholdValue == nil {
			return &processor.RuleConfigError{Reason: fmt.Sprintf("condition %q requires threshold_value", rule.Condition)}
		}
	case models.ConditionBetween, models.ConditionOutsideRange:
		if rule.ThresholdMin == nil || rule.ThresholdMax == nil {
			return &processor.RuleConfigError{Reason: fmt.Sprintf("condition %q requires threshold_min and threshold_max", rule.Condition)}
		}
		if *rule.ThresholdMin > *rule.ThresholdMax {
			return &processor.RuleConfigError{Reason: "threshold_min exceeds threshold_max"}
		}
	default:
		return &processor.RuleConfigError{Reason: fmt.Sprintf("unknown condition %q", rule.Condition)}
	}
	return nil
}
