package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
)

// AlertStore persists alert instance lifecycle state. Keeping it behind an
// interface lets the state machine run against an in-memory store in tests.
type AlertStore interface {
	// GetOpen returns the single non-NORMAL instance for a key, or nil.
	GetOpen(ctx context.Context, ruleID uuid.UUID, deviceSensorID string) (*models.AlertInstance, error)
	// ListOpenByRule returns every non-NORMAL instance held under a rule.
	ListOpenByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.AlertInstance, error)
	// Save upserts an instance.
	Save(ctx context.Context, instance *models.AlertInstance) error
}

// Decision is the outcome of one state machine step.
type Decision struct {
	// Fired is set when a dispatch was just requested (the momentary FIRED
	// state). The stored state is already COOLDOWN.
	Fired bool
	// Resolved is set when a previously fired alert returned to NORMAL.
	Resolved bool
	// Suppressed is set when a match inside cooldown was swallowed.
	Suppressed bool
	Instance   *models.AlertInstance
}

// AlertStateManager owns the per-(rule, device-sensor) alert lifecycle. It is
// not internally synchronized: the engine serializes calls per key.
type AlertStateManager struct {
	store AlertStore
}

// NewAlertStateManager creates a state manager backed by the given store.
func NewAlertStateManager(store AlertStore) *AlertStateManager {
	return &AlertStateManager{store: store}
}

// Transition advances the lifecycle for one evaluation outcome. count is the
// tracker's current consecutive match count.
func (asm *AlertStateManager) Transition(ctx context.Context, rule *models.SensorRule, deviceSensorID string, matched bool, count int, now time.Time) (Decision, error) {
	instance, err := asm.store.GetOpen(ctx, rule.ID, deviceSensorID)
	if err != nil {
		return Decision{}, fmt.Errorf("load alert instance: %w", err)
	}

	if !matched {
		return asm.onNonMatch(ctx, instance, now)
	}
	return asm.onMatch(ctx, rule, deviceSensorID, instance, count, now)
}

func (asm *AlertStateManager) onMatch(ctx context.Context, rule *models.SensorRule, deviceSensorID string, instance *models.AlertInstance, count int, now time.Time) (Decision, error) {
	required := rule.RequiredViolations()

	if instance == nil {
		instance = models.NewAlertInstance(rule, deviceSensorID, now)
	}

	decision := Decision{Instance: instance}

	switch instance.State {
	case models.StateViolating:
		instance.ConsecutiveCount = count
		if count >= required {
			instance.ConsecutiveCount = required
			instance.Fire(now)
			decision.Fired = true
		}

	case models.StateCooldown:
		// Once fired the counter is capped at the rule's requirement.
		instance.ConsecutiveCount = required
		if instance.CooldownElapsed(rule, now) {
			instance.Fire(now)
			decision.Fired = true
		} else {
			decision.Suppressed = true
		}
	}

	if err := asm.store.Save(ctx, instance); err != nil {
		return Decision{}, fmt.Errorf("save alert instance: %w", err)
	}
	return decision, nil
}

func (asm *AlertStateManager) onNonMatch(ctx context.Context, instance *models.AlertInstance, now time.Time) (Decision, error) {
	if instance == nil {
		return Decision{}, nil
	}

	// A resolution event is only worth broadcasting for alerts that actually
	// fired; a VIOLATING run that never reached the threshold closes silently.
	fired := instance.FireSequence > 0
	instance.Resolve(now)

	if err := asm.store.Save(ctx, instance); err != nil {
		return Decision{}, fmt.Errorf("save alert instance: %w", err)
	}
	return Decision{Resolved: fired, Instance: instance}, nil
}

// CloseRule closes every open instance for a rule without firing. Used when a
// rule is disabled or deleted.
func (asm *AlertStateManager) CloseRule(ctx context.Context, ruleID uuid.UUID) error {
	instances, err := asm.store.ListOpenByRule(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("list open alert instances: %w", err)
	}

	now := time.Now()
	for _, instance := range instances {
		instance.Resolve(now)
		if err := asm.store.Save(ctx, instance); err != nil {
			return fmt.Errorf("close alert instance %s: %w", instance.ID, err)
		}
		logger.Info().
			Str("rule_id", ruleID.String()).
			Str("device_sensor_id", instance.DeviceSensorID).
			Msg("Alert instance closed without firing")
	}
	return nil
}
