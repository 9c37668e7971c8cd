package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/observability/metrics"
	"github.com/sensor-platform/alert-engine/internal/pool"
)

// RuleSource provides the rule set bound to a device sensor. Disabled rules
// are included so the engine can observe the disable signal and clear state.
type RuleSource interface {
	RulesForSensor(ctx context.Context, deviceSensorID string) ([]*models.SensorRule, error)
}

// NotificationSink accepts dispatch requests. Submission is fire-and-forget:
// a slow channel must never stall evaluation.
type NotificationSink interface {
	Submit(req models.NotificationRequest)
}

// DeviceNameFunc resolves a device id to its display name. Device metadata is
// owned by an external collaborator; the default resolver echoes the id.
type DeviceNameFunc func(deviceID string) string

// Engine drives the evaluation pipeline: reading -> condition evaluation ->
// violation tracking -> state transition -> dispatch/events. Work for one
// (rule, device-sensor) key is serialized on a single pool worker; different
// keys evaluate in parallel.
type Engine struct {
	rules       RuleSource
	tracker     *ViolationTracker
	states      *AlertStateManager
	bus         *EventBus
	sink        NotificationSink
	pool        *pool.KeyedPool
	deviceNames DeviceNameFunc
}

// NewEngine wires the evaluation pipeline.
func NewEngine(rules RuleSource, alerts AlertStore, sink NotificationSink, bus *EventBus, workers, queueSize int) *Engine {
	return &Engine{
		rules:       rules,
		tracker:     NewViolationTracker(),
		states:      NewAlertStateManager(alerts),
		bus:         bus,
		sink:        sink,
		pool:        pool.NewKeyedPool(workers, queueSize),
		deviceNames: func(id string) string { return id },
	}
}

// SetDeviceNameResolver installs a device display-name lookup. Call before Start.
func (e *Engine) SetDeviceNameResolver(fn DeviceNameFunc) {
	if fn != nil {
		e.deviceNames = fn
	}
}

// Start launches the evaluation workers.
func (e *Engine) Start(ctx context.Context) {
	logger.Info().Int("workers", e.pool.GetWorkerCount()).Msg("Starting alert evaluation engine")
	e.pool.Start(ctx)
}

// Stop drains in-flight evaluations and shuts the workers down.
func (e *Engine) Stop() {
	e.pool.Stop()
}

// Tracker exposes the violation tracker, for inspection endpoints and tests.
func (e *Engine) Tracker() *ViolationTracker {
	return e.tracker
}

// HandleReading schedules one reading against every rule bound to its device
// sensor. Each (rule, device-sensor) key lands on its own serialized queue.
func (e *Engine) HandleReading(ctx context.Context, reading models.Reading) error {
	deviceSensorID := reading.DeviceSensorID()

	rules, err := e.rules.RulesForSensor(ctx, deviceSensorID)
	if err != nil {
		return fmt.Errorf("load rules for %s: %w", deviceSensorID, err)
	}

	for _, rule := range rules {
		rule := rule
		key := Key{RuleID: rule.ID, DeviceSensorID: deviceSensorID}
		err := e.pool.Submit(key.String(), func(ctx context.Context) error {
			return e.evaluateRule(ctx, rule, key, reading)
		})
		if err != nil {
			metrics.ObserveEvaluation("dropped")
			logger.Warn().
				Str("rule_id", rule.ID.String()).
				Str("device_sensor_id", deviceSensorID).
				Err(err).
				Msg("Evaluation task dropped")
		}
	}
	return nil
}

// evaluateRule is the atomic unit: evaluation, tracker update, and state
// transition for one key, with no interleaving from other readings on that key.
func (e *Engine) evaluateRule(ctx context.Context, rule *models.SensorRule, key Key, reading models.Reading) error {
	outcome, err := Evaluate(rule, reading)
	if err != nil {
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			// Skipped cycle: no tracker or state mutation.
			metrics.ObserveEvaluation("error")
			logger.Warn().
				Str("rule_id", rule.ID.String()).
				Str("device_sensor_id", key.DeviceSensorID).
				Str("reason", evalErr.Reason).
				Msg("Reading skipped")
			return nil
		}
		return err
	}

	if outcome == OutcomeSkipped {
		// Disabled rule observed on the evaluation path.
		metrics.ObserveEvaluation("skipped")
		return e.ClearRule(ctx, rule.ID)
	}

	matched := outcome == OutcomeMatched
	if matched {
		metrics.ObserveEvaluation("matched")
	} else {
		metrics.ObserveEvaluation("not_matched")
	}

	count := e.tracker.Update(key, rule, reading.Timestamp, matched)

	decision, err := e.states.Transition(ctx, rule, key.DeviceSensorID, matched, count, reading.Timestamp)
	if err != nil {
		logger.Error().
			Err(err).
			Str("rule_id", rule.ID.String()).
			Msg("State transition failed")
		return err
	}

	switch {
	case decision.Fired:
		e.onFired(rule, decision.Instance, reading)

	case decision.Suppressed:
		metrics.IncSuppressed()
		logger.Debug().
			Str("rule_id", rule.ID.String()).
			Str("device_sensor_id", key.DeviceSensorID).
			Int64("fire_sequence", decision.Instance.FireSequence).
			Msg("Match suppressed by cooldown")

	case decision.Resolved:
		e.onResolved(rule, decision.Instance, reading)
	}
	return nil
}

func (e *Engine) onFired(rule *models.SensorRule, instance *models.AlertInstance, reading models.Reading) {
	metrics.IncAlertsFired(rule.Severity)

	message := buildAlertMessage(rule, reading)
	now := time.Now()

	for _, channel := range rule.NotificationChannels {
		e.sink.Submit(models.NotificationRequest{
			AlertInstanceID: instance.ID,
			FireSequence:    instance.FireSequence,
			Channel:         channel,
			Severity:        rule.Severity,
			Message:         message,
			DeviceID:        reading.DeviceID,
			RuleName:        rule.RuleName,
			CreatedAt:       now,
		})
	}

	e.bus.Publish(&AlertEvent{
		Type:      models.AlertEventFired,
		Instance:  instance,
		Rule:      rule,
		Payload:   e.buildPayload(rule, instance, reading, message, "active"),
		Timestamp: now,
	})

	logger.Info().
		Str("rule_id", rule.ID.String()).
		Str("device_sensor_id", instance.DeviceSensorID).
		Str("severity", rule.Severity).
		Int64("fire_sequence", instance.FireSequence).
		Msg("Alert fired")
}

func (e *Engine) onResolved(rule *models.SensorRule, instance *models.AlertInstance, reading models.Reading) {
	metrics.IncAlertsResolved()

	message := fmt.Sprintf("Rule %q on sensor %s returned to normal", rule.RuleName, instance.DeviceSensorID)
	e.bus.Publish(&AlertEvent{
		Type:      models.AlertEventResolved,
		Instance:  instance,
		Rule:      rule,
		Payload:   e.buildPayload(rule, instance, reading, message, "resolved"),
		Timestamp: time.Now(),
	})

	logger.Info().
		Str("rule_id", rule.ID.String()).
		Str("device_sensor_id", instance.DeviceSensorID).
		Msg("Alert resolved")
}

func (e *Engine) buildPayload(rule *models.SensorRule, instance *models.AlertInstance, reading models.Reading, message, status string) models.AlertPayload {
	return models.AlertPayload{
		ID:         instance.ID.String(),
		DeviceID:   reading.DeviceID,
		DeviceName: e.deviceNames(reading.DeviceID),
		AlertType:  rule.RuleName,
		Severity:   rule.Severity,
		Message:    message,
		Status:     status,
		CreatedAt:  time.Now(),
	}
}

// ClearRule clears tracker state and closes open alert instances for a rule.
// Called when a rule is disabled or deleted, and from the evaluation path when
// a disabled rule is observed.
func (e *Engine) ClearRule(ctx context.Context, ruleID uuid.UUID) error {
	e.tracker.ClearRule(ruleID)
	return e.states.CloseRule(ctx, ruleID)
}

func buildAlertMessage(rule *models.SensorRule, reading models.Reading) string {
	value := 0.0
	if reading.ProcessedValue != nil {
		value = *reading.ProcessedValue
	}

	unit := reading.Unit
	if unit != "" {
		unit = " " + unit
	}

	return fmt.Sprintf("Rule %q violated on sensor %s: value %.2f%s (%s)",
		rule.RuleName, reading.DeviceSensorID(), value, unit, describeCondition(rule))
}

func describeCondition(rule *models.SensorRule) string {
	switch {
	case rule.RuleType == models.RuleTypeComplex || len(rule.ComplexConditions) > 0:
		return "complex condition"
	case rule.Condition == models.ConditionBetween || rule.Condition == models.ConditionOutsideRange:
		min, max := 0.0, 0.0
		if rule.ThresholdMin != nil {
			min = *rule.ThresholdMin
		}
		if rule.ThresholdMax != nil {
			max = *rule.ThresholdMax
		}
		return fmt.Sprintf("%s %.2f..%.2f", rule.Condition, min, max)
	default:
		threshold := 0.0
		if rule.ThresholdValue != nil {
			threshold = *rule.ThresholdValue
		}
		return fmt.Sprintf("%s %.2f", rule.Condition, threshold)
	}
}
