package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertState is the lifecycle state of an alert instance.
type AlertState string

const (
	StateNormal    AlertState = "NORMAL"
	StateViolating AlertState = "VIOLATING"
	StateFired     AlertState = "FIRED"
	StateCooldown  AlertState = "COOLDOWN"
)

// AlertInstance is one lifecycle occurrence of a rule moving from normal
// through firing to resolution. At most one non-NORMAL instance exists per
// (rule_id, device_sensor_id) at any time.
type AlertInstance struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RuleID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_alert_instances_rule_sensor" json:"rule_id"`
	DeviceSensorID   string     `gorm:"type:varchar(100);not null;index:idx_alert_instances_rule_sensor" json:"device_sensor_id"`
	Severity         string     `gorm:"type:varchar(20);not null;index" json:"severity"`
	State            AlertState `gorm:"type:varchar(20);not null;default:'NORMAL';index" json:"state"`
	ConsecutiveCount int        `gorm:"not null;default:0" json:"consecutive_count"`
	OpenedAt         time.Time  `gorm:"not null" json:"opened_at"`
	LastFiredAt      *time.Time `gorm:"type:timestamp with time zone" json:"last_fired_at,omitempty"`
	FireSequence     int64      `gorm:"not null;default:0" json:"fire_sequence"`
	ResolvedAt       *time.Time `gorm:"type:timestamp with time zone" json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (AlertInstance) TableName() string {
	return "alert_instances"
}

// NewAlertInstance opens a new instance for a rule that just started violating.
func NewAlertInstance(rule *SensorRule, deviceSensorID string, openedAt time.Time) *AlertInstance {
	return &AlertInstance{
		ID:             uuid.New(),
		RuleID:         rule.ID,
		DeviceSensorID: deviceSensorID,
		Severity:       rule.Severity,
		State:          StateViolating,
		OpenedAt:       openedAt,
	}
}

// IsOpen reports whether the instance is still in a non-NORMAL state.
func (a *AlertInstance) IsOpen() bool {
	return a.State != StateNormal
}

// Resolve returns the instance to NORMAL and stamps resolved_at.
func (a *AlertInstance) Resolve(now time.Time) {
	a.State = StateNormal
	a.ConsecutiveCount = 0
	a.ResolvedAt = &now
}

// Fire advances fire_sequence and restarts the cooldown clock. FIRED is
// momentary: the stored state is already COOLDOWN.
func (a *AlertInstance) Fire(now time.Time) {
	a.State = StateCooldown
	a.FireSequence++
	a.LastFiredAt = &now
	a.ResolvedAt = nil
}

// CooldownElapsed reports whether the rule's cooldown has passed since the
// last fire, checked against the incoming reading's clock.
func (a *AlertInstance) CooldownElapsed(rule *SensorRule, now time.Time) bool {
	if a.LastFiredAt == nil {
		return true
	}
	return !now.Before(a.LastFiredAt.Add(rule.Cooldown()))
}

// AlertEventType distinguishes fire and resolution events.
type AlertEventType string

const (
	AlertEventFired    AlertEventType = "fired"
	AlertEventResolved AlertEventType = "resolved"
)

// AlertPayload is the wire shape broadcast to the dashboard on the new_alert
// and device:{id}:alert channels. Field names are an existing contract.
type AlertPayload struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	AlertType  string    `json:"alert_type"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
