package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RuleType discriminates how a rule's condition is expressed
type RuleType string

const (
	RuleTypeSimple   RuleType = "simple"
	RuleTypeComplex  RuleType = "complex"
	RuleTypeTemplate RuleType = "template"
)

// Condition is a simple comparison operator applied to a reading value
type Condition string

const (
	ConditionGreaterThan  Condition = "greater_than"
	ConditionLessThan     Condition = "less_than"
	ConditionEquals       Condition = "equals"
	ConditionNotEquals    Condition = "not_equals"
	ConditionBetween      Condition = "between"
	ConditionOutsideRange Condition = "outside_range"
)

// Severity levels, ordered low to critical
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Notification channel names stored in notification_channels
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelWebhook = "webhook"
	ChannelInApp   = "in_app"
)

// SensorRule is a persisted threshold/condition configuration bound to one
// device sensor. Column names match the existing schema and must not change.
type SensorRule struct {
	ID                            uuid.UUID                    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DeviceSensorID                string                       `gorm:"type:varchar(100);not null;index" json:"device_sensor_id"`
	RuleName                      string                       `gorm:"column:rule_name;type:varchar(200);not null" json:"rule_name"`
	RuleType                      RuleType                     `gorm:"column:rule_type;type:varchar(20);not null;default:'simple'" json:"rule_type"`
	Condition                     Condition                    `gorm:"type:varchar(30)" json:"condition,omitempty"`
	ThresholdValue                *float64                     `gorm:"column:threshold_value;type:double precision" json:"threshold_value,omitempty"`
	ThresholdMin                  *float64                     `gorm:"column:threshold_min;type:double precision" json:"threshold_min,omitempty"`
	ThresholdMax                  *float64                     `gorm:"column:threshold_max;type:double precision" json:"threshold_max,omitempty"`
	ComplexConditions             datatypes.JSON               `gorm:"column:complex_conditions;type:jsonb" json:"complex_conditions,omitempty"`
	Severity                      string                       `gorm:"type:varchar(20);not null;default:'medium';index" json:"severity"`
	Enabled                       bool                         `gorm:"not null;default:true;index" json:"enabled"`
	EvaluationWindowMinutes       int                          `gorm:"column:evaluation_window_minutes;not null;default:5" json:"evaluation_window_minutes"`
	ConsecutiveViolationsRequired int                          `gorm:"column:consecutive_violations_required;not null;default:1" json:"consecutive_violations_required"`
	CooldownMinutes               int                          `gorm:"column:cooldown_minutes;not null;default:15" json:"cooldown_minutes"`
	NotificationChannels          datatypes.JSONSlice[string]  `gorm:"column:notification_channels;type:jsonb;default:'[]'" json:"notification_channels"`
	Tags                          datatypes.JSONSlice[string]  `gorm:"type:jsonb;default:'[]'" json:"tags"`
	CreatedAt                     time.Time                    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                     time.Time                    `gorm:"autoUpdateTime" json:"updated_at"`

	// Parsed complex_conditions, populated once per loaded rule.
	tree     *ConditionNode
	treeErr  error
	treeOnce sync.Once
}

// TableName specifies the table name for GORM
func (*SensorRule) TableName() string {
	return "sensor_rules"
}

// ConditionTree returns the parsed complex_conditions AST. Parsing happens at
// most once per loaded rule; rule updates load a fresh struct and re-parse.
func (r *SensorRule) ConditionTree() (*ConditionNode, error) {
	r.treeOnce.Do(func() {
		r.tree, r.treeErr = ParseConditionTree(r.ComplexConditions)
	})
	return r.tree, r.treeErr
}

// EvaluationWindow returns the sliding window size as a duration.
func (r *SensorRule) EvaluationWindow() time.Duration {
	minutes := r.EvaluationWindowMinutes
	if minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}

// Cooldown returns the post-fire suppression period as a duration.
func (r *SensorRule) Cooldown() time.Duration {
	if r.CooldownMinutes < 0 {
		return 0
	}
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// RequiredViolations returns consecutive_violations_required clamped to >= 1.
func (r *SensorRule) RequiredViolations() int {
	if r.ConsecutiveViolationsRequired < 1 {
		return 1
	}
	return r.ConsecutiveViolationsRequired
}

// RuleTemplate is a named, reusable rule configuration. Applying a template
// materializes its rule_config into a SensorRule at creation time.
type RuleTemplate struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string         `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	SensorType  string         `gorm:"column:sensor_type;type:varchar(50)" json:"sensor_type"`
	RuleConfig  datatypes.JSON `gorm:"column:rule_config;type:jsonb;not null" json:"rule_config"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (RuleTemplate) TableName() string {
	return "rule_templates"
}
