package service

import (
	"encoding/json"
	"fmt"

	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/processor"
	"gorm.io/datatypes"
)

// templateRuleConfig mirrors the SensorRule fields a template's rule_config
// document may set.
type templateRuleConfig struct {
	RuleType                      models.RuleType  `json:"rule_type"`
	Condition                     models.Condition `json:"condition"`
	ThresholdValue                *float64         `json:"threshold_value"`
	ThresholdMin                  *float64         `json:"threshold_min"`
	ThresholdMax                  *float64         `json:"threshold_max"`
	ComplexConditions             json.RawMessage  `json:"complex_conditions"`
	Severity                      string           `json:"severity"`
	EvaluationWindowMinutes       int              `json:"evaluation_window_minutes"`
	ConsecutiveViolationsRequired int              `json:"consecutive_violations_required"`
	CooldownMinutes               *int             `json:"cooldown_minutes"`
	NotificationChannels          []string         `json:"notification_channels"`
	Tags                          []string         `json:"tags"`
}

// ResolveTemplate materializes a template's rule_config into an effective
// SensorRule for one device sensor. Resolution happens once, at rule creation
// time: later template edits do not retroactively change resolved rules.
func ResolveTemplate(tmpl *models.RuleTemplate, deviceSensorID, ruleName, sensorType string) (*models.SensorRule, error) {
	if tmpl.SensorType != "" && sensorType != "" && tmpl.SensorType != sensorType {
		return nil, &processor.RuleConfigError{
			Reason: fmt.Sprintf("template %q applies to sensor type %q, not %q", tmpl.Name, tmpl.SensorType, sensorType),
		}
	}

	var cfg templateRuleConfig
	if err := json.Unmarshal(tmpl.RuleConfig, &cfg); err != nil {
		return nil, &processor.RuleConfigError{
			Reason: fmt.Sprintf("template %q has malformed rule_config", tmpl.Name),
			Err:    err,
		}
	}

	rule := &models.SensorRule{
		DeviceSensorID:                deviceSensorID,
		RuleName:                      ruleName,
		RuleType:                      models.RuleTypeTemplate,
		Condition:                     cfg.Condition,
		ThresholdValue:                cfg.ThresholdValue,
		ThresholdMin:                  cfg.ThresholdMin,
		ThresholdMax:                  cfg.ThresholdMax,
		Severity:                      cfg.Severity,
		Enabled:                       true,
		EvaluationWindowMinutes:       cfg.EvaluationWindowMinutes,
		ConsecutiveViolationsRequired: cfg.ConsecutiveViolationsRequired,
		CooldownMinutes:               15,
		NotificationChannels:          datatypes.NewJSONSlice(cfg.NotificationChannels),
		Tags:                          datatypes.NewJSONSlice(cfg.Tags),
	}
	if rule.RuleName == "" {
		rule.RuleName = tmpl.Name
	}
	if len(cfg.ComplexConditions) > 0 {
		rule.ComplexConditions = datatypes.JSON(cfg.ComplexConditions)
	}
	if cfg.CooldownMinutes != nil {
		rule.CooldownMinutes = *cfg.CooldownMinutes
	}

	return rule, nil
}

// DefaultTemplates returns the built-in templates matching the sensor types
// the device firmware ships with.
func DefaultTemplates() []*models.RuleTemplate {
	return []*models.RuleTemplate{
		{
			Name:        "temperature_comfort_range",
			Description: "Fires when temperature leaves the comfortable range",
			SensorType:  "temperature_humidity",
			RuleConfig: datatypes.JSON([]byte(`{
				"condition": "outside_range",
				"threshold_min": 18,
				"threshold_max": 26,
				"severity": "medium",
				"evaluation_window_minutes": 5,
				"consecutive_violations_required": 3,
				"cooldown_minutes": 15,
				"notification_channels": ["email", "in_app"]
			}`)),
		},
		{
			Name:        "humidity_high",
			Description: "Fires when relative humidity stays above 70%",
			SensorType:  "temperature_humidity",
			RuleConfig: datatypes.JSON([]byte(`{
				"condition": "greater_than",
				"threshold_value": 70,
				"severity": "medium",
				"evaluation_window_minutes": 10,
				"consecutive_violations_required": 5,
				"cooldown_minutes": 30,
				"notification_channels": ["email", "in_app"]
			}`)),
		},
		{
			Name:        "motion_detected",
			Description: "Fires immediately on motion",
			SensorType:  "motion",
			RuleConfig: datatypes.JSON([]byte(`{
				"condition": "equals",
				"threshold_value": 1,
				"severity": "high",
				"evaluation_window_minutes": 1,
				"consecutive_violations_required": 1,
				"cooldown_minutes": 5,
				"notification_channels": ["sms", "in_app"]
			}`)),
		},
		{
			Name:        "distance_proximity",
			Description: "Fires when something is closer than 50 cm",
			SensorType:  "distance",
			RuleConfig: datatypes.JSON([]byte(`{
				"condition": "less_than",
				"threshold_value": 50,
				"severity": "high",
				"evaluation_window_minutes": 2,
				"consecutive_violations_required": 2,
				"cooldown_minutes": 10,
				"notification_channels": ["webhook", "in_app"]
			}`)),
		},
	}
}
