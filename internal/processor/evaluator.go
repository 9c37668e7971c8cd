package processor

import (
	"github.com/sensor-platform/alert-engine/internal/models"
)

// Outcome is the result of evaluating one rule against one reading.
type Outcome int

const (
	OutcomeNotMatched Outcome = iota
	OutcomeMatched
	OutcomeSkipped
)

// Evaluate applies a rule's condition to a reading. It is a pure function: no
// tracker or alert state is touched here.
//
// Disabled rules return OutcomeSkipped; callers are responsible for clearing
// any tracker/alert state held for them. A missing value yields an
// EvaluationError and no outcome.
func Evaluate(rule *models.SensorRule, reading models.Reading) (Outcome, error) {
	if !rule.Enabled {
		return OutcomeSkipped, nil
	}

	if reading.ProcessedValue == nil {
		return OutcomeNotMatched, &EvaluationError{Reason: "reading has no numeric value"}
	}
	value := *reading.ProcessedValue

	switch rule.RuleType {
	case models.RuleTypeComplex, models.RuleTypeTemplate:
		if len(rule.ComplexConditions) > 0 {
			tree, err := rule.ConditionTree()
			if err != nil {
				// Save-time validation should make this unreachable.
				return OutcomeNotMatched, &EvaluationError{Reason: err.Error()}
			}
			return outcome(tree.Matches(value)), nil
		}
		// Resolved templates may materialize into a simple condition.
		fallthrough

	default:
		return evaluateSimple(rule, value)
	}
}

func evaluateSimple(rule *models.SensorRule, value float64) (Outcome, error) {
	switch rule.Condition {
	case models.ConditionGreaterThan:
		if rule.ThresholdValue == nil {
			return OutcomeNotMatched, &EvaluationError{Reason: "rule has no threshold_value"}
		}
		// Strict inequality: equality at the boundary does not match.
		return outcome(value > *rule.ThresholdValue), nil

	case models.ConditionLessThan:
		if rule.ThresholdValue == nil {
			return OutcomeNotMatched, &EvaluationError{Reason: "rule has no threshold_value"}
		}
		return outcome(value < *rule.ThresholdValue), nil

	case models.ConditionEquals:
		if rule.ThresholdValue == nil {
			return OutcomeNotMatched, &EvaluationError{Reason: "rule has no threshold_value"}
		}
		return outcome(value == *rule.ThresholdValue), nil

	case models.ConditionNotEquals:
		if rule.ThresholdValue == nil {
			return OutcomeNotMatched, &EvaluationError{Reason: "rule has no threshold_value"}
		}
		return outcome(value != *rule.ThresholdValue), nil

	case models.ConditionBetween:
		if rule.ThresholdMin == nil || rule.ThresholdMax == nil {
			return OutcomeNotMatched, &EvaluationError{Reason: "rule has no threshold_min/threshold_max"}
		}
		// Inclusive on both bounds.
		return outcome(value >= *rule.ThresholdMin && value <= *rule.ThresholdMax), nil

	case models.ConditionOutsideRange:
		if rule.ThresholdMin == nil || rule.ThresholdMax == nil {
			return OutcomeNotMatched, &EvaluationError{Reason: "rule has no threshold_min/threshold_max"}
		}
		return outcome(!(value >= *rule.ThresholdMin && value <= *rule.ThresholdMax)), nil

	default:
		return OutcomeNotMatched, &EvaluationError{Reason: "unknown condition " + string(rule.Condition)}
	}
}

func outcome(matched bool) Outcome {
	if matched {
		return OutcomeMatched
	}
	return OutcomeNotMatched
}
