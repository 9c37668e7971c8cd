package processor

import "fmt"

// EvaluationError marks a reading that could not be evaluated (missing or
// non-numeric value). The cycle is logged and skipped; tracker and alert state
// are left untouched.
type EvaluationError struct {
	Reason string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error: %s", e.Reason)
}

// RuleConfigError marks an invalid rule or template configuration. These are
// rejected at save time and never reach the evaluation path.
type RuleConfigError struct {
	Reason string
	Err    error
}

func (e *RuleConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("rule config error: %s", e.Reason)
}

func (e *RuleConfigError) Unwrap() error {
	return e.Err
}
