package types

import "fmt"

// ValidationError rejects malformed promise or plan input. The case is
// left untouched.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
}

// InvalidTransitionError is a diagnostic, not a failure: the event did not
// apply to the current state, the case stays put and gets flagged for
// human attention. It is returned on the transition, never thrown.
type InvalidTransitionError struct {
	State CaseState
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("event %q does not apply in state %s", e.Event, e.State)
}

// GateEvaluationError marks missing required data during gate evaluation.
// It is folded into a failed gate result rather than propagated.
type GateEvaluationError struct {
	Gate string
	Msg  string
}

func (e *GateEvaluationError) Error() string {
	return fmt.Sprintf("gate %s could not be evaluated: %s", e.Gate, e.Msg)
}

// ConfigurationError aborts the cycle for one tenant; other tenants are
// unaffected.
type ConfigurationError struct {
	TenantID string
	Field    string
}

func (e *ConfigurationError) Error() string {
	if e.TenantID == "" {
		return fmt.Sprintf("tenant config missing required field %s", e.Field)
	}
	return fmt.Sprintf("tenant %s config missing required field %s", e.TenantID, e.Field)
}
