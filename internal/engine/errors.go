package engine

import (
	"errors"
	"fmt"
)

// Stage names used in errors, trace steps and review flags. Stable strings,
// safe for downstream routing.
const (
	StageValidation = "validation"
	StageResidency  = "residency"
	StageSourcing   = "sourcing"
	StageTreaty     = "treaty"
	StageBrackets   = "brackets"
)

// Reason codes for hard failures. Validation failures and ruleset authoring
// defects abort the whole computation; there is no partial result.
const (
	ReasonInvalidSnapshot      = "invalid_snapshot"
	ReasonInvalidItem          = "invalid_item"
	ReasonUnmappedIncomeType   = "unmapped_income_type"
	ReasonAmbiguousTreatyMatch = "ambiguous_treaty_match"
)

// EngineError is a stage-tagged hard failure. The orchestrator propagates it
// unchanged so the caller always learns which stage failed and why.
type EngineError struct {
	Stage  string
	Reason string
	Detail string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %s", e.Stage, e.Reason, e.Detail)
}

func newEngineError(stage, reason, format string, args ...interface{}) *EngineError {
	return &EngineError{Stage: stage, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsReason reports whether err is an EngineError with the given reason code.
func IsReason(err error, reason string) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Reason == reason
	}
	return false
}
