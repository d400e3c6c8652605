package engine

// TraceStep is one rule evaluation: the rule applied, its inputs and its
// output. Field names and step ordering are stable across ruleset versions
// so exported traces can be diffed between re-runs.
type TraceStep struct {
	Ordinal int               `json:"ordinal"`
	Stage   string            `json:"stage"`
	Rule    string            `json:"rule"`
	Inputs  map[string]string `json:"inputs,omitempty"`
	Output  string            `json:"output"`
}

// ComputationTrace is the ordered, immutable audit record of a single
// computation. Downstream audit and export features consume the trace, never
// the engine's internal state.
type ComputationTrace struct {
	Steps []TraceStep `json:"steps"`
}

// TraceRecorder accumulates trace steps during one computation. It is
// append-only while the computation runs; Finalize closes it for inclusion
// in the ComputationResult. Not safe for concurrent use — a recorder belongs
// to exactly one Evaluate call.
type TraceRecorder struct {
	steps     []TraceStep
	finalized bool
}

// NewTraceRecorder returns an empty recorder.
func NewTraceRecorder() *TraceRecorder {
	return &TraceRecorder{}
}

// Record appends one rule evaluation to the trace. Calls after Finalize are
// dropped; every stage runs before the orchestrator finalizes, so a late
// record indicates a programming error, not a domain condition.
func (r *TraceRecorder) Record(stage, rule string, inputs map[string]string, output string) {
	if r.finalized {
		return
	}
	r.steps = append(r.steps, TraceStep{
		Ordinal: len(r.steps),
		Stage:   stage,
		Rule:    rule,
		Inputs:  inputs,
		Output:  output,
	})
}

// Finalize closes the trace and returns it.
func (r *TraceRecorder) Finalize() ComputationTrace {
	r.finalized = true
	return ComputationTrace{Steps: r.steps}
}
