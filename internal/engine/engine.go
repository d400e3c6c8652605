// Package engine is the deterministic tax determination core: a pure
// function of (taxpayer snapshot, income items, ruleset version) to
// (computation result, trace). It owns no network or storage concerns and
// holds no mutable shared state; the same inputs under the same ruleset
// always produce the same output.
package engine

import (
	"context"

	"github.com/nratax/nratax-api/internal/rules"
)

// Engine sequences the classifier and calculator stages. It is stateless
// between invocations and safe for concurrent use; concurrent computations
// share only the immutable ruleset.
type Engine struct{}

// New returns a ready engine.
func New() *Engine {
	return &Engine{}
}

// Evaluate runs one complete computation: residency classification, income
// sourcing, treaty resolution and bracket calculation, in that order, with
// every rule evaluation recorded in the trace. A hard failure at any stage
// aborts the whole computation; there is no partial or degraded result.
//
// The returned result carries zero ComputationID and ComputedAt; the caller
// assigns both when recording the result, so Evaluate stays reproducible.
func (e *Engine) Evaluate(ctx context.Context, snapshot TaxpayerSnapshot, items []IncomeItem, ruleset *rules.Ruleset) (*ComputationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	trace := NewTraceRecorder()
	var flags []ReviewFlag

	residency := classifyResidency(snapshot, ruleset, trace)
	switch residency.Status {
	case ResidencyIndeterminate:
		flags = append(flags, ReviewFlag{
			Stage:  StageResidency,
			Reason: FlagResidencyIndeterminate,
			Detail: map[string]string{
				"visa_class": snapshot.VisaClass,
				"reasoning":  residency.Reasoning,
			},
		})
	case DualStatus:
		flags = append(flags, ReviewFlag{
			Stage:  StageResidency,
			Reason: FlagDualStatus,
			Detail: map[string]string{
				"reasoning": residency.Reasoning,
			},
		})
	}

	sourced, err := sourceItems(items, snapshot, ruleset, trace)
	if err != nil {
		return nil, err
	}

	for i := range sourced {
		if err := resolveTreaty(&sourced[i], residency, snapshot, ruleset, trace); err != nil {
			return nil, err
		}
		if sourced[i].Treaty.Kind == TreatyNoMatchingClause {
			flags = append(flags, ReviewFlag{
				Stage:  StageTreaty,
				Reason: FlagNoMatchingClause,
				Detail: map[string]string{
					"item_id":     sourced[i].Item.ItemID.String(),
					"country":     snapshot.ResidenceCountry,
					"income_type": string(sourced[i].Item.Type),
					"visa_class":  snapshot.VisaClass,
				},
			})
		}
	}

	tax := computeTax(sourced, snapshot, ruleset, trace)

	return &ComputationResult{
		TaxpayerID:     snapshot.TaxpayerID,
		TaxYear:        snapshot.TaxYear,
		RulesetVersion: ruleset.Version,
		Residency:      residency,
		Items:          sourced,
		Tax:            tax,
		Flags:          flags,
		Trace:          trace.Finalize(),
	}, nil
}
