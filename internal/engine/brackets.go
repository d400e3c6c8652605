package engine

import (
	"fmt"

	"github.com/nratax/nratax-api/internal/rules"
)

// computeTax walks the ruleset's progressive bracket tables over the summed
// post-treaty taxable income and reconciles the result against declared
// withholding. All arithmetic is integer cents; each bracket's tax rounds
// half-up independently per the ruleset's rounding policy.
func computeTax(sourced []SourcedIncomeItem, snapshot TaxpayerSnapshot, ruleset *rules.Ruleset, trace *TraceRecorder) TaxComputation {
	var taxable, withholding int64
	for _, s := range sourced {
		taxable += s.TaxableCents
		withholding += s.Item.WithholdingCents
	}

	comp := TaxComputation{
		TaxableIncomeCents: taxable,
		WithholdingCents:   withholding,
	}

	comp.FederalTaxCents, comp.FederalBrackets = walkBrackets("federal", taxable, ruleset.FederalBrackets, trace)

	if snapshot.StateCode != "" {
		if table, ok := ruleset.StateTableFor(snapshot.StateCode); ok {
			comp.StateCode = snapshot.StateCode
			if len(table.Brackets) == 0 {
				trace.Record(StageBrackets, "state_tax", map[string]string{
					"state": snapshot.StateCode,
				}, "no state income tax")
			} else {
				comp.StateDeductionCents = table.StandardDeductionCents
				stateTaxable := taxable - table.StandardDeductionCents
				if stateTaxable < 0 {
					stateTaxable = 0
				}
				trace.Record(StageBrackets, "state_standard_deduction", map[string]string{
					"state":           snapshot.StateCode,
					"deduction_cents": fmt.Sprintf("%d", table.StandardDeductionCents),
				}, fmt.Sprintf("state taxable income %d", stateTaxable))
				comp.StateTaxCents, comp.StateBrackets = walkBrackets(snapshot.StateCode, stateTaxable, table.Brackets, trace)
			}
		}
	}

	comp.TotalTaxCents = comp.FederalTaxCents + comp.StateTaxCents
	comp.BalanceCents = comp.TotalTaxCents - comp.WithholdingCents

	trace.Record(StageBrackets, "withholding_reconciliation", map[string]string{
		"total_tax_cents":   fmt.Sprintf("%d", comp.TotalTaxCents),
		"withholding_cents": fmt.Sprintf("%d", comp.WithholdingCents),
	}, fmt.Sprintf("balance_cents=%d", comp.BalanceCents))

	return comp
}

// walkBrackets applies each marginal rate to the slice of income falling in
// its range. Rounding happens per bracket so the same policy governs every
// row; a single-pass calculation over the same table yields the same total.
func walkBrackets(table string, taxableCents int64, brackets []rules.Bracket, trace *TraceRecorder) (int64, []BracketTax) {
	var total int64
	breakdown := make([]BracketTax, 0, len(brackets))

	for _, b := range brackets {
		if taxableCents <= b.MinCents {
			break
		}
		upper := b.MaxCents
		if upper == 0 || taxableCents < upper {
			upper = taxableCents
		}
		slice := upper - b.MinCents
		tax := applyRateBps(slice, b.RateBps)
		total += tax

		breakdown = append(breakdown, BracketTax{
			MinCents:     b.MinCents,
			MaxCents:     b.MaxCents,
			RateBps:      b.RateBps,
			TaxableCents: slice,
			TaxCents:     tax,
		})
		trace.Record(StageBrackets, "bracket_tax", map[string]string{
			"table":         table,
			"bracket_min":   fmt.Sprintf("%d", b.MinCents),
			"bracket_max":   fmt.Sprintf("%d", b.MaxCents),
			"rate_bps":      fmt.Sprintf("%d", b.RateBps),
			"taxable_slice": fmt.Sprintf("%d", slice),
		}, fmt.Sprintf("tax_cents=%d", tax))
	}

	return total, breakdown
}
