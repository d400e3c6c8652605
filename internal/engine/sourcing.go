package engine

import (
	"github.com/nratax/nratax-api/internal/rules"
)

// Sourcing rule names recorded in trace entries and sourced items. These
// cite the governing IRC section so the compliance export reads the same way
// a preparer's workpapers would.
const (
	ruleServicesPerformed = "IRC §861(a)(3) services performed in the US"
	rulePayerResidence    = "IRC §861(a)(1) payor residence"
	ruleCorpResidence     = "IRC §861(a)(2) corporation residence"
	ruleGrantorResidence  = "Treas. Reg. §1.863-1(d) grantor residence"
)

// sourceItems assigns each income item a source jurisdiction, preserving
// input order. Validation has already rejected unknown income types, so this
// switch is exhaustive over the closed set; the default arm still fails hard
// in case the two ever drift.
func sourceItems(items []IncomeItem, snapshot TaxpayerSnapshot, ruleset *rules.Ruleset, trace *TraceRecorder) ([]SourcedIncomeItem, error) {
	sourced := make([]SourcedIncomeItem, 0, len(items))

	for _, item := range items {
		var (
			source SourceJurisdiction
			rule   string
		)

		switch item.Type {
		case IncomeTypeWage, IncomeTypeNonEmployeeComp:
			// Compensation sources to where the work was performed; the
			// extraction pipeline leaves WorkCountry empty for US work.
			rule = ruleServicesPerformed
			if item.WorkCountry == "" || item.WorkCountry == "US" {
				source = SourceUS
			} else {
				source = SourceForeign
			}
		case IncomeTypeInterest:
			rule = rulePayerResidence
			source = jurisdictionOf(item.PayerCountry)
		case IncomeTypeDividend:
			rule = ruleCorpResidence
			source = jurisdictionOf(item.PayerCountry)
		case IncomeTypeScholarship, IncomeTypeFellowship:
			// The scholarship sourcing rule is ruleset-owned. Ruleset
			// validation guarantees the value is one we implement.
			rule = scholarshipRule(ruleset.ScholarshipSourcing)
			source = jurisdictionOf(item.PayerCountry)
		default:
			return nil, newEngineError(StageSourcing, ReasonUnmappedIncomeType,
				"item %s has unmapped income type %q", item.ItemID, item.Type)
		}

		trace.Record(StageSourcing, "source_income_item", map[string]string{
			"item_id":       item.ItemID.String(),
			"income_type":   string(item.Type),
			"payer_country": item.PayerCountry,
			"work_country":  item.WorkCountry,
			"rule":          rule,
		}, string(source))

		sourced = append(sourced, SourcedIncomeItem{
			Item:         item,
			Source:       source,
			SourcingRule: rule,
		})
	}

	return sourced, nil
}

// scholarshipRule maps the ruleset's scholarship-sourcing rule name to the
// citation recorded in the trace. Ruleset validation rejects names this
// table does not carry.
var scholarshipRules = map[string]string{
	"payer_residence": ruleGrantorResidence,
}

func scholarshipRule(sourcing string) string {
	return scholarshipRules[sourcing]
}

func jurisdictionOf(country string) SourceJurisdiction {
	if country == "US" {
		return SourceUS
	}
	return SourceForeign
}
