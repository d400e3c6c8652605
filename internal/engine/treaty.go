package engine

import (
	"fmt"

	"github.com/nratax/nratax-api/internal/rules"
)

// resolveTreaty matches one sourced item against the active treaty table and
// fills in its treaty outcome and post-treaty taxable amount. Matching is
// exact on (country, income type, visa class); a clause with an empty visa
// class matches any visa. Partial matches are NoMatchingClause, never the
// closest clause. More than one matching clause is a ruleset authoring
// defect and fails the whole computation.
func resolveTreaty(item *SourcedIncomeItem, residency ResidencyDetermination, snapshot TaxpayerSnapshot, ruleset *rules.Ruleset, trace *TraceRecorder) error {
	country := snapshot.ResidenceCountry

	record := func(outcome TreatyOutcome) {
		item.Treaty = outcome
		trace.Record(StageTreaty, "treaty_resolution", map[string]string{
			"item_id":     item.Item.ItemID.String(),
			"country":     country,
			"income_type": string(item.Item.Type),
			"visa_class":  snapshot.VisaClass,
		}, fmt.Sprintf("%s exemption_cents=%d", outcome.Kind, outcome.ExemptionCents))
	}

	// Foreign-sourced income is outside US taxing jurisdiction for a
	// nonresident, so there is nothing for a treaty to exempt.
	if item.Source != SourceUS {
		record(TreatyOutcome{
			Kind:      TreatyNotApplicable,
			Rationale: "foreign-sourced income is not US-taxable for a nonresident",
		})
		item.TaxableCents = 0
		return nil
	}

	item.TaxableCents = item.Item.AmountCents

	// Resident aliens are taxed as US persons; treaty benefits for them are
	// out of scope for this engine.
	if residency.Status == ResidentAlien {
		record(TreatyOutcome{
			Kind:      TreatyNotApplicable,
			Rationale: "resident alien taxed as a US person",
		})
		return nil
	}

	if !ruleset.HasTreatyWith(country) {
		record(TreatyOutcome{
			Kind:      TreatyNotApplicable,
			Rationale: fmt.Sprintf("no tax treaty with %s in ruleset %s", country, ruleset.Version),
		})
		return nil
	}

	var matches []rules.TreatyClause
	for _, clause := range ruleset.TreatyClauses {
		if clause.Country != country || clause.IncomeType != string(item.Item.Type) {
			continue
		}
		if clause.VisaClass != "" && clause.VisaClass != snapshot.VisaClass {
			continue
		}
		if clause.PeriodYears > 0 {
			// Period-limited clauses (teacher/researcher articles) only
			// apply within the first N years of presence. An unknown
			// years-present count means the clause cannot be matched.
			if snapshot.YearsPresentBefore == nil || *snapshot.YearsPresentBefore >= clause.PeriodYears {
				continue
			}
		}
		matches = append(matches, clause)
	}

	switch len(matches) {
	case 0:
		record(TreatyOutcome{
			Kind: TreatyNoMatchingClause,
			Rationale: fmt.Sprintf("treaty with %s has no clause matching (%s, %s)",
				country, item.Item.Type, snapshot.VisaClass),
		})
		return nil
	case 1:
		// fall through to application below
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ClauseID
		}
		return newEngineError(StageTreaty, ReasonAmbiguousTreatyMatch,
			"clauses %v all match (%s, %s, %s) in ruleset %s; overlapping table rows are an authoring defect",
			ids, country, item.Item.Type, snapshot.VisaClass, ruleset.Version)
	}

	clause := matches[0]
	exemption := item.Item.AmountCents
	if !clause.FullExemption && exemption > clause.ExemptionCents {
		exemption = clause.ExemptionCents
	}

	outcome := TreatyOutcome{
		Kind:           TreatyApplied,
		ClauseID:       clause.ClauseID,
		Article:        clause.Article,
		ExemptionCents: exemption,
		Rationale:      fmt.Sprintf("%s %s: %s", clause.Article, clause.ClauseID, clause.Description),
	}

	if clause.CapCents > 0 && exemption > clause.CapCents {
		outcome.ExemptionCents = clause.CapCents
		outcome.CappedAtCents = clause.CapCents
		trace.Record(StageTreaty, "treaty_cap_truncation", map[string]string{
			"item_id":          item.Item.ItemID.String(),
			"clause_id":        clause.ClauseID,
			"uncapped_benefit": fmt.Sprintf("%d", exemption),
			"cap_cents":        fmt.Sprintf("%d", clause.CapCents),
		}, fmt.Sprintf("exemption truncated to %d", clause.CapCents))
	}

	item.TaxableCents = item.Item.AmountCents - outcome.ExemptionCents
	record(outcome)
	return nil
}
