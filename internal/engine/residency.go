package engine

import (
	"fmt"

	"github.com/nratax/nratax-api/internal/rules"
)

// classifyResidency applies the substantial presence test and its
// exceptions. Indeterminate is a valid terminal state, not an error: it is
// returned whenever an exemption's eligibility depends on a fact the
// snapshot does not carry.
func classifyResidency(snapshot TaxpayerSnapshot, ruleset *rules.Ruleset, trace *TraceRecorder) ResidencyDetermination {
	breakdown := PresenceBreakdown{
		DaysCurrentYear:      snapshot.DaysCurrentYear,
		DaysPriorYear:        snapshot.DaysPriorYear,
		DaysTwoYearsAgo:      snapshot.DaysTwoYearsAgo,
		CountableCurrentDays: snapshot.DaysCurrentYear,
	}

	// Exempt-individual rules run before any day counting and can zero out
	// otherwise-countable days.
	if limit, exempt := ruleset.ExemptVisaYears[snapshot.VisaClass]; exempt {
		if snapshot.YearsPresentBefore == nil {
			trace.Record(StageResidency, "exempt_individual_check", map[string]string{
				"visa_class":           snapshot.VisaClass,
				"exempt_year_limit":    fmt.Sprintf("%d", limit),
				"years_present_before": "unknown",
			}, "indeterminate")
			return ResidencyDetermination{
				Status:    ResidencyIndeterminate,
				Method:    "exempt_individual",
				Breakdown: breakdown,
				Reasoning: fmt.Sprintf("%s is an exempt-individual visa class but total years present is not known", snapshot.VisaClass),
			}
		}

		yearsUsed := *snapshot.YearsPresentBefore
		if yearsUsed < limit {
			// Within the exemption window: presence days do not count, so
			// the taxpayer cannot meet the test regardless of actual days.
			breakdown.CountableCurrentDays = 0
			breakdown.WeightedTotal = 0
			clause := fmt.Sprintf("exempt_individual_%s", snapshot.VisaClass)
			trace.Record(StageResidency, "exempt_individual_check", map[string]string{
				"visa_class":           snapshot.VisaClass,
				"exempt_year_limit":    fmt.Sprintf("%d", limit),
				"years_present_before": fmt.Sprintf("%d", yearsUsed),
			}, "exempt: presence days excluded")
			trace.Record(StageResidency, "residency_determination", nil, string(NonresidentAlien))
			return ResidencyDetermination{
				Status:          NonresidentAlien,
				Method:          "exempt_individual",
				ExceptionClause: clause,
				Breakdown:       breakdown,
				Reasoning: fmt.Sprintf("%s holder within first %d calendar years; presence days excluded from the substantial presence test",
					snapshot.VisaClass, limit),
			}
		}

		trace.Record(StageResidency, "exempt_individual_check", map[string]string{
			"visa_class":           snapshot.VisaClass,
			"exempt_year_limit":    fmt.Sprintf("%d", limit),
			"years_present_before": fmt.Sprintf("%d", yearsUsed),
		}, "exemption window exhausted")
	}

	// Substantial presence test. Divisions truncate by the ruleset's rule;
	// this is the statutory rounding, not language-default rounding.
	breakdown.WeightedPriorDays = snapshot.DaysPriorYear / ruleset.Presence.PriorDivisor
	breakdown.WeightedTwoYearsAgo = snapshot.DaysTwoYearsAgo / ruleset.Presence.TwoPriorDivisor
	breakdown.WeightedTotal = breakdown.CountableCurrentDays + breakdown.WeightedPriorDays + breakdown.WeightedTwoYearsAgo

	meetsTest := breakdown.WeightedTotal >= ruleset.Presence.ThresholdDays &&
		breakdown.CountableCurrentDays >= ruleset.Presence.MinCurrentDays

	trace.Record(StageResidency, "substantial_presence_test", map[string]string{
		"current_days":       fmt.Sprintf("%d", breakdown.CountableCurrentDays),
		"weighted_prior":     fmt.Sprintf("%d", breakdown.WeightedPriorDays),
		"weighted_two_prior": fmt.Sprintf("%d", breakdown.WeightedTwoYearsAgo),
		"weighted_total":     fmt.Sprintf("%d", breakdown.WeightedTotal),
		"threshold":          fmt.Sprintf("%d", ruleset.Presence.ThresholdDays),
		"min_current_days":   fmt.Sprintf("%d", ruleset.Presence.MinCurrentDays),
	}, fmt.Sprintf("meets_test=%t", meetsTest))

	var det ResidencyDetermination
	switch {
	case meetsTest:
		det = ResidencyDetermination{
			Status:    ResidentAlien,
			Method:    "substantial_presence_test",
			Breakdown: breakdown,
			Reasoning: fmt.Sprintf("weighted presence %d meets the %d-day threshold", breakdown.WeightedTotal, ruleset.Presence.ThresholdDays),
		}
	case snapshot.PriorYearResident:
		// Resident last year, fails the test this year: a transition year.
		det = ResidencyDetermination{
			Status:    DualStatus,
			Method:    "substantial_presence_test",
			Breakdown: breakdown,
			Reasoning: "prior-year resident no longer meets the substantial presence test; dual-status year requires review",
		}
	default:
		det = ResidencyDetermination{
			Status:    NonresidentAlien,
			Method:    "substantial_presence_test",
			Breakdown: breakdown,
			Reasoning: fmt.Sprintf("weighted presence %d is below the %d-day threshold", breakdown.WeightedTotal, ruleset.Presence.ThresholdDays),
		}
	}

	trace.Record(StageResidency, "residency_determination", nil, string(det.Status))
	return det
}
