package engine

import (
	"github.com/google/uuid"
)

// knownIncomeTypes is the closed set the sourcing table covers. Kept next to
// validation so an item with an unknown code is rejected at the boundary,
// before any stage runs.
var knownIncomeTypes = map[IncomeType]bool{
	IncomeTypeWage:            true,
	IncomeTypeInterest:        true,
	IncomeTypeDividend:        true,
	IncomeTypeNonEmployeeComp: true,
	IncomeTypeScholarship:     true,
	IncomeTypeFellowship:      true,
}

// validateSnapshot rejects malformed taxpayer snapshots. Malformed input is
// a hard failure, never substituted with defaults.
func validateSnapshot(snapshot TaxpayerSnapshot) error {
	if snapshot.TaxpayerID == uuid.Nil {
		return newEngineError(StageValidation, ReasonInvalidSnapshot, "snapshot has no taxpayer id")
	}
	if snapshot.TaxYear <= 0 {
		return newEngineError(StageValidation, ReasonInvalidSnapshot, "snapshot has no tax year")
	}
	if snapshot.DaysCurrentYear < 0 || snapshot.DaysPriorYear < 0 || snapshot.DaysTwoYearsAgo < 0 {
		return newEngineError(StageValidation, ReasonInvalidSnapshot,
			"negative presence day count (%d, %d, %d)",
			snapshot.DaysCurrentYear, snapshot.DaysPriorYear, snapshot.DaysTwoYearsAgo)
	}
	if snapshot.DaysCurrentYear > 366 || snapshot.DaysPriorYear > 366 || snapshot.DaysTwoYearsAgo > 366 {
		return newEngineError(StageValidation, ReasonInvalidSnapshot,
			"presence day count exceeds calendar year (%d, %d, %d)",
			snapshot.DaysCurrentYear, snapshot.DaysPriorYear, snapshot.DaysTwoYearsAgo)
	}
	if snapshot.ResidenceCountry == "" {
		return newEngineError(StageValidation, ReasonInvalidSnapshot, "snapshot has no country of tax residence")
	}
	if snapshot.YearsPresentBefore != nil && *snapshot.YearsPresentBefore < 0 {
		return newEngineError(StageValidation, ReasonInvalidSnapshot,
			"negative years-present count %d", *snapshot.YearsPresentBefore)
	}
	return nil
}

// validateItems rejects malformed income items. Items arrive pre-normalized
// from the extraction pipeline, but the engine still refuses anything that
// would poison the arithmetic: non-positive amounts, unknown type codes, or
// withholding that exceeds the item amount.
func validateItems(items []IncomeItem) error {
	for i, item := range items {
		if item.ItemID == uuid.Nil {
			return newEngineError(StageValidation, ReasonInvalidItem, "item %d has no id", i)
		}
		if !knownIncomeTypes[item.Type] {
			return newEngineError(StageSourcing, ReasonUnmappedIncomeType,
				"item %s has unmapped income type %q", item.ItemID, item.Type)
		}
		if item.AmountCents < 0 {
			return newEngineError(StageValidation, ReasonInvalidItem,
				"item %s has negative amount %d", item.ItemID, item.AmountCents)
		}
		if item.Currency == "" {
			return newEngineError(StageValidation, ReasonInvalidItem, "item %s has no currency", item.ItemID)
		}
		if item.PayerCountry == "" {
			return newEngineError(StageValidation, ReasonInvalidItem, "item %s has no payer country", item.ItemID)
		}
		if item.WithholdingCents < 0 || item.WithholdingCents > item.AmountCents {
			return newEngineError(StageValidation, ReasonInvalidItem,
				"item %s withholding %d outside [0, %d]", item.ItemID, item.WithholdingCents, item.AmountCents)
		}
	}
	return nil
}
