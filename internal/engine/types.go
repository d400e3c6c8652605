package engine

import (
	"time"

	"github.com/google/uuid"
)

// IncomeType is the closed set of normalized income classifications the
// engine understands. Codes outside this set are rejected, never defaulted.
type IncomeType string

const (
	IncomeTypeWage            IncomeType = "wage"
	IncomeTypeInterest        IncomeType = "interest"
	IncomeTypeDividend        IncomeType = "dividend"
	IncomeTypeNonEmployeeComp IncomeType = "nonemployee_compensation"
	IncomeTypeScholarship     IncomeType = "scholarship"
	IncomeTypeFellowship      IncomeType = "fellowship"
)

// TaxpayerSnapshot is the immutable demographic and presence input for one
// computation. It is built once from externally validated data; the engine
// never mutates it.
type TaxpayerSnapshot struct {
	TaxpayerID       uuid.UUID `json:"taxpayer_id"`
	TaxYear          int       `json:"tax_year"`
	ResidenceCountry string    `json:"residence_country"`
	VisaClass        string    `json:"visa_class"`
	StateCode        string    `json:"state_code,omitempty"`

	// Days physically present in the US for the tax year and the two prior
	// calendar years.
	DaysCurrentYear int `json:"days_current_year"`
	DaysPriorYear   int `json:"days_prior_year"`
	DaysTwoYearsAgo int `json:"days_two_years_ago"`

	// YearsPresentBefore is the count of calendar years the taxpayer held
	// exempt status before the tax year. Nil means the fact is not known;
	// the residency classifier must not guess it.
	YearsPresentBefore *int `json:"years_present_before,omitempty"`

	// PriorYearResident records a residency claim for the preceding year.
	PriorYearResident bool `json:"prior_year_resident"`
}

// IncomeItem is one normalized income record. Amounts are minor-unit
// integers; the engine performs no floating-point money arithmetic.
type IncomeItem struct {
	ItemID           uuid.UUID  `json:"item_id"`
	Type             IncomeType `json:"type"`
	AmountCents      int64      `json:"amount_cents"`
	Currency         string     `json:"currency"`
	PayerCountry     string     `json:"payer_country"`
	WorkCountry      string     `json:"work_country,omitempty"` // empty means US
	WithholdingCents int64      `json:"withholding_cents"`
}

// ResidencyStatus is the outcome of the residency classifier.
type ResidencyStatus string

const (
	ResidentAlien          ResidencyStatus = "resident_alien"
	NonresidentAlien       ResidencyStatus = "nonresident_alien"
	DualStatus             ResidencyStatus = "dual_status"
	ResidencyIndeterminate ResidencyStatus = "indeterminate"
)

// PresenceBreakdown shows the day-count arithmetic behind a residency
// determination. CountableCurrentDays differs from DaysCurrentYear when an
// exempt-individual rule zeroed otherwise-countable days.
type PresenceBreakdown struct {
	DaysCurrentYear      int `json:"days_current_year"`
	DaysPriorYear        int `json:"days_prior_year"`
	DaysTwoYearsAgo      int `json:"days_two_years_ago"`
	CountableCurrentDays int `json:"countable_current_days"`
	WeightedPriorDays    int `json:"weighted_prior_days"`
	WeightedTwoYearsAgo  int `json:"weighted_two_years_ago"`
	WeightedTotal        int `json:"weighted_total"`
}

// ResidencyDetermination is the residency classifier's output.
type ResidencyDetermination struct {
	Status          ResidencyStatus   `json:"status"`
	Method          string            `json:"method"`
	ExceptionClause string            `json:"exception_clause,omitempty"`
	Breakdown       PresenceBreakdown `json:"breakdown"`
	Reasoning       string            `json:"reasoning"`
}

// SourceJurisdiction classifies an income item as US- or foreign-sourced.
type SourceJurisdiction string

const (
	SourceUS      SourceJurisdiction = "US"
	SourceForeign SourceJurisdiction = "FOREIGN"
)

// TreatyOutcomeKind is the closed set of treaty resolution outcomes.
type TreatyOutcomeKind string

const (
	// TreatyNotApplicable means no treaty question arises: the taxpayer is
	// a resident alien, the item is foreign-sourced, or the country has no
	// treaty in the ruleset.
	TreatyNotApplicable TreatyOutcomeKind = "not_applicable"
	// TreatyNoMatchingClause means the country has a treaty but no clause
	// exactly matches (country, income type, visa class). This is a valid
	// terminal state routed to human review, never the "closest" clause.
	TreatyNoMatchingClause TreatyOutcomeKind = "no_matching_clause"
	// TreatyApplied means a single clause matched and its exemption was
	// applied, capped at the clause limit.
	TreatyApplied TreatyOutcomeKind = "applied"
)

// TreatyOutcome records how the treaty resolver disposed of one item.
type TreatyOutcome struct {
	Kind           TreatyOutcomeKind `json:"kind"`
	ClauseID       string            `json:"clause_id,omitempty"`
	Article        string            `json:"article,omitempty"`
	ExemptionCents int64             `json:"exemption_cents"`
	CappedAtCents  int64             `json:"capped_at_cents,omitempty"`
	Rationale      string            `json:"rationale"`
}

// SourcedIncomeItem is an IncomeItem after sourcing and treaty resolution.
// TaxableCents is the post-treaty US-taxable amount; foreign-sourced items
// carry zero.
type SourcedIncomeItem struct {
	Item         IncomeItem         `json:"item"`
	Source       SourceJurisdiction `json:"source"`
	SourcingRule string             `json:"sourcing_rule"`
	Treaty       TreatyOutcome      `json:"treaty"`
	TaxableCents int64              `json:"taxable_cents"`
}

// BracketTax is the tax computed within a single bracket row.
type BracketTax struct {
	MinCents     int64 `json:"min_cents"`
	MaxCents     int64 `json:"max_cents"`
	RateBps      int64 `json:"rate_bps"`
	TaxableCents int64 `json:"taxable_cents"`
	TaxCents     int64 `json:"tax_cents"`
}

// TaxComputation is the bracket walk plus withholding reconciliation.
// BalanceCents is signed: positive is balance due, negative is a refund.
type TaxComputation struct {
	TaxableIncomeCents int64 `json:"taxable_income_cents"`

	FederalTaxCents int64        `json:"federal_tax_cents"`
	FederalBrackets []BracketTax `json:"federal_brackets"`

	StateCode           string       `json:"state_code,omitempty"`
	StateDeductionCents int64        `json:"state_deduction_cents,omitempty"`
	StateTaxCents       int64        `json:"state_tax_cents"`
	StateBrackets       []BracketTax `json:"state_brackets,omitempty"`

	TotalTaxCents    int64 `json:"total_tax_cents"`
	WithholdingCents int64 `json:"withholding_cents"`
	BalanceCents     int64 `json:"balance_cents"`
}

// ReviewFlag is a structured, machine-routable marker for a non-mechanical
// judgment call (indeterminate residency, unmatched treaty clause). Flags
// are domain outcomes, not errors; a flagged computation still completes.
type ReviewFlag struct {
	Stage  string            `json:"stage"`
	Reason string            `json:"reason"`
	Detail map[string]string `json:"detail,omitempty"`
}

// Review flag reason codes. Stable across ruleset versions so downstream
// routing never parses free text.
const (
	FlagResidencyIndeterminate = "residency_indeterminate"
	FlagDualStatus             = "dual_status_year"
	FlagNoMatchingClause       = "no_matching_treaty_clause"
)

// ComputationResult is the terminal output of one evaluation. The engine
// leaves ComputationID and ComputedAt zero; the caller assigns them when the
// result is recorded, which keeps Evaluate itself a pure function.
type ComputationResult struct {
	ComputationID  uuid.UUID `json:"computation_id"`
	TaxpayerID     uuid.UUID `json:"taxpayer_id"`
	TaxYear        int       `json:"tax_year"`
	RulesetVersion string    `json:"ruleset_version"`

	Residency ResidencyDetermination `json:"residency"`
	Items     []SourcedIncomeItem    `json:"items"`
	Tax       TaxComputation         `json:"tax"`
	Flags     []ReviewFlag           `json:"flags,omitempty"`
	Trace     ComputationTrace       `json:"trace"`

	ComputedAt time.Time `json:"computed_at"`
}
