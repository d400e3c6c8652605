package rules

import (
	"fmt"
)

// Bracket is one row of a progressive tax table. Amounts are minor-unit
// (cent) integers; the rate is expressed in basis points so bracket math
// never touches binary floating point. A MaxCents of zero marks the
// open-ended top bracket.
type Bracket struct {
	MinCents int64 `json:"min_cents"`
	MaxCents int64 `json:"max_cents"`
	RateBps  int64 `json:"rate_bps"`
}

// TreatyClause is one row of the treaty benefit table, keyed by
// (country, income type, visa class). An empty VisaClass matches any visa.
// FullExemption marks clauses that exempt the whole eligible amount;
// otherwise ExemptionCents is the fixed exemption. CapCents is the per-year
// benefit ceiling; zero means uncapped.
type TreatyClause struct {
	ClauseID       string `json:"clause_id"`
	Country        string `json:"country"`
	IncomeType     string `json:"income_type"`
	VisaClass      string `json:"visa_class,omitempty"`
	Article        string `json:"article"`
	Description    string `json:"description"`
	FullExemption  bool   `json:"full_exemption"`
	ExemptionCents int64  `json:"exemption_cents"`
	CapCents       int64  `json:"cap_cents"`

	// PeriodYears limits the clause to taxpayers within their first N years
	// of presence (teacher and researcher articles). Zero means no limit.
	PeriodYears int `json:"period_years,omitempty"`
}

// StateTable holds one state's bracket table and standard deduction. States
// without an income tax carry an empty bracket list.
type StateTable struct {
	Brackets               []Bracket `json:"brackets"`
	StandardDeductionCents int64     `json:"standard_deduction_cents"`
}

// PresenceTest holds the substantial presence test constants for a year.
// Weighted days = current + prior/PriorDivisor + twoPrior/TwoPriorDivisor,
// truncating integer division.
type PresenceTest struct {
	ThresholdDays   int `json:"threshold_days"`
	MinCurrentDays  int `json:"min_current_days"`
	PriorDivisor    int `json:"prior_divisor"`
	TwoPriorDivisor int `json:"two_prior_divisor"`
}

// FICARates carries the year's payroll tax constants. Kept with the ruleset
// so withholding cross-checks reference the same version as everything else.
type FICARates struct {
	SocialSecurityBps           int64 `json:"social_security_bps"`
	MedicareBps                 int64 `json:"medicare_bps"`
	AdditionalMedicareBps       int64 `json:"additional_medicare_bps"`
	AdditionalMedicareFloor     int64 `json:"additional_medicare_floor_cents"`
	SocialSecurityWageBaseCents int64 `json:"social_security_wage_base_cents"`
}

// Ruleset is an immutable, versioned bundle of the constants a single
// computation needs. Rulesets are never edited after publication; a
// correction ships as a new version.
type Ruleset struct {
	Version string `json:"version"`
	TaxYear int    `json:"tax_year"`

	Presence PresenceTest `json:"presence"`

	// ExemptVisaYears maps a visa class to the number of calendar years its
	// holder is an exempt individual for the presence test.
	ExemptVisaYears map[string]int `json:"exempt_visa_years"`

	FederalBrackets []Bracket             `json:"federal_brackets"`
	StateTables     map[string]StateTable `json:"state_tables"`
	TreatyClauses   []TreatyClause        `json:"treaty_clauses"`

	// ScholarshipSourcing names the sourcing rule for scholarship and
	// fellowship income. The only supported value is "payer_residence".
	ScholarshipSourcing string `json:"scholarship_sourcing"`

	// RoundingPolicy is the per-bracket cent rounding rule. The only
	// supported value is "half_up"; it is spelled out rather than assumed so
	// a future ruleset can change it deliberately.
	RoundingPolicy string `json:"rounding_policy"`

	FICA FICARates `json:"fica"`
}

// HasTreatyWith reports whether the ruleset carries any treaty clause for
// the given country.
func (r *Ruleset) HasTreatyWith(country string) bool {
	for _, c := range r.TreatyClauses {
		if c.Country == country {
			return true
		}
	}
	return false
}

// StateTable returns the bracket table for a state, if the ruleset has one.
func (r *Ruleset) StateTableFor(state string) (StateTable, bool) {
	t, ok := r.StateTables[state]
	return t, ok
}

// Validate checks the ruleset for authoring defects: bracket tables must be
// ascending, contiguous and start at zero, and the treaty table must not
// contain duplicate keys. A ruleset that fails validation must never be used
// for a computation.
func (r *Ruleset) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("ruleset has no version tag")
	}
	if r.TaxYear <= 0 {
		return fmt.Errorf("ruleset %s has no tax year", r.Version)
	}
	if r.Presence.ThresholdDays <= 0 || r.Presence.PriorDivisor <= 0 || r.Presence.TwoPriorDivisor <= 0 {
		return fmt.Errorf("ruleset %s has malformed presence test constants", r.Version)
	}
	if r.RoundingPolicy != "half_up" {
		return fmt.Errorf("ruleset %s has unsupported rounding policy %q", r.Version, r.RoundingPolicy)
	}
	if r.ScholarshipSourcing != "payer_residence" {
		return fmt.Errorf("ruleset %s has unsupported scholarship sourcing rule %q", r.Version, r.ScholarshipSourcing)
	}

	if err := validateBrackets("federal", r.FederalBrackets); err != nil {
		return fmt.Errorf("ruleset %s: %w", r.Version, err)
	}
	if len(r.FederalBrackets) == 0 {
		return fmt.Errorf("ruleset %s has no federal bracket table", r.Version)
	}
	for state, table := range r.StateTables {
		if err := validateBrackets(state, table.Brackets); err != nil {
			return fmt.Errorf("ruleset %s: %w", r.Version, err)
		}
	}

	if r.FICA.SocialSecurityBps <= 0 || r.FICA.MedicareBps <= 0 || r.FICA.SocialSecurityWageBaseCents <= 0 {
		return fmt.Errorf("ruleset %s has malformed FICA rates", r.Version)
	}

	seen := make(map[string]string, len(r.TreatyClauses))
	for _, c := range r.TreatyClauses {
		if c.ClauseID == "" {
			return fmt.Errorf("ruleset %s has a treaty clause without an id", r.Version)
		}
		key := c.Country + "|" + c.IncomeType + "|" + c.VisaClass
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("ruleset %s has duplicate treaty clauses %s and %s for (%s, %s, %q)",
				r.Version, prev, c.ClauseID, c.Country, c.IncomeType, c.VisaClass)
		}
		seen[key] = c.ClauseID
		if !c.FullExemption && c.ExemptionCents <= 0 {
			return fmt.Errorf("ruleset %s: treaty clause %s grants no benefit", r.Version, c.ClauseID)
		}
	}

	return nil
}

func validateBrackets(table string, brackets []Bracket) error {
	for i, b := range brackets {
		if b.RateBps < 0 {
			return fmt.Errorf("%s bracket table has negative rate at row %d", table, i)
		}
		if i == 0 {
			if b.MinCents != 0 {
				return fmt.Errorf("%s bracket table does not start at zero", table)
			}
		} else if b.MinCents != brackets[i-1].MaxCents {
			return fmt.Errorf("%s bracket table is not contiguous at row %d", table, i)
		}
		if i < len(brackets)-1 {
			if b.MaxCents <= b.MinCents {
				return fmt.Errorf("%s bracket table has non-ascending row %d", table, i)
			}
		} else if b.MaxCents != 0 {
			return fmt.Errorf("%s bracket table has no open-ended top bracket", table)
		}
	}
	return nil
}
