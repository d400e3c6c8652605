package rules

// Ruleset2024v1 is the published 2024 ruleset for nonresident single filers.
// Bracket thresholds and treaty figures are cent values of the statutory
// dollar amounts. Published rulesets are frozen; corrections go out as
// v2024.2, never as edits here.
func Ruleset2024v1() *Ruleset {
	return &Ruleset{
		Version: "v2024.1",
		TaxYear: 2024,

		Presence: PresenceTest{
			ThresholdDays:   183,
			MinCurrentDays:  31,
			PriorDivisor:    3,
			TwoPriorDivisor: 6,
		},

		ExemptVisaYears: map[string]int{
			"F-1":     5,
			"F-1-OPT": 5,
			"M-1":     5,
			"Q-1":     5,
			"J-1":     2,
		},

		FederalBrackets: []Bracket{
			{MinCents: 0, MaxCents: 1_100_000, RateBps: 1000},
			{MinCents: 1_100_000, MaxCents: 4_472_500, RateBps: 1200},
			{MinCents: 4_472_500, MaxCents: 9_537_500, RateBps: 2200},
			{MinCents: 9_537_500, MaxCents: 18_210_000, RateBps: 2400},
			{MinCents: 18_210_000, MaxCents: 23_125_000, RateBps: 3200},
			{MinCents: 23_125_000, MaxCents: 57_812_500, RateBps: 3500},
			{MinCents: 57_812_500, MaxCents: 0, RateBps: 3700},
		},

		StateTables: map[string]StateTable{
			"CA": {
				StandardDeductionCents: 520_200,
				Brackets: []Bracket{
					{MinCents: 0, MaxCents: 1_009_900, RateBps: 100},
					{MinCents: 1_009_900, MaxCents: 2_394_200, RateBps: 200},
					{MinCents: 2_394_200, MaxCents: 3_778_800, RateBps: 400},
					{MinCents: 3_778_800, MaxCents: 5_245_500, RateBps: 600},
					{MinCents: 5_245_500, MaxCents: 6_629_500, RateBps: 800},
					{MinCents: 6_629_500, MaxCents: 33_863_900, RateBps: 930},
					{MinCents: 33_863_900, MaxCents: 40_636_400, RateBps: 1030},
					{MinCents: 40_636_400, MaxCents: 67_727_500, RateBps: 1130},
					{MinCents: 67_727_500, MaxCents: 0, RateBps: 1230},
				},
			},
			"NY": {
				StandardDeductionCents: 800_000,
				Brackets: []Bracket{
					{MinCents: 0, MaxCents: 850_000, RateBps: 400},
					{MinCents: 850_000, MaxCents: 1_170_000, RateBps: 450},
					{MinCents: 1_170_000, MaxCents: 1_390_000, RateBps: 525},
					{MinCents: 1_390_000, MaxCents: 8_065_000, RateBps: 585},
					{MinCents: 8_065_000, MaxCents: 21_540_000, RateBps: 625},
					{MinCents: 21_540_000, MaxCents: 107_755_000, RateBps: 685},
					{MinCents: 107_755_000, MaxCents: 500_000_000, RateBps: 965},
					{MinCents: 500_000_000, MaxCents: 2_500_000_000, RateBps: 1030},
					{MinCents: 2_500_000_000, MaxCents: 0, RateBps: 1090},
				},
			},
			// No state income tax.
			"TX": {},
			"FL": {},
			"WA": {},
		},

		TreatyClauses: []TreatyClause{
			// India, Article 21(2): $5,000 scholarship/fellowship exemption
			// for students.
			{ClauseID: "IN-ART21-SCH-F1", Country: "IN", IncomeType: "scholarship", VisaClass: "F-1",
				Article: "Article 21(2)", Description: "Student scholarship exemption", ExemptionCents: 500_000, CapCents: 500_000},
			{ClauseID: "IN-ART21-SCH-F1OPT", Country: "IN", IncomeType: "scholarship", VisaClass: "F-1-OPT",
				Article: "Article 21(2)", Description: "Student scholarship exemption", ExemptionCents: 500_000, CapCents: 500_000},
			{ClauseID: "IN-ART21-SCH-J1", Country: "IN", IncomeType: "scholarship", VisaClass: "J-1",
				Article: "Article 21(2)", Description: "Student scholarship exemption", ExemptionCents: 500_000, CapCents: 500_000},
			{ClauseID: "IN-ART21-FEL-F1", Country: "IN", IncomeType: "fellowship", VisaClass: "F-1",
				Article: "Article 21(2)", Description: "Student fellowship exemption", ExemptionCents: 500_000, CapCents: 500_000},
			{ClauseID: "IN-ART21-FEL-J1", Country: "IN", IncomeType: "fellowship", VisaClass: "J-1",
				Article: "Article 21(2)", Description: "Student fellowship exemption", ExemptionCents: 500_000, CapCents: 500_000},
			// India, Article 22: teachers and researchers fully exempt on
			// wages for their first two years.
			{ClauseID: "IN-ART22-WAGE-J1", Country: "IN", IncomeType: "wage", VisaClass: "J-1",
				Article: "Article 22", Description: "Teacher/researcher wage exemption", FullExemption: true, PeriodYears: 2},

			// China, Article 20(b): scholarship/fellowship fully exempt for
			// students in training.
			{ClauseID: "CN-ART20B-SCH-F1", Country: "CN", IncomeType: "scholarship", VisaClass: "F-1",
				Article: "Article 20(b)", Description: "Student scholarship exemption", FullExemption: true},
			{ClauseID: "CN-ART20B-SCH-F1OPT", Country: "CN", IncomeType: "scholarship", VisaClass: "F-1-OPT",
				Article: "Article 20(b)", Description: "Student scholarship exemption", FullExemption: true},
			{ClauseID: "CN-ART20B-SCH-J1", Country: "CN", IncomeType: "scholarship", VisaClass: "J-1",
				Article: "Article 20(b)", Description: "Student scholarship exemption", FullExemption: true},
			{ClauseID: "CN-ART20B-FEL-F1", Country: "CN", IncomeType: "fellowship", VisaClass: "F-1",
				Article: "Article 20(b)", Description: "Student fellowship exemption", FullExemption: true},
			// China, Article 20(c): $5,000 of student wages exempt per year.
			{ClauseID: "CN-ART20C-WAGE-F1", Country: "CN", IncomeType: "wage", VisaClass: "F-1",
				Article: "Article 20(c)", Description: "Student earned income exemption", ExemptionCents: 500_000, CapCents: 500_000},
			{ClauseID: "CN-ART20C-WAGE-F1OPT", Country: "CN", IncomeType: "wage", VisaClass: "F-1-OPT",
				Article: "Article 20(c)", Description: "Student earned income exemption", ExemptionCents: 500_000, CapCents: 500_000},
			// China, Article 19: teachers and researchers exempt for three
			// years.
			{ClauseID: "CN-ART19-WAGE-J1", Country: "CN", IncomeType: "wage", VisaClass: "J-1",
				Article: "Article 19", Description: "Teacher/researcher wage exemption", FullExemption: true, PeriodYears: 3},

			// Canada, Article XX: scholarship income fully exempt for
			// students regardless of visa class.
			{ClauseID: "CA-ARTXX-SCH", Country: "CA", IncomeType: "scholarship",
				Article: "Article XX", Description: "Student scholarship exemption", FullExemption: true},
			{ClauseID: "CA-ARTXX-FEL", Country: "CA", IncomeType: "fellowship",
				Article: "Article XX", Description: "Student fellowship exemption", FullExemption: true},
		},

		ScholarshipSourcing: "payer_residence",
		RoundingPolicy:      "half_up",

		FICA: FICARates{
			SocialSecurityBps:           620,
			MedicareBps:                 145,
			AdditionalMedicareBps:       90,
			AdditionalMedicareFloor:     20_000_000_00,
			SocialSecurityWageBaseCents: 16_020_000_00,
		},
	}
}
