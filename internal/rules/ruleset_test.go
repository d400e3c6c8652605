package rules_test

import (
	"testing"

	"github.com/nratax/nratax-api/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleset2024v1_Valid(t *testing.T) {
	rs := rules.Ruleset2024v1()

	require.NoError(t, rs.Validate())
	assert.Equal(t, "v2024.1", rs.Version)
	assert.Equal(t, 2024, rs.TaxYear)
	assert.Equal(t, 183, rs.Presence.ThresholdDays)
	assert.Equal(t, 31, rs.Presence.MinCurrentDays)
	assert.Equal(t, 5, rs.ExemptVisaYears["F-1"])
	assert.Equal(t, 2, rs.ExemptVisaYears["J-1"])
	assert.Equal(t, int64(620), rs.FICA.SocialSecurityBps)
	assert.Equal(t, int64(145), rs.FICA.MedicareBps)
}

func TestRuleset_Validate_FICADefects(t *testing.T) {
	rs := rules.Ruleset2024v1()
	rs.FICA.SocialSecurityWageBaseCents = 0

	err := rs.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed FICA rates")
}

func TestRuleset_Validate_BracketDefects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rules.Ruleset)
		errMsg string
	}{
		{
			name: "first bracket not at zero",
			mutate: func(rs *rules.Ruleset) {
				rs.FederalBrackets[0].MinCents = 100
			},
			errMsg: "does not start at zero",
		},
		{
			name: "gap between brackets",
			mutate: func(rs *rules.Ruleset) {
				rs.FederalBrackets[1].MinCents = rs.FederalBrackets[0].MaxCents + 1
			},
			errMsg: "not contiguous",
		},
		{
			name: "capped top bracket",
			mutate: func(rs *rules.Ruleset) {
				rs.FederalBrackets[len(rs.FederalBrackets)-1].MaxCents = 99_999_999_99
			},
			errMsg: "no open-ended top bracket",
		},
		{
			name: "negative rate",
			mutate: func(rs *rules.Ruleset) {
				rs.FederalBrackets[2].RateBps = -1
			},
			errMsg: "negative rate",
		},
		{
			name: "state table defect",
			mutate: func(rs *rules.Ruleset) {
				table := rs.StateTables["CA"]
				table.Brackets[0].MinCents = 50
				rs.StateTables["CA"] = table
			},
			errMsg: "does not start at zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := rules.Ruleset2024v1()
			tt.mutate(rs)
			err := rs.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRuleset_Validate_TreatyDefects(t *testing.T) {
	t.Run("duplicate clause keys", func(t *testing.T) {
		rs := rules.Ruleset2024v1()
		dup := rs.TreatyClauses[0]
		dup.ClauseID = "DUP-1"
		rs.TreatyClauses = append(rs.TreatyClauses, dup)

		err := rs.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate treaty clauses")
	})

	t.Run("clause with no benefit", func(t *testing.T) {
		rs := rules.Ruleset2024v1()
		rs.TreatyClauses = append(rs.TreatyClauses, rules.TreatyClause{
			ClauseID: "EMPTY-1", Country: "MX", IncomeType: "wage",
		})

		err := rs.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "grants no benefit")
	})

	t.Run("missing clause id", func(t *testing.T) {
		rs := rules.Ruleset2024v1()
		rs.TreatyClauses = append(rs.TreatyClauses, rules.TreatyClause{
			Country: "MX", IncomeType: "wage", FullExemption: true,
		})

		err := rs.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without an id")
	})
}

func TestRuleset_HasTreatyWith(t *testing.T) {
	rs := rules.Ruleset2024v1()

	assert.True(t, rs.HasTreatyWith("IN"))
	assert.True(t, rs.HasTreatyWith("CN"))
	assert.True(t, rs.HasTreatyWith("CA"))
	assert.False(t, rs.HasTreatyWith("BR"))
	assert.False(t, rs.HasTreatyWith(""))
}

func TestRepository(t *testing.T) {
	repo, err := rules.DefaultRepository()
	require.NoError(t, err)

	t.Run("get known version", func(t *testing.T) {
		rs, err := repo.Get("v2024.1")
		require.NoError(t, err)
		assert.Equal(t, 2024, rs.TaxYear)
	})

	t.Run("unknown version is an error", func(t *testing.T) {
		_, err := repo.Get("v2019.1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown ruleset version")
	})

	t.Run("versions are listed sorted", func(t *testing.T) {
		assert.Equal(t, []string{"v2024.1"}, repo.Versions())
	})

	t.Run("invalid ruleset rejected at construction", func(t *testing.T) {
		bad := rules.Ruleset2024v1()
		bad.FederalBrackets = nil
		_, err := rules.NewRepository(bad)
		require.Error(t, err)
	})

	t.Run("duplicate version rejected", func(t *testing.T) {
		_, err := rules.NewRepository(rules.Ruleset2024v1(), rules.Ruleset2024v1())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate ruleset version")
	})
}
