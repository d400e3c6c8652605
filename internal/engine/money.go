package engine

// applyRateBps multiplies a non-negative cent amount by a rate in basis
// points, rounding half-up at the cent. This is the only place rate math
// happens, so the ruleset's rounding policy is enforced uniformly.
func applyRateBps(amountCents, rateBps int64) int64 {
	return (amountCents*rateBps + 5_000) / 10_000
}
