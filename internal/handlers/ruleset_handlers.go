package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RulesetHandler exposes the published rulesets read-only. Rulesets ship
// with the binary; there is no authoring surface here.
type RulesetHandler struct {
	common *CommonServices
}

// NewRulesetHandler creates a new RulesetHandler instance
func NewRulesetHandler(common *CommonServices) *RulesetHandler {
	return &RulesetHandler{common: common}
}

// ListRulesets returns the published ruleset version tags
func (h *RulesetHandler) ListRulesets(c *gin.Context) {
	sendList(c, h.common.compute.ListRulesetVersions())
}

// GetRuleset returns one ruleset in full, brackets and treaty clauses
// included
func (h *RulesetHandler) GetRuleset(c *gin.Context) {
	version := c.Param("version")

	ruleset, err := h.common.compute.GetRuleset(version)
	if err != nil {
		sendError(c, http.StatusNotFound, "Ruleset version not found", err)
		return
	}

	sendSuccess(c, http.StatusOK, ruleset)
}
