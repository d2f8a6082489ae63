package precheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/internal/proposal"
	"riskgate/internal/riskgate"
)

func completeProposal() proposal.Proposal {
	return proposal.Proposal{
		Title:      "Data Platform Migration",
		ClientName: "Acme Corp",
		Status:     proposal.StatusInReview,
		Sections: map[string]string{
			"Executive Summary":    "We will migrate the legacy data platform to the cloud.",
			"Scope & Deliverables": "Migration of 12 pipelines and 3 dashboards.",
			"Delivery Approach":    "Three phases over six months.",
			"Assumptions":          "Client provides environment access within two weeks.",
			"Risks":                "Legacy system documentation may be incomplete.",
		},
	}
}

func TestRun_CompleteProposalIsClean(t *testing.T) {
	summary := Run(completeProposal(), Options{})
	assert.Empty(t, summary.TriggeredRules)
	assert.Zero(t, summary.RiskScore)
	assert.Equal(t, riskgate.LevelLow, summary.RiskLevel)
	assert.False(t, summary.HardBlock)
}

func TestRun_MissingTitleAndClient(t *testing.T) {
	p := completeProposal()
	p.Title = "  "
	p.ClientName = ""
	summary := Run(p, Options{})
	assert.Contains(t, summary.TriggeredRules, RuleMissingTitle)
	assert.Contains(t, summary.TriggeredRules, RuleMissingClient)
	assert.Equal(t, 20, summary.RiskScore)
	assert.Equal(t, riskgate.LevelMedium, summary.RiskLevel)
	assert.False(t, summary.HardBlock)
}

func TestRun_MissingAndEmptySections(t *testing.T) {
	p := completeProposal()
	delete(p.Sections, "Risks")
	p.Sections["Assumptions"] = "   "
	summary := Run(p, Options{})
	assert.Contains(t, summary.TriggeredRules, RuleMissingSection)
	assert.Contains(t, summary.TriggeredRules, RuleEmptySection)
}

func TestRun_SectionTitleMatchIsCaseInsensitive(t *testing.T) {
	p := completeProposal()
	body := p.Sections["Executive Summary"]
	delete(p.Sections, "Executive Summary")
	p.Sections["EXECUTIVE SUMMARY"] = body
	summary := Run(p, Options{})
	assert.NotContains(t, summary.TriggeredRules, RuleMissingSection)
}

func TestRun_PlaceholderText(t *testing.T) {
	p := completeProposal()
	p.Sections["Assumptions"] = "Pricing TBD after discovery."
	summary := Run(p, Options{})
	assert.Contains(t, summary.TriggeredRules, RulePlaceholderText)
}

func TestRun_PlaceholderDoesNotFireInsideWords(t *testing.T) {
	p := completeProposal()
	p.Sections["Delivery Approach"] = "All outbound traffic is routed through the VPN."
	summary := Run(p, Options{})
	assert.NotContains(t, summary.TriggeredRules, RulePlaceholderText)
}

func TestRun_ForbiddenTerm(t *testing.T) {
	p := completeProposal()
	p.Sections["Scope & Deliverables"] = "We accept unlimited liability for data loss."
	summary := Run(p, Options{})
	assert.Contains(t, summary.TriggeredRules, RuleForbiddenTerm)
	assert.Equal(t, riskgate.LevelHigh, summary.RiskLevel)
}

func TestRun_CustomForbiddenTerms(t *testing.T) {
	p := completeProposal()
	p.Sections["Risks"] = "This project is mission critical overdrive."
	summary := Run(p, Options{ForbiddenTerms: []string{"mission critical overdrive"}})
	assert.Contains(t, summary.TriggeredRules, RuleForbiddenTerm)

	// Defaults no longer apply when a custom list is set.
	p.Sections["Risks"] = "We accept unlimited liability."
	summary = Run(p, Options{ForbiddenTerms: []string{"mission critical overdrive"}})
	assert.NotContains(t, summary.TriggeredRules, RuleForbiddenTerm)
}

func TestRun_SensitiveDataHardBlocks(t *testing.T) {
	p := completeProposal()
	p.Sections["Assumptions"] = "Contact jane.doe@example.com for access."
	summary := Run(p, Options{})

	require.True(t, summary.HardBlock)
	assert.Equal(t, riskgate.LevelBlocked, summary.RiskLevel)
	assert.Equal(t, 100, summary.RiskScore)
	assert.Contains(t, summary.TriggeredRules, RuleSensitiveData)
	assert.Contains(t, summary.BlockReasons, "email")

	// The flagged value never appears in the summary.
	for _, issue := range summary.Issues {
		assert.NotContains(t, issue.Description, "jane.doe@example.com")
		assert.NotContains(t, issue.Recommendation, "jane.doe@example.com")
	}
}

func TestRun_ScoreIsClamped(t *testing.T) {
	p := proposal.Proposal{Sections: map[string]string{
		"Intro": "We accept unlimited liability and uncapped liability with a perpetual license and a guaranteed outcome, TBD.",
	}}
	summary := Run(p, Options{})
	assert.LessOrEqual(t, summary.RiskScore, 100)
	assert.False(t, summary.HardBlock)
}
