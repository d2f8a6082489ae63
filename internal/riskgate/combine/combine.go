// Package combine merges the precheck and assessor outputs into a single
// gate verdict. Pure function; all policy knobs arrive explicitly.
package combine

import (
	"math"

	"riskgate/internal/riskgate"
)

// Policy is the release gate policy. Zero values fall back to defaults via
// Normalize, so an unconfigured deployment still gates.
type Policy struct {
	// BlockingLevel is the first risk level that blocks release.
	BlockingLevel riskgate.RiskLevel
	// BlockingScore blocks release when the combined score reaches it.
	BlockingScore int
	// PrecheckWeight and AIWeight combine the two numeric scores. They
	// should sum to 1.
	PrecheckWeight float64
	AIWeight       float64
}

// DefaultPolicy blocks at high severity or a combined score of 80, weighting
// the assessor's opinion over the local rules.
func DefaultPolicy() Policy {
	return Policy{
		BlockingLevel:  riskgate.LevelHigh,
		BlockingScore:  80,
		PrecheckWeight: 0.4,
		AIWeight:       0.6,
	}
}

// Normalize fills zero fields from the default policy.
func (p Policy) Normalize() Policy {
	def := DefaultPolicy()
	if p.BlockingLevel == "" {
		p.BlockingLevel = def.BlockingLevel
	}
	if p.BlockingScore <= 0 {
		p.BlockingScore = def.BlockingScore
	}
	if p.PrecheckWeight <= 0 && p.AIWeight <= 0 {
		p.PrecheckWeight = def.PrecheckWeight
		p.AIWeight = def.AIWeight
	}
	return p
}

// Combine merges the two summaries under the policy. A precheck hard block
// wins unconditionally: level "blocked", no release, regardless of any
// assessor output (the assessor is skipped on hard block, so ai is nil on
// that path).
func Combine(precheck riskgate.PrecheckSummary, ai *riskgate.AISummary, policy Policy) riskgate.CombinedSummary {
	policy = policy.Normalize()

	if precheck.HardBlock {
		return riskgate.CombinedSummary{
			OverallRiskLevel: riskgate.LevelBlocked,
			RiskScore:        100,
			CanRelease:       false,
			Issues:           precheck.Issues,
			Summary:          "Release blocked: sensitive data detected during precheck.",
		}
	}

	issues := append([]riskgate.Issue{}, precheck.Issues...)
	level := precheck.RiskLevel
	score := float64(precheck.RiskScore)
	summaryText := ""

	if ai != nil {
		issues = append(issues, ai.Issues...)
		level = riskgate.MaxLevel(level, ai.OverallRiskLevel)
		score = policy.PrecheckWeight*float64(precheck.RiskScore) + policy.AIWeight*float64(ai.RiskScore)
		summaryText = ai.Summary
	}

	combinedScore := int(math.Round(score))
	if combinedScore < 0 {
		combinedScore = 0
	}
	if combinedScore > 100 {
		combinedScore = 100
	}

	canRelease := !level.AtLeast(policy.BlockingLevel) && combinedScore < policy.BlockingScore

	return riskgate.CombinedSummary{
		OverallRiskLevel: level,
		RiskScore:        combinedScore,
		CanRelease:       canRelease,
		Issues:           issues,
		Summary:          summaryText,
	}
}
