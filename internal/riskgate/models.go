// Package riskgate defines the shared types of the release risk gate: risk
// levels, issue and summary shapes, and the append-only audit record.
package riskgate

import (
	"time"
)

// RiskLevel is an ordinal severity scale. Blocked is a sentinel above the
// scale used when the precheck hard-blocks a release.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
	LevelBlocked  RiskLevel = "blocked"
)

// levelOrdinals orders levels for max-severity comparison. Unknown levels
// rank as medium so a malformed assessor reply can never rank below real
// findings.
var levelOrdinals = map[RiskLevel]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
	LevelBlocked:  4,
}

// Ordinal returns the level's position on the severity scale.
func (l RiskLevel) Ordinal() int {
	if ord, ok := levelOrdinals[l]; ok {
		return ord
	}
	return levelOrdinals[LevelMedium]
}

// AtLeast reports whether l is at or above other on the severity scale.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Ordinal() >= other.Ordinal()
}

// MaxLevel returns the more severe of two levels.
func MaxLevel(a, b RiskLevel) RiskLevel {
	if a.Ordinal() >= b.Ordinal() {
		return a
	}
	return b
}

// Issue is a single risk finding from either the precheck rules or the
// assessor. Description and Recommendation must never contain flagged
// content, only references to it.
type Issue struct {
	Category       string    `json:"category"`
	Severity       RiskLevel `json:"severity"`
	Section        string    `json:"section,omitempty"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// PrecheckSummary is the deterministic rule engine's output.
type PrecheckSummary struct {
	TriggeredRules []string  `json:"triggered_rules"`
	Issues         []Issue   `json:"issues"`
	RiskScore      int       `json:"risk_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	HardBlock      bool      `json:"hard_block"`
	BlockReasons   []string  `json:"block_reasons,omitempty"`
}

// AISummary is the external assessor's parsed opinion.
type AISummary struct {
	OverallRiskLevel RiskLevel `json:"overall_risk_level"`
	RiskScore        int       `json:"risk_score"`
	Issues           []Issue   `json:"issues"`
	Summary          string    `json:"summary"`
	ModelUsed        string    `json:"model_used,omitempty"`
}

// CombinedSummary is the combiner's verdict.
type CombinedSummary struct {
	OverallRiskLevel RiskLevel `json:"overall_risk_level"`
	RiskScore        int       `json:"risk_score"`
	CanRelease       bool      `json:"can_release"`
	Issues           []Issue   `json:"issues"`
	Summary          string    `json:"summary,omitempty"`
}

// DecisionAction is the action the gate actually took.
type DecisionAction string

const (
	ActionBlocked    DecisionAction = "blocked"
	ActionReleased   DecisionAction = "released"
	ActionOverridden DecisionAction = "overridden"
)

// RiskAuditRecord is one immutable row per evaluation attempt. Records are
// never updated; overrides append a new record referencing the same
// proposal. The latest record for a proposal is the one with the greatest
// (CreatedAt, ID).
type RiskAuditRecord struct {
	ID          int64
	ProposalID  string
	TriggeredBy string
	ModelUsed   string // empty when the precheck blocked before any AI call

	PrecheckSummary PrecheckSummary
	AISummary       *AISummary // nil when the assessor was skipped
	CombinedSummary CombinedSummary

	// Denormalized from CombinedSummary for filtering and reporting.
	OverallRiskLevel RiskLevel
	RiskScore        int
	CanRelease       bool

	DecisionAction DecisionAction

	OverrideApplied bool
	OverrideReason  string
	OverrideBy      string

	CreatedAt time.Time
}
