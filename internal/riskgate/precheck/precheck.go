// Package precheck runs the deterministic, local risk rules against a
// proposal. It is a pure function of its inputs and performs no I/O: rules
// that would need external data belong in the assessor, not here.
package precheck

import (
	"fmt"
	"strings"

	"riskgate/internal/proposal"
	"riskgate/internal/riskgate"
	"riskgate/internal/riskgate/sanitize"
)

// RequiredSections are the section titles every releasable proposal must
// contain with non-empty bodies. Matching is case-insensitive.
var RequiredSections = []string{
	"Executive Summary",
	"Scope & Deliverables",
	"Delivery Approach",
	"Assumptions",
	"Risks",
}

// placeholderMarkers flag unfinished content left in a document.
var placeholderMarkers = []string{
	"tbd",
	"to be defined",
	"to be determined",
	"todo",
	"lorem ipsum",
	"xxx",
}

// DefaultForbiddenTerms are commitments the business never releases without
// legal review. Configurable per deployment via Options.
var DefaultForbiddenTerms = []string{
	"unlimited liability",
	"uncapped liability",
	"perpetual license",
	"guaranteed outcome",
}

// Rule identifiers, stable across releases so audit records stay comparable.
const (
	RuleMissingTitle    = "missing_title"
	RuleMissingClient   = "missing_client"
	RuleMissingSection  = "missing_section"
	RuleEmptySection    = "empty_section"
	RulePlaceholderText = "placeholder_text"
	RuleForbiddenTerm   = "forbidden_term"
	RuleSensitiveData   = "sensitive_data"
)

// severity weights feed the precheck risk score.
var ruleWeights = map[string]int{
	RuleMissingTitle:    10,
	RuleMissingClient:   10,
	RuleMissingSection:  10,
	RuleEmptySection:    8,
	RulePlaceholderText: 5,
	RuleForbiddenTerm:   20,
}

// Options tune the rule set without changing rule semantics.
type Options struct {
	ForbiddenTerms []string
}

// Run evaluates every rule against the proposal and returns the summary.
// A sensitive-data hit is an unconditional hard block: the caller must not
// invoke the external assessor for this proposal.
func Run(p proposal.Proposal, opts Options) riskgate.PrecheckSummary {
	forbidden := opts.ForbiddenTerms
	if forbidden == nil {
		forbidden = DefaultForbiddenTerms
	}

	var (
		triggered []string
		issues    []riskgate.Issue
		score     int
	)

	addIssue := func(rule string, severity riskgate.RiskLevel, section, description, recommendation string) {
		triggered = append(triggered, rule)
		score += ruleWeights[rule]
		issues = append(issues, riskgate.Issue{
			Category:       rule,
			Severity:       severity,
			Section:        section,
			Description:    description,
			Recommendation: recommendation,
		})
	}

	if strings.TrimSpace(p.Title) == "" {
		addIssue(RuleMissingTitle, riskgate.LevelMedium, "Header",
			"Proposal is missing a title",
			"Add a descriptive title")
	}
	if strings.TrimSpace(p.ClientName) == "" {
		addIssue(RuleMissingClient, riskgate.LevelMedium, "Header",
			"Proposal is missing a client name",
			"Identify the client the proposal is for")
	}

	lowerSections := make(map[string]string, len(p.Sections))
	for title, body := range p.Sections {
		lowerSections[strings.ToLower(strings.TrimSpace(title))] = body
	}

	for _, required := range RequiredSections {
		body, ok := lowerSections[strings.ToLower(required)]
		if !ok {
			addIssue(RuleMissingSection, riskgate.LevelMedium, required,
				fmt.Sprintf("Required section %q is missing", required),
				fmt.Sprintf("Add the %q section", required))
			continue
		}
		if strings.TrimSpace(body) == "" {
			addIssue(RuleEmptySection, riskgate.LevelMedium, required,
				fmt.Sprintf("Required section %q is empty", required),
				fmt.Sprintf("Fill in the %q section", required))
		}
	}

	for title, body := range p.Sections {
		lowered := strings.ToLower(body)
		for _, marker := range placeholderMarkers {
			if containsWord(lowered, marker) {
				addIssue(RulePlaceholderText, riskgate.LevelLow, title,
					"Section contains placeholder text",
					"Replace placeholder text with final content")
				break
			}
		}
		for _, term := range forbidden {
			if strings.Contains(lowered, term) {
				addIssue(RuleForbiddenTerm, riskgate.LevelHigh, title,
					fmt.Sprintf("Section contains forbidden term %q", term),
					"Remove or reword the flagged commitment")
			}
		}
	}

	// Sensitive data check runs last over the full document. The reasons are
	// rule identifiers, never the matched text.
	sanitized := sanitize.Sanitize(fullDocument(p))
	if sanitized.Blocked {
		triggered = append(triggered, RuleSensitiveData)
		issues = append(issues, riskgate.Issue{
			Category:    RuleSensitiveData,
			Severity:    riskgate.LevelCritical,
			Description: "Proposal contains sensitive data that must not leave the system",
			Recommendation: "Remove personal data and credentials before release: " +
				strings.Join(sanitized.BlockReasons, ", "),
		})
		score = 100
	}

	if score > 100 {
		score = 100
	}

	summary := riskgate.PrecheckSummary{
		TriggeredRules: triggered,
		Issues:         issues,
		RiskScore:      score,
		RiskLevel:      maxIssueLevel(issues),
		HardBlock:      sanitized.Blocked,
		BlockReasons:   sanitized.BlockReasons,
	}
	if summary.HardBlock {
		summary.RiskLevel = riskgate.LevelBlocked
	}
	return summary
}

// fullDocument flattens the proposal fields the sanitizer must inspect.
func fullDocument(p proposal.Proposal) map[string]string {
	doc := make(map[string]string, len(p.Sections)+2)
	doc["title"] = p.Title
	doc["client_name"] = p.ClientName
	for title, body := range p.Sections {
		doc["section:"+title] = body
	}
	return doc
}

func maxIssueLevel(issues []riskgate.Issue) riskgate.RiskLevel {
	level := riskgate.LevelLow
	for _, issue := range issues {
		level = riskgate.MaxLevel(level, issue.Severity)
	}
	return level
}

// containsWord reports whether text contains marker bounded by non-letter
// characters, so "tbd" does not fire inside e.g. "outbound".
func containsWord(text, marker string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], marker)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(marker)
		beforeOK := start == 0 || !isLetter(text[start-1])
		afterOK := end == len(text) || !isLetter(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
