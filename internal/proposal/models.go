package proposal

import (
	"sort"
	"strings"
	"time"

	dErrors "riskgate/pkg/domain-errors"
)

// Status is the proposal lifecycle state. Stored lowercase; inbound values
// are normalized before comparison so "Draft" and "draft" are the same state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusReleased  Status = "released"
	StatusBlocked   Status = "blocked"
	StatusWithdrawn Status = "withdrawn"
)

// NormalizeStatus lowercases and trims an inbound status value.
func NormalizeStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusApproved, StatusReleased, StatusBlocked, StatusWithdrawn:
		return true
	}
	return false
}

// Proposal is a client-facing document under risk review. Sections maps
// section title to body text; the precheck rules key off section titles.
type Proposal struct {
	ID         string
	Title      string
	ClientName string
	Status     Status
	Sections   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks structural requirements before persistence.
func (p Proposal) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "proposal title is required")
	}
	if len(p.Sections) == 0 {
		return dErrors.New(dErrors.CodeValidation, "proposal must have at least one section")
	}
	if !p.Status.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown proposal status %q", p.Status)
	}
	return nil
}

// FullText concatenates all section bodies in a stable order for analysis.
func (p Proposal) FullText() string {
	keys := make([]string, 0, len(p.Sections))
	for k := range p.Sections {
		keys = append(keys, k)
	}
	// Sections render in sorted-title order so analysis input is deterministic.
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("\n")
		b.WriteString(p.Sections[k])
		b.WriteString("\n\n")
	}
	return b.String()
}
