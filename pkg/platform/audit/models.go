// Package audit defines the transport-agnostic audit event model for the
// risk gate. Domain services emit events through a Publisher; stores and
// sinks fan out from there. These events are operational telemetry about who
// did what; the evaluation evidence itself lives in the risk audit records,
// not here.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: gate releases, manual overrides of blocking decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: precheck hard blocks, rejected override attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	ProposalID string
	RunID      int64
	Actor      string // identity of the requesting user, or "system"
	Action     string // one of the AuditEvent constants
	Decision   string // outcome of the action (e.g. "blocked", "released")
	Reason     string // why, as a rule identifier, never user content
	IP         string // client IP, for security forensics
	UserAgent  string
	RequestID  string // correlation ID from HTTP request context
}

type AuditEvent string

const (
	// Gate events
	EventGateAnalyzed        AuditEvent = "gate_analyzed"
	EventGateBlocked         AuditEvent = "gate_blocked"
	EventGateReleased        AuditEvent = "gate_released"
	EventGateOverridden      AuditEvent = "gate_overridden"
	EventOverrideRejected    AuditEvent = "override_rejected"
	EventPrecheckHardBlocked AuditEvent = "precheck_hard_blocked"

	// Proposal events
	EventProposalCreated AuditEvent = "proposal_created"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - regulatory-significant gate outcomes
	EventGateReleased:   CategoryCompliance,
	EventGateOverridden: CategoryCompliance,

	// Security events - feed into SIEM and alerting
	EventGateBlocked:         CategorySecurity,
	EventOverrideRejected:    CategorySecurity,
	EventPrecheckHardBlocked: CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventGateAnalyzed:    CategoryOperations,
	EventProposalCreated: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
