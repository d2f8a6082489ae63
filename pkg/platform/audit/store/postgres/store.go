// Package postgres implements audit.Store using the transactional outbox
// pattern. Events are written to the outbox table in the caller's
// transaction and published to Kafka by the outbox publisher; the
// audit_events table is the local materialization used for queries.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "riskgate/pkg/platform/audit"
	txcontext "riskgate/pkg/platform/tx"
)

// Store writes audit events to Postgres.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for proper deserialization by consumers.
type outboxPayload struct {
	ID         string `json:"ID"`
	Category   string `json:"Category"`
	Timestamp  string `json:"Timestamp"`
	ProposalID string `json:"ProposalID,omitempty"`
	RunID      int64  `json:"RunID,omitempty"`
	Actor      string `json:"Actor,omitempty"`
	Action     string `json:"Action"`
	Decision   string `json:"Decision,omitempty"`
	Reason     string `json:"Reason,omitempty"`
	IP         string `json:"IP,omitempty"`
	UserAgent  string `json:"UserAgent,omitempty"`
	RequestID  string `json:"RequestID,omitempty"`
}

// Append writes the event to both the queryable audit_events table and the
// outbox, joining the caller's transaction when one is in context.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Category derives from the action - eventCategories is the source of truth.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:         eventID.String(),
		Category:   string(category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		ProposalID: event.ProposalID,
		RunID:      event.RunID,
		Actor:      event.Actor,
		Action:     event.Action,
		Decision:   event.Decision,
		Reason:     event.Reason,
		IP:         event.IP,
		UserAgent:  event.UserAgent,
		RequestID:  event.RequestID,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Event and outbox row land together or not at all, joining the caller's
	// transaction when one is in context.
	return txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		execer := s.execer(ctx)

		const insertEvent = `
			INSERT INTO audit_events (
				id, category, timestamp, proposal_id, run_id, actor,
				action, decision, reason, ip, user_agent, request_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING
		`
		if _, err := execer.ExecContext(ctx, insertEvent,
			eventID,
			string(category),
			event.Timestamp,
			event.ProposalID,
			event.RunID,
			event.Actor,
			event.Action,
			event.Decision,
			event.Reason,
			event.IP,
			event.UserAgent,
			event.RequestID,
		); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}

		const insertOutbox = `
			INSERT INTO audit_outbox (id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := execer.ExecContext(ctx, insertOutbox,
			eventID,
			event.Action,
			payloadBytes,
			time.Now(),
		); err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
		return nil
	})
}

// ListByProposal returns events for a specific proposal, newest first.
func (s *Store) ListByProposal(ctx context.Context, proposalID string) ([]audit.Event, error) {
	const query = `
		SELECT category, timestamp, proposal_id, run_id, actor,
			   action, decision, reason, ip, user_agent, request_id
		FROM audit_events
		WHERE proposal_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	const query = `
		SELECT category, timestamp, proposal_id, run_id, actor,
			   action, decision, reason, ip, user_agent, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category string
			event    audit.Event
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&event.ProposalID,
			&event.RunID,
			&event.Actor,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.IP,
			&event.UserAgent,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
