package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"riskgate/internal/riskgate"
	dErrors "riskgate/pkg/domain-errors"
)

// PostgresStore persists risk audit records in PostgreSQL. The three summary
// documents are stored verbatim as jsonb for audit replay; the scalar gate
// outcome columns are denormalized for filtering and reporting.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	id, proposal_id, triggered_by, model_used,
	precheck_summary, ai_summary, combined_summary,
	overall_risk_level, risk_score, can_release, decision_action,
	override_applied, override_reason, override_by, created_at
`

func (s *PostgresStore) Record(ctx context.Context, rec riskgate.RiskAuditRecord) (riskgate.RiskAuditRecord, error) {
	precheckJSON, err := json.Marshal(rec.PrecheckSummary)
	if err != nil {
		return riskgate.RiskAuditRecord{}, fmt.Errorf("marshal precheck summary: %w", err)
	}
	combinedJSON, err := json.Marshal(rec.CombinedSummary)
	if err != nil {
		return riskgate.RiskAuditRecord{}, fmt.Errorf("marshal combined summary: %w", err)
	}
	var aiJSON []byte
	if rec.AISummary != nil {
		aiJSON, err = json.Marshal(rec.AISummary)
		if err != nil {
			return riskgate.RiskAuditRecord{}, fmt.Errorf("marshal ai summary: %w", err)
		}
	}

	query := `
		INSERT INTO risk_audit_records (
			proposal_id, triggered_by, model_used,
			precheck_summary, ai_summary, combined_summary,
			overall_risk_level, risk_score, can_release, decision_action,
			override_applied, override_reason, override_by, created_at
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), NOW())
		RETURNING id, created_at
	`
	err = s.db.QueryRowContext(ctx, query,
		rec.ProposalID,
		rec.TriggeredBy,
		rec.ModelUsed,
		precheckJSON,
		nullableJSON(aiJSON),
		combinedJSON,
		string(rec.OverallRiskLevel),
		rec.RiskScore,
		rec.CanRelease,
		string(rec.DecisionAction),
		rec.OverrideApplied,
		rec.OverrideReason,
		rec.OverrideBy,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return riskgate.RiskAuditRecord{}, fmt.Errorf("insert risk audit record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Latest(ctx context.Context, proposalID string) (riskgate.RiskAuditRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM risk_audit_records
		WHERE proposal_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, proposalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeNotFound, "no audit record for proposal")
		}
		return riskgate.RiskAuditRecord{}, fmt.Errorf("latest risk audit record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, runID int64) (riskgate.RiskAuditRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM risk_audit_records
		WHERE id = $1
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		if err == sql.ErrNoRows {
			return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeNotFound, "audit record not found")
		}
		return riskgate.RiskAuditRecord{}, fmt.Errorf("get risk audit record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByProposal(ctx context.Context, proposalID string) ([]riskgate.RiskAuditRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM risk_audit_records
		WHERE proposal_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("list risk audit records: %w", err)
	}
	defer rows.Close()

	var out []riskgate.RiskAuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk audit record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk audit records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (riskgate.RiskAuditRecord, error) {
	var (
		rec            riskgate.RiskAuditRecord
		modelUsed      sql.NullString
		overrideReason sql.NullString
		overrideBy     sql.NullString
		level          string
		action         string
		precheckJSON   []byte
		aiJSON         []byte
		combinedJSON   []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.ProposalID,
		&rec.TriggeredBy,
		&modelUsed,
		&precheckJSON,
		&aiJSON,
		&combinedJSON,
		&level,
		&rec.RiskScore,
		&rec.CanRelease,
		&action,
		&rec.OverrideApplied,
		&overrideReason,
		&overrideBy,
		&rec.CreatedAt,
	)
	if err != nil {
		return riskgate.RiskAuditRecord{}, err
	}

	rec.ModelUsed = modelUsed.String
	rec.OverrideReason = overrideReason.String
	rec.OverrideBy = overrideBy.String
	rec.OverallRiskLevel = riskgate.RiskLevel(level)
	rec.DecisionAction = riskgate.DecisionAction(action)

	if err := json.Unmarshal(precheckJSON, &rec.PrecheckSummary); err != nil {
		return riskgate.RiskAuditRecord{}, fmt.Errorf("unmarshal precheck summary: %w", err)
	}
	if len(aiJSON) > 0 {
		var ai riskgate.AISummary
		if err := json.Unmarshal(aiJSON, &ai); err != nil {
			return riskgate.RiskAuditRecord{}, fmt.Errorf("unmarshal ai summary: %w", err)
		}
		rec.AISummary = &ai
	}
	if err := json.Unmarshal(combinedJSON, &rec.CombinedSummary); err != nil {
		return riskgate.RiskAuditRecord{}, fmt.Errorf("unmarshal combined summary: %w", err)
	}
	return rec, nil
}

// nullableJSON maps an absent document to SQL NULL instead of an empty blob.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
