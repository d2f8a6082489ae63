package proposal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dErrors "riskgate/pkg/domain-errors"
)

// PostgresStore persists proposals in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed proposal store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, p Proposal) error {
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("marshal proposal sections: %w", err)
	}
	query := `
		INSERT INTO proposals (id, title, client_name, status, sections, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			client_name = EXCLUDED.client_name,
			status = EXCLUDED.status,
			sections = EXCLUDED.sections,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Title, p.ClientName, string(p.Status), sections, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Proposal, error) {
	var (
		p        Proposal
		status   string
		sections []byte
	)
	query := `
		SELECT id, title, client_name, status, sections, created_at, updated_at
		FROM proposals
		WHERE id = $1
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.ClientName, &status, &sections, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Proposal{}, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return Proposal{}, fmt.Errorf("get proposal: %w", err)
	}
	p.Status = NormalizeStatus(status)
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &p.Sections); err != nil {
			return Proposal{}, fmt.Errorf("unmarshal proposal sections: %w", err)
		}
	}
	return p, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	query := `
		UPDATE proposals
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update proposal status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update proposal status: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	return nil
}
