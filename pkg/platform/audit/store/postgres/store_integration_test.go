//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "riskgate/pkg/platform/audit"
	"riskgate/pkg/testutil/containers"
)

func TestStore_AppendWritesEventAndOutboxRow(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := New(pg.DB)
	ctx := context.Background()

	event := audit.Event{
		Timestamp:  time.Now().UTC(),
		ProposalID: "prop-1",
		RunID:      7,
		Actor:      "reviewer@example.test",
		Action:     string(audit.EventGateReleased),
		Decision:   "released",
		RequestID:  "req-123",
	}
	require.NoError(t, store.Append(ctx, event))

	events, err := store.ListByProposal(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, string(audit.EventGateReleased), events[0].Action)
	assert.Equal(t, int64(7), events[0].RunID)

	var outboxCount int
	err = pg.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_outbox WHERE event_type = $1 AND published_at IS NULL`,
		string(audit.EventGateReleased),
	).Scan(&outboxCount)
	require.NoError(t, err)
	assert.Equal(t, 1, outboxCount)
}

func TestStore_ListByProposalNewestFirst(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := New(pg.DB)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	actions := []audit.AuditEvent{
		audit.EventGateAnalyzed,
		audit.EventGateBlocked,
		audit.EventGateOverridden,
	}
	for i, action := range actions {
		require.NoError(t, store.Append(ctx, audit.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			ProposalID: "prop-2",
			Action:     string(action),
		}))
	}
	require.NoError(t, store.Append(ctx, audit.Event{
		Timestamp:  base,
		ProposalID: "other",
		Action:     string(audit.EventGateAnalyzed),
	}))

	events, err := store.ListByProposal(ctx, "prop-2")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, string(audit.EventGateOverridden), events[0].Action)
	assert.Equal(t, string(audit.EventGateAnalyzed), events[2].Action)
}

func TestStore_ListRecentHonorsLimit(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := New(pg.DB)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, audit.Event{
			Timestamp:  time.Now().UTC().Add(time.Duration(i) * time.Second),
			ProposalID: "prop-3",
			Action:     string(audit.EventGateAnalyzed),
		}))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
