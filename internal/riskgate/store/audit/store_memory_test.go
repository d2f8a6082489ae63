package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/internal/riskgate"
	dErrors "riskgate/pkg/domain-errors"
)

func record(proposalID string, action riskgate.DecisionAction) riskgate.RiskAuditRecord {
	return riskgate.RiskAuditRecord{
		ProposalID:  proposalID,
		TriggeredBy: "reviewer@example.test",
		DecisionAction: action,
	}
}

func TestInMemoryStore_RecordAssignsIDAndTime(t *testing.T) {
	store := NewInMemoryStore()
	rec, err := store.Record(context.Background(), record("p1", riskgate.ActionReleased))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestInMemoryStore_LatestOrdersByCreatedAtThenID(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	first := record("p1", riskgate.ActionBlocked)
	first.CreatedAt = now
	_, err := store.Record(ctx, first)
	require.NoError(t, err)

	// Same timestamp: the higher ID wins.
	second := record("p1", riskgate.ActionOverridden)
	second.CreatedAt = now
	stored, err := store.Record(ctx, second)
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, latest.ID)
	assert.Equal(t, riskgate.ActionOverridden, latest.DecisionAction)
}

func TestInMemoryStore_LatestNotFound(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Latest(context.Background(), "missing")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestInMemoryStore_GetByID(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	stored, err := store.Record(ctx, record("p1", riskgate.ActionBlocked))
	require.NoError(t, err)

	got, err := store.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ProposalID, got.ProposalID)

	_, err = store.GetByID(ctx, 999)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestInMemoryStore_AppendNeverMutatesPriorRecords(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	first, err := store.Record(ctx, record("p1", riskgate.ActionBlocked))
	require.NoError(t, err)
	before := store.All()

	_, err = store.Record(ctx, record("p1", riskgate.ActionOverridden))
	require.NoError(t, err)

	after := store.All()
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0], "existing record must not change on append")
	assert.Equal(t, first.DecisionAction, after[0].DecisionAction)
}

func TestInMemoryStore_ListByProposalNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Record(ctx, record("p1", riskgate.ActionBlocked))
	require.NoError(t, err)
	_, err = store.Record(ctx, record("p2", riskgate.ActionReleased))
	require.NoError(t, err)
	_, err = store.Record(ctx, record("p1", riskgate.ActionOverridden))
	require.NoError(t, err)

	records, err := store.ListByProposal(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, riskgate.ActionOverridden, records[0].DecisionAction)
	assert.Equal(t, riskgate.ActionBlocked, records[1].DecisionAction)
}
