//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "riskgate/internal/platform/redis"
	"riskgate/internal/riskgate"
	"riskgate/pkg/testutil/containers"
)

func newStatusCache(t *testing.T, ttl time.Duration) *StatusCache {
	rc := containers.NewRedisContainer(t)
	return New(&platformredis.Client{Client: rc.Client}, ttl)
}

func TestStatusCache_SetGetRoundTrip(t *testing.T) {
	c := newStatusCache(t, time.Minute)
	ctx := context.Background()

	status := GateStatus{
		RunID:            7,
		ProposalID:       "prop-1",
		OverallRiskLevel: riskgate.LevelLow,
		RiskScore:        12,
		CanRelease:       true,
		DecisionAction:   riskgate.ActionReleased,
		CreatedAt:        time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, c.Set(ctx, status))

	got, ok := c.Get(ctx, "prop-1")
	require.True(t, ok)
	assert.Equal(t, status, got)
}

func TestStatusCache_MissAndInvalidate(t *testing.T) {
	c := newStatusCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "unknown")
	assert.False(t, ok)

	status := GateStatus{RunID: 1, ProposalID: "prop-2", DecisionAction: riskgate.ActionBlocked}
	require.NoError(t, c.Set(ctx, status))
	require.NoError(t, c.Invalidate(ctx, "prop-2"))

	_, ok = c.Get(ctx, "prop-2")
	assert.False(t, ok)
}

func TestStatusCache_EntriesExpire(t *testing.T) {
	c := newStatusCache(t, time.Second)
	ctx := context.Background()

	status := GateStatus{RunID: 2, ProposalID: "prop-3", DecisionAction: riskgate.ActionReleased}
	require.NoError(t, c.Set(ctx, status))

	_, ok := c.Get(ctx, "prop-3")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "prop-3")
		return !ok
	}, 5*time.Second, 200*time.Millisecond)
}
