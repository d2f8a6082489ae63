// Package cache holds the Redis-backed gate status cache. The latest gate
// outcome per proposal is read far more often than it changes (the UI polls
// it), so the GET endpoint reads through this cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"riskgate/internal/riskgate"
	platformredis "riskgate/internal/platform/redis"
)

// GateStatus is the cached projection of the latest audit record.
type GateStatus struct {
	RunID            int64                   `json:"run_id"`
	ProposalID       string                  `json:"proposal_id"`
	OverallRiskLevel riskgate.RiskLevel      `json:"overall_risk_level"`
	RiskScore        int                     `json:"risk_score"`
	CanRelease       bool                    `json:"can_release"`
	DecisionAction   riskgate.DecisionAction `json:"decision_action"`
	CreatedAt        time.Time               `json:"created_at"`
}

// FromRecord projects an audit record into its cacheable status.
func FromRecord(rec riskgate.RiskAuditRecord) GateStatus {
	return GateStatus{
		RunID:            rec.ID,
		ProposalID:       rec.ProposalID,
		OverallRiskLevel: rec.OverallRiskLevel,
		RiskScore:        rec.RiskScore,
		CanRelease:       rec.CanRelease,
		DecisionAction:   rec.DecisionAction,
		CreatedAt:        rec.CreatedAt,
	}
}

// StatusCache caches the latest gate status per proposal with a TTL.
// A nil *StatusCache is valid and disables caching.
type StatusCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

// New returns nil when the Redis client is absent, which callers treat as
// cache-off.
func New(client *platformredis.Client, ttl time.Duration) *StatusCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatusCache{client: client, ttl: ttl}
}

func key(proposalID string) string {
	return "riskgate:status:" + proposalID
}

// Get returns the cached status and whether it was present. Cache errors
// degrade to a miss; the caller falls back to the store.
func (c *StatusCache) Get(ctx context.Context, proposalID string) (GateStatus, bool) {
	if c == nil {
		return GateStatus{}, false
	}
	raw, err := c.client.Get(ctx, key(proposalID)).Bytes()
	if err != nil {
		return GateStatus{}, false
	}
	var status GateStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return GateStatus{}, false
	}
	return status, true
}

// Set stores the status under the configured TTL.
func (c *StatusCache) Set(ctx context.Context, status GateStatus) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal gate status: %w", err)
	}
	if err := c.client.Set(ctx, key(status.ProposalID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache gate status: %w", err)
	}
	return nil
}

// Invalidate drops the cached status for a proposal.
func (c *StatusCache) Invalidate(ctx context.Context, proposalID string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, key(proposalID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("invalidate gate status: %w", err)
	}
	return nil
}
