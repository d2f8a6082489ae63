package proposal

import (
	"context"
)

type Store interface {
	Save(ctx context.Context, p Proposal) error
	Get(ctx context.Context, id string) (Proposal, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
