package adapters

import (
	"context"

	"campaignmerch_backend/internal/integrity"
	"campaignmerch_backend/internal/scheduler"
)

// SweepEnqueuer adapts the asynq scheduler client to the integrity module's
// sweep scheduling contract.
type SweepEnqueuer struct {
	client *scheduler.Client
}

func NewSweepEnqueuer(client *scheduler.Client) *SweepEnqueuer {
	return &SweepEnqueuer{client: client}
}

var _ integrity.SweepScheduler = (*SweepEnqueuer)(nil)

func (a *SweepEnqueuer) EnqueueSweep(ctx context.Context, requestedBy string) error {
	return a.client.EnqueueSweep(ctx, scheduler.IntegritySweepPayload{RequestedBy: requestedBy})
}
