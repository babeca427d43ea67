package interfaces

import (
	"context"

	"github.com/bobmcallan/finscan/internal/models"
)

// PipelineService orchestrates the EPS growth batch computation.
type PipelineService interface {
	// Start begins a full-universe processing run. Idempotent: when a job is
	// already processing, the existing job is returned unchanged.
	Start(ctx context.Context) (*models.ProcessingJob, error)

	// Resume restarts processing from the last completed-batch checkpoint.
	Resume(ctx context.Context) (*models.ProcessingJob, error)

	// Status returns a point-in-time snapshot of a job.
	Status(ctx context.Context, jobID string) (*models.ProcessingJob, error)

	// OnBatchCompleted registers a listener for validated batch results.
	// Delivery is fire-and-forget with bounded buffering; a slow listener
	// drops events rather than blocking the pipeline.
	OnBatchCompleted(fn func(results []*models.EPSGrowthRecord))

	// SyncListing refreshes the symbol universe for one market.
	SyncListing(ctx context.Context, marketCode string) (int, error)
}

// GrowthService is the read path over already-computed rankings.
type GrowthService interface {
	GetRanking(ctx context.Context, query models.RankingQuery) (*models.RankingResponse, error)
}
