package interfaces

import (
	"context"

	"github.com/bobmcallan/finscan/internal/models"
)

// SymbolStore is the symbol universe registry.
type SymbolStore interface {
	Upsert(ctx context.Context, symbol *models.Symbol) error
	Get(ctx context.Context, key string) (*models.Symbol, error)
	// ListPage returns one page of the universe in stable symbol order.
	// Pages are 1-based.
	ListPage(ctx context.Context, page, pageSize int) ([]*models.Symbol, error)
	Count(ctx context.Context) (int, error)
}

// FinancialStore persists normalized per-period statement records.
// Writes are upserts keyed by (symbol, fiscal year, fiscal quarter).
type FinancialStore interface {
	UpsertPeriod(ctx context.Context, period *models.FinancialPeriod) error
	// GetPeriods returns all stored periods for a symbol, most recent first.
	GetPeriods(ctx context.Context, symbol string) ([]*models.FinancialPeriod, error)
}

// GrowthStore persists derived EPS growth records.
// Writes are upserts keyed by (symbol, year, quarter) so re-running the
// pipeline is idempotent.
type GrowthStore interface {
	Upsert(ctx context.Context, record *models.EPSGrowthRecord) error
	UpsertBatch(ctx context.Context, records []*models.EPSGrowthRecord) error
	// Ranking returns a sorted, paginated page of growth records.
	Ranking(ctx context.Context, query models.RankingQuery) (*models.RankingResponse, error)
	Count(ctx context.Context) (int, error)
}

// JobStore persists processing jobs and their batch descriptors.
// Only the orchestrator writes job and batch state.
type JobStore interface {
	SaveJob(ctx context.Context, job *models.ProcessingJob) error
	GetJob(ctx context.Context, id string) (*models.ProcessingJob, error)
	// GetActiveJob returns the single in-flight job, or nil when none exists.
	GetActiveJob(ctx context.Context) (*models.ProcessingJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.ProcessingJob, error)
	SaveBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, jobID string, number int) (*models.Batch, error)
	ListBatches(ctx context.Context, jobID string) ([]*models.Batch, error)
}

// StorageManager aggregates the store implementations behind one handle.
type StorageManager interface {
	SymbolStore() SymbolStore
	FinancialStore() FinancialStore
	GrowthStore() GrowthStore
	JobStore() JobStore
	Close() error
}
