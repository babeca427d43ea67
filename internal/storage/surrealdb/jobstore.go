package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

const jobSelectFields = "job_id AS id, total_symbols, processed_symbols, last_processed_symbol, current_batch, status, started_at, completed_at, error"

const batchSelectFields = "job_id, number, symbols, results, status, error"

// JobStore implements interfaces.JobStore using SurrealDB.
type JobStore struct {
	store  *Store
	logger *common.Logger
}

// NewJobStore creates a new JobStore.
func NewJobStore(store *Store, logger *common.Logger) *JobStore {
	return &JobStore{store: store, logger: logger}
}

func (s *JobStore) SaveJob(ctx context.Context, job *models.ProcessingJob) error {
	sql := `UPSERT $rid SET
		job_id = $job_id, total_symbols = $total, processed_symbols = $processed,
		last_processed_symbol = $last, current_batch = $batch, status = $status,
		started_at = $started, completed_at = $completed, error = $error`
	vars := map[string]any{
		"rid":       surrealmodels.NewRecordID("processing_job", job.ID),
		"job_id":    job.ID,
		"total":     job.TotalSymbols,
		"processed": job.ProcessedSymbols,
		"last":      job.LastProcessedSymbol,
		"batch":     job.CurrentBatch,
		"status":    job.Status,
		"started":   job.StartedAt,
		"completed": job.CompletedAt,
		"error":     job.Error,
	}

	if _, err := surrealdb.Query[any](ctx, s.store.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, id string) (*models.ProcessingJob, error) {
	sql := "SELECT " + jobSelectFields + " FROM processing_job WHERE job_id = $id LIMIT 1"
	vars := map[string]any{"id": id}

	results, err := surrealdb.Query[[]models.ProcessingJob](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if job, ok := firstResult(results); ok {
		return &job, nil
	}
	return nil, nil
}

func (s *JobStore) GetActiveJob(ctx context.Context) (*models.ProcessingJob, error) {
	sql := "SELECT " + jobSelectFields + " FROM processing_job WHERE status = $processing LIMIT 1"
	vars := map[string]any{"processing": models.JobStatusProcessing}

	results, err := surrealdb.Query[[]models.ProcessingJob](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get active job: %w", err)
	}

	if job, ok := firstResult(results); ok {
		return &job, nil
	}
	return nil, nil
}

func (s *JobStore) ListJobs(ctx context.Context, limit int) ([]*models.ProcessingJob, error) {
	if limit <= 0 {
		limit = 20
	}
	sql := "SELECT " + jobSelectFields + " FROM processing_job ORDER BY started_at DESC LIMIT $limit"
	vars := map[string]any{"limit": limit}

	results, err := surrealdb.Query[[]models.ProcessingJob](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return allResults(results), nil
}

func (s *JobStore) SaveBatch(ctx context.Context, batch *models.Batch) error {
	sql := `UPSERT $rid SET
		job_id = $job_id, number = $number, symbols = $symbols,
		results = $results, status = $status, error = $error`
	vars := map[string]any{
		"rid":     surrealmodels.NewRecordID("batch", batch.BatchKey()),
		"job_id":  batch.JobID,
		"number":  batch.Number,
		"symbols": batch.Symbols,
		"results": batch.Results,
		"status":  batch.Status,
		"error":   batch.Error,
	}

	if _, err := surrealdb.Query[any](ctx, s.store.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (s *JobStore) GetBatch(ctx context.Context, jobID string, number int) (*models.Batch, error) {
	sql := "SELECT " + batchSelectFields + " FROM batch WHERE job_id = $job_id AND number = $number LIMIT 1"
	vars := map[string]any{"job_id": jobID, "number": number}

	results, err := surrealdb.Query[[]models.Batch](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	if batch, ok := firstResult(results); ok {
		return &batch, nil
	}
	return nil, nil
}

func (s *JobStore) ListBatches(ctx context.Context, jobID string) ([]*models.Batch, error) {
	sql := "SELECT " + batchSelectFields + " FROM batch WHERE job_id = $job_id ORDER BY number ASC"
	vars := map[string]any{"job_id": jobID}

	results, err := surrealdb.Query[[]models.Batch](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return allResults(results), nil
}

// Compile-time check
var _ interfaces.JobStore = (*JobStore)(nil)
