package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

type jobStorage struct {
	store  *Store
	logger *common.Logger
}

// NewJobStorage creates a JobStore backed by BadgerHold.
func NewJobStorage(store *Store, logger *common.Logger) interfaces.JobStore {
	return &jobStorage{store: store, logger: logger}
}

func (s *jobStorage) SaveJob(_ context.Context, job *models.ProcessingJob) error {
	if err := s.store.db.Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job '%s': %w", job.ID, err)
	}
	return nil
}

func (s *jobStorage) GetJob(_ context.Context, id string) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	err := s.store.db.Get(id, &job)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job '%s': %w", id, err)
	}
	return &job, nil
}

func (s *jobStorage) GetActiveJob(_ context.Context) (*models.ProcessingJob, error) {
	var jobs []models.ProcessingJob
	err := s.store.db.Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing))
	if err != nil {
		return nil, fmt.Errorf("failed to find active job: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

func (s *jobStorage) ListJobs(_ context.Context, limit int) ([]*models.ProcessingJob, error) {
	if limit <= 0 {
		limit = 20
	}

	var jobs []models.ProcessingJob
	if err := s.store.db.Find(&jobs, nil); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	result := make([]*models.ProcessingJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *jobStorage) SaveBatch(_ context.Context, batch *models.Batch) error {
	if err := s.store.db.Upsert(batch.BatchKey(), batch); err != nil {
		return fmt.Errorf("failed to save batch %d of job '%s': %w", batch.Number, batch.JobID, err)
	}
	return nil
}

func (s *jobStorage) GetBatch(_ context.Context, jobID string, number int) (*models.Batch, error) {
	key := (&models.Batch{JobID: jobID, Number: number}).BatchKey()

	var batch models.Batch
	err := s.store.db.Get(key, &batch)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch '%s': %w", key, err)
	}
	return &batch, nil
}

func (s *jobStorage) ListBatches(_ context.Context, jobID string) ([]*models.Batch, error) {
	var batches []models.Batch
	err := s.store.db.Find(&batches, badgerhold.Where("JobID").Eq(jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to list batches for job '%s': %w", jobID, err)
	}

	sort.Slice(batches, func(i, j int) bool {
		return batches[i].Number < batches[j].Number
	})

	result := make([]*models.Batch, len(batches))
	for i := range batches {
		result[i] = &batches[i]
	}
	return result, nil
}
