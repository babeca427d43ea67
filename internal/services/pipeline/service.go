// Package pipeline orchestrates the full-universe EPS growth computation:
// batching, bounded-concurrency fetching, checkpointing, and event fanout.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
	"github.com/bobmcallan/finscan/internal/services/growth"
)

// universePageSize is the symbol store page size used when materializing the
// full universe for a run.
const universePageSize = 500

// Service runs the batch pipeline. At most one processing job is in flight at
// a time; Start is idempotent against the active job and Resume picks up from
// the last completed-batch checkpoint.
type Service struct {
	client  interfaces.FinancialSourceClient
	storage interfaces.StorageManager
	logger  *common.Logger
	config  common.PipelineConfig

	pool *WorkerPool
	bus  *Bus
	hub  *Hub

	mu        sync.Mutex
	running   bool
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// NewService creates the pipeline service and wires the WebSocket hub into
// the event bus.
func NewService(
	client interfaces.FinancialSourceClient,
	storage interfaces.StorageManager,
	logger *common.Logger,
	config common.PipelineConfig,
) *Service {
	s := &Service{
		client:  client,
		storage: storage,
		logger:  logger,
		config:  config,
		pool:    NewWorkerPool(client, storage.FinancialStore(), logger, config),
		bus:     NewBus(logger),
		hub:     NewHub(logger),
	}

	s.bus.Subscribe("websocket", s.hub.Broadcast)
	s.safeGo("websocket-hub", s.hub.Run)

	return s
}

// Hub returns the WebSocket hub for handler registration.
func (s *Service) Hub() *Hub {
	return s.hub
}

// safeGo launches a goroutine with panic recovery and logging.
func (s *Service) safeGo(name string, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in pipeline goroutine")
			}
		}()
		fn()
	}()
}

// Shutdown cancels any in-flight run and stops the hub and event bus.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	s.mu.Unlock()

	s.hub.Stop()
	s.wg.Wait()
	s.bus.Close()
	s.logger.Info().Msg("Pipeline service stopped")
}

// Start begins a full-universe run. When a job is already processing, the
// existing job is returned unchanged.
func (s *Service) Start(ctx context.Context) (*models.ProcessingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.storage.JobStore().GetActiveJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active job: %w", err)
	}
	if active != nil {
		s.logger.Info().Str("job_id", active.ID).Msg("Processing job already active, returning it")
		return active, nil
	}

	universe, err := s.loadUniverse(ctx)
	if err != nil {
		return nil, err
	}
	if len(universe) == 0 {
		return nil, fmt.Errorf("symbol universe is empty, sync a listing first")
	}

	job := &models.ProcessingJob{
		ID:           uuid.NewString(),
		TotalSymbols: len(universe),
		Status:       models.JobStatusProcessing,
		StartedAt:    time.Now(),
	}
	if err := s.storage.JobStore().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save new job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int("total_symbols", job.TotalSymbols).
		Msg("Processing job started")

	s.launch(job, universe, 1)

	snapshot := *job
	return &snapshot, nil
}

// Resume restarts the interrupted or failed job from its checkpoint. The
// batch that was in flight when processing stopped is reprocessed; completed
// batches are not.
func (s *Service) Resume(ctx context.Context) (*models.ProcessingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.resumableJob(ctx)
	if err != nil {
		return nil, err
	}

	universe, err := s.loadUniverse(ctx)
	if err != nil {
		return nil, err
	}

	remaining := remainingSymbols(universe, job.LastProcessedSymbol, job.ProcessedSymbols)
	if len(remaining) == 0 {
		job.Status = models.JobStatusCompleted
		job.CompletedAt = time.Now()
		if err := s.storage.JobStore().SaveJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to finalize job: %w", err)
		}
		return job, nil
	}

	job.Status = models.JobStatusProcessing
	job.Error = ""
	if err := s.storage.JobStore().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save resumed job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int("processed", job.ProcessedSymbols).
		Int("remaining", len(remaining)).
		Int("next_batch", job.CurrentBatch+1).
		Msg("Resuming processing job from checkpoint")

	s.launch(job, remaining, job.CurrentBatch+1)

	snapshot := *job
	return &snapshot, nil
}

// resumableJob picks the job to resume: the stale processing job left by a
// crash, or the most recent errored job. Callers hold s.mu.
func (s *Service) resumableJob(ctx context.Context) (*models.ProcessingJob, error) {
	active, err := s.storage.JobStore().GetActiveJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active job: %w", err)
	}
	if active != nil {
		if s.running {
			return nil, fmt.Errorf("job '%s' is already running", active.ID)
		}
		return active, nil
	}

	jobs, err := s.storage.JobStore().ListJobs(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(jobs) == 0 || jobs[0].Status != models.JobStatusError {
		return nil, fmt.Errorf("no interrupted job to resume")
	}
	return jobs[0], nil
}

// Status returns a point-in-time snapshot of a job, or nil when unknown.
func (s *Service) Status(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	return s.storage.JobStore().GetJob(ctx, jobID)
}

// OnBatchCompleted registers a listener for validated batch results.
func (s *Service) OnBatchCompleted(fn func(results []*models.EPSGrowthRecord)) {
	s.bus.Subscribe("batch-listener", func(event *models.PipelineEvent) {
		if event.Type == models.EventBatchCompleted {
			fn(event.Results)
		}
	})
}

// launch starts the background run for a job. Callers hold s.mu.
func (s *Service) launch(job *models.ProcessingJob, symbols []*models.Symbol, firstBatch int) {
	runCtx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.runCancel = cancel

	s.bus.Publish(&models.PipelineEvent{Type: models.EventJobStarted, JobID: job.ID})

	s.safeGo("pipeline-run", func() {
		defer cancel()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		s.run(runCtx, job, symbols, firstBatch)
	})
}

// run processes symbols batch by batch, advancing the job checkpoint only
// when a batch fully completes. A structural failure (timeout, storage error)
// halts the job; per-symbol failures inside a batch do not.
func (s *Service) run(ctx context.Context, job *models.ProcessingJob, symbols []*models.Symbol, firstBatch int) {
	batchSize := s.config.GetBatchSize()
	batchTimeout := s.config.GetBatchTimeout()

	// Fresh runs persist the whole batch plan before any symbol is fetched,
	// so the pending descriptors are inspectable while the job is in flight.
	if firstBatch == 1 {
		number := firstBatch
		for start := 0; start < len(symbols); start += batchSize {
			end := start + batchSize
			if end > len(symbols) {
				end = len(symbols)
			}
			descriptor := &models.Batch{
				JobID:   job.ID,
				Number:  number,
				Symbols: symbolKeys(symbols[start:end]),
				Status:  models.BatchStatusPending,
			}
			if err := s.storage.JobStore().SaveBatch(ctx, descriptor); err != nil {
				s.failJob(job, descriptor, fmt.Errorf("failed to save batch plan: %w", err))
				return
			}
			number++
		}
	}

	number := firstBatch
	for start := 0; start < len(symbols); start += batchSize {
		end := start + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batchSymbols := symbols[start:end]

		batch := &models.Batch{
			JobID:   job.ID,
			Number:  number,
			Symbols: symbolKeys(batchSymbols),
			Status:  models.BatchStatusProcessing,
		}
		if err := s.storage.JobStore().SaveBatch(ctx, batch); err != nil {
			s.failJob(job, batch, fmt.Errorf("failed to save batch: %w", err))
			return
		}

		result, err := s.runBatch(ctx, batchSymbols, batchTimeout)
		if err != nil {
			s.failJob(job, batch, err)
			return
		}

		if err := s.storage.GrowthStore().UpsertBatch(ctx, result.Records); err != nil {
			s.failJob(job, batch, fmt.Errorf("failed to persist growth records: %w", err))
			return
		}

		batch.Results = result.Records
		batch.Status = models.BatchStatusCompleted
		if err := s.storage.JobStore().SaveBatch(ctx, batch); err != nil {
			s.failJob(job, batch, fmt.Errorf("failed to save completed batch: %w", err))
			return
		}

		// Checkpoint advance: only after the batch and its results are durable.
		job.ProcessedSymbols += len(batchSymbols)
		job.LastProcessedSymbol = batchSymbols[len(batchSymbols)-1].Key()
		job.CurrentBatch = number
		if err := s.storage.JobStore().SaveJob(ctx, job); err != nil {
			s.failJob(job, batch, fmt.Errorf("failed to checkpoint job: %w", err))
			return
		}

		s.logger.Info().
			Str("job_id", job.ID).
			Int("batch", number).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Int("no_data", result.NoData).
			Int("records", len(result.Records)).
			Msg("Batch completed")

		// An all-failed or all-no-data batch completes quietly.
		if len(result.Records) > 0 {
			s.bus.Publish(&models.PipelineEvent{
				Type:        models.EventBatchCompleted,
				JobID:       job.ID,
				BatchNumber: number,
				Results:     result.Records,
			})
		}

		number++
	}

	s.finalizeRanks(context.Background())

	job.Status = models.JobStatusCompleted
	job.CompletedAt = time.Now()
	if err := s.storage.JobStore().SaveJob(context.Background(), job); err != nil {
		s.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to finalize completed job")
		return
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int("processed", job.ProcessedSymbols).
		Msg("Processing job completed")

	s.bus.Publish(&models.PipelineEvent{Type: models.EventJobCompleted, JobID: job.ID})
}

// runBatch executes one batch under its deadline.
func (s *Service) runBatch(ctx context.Context, symbols []*models.Symbol, timeout time.Duration) (*BatchResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.pool.ProcessBatch(ctx, symbols)
}

// failJob marks the batch and job failed. The checkpoint is left at the last
// completed batch so Resume reprocesses only this one.
func (s *Service) failJob(job *models.ProcessingJob, batch *models.Batch, cause error) {
	// The run context may already be dead; persistence of failure state uses
	// a fresh one.
	ctx := context.Background()

	batch.Status = models.BatchStatusError
	batch.Error = cause.Error()
	if err := s.storage.JobStore().SaveBatch(ctx, batch); err != nil {
		s.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to save failed batch state")
	}

	job.Status = models.JobStatusError
	job.Error = fmt.Sprintf("batch %d failed: %v", batch.Number, cause)
	job.CompletedAt = time.Now()
	if err := s.storage.JobStore().SaveJob(ctx, job); err != nil {
		s.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to save failed job state")
	}

	s.logger.Error().
		Str("job_id", job.ID).
		Int("batch", batch.Number).
		Err(cause).
		Msg("Processing job halted")

	s.bus.Publish(&models.PipelineEvent{
		Type:        models.EventJobFailed,
		JobID:       job.ID,
		BatchNumber: batch.Number,
	})
}

// finalizeRanks rewrites dense ranks across the whole growth table after a
// completed run. Rank staleness is tolerable; failures here log and move on.
func (s *Service) finalizeRanks(ctx context.Context) {
	store := s.storage.GrowthStore()

	total, err := store.Count(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to count growth records for ranking")
		return
	}
	if total == 0 {
		return
	}

	response, err := store.Ranking(ctx, models.RankingQuery{
		SortBy:    models.SortByEPSGrowth,
		SortOrder: "desc",
		Limit:     total,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load growth records for ranking")
		return
	}

	growth.RankRecords(response.Data)
	if err := store.UpsertBatch(ctx, response.Data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist growth ranks")
		return
	}

	s.logger.Info().Int("records", total).Msg("Growth ranks updated")
}

// loadUniverse materializes the full symbol universe in the store's stable
// page order.
func (s *Service) loadUniverse(ctx context.Context) ([]*models.Symbol, error) {
	var universe []*models.Symbol
	for page := 1; ; page++ {
		symbols, err := s.storage.SymbolStore().ListPage(ctx, page, universePageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load symbol universe: %w", err)
		}
		universe = append(universe, symbols...)
		if len(symbols) < universePageSize {
			return universe, nil
		}
	}
}

// remainingSymbols cuts the universe down to the symbols after the
// checkpoint. When the checkpointed symbol has left the universe, the
// processed count is used as a positional fallback.
func remainingSymbols(universe []*models.Symbol, lastProcessed string, processedCount int) []*models.Symbol {
	if lastProcessed == "" {
		return universe
	}
	for i, s := range universe {
		if s.Key() == lastProcessed {
			return universe[i+1:]
		}
	}
	if processedCount >= len(universe) {
		return nil
	}
	return universe[processedCount:]
}

func symbolKeys(symbols []*models.Symbol) []string {
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = s.Key()
	}
	return keys
}

// Compile-time check
var _ interfaces.PipelineService = (*Service)(nil)
