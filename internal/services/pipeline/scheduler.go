package pipeline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
)

// Scheduler triggers pipeline runs on a cron schedule. A tick that lands
// while a job is still processing is a no-op thanks to Start's idempotency.
type Scheduler struct {
	pipeline interfaces.PipelineService
	logger   *common.Logger
	cron     *cron.Cron
	schedule string
}

// NewScheduler creates a scheduler for the given cron spec. An empty spec
// disables scheduling.
func NewScheduler(pipeline interfaces.PipelineService, logger *common.Logger, schedule string) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
	}
}

// Start registers the pipeline run and begins ticking.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Debug().Msg("Pipeline schedule not configured, scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		job, err := s.pipeline.Start(context.Background())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled pipeline run failed to start")
			return
		}
		s.logger.Info().Str("job_id", job.ID).Msg("Scheduled pipeline run triggered")
	})
	if err != nil {
		return fmt.Errorf("invalid pipeline schedule '%s': %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Pipeline scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running trigger callback.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
