package models

import "time"

// Job status constants. A job moves idle → processing → completed|error.
const (
	JobStatusIdle       = "idle"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// Batch status constants.
const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusError      = "error"
)

// ProcessingJob is the durable checkpoint for a full-universe pipeline run.
// At most one job is in the processing state at a time; the checkpoint fields
// (ProcessedSymbols, LastProcessedSymbol, CurrentBatch) advance only when a
// batch fully completes, so a resumed run reprocesses at most one batch.
type ProcessingJob struct {
	ID                  string    `json:"id"`
	TotalSymbols        int       `json:"total_symbols"`
	ProcessedSymbols    int       `json:"processed_symbols"`
	LastProcessedSymbol string    `json:"last_processed_symbol"`
	CurrentBatch        int       `json:"current_batch"`
	Status              string    `json:"status"`
	StartedAt           time.Time `json:"started_at"`
	CompletedAt         time.Time `json:"completed_at"`
	Error               string    `json:"error,omitempty"`
}

// IsActive reports whether the job is still in flight.
func (j *ProcessingJob) IsActive() bool {
	return j.Status == JobStatusProcessing
}

// Batch is one fixed-size slice of the symbol universe. Batches are owned by
// the orchestrator — workers return results up, they never mutate batch state.
type Batch struct {
	JobID   string             `json:"job_id"`
	Number  int                `json:"number"`
	Symbols []string           `json:"symbols"`
	Results []*EPSGrowthRecord `json:"results,omitempty"`
	Status  string             `json:"status"`
	Error   string             `json:"error,omitempty"`
}

// BatchKey returns the storage key for a batch within its job.
func (b *Batch) BatchKey() string {
	return b.JobID + "#" + itoa4(b.Number)
}

// Pipeline event types broadcast over the event bus and WebSocket hub.
const (
	EventJobStarted     = "job_started"
	EventBatchCompleted = "batch_completed"
	EventJobCompleted   = "job_completed"
	EventJobFailed      = "job_failed"
)

// PipelineEvent is broadcast when pipeline state changes. BatchCompleted
// events carry the batch's validated result set for downstream consumers.
type PipelineEvent struct {
	Type        string             `json:"type"`
	JobID       string             `json:"job_id"`
	BatchNumber int                `json:"batch_number,omitempty"`
	Results     []*EPSGrowthRecord `json:"results,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}
