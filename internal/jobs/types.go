package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dvloznov/rosacash/internal/billing"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExportReport builds and exports a user's billing report.
	JobTypeExportReport JobType = "export_report"
	// JobTypeSyncBills mirrors a user's upcoming bills into Notion.
	JobTypeSyncBills JobType = "sync_bills"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is waiting to be retried.
	JobStatusRetrying JobStatus = "retrying"
)

const (
	// DefaultMaxRetries is used when a job is published without MaxRetries.
	DefaultMaxRetries = 3
	// DefaultSyncMonths is how many months of bills a sync covers by default.
	DefaultSyncMonths = 6
)

var (
	// ErrJobNotFound is returned by stores for an unknown job ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidJob is returned for a job whose payload cannot run.
	ErrInvalidJob = errors.New("invalid job")
	// ErrQueueClosed is returned when publishing to a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")
)

// ExportReportJob asks for the report of UserID as of Date (YYYY-MM-DD, empty for today).
type ExportReportJob struct {
	UserID string `json:"user_id"`
	Date   string `json:"date,omitempty"`
}

// SyncBillsJob asks for the next Months bills of UserID to be mirrored into Notion.
type SyncBillsJob struct {
	UserID string `json:"user_id"`
	Months int    `json:"months,omitempty"`
}

// Job is one unit of background work and its execution state.
type Job struct {
	// JobID is the unique identifier for this job.
	JobID  string    `json:"job_id"`
	Type   JobType   `json:"type"`
	Status JobStatus `json:"status"`

	ExportReport *ExportReportJob `json:"export_report,omitempty"`
	SyncBills    *SyncBillsJob    `json:"sync_bills,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details of the last failed attempt.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// NewExportReportJob creates a pending export_report job.
func NewExportReportJob(p ExportReportJob) *Job {
	return &Job{Type: JobTypeExportReport, ExportReport: &p}
}

// NewSyncBillsJob creates a pending sync_bills job.
func NewSyncBillsJob(p SyncBillsJob) *Job {
	return &Job{Type: JobTypeSyncBills, SyncBills: &p}
}

// UserID returns the user the job works for.
func (j *Job) UserID() string {
	switch {
	case j.ExportReport != nil:
		return j.ExportReport.UserID
	case j.SyncBills != nil:
		return j.SyncBills.UserID
	}
	return ""
}

// Validate checks that the payload matches the type and can run.
func (j *Job) Validate() error {
	switch j.Type {
	case JobTypeExportReport:
		if j.ExportReport == nil {
			return billing.NewValidationError("export_report", nil, "payload is required", ErrInvalidJob)
		}
		if strings.TrimSpace(j.ExportReport.UserID) == "" {
			return billing.NewValidationError("user_id", j.ExportReport.UserID, "is required", ErrInvalidJob)
		}
		if j.ExportReport.Date != "" {
			if _, err := billing.ParseDate("date", j.ExportReport.Date); err != nil {
				return err
			}
		}
	case JobTypeSyncBills:
		if j.SyncBills == nil {
			return billing.NewValidationError("sync_bills", nil, "payload is required", ErrInvalidJob)
		}
		if strings.TrimSpace(j.SyncBills.UserID) == "" {
			return billing.NewValidationError("user_id", j.SyncBills.UserID, "is required", ErrInvalidJob)
		}
		if j.SyncBills.Months < 0 {
			return billing.NewValidationError("months", j.SyncBills.Months, "must not be negative", ErrInvalidJob)
		}
	default:
		return billing.NewValidationError("type", string(j.Type), "unknown job type", ErrInvalidJob)
	}
	return nil
}

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations (in-memory, Cloud Tasks, Pub/Sub).
type Publisher interface {
	// Publish enqueues a job, assigning its ID and defaults.
	Publish(ctx context.Context, job *Job) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job *Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID. Unknown IDs return ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Type   JobType
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// IsPermanent reports whether err cannot be fixed by retrying the job.
func IsPermanent(err error) bool {
	var verr *billing.ValidationError
	return errors.Is(err, ErrInvalidJob) || errors.As(err, &verr)
}
