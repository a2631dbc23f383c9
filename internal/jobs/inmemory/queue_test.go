package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/rosacash/internal/jobs"
)

func fastRetry(int) time.Duration { return time.Millisecond }

// waitForStatus polls the store until the job reaches status or the deadline passes.
func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == status {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach status %s, last state: %+v", jobID, status, job)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithRetryDelay(fastRetry))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int32
	if err := q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		handled.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := jobs.NewExportReportJob(jobs.ExportReportJob{UserID: "u1"})
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if job.JobID == "" || job.MaxRetries != jobs.DefaultMaxRetries {
		t.Errorf("Publish() did not fill defaults: %+v", job)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Errorf("completed job missing timestamps: %+v", got)
	}
	if handled.Load() != 1 {
		t.Errorf("handler called %d times, want 1", handled.Load())
	}

	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithRetryDelay(fastRetry))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	var attempts atomic.Int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	job := jobs.NewSyncBillsJob(jobs.SyncBillsJob{UserID: "u1"})
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if got.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", got.RetryCount)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want cleared", got.Error)
	}
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithRetryDelay(fastRetry))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	var attempts atomic.Int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		attempts.Add(1)
		return errors.New("still broken")
	})

	job := jobs.NewExportReportJob(jobs.ExportReportJob{UserID: "u1"})
	job.MaxRetries = 2
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if got.RetryCount != 2 || got.Error != "still broken" {
		t.Errorf("failed job = %+v", got)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestQueue_PermanentErrorIsNotRetried(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithRetryDelay(fastRetry))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	var attempts atomic.Int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		attempts.Add(1)
		return jobs.ErrInvalidJob
	})

	job := jobs.NewExportReportJob(jobs.ExportReportJob{UserID: "u1"})
	_ = q.Publish(ctx, job)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if got.RetryCount != 0 || attempts.Load() != 1 {
		t.Errorf("permanent failure retried: retry_count=%d attempts=%d", got.RetryCount, attempts.Load())
	}
}

func TestQueue_PublishValidation(t *testing.T) {
	q := NewQueue(1, NewStore())
	err := q.Publish(context.Background(), jobs.NewExportReportJob(jobs.ExportReportJob{}))
	if !errors.Is(err, jobs.ErrInvalidJob) {
		t.Errorf("Publish() error = %v, want ErrInvalidJob", err)
	}
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, NewStore())
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	err := q.Publish(context.Background(), jobs.NewExportReportJob(jobs.ExportReportJob{UserID: "u1"}))
	if !errors.Is(err, jobs.ErrQueueClosed) {
		t.Errorf("Publish() error = %v, want ErrQueueClosed", err)
	}
	if err := q.Start(context.Background(), nil); !errors.Is(err, jobs.ErrQueueClosed) {
		t.Errorf("Start() error = %v, want ErrQueueClosed", err)
	}
}

func TestExponentialDelay(t *testing.T) {
	if d := ExponentialDelay(0); d != 0 {
		t.Errorf("ExponentialDelay(0) = %v, want 0", d)
	}
	first := ExponentialDelay(1)
	if first < 500*time.Millisecond || first > 1500*time.Millisecond {
		t.Errorf("ExponentialDelay(1) = %v, want about 1s", first)
	}
	if third := ExponentialDelay(3); third < time.Second {
		t.Errorf("ExponentialDelay(3) = %v, want more than 1s", third)
	}
}
