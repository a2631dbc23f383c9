package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/rosacash/internal/jobs"
)

func TestStore_GetJob(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := jobs.NewExportReportJob(jobs.ExportReportJob{UserID: "u1"})
	job.JobID = "j1"
	job.Status = jobs.JobStatusPending
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	job.Status = jobs.JobStatusRunning
	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("stored job changed through caller pointer: %s", got.Status)
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrJobNotFound", err)
	}
	if err := s.SaveJob(ctx, &jobs.Job{}); err == nil {
		t.Error("SaveJob() without ID expected error")
	}
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	add := func(id string, job *jobs.Job, status jobs.JobStatus, offset int) {
		job.JobID = id
		job.Status = status
		job.CreatedAt = base.Add(time.Duration(offset) * time.Minute)
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob(%s) error = %v", id, err)
		}
	}
	add("a", jobs.NewExportReportJob(jobs.ExportReportJob{UserID: "u1"}), jobs.JobStatusCompleted, 2)
	add("b", jobs.NewSyncBillsJob(jobs.SyncBillsJob{UserID: "u1"}), jobs.JobStatusFailed, 1)
	add("c", jobs.NewExportReportJob(jobs.ExportReportJob{UserID: "u2"}), jobs.JobStatusCompleted, 0)

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all oldest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by user", jobs.JobFilter{UserID: "u1"}, []string{"b", "a"}},
		{"by type", jobs.JobFilter{Type: jobs.JobTypeExportReport}, []string{"c", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"b"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"c"}},
		{"offset", jobs.JobFilter{Offset: 2}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			ids := make([]string, 0, len(got))
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ListJobs() = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ListJobs() = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	job := jobs.NewSyncBillsJob(jobs.SyncBillsJob{UserID: "u1"})
	job.JobID = "j1"
	_ = s.SaveJob(ctx, job)

	if err := s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	got, _ := s.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v", got)
	}
	if err := s.UpdateJobStatus(ctx, "nope", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("UpdateJobStatus(nope) error = %v", err)
	}
}
