package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/rosacash/internal/billing"
)

// ReportExporter exports the report of a user as of now.
type ReportExporter interface {
	ExportReport(ctx context.Context, userID string, now time.Time) error
}

// BillSyncer mirrors the next months bills of a user.
type BillSyncer interface {
	SyncBills(ctx context.Context, userID string, now time.Time, months int) error
}

// NewHandler returns the JobHandler dispatching each job type. A nil dependency makes its
// job type fail permanently with ErrInvalidJob. A nil now uses time.Now.
func NewHandler(exporter ReportExporter, syncer BillSyncer, now func() time.Time) JobHandler {
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context, job *Job) error {
		if err := job.Validate(); err != nil {
			return err
		}

		switch job.Type {
		case JobTypeExportReport:
			if exporter == nil {
				return fmt.Errorf("%w: report export is not configured", ErrInvalidJob)
			}
			at := now()
			if job.ExportReport.Date != "" {
				d, err := billing.ParseDate("date", job.ExportReport.Date)
				if err != nil {
					return err
				}
				at = d.In(time.UTC)
			}
			return exporter.ExportReport(ctx, job.ExportReport.UserID, at)

		case JobTypeSyncBills:
			if syncer == nil {
				return fmt.Errorf("%w: bill sync is not configured", ErrInvalidJob)
			}
			months := job.SyncBills.Months
			if months == 0 {
				months = DefaultSyncMonths
			}
			return syncer.SyncBills(ctx, job.SyncBills.UserID, now(), months)
		}

		return fmt.Errorf("%w: unknown job type %q", ErrInvalidJob, job.Type)
	}
}
