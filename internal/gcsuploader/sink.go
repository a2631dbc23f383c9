package gcsuploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/dvloznov/rosacash/internal/report"
)

// ReportSink writes each report as JSON to reports/<user>/<yyyy-mm-dd>/<run>.json in a bucket.
type ReportSink struct {
	storage StorageService
	bucket  string
}

// NewReportSink creates a sink writing to bucket.
func NewReportSink(storage StorageService, bucket string) *ReportSink {
	return &ReportSink{storage: storage, bucket: bucket}
}

func (s *ReportSink) Name() string { return "gcs" }

// ObjectName returns the object path of r.
func ObjectName(r *report.Report) string {
	return path.Join("reports", r.UserID, r.AsOf, r.RunID+".json")
}

// Export uploads r and returns its gs:// URI.
func (s *ReportSink) Export(ctx context.Context, r *report.Report) (string, error) {
	if s.bucket == "" {
		return "", errors.New("report bucket is not configured")
	}
	if r.UserID == "" || r.RunID == "" {
		return "", fmt.Errorf("report is missing user or run id")
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	object := ObjectName(r)
	if err := s.storage.WriteObject(ctx, s.bucket, object, data, "application/json"); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}

// FetchReport downloads and decodes a report previously written by ReportSink.
func FetchReport(ctx context.Context, storage StorageService, uri string) (*report.Report, error) {
	data, err := FetchFromGCS(ctx, storage, uri)
	if err != nil {
		return nil, err
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", uri, err)
	}
	return &r, nil
}
