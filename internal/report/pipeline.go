package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/rosacash/internal/billing"
	bq "github.com/dvloznov/rosacash/internal/bigquery"
	"github.com/dvloznov/rosacash/internal/logger"
)

// SnapshotLoader loads one user's ledger.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, userID string) (billing.Snapshot, error)
}

// Sink receives a finished report and returns where it was written.
type Sink interface {
	Name() string
	Export(ctx context.Context, r *Report) (string, error)
}

// PipelineStep represents a single step in the export pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// failureHandler is implemented by steps that must run when an earlier step fails.
type failureHandler interface {
	Fail(ctx context.Context, state *PipelineState, err error)
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID string
	Now    time.Time

	RunID     string
	Snapshot  billing.Snapshot
	Report    *Report
	Locations []string
}

// StartRunStep records the run as RUNNING.
type StartRunStep struct {
	Runs bq.ReportRunRepository
}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	runID, err := s.Runs.StartReportRun(ctx, state.UserID)
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// LoadSnapshotStep loads the user's ledger.
type LoadSnapshotStep struct {
	Ledger SnapshotLoader
}

func (s *LoadSnapshotStep) Execute(ctx context.Context, state *PipelineState) error {
	snap, err := s.Ledger.Snapshot(ctx, state.UserID)
	if err != nil {
		return err
	}
	state.Snapshot = snap
	return nil
}

// BuildReportStep computes the report from the loaded snapshot.
type BuildReportStep struct{}

func (s *BuildReportStep) Execute(ctx context.Context, state *PipelineState) error {
	r, err := BuildReport(state.Snapshot, civil.DateOf(state.Now))
	if err != nil {
		return err
	}
	r.RunID = state.RunID
	r.UserID = state.UserID
	r.GeneratedAt = state.Now.UTC()
	state.Report = r
	return nil
}

// ExportStep hands the report to every sink in order.
type ExportStep struct {
	Sinks []Sink
}

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for _, sink := range s.Sinks {
		loc, err := sink.Export(ctx, state.Report)
		if err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
		log.Debug().Str("sink", sink.Name()).Str("location", loc).Msg("Report exported")
		if loc != "" {
			state.Locations = append(state.Locations, loc)
		}
	}
	return nil
}

// FinishRunStep marks the run as SUCCESS, or FAILED when an earlier step failed.
type FinishRunStep struct {
	Runs bq.ReportRunRepository
}

func (s *FinishRunStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Runs.MarkReportRunSucceeded(ctx, state.RunID, strings.Join(state.Locations, ","))
}

func (s *FinishRunStep) Fail(ctx context.Context, state *PipelineState, err error) {
	if state.RunID == "" {
		return
	}
	s.Runs.MarkReportRunFailed(ctx, state.RunID, err)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially. When a step fails, every step implementing
// Fail is notified before the error is returned.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			for _, s := range p.steps {
				if fh, ok := s.(failureHandler); ok {
					fh.Fail(ctx, state, err)
				}
			}
			return fmt.Errorf("report pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewExportPipeline creates the standard five step report export pipeline.
func NewExportPipeline(runs bq.ReportRunRepository, ledger SnapshotLoader, sinks ...Sink) *Pipeline {
	return NewPipeline(
		&StartRunStep{Runs: runs},
		&LoadSnapshotStep{Ledger: ledger},
		&BuildReportStep{},
		&ExportStep{Sinks: sinks},
		&FinishRunStep{Runs: runs},
	)
}

// Export runs the export pipeline for userID as of now and returns the final state.
func Export(ctx context.Context, p *Pipeline, userID string, now time.Time) (*PipelineState, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("Export: user_id is required")
	}
	log := logger.FromContext(ctx).With().Str("user_id", userID).Logger()

	state := &PipelineState{UserID: userID, Now: now}
	if err := p.Execute(logger.WithContext(ctx, log), state); err != nil {
		log.Error().Err(err).Str("run_id", state.RunID).Msg("Report export failed")
		return state, err
	}

	log.Info().Str("run_id", state.RunID).Strs("locations", state.Locations).Msg("Report export finished")
	return state, nil
}
