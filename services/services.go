// The external interface of the pipeline. Everything the excluded
// case management and presentation collaborators are allowed to do
// goes through here: start or cancel extractions, poll job state,
// list artifacts, query the timeline and trigger or fetch analysis.
// Every operation takes an explicit case id - there is no process
// wide current case.

package services

import (
	"context"
	"time"

	"github.com/araddon/dateparse"
	errors "github.com/pkg/errors"

	"github.com/Dhanushkumar2/computer-forensic/anomaly"
	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	config "github.com/Dhanushkumar2/computer-forensic/config"
	"github.com/Dhanushkumar2/computer-forensic/datastore"
	"github.com/Dhanushkumar2/computer-forensic/flows"
	"github.com/Dhanushkumar2/computer-forensic/timelines"
)

var (
	ErrUnknownArtifactType = errors.New("unknown artifact type")

	// Analysis requires the case's extraction to have completed -
	// timeline and store contents are only stable after the job
	// barrier.
	ErrAnalysisNotReady = errors.New(
		"extraction has not completed for case")
)

type Service struct {
	config_obj *config.Config
	store      *datastore.Store

	jobs    *flows.Manager
	builder *timelines.Builder
	engine  *anomaly.Engine
}

func NewService(config_obj *config.Config) (*Service, error) {
	store, err := datastore.OpenStore(config_obj)
	if err != nil {
		return nil, err
	}

	return &Service{
		config_obj: config_obj,
		store:      store,
		jobs:       flows.NewManager(config_obj, store),
		builder:    timelines.NewBuilder(store),
		engine:     anomaly.NewEngine(config_obj, store),
	}, nil
}

func (self *Service) Close() error {
	return self.store.Close()
}

// Direct access to the artifact store for embedding callers.
func (self *Service) Store() *datastore.Store {
	return self.store
}

// Start a new extraction job. Fails with flows.ErrJobConflict when a
// job is already queued or running for the case.
func (self *Service) StartExtraction(ctx context.Context,
	case_id, image_path string) (string, error) {
	return self.jobs.StartJob(ctx, case_id, image_path)
}

func (self *Service) CancelExtraction(case_id string) error {
	return self.jobs.CancelJob(case_id)
}

// Point in time job state. Callers poll this; they must stop polling
// on any terminal state.
func (self *Service) JobStatus(case_id string) (
	*artifacts.JobStatus, error) {
	return self.jobs.GetStatus(case_id)
}

// Block until the current job finishes. Convenience for the CLI.
func (self *Service) WaitForExtraction(ctx context.Context,
	case_id string) error {
	return self.jobs.WaitForJob(ctx, case_id)
}

func (self *Service) ListArtifacts(ctx context.Context, case_id string,
	artifact_type artifacts.Type, options datastore.QueryOptions) (
	[]*artifacts.Artifact, error) {

	if !artifacts.ValidType(artifact_type) {
		return nil, errors.Wrap(ErrUnknownArtifactType,
			string(artifact_type))
	}
	return self.store.Query(ctx, case_id, artifact_type, options)
}

func (self *Service) ArtifactCounts(ctx context.Context,
	case_id string) (map[artifacts.Type]int64, error) {
	return self.store.CountByType(ctx, case_id)
}

// Ordered timeline events, optionally bounded by a time range and an
// artifact type. Range boundaries accept any common date format.
func (self *Service) QueryTimeline(ctx context.Context, case_id string,
	start_str, end_str string, artifact_type artifacts.Type) (
	[]*artifacts.TimelineEvent, error) {

	if artifact_type != "" && !artifacts.ValidType(artifact_type) {
		return nil, errors.Wrap(ErrUnknownArtifactType,
			string(artifact_type))
	}

	start, err := parseTimeBound(start_str)
	if err != nil {
		return nil, err
	}
	end, err := parseTimeBound(end_str)
	if err != nil {
		return nil, err
	}

	return self.builder.BuildRange(
		ctx, case_id, start, end, artifact_type)
}

// Run a fresh analysis for a case. When extraction was driven through
// this service the latest job must have completed - artifacts behind
// a failed or still running job are not a stable basis for a verdict.
func (self *Service) Analyze(ctx context.Context, case_id string) (
	*artifacts.AnomalyReport, error) {

	status, err := self.jobs.GetStatus(case_id)
	if err == nil && status.Status != artifacts.JobCompleted {
		return nil, errors.Wrap(ErrAnalysisNotReady, case_id)
	}

	return self.engine.Analyze(ctx, case_id)
}

// The most recent report without running a new analysis. Nil when
// the case was never analyzed.
func (self *Service) LatestReport(ctx context.Context, case_id string) (
	*artifacts.AnomalyReport, error) {
	return self.store.LatestReport(ctx, case_id)
}

// Remove the case's artifacts, derived events and reports.
func (self *Service) DeleteCase(ctx context.Context, case_id string) error {
	return self.store.DeleteCase(ctx, case_id)
}

func parseTimeBound(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	parsed, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing time %v", value)
	}
	return parsed.UTC(), nil
}
