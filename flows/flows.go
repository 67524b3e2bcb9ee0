// Extraction job controller. Drives one end to end run per case:
// ingest the image, mount the filesystem, fan the extractors out over
// a worker pool feeding a single storer goroutine, then mark the job
// terminal. One job per case may be queued or running at any instant.

package flows

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	go_errors "github.com/go-errors/errors"
	"github.com/google/uuid"
	errors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	config "github.com/Dhanushkumar2/computer-forensic/config"
	"github.com/Dhanushkumar2/computer-forensic/datastore"
	"github.com/Dhanushkumar2/computer-forensic/extractors"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
	"github.com/Dhanushkumar2/computer-forensic/imaging"
	"github.com/Dhanushkumar2/computer-forensic/logging"
	"github.com/Dhanushkumar2/computer-forensic/utils"
)

var (
	// Starting a job while another is queued or running for the same
	// case is rejected without touching the existing job.
	ErrJobConflict = errors.New("extraction job already active for case")

	ErrJobNotFound = errors.New("no extraction job for case")

	ErrCancelled = errors.New("extraction cancelled by request")

	jobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flows_jobs_started_total",
		Help: "Extraction jobs accepted.",
	})
	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flows_jobs_failed_total",
		Help: "Extraction jobs that ended in the failed state.",
	})
)

type Manager struct {
	config_obj *config.Config
	store      *datastore.Store

	mu   sync.Mutex
	jobs map[string]*jobContext
}

type jobContext struct {
	mu  sync.Mutex
	job *artifacts.ExtractionJob

	extracted int64

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(config_obj *config.Config, store *datastore.Store) *Manager {
	return &Manager{
		config_obj: config_obj,
		store:      store,
		jobs:       make(map[string]*jobContext),
	}
}

// Start a new extraction job for a case. A completed or failed
// previous job is superseded; an active one causes ErrJobConflict.
func (self *Manager) StartJob(ctx context.Context,
	case_id, image_path string) (string, error) {

	self.mu.Lock()
	existing, pres := self.jobs[case_id]
	if pres && !existing.State().IsTerminal() {
		self.mu.Unlock()
		return "", errors.Wrap(ErrJobConflict, case_id)
	}

	run_ctx, cancel := context.WithCancel(ctx)
	job_ctx := &jobContext{
		job: &artifacts.ExtractionJob{
			JobId:     uuid.New().String(),
			CaseId:    case_id,
			State:     artifacts.JobQueued,
			ImagePath: image_path,
			StartTime: utils.GetTime().Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	self.jobs[case_id] = job_ctx
	self.mu.Unlock()

	jobsStarted.Inc()

	go self.runJob(run_ctx, job_ctx)

	return job_ctx.job.JobId, nil
}

// Request a running job to stop. Cancellation takes effect at the
// next extractor boundary - extractors are not preemptible mid parse.
func (self *Manager) CancelJob(case_id string) error {
	self.mu.Lock()
	job_ctx, pres := self.jobs[case_id]
	self.mu.Unlock()

	if !pres {
		return errors.Wrap(ErrJobNotFound, case_id)
	}
	job_ctx.cancel()
	return nil
}

func (self *Manager) GetStatus(case_id string) (
	*artifacts.JobStatus, error) {

	self.mu.Lock()
	job_ctx, pres := self.jobs[case_id]
	self.mu.Unlock()

	if !pres {
		return nil, errors.Wrap(ErrJobNotFound, case_id)
	}
	return job_ctx.Status(), nil
}

// Block until the case's current job reaches a terminal state. Test
// and CLI convenience - external callers poll GetStatus.
func (self *Manager) WaitForJob(ctx context.Context, case_id string) error {
	self.mu.Lock()
	job_ctx, pres := self.jobs[case_id]
	self.mu.Unlock()

	if !pres {
		return errors.Wrap(ErrJobNotFound, case_id)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-job_ctx.done:
		return nil
	}
}

func (self *Manager) runJob(ctx context.Context, job_ctx *jobContext) {
	defer close(job_ctx.done)

	logger := logging.GetLogger(self.config_obj,
		&logging.ExtractionComponent)

	if self.config_obj.Extraction != nil &&
		self.config_obj.Extraction.JobTimeoutSeconds > 0 {
		var timeout_cancel context.CancelFunc
		ctx, timeout_cancel = context.WithTimeout(ctx,
			time.Duration(self.config_obj.Extraction.JobTimeoutSeconds)*
				time.Second)
		defer timeout_cancel()
	}

	job_ctx.setState(artifacts.JobRunning)
	logger.Info("Job %v: extracting %v for case %v",
		job_ctx.job.JobId, job_ctx.job.ImagePath, job_ctx.job.CaseId)

	// Ingest and mount failures are fatal and surfaced verbatim.
	handle, err := imaging.Open(job_ctx.job.ImagePath)
	if err != nil {
		self.failJob(job_ctx, err)
		return
	}
	defer handle.Close()

	walker, err := filesystem.Mount(handle)
	if err != nil {
		self.failJob(job_ctx, err)
		return
	}

	self.completeJob(ctx, job_ctx, walker, extractors.AllExtractors())
}

// Run the extractor set over a mounted walker and take the job to a
// terminal state.
func (self *Manager) completeJob(ctx context.Context, job_ctx *jobContext,
	walker *filesystem.Walker, all []extractors.Extractor) {

	self.runExtractors(ctx, job_ctx, walker, all)

	// Walker warnings (damaged subtrees etc) surface on the job
	// record next to extractor warnings.
	for _, warning := range walker.Warnings() {
		job_ctx.addWarning(warning)
	}

	if ctx.Err() != nil {
		err := error(ErrCancelled)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.New("extraction exceeded the wall clock budget")
		}
		self.failJob(job_ctx, err)
		return
	}

	job_ctx.finish(artifacts.JobCompleted, "")

	logger := logging.GetLogger(self.config_obj,
		&logging.ExtractionComponent)
	logger.Info("Job %v: completed with %v artifacts (%v warnings)",
		job_ctx.job.JobId, atomic.LoadInt64(&job_ctx.extracted),
		len(job_ctx.Status().Warnings))
}

// Fan the extractors through the worker pool into one storer
// goroutine. Extractors are independent and read-only against the
// walker so they parallelize safely; the store dedupes on natural key
// so arrival order does not matter.
func (self *Manager) runExtractors(ctx context.Context,
	job_ctx *jobContext, walker *filesystem.Walker,
	all []extractors.Extractor) {

	workers := 4
	if self.config_obj.Extraction != nil &&
		self.config_obj.Extraction.Workers > 0 {
		workers = self.config_obj.Extraction.Workers
	}

	output := make(chan *artifacts.Artifact)

	var storer_wg sync.WaitGroup
	storer_wg.Add(1)
	go func() {
		defer storer_wg.Done()

		for artifact := range output {
			_, err := self.store.Upsert(context.Background(), artifact)
			if err != nil {
				job_ctx.addWarning(err.Error())
				continue
			}
			atomic.AddInt64(&job_ctx.extracted, 1)
		}
	}()

	pool := pond.NewPool(workers)
	for _, extractor := range all {
		extractor := extractor
		pool.Submit(func() {
			// Cancellation is checked here, at the extractor
			// boundary.
			if ctx.Err() != nil {
				return
			}

			err := runOneExtractor(ctx, extractor, walker,
				job_ctx.job.CaseId, output)
			if err != nil && ctx.Err() == nil {
				// Partial failure: record and continue with the
				// other extractors.
				job_ctx.addWarning(extractor.Name() + ": " + err.Error())
			}
		})
	}
	pool.StopAndWait()

	close(output)
	storer_wg.Wait()
}

// One extractor invocation with panic isolation - a crash in a single
// decoder must not take down the job.
func runOneExtractor(ctx context.Context, extractor extractors.Extractor,
	walker *filesystem.Walker, case_id string,
	output chan<- *artifacts.Artifact) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = errors.Errorf("%v paniced: %v", extractor.Name(),
				go_errors.Wrap(r, 2).(*go_errors.Error).ErrorStack())
		}
	}()

	return extractor.Extract(ctx, walker, case_id, output)
}

func (self *Manager) failJob(job_ctx *jobContext, err error) {
	jobsFailed.Inc()

	logger := logging.GetLogger(self.config_obj,
		&logging.ExtractionComponent)
	logger.Error("Job %v: %v", job_ctx.job.JobId, err)

	job_ctx.finish(artifacts.JobFailed, err.Error())
}

func (self *jobContext) State() artifacts.JobState {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.job.State
}

func (self *jobContext) setState(state artifacts.JobState) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.job.State = state
}

func (self *jobContext) finish(state artifacts.JobState, message string) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.job.State = state
	self.job.ErrorMessage = message
	self.job.EndTime = utils.GetTime().Now().UTC()
}

func (self *jobContext) addWarning(warning string) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.job.Warnings = append(self.job.Warnings, warning)
}

// A point in time snapshot for polling callers.
func (self *jobContext) Status() *artifacts.JobStatus {
	self.mu.Lock()
	defer self.mu.Unlock()

	warnings := make([]string, len(self.job.Warnings))
	copy(warnings, self.job.Warnings)

	return &artifacts.JobStatus{
		JobId:              self.job.JobId,
		CaseId:             self.job.CaseId,
		Status:             self.job.State,
		ArtifactsExtracted: atomic.LoadInt64(&self.extracted),
		ErrorMessage:       self.job.ErrorMessage,
		Warnings:           warnings,
	}
}
