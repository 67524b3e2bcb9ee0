package artifacts

import (
	"time"
)

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

func (self JobState) IsTerminal() bool {
	return self == JobCompleted || self == JobFailed
}

// One extraction run over a case's disk image. Only one job per case
// may be queued or running at a time.
type ExtractionJob struct {
	JobId  string   `json:"job_id"`
	CaseId string   `json:"case_id"`
	State  JobState `json:"state"`

	ImagePath string `json:"image_path"`

	// Monotonically non decreasing count of artifacts stored so far.
	ArtifactsExtracted int64 `json:"artifacts_extracted"`

	// Populated only when State is failed.
	ErrorMessage string `json:"error_message,omitempty"`

	// Non fatal extractor failures. The job still completes with
	// partial coverage but the operator can see what was skipped.
	Warnings []string `json:"warnings,omitempty"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// Point in time state exposed to polling callers.
type JobStatus struct {
	JobId              string   `json:"job_id"`
	CaseId             string   `json:"case_id"`
	Status             JobState `json:"status"`
	ArtifactsExtracted int64    `json:"artifacts_extracted"`
	ErrorMessage       string   `json:"error_message,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
}
