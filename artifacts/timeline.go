package artifacts

import (
	"time"
)

// A projection of one timestamped artifact onto the case's single
// chronological axis. Timeline events are derived - they can always
// be regenerated by replaying the artifact store.
type TimelineEvent struct {
	CaseId    string    `json:"case_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`

	// Back reference to the originating artifact.
	ArtifactKey string `json:"artifact_key"`
}
