// Timeline builder. The timeline is a read-through projection of the
// artifact store - it owns no state of its own and is fully
// reconstructible by replaying the stored artifacts in order. Because
// the store only ever grows under re-extraction, the projection is
// monotonic: events are only added, never reordered relative to each
// other.

package timelines

import (
	"context"
	"time"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/datastore"
)

type Builder struct {
	store *datastore.Store
}

func NewBuilder(store *datastore.Store) *Builder {
	return &Builder{store: store}
}

// Project all timestamped artifacts of a case onto one chronological
// axis. Ordering is timestamp ascending with ties broken by artifact
// type then natural key, so the sequence is deterministic across
// runs.
func (self *Builder) Build(ctx context.Context, case_id string) (
	[]*artifacts.TimelineEvent, error) {

	rows, err := self.store.TimestampedArtifacts(ctx, case_id)
	if err != nil {
		return nil, err
	}

	result := make([]*artifacts.TimelineEvent, 0, len(rows))
	for _, artifact := range rows {
		result = append(result, &artifacts.TimelineEvent{
			CaseId:      case_id,
			Timestamp:   artifact.Timestamp,
			Type:        artifact.Type,
			Message:     artifact.Description(),
			ArtifactKey: artifact.NaturalKey,
		})
	}
	return result, nil
}

// Build restricted to a time window and an optional type filter. A
// zero boundary means unbounded on that side.
func (self *Builder) BuildRange(ctx context.Context, case_id string,
	start, end time.Time, type_filter artifacts.Type) (
	[]*artifacts.TimelineEvent, error) {

	events, err := self.Build(ctx, case_id)
	if err != nil {
		return nil, err
	}

	result := make([]*artifacts.TimelineEvent, 0, len(events))
	for _, event := range events {
		if !start.IsZero() && event.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && event.Timestamp.After(end) {
			continue
		}
		if type_filter != "" && event.Type != type_filter {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}
