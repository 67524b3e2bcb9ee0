// Windows event log extractor. Reads the System, Security and
// Application channels from \Windows\System32\winevt\Logs.

package extractors

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Velocidex/ordereddict"
	errors "github.com/pkg/errors"
	"www.velocidex.com/golang/evtx"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
	"github.com/Dhanushkumar2/computer-forensic/utils"
)

const eventLogDirectory = "Windows\\System32\\winevt\\Logs"

var eventLogFiles = []string{
	"System.evtx",
	"Security.evtx",
	"Application.evtx",
}

type EventLogExtractor struct{}

func (self EventLogExtractor) Name() string {
	return "eventlog"
}

func (self EventLogExtractor) Extract(
	ctx context.Context, walker *filesystem.Walker,
	case_id string, output chan<- *artifacts.Artifact) error {

	// A present but damaged log is a partial failure worth surfacing.
	// A missing channel is not.
	var log_errors []string

	for _, volume := range walker.ListVolumes() {
		for _, filename := range eventLogFiles {
			log_path := eventLogDirectory + "\\" + filename

			reader, size, err := volume.Open(log_path)
			if err != nil {
				// Not every image carries every channel.
				continue
			}

			err = self.extractLog(ctx,
				utils.NewReadSeekReaderAdapter(reader, size),
				case_id, volume.Name()+"\\"+log_path, output)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				log_errors = append(log_errors,
					errors.Wrapf(err, "%v", log_path).Error())
			}
		}
	}

	if len(log_errors) > 0 {
		return errors.New(strings.Join(log_errors, "; "))
	}
	return nil
}

func (self EventLogExtractor) extractLog(
	ctx context.Context, fd io.ReadSeeker,
	case_id, source string, output chan<- *artifacts.Artifact) error {

	chunks, err := evtx.GetChunks(fd)
	if err != nil {
		return err
	}

	var chunk_errors []string
	for _, chunk := range chunks {
		records, err := chunk.Parse(0)
		if err != nil {
			// Keep going - the rest of the log is often intact.
			chunk_errors = append(chunk_errors, err.Error())
			continue
		}

		for _, record := range records {
			artifact := self.makeArtifact(case_id, source, record)
			if artifact == nil {
				continue
			}
			if !emit(ctx, output, self.Name(), artifact) {
				return ctx.Err()
			}
		}
	}

	if len(chunk_errors) > 0 {
		return errors.Errorf("damaged chunks: %v",
			strings.Join(chunk_errors, "; "))
	}
	return nil
}

func (self EventLogExtractor) makeArtifact(
	case_id, source string, record *evtx.EventRecord) *artifacts.Artifact {

	event_map, ok := record.Event.(map[string]interface{})
	if !ok {
		return nil
	}
	event, ok := event_map["Event"].(map[string]interface{})
	if !ok {
		return nil
	}
	system, ok := event["System"].(map[string]interface{})
	if !ok {
		return nil
	}

	event_id := eventFieldInt(system["EventID"])
	channel := eventFieldString(system["Channel"])
	provider := ""
	if p, ok := system["Provider"].(map[string]interface{}); ok {
		provider = eventFieldString(p["Name"])
	}

	timestamp := time.Time{}
	if tc, ok := system["TimeCreated"].(map[string]interface{}); ok {
		if seconds, ok := tc["SystemTime"].(float64); ok {
			sec, frac := math.Modf(seconds)
			timestamp = time.Unix(int64(sec),
				int64(frac*1e9)).UTC()
		}
	}
	if timestamp.IsZero() {
		return nil
	}

	return &artifacts.Artifact{
		CaseId: case_id,
		Type:   artifacts.EventLog,
		NaturalKey: artifacts.MakeKey(
			fmt.Sprintf("%d", event_id), channel,
			artifacts.TimeKey(timestamp)),
		Source:    source,
		Timestamp: timestamp,
		Payload: ordereddict.NewDict().
			Set("event_id", event_id).
			Set("record_id", int64(record.Header.RecordID)).
			Set("channel", channel).
			Set("provider", provider),
	}
}

// EventID is sometimes rendered as a bare number and sometimes as
// {"Value": n, "Qualifiers": q}.
func eventFieldInt(field interface{}) int64 {
	switch t := field.(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case map[string]interface{}:
		return eventFieldInt(t["Value"])
	}
	return 0
}

func eventFieldString(field interface{}) string {
	result, _ := field.(string)
	return result
}

func init() {
	RegisterExtractor(&EventLogExtractor{})
}
