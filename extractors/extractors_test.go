package extractors

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
)

func TestRegistryIsComplete(t *testing.T) {
	expected := []string{
		"browser", "eventlog", "prefetch", "recyclebin",
		"registry", "shortcuts", "useractivity",
	}

	all := AllExtractors()
	names := make([]string, 0, len(all))
	for _, extractor := range all {
		names = append(names, extractor.Name())
	}
	// AllExtractors returns a stable sorted order.
	assert.Equal(t, expected, names)

	for _, name := range expected {
		_, pres := GetExtractor(name)
		assert.True(t, pres, name)
	}
}

func TestEmitRespectsCancellation(t *testing.T) {
	artifact := &artifacts.Artifact{
		CaseId:     "C.1",
		Type:       artifacts.EventLog,
		NaturalKey: "k",
	}

	output := make(chan *artifacts.Artifact, 1)
	require.True(t, emit(context.Background(), output, "test", artifact))
	<-output

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Full channel plus a cancelled context must not block.
	blocked := make(chan *artifacts.Artifact)
	assert.False(t, emit(ctx, blocked, "test", artifact))
}

// A present but corrupt event log surfaces an error instead of being
// silently skipped as if the channel held no events.
func TestCorruptEventLog(t *testing.T) {
	extractor := EventLogExtractor{}
	output := make(chan *artifacts.Artifact, 1)

	err := extractor.extractLog(context.Background(),
		bytes.NewReader([]byte("not an event log")),
		"C.1", "vol0\\System.evtx", output)
	assert.Error(t, err)
}

func TestEventFieldDecoding(t *testing.T) {
	assert.Equal(t, int64(4624), eventFieldInt(float64(4624)))
	assert.Equal(t, int64(7045),
		eventFieldInt(map[string]interface{}{"Value": float64(7045)}))
	assert.Equal(t, int64(0), eventFieldInt(nil))
	assert.Equal(t, int64(0), eventFieldInt("bogus"))

	assert.Equal(t, "Security", eventFieldString("Security"))
	assert.Equal(t, "", eventFieldString(nil))
}
