package artifacts

import (
	"testing"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhanushkumar2/computer-forensic/json"
)

func TestNaturalKeys(t *testing.T) {
	ts := time.Date(2023, 4, 1, 10, 30, 0, 123456789, time.UTC)

	key := MakeKey("http://example.com", TimeKey(ts))
	assert.Equal(t,
		"http://example.com|2023-04-01T10:30:00.123456789Z", key)

	// Nanosecond precision keeps two close visits distinct.
	assert.NotEqual(t, MakeKey("u", TimeKey(ts)),
		MakeKey("u", TimeKey(ts.Add(time.Nanosecond))))
}

func TestDescriptions(t *testing.T) {
	artifact := &Artifact{
		Type: USBDevice,
		Payload: ordereddict.NewDict().
			Set("serial_number", "4C5300").
			Set("friendly_name", "SanDisk"),
	}
	assert.Equal(t,
		"USB device 4C5300 (SanDisk) connected", artifact.Description())

	// A payload-less artifact still renders something usable.
	bare := &Artifact{Type: DeletedFile}
	assert.Equal(t, "File deleted: ", bare.Description())
}

func TestRiskLevelOrderingAndJSON(t *testing.T) {
	assert.True(t, RiskLow < RiskMedium)
	assert.True(t, RiskMedium < RiskHigh)
	assert.True(t, RiskHigh < RiskCritical)

	serialized, err := json.Marshal(RiskHigh)
	require.NoError(t, err)
	assert.Equal(t, `"HIGH"`, string(serialized))

	var level RiskLevel
	require.NoError(t, json.Unmarshal([]byte(`"CRITICAL"`), &level))
	assert.Equal(t, RiskCritical, level)

	assert.Error(t, json.Unmarshal([]byte(`"BOGUS"`), &level))
}

func TestJobStates(t *testing.T) {
	assert.False(t, JobQueued.IsTerminal())
	assert.False(t, JobRunning.IsTerminal())
	assert.True(t, JobCompleted.IsTerminal())
	assert.True(t, JobFailed.IsTerminal())
}

func TestArtifactPayloadAccessors(t *testing.T) {
	artifact := &Artifact{
		Payload: ordereddict.NewDict().
			Set("url", "http://example.com").
			Set("count", int64(3)),
	}
	assert.Equal(t, "http://example.com", artifact.GetString("url"))
	assert.Equal(t, int64(3), artifact.GetInt64("count"))
	assert.Equal(t, "", artifact.GetString("missing"))

	var nil_payload Artifact
	assert.Equal(t, "", nil_payload.GetString("url"))
	assert.False(t, nil_payload.HasTimestamp())
}
