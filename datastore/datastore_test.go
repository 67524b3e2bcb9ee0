package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/config"
)

type StoreTestSuite struct {
	suite.Suite

	store *Store
	ctx   context.Context
}

func (self *StoreTestSuite) SetupTest() {
	config_obj := config.GetDefaultConfig()
	config_obj.Datastore.Location = filepath.Join(
		self.T().TempDir(), "test.db")

	store, err := OpenStore(config_obj)
	require.NoError(self.T(), err)

	self.store = store
	self.ctx = context.Background()
}

func (self *StoreTestSuite) TearDownTest() {
	self.store.Close()
}

func (self *StoreTestSuite) makeUSBArtifact(seen time.Time) *artifacts.Artifact {
	return &artifacts.Artifact{
		CaseId:     "C.1",
		Type:       artifacts.USBDevice,
		NaturalKey: "4C530001230405",
		Source:     "vol0\\Windows\\System32\\config\\SYSTEM",
		Timestamp:  seen,
		FirstSeen:  seen,
		LastSeen:   seen,
		Payload: ordereddict.NewDict().
			Set("serial_number", "4C530001230405").
			Set("friendly_name", "SanDisk Ultra"),
	}
}

func (self *StoreTestSuite) TestUpsertDeduplicates() {
	t1 := time.Date(2023, 5, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2023, 5, 2, 17, 30, 0, 0, time.UTC)

	// The same device seen across two extraction runs with an
	// overlapping window must collapse to one artifact with the
	// widened window.
	created, err := self.store.Upsert(self.ctx, self.makeUSBArtifact(t1))
	require.NoError(self.T(), err)
	assert.True(self.T(), created)

	created, err = self.store.Upsert(self.ctx, self.makeUSBArtifact(t2))
	require.NoError(self.T(), err)
	assert.False(self.T(), created)

	rows, err := self.store.Query(self.ctx, "C.1",
		artifacts.USBDevice, QueryOptions{})
	require.NoError(self.T(), err)
	require.Len(self.T(), rows, 1)

	assert.Equal(self.T(), t1, rows[0].FirstSeen)
	assert.Equal(self.T(), t2, rows[0].LastSeen)

	name, _ := rows[0].Payload.GetString("friendly_name")
	assert.Equal(self.T(), "SanDisk Ultra", name)
}

func (self *StoreTestSuite) TestQueryIsCaseAndTypeScoped() {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, case_id := range []string{"C.1", "C.1", "C.2"} {
		_, err := self.store.Upsert(self.ctx, &artifacts.Artifact{
			CaseId:     case_id,
			Type:       artifacts.BrowserHistory,
			NaturalKey: artifacts.MakeKey("http://example.com",
				artifacts.TimeKey(base.Add(time.Duration(i)*time.Hour))),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Payload:   ordereddict.NewDict().Set("url", "http://example.com"),
		})
		require.NoError(self.T(), err)
	}

	rows, err := self.store.Query(self.ctx, "C.1",
		artifacts.BrowserHistory, QueryOptions{})
	require.NoError(self.T(), err)
	assert.Len(self.T(), rows, 2)

	// Pagination.
	rows, err = self.store.Query(self.ctx, "C.1",
		artifacts.BrowserHistory, QueryOptions{Limit: 1, Offset: 1})
	require.NoError(self.T(), err)
	require.Len(self.T(), rows, 1)
	assert.Equal(self.T(), base.Add(time.Hour), rows[0].Timestamp)
}

func (self *StoreTestSuite) TestCountByType() {
	now := time.Now().UTC().Truncate(time.Second)

	_, err := self.store.Upsert(self.ctx, self.makeUSBArtifact(now))
	require.NoError(self.T(), err)

	_, err = self.store.Upsert(self.ctx, &artifacts.Artifact{
		CaseId:     "C.1",
		Type:       artifacts.DeletedFile,
		NaturalKey: "C:\\secret.docx|" + artifacts.TimeKey(now),
		Timestamp:  now,
	})
	require.NoError(self.T(), err)

	counts, err := self.store.CountByType(self.ctx, "C.1")
	require.NoError(self.T(), err)
	assert.Equal(self.T(), int64(1), counts[artifacts.USBDevice])
	assert.Equal(self.T(), int64(1), counts[artifacts.DeletedFile])

	total, err := self.store.TotalArtifacts(self.ctx, "C.1")
	require.NoError(self.T(), err)
	assert.Equal(self.T(), int64(2), total)
}

func (self *StoreTestSuite) TestDeleteCaseCascades() {
	now := time.Now().UTC()

	_, err := self.store.Upsert(self.ctx, self.makeUSBArtifact(now))
	require.NoError(self.T(), err)

	err = self.store.SaveReport(self.ctx, &artifacts.AnomalyReport{
		CaseId:      "C.1",
		RiskLevel:   artifacts.RiskHigh,
		GeneratedAt: now,
	})
	require.NoError(self.T(), err)

	require.NoError(self.T(), self.store.DeleteCase(self.ctx, "C.1"))

	total, err := self.store.TotalArtifacts(self.ctx, "C.1")
	require.NoError(self.T(), err)
	assert.Equal(self.T(), int64(0), total)

	report, err := self.store.LatestReport(self.ctx, "C.1")
	require.NoError(self.T(), err)
	assert.Nil(self.T(), report)
}

func (self *StoreTestSuite) TestLatestReportWins() {
	first := &artifacts.AnomalyReport{
		CaseId:           "C.1",
		RiskLevel:        artifacts.RiskLow,
		OverallRiskScore: 10,
		GeneratedAt:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	second := &artifacts.AnomalyReport{
		CaseId:             "C.1",
		RiskLevel:          artifacts.RiskHigh,
		OverallRiskScore:   85,
		CriticalIndicators: []string{"Unauthorized USB device connection detected"},
		GeneratedAt:        time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(self.T(), self.store.SaveReport(self.ctx, first))
	require.NoError(self.T(), self.store.SaveReport(self.ctx, second))

	report, err := self.store.LatestReport(self.ctx, "C.1")
	require.NoError(self.T(), err)
	require.NotNil(self.T(), report)

	assert.Equal(self.T(), artifacts.RiskHigh, report.RiskLevel)
	assert.Equal(self.T(), float64(85), report.OverallRiskScore)
	assert.NotEmpty(self.T(), report.CriticalIndicators)
}

func TestStore(t *testing.T) {
	suite.Run(t, &StoreTestSuite{})
}
