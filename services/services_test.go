package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Dhanushkumar2/computer-forensic/anomaly"
	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/config"
	"github.com/Dhanushkumar2/computer-forensic/datastore"
	"github.com/Dhanushkumar2/computer-forensic/flows"
)

type ServiceTestSuite struct {
	suite.Suite

	service *Service
	ctx     context.Context
}

func (self *ServiceTestSuite) SetupTest() {
	config_obj := config.GetDefaultConfig()
	config_obj.Datastore.Location = filepath.Join(
		self.T().TempDir(), "test.db")

	service, err := NewService(config_obj)
	require.NoError(self.T(), err)

	self.service = service
	self.ctx = context.Background()
}

func (self *ServiceTestSuite) TearDownTest() {
	self.service.Close()
}

func (self *ServiceTestSuite) seed(case_id string, count int) {
	base := time.Date(2023, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		_, err := self.service.Store().Upsert(self.ctx,
			&artifacts.Artifact{
				CaseId:     case_id,
				Type:       artifacts.BrowserHistory,
				NaturalKey: artifacts.MakeKey("http://example.com", artifacts.TimeKey(ts)),
				Timestamp:  ts,
				Payload:    ordereddict.NewDict().Set("url", "http://example.com"),
			})
		require.NoError(self.T(), err)
	}
}

func (self *ServiceTestSuite) TestListArtifactsValidatesType() {
	_, err := self.service.ListArtifacts(self.ctx, "C.1",
		artifacts.Type("no_such_type"), datastore.QueryOptions{})
	assert.True(self.T(), errors.Is(err, ErrUnknownArtifactType))

	self.seed("C.1", 3)
	rows, err := self.service.ListArtifacts(self.ctx, "C.1",
		artifacts.BrowserHistory, datastore.QueryOptions{Limit: 2})
	require.NoError(self.T(), err)
	assert.Len(self.T(), rows, 2)
}

func (self *ServiceTestSuite) TestQueryTimeline() {
	self.seed("C.1", 5)

	events, err := self.service.QueryTimeline(
		self.ctx, "C.1", "", "", "")
	require.NoError(self.T(), err)
	assert.Len(self.T(), events, 5)

	// Range bounds accept common formats.
	events, err = self.service.QueryTimeline(self.ctx, "C.1",
		"2023-03-10 09:00:00", "2023-03-10 11:00:00", "")
	require.NoError(self.T(), err)
	assert.Len(self.T(), events, 3)

	_, err = self.service.QueryTimeline(self.ctx, "C.1",
		"not a date", "", "")
	assert.Error(self.T(), err)

	_, err = self.service.QueryTimeline(self.ctx, "C.1",
		"", "", artifacts.Type("bogus"))
	assert.True(self.T(), errors.Is(err, ErrUnknownArtifactType))
}

func (self *ServiceTestSuite) TestAnalyzeGatedOnJobState() {
	self.seed("C.1", 4)

	// A failed extraction blocks analysis for the case.
	_, err := self.service.StartExtraction(self.ctx, "C.1",
		filepath.Join(self.T().TempDir(), "missing.dd"))
	require.NoError(self.T(), err)

	wait_ctx, cancel := context.WithTimeout(self.ctx, 30*time.Second)
	defer cancel()
	require.NoError(self.T(),
		self.service.WaitForExtraction(wait_ctx, "C.1"))

	status, err := self.service.JobStatus("C.1")
	require.NoError(self.T(), err)
	require.Equal(self.T(), artifacts.JobFailed, status.Status)

	_, err = self.service.Analyze(self.ctx, "C.1")
	assert.True(self.T(), errors.Is(err, ErrAnalysisNotReady))
}

func (self *ServiceTestSuite) TestAnalyzeAndLatestReport() {
	// No report yet.
	report, err := self.service.LatestReport(self.ctx, "C.1")
	require.NoError(self.T(), err)
	assert.Nil(self.T(), report)

	// Zero artifacts: rejected, never an empty report.
	_, err = self.service.Analyze(self.ctx, "C.1")
	assert.True(self.T(), errors.Is(err, anomaly.ErrInsufficientData))

	self.seed("C.1", 10)
	report, err = self.service.Analyze(self.ctx, "C.1")
	require.NoError(self.T(), err)
	assert.Equal(self.T(), 10, report.TotalActivities)

	fetched, err := self.service.LatestReport(self.ctx, "C.1")
	require.NoError(self.T(), err)
	require.NotNil(self.T(), fetched)
	assert.Equal(self.T(), report.TotalActivities, fetched.TotalActivities)
}

func (self *ServiceTestSuite) TestStartExtractionConflict() {
	_, err := self.service.StartExtraction(self.ctx, "C.1",
		filepath.Join(self.T().TempDir(), "missing.dd"))
	require.NoError(self.T(), err)

	// Immediately starting another job for the same case either
	// conflicts (still active) or succeeds (already failed) - both
	// are legal. What must never happen is a silent second active
	// job.
	_, second_err := self.service.StartExtraction(self.ctx, "C.1",
		filepath.Join(self.T().TempDir(), "missing.dd"))
	if second_err != nil {
		assert.True(self.T(), errors.Is(second_err, flows.ErrJobConflict))
	}

	wait_ctx, cancel := context.WithTimeout(self.ctx, 30*time.Second)
	defer cancel()
	require.NoError(self.T(),
		self.service.WaitForExtraction(wait_ctx, "C.1"))
}

func TestServices(t *testing.T) {
	suite.Run(t, &ServiceTestSuite{})
}
