// Report aggregation. Scored nodes above the configured threshold
// become anomalies; which categories fired drives the critical
// indicators, the recommendations and the risk multiplier.

package anomaly

import (
	"context"

	errors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	config "github.com/Dhanushkumar2/computer-forensic/config"
	"github.com/Dhanushkumar2/computer-forensic/datastore"
	"github.com/Dhanushkumar2/computer-forensic/logging"
	"github.com/Dhanushkumar2/computer-forensic/utils"
)

// Analysis of a case with no extracted artifacts is rejected, never
// defaulted to an empty report.
var ErrInsufficientData = errors.New("insufficient data for analysis")

var analysesRun = promauto.NewCounter(prometheus.CounterOpts{
	Name: "anomaly_analyses_total",
	Help: "Anomaly analysis runs.",
})

// Indicator categories, each mapped to one critical indicator line
// and one recommendation.
const (
	categoryUSB       = "usb_exfiltration"
	categoryDeletion  = "suspicious_deletion"
	categoryOffHours  = "off_hours_activity"
	categoryRemovable = "removable_media_execution"
)

var categoryIndicators = map[string]string{
	categoryUSB:       "Unauthorized USB device connection detected",
	categoryDeletion:  "Suspicious file deletion activity detected",
	categoryOffHours:  "Activity detected outside normal working hours",
	categoryRemovable: "Program execution from removable media detected",
}

var categoryRecommendations = map[string]string{
	categoryUSB:       "Review USB device usage policy and audit connected devices",
	categoryDeletion:  "Attempt recovery of deleted files and review retention controls",
	categoryOffHours:  "Correlate off-hours activity with authorized maintenance windows",
	categoryRemovable: "Restrict execution from removable media via application control",
}

// Stable order for report output.
var categoryOrder = []string{
	categoryUSB, categoryDeletion, categoryOffHours, categoryRemovable,
}

type Engine struct {
	config_obj *config.Config
	store      *datastore.Store
	scorer     Scorer
}

func NewEngine(config_obj *config.Config, store *datastore.Store) *Engine {
	return &Engine{
		config_obj: config_obj,
		store:      store,
		scorer:     HeuristicScorer{},
	}
}

// Swap the scoring strategy. Used by tests and by deployments with a
// trained model.
func (self *Engine) WithScorer(scorer Scorer) *Engine {
	self.scorer = scorer
	return self
}

// Run one analysis over the stored artifacts of a case and persist
// the resulting report. Reports are immutable - each run appends a
// new snapshot.
func (self *Engine) Analyze(ctx context.Context, case_id string) (
	*artifacts.AnomalyReport, error) {

	logger := logging.GetLogger(self.config_obj, &logging.AnomalyComponent)

	rows, err := self.store.TimestampedArtifacts(ctx, case_id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrap(ErrInsufficientData, case_id)
	}

	analysesRun.Inc()

	graph := BuildGraph(rows, self.config_obj)
	scores, confidence, err := self.scorer.Score(graph)
	if err != nil {
		return nil, errors.Wrapf(err, "scorer %v", self.scorer.Name())
	}
	if len(scores) != len(graph.Nodes) {
		return nil, errors.Errorf(
			"scorer %v returned %d scores for %d nodes",
			self.scorer.Name(), len(scores), len(graph.Nodes))
	}

	report := self.aggregate(case_id, graph, scores, confidence)

	err = self.store.SaveReport(ctx, report)
	if err != nil {
		return nil, err
	}

	logger.Info("Case %v: %v/%v anomalous, risk %.1f (%v)",
		case_id, report.AnomaliesDetected, report.TotalActivities,
		report.OverallRiskScore, report.RiskLevel)
	return report, nil
}

func (self *Engine) aggregate(case_id string, graph *Graph,
	scores []float64, confidence float64) *artifacts.AnomalyReport {

	threshold := 0.75
	anomaly_config := self.config_obj.Anomaly
	if anomaly_config != nil && anomaly_config.ScoreThreshold > 0 {
		threshold = anomaly_config.ScoreThreshold
	}

	anomalies := 0
	fired := make(map[string]bool)

	for i, node := range graph.Nodes {
		if scores[i] < threshold {
			continue
		}
		anomalies++

		switch node.Artifact.Type {
		case artifacts.USBDevice:
			fired[categoryUSB] = true
		case artifacts.DeletedFile:
			fired[categoryDeletion] = true
		}

		hour := node.Artifact.Timestamp.UTC().Hour()
		if hour >= 22 || hour < 6 {
			fired[categoryOffHours] = true
		}

		if fromRemovableMedia(node.Artifact) {
			fired[categoryRemovable] = true
		}
	}

	// Risk score: the anomaly ratio scaled by a severity multiplier
	// for the worst categories, clamped to the 0-100 band.
	multiplier := 1.0
	if fired[categoryUSB] {
		multiplier += 0.5
	}
	if fired[categoryDeletion] {
		multiplier += 0.3
	}

	score := float64(anomalies) / float64(len(graph.Nodes)) * 100 * multiplier
	if score > 100 {
		score = 100
	}

	indicators := []string{}
	recommendations := []string{}
	for _, category := range categoryOrder {
		if fired[category] {
			indicators = append(indicators, categoryIndicators[category])
			recommendations = append(
				recommendations, categoryRecommendations[category])
		}
	}

	return &artifacts.AnomalyReport{
		CaseId:             case_id,
		AnomaliesDetected:  anomalies,
		TotalActivities:    len(graph.Nodes),
		ModelAccuracy:      confidence,
		RiskLevel:          self.riskLevel(score),
		OverallRiskScore:   score,
		CriticalIndicators: indicators,
		Recommendations:    recommendations,
		GeneratedAt:        utils.GetTime().Now().UTC(),
	}
}

// Map a score to its risk band. The bands are configuration, not
// hidden constants: LOW [0,30), MEDIUM [30,60), HIGH [60,90),
// CRITICAL [90,100] by default.
func (self *Engine) riskLevel(score float64) artifacts.RiskLevel {
	medium, high, critical := 30.0, 60.0, 90.0

	anomaly_config := self.config_obj.Anomaly
	if anomaly_config != nil && anomaly_config.MediumScore > 0 {
		medium = anomaly_config.MediumScore
		high = anomaly_config.HighScore
		critical = anomaly_config.CriticalScore
	}

	switch {
	case score >= critical:
		return artifacts.RiskCritical
	case score >= high:
		return artifacts.RiskHigh
	case score >= medium:
		return artifacts.RiskMedium
	default:
		return artifacts.RiskLow
	}
}
