package artifacts

import (
	"strings"
	"time"

	errors "github.com/pkg/errors"
)

// Risk levels are ordered - a higher value always means more risk.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (self RiskLevel) String() string {
	switch self {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func (self RiskLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + self.String() + `"`), nil
}

func (self *RiskLevel) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "LOW":
		*self = RiskLow
	case "MEDIUM":
		*self = RiskMedium
	case "HIGH":
		*self = RiskHigh
	case "CRITICAL":
		*self = RiskCritical
	default:
		return errors.Errorf("unknown risk level %s", data)
	}
	return nil
}

// An immutable snapshot of one analysis run. A new run produces a new
// report, never mutates an old one.
type AnomalyReport struct {
	CaseId string `json:"case_id"`

	AnomaliesDetected int `json:"anomalies_detected"`
	TotalActivities   int `json:"total_activities"`

	// The scorer's self reported confidence, surfaced as-is.
	ModelAccuracy float64 `json:"model_accuracy"`

	RiskLevel        RiskLevel `json:"risk_level"`
	OverallRiskScore float64   `json:"overall_risk_score"`

	CriticalIndicators []string `json:"critical_indicators"`
	Recommendations    []string `json:"recommendations"`

	GeneratedAt time.Time `json:"generated_at"`
}
