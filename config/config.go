package config

// The triage pipeline is configured from a single yaml file. All
// thresholds that affect the anomaly verdict live here so they are
// visible and testable rather than hidden constants.
type Config struct {
	Datastore  *DatastoreConfig  `json:"Datastore,omitempty"`
	Extraction *ExtractionConfig `json:"Extraction,omitempty"`
	Anomaly    *AnomalyConfig    `json:"Anomaly,omitempty"`
	Logging    *LoggingConfig    `json:"Logging,omitempty"`
}

type DatastoreConfig struct {
	// Path to the sqlite database holding case artifacts. The
	// special value ":memory:" is useful for tests.
	Location string `json:"Location"`
}

type ExtractionConfig struct {
	// Number of extractors that may parse concurrently. Extractors
	// are independent and read-only against the walker so they
	// parallelize safely.
	Workers int `json:"Workers,omitempty"`

	// Wall clock budget for a whole extraction job. Zero disables
	// the timeout.
	JobTimeoutSeconds int64 `json:"JobTimeoutSeconds,omitempty"`
}

type AnomalyConfig struct {
	// Nodes scoring at or above this threshold are counted as
	// anomalies and can fire critical indicators.
	ScoreThreshold float64 `json:"ScoreThreshold,omitempty"`

	// Two timestamped artifacts closer than this window are joined
	// by a temporal adjacency edge in the activity graph.
	AdjacencyWindowSeconds int64 `json:"AdjacencyWindowSeconds,omitempty"`

	// Risk bands mapping overall_risk_score to a risk level. A score
	// s maps to CRITICAL when s >= CriticalScore, HIGH when s >=
	// HighScore, MEDIUM when s >= MediumScore and LOW otherwise.
	MediumScore   float64 `json:"MediumScore,omitempty"`
	HighScore     float64 `json:"HighScore,omitempty"`
	CriticalScore float64 `json:"CriticalScore,omitempty"`
}

type LoggingConfig struct {
	// When set, component logs are also written to rotated files
	// under this directory.
	OutputDirectory  string `json:"OutputDirectory,omitempty"`
	Level            string `json:"Level,omitempty"`
	MaxAgeDays       int64  `json:"MaxAgeDays,omitempty"`
	RotationDays     int64  `json:"RotationDays,omitempty"`
	DisableFileLines bool   `json:"DisableFileLines,omitempty"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Datastore: &DatastoreConfig{
			Location: "forensic.db",
		},
		Extraction: &ExtractionConfig{
			Workers:           4,
			JobTimeoutSeconds: 3600,
		},
		Anomaly: &AnomalyConfig{
			ScoreThreshold:         0.75,
			AdjacencyWindowSeconds: 300,
			MediumScore:            30,
			HighScore:              60,
			CriticalScore:          90,
		},
		Logging: &LoggingConfig{
			Level:        "info",
			MaxAgeDays:   365,
			RotationDays: 7,
		},
	}
}
