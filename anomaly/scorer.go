package anomaly

import (
	"github.com/Dhanushkumar2/computer-forensic/artifacts"
)

// The scoring model is a black box behind this contract so the
// strategy (statistical heuristic, trained graph model) can be
// swapped without touching graph construction or report aggregation.
type Scorer interface {
	Name() string

	// Per node anomaly scores in [0, 1], parallel to graph.Nodes,
	// plus the scorer's self reported confidence. The confidence is
	// surfaced on the report as model_accuracy exactly as returned
	// here.
	Score(graph *Graph) (scores []float64, confidence float64, err error)
}

// The default scorer: a deterministic heuristic over artifact type
// base rates, off hours activity and graph connectivity. Deliberately
// simple so report aggregation is testable independent of any model's
// numeric behavior.
type HeuristicScorer struct{}

func (self HeuristicScorer) Name() string {
	return "heuristic"
}

const heuristicConfidence = 0.85

var typeBaseScores = map[artifacts.Type]float64{
	artifacts.USBDevice:        0.60,
	artifacts.DeletedFile:      0.55,
	artifacts.RunKey:           0.45,
	artifacts.ProgramExecution: 0.35,
	artifacts.Prefetch:         0.30,
	artifacts.BrowserDownload:  0.30,
	artifacts.Shortcut:         0.25,
	artifacts.EventLog:         0.15,
	artifacts.InstalledProgram: 0.15,
	artifacts.BrowserHistory:   0.10,
	artifacts.BrowserCookie:    0.05,
}

func (self HeuristicScorer) Score(graph *Graph) ([]float64, float64, error) {
	max_degree := 1
	for _, node := range graph.Nodes {
		if len(node.Neighbors) > max_degree {
			max_degree = len(node.Neighbors)
		}
	}

	scores := make([]float64, len(graph.Nodes))
	for i, node := range graph.Nodes {
		score := typeBaseScores[node.Artifact.Type]

		// Activity in the middle of the night is inherently more
		// interesting.
		hour := node.Artifact.Timestamp.UTC().Hour()
		if hour >= 22 || hour < 6 {
			score += 0.25
		}

		// Densely connected activity bursts score higher than
		// isolated events.
		score += 0.15 * float64(len(node.Neighbors)) / float64(max_degree)

		// Tools run from removable media are a classic exfil tell.
		if node.Artifact.Type == artifacts.ProgramExecution ||
			node.Artifact.Type == artifacts.Prefetch ||
			node.Artifact.Type == artifacts.Shortcut {
			if fromRemovableMedia(node.Artifact) {
				score += 0.30
			}
		}

		if score > 1 {
			score = 1
		}
		scores[i] = score
	}
	return scores, heuristicConfidence, nil
}

// Heuristic: local fixed volumes are C; anything rooted on another
// drive letter is treated as removable or external.
func fromRemovableMedia(artifact *artifacts.Artifact) bool {
	for _, field := range []string{"program", "executable", "target_path"} {
		path := artifact.GetString(field)
		if len(path) >= 2 && path[1] == ':' &&
			path[0] != 'C' && path[0] != 'c' {
			return true
		}
	}
	return false
}
