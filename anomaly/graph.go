// Activity graph construction. Nodes are the timestamped artifacts of
// a case; edges encode relations the scorer can exploit - same
// originating file, temporal adjacency within a configured window,
// and same device or program identity.

package anomaly

import (
	"sort"
	"time"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	config "github.com/Dhanushkumar2/computer-forensic/config"
)

type Node struct {
	Index    int
	Artifact *artifacts.Artifact

	// Adjacent node indices, deduplicated.
	Neighbors []int
}

type Graph struct {
	Nodes []*Node
}

func (self *Graph) addEdge(edges map[int]map[int]bool, a, b int) {
	if a == b {
		return
	}
	if edges[a] == nil {
		edges[a] = make(map[int]bool)
	}
	if edges[b] == nil {
		edges[b] = make(map[int]bool)
	}
	edges[a][b] = true
	edges[b][a] = true
}

// The identity an artifact shares with other activity of the same
// device or program. Empty when the type has no stable identity.
func nodeIdentity(artifact *artifacts.Artifact) string {
	prefix, field := "", ""
	switch artifact.Type {
	case artifacts.USBDevice:
		prefix, field = "device:", "serial_number"
	case artifacts.ProgramExecution:
		prefix, field = "program:", "program"
	case artifacts.Prefetch:
		prefix, field = "program:", "executable"
	case artifacts.RunKey:
		prefix, field = "program:", "command"
	case artifacts.BrowserHistory, artifacts.BrowserDownload:
		prefix, field = "url:", "url"
	default:
		return ""
	}

	value := artifact.GetString(field)
	if value == "" {
		return ""
	}
	return prefix + value
}

// Build the activity graph over artifacts already in deterministic
// (timestamp, type, natural key) order.
func BuildGraph(rows []*artifacts.Artifact,
	config_obj *config.Config) *Graph {

	window := 300 * time.Second
	if config_obj.Anomaly != nil &&
		config_obj.Anomaly.AdjacencyWindowSeconds > 0 {
		window = time.Duration(
			config_obj.Anomaly.AdjacencyWindowSeconds) * time.Second
	}

	graph := &Graph{}
	for i, artifact := range rows {
		graph.Nodes = append(graph.Nodes, &Node{
			Index:    i,
			Artifact: artifact,
		})
	}

	edges := make(map[int]map[int]bool)

	// Temporal adjacency. Input is timestamp ordered so a sliding
	// window is enough.
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			if rows[j].Timestamp.Sub(rows[i].Timestamp) > window {
				break
			}
			graph.addEdge(edges, i, j)
		}
	}

	// Same provenance and same identity.
	by_source := make(map[string][]int)
	by_identity := make(map[string][]int)
	for i, artifact := range rows {
		if artifact.Source != "" {
			by_source[artifact.Source] = append(
				by_source[artifact.Source], i)
		}
		identity := nodeIdentity(artifact)
		if identity != "" {
			by_identity[identity] = append(by_identity[identity], i)
		}
	}
	for _, group := range by_source {
		for i := 1; i < len(group); i++ {
			graph.addEdge(edges, group[0], group[i])
		}
	}
	for _, group := range by_identity {
		for i := 1; i < len(group); i++ {
			graph.addEdge(edges, group[0], group[i])
		}
	}

	for i, node := range graph.Nodes {
		for neighbor := range edges[i] {
			node.Neighbors = append(node.Neighbors, neighbor)
		}
		sort.Ints(node.Neighbors)
	}
	return graph
}
