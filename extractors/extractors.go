// Artifact extractors. Each extractor decodes one family of evidence
// from the mounted image and emits typed artifact records. Extractors
// are registered from init() into a fixed registry and are fully
// independent: they never assume another extractor already ran, and a
// failure in one never prevents the others from completing.

package extractors

import (
	"context"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
)

var (
	mu       sync.Mutex
	registry = make(map[string]Extractor)

	artifactsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extractor_artifacts_emitted_total",
		Help: "Artifacts emitted by each extractor.",
	}, []string{"extractor"})
)

type Extractor interface {
	Name() string

	// Decode artifacts from the image and send them on the output
	// channel. Re-invocation on the same image restarts from the
	// beginning - dedup happens at the store.
	Extract(ctx context.Context, walker *filesystem.Walker,
		case_id string, output chan<- *artifacts.Artifact) error
}

func RegisterExtractor(extractor Extractor) {
	mu.Lock()
	defer mu.Unlock()

	registry[extractor.Name()] = extractor
}

func GetExtractor(name string) (Extractor, bool) {
	mu.Lock()
	defer mu.Unlock()

	extractor, pres := registry[name]
	return extractor, pres
}

// All registered extractors in stable name order.
func AllExtractors() []Extractor {
	mu.Lock()
	defer mu.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Extractor, 0, len(names))
	for _, name := range names {
		result = append(result, registry[name])
	}
	return result
}

// Send respecting cancellation. Returns false when the context is
// done.
func emit(ctx context.Context, output chan<- *artifacts.Artifact,
	extractor_name string, artifact *artifacts.Artifact) bool {
	select {
	case <-ctx.Done():
		return false

	case output <- artifact:
		artifactsEmitted.WithLabelValues(extractor_name).Inc()
		return true
	}
}
