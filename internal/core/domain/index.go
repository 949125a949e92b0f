package domain

// SimilarityMetric identifies the scoring function of a vector index.
type SimilarityMetric string

// MetricCosine is the only supported metric: dot(a,b)/(||a||*||b||),
// range [-1, 1], higher is more similar.
const MetricCosine SimilarityMetric = "cosine"

// IndexStatus is the lifecycle state of a vector index.
type IndexStatus string

const (
	// IndexBuilding means the index exists but the store has not yet
	// confirmed it is queryable.
	IndexBuilding IndexStatus = "building"

	// IndexReady means the index is confirmed queryable.
	IndexReady IndexStatus = "ready"

	// IndexStale means the underlying collection's dimension no longer
	// matches the index metadata; a full re-embed is required.
	IndexStale IndexStatus = "stale"
)

// IndexMetadata describes a vector index. One per collection.
type IndexMetadata struct {
	// Name identifies the index within the store.
	Name string

	// Dimension is the fixed vector length. Constant for the life of the
	// index; changing it is a deliberate operator action.
	Dimension int

	// Metric is the similarity function.
	Metric SimilarityMetric

	// Status is the lifecycle state.
	Status IndexStatus
}
