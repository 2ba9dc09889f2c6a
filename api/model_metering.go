package api

// Sentinel ids used inside the in-memory aggregates. They serialize as
// JSON null in request bodies; the collector relies on that substitution.
const (
	DefaultEntityID  = "$$null$$"
	DefaultSegmentID = "$$null$$"
)

// MeteringUsage is one flattened row of the usage aggregate. Exactly one
// of FeatureID and PropertyID is set depending on which aggregate the
// row came from.
type MeteringUsage struct {
	FeatureID      *string `json:"feature_id,omitempty"`
	PropertyID     *string `json:"property_id,omitempty"`
	EntityID       *string `json:"entity_id"`
	SegmentID      *string `json:"segment_id"`
	EvaluationTime string  `json:"evaluation_time"`
	Count          int64   `json:"count"`
}

// MeteringBody is the usage request body shape expected by the collector.
type MeteringBody struct {
	CollectionID  string          `json:"collection_id"`
	EnvironmentID string          `json:"environment_id"`
	Usages        []MeteringUsage `json:"usages"`
}
