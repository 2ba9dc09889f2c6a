package api

const (
	EventType_ExperimentEvaluation = "evaluation_event"
	EventType_ExperimentMetric     = "metric_event"
)

// ExperimentUsage records a single experiment variation assignment.
// Assignments are never aggregated; each one is its own row.
type ExperimentUsage struct {
	ExperimentID  string `json:"experiment_id"`
	IterationID   string `json:"iteration_id"`
	FeatureID     string `json:"feature_id"`
	VariationID   string `json:"variation_id"`
	EntityID      string `json:"entity_id"`
	AudienceGroup string `json:"audience_group"`
	Timestamp     string `json:"timestamp"`
}

// MetricUsage records a custom business event attributed to a running
// experiment.
type MetricUsage struct {
	ExperimentID string `json:"experiment_id"`
	IterationID  string `json:"iteration_id"`
	FeatureID    string `json:"feature_id"`
	EntityID     string `json:"entity_id"`
	EventKey     string `json:"event_key"`
	Timestamp    string `json:"timestamp"`
}

type ExperimentEventBody struct {
	Type          string            `json:"type"`
	EnvironmentID string            `json:"environment_id"`
	Usages        []ExperimentUsage `json:"usages"`
}

type MetricEventBody struct {
	Type          string        `json:"type"`
	EnvironmentID string        `json:"environment_id"`
	Usages        []MetricUsage `json:"usages"`
}
