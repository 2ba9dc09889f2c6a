package evaluation

// ExperimentAssignment describes a variation selection made by a
// running experiment during feature evaluation.
type ExperimentAssignment struct {
	ExperimentID  string
	IterationID   string
	FeatureID     string
	VariationID   string
	EntityID      string
	AudienceGroup string
}

// UsageRecorder receives the unconditional side effect of every
// evaluation. Implementations must not block: evaluation is synchronous
// pure computation and the caller never waits on delivery.
type UsageRecorder interface {
	RecordFeatureUsage(featureID, entityID, segmentID string)
	RecordPropertyUsage(propertyID, entityID, segmentID string)
	RecordExperimentAssignment(assignment ExperimentAssignment)
}
