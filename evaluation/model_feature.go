package evaluation

import (
	"encoding/json"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/IBM/appconfiguration-go-client-sdk/api"
	"github.com/IBM/appconfiguration-go-client-sdk/util"
)

// Feature is a feature flag as delivered in a configuration snapshot.
// Immutable after construction; a snapshot refresh replaces the whole
// object, never mutates it in place.
type Feature struct {
	Name              string        `json:"name"`
	FeatureID         string        `json:"feature_id" validate:"required"`
	Type              string        `json:"type" validate:"oneof=BOOLEAN STRING NUMERIC"`
	Format            string        `json:"format,omitempty"`
	EnabledValue      interface{}   `json:"enabled_value"`
	DisabledValue     interface{}   `json:"disabled_value"`
	SegmentRules      []SegmentRule `json:"segment_rules"`
	Enabled           bool          `json:"enabled"`
	RolloutPercentage *int          `json:"rollout_percentage,omitempty"`
	Experiment        *Experiment   `json:"experiment,omitempty"`

	snapshot *Snapshot
	recorder UsageRecorder
}

func (f *Feature) GetFeatureName() string {
	return f.Name
}

func (f *Feature) GetFeatureID() string {
	return f.FeatureID
}

// GetFeatureDataType returns BOOLEAN, STRING or NUMERIC.
func (f *Feature) GetFeatureDataType() string {
	return f.Type
}

// GetFeatureDataFormat returns TEXT, JSON or YAML. Only meaningful for
// STRING features; an unset format defaults to TEXT.
func (f *Feature) GetFeatureDataFormat() string {
	if f.Format == "" && f.Type == FeatureTypeString {
		return FormatText
	}
	return f.Format
}

// IsEnabled returns the toggle state of the feature flag, independent
// of any targeting or rollout.
func (f *Feature) IsEnabled() bool {
	return f.Enabled
}

// GetRolloutPercentage returns the feature-level rollout percentage,
// defaulting to 100 when the snapshot omitted it.
func (f *Feature) GetRolloutPercentage() int {
	if f.RolloutPercentage == nil {
		return 100
	}
	return *f.RolloutPercentage
}

// GetCurrentValue evaluates the feature flag for the given entity and
// returns the enabled, disabled or overridden value. Every call records
// one usage (or experiment assignment) for metering.
func (f *Feature) GetCurrentValue(entityID string, entityAttributes map[string]interface{}) interface{} {
	if entityID == "" {
		util.Warnf("feature flag evaluation: invalid entityId passed to GetCurrentValue")
		return nil
	}
	result := f.evaluate(entityID, entityAttributes)
	f.record(entityID, result)
	return convertValue(result.value, f.GetFeatureDataFormat())
}

// GetCurrentState evaluates the feature flag for the given entity and
// returns whether it came out enabled. Records metering like
// GetCurrentValue.
func (f *Feature) GetCurrentState(entityID string, entityAttributes map[string]interface{}) bool {
	if entityID == "" {
		util.Warnf("feature flag evaluation: invalid entityId passed to GetCurrentState")
		return false
	}
	result := f.evaluate(entityID, entityAttributes)
	f.record(entityID, result)
	return result.isEnabled
}

func (f *Feature) record(entityID string, result evaluationResult) {
	if f.recorder == nil {
		return
	}
	if result.assignment != nil {
		f.recorder.RecordExperimentAssignment(*result.assignment)
		return
	}
	f.recorder.RecordFeatureUsage(f.FeatureID, entityID, result.segmentID)
}

func (f *Feature) evaluate(entityID string, entityAttributes map[string]interface{}) evaluationResult {
	if !f.Enabled {
		return noMatchResult(f.DisabledValue, false)
	}
	if f.Experiment != nil && f.Experiment.IsRunning() {
		return f.resolveExperiment(entityID, entityAttributes)
	}
	if len(f.SegmentRules) > 0 && len(entityAttributes) > 0 {
		match, outcome := f.snapshot.findMatchingSegment(f.SegmentRules, entityAttributes)
		switch outcome {
		case matchFound:
			return f.resolveSegmentRule(match, entityID)
		case matchMalformed:
			util.Warnf("feature flag rule evaluation for %s degraded to rollout fallback", f.FeatureID)
		}
	}
	return f.fallbackEvaluation(entityID)
}

// resolveSegmentRule applies the matched rule's rollout percentage and
// override value, resolving the $default sentinels against the feature.
func (f *Feature) resolveSegmentRule(match ruleMatch, entityID string) evaluationResult {
	percentage, err := match.rule.resolveRolloutPercentage(f.GetRolloutPercentage())
	if err != nil {
		util.Warnf("feature flag %s: %v, degraded to rollout fallback", f.FeatureID, err)
		return f.fallbackEvaluation(entityID)
	}
	if percentage == 100 || GetNormalizedValue(entityID+":"+f.FeatureID) < percentage {
		return evaluationResult{
			value:     match.rule.resolveValue(f.EnabledValue),
			isEnabled: true,
			segmentID: match.segmentID,
		}
	}
	return evaluationResult{
		value:     f.DisabledValue,
		isEnabled: false,
		segmentID: match.segmentID,
	}
}

func (f *Feature) fallbackEvaluation(entityID string) evaluationResult {
	p := f.GetRolloutPercentage()
	if p == 100 || GetNormalizedValue(entityID+":"+f.FeatureID) < p {
		return noMatchResult(f.EnabledValue, true)
	}
	return noMatchResult(f.DisabledValue, false)
}

func (f *Feature) resolveExperiment(entityID string, entityAttributes map[string]interface{}) evaluationResult {
	distribution := f.Experiment.TrafficDistribution
	switch distribution.Type {
	case DistributionTypeAll:
		return f.runTrafficPool(entityID)
	case DistributionTypeNoRule, DistributionTypeRule:
		if len(f.SegmentRules) > 0 && len(entityAttributes) > 0 {
			match, outcome := f.snapshot.findMatchingSegment(f.SegmentRules, entityAttributes)
			if outcome == matchFound {
				if distribution.Type == DistributionTypeRule && strconv.Itoa(match.rule.Order) == distribution.RuleID {
					// the experiment replaces this rule's own override logic
					return f.runTrafficPool(entityID)
				}
				return f.resolveSegmentRule(match, entityID)
			}
		}
		// nothing matched, or no attributes: the pool takes the place
		// of the percentage fallback
		return f.runTrafficPool(entityID)
	default:
		util.Warnf("experiment %s has unknown traffic distribution type %q", f.Experiment.ExperimentID, distribution.Type)
		return f.fallbackEvaluation(entityID)
	}
}

func (f *Feature) runTrafficPool(entityID string) evaluationResult {
	experiment := f.Experiment
	bucket := GetNormalizedValue(entityID + ":" + f.FeatureID + ":" + experiment.Iteration.IterationKey)
	entry, ok := decideVariation(experiment.variationPool(), bucket)
	if !ok {
		util.Errorf("experiment %s traffic distribution weights do not cover bucket %d", experiment.ExperimentID, bucket)
		return noMatchResult(nil, false)
	}
	value, ok := experiment.variationValue(entry.variationID)
	if !ok {
		util.Errorf("experiment %s has no variation %s", experiment.ExperimentID, entry.variationID)
		return noMatchResult(nil, false)
	}
	return evaluationResult{
		value:     value,
		isEnabled: true,
		segmentID: api.DefaultSegmentID,
		assignment: &ExperimentAssignment{
			ExperimentID:  experiment.ExperimentID,
			IterationID:   experiment.Iteration.IterationID,
			FeatureID:     f.FeatureID,
			VariationID:   entry.variationID,
			EntityID:      entityID,
			AudienceGroup: entry.audience,
		},
	}
}

// convertValue parses string values of JSON/YAML formatted features and
// properties into their structured representation. Parse failures fall
// back to the raw string.
func convertValue(value interface{}, format string) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	switch format {
	case FormatJSON:
		var parsed interface{}
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			util.Warnf("value is not valid JSON, returning raw string: %v", err)
			return s
		}
		return parsed
	case FormatYAML:
		var parsed interface{}
		if err := yaml.Unmarshal([]byte(s), &parsed); err != nil {
			util.Warnf("value is not valid YAML, returning raw string: %v", err)
			return s
		}
		return parsed
	default:
		return value
	}
}
