package evaluation

import "github.com/IBM/appconfiguration-go-client-sdk/util"

// Property is a dynamic configuration value. Properties carry segment
// targeting but no rollout percentage and no experiment: evaluation is
// deterministic per matched segment.
type Property struct {
	Name         string        `json:"name"`
	PropertyID   string        `json:"property_id" validate:"required"`
	Type         string        `json:"type" validate:"oneof=BOOLEAN STRING NUMERIC"`
	Format       string        `json:"format,omitempty"`
	Value        interface{}   `json:"value"`
	SegmentRules []SegmentRule `json:"segment_rules"`

	snapshot *Snapshot
	recorder UsageRecorder
}

func (p *Property) GetPropertyName() string {
	return p.Name
}

func (p *Property) GetPropertyID() string {
	return p.PropertyID
}

func (p *Property) GetPropertyDataType() string {
	return p.Type
}

// GetPropertyDataFormat returns TEXT, JSON or YAML. Only meaningful for
// STRING properties; an unset format defaults to TEXT.
func (p *Property) GetPropertyDataFormat() string {
	if p.Format == "" && p.Type == FeatureTypeString {
		return FormatText
	}
	return p.Format
}

// GetCurrentValue evaluates the property for the given entity and
// returns the base or overridden value. Every call records one usage
// for metering.
func (p *Property) GetCurrentValue(entityID string, entityAttributes map[string]interface{}) interface{} {
	if entityID == "" {
		util.Warnf("property evaluation: invalid entityId passed to GetCurrentValue")
		return nil
	}
	result := p.evaluate(entityAttributes)
	if p.recorder != nil {
		p.recorder.RecordPropertyUsage(p.PropertyID, entityID, result.segmentID)
	}
	return convertValue(result.value, p.GetPropertyDataFormat())
}

func (p *Property) evaluate(entityAttributes map[string]interface{}) evaluationResult {
	if len(p.SegmentRules) > 0 && len(entityAttributes) > 0 {
		match, outcome := p.snapshot.findMatchingSegment(p.SegmentRules, entityAttributes)
		switch outcome {
		case matchFound:
			// first matching segment wins outright, no percentage check
			return evaluationResult{
				value:     match.rule.resolveValue(p.Value),
				segmentID: match.segmentID,
			}
		case matchMalformed:
			util.Warnf("property rule evaluation for %s degraded to base value", p.PropertyID)
		}
	}
	return noMatchResult(p.Value, false)
}
