package evaluation

import "fmt"

// RuleLevel is one level of a targeting rule: a list of segment ids
// checked in listed order.
type RuleLevel struct {
	Segments []string `json:"segments"`
}

// SegmentRule attaches segment targeting to a feature or property.
// Order is a 1-based precedence, unique within the owner. Value may be
// the DefaultValue sentinel, meaning "inherit the owner's value".
// RolloutPercentage is a number, the DefaultValue sentinel (inherit the
// feature-level percentage), or absent (100). Properties never apply a
// percentage.
type SegmentRule struct {
	Rules             []RuleLevel `json:"rules"`
	Value             interface{} `json:"value"`
	Order             int         `json:"order" validate:"min=1"`
	RolloutPercentage interface{} `json:"rollout_percentage,omitempty"`
}

// resolveRolloutPercentage returns the effective percentage for this
// rule, substituting the owner's percentage for the sentinel.
func (sr *SegmentRule) resolveRolloutPercentage(ownerPercentage int) (int, error) {
	switch v := sr.RolloutPercentage.(type) {
	case nil:
		return 100, nil
	case string:
		if v == DefaultValue {
			return ownerPercentage, nil
		}
		return 0, fmt.Errorf("unrecognized rollout percentage %q", v)
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("unrecognized rollout percentage type %T", sr.RolloutPercentage)
	}
}

// resolveValue returns the rule's override value, substituting the
// owner's value for the sentinel.
func (sr *SegmentRule) resolveValue(ownerValue interface{}) interface{} {
	if s, ok := sr.Value.(string); ok && s == DefaultValue {
		return ownerValue
	}
	return sr.Value
}
