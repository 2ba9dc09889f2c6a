package evaluation

// Segment is a named group of entities described by attribute rules.
type Segment struct {
	Name      string `json:"name"`
	SegmentID string `json:"segment_id" validate:"required"`
	Rules     []Rule `json:"rules"`
}

// Evaluate reports whether the entity satisfies every rule of the
// segment. Short-circuits on the first failing rule.
func (s *Segment) Evaluate(entityAttributes map[string]interface{}) bool {
	for i := range s.Rules {
		if !s.Rules[i].Evaluate(entityAttributes) {
			return false
		}
	}
	return true
}
