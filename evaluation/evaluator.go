package evaluation

import (
	"github.com/IBM/appconfiguration-go-client-sdk/api"
	"github.com/IBM/appconfiguration-go-client-sdk/util"
)

type matchOutcome int

const (
	// matchNone - no segment matched across all orders
	matchNone matchOutcome = iota
	// matchFound - a segment matched; the search stopped there
	matchFound
	// matchMalformed - the targeting data is inconsistent; the caller
	// degrades to its fallback instead of propagating
	matchMalformed
)

type ruleMatch struct {
	rule      *SegmentRule
	segmentID string
}

type evaluationResult struct {
	value      interface{}
	isEnabled  bool
	segmentID  string
	assignment *ExperimentAssignment
}

func noMatchResult(value interface{}, isEnabled bool) evaluationResult {
	return evaluationResult{value: value, isEnabled: isEnabled, segmentID: api.DefaultSegmentID}
}

// findMatchingSegment runs the ordered targeting search: rules by order
// precedence 1..N, within an order every rule level, within a level
// every segment id in listed order. The first segment the entity
// satisfies wins.
func (s *Snapshot) findMatchingSegment(segmentRules []SegmentRule, entityAttributes map[string]interface{}) (ruleMatch, matchOutcome) {
	rulesMap := make(map[int]*SegmentRule, len(segmentRules))
	for i := range segmentRules {
		rulesMap[segmentRules[i].Order] = &segmentRules[i]
	}

	for order := 1; order <= len(rulesMap); order++ {
		segmentRule, ok := rulesMap[order]
		if !ok {
			// duplicate or non-contiguous orders
			util.Warnf("targeting has no rule with order %d", order)
			return ruleMatch{}, matchMalformed
		}
		for _, level := range segmentRule.Rules {
			for _, segmentID := range level.Segments {
				if s.evaluateSegment(segmentID, entityAttributes) {
					return ruleMatch{rule: segmentRule, segmentID: segmentID}, matchFound
				}
			}
		}
	}
	return ruleMatch{}, matchNone
}

func (s *Snapshot) evaluateSegment(segmentID string, entityAttributes map[string]interface{}) bool {
	if segment, ok := s.segments[segmentID]; ok {
		return segment.Evaluate(entityAttributes)
	}
	return false
}
