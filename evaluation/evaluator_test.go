package evaluation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IBM/appconfiguration-go-client-sdk/api"
)

type recordedUsage struct {
	id        string
	entityID  string
	segmentID string
}

// testRecorder captures recorder callbacks for assertions.
type testRecorder struct {
	features    []recordedUsage
	properties  []recordedUsage
	assignments []ExperimentAssignment
}

func (r *testRecorder) RecordFeatureUsage(featureID, entityID, segmentID string) {
	r.features = append(r.features, recordedUsage{featureID, entityID, segmentID})
}

func (r *testRecorder) RecordPropertyUsage(propertyID, entityID, segmentID string) {
	r.properties = append(r.properties, recordedUsage{propertyID, entityID, segmentID})
}

func (r *testRecorder) RecordExperimentAssignment(assignment ExperimentAssignment) {
	r.assignments = append(r.assignments, assignment)
}

func testSegments() []*Segment {
	return []*Segment{
		{
			Name:      "testers",
			SegmentID: "seg-testers",
			Rules: []Rule{
				{AttributeName: "email", Operator: OperatorEndsWith, Values: []string{"@tester.com"}},
			},
		},
		{
			Name:      "premium",
			SegmentID: "seg-premium",
			Rules: []Rule{
				{AttributeName: "plan", Operator: OperatorIs, Values: []string{"premium"}},
			},
		},
	}
}

func buildSnapshot(t *testing.T, payload *ConfigPayload, recorder UsageRecorder) *Snapshot {
	t.Helper()
	snapshot, err := NewSnapshot(payload, recorder)
	require.NoError(t, err)
	return snapshot
}

func TestFeatureDisabledShortCircuits(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{{
			FeatureID:     "dark-mode",
			Type:          FeatureTypeBoolean,
			EnabledValue:  true,
			DisabledValue: false,
			Enabled:       false,
			SegmentRules: []SegmentRule{
				{Order: 1, Value: true, Rules: []RuleLevel{{Segments: []string{"seg-testers"}}}},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	feature, err := snapshot.Feature("dark-mode")
	require.NoError(t, err)
	value := feature.GetCurrentValue("user-1", map[string]interface{}{"email": "dev@tester.com"})
	require.Equal(t, false, value)
	require.False(t, feature.GetCurrentState("user-1", nil))
	require.Len(t, recorder.features, 2)
	require.Equal(t, api.DefaultSegmentID, recorder.features[0].segmentID)
}

func TestFeatureSegmentMatchFirstOrderWins(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{{
			FeatureID:     "discount",
			Type:          FeatureTypeNumeric,
			EnabledValue:  float64(5),
			DisabledValue: float64(0),
			Enabled:       true,
			SegmentRules: []SegmentRule{
				{Order: 2, Value: float64(25), Rules: []RuleLevel{{Segments: []string{"seg-premium"}}}},
				{Order: 1, Value: float64(10), Rules: []RuleLevel{{Segments: []string{"seg-testers"}}}},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	feature, _ := snapshot.Feature("discount")
	// entity satisfies both segments; order 1 must win regardless of
	// slice position
	attrs := map[string]interface{}{"email": "dev@tester.com", "plan": "premium"}
	require.Equal(t, float64(10), feature.GetCurrentValue("user-1", attrs))
	require.Equal(t, "seg-testers", recorder.features[0].segmentID)

	// only the second-order segment matches
	require.Equal(t, float64(25), feature.GetCurrentValue("user-2", map[string]interface{}{"plan": "premium"}))
	require.Equal(t, "seg-premium", recorder.features[1].segmentID)
}

func TestFeatureDefaultSentinels(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{{
			FeatureID:     "banner",
			Type:          FeatureTypeString,
			EnabledValue:  "enabled banner",
			DisabledValue: "disabled banner",
			Enabled:       true,
			SegmentRules: []SegmentRule{
				{
					Order:             1,
					Value:             DefaultValue,
					RolloutPercentage: DefaultValue,
					Rules:             []RuleLevel{{Segments: []string{"seg-testers"}}},
				},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	feature, _ := snapshot.Feature("banner")
	// $default value inherits the enabled value, $default percentage
	// inherits the feature-level 100
	value := feature.GetCurrentValue("user-1", map[string]interface{}{"email": "dev@tester.com"})
	require.Equal(t, "enabled banner", value)
	require.Equal(t, "seg-testers", recorder.features[0].segmentID)
}

func TestFeatureSegmentMatchZeroPercentageDisables(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{{
			FeatureID:     "beta-ui",
			Type:          FeatureTypeBoolean,
			EnabledValue:  true,
			DisabledValue: false,
			Enabled:       true,
			SegmentRules: []SegmentRule{
				{
					Order:             1,
					Value:             true,
					RolloutPercentage: float64(0),
					Rules:             []RuleLevel{{Segments: []string{"seg-testers"}}},
				},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	feature, _ := snapshot.Feature("beta-ui")
	attrs := map[string]interface{}{"email": "dev@tester.com"}
	require.Equal(t, false, feature.GetCurrentValue("user-1", attrs))
	require.False(t, feature.GetCurrentState("user-1", attrs))
	// the matched segment id is still recorded even though the rollout
	// excluded the entity
	require.Equal(t, "seg-testers", recorder.features[0].segmentID)
}

func TestFeatureRolloutFallback(t *testing.T) {
	full := 100
	none := 0
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{
			{
				FeatureID:         "flag-on",
				Type:              FeatureTypeBoolean,
				EnabledValue:      true,
				DisabledValue:     false,
				Enabled:           true,
				RolloutPercentage: &full,
			},
			{
				FeatureID:         "flag-off",
				Type:              FeatureTypeBoolean,
				EnabledValue:      true,
				DisabledValue:     false,
				Enabled:           true,
				RolloutPercentage: &none,
			},
		},
	}, recorder)

	on, _ := snapshot.Feature("flag-on")
	off, _ := snapshot.Feature("flag-off")
	require.Equal(t, true, on.GetCurrentValue("user-1", nil))
	require.Equal(t, false, off.GetCurrentValue("user-1", nil))
	require.Equal(t, api.DefaultSegmentID, recorder.features[0].segmentID)
	require.Equal(t, api.DefaultSegmentID, recorder.features[1].segmentID)
}

func TestFeatureMalformedTargetingFallsBack(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{{
			FeatureID:     "gappy",
			Type:          FeatureTypeString,
			EnabledValue:  "base",
			DisabledValue: "off",
			Enabled:       true,
			SegmentRules: []SegmentRule{
				// order 1 is missing; the search must degrade, not panic
				{Order: 2, Value: "override", Rules: []RuleLevel{{Segments: []string{"seg-testers"}}}},
				{Order: 3, Value: "other", Rules: []RuleLevel{{Segments: []string{"seg-premium"}}}},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	feature, _ := snapshot.Feature("gappy")
	value := feature.GetCurrentValue("user-1", map[string]interface{}{"email": "dev@tester.com"})
	require.Equal(t, "base", value)
	require.Equal(t, api.DefaultSegmentID, recorder.features[0].segmentID)
}

func TestFeatureUnknownSegmentIDNeverMatches(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{{
			FeatureID:     "unknown-seg",
			Type:          FeatureTypeBoolean,
			EnabledValue:  true,
			DisabledValue: false,
			Enabled:       true,
			SegmentRules: []SegmentRule{
				{Order: 1, Value: true, Rules: []RuleLevel{{Segments: []string{"seg-missing"}}}},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	feature, _ := snapshot.Feature("unknown-seg")
	require.Equal(t, true, feature.GetCurrentValue("user-1", map[string]interface{}{"email": "dev@tester.com"}))
	require.Equal(t, api.DefaultSegmentID, recorder.features[0].segmentID)
}

func TestFeatureEmptyEntityID(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Features: []*Feature{{
			FeatureID:     "dark-mode",
			Type:          FeatureTypeBoolean,
			EnabledValue:  true,
			DisabledValue: false,
			Enabled:       true,
		}},
	}, recorder)

	feature, _ := snapshot.Feature("dark-mode")
	require.Nil(t, feature.GetCurrentValue("", nil))
	require.False(t, feature.GetCurrentState("", nil))
	require.Empty(t, recorder.features)
}

func TestPropertyEvaluation(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Properties: []*Property{{
			PropertyID: "request-timeout",
			Type:       FeatureTypeNumeric,
			Value:      float64(30),
			SegmentRules: []SegmentRule{
				{Order: 1, Value: float64(60), Rules: []RuleLevel{{Segments: []string{"seg-premium"}}}},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	property, err := snapshot.Property("request-timeout")
	require.NoError(t, err)

	// matched segment overrides without any percentage check
	require.Equal(t, float64(60), property.GetCurrentValue("user-1", map[string]interface{}{"plan": "premium"}))
	require.Equal(t, "seg-premium", recorder.properties[0].segmentID)

	// no match returns the base value
	require.Equal(t, float64(30), property.GetCurrentValue("user-2", map[string]interface{}{"plan": "lite"}))
	require.Equal(t, api.DefaultSegmentID, recorder.properties[1].segmentID)

	require.Nil(t, property.GetCurrentValue("", nil))
	require.Len(t, recorder.properties, 2)
}

func TestPropertyDefaultSentinelInheritsBaseValue(t *testing.T) {
	recorder := &testRecorder{}
	snapshot := buildSnapshot(t, &ConfigPayload{
		Properties: []*Property{{
			PropertyID: "greeting",
			Type:       FeatureTypeString,
			Value:      "hello",
			SegmentRules: []SegmentRule{
				{Order: 1, Value: DefaultValue, Rules: []RuleLevel{{Segments: []string{"seg-testers"}}}},
			},
		}},
		Segments: testSegments(),
	}, recorder)

	property, _ := snapshot.Property("greeting")
	require.Equal(t, "hello", property.GetCurrentValue("user-1", map[string]interface{}{"email": "dev@tester.com"}))
	require.Equal(t, "seg-testers", recorder.properties[0].segmentID)
}

func TestConvertValueFormats(t *testing.T) {
	parsedJSON := convertValue(`{"retries": 3}`, FormatJSON)
	require.Equal(t, map[string]interface{}{"retries": float64(3)}, parsedJSON)

	parsedYAML := convertValue("retries: 3", FormatYAML)
	require.Equal(t, map[string]interface{}{"retries": 3}, parsedYAML)

	// parse failures fall back to the raw string
	require.Equal(t, "{not json", convertValue("{not json", FormatJSON))

	require.Equal(t, "plain", convertValue("plain", FormatText))
	require.Equal(t, true, convertValue(true, FormatJSON))
}
