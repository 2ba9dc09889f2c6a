package evaluation

// DefaultValue is the override sentinel on a targeting rule meaning
// "inherit the owner's value": the feature's enabled value or the
// property's base value. The same sentinel on a rule's rollout
// percentage means "inherit the feature-level percentage".
const DefaultValue = "$default"

const (
	FeatureTypeBoolean = "BOOLEAN"
	FeatureTypeString  = "STRING"
	FeatureTypeNumeric = "NUMERIC"
)

const (
	FormatText = "TEXT"
	FormatJSON = "JSON"
	FormatYAML = "YAML"
)
