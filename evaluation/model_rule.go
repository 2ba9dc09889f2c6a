package evaluation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	OperatorEndsWith          = "endsWith"
	OperatorStartsWith        = "startsWith"
	OperatorContains          = "contains"
	OperatorIs                = "is"
	OperatorGreaterThan       = "greaterThan"
	OperatorLesserThan        = "lesserThan"
	OperatorGreaterThanEquals = "greaterThanEquals"
	OperatorLesserThanEquals  = "lesserThanEquals"
)

// Rule is a single attribute comparison inside a segment.
type Rule struct {
	AttributeName string   `json:"attribute_name" validate:"required"`
	Operator      string   `json:"operator" validate:"required"`
	Values        []string `json:"values"`
}

// Evaluate reports whether the entity attribute satisfies the rule. A
// missing attribute never matches; a match against any one of the
// comparison values is enough.
func (r *Rule) Evaluate(entityAttributes map[string]interface{}) bool {
	attr, ok := entityAttributes[r.AttributeName]
	if !ok {
		return false
	}
	for _, value := range r.Values {
		if r.operatorCheck(attr, value) {
			return true
		}
	}
	return false
}

func (r *Rule) operatorCheck(attr interface{}, value string) bool {
	if attr == nil || value == "" {
		return false
	}
	switch r.Operator {
	case OperatorEndsWith:
		return strings.HasSuffix(strings.ToLower(attributeString(attr)), strings.ToLower(value))
	case OperatorStartsWith:
		return strings.HasPrefix(strings.ToLower(attributeString(attr)), strings.ToLower(value))
	case OperatorContains:
		return strings.Contains(attributeString(attr), value)
	case OperatorIs:
		if n, isNumber := attributeNumber(attr); isNumber {
			v, err := strconv.ParseFloat(value, 64)
			return err == nil && n == v
		}
		return attributeString(attr) == value
	case OperatorGreaterThan, OperatorLesserThan, OperatorGreaterThanEquals, OperatorLesserThanEquals:
		a, errA := attributeFloat(attr)
		v, errV := strconv.ParseFloat(value, 64)
		if errA != nil || errV != nil {
			return false
		}
		switch r.Operator {
		case OperatorGreaterThan:
			return a > v
		case OperatorLesserThan:
			return a < v
		case OperatorGreaterThanEquals:
			return a >= v
		default:
			return a <= v
		}
	default:
		// unknown operator
		return false
	}
}

func attributeNumber(attr interface{}) (float64, bool) {
	switch v := attr.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	}
	return 0, false
}

func attributeFloat(attr interface{}) (float64, error) {
	if n, ok := attributeNumber(attr); ok {
		return n, nil
	}
	return strconv.ParseFloat(attributeString(attr), 64)
}

func attributeString(attr interface{}) string {
	switch v := attr.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
