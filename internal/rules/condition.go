package rules

import (
	"log/slog"
	"math"

	"github.com/leadfactory/leadscore/internal/domain"
)

// EvaluateCondition evaluates a single condition against an assessment.
//
// Semantics:
//   - Numeric comparisons fail closed: an absent or non-numeric field
//     never satisfies <, <=, >, >=.
//   - == compares like-typed values exactly; absent never equals.
//   - != treats absence as "not equal" and returns true.
//   - is_missing / is_present test field absence explicitly.
//
// A condition that cannot be evaluated (unknown operator, malformed
// value) is logged and treated as false; no error escapes to the caller
// so one bad rule never prevents scoring a lead.
func EvaluateCondition(cond domain.Condition, a *domain.Assessment) bool {
	val, present := a.Field(cond.Field)

	switch cond.Operator {
	case domain.OpIsMissing:
		return !present
	case domain.OpIsPresent:
		return present

	case domain.OpLess, domain.OpLessEqual, domain.OpGreater, domain.OpGreaterEqual:
		if !present {
			return false
		}
		fieldNum, ok := toFloat(val)
		if !ok {
			return false
		}
		wantNum, ok := toFloat(cond.Value)
		if !ok {
			slog.Warn("condition has non-numeric comparison value",
				"field", cond.Field,
				"operator", string(cond.Operator),
			)
			return false
		}
		return compareNumeric(cond.Operator, fieldNum, wantNum)

	case domain.OpEqual:
		if !present {
			return false
		}
		return equalValues(val, cond.Value)

	case domain.OpNotEqual:
		if !present {
			return true
		}
		return !equalValues(val, cond.Value)

	default:
		// Unreachable for validated rule sets.
		slog.Warn("unknown condition operator",
			"field", cond.Field,
			"operator", string(cond.Operator),
		)
		return false
	}
}

func compareNumeric(op domain.Operator, got, want float64) bool {
	if math.IsNaN(got) || math.IsNaN(want) {
		return false
	}
	switch op {
	case domain.OpLess:
		return got < want
	case domain.OpLessEqual:
		return got <= want
	case domain.OpGreater:
		return got > want
	case domain.OpGreaterEqual:
		return got >= want
	}
	return false
}

// equalValues compares a resolved field against an authored value.
// Numbers compare numerically regardless of concrete type (YAML authors
// integers, JSON decodes floats); other types require an exact match.
func equalValues(got, want any) bool {
	if gn, ok := toFloat(got); ok {
		if wn, ok := toFloat(want); ok {
			return gn == wn
		}
		return false
	}

	switch g := got.(type) {
	case string:
		w, ok := want.(string)
		return ok && g == w
	case bool:
		w, ok := want.(bool)
		return ok && g == w
	case nil:
		return want == nil
	}
	return false
}

// toFloat coerces the numeric types produced by YAML and JSON decoding.
// Booleans and strings are deliberately not coerced.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
