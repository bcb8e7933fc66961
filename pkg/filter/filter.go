// Package filter evaluates event filter expressions.
//
// An expression maps event-data field names to either a literal value
// (equality) or an operator object such as {"$gte": 50, "$lte": 150}.
// All field conditions must hold, and all operators on one field must hold;
// there is no OR combinator.
package filter

import (
	"reflect"
	"regexp"
	"strings"
)

// Expression is a filter over an event's data fields. A nil or empty
// expression matches every event.
type Expression = map[string]any

// Operator is one of the supported comparison operators. The set is closed;
// an operator object containing an unknown key never matches.
type Operator string

const (
	OpGT     Operator = "$gt"
	OpGTE    Operator = "$gte"
	OpLT     Operator = "$lt"
	OpLTE    Operator = "$lte"
	OpIn     Operator = "$in"
	OpNotIn  Operator = "$nin"
	OpRegex  Operator = "$regex"
	OpExists Operator = "$exists"
)

// Matches reports whether the event data satisfies the expression.
// It is pure and never panics on well-formed input.
func Matches(data map[string]any, expr Expression) bool {
	if len(expr) == 0 {
		return true
	}

	for field, cond := range expr {
		actual, present := data[field]

		if ops, ok := operatorObject(cond); ok {
			for op, expected := range ops {
				if !evalOperator(op, actual, present, expected) {
					return false
				}
			}
			continue
		}

		if !present || !equalValues(actual, cond) {
			return false
		}
	}
	return true
}

// operatorObject reports whether cond is an operator object, i.e. a map
// whose keys all start with '$'.
func operatorObject(cond any) (map[string]any, bool) {
	m, ok := cond.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func evalOperator(op string, actual any, present bool, expected any) bool {
	switch Operator(op) {
	case OpGT, OpGTE, OpLT, OpLTE:
		return evalNumeric(Operator(op), actual, expected)
	case OpIn:
		return containsValue(expected, actual)
	case OpNotIn:
		return !containsValue(expected, actual)
	case OpRegex:
		return evalRegex(actual, expected)
	case OpExists:
		want, ok := expected.(bool)
		if !ok {
			return false
		}
		exists := present && actual != nil
		return exists == want
	default:
		return false
	}
}

// evalNumeric applies an inclusive/exclusive numeric comparison. Non-numeric
// actual values never match a numeric operator.
func evalNumeric(op Operator, actual, expected any) bool {
	a, ok := toFloat(actual)
	if !ok {
		return false
	}
	e, ok := toFloat(expected)
	if !ok {
		return false
	}
	switch op {
	case OpGT:
		return a > e
	case OpGTE:
		return a >= e
	case OpLT:
		return a < e
	case OpLTE:
		return a <= e
	}
	return false
}

// containsValue reports whether list (any slice or array) has an element
// equal to v.
func containsValue(list any, v any) bool {
	rv := reflect.ValueOf(list)
	if !rv.IsValid() {
		return false
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equalValues(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

// evalRegex tests a string value against a pattern. Non-string actual values
// and invalid patterns never match.
func evalRegex(actual, expected any) bool {
	s, ok := actual.(string)
	if !ok {
		return false
	}
	pattern, ok := expected.(string)
	if !ok {
		return false
	}
	matched, err := regexp.MatchString(pattern, s)
	return err == nil && matched
}

// equalValues is strict equality with one concession: numeric values compare
// by value across Go numeric types, since JSON decoding turns every number
// into float64.
func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	if _, ok := toFloat(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

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
	default:
		return 0, false
	}
}
