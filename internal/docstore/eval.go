package docstore

import (
	"encoding/json"
	"reflect"
	"time"
)

// normalizeValue converts a Go value to the form it would take after a JSON
// round trip, so condition values compare cleanly against decoded documents.
// Times become RFC3339 strings; this is the adapter's single timestamp
// representation on the wire and on disk.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64, string, bool:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return v
		}
		return out
	}
}

// normalizeMap runs normalizeValue over every value in a document.
func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// matchesAll reports whether a document satisfies every condition.
func matchesAll(data map[string]any, conds []Condition) bool {
	for _, cond := range conds {
		if !matches(data, cond) {
			return false
		}
	}
	return true
}

func matches(data map[string]any, cond Condition) bool {
	have := data[cond.Field]
	want := normalizeValue(cond.Value)

	switch cond.Op {
	case OpEq:
		return equalValues(have, want)
	case OpNe:
		return !equalValues(have, want)
	case OpGt, OpGte, OpLt, OpLte:
		c, ok := compareValues(have, want)
		if !ok {
			return false
		}
		switch cond.Op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpContains:
		arr, ok := have.([]any)
		if !ok {
			return false
		}
		for _, elem := range arr {
			if equalValues(elem, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func equalValues(a, b any) bool {
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two document values. Numbers compare numerically and
// strings lexically, except that two timestamp strings compare as instants.
func compareValues(a, b any) (int, bool) {
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	as, ok := a.(string)
	if !ok {
		return 0, false
	}
	bs, ok := b.(string)
	if !ok {
		return 0, false
	}

	if at, err := time.Parse(time.RFC3339Nano, as); err == nil {
		if bt, err := time.Parse(time.RFC3339Nano, bs); err == nil {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}

	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	default:
		return 0, true
	}
}
