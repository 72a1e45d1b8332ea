package reconciler

import (
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// lookup returns the value stored under the first alias present in obj.
// Keys are compared after normalisation; among keys normalising to the same
// alias the lexically smallest wins.
func lookup(obj map[string]any, aliases []string) (any, bool) {
	if len(obj) == 0 {
		return nil, false
	}
	keys := sortedKeys(obj)
	for _, alias := range aliases {
		for _, key := range keys {
			if domain.NormalizeKey(key) == alias {
				return obj[key], true
			}
		}
	}
	return nil, false
}

func lookupValue(obj map[string]any, aliases []string) any {
	v, _ := lookup(obj, aliases)
	return v
}

func sortedKeys(obj map[string]any) []string {
	keys := lo.Keys(obj)
	slices.Sort(keys)
	return keys
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case domain.StructuredRecord:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

// asList wraps a single value into a list; nil yields nil.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// asString returns trimmed text for string and numeric values.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asNumber accepts JSON numbers and numeric strings.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// collapseSpace replaces runs of whitespace with single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
