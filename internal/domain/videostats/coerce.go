package videostats

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// OrderedObject is a decoded JSON object that keeps the document key order.
type OrderedObject struct {
	Keys   []string
	Values map[string]any
}

func record(v any) map[string]any {
	switch typed := v.(type) {
	case map[string]any:
		return typed
	case OrderedObject:
		return typed.Values
	case *OrderedObject:
		if typed != nil {
			return typed.Values
		}
	}
	return nil
}

// recordKeys returns the keys of an object in document order when it is
// known and in lexical order otherwise.
func recordKeys(v any) []string {
	switch typed := v.(type) {
	case OrderedObject:
		return append([]string(nil), typed.Keys...)
	case *OrderedObject:
		if typed != nil {
			return append([]string(nil), typed.Keys...)
		}
		return nil
	}

	values := record(v)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func list(v any) ([]any, bool) {
	switch typed := v.(type) {
	case []any:
		return typed, true
	case []map[string]any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, item)
		}
		return out, true
	case []OrderedObject:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, item)
		}
		return out, true
	default:
		return nil, false
	}
}

func lookup(src map[string]any, key string) any {
	if src == nil {
		return nil
	}
	return src[key]
}

// number reports v as a finite float64.
func number(v any) (float64, bool) {
	var out float64
	switch typed := v.(type) {
	case float64:
		out = typed
	case float32:
		out = float64(typed)
	case int:
		out = float64(typed)
	case int8:
		out = float64(typed)
	case int16:
		out = float64(typed)
	case int32:
		out = float64(typed)
	case int64:
		out = float64(typed)
	case uint:
		out = float64(typed)
	case uint8:
		out = float64(typed)
	case uint16:
		out = float64(typed)
	case uint32:
		out = float64(typed)
	case uint64:
		out = float64(typed)
	default:
		return 0, false
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

func numberOr(v any, fallback float64) float64 {
	if out, ok := number(v); ok {
		return out
	}
	return fallback
}

// metricValueOr also accepts numeric strings; model generated team stats
// sometimes quote their numbers.
func metricValueOr(v any, fallback float64) float64 {
	if out, ok := number(v); ok {
		return out
	}
	if text, ok := v.(string); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			return parsed
		}
	}
	return fallback
}

func stringOr(v any, fallback string) string {
	if text, ok := v.(string); ok {
		return text
	}
	return fallback
}

func nonBlankOr(v any, fallback string) string {
	if text, ok := v.(string); ok && strings.TrimSpace(text) != "" {
		return text
	}
	return fallback
}

func firstNonBlank(values ...any) string {
	for _, value := range values {
		if text := nonBlankOr(value, ""); text != "" {
			return text
		}
	}
	return ""
}

// falsy follows JSON truthiness: null, false, 0, NaN and "".
func falsy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case bool:
		return !typed
	case string:
		return typed == ""
	case float64:
		return typed == 0 || math.IsNaN(typed)
	}
	if n, ok := number(v); ok {
		return n == 0
	}
	return false
}

func truncateRunes(value string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for idx := range value {
		if count == max {
			return value[:idx]
		}
		count++
	}
	return value
}
