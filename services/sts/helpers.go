package sts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SafeFloat coerces a loosely-typed vendor value to float64, falling back
// to zero. Vendors send numbers as JSON numbers, quoted strings, and
// occasionally with comma decimal separators.
func SafeFloat(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		trimmed := strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if value {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// SafeInt coerces a vendor value to int with a zero fallback.
func SafeInt(v interface{}) int {
	return int(SafeFloat(v))
}

// SafeString coerces a vendor value to a trimmed string. Numbers are
// formatted without a trailing ".0" so identifiers round-trip cleanly.
func SafeString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", value))
	}
}

// getString returns the first non-empty string among the candidate fields,
// in declared priority order.
func getString(obj map[string]interface{}, fields ...string) string {
	for _, field := range fields {
		if raw, ok := obj[field]; ok {
			if s := SafeString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}

// getFloat returns the first present numeric candidate field, zero otherwise.
func getFloat(obj map[string]interface{}, fields ...string) float64 {
	for _, field := range fields {
		if raw, ok := obj[field]; ok && raw != nil {
			return SafeFloat(raw)
		}
	}
	return 0
}

// getValue returns the first present candidate field, nil otherwise.
func getValue(obj map[string]interface{}, fields ...string) interface{} {
	for _, field := range fields {
		if raw, ok := obj[field]; ok && raw != nil {
			return raw
		}
	}
	return nil
}

// stringOr falls back to a sentinel when the value is empty.
func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// ParseSTSTime parses vendor timestamps, which arrive in several formats.
// Returns the zero time when nothing matches.
func ParseSTSTime(timeStr string) time.Time {
	if timeStr == "" || timeStr == "0001-01-01T00:00:00" || timeStr == "0001-01-01T00:00:00Z" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05+00:00",
		"02.01.2006 15:04:05",
		"02.01.2006",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t
		}
	}

	return time.Time{}
}

// decodeAny parses a JSON body into a loose structure; non-JSON bodies
// come back as their raw text.
func decodeAny(body []byte) (interface{}, error) {
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		trimmed := strings.TrimSpace(string(body))
		if trimmed == "" {
			return nil, nil
		}
		return trimmed, nil
	}
	return parsed, nil
}

// decodeObjects parses a response that is a JSON array of objects, a
// wrapper object holding one under data/items/result, or a bare object.
func decodeObjects(body []byte) ([]map[string]interface{}, error) {
	parsed, err := decodeAny(body)
	if err != nil {
		return nil, err
	}

	switch value := parsed.(type) {
	case []interface{}:
		items := make([]map[string]interface{}, 0, len(value))
		for _, item := range value {
			if obj, ok := item.(map[string]interface{}); ok {
				items = append(items, obj)
			}
		}
		return items, nil
	case map[string]interface{}:
		if nested, ok := getValue(value, "data", "items", "result").([]interface{}); ok {
			items := make([]map[string]interface{}, 0, len(nested))
			for _, item := range nested {
				if obj, ok := item.(map[string]interface{}); ok {
					items = append(items, obj)
				}
			}
			return items, nil
		}
		return []map[string]interface{}{value}, nil
	case nil:
		return []map[string]interface{}{}, nil
	default:
		return nil, fmt.Errorf("unexpected response shape %T", parsed)
	}
}

// parseNumericID round-trips a value through integer parsing. Returns the
// normalized decimal form and whether the value was numeric.
func parseNumericID(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}
