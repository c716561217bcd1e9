package audit

import "strings"

// sensitiveKeys are parameter names whose values never reach the audit
// trail. Matching is case-insensitive and applies at every nesting
// depth.
var sensitiveKeys = map[string]struct{}{
	"password":   {},
	"token":      {},
	"secret":     {},
	"api_key":    {},
	"apikey":     {},
	"credential": {},
}

const redactedPlaceholder = "[REDACTED]"

// Redact returns a deep copy of params with every sensitive value
// replaced by a placeholder. The input is never mutated. Maps and
// slices are walked recursively; all other values are kept as-is.
func Redact(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}

	out := make(map[string]interface{}, len(params))
	for key, value := range params {
		if _, sensitive := sensitiveKeys[strings.ToLower(key)]; sensitive {
			out[key] = redactedPlaceholder
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return Redact(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return value
	}
}
