package common

import (
	"brpay/src/types"
)

const redactedMask = "***"

// sensitiveKeys are scrubbed wherever they appear in a payload, at any depth.
var sensitiveKeys = map[string]bool{
	"card_hash":   true,
	"cvv":         true,
	"card_number": true,
}

// Redact recursively replaces card/cvv-shaped fields with a fixed mask. It
// never alters the structure of the value and is a no-op on primitives. Must
// run before any metadata, raw provider response, or webhook payload is
// persisted or logged.
func Redact(value any) any {
	return redact(value, false)
}

// RedactJSONB is Redact specialized for metadata maps, keeping the JSONB type.
func RedactJSONB(m types.JSONB) types.JSONB {
	if m == nil {
		return nil
	}
	out, _ := redact(map[string]any(m), false).(map[string]any)
	return types.JSONB(out)
}

func redact(value any, insideCard bool) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if shouldMask(key, insideCard) {
				out[key] = redactedMask
				continue
			}
			out[key] = redact(inner, insideCard || key == "card")
		}
		return out
	case types.JSONB:
		return redact(map[string]any(v), insideCard)
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = redact(inner, insideCard)
		}
		return out
	default:
		return value
	}
}

func shouldMask(key string, insideCard bool) bool {
	if sensitiveKeys[key] {
		return true
	}
	// full PANs appear as "number" only under a card object
	return insideCard && key == "number"
}
