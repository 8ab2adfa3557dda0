package element

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips HTML from every string inside a payload.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	// removes all HTML/scripts
	return &Sanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean returns a sanitized copy of payload. Non-string values pass through.
func (s *Sanitizer) Clean(payload Payload) Payload {
	if payload == nil {
		return nil
	}
	return Payload(s.cleanMap(payload))
}

func (s *Sanitizer) cleanMap(data map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		result[key] = s.cleanValue(value)
	}
	return result
}

func (s *Sanitizer) cleanValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return s.policy.Sanitize(v)
	case map[string]interface{}:
		return s.cleanMap(v)
	case Payload:
		return s.cleanMap(v)
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = s.cleanValue(item)
		}
		return result
	default:
		return value
	}
}
