// Package logging provides utilities for secure logging with data masking.
// Bearer secrets are password-equivalent and must never reach the log
// stream in full.
package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// MaskSecret redacts a bearer secret for logging, revealing only the
// last 4 characters.
func MaskSecret(value string) string {
	if len(value) < 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// MaskHeader redacts sensitive header values based on header name.
// Returns the redacted value suitable for logging.
//
// Rules:
// - Password/secret headers: "[REDACTED]" (no partial reveal)
// - Token/authorization headers: "****" + last4chars (e.g., "****ab3f")
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	// Password/secret headers - full redaction
	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") {
		return "[REDACTED]"
	}

	// Bearer token headers - show last 4 chars
	if lowerName == "authorization" ||
		lowerName == "x-auth-token" {
		return MaskSecret(value)
	}

	// All other headers - return unchanged
	return value
}

// MaskQuery redacts the token parameter in a raw query string. The
// content gateway carries the bearer secret as ?token=..., so query
// strings cannot be logged verbatim.
func MaskQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable query - don't risk leaking it
		return "[REDACTED]"
	}
	for key, vals := range values {
		lowerKey := strings.ToLower(key)
		if lowerKey == "token" || strings.Contains(lowerKey, "secret") {
			for i, v := range vals {
				vals[i] = MaskSecret(v)
			}
			values[key] = vals
		}
	}
	return values.Encode()
}

// pathSecret matches unbroken hex runs long enough to be token
// secrets. Media and collection IDs are hyphenated UUIDs whose hex
// groups stay well under the threshold, so they pass through intact.
var pathSecret = regexp.MustCompile(`[0-9a-fA-F]{32,}`)

// MaskPath redacts token secrets carried in URL path segments. The
// account confirmation link puts the secret in the path
// (/user/confirm/...), so paths cannot be logged verbatim either.
func MaskPath(path string) string {
	return pathSecret.ReplaceAllStringFunc(path, MaskSecret)
}

// maskedJSONFields are body fields that always carry secrets.
var maskedJSONFields = map[string]bool{
	"token":    true,
	"password": true,
}

// MaskJSONBody redacts secret-bearing fields in a JSON body. The token
// field keeps a last-4 reveal so requests can be correlated with the
// audit trail; passwords are fully redacted.
//
// Returns the masked JSON as bytes, or the original if parsing fails.
func MaskJSONBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		// Parsing failed - return original
		return body
	}

	masked := maskJSONValue(data)

	result, err := json.Marshal(masked)
	if err != nil {
		// Serialization failed - return original
		return body
	}

	return result
}

// maskJSONValue recursively masks secret-bearing JSON fields.
func maskJSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for key, val := range v {
			lowerKey := strings.ToLower(key)
			switch {
			case lowerKey == "password" || strings.Contains(lowerKey, "secret"):
				result[key] = "[REDACTED]"
			case maskedJSONFields[lowerKey]:
				if s, ok := val.(string); ok {
					result[key] = MaskSecret(s)
				} else {
					result[key] = "[REDACTED]"
				}
			default:
				result[key] = maskJSONValue(val)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item)
		}
		return result
	default:
		return value
	}
}

// FormatBinaryData formats binary data for logging.
// Returns a human-readable size indicator.
func FormatBinaryData(data []byte) string {
	size := len(data)
	return fmt.Sprintf("[BINARY: %d bytes]", size)
}
