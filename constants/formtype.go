package constants

import "strings"

// DefaultFormType is the sentinel form-type label used when a document
// arrives without a declared type. It participates in cache fingerprints,
// so its value must stay stable.
const DefaultFormType = "unknown"

// NormalizeFormType lowercases and trims a declared form-type label,
// substituting the sentinel when empty.
func NormalizeFormType(formType string) string {
	normalized := strings.ToLower(strings.TrimSpace(formType))
	if normalized == "" {
		return DefaultFormType
	}
	return normalized
}
