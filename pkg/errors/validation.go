package errors

import (
	"strings"
	"unicode"
)

// MaxNameLength is the longest project, chapter, section or node name accepted.
const MaxNameLength = 200

// ValidateName checks a display name after trimming surrounding whitespace.
// It returns the trimmed name so callers store the canonical form.
//
// The rules match the backend document model:
//   - No empty (or whitespace-only) names
//   - Maximum length of 200 characters
//   - No control characters
func ValidateName(kind, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", New(ErrCodeInvalidInput, "%s name cannot be empty", kind)
	}
	if len([]rune(trimmed)) > MaxNameLength {
		return "", New(ErrCodeInvalidInput, "%s name too long (max %d characters)", kind, MaxNameLength)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", New(ErrCodeInvalidInput, "%s name contains invalid control characters", kind)
		}
	}
	return trimmed, nil
}

// ValidateID checks an opaque identifier used in URL paths and cache keys.
// It rejects names that could be used for path traversal.
func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}
	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "%s id too long (max 256 characters)", kind)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s id contains invalid control characters", kind)
		}
	}
	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "%s id contains invalid characters: %q", kind, pattern)
		}
	}
	return nil
}
