package errors

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MaxQueryLength is the longest search query accepted.
const MaxQueryLength = 256

// ValidateQuery validates a search query. Empty queries are valid and
// match nothing.
func ValidateQuery(q string) error {
	if len(q) > MaxQueryLength {
		return New(ErrCodeInvalidQuery, "query too long (max %d characters)", MaxQueryLength)
	}
	for _, r := range q {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidQuery, "query contains invalid control characters")
		}
	}
	return nil
}

// ValidateSessionID checks that id is a canonical UUID.
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "malformed session id %q", id)
	}
	return nil
}

// ValidateView validates a pan/zoom position.
func ValidateView(lon, lat, zoom float64) error {
	if lon < -180 || lon > 180 {
		return New(ErrCodeInvalidView, "longitude %v out of range [-180, 180]", lon)
	}
	if lat < -90 || lat > 90 {
		return New(ErrCodeInvalidView, "latitude %v out of range [-90, 90]", lat)
	}
	if !(zoom > 0) {
		return New(ErrCodeInvalidView, "zoom must be positive, got %v", zoom)
	}
	return nil
}

// ValidatePath validates a file path for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// IsURL reports whether source looks like an http(s) URL.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// ValidateSource validates a document source, which is either an http(s)
// URL or a file path.
func ValidateSource(source string) error {
	if IsURL(source) {
		return ValidateURL(source)
	}
	return ValidatePath(source)
}
