package entity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidTag is returned when an alarm tag is empty, too long or contains whitespace.
var ErrInvalidTag = errors.New("invalid alarm tag")

const maxTagLength = 64

// Tag uniquely identifies an alarm within a registry, e.g. "TT101".
type Tag string

// ParseTag validates s as an alarm tag. Surrounding whitespace is trimmed;
// tags are otherwise kept as given and compared case-sensitively.
func ParseTag(s string) (Tag, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTag)
	}
	if len(trimmed) > maxTagLength {
		return "", fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidTag, trimmed, maxTagLength)
	}
	if strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidTag, trimmed)
	}
	return Tag(trimmed), nil
}

// String returns the tag as a plain string.
func (t Tag) String() string {
	return string(t)
}
