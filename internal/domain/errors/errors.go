// Package errors defines error types shared across layers.
package errors

import (
	"errors"
	"fmt"
)

// ErrUnknownTag is matched by every UnknownTagError.
var ErrUnknownTag = errors.New("unknown alarm tag")

// ErrDuplicateTag is matched by every DuplicateTagError.
var ErrDuplicateTag = errors.New("duplicate alarm tag")

// UnknownTagError is returned when an operation names a tag that is not registered.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown alarm tag: %s", e.Tag)
}

// Is lets errors.Is(err, ErrUnknownTag) match.
func (e *UnknownTagError) Is(target error) bool {
	return target == ErrUnknownTag
}

// DuplicateTagError is returned when an alarm is added under a tag already in use.
type DuplicateTagError struct {
	Tag string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("duplicate alarm tag: %s", e.Tag)
}

// Is lets errors.Is(err, ErrDuplicateTag) match.
func (e *DuplicateTagError) Is(target error) bool {
	return target == ErrDuplicateTag
}

// NewUnknownTagError creates an UnknownTagError.
func NewUnknownTagError(tag string) error {
	return &UnknownTagError{Tag: tag}
}

// NewDuplicateTagError creates a DuplicateTagError.
func NewDuplicateTagError(tag string) error {
	return &DuplicateTagError{Tag: tag}
}

// IsUnknownTag reports whether err is, or wraps, an UnknownTagError.
func IsUnknownTag(err error) bool {
	return errors.Is(err, ErrUnknownTag)
}

// IsDuplicateTag reports whether err is, or wraps, a DuplicateTagError.
func IsDuplicateTag(err error) bool {
	return errors.Is(err, ErrDuplicateTag)
}
