package errors

import "errors"

// TransientError marks a failure that may succeed on retry
// (network errors, rate limits, upstream 5xx).
type TransientError struct {
	Message string
	Err     error
}

func (e *TransientError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure that will not succeed on retry
// (bad credentials, invalid payload, missing channel).
type PermanentError struct {
	Message string
	Err     error
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable.
func NewTransientError(message string, err error) error {
	return &TransientError{Message: message, Err: err}
}

// NewPermanentError wraps err as not retryable.
func NewPermanentError(message string, err error) error {
	return &PermanentError{Message: message, Err: err}
}

// IsTransientError reports whether err, or anything it wraps, is a TransientError.
func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanentError reports whether err, or anything it wraps, is a PermanentError.
func IsPermanentError(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
