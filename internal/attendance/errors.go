package attendance

import (
	"errors"
	"fmt"
)

// Kind classifies domain errors for the boundary layer.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindExternal:
		return "external"
	default:
		return "storage"
	}
}

// Error is a typed domain failure with a stable machine code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrValidation      = &Error{KindValidation, "validation_error", "invalid request"}
	ErrInvalidTemplate = &Error{KindValidation, "invalid_template", "fingerprint template is not valid base64"}

	ErrDuplicateEnrollmentNumber = &Error{KindConflict, "duplicate_enrollment_number", "enrollment number already registered"}
	ErrDuplicateBiometric        = &Error{KindConflict, "duplicate_biometric", "fingerprint already registered to another identity"}
	ErrAlreadyMarked             = &Error{KindConflict, "already_marked", "attendance already marked for this session"}

	ErrSessionNotFound  = &Error{KindNotFound, "session_not_found", "session not found"}
	ErrIdentityNotFound = &Error{KindNotFound, "identity_not_found", "identity not found"}
	ErrCourseNotFound   = &Error{KindNotFound, "course_not_found", "course not found"}

	ErrNotEnrolled        = &Error{KindForbidden, "not_enrolled", "identity is not enrolled in this course"}
	ErrVerificationFailed = &Error{KindForbidden, "verification_failed", "fingerprint verification failed"}

	ErrVerificationUnavailable = &Error{KindExternal, "verification_unavailable", "fingerprint matcher unavailable"}
)

// VerificationError carries the score of a rejected sample.
type VerificationError struct {
	Score     float64
	Threshold float64
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("fingerprint verification failed: score %.2f below threshold %.2f", e.Score, e.Threshold)
}

func (e *VerificationError) Unwrap() error { return ErrVerificationFailed }

// KindOf classifies err. Anything that is not a domain error is a storage failure.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}

// CodeOf returns the machine code of err.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "storage_failure"
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
