package domain

import "errors"

// FailureKind classifies a failure at an operation boundary.
type FailureKind string

const (
	KindValidation FailureKind = "validation"
	KindRejected   FailureKind = "rejected"
	KindTransport  FailureKind = "transport"
	KindUnexpected FailureKind = "unexpected"
	KindForbidden  FailureKind = "forbidden"
	KindBusy       FailureKind = "busy"
	KindNotFound   FailureKind = "not_found"
)

// Failure is the user-facing result of a failed operation.
// Error returns Message; Unwrap exposes the cause for logging.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a Failure.
func NewFailure(kind FailureKind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// KindOf returns the failure kind of err, or "" when err is not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of err, or fallback.
func MessageOf(err error, fallback string) string {
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	return fallback
}
