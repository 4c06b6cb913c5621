// Package errs defines the compile-time failure kinds shared by every stage
// of the pipeline. All of them are fatal: no stage retries and no partial
// artifact is produced once one is returned.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedGraphFeature   = errors.New("unsupported graph feature")
	ErrSchedulingDeadlock        = errors.New("scheduling deadlock")
	ErrCapacityExceeded          = errors.New("capacity exceeded")
	ErrAssemblyParameterMismatch = errors.New("assembly parameter mismatch")
)

// Error carries the subject responsible for a failure (node, op, dimension
// or parameter). It unwraps to its Kind so callers can use errors.Is.
type Error struct {
	Kind    error
	Subject string
	Detail  string
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Subject, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, subject, format string, args ...any) error {
	return &Error{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

func Unsupported(subject, format string, args ...any) error {
	return newf(ErrUnsupportedGraphFeature, subject, format, args...)
}

func Deadlock(subject, format string, args ...any) error {
	return newf(ErrSchedulingDeadlock, subject, format, args...)
}

func Capacity(subject, format string, args ...any) error {
	return newf(ErrCapacityExceeded, subject, format, args...)
}

func ParamMismatch(subject, format string, args ...any) error {
	return newf(ErrAssemblyParameterMismatch, subject, format, args...)
}

// KindName returns a short machine-readable name for the kind wrapped by err,
// or "internal" when err is not one of the compile-time kinds.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedGraphFeature):
		return "unsupported_graph_feature"
	case errors.Is(err, ErrSchedulingDeadlock):
		return "scheduling_deadlock"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrAssemblyParameterMismatch):
		return "assembly_parameter_mismatch"
	default:
		return "internal"
	}
}
