package config

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/linkcheck/pkg/failure"
)

var (
	ErrFileDoesNotExist  = errors.New("config file does not exist")
	ErrReadConfigFail    = errors.New("failed to read config file")
	ErrConfigParsingFail = errors.New("failed to parse config file")
	ErrInvalidConfig     = errors.New("invalid config")
)

// Error wraps a config-loading or config-validation failure as a
// ClassifiedError. Every config error is fatal: startup aborts before any
// worker is spawned, per spec.md's error-handling design.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s", e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Severity() failure.Severity {
	return failure.SeverityFatal
}

func wrap(sentinel error, detail string) *Error {
	return &Error{Cause: fmt.Errorf("%w: %s", sentinel, detail)}
}
