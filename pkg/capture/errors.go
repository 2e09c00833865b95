package capture

import (
	"errors"
	"fmt"
)

// ErrScheduling reports that background dispatch work could not be
// scheduled, which happens only when the session handle was closed. It is
// fatal: the stream ends after surfacing it once.
var ErrScheduling = errors.New("capture: cannot schedule dispatch on closed handle")

// ConfigError is a failed session configuration or activation step.
// It is surfaced synchronously from stream construction; the stream never
// starts.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("capture: configuring %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FilterError is a failed capture filter compilation or application,
// carrying the offending expression. Fatal at stream construction.
type FilterError struct {
	Op   string // "compile" or "apply"
	Expr string
	Err  error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("capture: %s filter %q: %v", e.Op, e.Expr, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// DispatchError is a hard failure reported by the native dispatch layer
// mid-stream. It is not retried: the stream emits it once and ends.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("capture: dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
