// Package errors provides structured error types used across the application.
// We prefer these over raw fmt.Errorf strings to enable reliable checks with
// errors.Is / errors.As and to carry minimal context about the failure.
package errors

import (
	"errors"
	"fmt"
)

// InputError indicates an unusable caller input: oversized names, malformed
// request bodies, and the like. Rejected before any matching work happens.
type InputError struct {
	Op  string // where it happened (package.Function)
	Msg string // human friendly message (no PII)
	Err error  // underlying cause (optional)
}

func (e *InputError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("input: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("input: %s: %s", e.Op, e.Msg)
}

func (e *InputError) Unwrap() error           { return e.Err }
func (e *InputError) Operation() string       { return e.Op }
func (e *InputError) Message() string         { return e.Msg }
func (e *InputError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewInput(op, msg string, err error) error {
	return &InputError{Op: op, Msg: msg, Err: err}
}

// ConfigError indicates a malformed configuration: a broken label-bucket
// table, weights that do not sum to 1.0, an unreadable override file.
// Detected at initialization and fatal; nothing matches until it is fixed.
type ConfigError struct {
	Op  string
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Op, e.Msg)
}

func (e *ConfigError) Unwrap() error           { return e.Err }
func (e *ConfigError) Operation() string       { return e.Op }
func (e *ConfigError) Message() string         { return e.Msg }
func (e *ConfigError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewConfig(op, msg string, err error) error {
	return &ConfigError{Op: op, Msg: msg, Err: err}
}

// BizError is for domain failures that aren't programmer bugs or bad input:
// a stopped batch engine, a full queue.
type BizError struct {
	Op  string
	Msg string
	Err error
}

func (e *BizError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("biz: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("biz: %s: %s", e.Op, e.Msg)
}

func (e *BizError) Unwrap() error           { return e.Err }
func (e *BizError) Operation() string       { return e.Op }
func (e *BizError) Message() string         { return e.Msg }
func (e *BizError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewBiz(op, msg string, err error) error { return &BizError{Op: op, Msg: msg, Err: err} }

// IsKind helpers: allow callers to check error kind without type assertions.
// Example: if errors.Is(err, errors.ErrInput) { ... }
var (
	ErrInput  = &InputError{}
	ErrConfig = &ConfigError{}
	ErrBiz    = &BizError{}
)

// Is enables errors.Is(err, ErrInput) via errors.As semantics.
// We delegate to errors.As with the zero-value pointer of each type.
func Is(err, target error) bool {
	if err == nil || target == nil {
		return errors.Is(err, target)
	}
	switch target.(type) {
	case *InputError:
		var v *InputError
		return errors.As(err, &v)
	case *ConfigError:
		var c *ConfigError
		return errors.As(err, &c)
	case *BizError:
		var b *BizError
		return errors.As(err, &b)
	default:
		return errors.Is(err, target)
	}
}
