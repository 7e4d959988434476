// Package cuerr defines the error kinds propagated between the layers of
// the evaluation core.
//
// Each layer returns one of these typed errors rather than an opaque
// error value, so that callers (and the transport layer, which is out of
// scope here) can decide how to react without inspecting error strings.
package cuerr

import (
	"errors"
	"fmt"
)

// NotFoundError indicates that a persistence or locator lookup produced no
// result. Callers decide whether to hydrate the missing value from a
// slower tier.
type NotFoundError struct {
	// Kind identifies what was not found, e.g. "process", "module",
	// "evaluation", "checkpoint".
	Kind string

	// Key identifies the specific lookup that missed.
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// NotFound returns a new NotFoundError.
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// IsNotFound returns true if err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// InvalidError indicates that a process or module was rejected by an
// admissibility filter. It is terminal: the call that produced it should
// be surfaced to the caller unmodified.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return "invalid: " + e.Reason
}

// Invalid returns a new InvalidError.
func Invalid(reason string) error {
	return &InvalidError{Reason: reason}
}

// IsInvalid returns true if err is, or wraps, an InvalidError.
func IsInvalid(err error) bool {
	var e *InvalidError
	return errors.As(err, &e)
}

// TransientError indicates a network, upload, or database timeout. The
// pipeline does not retry it: a TransientError that reaches the pipeline
// is returned to the caller like any other error.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return "transient error: " + e.Cause.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// Transient wraps cause as a TransientError.
func Transient(cause error) error {
	return &TransientError{Cause: cause}
}

// IsTransient returns true if err is, or wraps, a TransientError.
func IsTransient(err error) bool {
	var e *TransientError
	return errors.As(err, &e)
}

// OverloadedError indicates that a worker pool's admission queue rejected a
// submission because its ceiling was already reached. It is surfaced as a
// distinct overload status (conceptually a 429).
type OverloadedError struct {
	Pool string
}

func (e *OverloadedError) Error() string {
	return fmt.Sprintf("%s pool is overloaded", e.Pool)
}

// Overloaded returns a new OverloadedError for the named pool.
func Overloaded(pool string) error {
	return &OverloadedError{Pool: pool}
}

// IsOverloaded returns true if err is, or wraps, an OverloadedError.
func IsOverloaded(err error) bool {
	var e *OverloadedError
	return errors.As(err, &e)
}

// EvaluationError wraps an error reported by the WASM execution itself.
//
// The pipeline does not treat it specially: an EvaluationError returned
// as a Go error from an evaluation is returned by the pipeline and the
// run fails without persisting a row. An execution error reported in
// Result.Output.Error (see wasmeval.Evaluator) is persisted on the
// evaluation row, and the pipeline advances to the next message.
type EvaluationError struct {
	Cause error
}

func (e *EvaluationError) Error() string {
	return "evaluation error: " + e.Cause.Error()
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// Evaluation wraps cause as an EvaluationError.
func Evaluation(cause error) error {
	return &EvaluationError{Cause: cause}
}

// IsEvaluation returns true if err is, or wraps, an EvaluationError.
func IsEvaluation(err error) bool {
	var e *EvaluationError
	return errors.As(err, &e)
}

// FatalError indicates persistence corruption or a missing signing key.
// The call that produced it fails; the orchestrator as a whole remains up.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Cause.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// Fatal wraps cause as a FatalError.
func Fatal(cause error) error {
	return &FatalError{Cause: cause}
}

// IsFatal returns true if err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var e *FatalError
	return errors.As(err, &e)
}
