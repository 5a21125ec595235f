package engine

import (
	"errors"
	"fmt"
)

// ErrNotIdle is returned by Run when the engine has already been started.
var ErrNotIdle = errors.New("engine is not idle")

// DispatchError represents an error detected while running the dispatch loop.
//
// Dispatch errors include:
//   - Transport failure: the read function returned an error
//   - Malformed line: the tokenizer rejected a raw line
//   - Handler failure: an adapter, pre-process hook or handler returned an error
//   - Line too long: the framer limit was exceeded
//
// DispatchError carries the raw line and handler identity for diagnostics.
type DispatchError struct {
	// Code identifies the error category.
	Code DispatchErrorCode

	// Stage names the step that failed (read, frame, adapter, parse,
	// pre_process, handler).
	Stage Stage

	// Name is the registration name of the failing adapter, hook or handler.
	Name string

	// Seq is the line sequence number, or 0 when no line was involved.
	Seq int64

	// RawLine is the raw line being processed, if any.
	RawLine []byte

	// Err is the underlying error.
	Err error
}

// DispatchErrorCode categorizes dispatch errors.
type DispatchErrorCode string

const (
	// ErrCodeTransport indicates the read function failed.
	ErrCodeTransport DispatchErrorCode = "TRANSPORT"

	// ErrCodeMalformedLine indicates the tokenizer rejected a line.
	ErrCodeMalformedLine DispatchErrorCode = "MALFORMED_LINE"

	// ErrCodeHandler indicates an adapter, hook or handler returned an error.
	ErrCodeHandler DispatchErrorCode = "HANDLER"

	// ErrCodeLineTooLong indicates buffered data exceeded the max line length.
	ErrCodeLineTooLong DispatchErrorCode = "LINE_TOO_LONG"
)

// Stage names a step of the per-iteration algorithm.
type Stage string

const (
	StagePreProcess Stage = "pre_process"
	StageRead       Stage = "read"
	StageFrame      Stage = "frame"
	StageAdapter    Stage = "adapter"
	StageParse      Stage = "parse"
	StageObserve    Stage = "observe"
	StageHandler    Stage = "handler"
)

// Error implements the error interface.
func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s at %s", e.Code, e.Stage)
	if e.Name != "" {
		msg += fmt.Sprintf(" (name=%s)", e.Name)
	}
	if e.Seq > 0 {
		msg += fmt.Sprintf(" (seq=%d, line=%q)", e.Seq, e.RawLine)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code DispatchErrorCode) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsTransportError returns true if the error is a transport failure.
// Uses errors.As to handle wrapped errors.
func IsTransportError(err error) bool {
	return hasCode(err, ErrCodeTransport)
}

// IsMalformedLine returns true if the error reports a malformed line.
func IsMalformedLine(err error) bool {
	return hasCode(err, ErrCodeMalformedLine)
}

// IsHandlerError returns true if the error came from an adapter, hook or handler.
func IsHandlerError(err error) bool {
	return hasCode(err, ErrCodeHandler)
}

// IsLineTooLong returns true if the error is a framing limit violation.
func IsLineTooLong(err error) bool {
	return hasCode(err, ErrCodeLineTooLong)
}

func newTransportError(err error) *DispatchError {
	return &DispatchError{Code: ErrCodeTransport, Stage: StageRead, Err: err}
}

func newHandlerError(stage Stage, name string, seq int64, raw []byte, err error) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeHandler,
		Stage:   stage,
		Name:    name,
		Seq:     seq,
		RawLine: raw,
		Err:     err,
	}
}

func newMalformedError(seq int64, raw []byte, err error) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeMalformedLine,
		Stage:   StageParse,
		Seq:     seq,
		RawLine: raw,
		Err:     err,
	}
}
