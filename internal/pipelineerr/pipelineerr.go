// Package pipelineerr implements the pipeline's categorized error model
// (spec §7): a small set of named kinds, each with a known recovery
// policy, wrapped around the stdlib error so callers can still use
// errors.Is/errors.As/errors.Unwrap against it.
package pipelineerr

import (
	"errors"
	"fmt"
)

// Kind names one of the six error categories the pipeline distinguishes.
type Kind int

const (
	// KindDecoder marks a failed per-signal Decoder call (probe excluded).
	// Recoverable: the signal degrades to its neutral value.
	KindDecoder Kind = iota
	// KindCache marks a feature-cache read or write failure. Recoverable:
	// treated as a cache miss, the pipeline recomputes and tries to write
	// again.
	KindCache
	// KindInvalidWindow marks a ClipWindow that failed validation
	// (end <= start) after duration-enforcement clamping. Recoverable:
	// the anchor is discarded.
	KindInvalidWindow
	// KindDebugWrite marks a failure while emitting a debug artifact.
	// Recoverable: logged, the pipeline result is still returned.
	KindDebugWrite
	// KindCancelled marks host-initiated cancellation. Not recoverable:
	// propagates to the host, no results are emitted.
	KindCancelled
	// KindFatalDecoder marks a failed probe (duration unknown). Not
	// recoverable: the only error the pipeline reports as job failure.
	KindFatalDecoder
)

func (k Kind) String() string {
	switch k {
	case KindDecoder:
		return "decoder"
	case KindCache:
		return "cache"
	case KindInvalidWindow:
		return "invalid_window"
	case KindDebugWrite:
		return "debug_write"
	case KindCancelled:
		return "cancelled"
	case KindFatalDecoder:
		return "fatal_decoder"
	default:
		return "unknown"
	}
}

// Recoverable reports whether a pipeline run should continue after an
// error of this kind, per spec §7's propagation rules.
func (k Kind) Recoverable() bool {
	switch k {
	case KindCancelled, KindFatalDecoder:
		return false
	default:
		return true
	}
}

// Error wraps an underlying cause with a Kind and free-form context,
// matching the stdlib error interface plus Unwrap.
type Error struct {
	Kind    Kind
	Op      string // component/operation that produced the error, e.g. "decoder.probe"
	Context map[string]any
	err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// Recoverable reports whether the pipeline should continue past this
// error (see Kind.Recoverable).
func (e *Error) Recoverable() bool { return e.Kind.Recoverable() }

// New builds an Error of the given kind wrapping cause, tagged with the
// operation that produced it.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, err: cause}
}

// WithContext attaches free-form diagnostic context (frame index, file
// path, decoder call name, ...) and returns the same error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any, 4)
	}
	e.Context[key] = value
	return e
}

// Convenience constructors, mirroring the teacher's ModelError/FileError
// naming convention for the six kinds this package distinguishes.

func DecoderErr(op string, cause error) *Error      { return New(KindDecoder, op, cause) }
func CacheErr(op string, cause error) *Error         { return New(KindCache, op, cause) }
func InvalidWindowErr(op string, cause error) *Error { return New(KindInvalidWindow, op, cause) }
func DebugWriteErr(op string, cause error) *Error    { return New(KindDebugWrite, op, cause) }
func CancelledErr(op string, cause error) *Error     { return New(KindCancelled, op, cause) }
func FatalDecoderErr(op string, cause error) *Error  { return New(KindFatalDecoder, op, cause) }

// IsKind reports whether err wraps a pipelineerr.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
