package amqp

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Kind classifies the errors this package returns, per the taxonomy of
// spec section 7. Callers branch on Kind, not on error text.
type Kind int

const (
	// KindOverflow means the output buffer was too small. Not a logical
	// error: the caller grows the buffer and retries.
	KindOverflow Kind = iota
	// KindUnderflow means the input did not contain a complete value. Not
	// a logical error: the caller supplies more bytes.
	KindUnderflow
	// KindEncoding means the input bytes violate the wire grammar, or an
	// output value violates an encoding invariant (bad UTF-8, non-ASCII
	// symbol, array element tag mismatch, and so on).
	KindEncoding
	// KindArgument means a host value has no AMQP representation, or an
	// AMQP value cannot be converted to the requested host type.
	KindArgument
	// KindUnsupported means the wire carries a decimal32/64/128 value.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindOverflow:
		return "overflow"
	case KindUnderflow:
		return "underflow"
	case KindEncoding:
		return "encoding"
	case KindArgument:
		return "argument"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every encode/decode/get/put operation
// in this package that can fail. It carries enough context to identify the
// AMQP tag and host type involved, per spec section 7's propagation policy.
type Error struct {
	Kind Kind
	// Tag is the AMQP tag involved, TagInvalid if not applicable.
	Tag Tag
	// HostType is the Go type involved, nil if not applicable.
	HostType reflect.Type
	cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Tag != TagInvalid && e.HostType != nil:
		return fmt.Sprintf("amqp: %s: tag=%s host=%s: %v", e.Kind, e.Tag, e.HostType, e.cause)
	case e.Tag != TagInvalid:
		return fmt.Sprintf("amqp: %s: tag=%s: %v", e.Kind, e.Tag, e.cause)
	case e.HostType != nil:
		return fmt.Sprintf("amqp: %s: host=%s: %v", e.Kind, e.HostType, e.cause)
	default:
		return fmt.Sprintf("amqp: %s: %v", e.Kind, e.cause)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is(err, ErrOverflow) and friends to work against the
// sentinel Kind markers below without comparing messages.
func (e *Error) Is(target error) bool {
	k, ok := target.(*Error)
	return ok && k.Kind == e.Kind && k.cause == nil
}

// Sentinel markers for errors.Is comparisons against a Kind alone.
var (
	ErrOverflow    = &Error{Kind: KindOverflow}
	ErrUnderflow   = &Error{Kind: KindUnderflow}
	ErrUnsupported = &Error{Kind: KindUnsupported}
)

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: errors.WithStack(fmt.Errorf(format, args...))}
}

func newTagError(kind Kind, tag Tag, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Tag: tag, cause: errors.WithStack(fmt.Errorf(format, args...))}
}

func newConversionError(tag Tag, v interface{}, format string, args ...interface{}) *Error {
	var t reflect.Type
	if v != nil {
		t = reflect.TypeOf(v)
	}
	return &Error{Kind: KindArgument, Tag: tag, HostType: t, cause: errors.WithStack(fmt.Errorf(format, args...))}
}

func wrapError(kind Kind, cause error) *Error {
	if ae, ok := cause.(*Error); ok {
		return ae
	}
	return &Error{Kind: kind, cause: errors.WithStack(cause)}
}
