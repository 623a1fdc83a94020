// Package vectorerr implements the structured error taxonomy of §7: every
// failure the engine produces is tagged with a Kind and carries enough
// Context for the caller (RPC surface, forwarding engine, tests) to decide
// whether to retry, cancel, or surface the failure untouched.
package vectorerr

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind enumerates the error taxonomy of §7. It is a closed set: every
// Error constructed through this package carries exactly one of these.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindChannelNotFound
	KindTransferNotFound
	KindStaleUpdate
	KindRestoreNeeded
	KindBadSignatures
	KindTimeout
	KindInvalidTransferType
	KindReceiverOffline
	KindDispute
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindChannelNotFound:
		return "ChannelNotFound"
	case KindTransferNotFound:
		return "TransferNotFound"
	case KindStaleUpdate:
		return "StaleUpdate"
	case KindRestoreNeeded:
		return "RestoreNeeded"
	case KindBadSignatures:
		return "BadSignatures"
	case KindTimeout:
		return "Timeout"
	case KindInvalidTransferType:
		return "InvalidTransferType"
	case KindReceiverOffline:
		return "ReceiverOffline"
	case KindDispute:
		return "Dispute"
	case KindExternal:
		return "External"
	default:
		return "Unknown"
	}
}

// Error is the structured error carried across every engine boundary. It
// wraps go-errors/errors so that %+v formatting (used by our logging
// package) prints a stack trace pointing at the call site that classified
// the failure, matching the teacher's use of go-errors/errors at its RPC
// layer.
type Error struct {
	Kind    Kind
	Context map[string]interface{}
	cause   error
	stack   *goerrors.Error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v (%v)", e.Kind, e.cause, e.Context)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Context)
}

// Unwrap allows errors.Is/As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Format implements fmt.Formatter so %+v prints the captured stack trace,
// same as go-errors/errors values do natively.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.stack != nil {
		fmt.Fprint(s, e.stack.ErrorStack())
		return
	}
	fmt.Fprint(s, e.Error())
}

// New constructs a classified Error with the given context. cause may be
// nil for errors that originate here (e.g. schema validation failures).
func New(kind Kind, cause error, context map[string]interface{}) *Error {
	if context == nil {
		context = map[string]interface{}{}
	}
	var wrapped *goerrors.Error
	if cause != nil {
		wrapped = goerrors.Wrap(cause, 1)
	} else {
		wrapped = goerrors.Wrap(fmt.Errorf("%s", kind), 1)
	}
	return &Error{Kind: kind, Context: context, cause: cause, stack: wrapped}
}

// Wrap is a convenience for the common "external collaborator failed"
// case: §7's External kind, with the cause preserved for errors.Is/As.
func Wrap(cause error, context map[string]interface{}) *Error {
	return New(KindExternal, cause, context)
}

// KindOf extracts the Kind of err, returning KindUnknown if err is not (or
// does not wrap) a *vectorerr.Error.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}

// ContextOf extracts the Context of err for the RPC surface's
// {message, context} error serialization (§7), returning nil if err is
// not (or does not wrap) a *vectorerr.Error.
func ContextOf(err error) map[string]interface{} {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Context
	}
	return nil
}

// IsRetryable reports whether the engine's outbound retry loop (§4.1.6,
// Deposit Race) should retry the operation that produced err. Only
// BadSignatures is retryable at that layer; Timeout is retryable by the
// queue/check-in handler instead (§4.2 Check-In Handler), not here.
func IsRetryable(err error) bool {
	return KindOf(err) == KindBadSignatures
}

// IsTimeout reports whether err should keep a queued update's status at
// PENDING (§4.2 Check-In Handler / §7 Timeout) rather than marking it
// FAILED.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
