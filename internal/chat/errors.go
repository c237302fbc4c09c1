package chat

import (
	"errors"
	"fmt"
)

// Kind classifies an exchange failure for propagation policy and status
// mapping. The first three are expected user-facing outcomes; the last two
// are reported generically.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindForbidden       Kind = "forbidden"
	KindPaymentRequired Kind = "payment_required"
	KindUpstreamFailure Kind = "upstream_failure"
	KindStorageFailure  Kind = "storage_failure"
)

// Error is the typed failure returned by the orchestrator. Code is the
// client-visible detail within the kind (e.g. "image_required"); Err carries
// the provider diagnostics and is never shown to end users.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Code, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func wrapError(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// KindOf extracts the failure kind, defaulting unknown errors to
// upstream_failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstreamFailure
}

// CodeOf extracts the client-visible code, defaulting to the kind itself.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Code != "" {
			return e.Code
		}
		return string(e.Kind)
	}
	return string(KindUpstreamFailure)
}
