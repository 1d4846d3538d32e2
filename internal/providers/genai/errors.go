package genai

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a backend failure for retry and compensation decisions.
// Classification happens once, at the boundary where the backend response is
// decoded; everything downstream switches on Kind instead of raw transport
// codes.
type Kind int

const (
	KindFatal Kind = iota
	KindTransient
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	default:
		return "fatal"
	}
}

// Error is the tagged failure variant produced by the generation backend
// client.
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("generation backend status %d (%s): %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("generation backend (%s): %s", e.Kind, e.Message)
}

// classifyStatus maps a transport status code onto a failure kind. Overload
// and server-error class codes are worth retrying; everything else is not.
func classifyStatus(code int) Kind {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return KindTransient
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindFatal
	}
}

func newStatusError(code int, message string) *Error {
	return &Error{Kind: classifyStatus(code), Code: code, Message: message}
}

// transientf builds a transient Error for failures that never produced a
// status code, such as connection resets.
func transientf(format string, args ...any) *Error {
	return &Error{Kind: KindTransient, Message: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err carries a transient backend classification,
// unwrapping through retry wrappers.
func IsTransient(err error) bool {
	var backendErr *Error
	return errors.As(err, &backendErr) && backendErr.Kind == KindTransient
}

// IsRetryable is the retry.Policy classifier for backend calls.
func IsRetryable(err error) bool {
	return IsTransient(err)
}
