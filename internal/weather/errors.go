package weather

import (
	"errors"
	"fmt"

	"github.com/i474232898/weather-dashboard/internal/remote"
)

// Error kinds. Every failure that leaves a service is an *Error whose Kind
// is one of these, so callers can branch with errors.Is.
var (
	// ErrUnauthenticated means no credential is present; no request was made.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrAuth means login or registration was rejected.
	ErrAuth = errors.New("authentication failed")
	// ErrDuplicate means the city is already a favorite.
	ErrDuplicate = errors.New("city already in favorites")
	// ErrFetch is a network failure or non-success status on a read or mutation.
	ErrFetch = errors.New("fetch failed")
	// ErrLookupFailed is a failed weather lookup.
	ErrLookupFailed = errors.New("weather lookup failed")
	// ErrValidation means a local precondition failed; no request was made.
	ErrValidation = errors.New("validation failed")
)

// Error carries a failure kind plus context for the user.
type Error struct {
	Kind error
	// Op names the operation, e.g. "favorites.add".
	Op string
	// Detail is the user-facing message, usually supplied by the server.
	Detail string
	// Status is the HTTP status when one was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	switch {
	case e.Detail != "":
		msg += ": " + e.Detail
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the text to show next to the failing form or view.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Kind.Error()
}

// Unauthenticated builds an ErrUnauthenticated error for op.
func Unauthenticated(op string) error {
	return &Error{Kind: ErrUnauthenticated, Op: op, Detail: "please login first"}
}

// Validation builds an ErrValidation error for op.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Message extracts a user-facing message from any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}

// FromRemote converts a failure from the remote client into an *Error of
// the given kind, keeping the HTTP status and server detail.
func FromRemote(op string, kind error, err error) error {
	e := &Error{Kind: kind, Op: op, Err: err}
	e.Status = remote.Status(err)
	e.Detail = remote.Detail(err)
	return e
}
