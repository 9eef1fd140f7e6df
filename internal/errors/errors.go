package errors

import "fmt"

// Error is the structured error type returned at every component
// boundary described by the error handling design: pack store,
// migration runner, pack manager, collection client, update planner.
type Error struct {
	Kind     Kind
	Message  string
	Category Category
	Severity Severity

	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is/As keep working
// through the chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by Kind, so errors.Is(err, &Error{Kind: NotFound}) works
// without callers having to compare messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key/value detail and returns the receiver for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable suggestion and returns the receiver.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// New builds an Error of the given kind. Category, severity, and the
// retryable flag are derived from kind, not passed separately, so callers
// cannot accidentally mismatch them.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Category:  categoryForKind(kind),
		Severity:  severityForKind(kind),
		Cause:     cause,
		Retryable: retryableForKind(kind),
	}
}

// Wrap builds an Error from an existing error, using its message as
// the Error's message. Returns a nil *Error if err is nil; returned
// through an error-typed result, that nil *Error compares non-nil.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// NotFoundf builds a NotFound error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...), nil)
}

// IsRetryable reports whether err is an *Error with Retryable set.
func IsRetryable(err error) bool {
	var e *Error
	if as(err, &e) {
		return e.Retryable
	}
	return false
}

// IsFatal reports whether err is an *Error with fatal severity.
func IsFatal(err error) bool {
	var e *Error
	if as(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return ""
}

// as is a tiny local shim for errors.As over *Error, so this file does
// not import the stdlib errors package, whose name this package shares.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
