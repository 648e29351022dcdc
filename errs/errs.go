// Package errs defines the BifrostQL error taxonomy (spec.md §7) shared by
// every compiler stage. A *errs.Error carries a stable Code surfaced to
// GraphQL clients as errors[*].extensions.code, independent of whatever
// Go error message text happens to describe the failure.
package errs

import (
	"fmt"
	"strings"
)

// Code is one of the taxonomy entries from spec.md §7.
type Code string

const (
	InvalidQuery        Code = "INVALID_QUERY"
	InvalidFilter        Code = "INVALID_FILTER"
	MutationNotAllowed  Code = "MUTATION_NOT_ALLOWED"
	MissingPK           Code = "MISSING_PK"
	DBError             Code = "DB_ERROR"
	Timeout             Code = "TIMEOUT"
	Cancelled           Code = "CANCELLED"
	Internal            Code = "INTERNAL"
)

var allCodes = map[string]Code{
	string(InvalidQuery):       InvalidQuery,
	string(InvalidFilter):      InvalidFilter,
	string(MutationNotAllowed): MutationNotAllowed,
	string(MissingPK):          MissingPK,
	string(DBError):            DBError,
	string(Timeout):            Timeout,
	string(Cancelled):          Cancelled,
	string(Internal):           Internal,
}

// Error is the common error type returned by every compiler stage. It is
// never a panic: malformed input always comes back as an *Error with the
// taxonomy code that best describes it (spec.md §7).
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// CodeOf extracts the taxonomy code from err, defaulting to Internal when
// err is not a *Error — this is the only place a non-taxonomy error is
// allowed to surface to a client, and it always maps to INTERNAL rather
// than leaking raw Go error text as spec.md §7 requires.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return Internal
}

// CodeFromMessage recovers the taxonomy code from a formatted error message
// of the shape Error.Error() produces ("CODE: message" or "CODE: message:
// cause"). graphql-go's default error formatting sets a resolver error's
// FormattedError.Message to err.Error() and keeps nothing else of the
// original error, so this is the only way a caller on the far side of
// graphql.Do can recover the code a resolver returned (core.convertErrors).
// ok is false when msg has no recognizable leading code token — e.g.
// graphql-go's own parse/validation errors, which never carry one.
func CodeFromMessage(msg string) (code Code, ok bool) {
	head, _, cut := strings.Cut(msg, ": ")
	if !cut {
		return "", false
	}
	code, ok = allCodes[head]
	return code, ok
}
