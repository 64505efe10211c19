package hub

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the transport layer can pick a status
// code without string matching.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindInvalid
	KindConflict
)

// Error is the typed error surfaced by every core operation.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf reports a missing student, faculty, subject, or submission.
func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Unauthorizedf reports a caller whose role or department does not permit
// the operation.
func Unauthorizedf(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

// Invalidf reports bad input: missing credit on approval, missing remark
// on rejection, malformed semester, and so on.
func Invalidf(format string, args ...any) *Error {
	return newError(KindInvalid, format, args...)
}

// Conflictf reports a decision on a non-pending submission or a duplicate
// write that a uniqueness constraint refused.
func Conflictf(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsNotFound(err error) bool     { return isKind(err, KindNotFound) }
func IsUnauthorized(err error) bool { return isKind(err, KindUnauthorized) }
func IsInvalid(err error) bool      { return isKind(err, KindInvalid) }
func IsConflict(err error) bool     { return isKind(err, KindConflict) }
