// Package apperr defines the error kinds the service surfaces to callers.
//
// Every failure that leaves a service is an *Error carrying a Kind. Handlers
// map the Kind to an HTTP status and show Msg to the caller; Err and Op are
// for operators and only ever reach the logs.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the transport layer
type Kind string

const (
	KindInvalid         Kind = "invalid"
	KindConflict        Kind = "conflict"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not found"
	KindInternal        Kind = "internal error"
)

// InternalMessage is the only message an internal failure ever shows
const InternalMessage = "Internal Server Error"

// Error is a classified error.
//
//	&Error{Kind: KindNotFound, Msg: "Project not found"}
//	&Error{Kind: KindInternal, Op: "service.CreateProject", Err: err}
type Error struct {
	Kind Kind
	Msg  string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid reports malformed or missing input
func Invalid(msg string) *Error { return &Error{Kind: KindInvalid, Msg: msg} }

// Conflict reports a uniqueness violation
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Msg: msg} }

// Unauthenticated reports a missing or bad credential
func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Msg: msg} }

// Forbidden reports an authenticated caller that may not perform the action
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Msg: msg} }

// NotFound reports a missing, or deliberately hidden, resource
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }

// Internal wraps an unexpected failure
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind of err, KindInternal for anything unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of kind k
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Message returns the caller-facing message for err
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return InternalMessage
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// HTTPStatus maps err to a response status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalid:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
