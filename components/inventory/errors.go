package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures surfaced by the gateway and the stores.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindNotFound        ErrorKind = "not_found"
	KindServer          ErrorKind = "server"
	KindTransport       ErrorKind = "transport"
)

// Sentinel errors matched through errors.Is against any *Error of the same kind.
var (
	ErrValidation      = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "session expired"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrServer          = &Error{Kind: KindServer, Message: "server error"}
	ErrTransport       = &Error{Kind: KindTransport, Message: "network failure"}
)

// ErrItemNotInCatalog reports an update whose returned item id matches no entry in the collection.
var ErrItemNotInCatalog = errors.New("inventory: updated item is not present in the catalog")

// ErrLoginSuperseded reports a login whose response arrived after a logout or
// a newer login. No session was saved.
var ErrLoginSuperseded = errors.New("inventory: login superseded by a newer session change")

// Error carries the failure kind, the operation, and the server supplied message.
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("inventory")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// NewValidationError builds a validation failure for op.
func NewValidationError(op, message string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindServer for unknown failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// MessageOf returns the human readable message for display in shells.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
