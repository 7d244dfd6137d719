// Package apperr classifies failures into the kinds the UI reacts to.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/veloxcase/veloxcase-tui/internal/api"
)

// Kind is the class of a failure.
type Kind int

const (
	// KindServer is any non-2xx response or transport failure. It is the
	// fallback for unclassified errors.
	KindServer Kind = iota
	// KindValidation is missing or malformed local input. No request is sent.
	KindValidation
	// KindAuth is a 401 from an authenticated call. It ends the session.
	KindAuth
	// KindConflict is a duplicate test case reported by a sync.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	default:
		return "server"
	}
}

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind Kind
	Op   string
	// Msg is shown to the user.
	Msg string
	// Fields names the form fields to flag, if any.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a KindValidation error flagging fields.
func Validation(op, msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg, Fields: fields}
}

// Conflict returns a KindConflict error.
func Conflict(op, msg string) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg}
}

// Wrap classifies err and attaches a user-facing message. A nil err yields nil.
func Wrap(op, msg string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Op: op, Msg: msg, Err: err}
}

// KindOf classifies err. 401 responses are KindAuth; everything that is not
// already an *Error is KindServer.
func KindOf(err error) Kind {
	if err == nil {
		return KindServer
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return KindAuth
	}
	return KindServer
}

// IsUnauthorized reports whether err should end the session.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindAuth
}

// IsCanceled reports whether err came from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// FieldsOf returns the flagged fields carried by err.
func FieldsOf(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

// UserMessage returns the message to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Msg != "" {
		return appErr.Msg
	}
	if msg := api.Message(err); msg != "" {
		return msg
	}
	return "Could not reach the server."
}
