// Package mailerr defines the error kinds reported by the mail engine.
//
// Every failure that crosses a package boundary is an *Error carrying a Kind,
// the operation that failed and the underlying cause. Callers branch on the
// kind with errors.Is against the sentinels or with KindOf.
package mailerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	Authentication
	Connection
	Folder
	Parse
	Mutation
	Append
	Index
	Delivery
)

func (k Kind) String() string {
	switch k {
	case Authentication:
		return "authentication"
	case Connection:
		return "connection"
	case Folder:
		return "folder"
	case Parse:
		return "parse"
	case Mutation:
		return "mutation"
	case Append:
		return "append"
	case Index:
		return "index"
	case Delivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrAuthentication = &Error{Kind: Authentication}
	ErrConnection     = &Error{Kind: Connection}
	ErrFolder         = &Error{Kind: Folder}
	ErrParse          = &Error{Kind: Parse}
	ErrMutation       = &Error{Kind: Mutation}
	ErrAppend         = &Error{Kind: Append}
	ErrIndex          = &Error{Kind: Index}
	ErrDelivery       = &Error{Kind: Delivery}
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrLockHeld        = errors.New("session already holds a mailbox lock")
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind whose Op and Err are unset, which
// is what the package sentinels look like.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Errorf builds an *Error whose cause is formatted like fmt.Errorf.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Errorf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func IsAuth(err error) bool {
	return KindOf(err) == Authentication
}

// IsRetryable reports whether retrying the whole operation could succeed.
// Only transport failures qualify.
func IsRetryable(err error) bool {
	return KindOf(err) == Connection
}
