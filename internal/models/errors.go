package models

import (
	"github.com/pkg/errors"
)

// Kind classifies a failure for the transport boundary.
type Kind int

const (
	KindUpstream Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindUnauthenticated
	KindInvalidOperation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidOperation:
		return "invalid operation"
	default:
		return "upstream"
	}
}

// Error is a classified failure whose Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrDuplicateEmail     = &Error{Kind: KindValidation, Message: "Email already exists"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Message: "Invalid email or password"}
	ErrMissingImage       = &Error{Kind: KindValidation, Message: "Please provide an image"}
	ErrSelfFollow         = &Error{Kind: KindInvalidOperation, Message: "You cannot follow or unfollow yourself"}
	ErrSelfMessage        = &Error{Kind: KindInvalidOperation, Message: "You cannot send a message to yourself"}
)

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Unauthenticated(msg string, cause error) error {
	return &Error{Kind: KindUnauthenticated, Message: msg, Err: cause}
}

// KindOf reports the kind of err. Unclassified errors are upstream failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// PublicMessage returns the client-facing message of a classified error, or
// fallback for anything else.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUpstream {
		return e.Message
	}
	return fallback
}
